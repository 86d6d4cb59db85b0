//go:build integration

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jnst/fan-notification-outbox/internal/database"
	"github.com/jnst/fan-notification-outbox/internal/logger"
	"github.com/jnst/fan-notification-outbox/internal/model"
)

var (
	lions  = uuid.NewString()
	eagles = uuid.NewString()
	sharks = uuid.NewString()
)

// setupPool starts a disposable PostgreSQL container, applies the migrations
// and seeds three teams with their fans.
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("outbox"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	log := logger.Discard()
	require.NoError(t, database.RunMigrations(dsn, log))

	pool, err := database.Connect(ctx, dsn, log)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	seed(t, pool)

	return pool
}

func seed(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()
	fan1, fan2, fan3 := uuid.NewString(), uuid.NewString(), uuid.NewString()

	statements := []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO teams (id, name, country) VALUES ($1, 'Lions', 'PT'), ($2, 'Eagles', NULL), ($3, 'Sharks', 'ES')`,
			[]any{lions, eagles, sharks}},
		{`INSERT INTO fans (id, email, phone, language) VALUES
			($1, 'ana@example.com', NULL, 'pt'),
			($2, 'ben@example.com', '+351900000002', 'en'),
			($3, NULL, '+351900000003', 'fr')`,
			[]any{fan1, fan2, fan3}},
		{`INSERT INTO fan_teams (fan_id, team_id) VALUES ($1, $4), ($2, $4), ($2, $5), ($3, $6)`,
			[]any{fan1, fan2, fan3, lions, eagles, sharks}},
	}

	for _, stmt := range statements {
		_, err := pool.Exec(ctx, stmt.sql, stmt.args...)
		require.NoError(t, err)
	}
}

func createEvent(t *testing.T, repo EventRepository, payload *model.Payload) (string, []byte) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	id, err := repo.Create(context.Background(), &model.CreateEventParams{Type: payload.Type, Payload: raw})
	require.NoError(t, err)

	return id, raw
}

func alert(message string) *model.Payload {
	return model.NewPayload(model.AlertPublishedData{
		AlertID:   uuid.NewString(),
		ScopeType: model.AlertScopeAll,
		Category:  model.AlertCategoryGeneral,
		Severity:  model.AlertSeverityInfo,
		Message:   message,
	})
}

func TestIntegration_EventRepository(t *testing.T) {
	pool := setupPool(t)
	repo := NewEventRepositoryImpl(pool)
	ctx := context.Background()

	t.Run("create and find keep the payload bytes", func(t *testing.T) {
		id, raw := createEvent(t, repo, alert("Gates open at 17:00"))

		var stored string
		require.NoError(t, pool.QueryRow(ctx, `SELECT payload_json::text FROM outbox_events WHERE id = $1`, id).Scan(&stored))
		require.Equal(t, string(raw), stored)

		event, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		require.Equal(t, model.StatusNew, event.Status)
		require.Nil(t, event.ProcessedAt)
		require.Equal(t, "Gates open at 17:00", event.Payload.Data.(*model.AlertPublishedData).Message)
	})

	t.Run("unknown ids", func(t *testing.T) {
		event, err := repo.FindByID(ctx, uuid.NewString())
		require.NoError(t, err)
		require.Nil(t, event)

		event, err = repo.FindByID(ctx, "not-a-uuid")
		require.NoError(t, err)
		require.Nil(t, event)

		require.ErrorIs(t, repo.UpdateStatus(ctx, uuid.NewString(), model.StatusSent), model.ErrEventNotFound)
	})

	t.Run("transitions are guarded", func(t *testing.T) {
		id, _ := createEvent(t, repo, alert("Kickoff delayed"))

		require.NoError(t, repo.UpdateStatus(ctx, id, model.StatusSent))
		require.ErrorIs(t, repo.UpdateStatus(ctx, id, model.StatusFailed), model.ErrInvalidTransition)
		require.NoError(t, repo.UpdateStatus(ctx, id, model.StatusProcessed))

		first, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, first.ProcessedAt)

		require.NoError(t, repo.UpdateStatus(ctx, id, model.StatusProcessed))
		require.ErrorIs(t, repo.UpdateStatus(ctx, id, model.StatusSent), model.ErrInvalidTransition)

		second, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		require.True(t, first.ProcessedAt.Equal(*second.ProcessedAt))
	})

	t.Run("pending window", func(t *testing.T) {
		_, err := pool.Exec(ctx, `DELETE FROM outbox_events`)
		require.NoError(t, err)

		old, _ := createEvent(t, repo, alert("old"))
		failed, _ := createEvent(t, repo, alert("failed"))
		recent, _ := createEvent(t, repo, alert("recent"))
		sent, _ := createEvent(t, repo, alert("sent"))

		_, err = pool.Exec(ctx, `UPDATE outbox_events SET created_at = now() - interval '30 hours' WHERE id = $1`, old)
		require.NoError(t, err)
		_, err = pool.Exec(ctx, `UPDATE outbox_events SET created_at = now() - interval '2 hours' WHERE id = $1`, failed)
		require.NoError(t, err)
		require.NoError(t, repo.UpdateStatus(ctx, failed, model.StatusFailed))
		require.NoError(t, repo.UpdateStatus(ctx, sent, model.StatusSent))

		pending, err := repo.ListPending(ctx, 24)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		require.Equal(t, failed, pending[0].ID)
		require.Equal(t, recent, pending[1].ID)

		pending, err = repo.ListPending(ctx, 48)
		require.NoError(t, err)
		require.Len(t, pending, 3)
		require.Equal(t, old, pending[0].ID)
	})
}

func TestIntegration_RecipientRepository(t *testing.T) {
	pool := setupPool(t)
	repo := NewRecipientRepositoryImpl(pool)
	ctx := context.Background()

	fans, err := repo.FindByTeams(ctx, []string{lions, eagles})
	require.NoError(t, err)
	require.Len(t, fans, 2)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	matches := NewMatchRepositoryImpl(pool)
	_, err = matches.CreateMatch(ctx, &model.ScheduleMatchParams{
		TeamAID: lions, TeamBID: sharks, Stadium: "Estadio do Dragao", City: "Porto",
		KickoffTime: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	porto, err := repo.FindByCity(ctx, "Porto")
	require.NoError(t, err)
	require.Len(t, porto, 3)

	lisbon, err := repo.FindByCity(ctx, "Lisbon")
	require.NoError(t, err)
	require.Empty(t, lisbon)
}

func TestIntegration_TransactionManager(t *testing.T) {
	pool := setupPool(t)
	events := NewEventRepositoryImpl(pool)
	tm := NewTransactionManagerImpl(pool)
	ctx := context.Background()

	var committed string

	err := tm.WithTransaction(ctx, func(txCtx context.Context) error {
		raw, err := json.Marshal(alert("committed"))
		require.NoError(t, err)

		committed, err = events.Create(txCtx, &model.CreateEventParams{Type: model.EventTypeAlertPublished, Payload: raw})

		return err
	})
	require.NoError(t, err)

	event, err := events.FindByID(ctx, committed)
	require.NoError(t, err)
	require.NotNil(t, event)

	errAbort := errors.New("abort")
	var rolledBack string

	err = tm.WithTransaction(ctx, func(txCtx context.Context) error {
		raw, err := json.Marshal(alert("rolled back"))
		require.NoError(t, err)

		rolledBack, err = events.Create(txCtx, &model.CreateEventParams{Type: model.EventTypeAlertPublished, Payload: raw})
		require.NoError(t, err)

		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	event, err = events.FindByID(ctx, rolledBack)
	require.NoError(t, err)
	require.Nil(t, event)
}

func TestIntegration_MatchRepository(t *testing.T) {
	pool := setupPool(t)
	repo := NewMatchRepositoryImpl(pool)
	ctx := context.Background()

	teams, err := repo.FindTeams(ctx, []string{lions, eagles, "bogus", uuid.NewString()})
	require.NoError(t, err)
	require.Len(t, teams, 2)

	id, err := repo.CreateMatch(ctx, &model.ScheduleMatchParams{
		TeamAID: lions, TeamBID: eagles, Stadium: "Estadio da Luz", City: "Lisbon",
		KickoffTime: time.Date(2026, 6, 14, 18, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	err = NewTransactionManagerImpl(pool).WithTransaction(ctx, func(ctx context.Context) error {
		if err := repo.LockMatch(ctx, id); err != nil {
			return err
		}

		if _, err := repo.CreateGoal(ctx, id, &model.ScoreGoalParams{TeamID: lions, Minute: intPtr(10)}); err != nil {
			return err
		}

		_, err := repo.CreateGoal(ctx, id, &model.ScoreGoalParams{TeamID: eagles, Minute: intPtr(55), Player: "Ruiz"})

		return err
	})
	require.NoError(t, err)

	match, err := repo.FindMatch(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Eagles", match.TeamB.Name)
	require.Empty(t, match.TeamB.Country)
	require.Equal(t, model.MatchStatusScheduled, match.Status)
	require.Equal(t, model.Score{TeamA: 1, TeamB: 1}, match.Score)

	require.NoError(t, repo.UpdateMatchStatus(ctx, id, model.MatchStatusFinished))
	match, err = repo.FindMatch(ctx, id)
	require.NoError(t, err)
	require.Equal(t, model.MatchStatusFinished, match.Status)

	_, err = repo.FindMatch(ctx, uuid.NewString())
	require.ErrorIs(t, err, model.ErrMatchNotFound)
	require.ErrorIs(t, repo.LockMatch(ctx, uuid.NewString()), model.ErrMatchNotFound)

	created, err := repo.CreateAlert(ctx, &model.PublishAlertParams{
		ScopeType: model.AlertScopeAll,
		Category:  model.AlertCategoryWeather,
		Severity:  model.AlertSeverityWarn,
		Message:   "Storm expected",
	})
	require.NoError(t, err)
	require.False(t, created.CreatedAt.IsZero())
}

func intPtr(v int) *int { return &v }
