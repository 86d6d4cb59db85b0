package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jnst/fan-notification-outbox/internal/model"
)

const (
	selectTeamsSQL = `
SELECT id::text, name, COALESCE(country, '')
FROM teams
WHERE id = ANY($1::uuid[])`

	insertMatchSQL = `
INSERT INTO matches (id, team_a_id, team_b_id, stadium, city, kickoff_time, status)
VALUES ($1, $2, $3, $4, $5, $6, 'SCHEDULED')`

	selectMatchSQL = `
SELECT m.id::text, m.stadium, m.city, m.kickoff_time, m.status,
       ta.id::text, ta.name, COALESCE(ta.country, ''),
       tb.id::text, tb.name, COALESCE(tb.country, ''),
       (SELECT COUNT(*) FROM goals g WHERE g.match_id = m.id AND g.team_id = ta.id),
       (SELECT COUNT(*) FROM goals g WHERE g.match_id = m.id AND g.team_id = tb.id)
FROM matches m
INNER JOIN teams ta ON m.team_a_id = ta.id
INNER JOIN teams tb ON m.team_b_id = tb.id
WHERE m.id = $1`

	lockMatchSQL = `SELECT 1 FROM matches WHERE id = $1 FOR UPDATE`

	updateMatchStatusSQL = `UPDATE matches SET status = $2 WHERE id = $1`

	insertGoalSQL = `
INSERT INTO goals (id, match_id, team_id, minute, player)
VALUES ($1, $2, $3, $4, NULLIF($5, ''))
RETURNING created_at`

	insertAlertSQL = `
INSERT INTO alerts (id, scope_type, scope_id, category, severity, message)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
RETURNING created_at`
)

// MatchRepositoryImpl implements MatchRepository using PostgreSQL.
type MatchRepositoryImpl struct {
	db DBTX
}

// NewMatchRepositoryImpl creates a new MatchRepository implementation.
func NewMatchRepositoryImpl(db DBTX) MatchRepository {
	return &MatchRepositoryImpl{db: db}
}

// FindTeams retrieves the teams with the given ids; unknown ids are skipped.
func (r *MatchRepositoryImpl) FindTeams(ctx context.Context, ids []string) ([]model.Team, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			valid = append(valid, id)
		}
	}

	if len(valid) == 0 {
		return []model.Team{}, nil
	}

	rows, err := querier(ctx, r.db).Query(ctx, selectTeamsSQL, valid)
	if err != nil {
		return nil, model.NewPersistenceError("find teams", err)
	}

	teams, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Team, error) {
		var team model.Team
		err := row.Scan(&team.ID, &team.Name, &team.Country)

		return team, err
	})
	if err != nil {
		return nil, model.NewPersistenceError("find teams", err)
	}

	return teams, nil
}

// CreateMatch creates a new scheduled match.
func (r *MatchRepositoryImpl) CreateMatch(ctx context.Context, params *model.ScheduleMatchParams) (string, error) {
	id := uuid.NewString()

	_, err := querier(ctx, r.db).Exec(ctx, insertMatchSQL,
		id, params.TeamAID, params.TeamBID, params.Stadium, params.City, params.KickoffTime)
	if err != nil {
		return "", model.NewPersistenceError("create match", err)
	}

	return id, nil
}

// FindMatch retrieves a match with both teams and the current score.
func (r *MatchRepositoryImpl) FindMatch(ctx context.Context, id string) (*model.Match, error) {
	if !isUUID(id) {
		return nil, model.ErrMatchNotFound
	}

	var (
		match  model.Match
		status string
	)

	err := querier(ctx, r.db).QueryRow(ctx, selectMatchSQL, id).Scan(
		&match.ID, &match.Stadium, &match.City, &match.KickoffTime, &status,
		&match.TeamA.ID, &match.TeamA.Name, &match.TeamA.Country,
		&match.TeamB.ID, &match.TeamB.Name, &match.TeamB.Country,
		&match.Score.TeamA, &match.Score.TeamB,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrMatchNotFound
		}

		return nil, model.NewPersistenceError("find match", err)
	}

	match.Status = model.MatchStatus(status)

	return &match, nil
}

// LockMatch takes a row lock on the match.
func (r *MatchRepositoryImpl) LockMatch(ctx context.Context, id string) error {
	if !isUUID(id) {
		return model.ErrMatchNotFound
	}

	var one int
	if err := querier(ctx, r.db).QueryRow(ctx, lockMatchSQL, id).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrMatchNotFound
		}

		return model.NewPersistenceError("lock match", err)
	}

	return nil
}

// UpdateMatchStatus sets the status of a match.
func (r *MatchRepositoryImpl) UpdateMatchStatus(ctx context.Context, id string, status model.MatchStatus) error {
	tag, err := querier(ctx, r.db).Exec(ctx, updateMatchStatusSQL, id, string(status))
	if err != nil {
		return model.NewPersistenceError("update match status", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrMatchNotFound
	}

	return nil
}

// CreateGoal records a goal.
func (r *MatchRepositoryImpl) CreateGoal(
	ctx context.Context, matchID string, params *model.ScoreGoalParams,
) (*model.Goal, error) {
	goal := &model.Goal{
		ID:      uuid.NewString(),
		MatchID: matchID,
		TeamID:  params.TeamID,
		Minute:  *params.Minute,
		Player:  params.Player,
	}

	err := querier(ctx, r.db).QueryRow(ctx, insertGoalSQL,
		goal.ID, goal.MatchID, goal.TeamID, goal.Minute, goal.Player).Scan(&goal.CreatedAt)
	if err != nil {
		return nil, model.NewPersistenceError("create goal", err)
	}

	return goal, nil
}

// CreateAlert records an alert.
func (r *MatchRepositoryImpl) CreateAlert(ctx context.Context, params *model.PublishAlertParams) (*model.Alert, error) {
	alert := &model.Alert{
		ID:        uuid.NewString(),
		ScopeType: params.ScopeType,
		ScopeID:   params.ScopeID,
		Category:  params.Category,
		Severity:  params.Severity,
		Message:   params.Message,
	}

	err := querier(ctx, r.db).QueryRow(ctx, insertAlertSQL,
		alert.ID, string(alert.ScopeType), alert.ScopeID, string(alert.Category), string(alert.Severity), alert.Message,
	).Scan(&alert.CreatedAt)
	if err != nil {
		return nil, model.NewPersistenceError("create alert", err)
	}

	return alert, nil
}
