package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/jnst/fan-notification-outbox/internal/model"
)

const (
	recipientColumns = `f.id::text, COALESCE(f.email, ''), COALESCE(f.phone, ''), f.language`

	selectFansByTeamsSQL = `
SELECT DISTINCT ` + recipientColumns + `
FROM fans f
INNER JOIN fan_teams ft ON ft.fan_id = f.id
WHERE ft.team_id = ANY($1::uuid[])
ORDER BY 1`

	selectAllFansSQL = `
SELECT ` + recipientColumns + `
FROM fans f
ORDER BY f.created_at ASC, f.id ASC`

	selectFansByCitySQL = `
SELECT DISTINCT ` + recipientColumns + `
FROM fans f
INNER JOIN fan_teams ft ON ft.fan_id = f.id
INNER JOIN matches m ON ft.team_id = m.team_a_id OR ft.team_id = m.team_b_id
WHERE m.city = $1
ORDER BY 1`
)

// RecipientRepositoryImpl implements RecipientRepository using PostgreSQL.
type RecipientRepositoryImpl struct {
	db DBTX
}

// NewRecipientRepositoryImpl creates a new RecipientRepository implementation.
func NewRecipientRepositoryImpl(db DBTX) RecipientRepository {
	return &RecipientRepositoryImpl{db: db}
}

// FindByTeams returns the fans subscribed to any of the given teams.
func (r *RecipientRepositoryImpl) FindByTeams(ctx context.Context, teamIDs []string) ([]model.Recipient, error) {
	ids := make([]string, 0, len(teamIDs))
	for _, id := range teamIDs {
		if isUUID(id) {
			ids = append(ids, id)
		}
	}

	if len(ids) == 0 {
		return []model.Recipient{}, nil
	}

	return r.query(ctx, "find fans by teams", selectFansByTeamsSQL, ids)
}

// FindAll returns every fan.
func (r *RecipientRepositoryImpl) FindAll(ctx context.Context) ([]model.Recipient, error) {
	return r.query(ctx, "find all fans", selectAllFansSQL)
}

// FindByCity returns the fans of teams that play or are scheduled in city.
func (r *RecipientRepositoryImpl) FindByCity(ctx context.Context, city string) ([]model.Recipient, error) {
	if city == "" {
		return []model.Recipient{}, nil
	}

	return r.query(ctx, "find fans by city", selectFansByCitySQL, city)
}

func (r *RecipientRepositoryImpl) query(ctx context.Context, op, sql string, args ...any) ([]model.Recipient, error) {
	rows, err := querier(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, model.NewPersistenceError(op, err)
	}

	recipients, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Recipient, error) {
		var recipient model.Recipient
		err := row.Scan(&recipient.ID, &recipient.Email, &recipient.Phone, &recipient.Language)

		return recipient, err
	})
	if err != nil {
		return nil, model.NewPersistenceError(op, err)
	}

	return recipients, nil
}
