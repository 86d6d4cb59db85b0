package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jnst/fan-notification-outbox/internal/model"
)

func TestRecipientResolver_Resolve(t *testing.T) {
	t.Parallel()

	resolver := NewRecipientResolverImpl(sampleRecipients())
	ctx := context.Background()

	tests := []struct {
		name      string
		eventType model.EventType
		data      model.EventData
		want      []string
	}{
		{
			name:      "goal unions both teams without duplicates",
			eventType: model.EventTypeGoalScored,
			data:      goalPayload(teamA, teamB).Data,
			want:      []string{"fan-1", "fan-2"},
		},
		{
			name:      "match scheduled",
			eventType: model.EventTypeMatchScheduled,
			data:      &model.MatchScheduledData{MatchID: "m", TeamAID: teamB, TeamBID: teamC},
			want:      []string{"fan-2", "fan-3"},
		},
		{
			name:      "match ended with one team missing",
			eventType: model.EventTypeMatchEnded,
			data:      model.MatchEndedData{MatchID: "m", TeamAID: teamC},
			want:      []string{"fan-3"},
		},
		{
			name:      "alert to all fans",
			eventType: model.EventTypeAlertPublished,
			data:      model.AlertPublishedData{ScopeType: model.AlertScopeAll},
			want:      []string{"fan-1", "fan-2", "fan-3", "fan-4", "fan-5"},
		},
		{
			name:      "alert to a city",
			eventType: model.EventTypeAlertPublished,
			data:      &model.AlertPublishedData{ScopeType: model.AlertScopeCity, ScopeID: "Lisbon"},
			want:      []string{"fan-3"},
		},
		{
			name:      "alert to a match",
			eventType: model.EventTypeAlertPublished,
			data:      model.AlertPublishedData{ScopeType: model.AlertScopeMatch, ScopeID: "m"},
			want:      []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			recipients, err := resolver.Resolve(ctx, tt.eventType, tt.data)
			require.NoError(t, err)

			ids := make([]string, 0, len(recipients))
			for _, recipient := range recipients {
				ids = append(ids, recipient.ID)
			}

			require.Equal(t, tt.want, ids)
		})
	}
}

func TestRecipientResolver_Errors(t *testing.T) {
	t.Parallel()

	resolver := NewRecipientResolverImpl(sampleRecipients())
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, model.EventType("match.postponed"), nil)
	require.ErrorIs(t, err, model.ErrUnknownEventType)

	_, err = resolver.Resolve(ctx, model.EventTypeGoalScored, model.AlertPublishedData{})
	require.ErrorIs(t, err, model.ErrInvalidPayload)

	_, err = resolver.Resolve(ctx, model.EventTypeAlertPublished, model.MatchEndedData{})
	require.ErrorIs(t, err, model.ErrInvalidPayload)
}

func TestRecipientResolver_Register(t *testing.T) {
	t.Parallel()

	resolver := NewRecipientResolverImpl(sampleRecipients())

	resolver.Register(model.EventTypeAlertPublished, func(context.Context, model.EventData) ([]model.Recipient, error) {
		return []model.Recipient{
			{ID: "ops-1", Email: "ops@example.com"},
			{ID: "ops-2"},
			{ID: "ops-1", Email: "ops@example.com"},
		}, nil
	})

	recipients, err := resolver.Resolve(context.Background(), model.EventTypeAlertPublished, model.AlertPublishedData{})
	require.NoError(t, err)
	require.Equal(t, []model.Recipient{{ID: "ops-1", Email: "ops@example.com"}}, recipients)
}
