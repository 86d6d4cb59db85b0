package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMatchParams_Validate(t *testing.T) {
	t.Parallel()

	minute := func(m int) *int { return &m }
	kickoff := time.Date(2026, 6, 14, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		params  interface{ Validate() error }
		wantErr bool
	}{
		{
			name:   "complete match",
			params: &ScheduleMatchParams{TeamAID: "a", TeamBID: "b", Stadium: "Luz", City: "Lisbon", KickoffTime: kickoff},
		},
		{
			name:    "match without kickoff",
			params:  &ScheduleMatchParams{TeamAID: "a", TeamBID: "b", Stadium: "Luz", City: "Lisbon"},
			wantErr: true,
		},
		{
			name:    "team against itself",
			params:  &ScheduleMatchParams{TeamAID: "a", TeamBID: "a", Stadium: "Luz", City: "Lisbon", KickoffTime: kickoff},
			wantErr: true,
		},
		{name: "goal at kickoff", params: &ScoreGoalParams{TeamID: "a", Minute: minute(0)}},
		{name: "goal without minute", params: &ScoreGoalParams{TeamID: "a"}, wantErr: true},
		{name: "goal in negative minute", params: &ScoreGoalParams{TeamID: "a", Minute: minute(-1)}, wantErr: true},
		{
			name: "match scoped alert",
			params: &PublishAlertParams{
				ScopeType: AlertScopeMatch, ScopeID: "m", Category: AlertCategoryGeneral,
				Severity: AlertSeverityInfo, Message: "Kickoff delayed",
			},
		},
		{
			name: "alert with unknown severity",
			params: &PublishAlertParams{
				ScopeType: AlertScopeAll, Category: AlertCategoryGeneral, Severity: "LOUD", Message: "x",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.params.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, ErrInvalidMatch)
		})
	}
}

func TestMatch_TeamName(t *testing.T) {
	t.Parallel()

	match := &Match{TeamA: Team{ID: "a", Name: "Lions"}, TeamB: Team{ID: "b", Name: "Eagles"}}
	require.Equal(t, "Lions", match.TeamName("a"))
	require.Equal(t, "Eagles", match.TeamName("b"))
	require.True(t, MatchStatusCancelled.IsOver())
	require.False(t, MatchStatusHalftime.IsOver())
}
