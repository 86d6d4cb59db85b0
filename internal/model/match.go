// Package model defines domain models and data structures.
package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMatchNotFound is returned when no match exists for the given id.
	ErrMatchNotFound = errors.New("match not found")
	// ErrTeamNotFound is returned when a referenced team does not exist.
	ErrTeamNotFound = errors.New("one or both teams not found")
	// ErrMatchClosed is returned when a finished or cancelled match is modified.
	ErrMatchClosed = errors.New("match is already over")
	// ErrInvalidMatch is returned when match, goal or alert input is incomplete.
	ErrInvalidMatch = errors.New("invalid match input")
)

// MatchStatus is the progress of a match.
type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "SCHEDULED"
	MatchStatusLive      MatchStatus = "LIVE"
	MatchStatusHalftime  MatchStatus = "HALFTIME"
	MatchStatusFinished  MatchStatus = "FINISHED"
	MatchStatusCancelled MatchStatus = "CANCELLED"
)

// IsOver reports whether the match can no longer change.
func (s MatchStatus) IsOver() bool {
	return s == MatchStatusFinished || s == MatchStatusCancelled
}

// Team represents a team entity.
type Team struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
}

// Match represents a match with its running score.
type Match struct {
	ID          string      `json:"id"`
	TeamA       Team        `json:"teamA"`
	TeamB       Team        `json:"teamB"`
	Stadium     string      `json:"stadium"`
	City        string      `json:"city"`
	KickoffTime time.Time   `json:"kickoffTime"`
	Status      MatchStatus `json:"status"`
	Score       Score       `json:"score"`
}

// TeamName returns the name of the participating team with id teamID.
func (m *Match) TeamName(teamID string) string {
	if teamID == m.TeamA.ID {
		return m.TeamA.Name
	}

	return m.TeamB.Name
}

// Goal represents a goal scored in a match.
type Goal struct {
	ID        string    `json:"id"`
	MatchID   string    `json:"matchId"`
	TeamID    string    `json:"teamId"`
	Minute    int       `json:"minute"`
	Player    string    `json:"player,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Alert represents an operator alert.
type Alert struct {
	ID        string        `json:"id"`
	ScopeType AlertScope    `json:"scopeType"`
	ScopeID   string        `json:"scopeId,omitempty"`
	Category  AlertCategory `json:"category"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ScheduleMatchParams represents parameters for creating a new match.
type ScheduleMatchParams struct {
	TeamAID     string    `json:"teamAId"`
	TeamBID     string    `json:"teamBId"`
	Stadium     string    `json:"stadium"`
	City        string    `json:"city"`
	KickoffTime time.Time `json:"kickoffTime"`
}

// Validate validates the schedule match parameters.
func (p *ScheduleMatchParams) Validate() error {
	if p.TeamAID == "" || p.TeamBID == "" || p.Stadium == "" || p.City == "" || p.KickoffTime.IsZero() {
		return fmt.Errorf("%w: teamAId, teamBId, stadium, city, and kickoffTime are required", ErrInvalidMatch)
	}

	if p.TeamAID == p.TeamBID {
		return fmt.Errorf("%w: a team cannot play against itself", ErrInvalidMatch)
	}

	return nil
}

// ScoreGoalParams represents parameters for recording a goal.
type ScoreGoalParams struct {
	TeamID string `json:"teamId"`
	Minute *int   `json:"minute"`
	Player string `json:"player"`
}

// Validate validates the score goal parameters.
func (p *ScoreGoalParams) Validate() error {
	if p.TeamID == "" || p.Minute == nil {
		return fmt.Errorf("%w: teamId and minute are required", ErrInvalidMatch)
	}

	if *p.Minute < 0 {
		return fmt.Errorf("%w: minute must not be negative", ErrInvalidMatch)
	}

	return nil
}

// PublishAlertParams represents parameters for publishing an alert.
type PublishAlertParams struct {
	ScopeType AlertScope    `json:"scopeType"`
	ScopeID   string        `json:"scopeId"`
	Category  AlertCategory `json:"category"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
}

// Validate validates the alert parameters with the same rules as the event data.
func (p *PublishAlertParams) Validate() error {
	data := AlertPublishedData{
		AlertID:   "pending",
		ScopeType: p.ScopeType,
		ScopeID:   p.ScopeID,
		Category:  p.Category,
		Severity:  p.Severity,
		Message:   p.Message,
	}

	if err := data.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMatch, err)
	}

	return nil
}
