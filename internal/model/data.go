package model

import (
	"fmt"
	"time"
)

// AlertScope selects the audience of an alert.
type AlertScope string

const (
	AlertScopeAll     AlertScope = "ALL"
	AlertScopeCity    AlertScope = "CITY"
	AlertScopeStadium AlertScope = "STADIUM"
	AlertScopeMatch   AlertScope = "MATCH"
)

// AlertCategory classifies an alert.
type AlertCategory string

const (
	AlertCategoryWeather  AlertCategory = "WEATHER"
	AlertCategorySecurity AlertCategory = "SECURITY"
	AlertCategoryTraffic  AlertCategory = "TRAFFIC"
	AlertCategoryGeneral  AlertCategory = "GENERAL"
)

// AlertSeverity grades an alert.
type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "INFO"
	AlertSeverityWarn     AlertSeverity = "WARN"
	AlertSeverityCritical AlertSeverity = "CRITICAL"
)

// Score is the running score of a match.
type Score struct {
	TeamA int `json:"teamA"`
	TeamB int `json:"teamB"`
}

// MatchScheduledData is the data of a match.scheduled event.
type MatchScheduledData struct {
	MatchID     string    `json:"matchId"`
	TeamAID     string    `json:"teamAId"`
	TeamAName   string    `json:"teamAName"`
	TeamBID     string    `json:"teamBId"`
	TeamBName   string    `json:"teamBName"`
	KickoffTime time.Time `json:"kickoffTime"`
	Stadium     string    `json:"stadium"`
	City        string    `json:"city"`
}

func (MatchScheduledData) EventType() EventType { return EventTypeMatchScheduled }

func (d MatchScheduledData) TeamIDs() []string { return []string{d.TeamAID, d.TeamBID} }

func (d MatchScheduledData) Validate() error {
	if err := validateTeams(d.MatchID, d.TeamAID, d.TeamBID); err != nil {
		return err
	}

	if d.KickoffTime.IsZero() {
		return fmt.Errorf("%w: kickoffTime is required", ErrInvalidPayload)
	}

	return nil
}

func (d MatchScheduledData) Summary() string {
	return fmt.Sprintf("Match scheduled: %s vs %s at %s, %s on %s",
		d.TeamAName, d.TeamBName, d.Stadium, d.City, d.KickoffTime.UTC().Format(time.RFC1123))
}

// GoalScoredData is the data of a goal.scored event.
type GoalScoredData struct {
	MatchID   string `json:"matchId"`
	TeamID    string `json:"teamId"`
	TeamName  string `json:"teamName"`
	Minute    int    `json:"minute"`
	Player    string `json:"player"`
	Score     Score  `json:"score"`
	TeamAID   string `json:"teamAId"`
	TeamBID   string `json:"teamBId"`
	TeamAName string `json:"teamAName"`
	TeamBName string `json:"teamBName"`
}

func (GoalScoredData) EventType() EventType { return EventTypeGoalScored }

func (d GoalScoredData) TeamIDs() []string { return []string{d.TeamAID, d.TeamBID} }

func (d GoalScoredData) Validate() error {
	if err := validateTeams(d.MatchID, d.TeamAID, d.TeamBID); err != nil {
		return err
	}

	if d.TeamID != d.TeamAID && d.TeamID != d.TeamBID {
		return fmt.Errorf("%w: team %q is not playing in match %q", ErrInvalidPayload, d.TeamID, d.MatchID)
	}

	if d.Minute < 0 {
		return fmt.Errorf("%w: minute must not be negative", ErrInvalidPayload)
	}

	return nil
}

func (d GoalScoredData) Summary() string {
	player := d.Player
	if player == "" {
		player = "Unknown"
	}

	return fmt.Sprintf("GOAL! %s scores in minute %d (%s). %s %d - %d %s",
		d.TeamName, d.Minute, player, d.TeamAName, d.Score.TeamA, d.Score.TeamB, d.TeamBName)
}

// MatchEndedData is the data of a match.ended event.
type MatchEndedData struct {
	MatchID   string `json:"matchId"`
	TeamAID   string `json:"teamAId"`
	TeamAName string `json:"teamAName"`
	TeamBID   string `json:"teamBId"`
	TeamBName string `json:"teamBName"`
	Score     Score  `json:"score"`
}

func (MatchEndedData) EventType() EventType { return EventTypeMatchEnded }

func (d MatchEndedData) TeamIDs() []string { return []string{d.TeamAID, d.TeamBID} }

func (d MatchEndedData) Validate() error {
	return validateTeams(d.MatchID, d.TeamAID, d.TeamBID)
}

func (d MatchEndedData) Summary() string {
	return fmt.Sprintf("Full time: %s %d - %d %s", d.TeamAName, d.Score.TeamA, d.Score.TeamB, d.TeamBName)
}

// AlertPublishedData is the data of an alert.published event.
type AlertPublishedData struct {
	AlertID   string        `json:"alertId"`
	ScopeType AlertScope    `json:"scopeType"`
	ScopeID   string        `json:"scopeId,omitempty"`
	Category  AlertCategory `json:"category"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
}

func (AlertPublishedData) EventType() EventType { return EventTypeAlertPublished }

func (d AlertPublishedData) Validate() error {
	if d.AlertID == "" {
		return fmt.Errorf("%w: alertId is required", ErrInvalidPayload)
	}

	switch d.ScopeType {
	case AlertScopeAll:
	case AlertScopeCity, AlertScopeStadium, AlertScopeMatch:
		if d.ScopeID == "" {
			return fmt.Errorf("%w: scopeId is required when scopeType is %s", ErrInvalidPayload, d.ScopeType)
		}
	default:
		return fmt.Errorf("%w: unknown scopeType %q", ErrInvalidPayload, d.ScopeType)
	}

	switch d.Category {
	case AlertCategoryWeather, AlertCategorySecurity, AlertCategoryTraffic, AlertCategoryGeneral:
	default:
		return fmt.Errorf("%w: unknown category %q", ErrInvalidPayload, d.Category)
	}

	switch d.Severity {
	case AlertSeverityInfo, AlertSeverityWarn, AlertSeverityCritical:
	default:
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidPayload, d.Severity)
	}

	if d.Message == "" {
		return fmt.Errorf("%w: message is required", ErrInvalidPayload)
	}

	return nil
}

func (d AlertPublishedData) Summary() string {
	return fmt.Sprintf("[%s] %s alert: %s", d.Severity, d.Category, d.Message)
}

func validateTeams(matchID, teamAID, teamBID string) error {
	if matchID == "" {
		return fmt.Errorf("%w: matchId is required", ErrInvalidPayload)
	}

	if teamAID == "" || teamBID == "" {
		return fmt.Errorf("%w: teamAId and teamBId are required", ErrInvalidPayload)
	}

	if teamAID == teamBID {
		return fmt.Errorf("%w: a team cannot play against itself", ErrInvalidPayload)
	}

	return nil
}
