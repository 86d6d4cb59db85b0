package service

import (
	"context"
	"fmt"

	"github.com/jnst/fan-notification-outbox/internal/model"
	"github.com/jnst/fan-notification-outbox/internal/repository"
)

// MatchServiceImpl implements MatchService. Every write is committed in the
// same transaction as its outbox event.
type MatchServiceImpl struct {
	matchRepo repository.MatchRepository
	outbox    OutboxService
}

// NewMatchServiceImpl creates a new MatchService implementation.
func NewMatchServiceImpl(matchRepo repository.MatchRepository, outbox OutboxService) MatchService {
	return &MatchServiceImpl{
		matchRepo: matchRepo,
		outbox:    outbox,
	}
}

// ScheduleMatch creates a match and publishes match.scheduled.
func (s *MatchServiceImpl) ScheduleMatch(ctx context.Context, params *model.ScheduleMatchParams) (*MatchResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	var match *model.Match

	eventID, err := s.outbox.PublishWithin(ctx, func(ctx context.Context) (*model.Payload, error) {
		teams, err := s.matchRepo.FindTeams(ctx, []string{params.TeamAID, params.TeamBID})
		if err != nil {
			return nil, err
		}

		if len(teams) != 2 {
			return nil, model.ErrTeamNotFound
		}

		id, err := s.matchRepo.CreateMatch(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to create match: %w", err)
		}

		match, err = s.matchRepo.FindMatch(ctx, id)
		if err != nil {
			return nil, err
		}

		return model.NewPayload(model.MatchScheduledData{
			MatchID:     match.ID,
			TeamAID:     match.TeamA.ID,
			TeamAName:   match.TeamA.Name,
			TeamBID:     match.TeamB.ID,
			TeamBName:   match.TeamB.Name,
			KickoffTime: match.KickoffTime.UTC(),
			Stadium:     match.Stadium,
			City:        match.City,
		}), nil
	})
	if err != nil {
		return nil, err
	}

	return &MatchResult{Match: match, EventID: eventID}, nil
}

// GetMatch retrieves a match with its current score.
func (s *MatchServiceImpl) GetMatch(ctx context.Context, id string) (*model.Match, error) {
	return s.matchRepo.FindMatch(ctx, id)
}

// ScoreGoal records a goal and publishes goal.scored with the updated score.
func (s *MatchServiceImpl) ScoreGoal(
	ctx context.Context, matchID string, params *model.ScoreGoalParams,
) (*GoalResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	result := &GoalResult{}

	eventID, err := s.outbox.PublishWithin(ctx, func(ctx context.Context) (*model.Payload, error) {
		match, err := s.openMatch(ctx, matchID)
		if err != nil {
			return nil, err
		}

		if params.TeamID != match.TeamA.ID && params.TeamID != match.TeamB.ID {
			return nil, fmt.Errorf("%w: team is not playing in this match", model.ErrInvalidMatch)
		}

		result.Goal, err = s.matchRepo.CreateGoal(ctx, match.ID, params)
		if err != nil {
			return nil, fmt.Errorf("failed to create goal: %w", err)
		}

		result.Match, err = s.matchRepo.FindMatch(ctx, match.ID)
		if err != nil {
			return nil, err
		}

		return model.NewPayload(model.GoalScoredData{
			MatchID:   match.ID,
			TeamID:    params.TeamID,
			TeamName:  match.TeamName(params.TeamID),
			Minute:    *params.Minute,
			Player:    params.Player,
			Score:     result.Match.Score,
			TeamAID:   match.TeamA.ID,
			TeamBID:   match.TeamB.ID,
			TeamAName: match.TeamA.Name,
			TeamBName: match.TeamB.Name,
		}), nil
	})
	if err != nil {
		return nil, err
	}

	result.EventID = eventID

	return result, nil
}

// EndMatch moves a match to FINISHED and publishes match.ended with the final score.
func (s *MatchServiceImpl) EndMatch(ctx context.Context, matchID string) (*MatchResult, error) {
	var match *model.Match

	eventID, err := s.outbox.PublishWithin(ctx, func(ctx context.Context) (*model.Payload, error) {
		var err error

		match, err = s.openMatch(ctx, matchID)
		if err != nil {
			return nil, err
		}

		if err := s.matchRepo.UpdateMatchStatus(ctx, match.ID, model.MatchStatusFinished); err != nil {
			return nil, err
		}

		match.Status = model.MatchStatusFinished

		return model.NewPayload(model.MatchEndedData{
			MatchID:   match.ID,
			TeamAID:   match.TeamA.ID,
			TeamAName: match.TeamA.Name,
			TeamBID:   match.TeamB.ID,
			TeamBName: match.TeamB.Name,
			Score:     match.Score,
		}), nil
	})
	if err != nil {
		return nil, err
	}

	return &MatchResult{Match: match, EventID: eventID}, nil
}

// PublishAlert records an alert and publishes alert.published.
func (s *MatchServiceImpl) PublishAlert(ctx context.Context, params *model.PublishAlertParams) (*AlertResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	var alert *model.Alert

	eventID, err := s.outbox.PublishWithin(ctx, func(ctx context.Context) (*model.Payload, error) {
		var err error

		alert, err = s.matchRepo.CreateAlert(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to create alert: %w", err)
		}

		return model.NewPayload(model.AlertPublishedData{
			AlertID:   alert.ID,
			ScopeType: alert.ScopeType,
			ScopeID:   alert.ScopeID,
			Category:  alert.Category,
			Severity:  alert.Severity,
			Message:   alert.Message,
		}), nil
	})
	if err != nil {
		return nil, err
	}

	return &AlertResult{Alert: alert, EventID: eventID}, nil
}

// openMatch locks the match and rejects it when it is already over.
func (s *MatchServiceImpl) openMatch(ctx context.Context, matchID string) (*model.Match, error) {
	if err := s.matchRepo.LockMatch(ctx, matchID); err != nil {
		return nil, err
	}

	match, err := s.matchRepo.FindMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if match.Status.IsOver() {
		return nil, fmt.Errorf("%w: match %s is %s", model.ErrMatchClosed, match.ID, match.Status)
	}

	return match, nil
}
