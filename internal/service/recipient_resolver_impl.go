package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/jnst/fan-notification-outbox/internal/model"
	"github.com/jnst/fan-notification-outbox/internal/repository"
)

// ResolveFunc resolves the recipients of one event type.
type ResolveFunc func(ctx context.Context, data model.EventData) ([]model.Recipient, error)

// RecipientResolverImpl dispatches resolution to a function registered per event type.
type RecipientResolverImpl struct {
	mu        sync.RWMutex
	resolvers map[model.EventType]ResolveFunc
}

// NewRecipientResolverImpl creates a resolver with the default query for every event type.
func NewRecipientResolverImpl(recipients repository.RecipientRepository) *RecipientResolverImpl {
	r := &RecipientResolverImpl{
		resolvers: make(map[model.EventType]ResolveFunc),
	}

	teamFans := resolveTeamFans(recipients)
	r.Register(model.EventTypeMatchScheduled, teamFans)
	r.Register(model.EventTypeGoalScored, teamFans)
	r.Register(model.EventTypeMatchEnded, teamFans)
	r.Register(model.EventTypeAlertPublished, resolveAlertFans(recipients))

	return r
}

// Register sets the resolve function for eventType, replacing any previous one.
func (r *RecipientResolverImpl) Register(eventType model.EventType, fn ResolveFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resolvers[eventType] = fn
}

// Resolve returns the addressable recipients for the event, deduplicated by fan id.
// An empty list is a valid outcome.
func (r *RecipientResolverImpl) Resolve(
	ctx context.Context, eventType model.EventType, data model.EventData,
) ([]model.Recipient, error) {
	r.mu.RLock()
	fn, ok := r.resolvers[eventType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: no recipient resolver for %q", model.ErrUnknownEventType, eventType)
	}

	recipients, err := fn(ctx, data)
	if err != nil {
		return nil, err
	}

	return uniqueAddressable(recipients), nil
}

func resolveTeamFans(recipients repository.RecipientRepository) ResolveFunc {
	return func(ctx context.Context, data model.EventData) ([]model.Recipient, error) {
		scoped, ok := data.(model.TeamScoped)
		if !ok {
			return nil, fmt.Errorf("%w: %T carries no teams", model.ErrInvalidPayload, data)
		}

		teamIDs := make([]string, 0, 2)
		for _, id := range scoped.TeamIDs() {
			if id != "" {
				teamIDs = append(teamIDs, id)
			}
		}

		if len(teamIDs) == 0 {
			return []model.Recipient{}, nil
		}

		return recipients.FindByTeams(ctx, teamIDs)
	}
}

func resolveAlertFans(recipients repository.RecipientRepository) ResolveFunc {
	return func(ctx context.Context, data model.EventData) ([]model.Recipient, error) {
		var alert model.AlertPublishedData

		switch d := data.(type) {
		case *model.AlertPublishedData:
			alert = *d
		case model.AlertPublishedData:
			alert = d
		default:
			return nil, fmt.Errorf("%w: %T is not alert data", model.ErrInvalidPayload, data)
		}

		switch alert.ScopeType {
		case model.AlertScopeAll:
			return recipients.FindAll(ctx)
		case model.AlertScopeCity:
			return recipients.FindByCity(ctx, alert.ScopeID)
		default:
			// Stadium and match scopes have no audience query yet.
			return []model.Recipient{}, nil
		}
	}
}

func uniqueAddressable(recipients []model.Recipient) []model.Recipient {
	seen := make(map[string]struct{}, len(recipients))
	out := make([]model.Recipient, 0, len(recipients))

	for _, recipient := range recipients {
		if !recipient.IsAddressable() {
			continue
		}

		if _, ok := seen[recipient.ID]; ok {
			continue
		}

		seen[recipient.ID] = struct{}{}
		out = append(out, recipient)
	}

	return out
}
