package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jnst/fan-notification-outbox/internal/model"
	"github.com/jnst/fan-notification-outbox/internal/repository"
)

type storedEvent struct {
	id          string
	eventType   model.EventType
	payload     []byte
	status      model.EventStatus
	createdAt   time.Time
	processedAt *time.Time
}

// memoryEventRepository is an in-memory EventRepository with the same lifecycle guards as the SQL store.
type memoryEventRepository struct {
	mu        sync.Mutex
	events    map[string]*storedEvent
	createErr error
	now       func() time.Time
}

func newMemoryEventRepository() *memoryEventRepository {
	return &memoryEventRepository{
		events: make(map[string]*storedEvent),
		now:    time.Now,
	}
}

func (r *memoryEventRepository) Create(_ context.Context, params *model.CreateEventParams) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return "", model.NewPersistenceError("create outbox event", r.createErr)
	}

	id := params.ID
	if id == "" {
		id = uuid.NewString()
	}

	r.events[id] = &storedEvent{
		id:        id,
		eventType: params.Type,
		payload:   append([]byte(nil), params.Payload...),
		status:    model.StatusNew,
		createdAt: r.now(),
	}

	return id, nil
}

func (r *memoryEventRepository) UpdateStatus(_ context.Context, id string, status model.EventStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return model.ErrEventNotFound
	}

	if !event.status.CanTransitionTo(status) {
		return model.ErrInvalidTransition
	}

	event.status = status

	if status == model.StatusProcessed && event.processedAt == nil {
		now := r.now()
		event.processedAt = &now
	}

	return nil
}

func (r *memoryEventRepository) FindByID(_ context.Context, id string) (*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return nil, nil //nolint:nilnil // mirrors the SQL store
	}

	return event.toModel()
}

func (r *memoryEventRepository) ListPending(_ context.Context, maxAgeHours int) ([]*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-time.Duration(maxAgeHours) * time.Hour)

	stored := make([]*storedEvent, 0)
	for _, event := range r.events {
		if event.status.IsPending() && event.createdAt.After(cutoff) {
			stored = append(stored, event)
		}
	}

	sort.Slice(stored, func(i, j int) bool { return stored[i].createdAt.Before(stored[j].createdAt) })

	events := make([]*model.Event, 0, len(stored))
	for _, event := range stored {
		e, err := event.toModel()
		if err != nil {
			return nil, err
		}

		events = append(events, e)
	}

	return events, nil
}

func (r *memoryEventRepository) status(id string) model.EventStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event, ok := r.events[id]; ok {
		return event.status
	}

	return ""
}

func (r *memoryEventRepository) rawPayload(id string) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.events[id].payload
}

func (r *memoryEventRepository) setCreatedAt(id string, createdAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[id].createdAt = createdAt
}

func (r *memoryEventRepository) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.events)
}

func (e *storedEvent) toModel() (*model.Event, error) {
	payload, err := model.DecodePayload(e.payload)
	if err != nil {
		return nil, err
	}

	return &model.Event{
		ID:          e.id,
		Type:        e.eventType,
		Payload:     payload,
		Status:      e.status,
		CreatedAt:   e.createdAt,
		ProcessedAt: e.processedAt,
	}, nil
}

// memoryRecipientRepository answers recipient queries from fixed subscriptions.
type memoryRecipientRepository struct {
	fans        []model.Recipient
	teamFans    map[string][]string
	cityTeams   map[string][]string
	findTeamErr error
}

func (r *memoryRecipientRepository) FindByTeams(_ context.Context, teamIDs []string) ([]model.Recipient, error) {
	if r.findTeamErr != nil {
		return nil, r.findTeamErr
	}

	// The SQL store returns DISTINCT rows; the fake deliberately repeats fans per team
	// so that deduplication in the resolver is exercised.
	out := make([]model.Recipient, 0)
	for _, teamID := range teamIDs {
		for _, fanID := range r.teamFans[teamID] {
			out = append(out, r.fan(fanID))
		}
	}

	return out, nil
}

func (r *memoryRecipientRepository) FindAll(_ context.Context) ([]model.Recipient, error) {
	return append([]model.Recipient(nil), r.fans...), nil
}

func (r *memoryRecipientRepository) FindByCity(ctx context.Context, city string) ([]model.Recipient, error) {
	return r.FindByTeams(ctx, r.cityTeams[city])
}

func (r *memoryRecipientRepository) fan(id string) model.Recipient {
	for _, fan := range r.fans {
		if fan.ID == id {
			return fan
		}
	}

	return model.Recipient{ID: id}
}

// recordingTransport records every notification and returns err.
type recordingTransport struct {
	mu      sync.Mutex
	sent    []*model.Notification
	err     error
	release chan struct{}
	panics  bool
}

func (*recordingTransport) Name() string { return "recording" }

func (t *recordingTransport) Send(_ context.Context, notification *model.Notification) error {
	if t.release != nil {
		<-t.release
	}

	if t.panics {
		panic("transport exploded")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.sent = append(t.sent, notification)

	return t.err
}

func (t *recordingTransport) calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.sent)
}

func (t *recordingTransport) last() *model.Notification {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.sent) == 0 {
		return nil
	}

	return t.sent[len(t.sent)-1]
}

// fakeTx stands in for an open pgx transaction; the memory repositories ignore it.
type fakeTx struct {
	pgx.Tx
}

// fakeTransactionManager carries a fakeTx and commit hooks into fn, running
// the hooks only when fn succeeds.
type fakeTransactionManager struct {
	commits   int
	rollbacks int
}

func (m *fakeTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	hooks := &repository.CommitHooks{}
	txCtx := repository.ContextWithCommitHooks(repository.ContextWithTx(ctx, fakeTx{}), hooks)

	if err := fn(txCtx); err != nil {
		m.rollbacks++
		return err
	}

	m.commits++
	hooks.Run()

	return nil
}

// memoryMatchRepository keeps matches, goals and alerts in maps. Writes made
// inside a rolled back transaction are not undone, so tests assert on the
// transaction manager counters instead.
type memoryMatchRepository struct {
	mu      sync.Mutex
	teams   map[string]model.Team
	matches map[string]*model.Match
	goals   []*model.Goal
	alerts  []*model.Alert
	locks   int
	err     error
}

func newMemoryMatchRepository(teams ...model.Team) *memoryMatchRepository {
	r := &memoryMatchRepository{
		teams:   make(map[string]model.Team, len(teams)),
		matches: make(map[string]*model.Match),
	}

	for _, team := range teams {
		r.teams[team.ID] = team
	}

	return r
}

func (r *memoryMatchRepository) FindTeams(_ context.Context, ids []string) ([]model.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	teams := []model.Team{}

	for _, id := range ids {
		if team, ok := r.teams[id]; ok {
			teams = append(teams, team)
		}
	}

	return teams, nil
}

func (r *memoryMatchRepository) CreateMatch(_ context.Context, params *model.ScheduleMatchParams) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return "", r.err
	}

	id := uuid.NewString()
	r.matches[id] = &model.Match{
		ID:          id,
		TeamA:       r.teams[params.TeamAID],
		TeamB:       r.teams[params.TeamBID],
		Stadium:     params.Stadium,
		City:        params.City,
		KickoffTime: params.KickoffTime,
		Status:      model.MatchStatusScheduled,
	}

	return id, nil
}

func (r *memoryMatchRepository) FindMatch(_ context.Context, id string) (*model.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	match, ok := r.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}

	found := *match

	return &found, nil
}

func (r *memoryMatchRepository) LockMatch(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.matches[id]; !ok {
		return model.ErrMatchNotFound
	}

	r.locks++

	return nil
}

func (r *memoryMatchRepository) UpdateMatchStatus(_ context.Context, id string, status model.MatchStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	match, ok := r.matches[id]
	if !ok {
		return model.ErrMatchNotFound
	}

	match.Status = status

	return nil
}

func (r *memoryMatchRepository) CreateGoal(
	_ context.Context, matchID string, params *model.ScoreGoalParams,
) (*model.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}

	match := r.matches[matchID]
	if params.TeamID == match.TeamA.ID {
		match.Score.TeamA++
	} else {
		match.Score.TeamB++
	}

	goal := &model.Goal{
		ID:        uuid.NewString(),
		MatchID:   matchID,
		TeamID:    params.TeamID,
		Minute:    *params.Minute,
		Player:    params.Player,
		CreatedAt: time.Now(),
	}
	r.goals = append(r.goals, goal)

	return goal, nil
}

func (r *memoryMatchRepository) CreateAlert(_ context.Context, params *model.PublishAlertParams) (*model.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}

	alert := &model.Alert{
		ID:        uuid.NewString(),
		ScopeType: params.ScopeType,
		ScopeID:   params.ScopeID,
		Category:  params.Category,
		Severity:  params.Severity,
		Message:   params.Message,
		CreatedAt: time.Now(),
	}
	r.alerts = append(r.alerts, alert)

	return alert, nil
}

func (r *memoryMatchRepository) addMatch(match *model.Match) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.matches[match.ID] = match
}

// txObservingEvents records whether status updates ran inside a transaction.
type txObservingEvents struct {
	*memoryEventRepository

	mu           sync.Mutex
	updatesInTx  int
	updatesTotal int
}

func (r *txObservingEvents) UpdateStatus(ctx context.Context, id string, status model.EventStatus) error {
	_, inTx := repository.TxFromContext(ctx)

	r.mu.Lock()
	r.updatesTotal++
	if inTx {
		r.updatesInTx++
	}
	r.mu.Unlock()

	return r.memoryEventRepository.UpdateStatus(ctx, id, status)
}

func (r *txObservingEvents) counts() (inTx, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.updatesInTx, r.updatesTotal
}
