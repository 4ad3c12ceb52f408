package chathub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"introvert/backend/internal/apperr"
	"introvert/backend/internal/config"
	"introvert/backend/internal/models"
	"introvert/backend/internal/observability"
	"introvert/backend/internal/storage"
)

type matchJob struct {
	req    models.MatchRequest
	result chan matchResult
}

type matchResult struct {
	outcome models.MatchOutcome
	err     error
}

// pairMarker remembers who a candidate was just matched with.
type pairMarker struct {
	partnerID string
	at        time.Time
}

// MatcherService pairs users at random. One goroutine (Run) owns the queue;
// every request and inspection is handed to it over a channel, so each
// request runs as if under a global lock.
type MatcherService struct {
	users   storage.UserStore
	rooms   storage.RoomStore
	follows storage.FollowStore
	emitter Emitter
	logger  *slog.Logger

	defaultMaxRetries int

	requests chan matchJob
	ops      chan func()

	// Owned by Run.
	queue      map[string]*models.MatchQueueEntry
	pairedWith map[string]pairMarker
	rand       *rand.Rand
	now        func() time.Time
}

func NewMatcherService(
	users storage.UserStore,
	rooms storage.RoomStore,
	follows storage.FollowStore,
	emitter Emitter,
	defaultMaxRetries int,
	logger *slog.Logger,
) *MatcherService {
	if defaultMaxRetries <= 0 {
		defaultMaxRetries = config.DefaultMaxRetries
	}
	return &MatcherService{
		users:             users,
		rooms:             rooms,
		follows:           follows,
		emitter:           emitter,
		logger:            logger,
		defaultMaxRetries: defaultMaxRetries,
		requests:          make(chan matchJob),
		ops:               make(chan func()),
		queue:             make(map[string]*models.MatchQueueEntry),
		pairedWith:        make(map[string]pairMarker),
		rand:              rand.New(rand.NewSource(time.Now().UnixNano())),
		now:               time.Now,
	}
}

// Run processes match requests until ctx is cancelled.
func (m *MatcherService) Run(ctx context.Context) {
	m.logger.Info("matcher service started")
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("matcher service stopped", "queued", len(m.queue))
			return
		case job := <-m.requests:
			outcome, err := m.handle(job.req)
			job.result <- matchResult{outcome: outcome, err: err}
		case op := <-m.ops:
			op()
		}
	}
}

// RequestMatch runs one matchmaking attempt for req.UserID. ctx bounds only
// the wait; once the matcher picked the request up it runs to completion and
// a match the caller stopped waiting for is pushed to its private channel.
func (m *MatcherService) RequestMatch(ctx context.Context, req models.MatchRequest) (models.MatchOutcome, error) {
	job := matchJob{req: req, result: make(chan matchResult, 1)}

	select {
	case m.requests <- job:
	case <-ctx.Done():
		return models.MatchOutcome{}, ctx.Err()
	}

	select {
	case res := <-job.result:
		return m.finish(req, res)
	case <-ctx.Done():
		go m.deliverAbandoned(req, job.result)
		return models.MatchOutcome{}, ctx.Err()
	}
}

func (m *MatcherService) finish(req models.MatchRequest, res matchResult) (models.MatchOutcome, error) {
	if res.err != nil {
		return res.outcome, res.err
	}
	observability.IncMatchOutcome(string(res.outcome.Status))
	m.publishOutcome(req.UserID, res.outcome)
	return res.outcome, nil
}

// deliverAbandoned waits for a result nobody is waiting on anymore. The
// partner already got match_found, so the requester gets one too.
func (m *MatcherService) deliverAbandoned(req models.MatchRequest, result <-chan matchResult) {
	outcome, err := m.finish(req, <-result)
	if err != nil || outcome.Status != models.MatchStatusMatched {
		return
	}

	delivered := m.emitter.EmitToUser(req.UserID, models.Envelope{
		Event: models.EventMatchFound,
		Data:  models.MatchFoundPayload{RoomID: outcome.RoomID, Partner: *outcome.Candidate},
	})
	m.logger.Warn("match request abandoned after pairing",
		"user_id", req.UserID,
		"partner_id", outcome.Candidate.ID,
		"room_id", outcome.RoomID,
		"delivered", delivered,
	)
}

// CancelMatch drops the user's pending queue entry, reporting whether one
// existed.
func (m *MatcherService) CancelMatch(ctx context.Context, userID string) (bool, error) {
	var removed bool
	err := m.do(ctx, func() {
		_, removed = m.queue[userID]
		delete(m.queue, userID)
	})
	return removed, err
}

// QueueEntry returns a copy of the user's pending entry.
func (m *MatcherService) QueueEntry(ctx context.Context, userID string) (models.MatchQueueEntry, bool, error) {
	var (
		entry models.MatchQueueEntry
		found bool
	)
	err := m.do(ctx, func() {
		if e, ok := m.queue[userID]; ok {
			entry, found = *e, true
		}
	})
	return entry, found, err
}

func (m *MatcherService) QueueLen(ctx context.Context) (int, error) {
	var n int
	err := m.do(ctx, func() { n = len(m.queue) })
	return n, err
}

func (m *MatcherService) do(ctx context.Context, op func()) error {
	done := make(chan struct{})
	wrapped := func() {
		op()
		close(done)
	}

	select {
	case m.ops <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

func (m *MatcherService) handle(req models.MatchRequest) (models.MatchOutcome, error) {
	requester, err := m.users.GetUserByID(req.UserID)
	if err != nil {
		return models.MatchOutcome{}, err
	}

	pref := req.GenderPreference
	if pref == "" {
		pref = models.GenderBoth
	}
	if !pref.ValidPreference() {
		return models.MatchOutcome{}, fmt.Errorf("gender preference %q: %w", pref, apperr.ErrInvalidArgument)
	}
	maxRetries := req.MaxRetries
	if maxRetries <= 0 {
		maxRetries = m.defaultMaxRetries
	}

	entry, ok := m.queue[requester.ID]
	if !ok {
		entry = &models.MatchQueueEntry{UserID: requester.ID, JoinedAt: m.now()}
		m.queue[requester.ID] = entry
	}
	entry.GenderPreference = pref
	entry.MaxRetries = maxRetries
	entry.Retries++

	candidates := eligibleCandidates(requester, pref, m.users.Snapshot())
	if exclude, ok := m.takePairMarker(requester); ok {
		candidates = withoutUser(candidates, exclude)
	}

	if len(candidates) == 0 {
		if entry.Retries < maxRetries {
			return models.MatchOutcome{
				Status:     models.MatchStatusRetrying,
				Retries:    entry.Retries,
				MaxRetries: maxRetries,
			}, nil
		}
		delete(m.queue, requester.ID)
		m.logger.Debug("match attempts exhausted", "user_id", requester.ID, "retries", entry.Retries)
		return models.MatchOutcome{Status: models.MatchStatusExhausted}, nil
	}

	candidate := candidates[m.rand.Intn(len(candidates))]
	roomID := m.rooms.CreateRandomRoom(requester.ID, candidate.ID)
	followID := m.recordOpportunity(requester.ID, candidate.ID)

	delete(m.queue, requester.ID)
	delete(m.queue, candidate.ID)
	m.prunePairMarkers()
	m.pairedWith[candidate.ID] = pairMarker{partnerID: requester.ID, at: m.now()}

	m.emitter.EmitToUser(candidate.ID, models.Envelope{
		Event: models.EventMatchFound,
		Data:  models.MatchFoundPayload{RoomID: roomID, Partner: requester.Public()},
	})

	m.logger.Info("random match",
		"user_id", requester.ID,
		"partner_id", candidate.ID,
		"room_id", roomID,
		"retries", entry.Retries,
	)

	public := candidate.Public()
	return models.MatchOutcome{
		Status:              models.MatchStatusMatched,
		Candidate:           &public,
		RoomID:              roomID,
		FollowOpportunityID: followID,
	}, nil
}

// takePairMarker consumes the requester's marker. A user who was just picked
// as someone else's candidate skips that partner on the request that raced
// with the match. The marker is void once it is older than PairedMarkerTTL
// or the requester's presence changed after the match.
func (m *MatcherService) takePairMarker(requester models.User) (string, bool) {
	marker, ok := m.pairedWith[requester.ID]
	if !ok {
		return "", false
	}
	delete(m.pairedWith, requester.ID)

	if m.now().Sub(marker.at) >= config.PairedMarkerTTL || requester.LastSeen.After(marker.at) {
		return "", false
	}
	return marker.partnerID, true
}

// prunePairMarkers drops markers of candidates that never came back.
func (m *MatcherService) prunePairMarkers() {
	now := m.now()
	for id, marker := range m.pairedWith {
		if now.Sub(marker.at) >= config.PairedMarkerTTL {
			delete(m.pairedWith, id)
		}
	}
}

// recordOpportunity creates the follow record that travels with a match. A
// failure is logged and never undoes the match.
func (m *MatcherService) recordOpportunity(followerID, followingID string) string {
	follow, err := m.follows.CreateFollow(models.Follow{
		FollowerID:      followerID,
		FollowingID:     followingID,
		Status:          models.FollowStatusRandomMatchOpportunity,
		FromRandomMatch: true,
		CreatedAt:       m.now(),
	})
	if err == nil {
		return follow.ID
	}
	if errors.Is(err, apperr.ErrConflict) {
		if existing, findErr := m.follows.FindFollow(followerID, followingID); findErr == nil {
			return existing.ID
		}
	}
	m.logger.Warn("follow opportunity not recorded", "user_id", followerID, "partner_id", followingID, "error", err)
	return ""
}

func (m *MatcherService) publishOutcome(userID string, outcome models.MatchOutcome) {
	payload := map[string]any{"userId": userID, "retries": outcome.Retries}
	if outcome.Candidate != nil {
		payload["partnerId"] = outcome.Candidate.ID
		payload["roomId"] = outcome.RoomID
	}
	event := observability.NewEvent("match", string(outcome.Status), payload)
	if err := observability.PublishEvent(context.Background(), observability.RoutingMatch, event, nil); err != nil {
		m.logger.Debug("match event not published", "user_id", userID, "error", err)
	}
}

// eligibleCandidates filters a user snapshot for the requester. Only the
// requester's own matchGender is consulted; the candidate's preference is
// not checked against the requester.
func eligibleCandidates(requester models.User, pref models.Gender, users []models.User) []models.User {
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.ID == requester.ID || !u.Online || !u.Preferences.AllowRandomMatch {
			continue
		}
		if pref != models.GenderBoth && u.Gender != pref {
			continue
		}
		if requester.Preferences.MatchGender != models.GenderBoth && u.Gender == requester.Gender {
			continue
		}
		out = append(out, u)
	}
	return out
}

func withoutUser(users []models.User, id string) []models.User {
	out := users[:0]
	for _, u := range users {
		if u.ID != id {
			out = append(out, u)
		}
	}
	return out
}
