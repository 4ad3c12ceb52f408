package chathub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"introvert/backend/internal/apperr"
	"introvert/backend/internal/auth"
	"introvert/backend/internal/models"
	"introvert/backend/internal/observability"
	"introvert/backend/internal/storage"
)

// TokenVerifier resolves an identity token to its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Emitter delivers an event to every live connection of a user.
type Emitter interface {
	EmitToUser(userID string, env models.Envelope) int
}

// PrivateChannel is the group key of a user's private channel.
func PrivateChannel(userID string) string {
	return "user_" + userID
}

type connState struct {
	client   Client
	userID   string
	username string
	rooms    map[string]struct{}
}

// Router tracks every open connection, its identity and its group
// subscriptions, and fans events out to them.
//
// Fan-out happens under mu with non-blocking sends, so each connection sees
// a room's events in submission order and a slow reader only loses its own
// copy. Lock order is router, registry, then the stores.
type Router struct {
	mu       sync.Mutex
	conns    map[string]*connState
	rooms    map[string]map[string]*connState
	channels map[string]map[string]*connState

	registry *Registry
	store    storage.RoomStore
	tokens   TokenVerifier
	logger   *slog.Logger
}

var _ Emitter = (*Router)(nil)

func NewRouter(registry *Registry, store storage.RoomStore, tokens TokenVerifier, logger *slog.Logger) *Router {
	return &Router{
		conns:    make(map[string]*connState),
		rooms:    make(map[string]map[string]*connState),
		channels: make(map[string]map[string]*connState),
		registry: registry,
		store:    store,
		tokens:   tokens,
		logger:   logger,
	}
}

// Register adds an unauthenticated connection.
func (r *Router) Register(client Client) {
	r.mu.Lock()
	r.conns[client.ID()] = &connState{client: client, rooms: make(map[string]struct{})}
	r.mu.Unlock()

	observability.IncWSActive()
	r.logger.Debug("connection registered", "conn_id", client.ID())
}

// Dispatch decodes and routes one inbound frame. Malformed, unknown and
// unauthenticated events are dropped; only a failed authentication is
// answered, with auth_error.
func (r *Router) Dispatch(connID string, ev models.InboundEvent) {
	payload, err := ev.Decode()
	if err != nil {
		name := ev.Event
		if errors.Is(err, models.ErrUnknownEvent) {
			name = "unknown"
		}
		observability.IncWSEvent(name, "dropped")
		r.logger.Debug("dropping inbound event", "conn_id", connID, "event", ev.Event, "error", err)
		return
	}

	switch p := payload.(type) {
	case models.Authenticate:
		err = r.Authenticate(connID, p.Token)
	case models.JoinRoom:
		err = r.JoinRoom(connID, p.RoomID)
	case models.LeaveRoom:
		err = r.LeaveRoom(connID, p.RoomID)
	case models.SendMessage:
		_, err = r.SendMessage(connID, p.RoomID, p.Content)
	case models.Typing:
		err = r.Typing(connID, p.RoomID)
	case models.StopTyping:
		err = r.StopTyping(connID, p.RoomID)
	case models.Relay:
		err = r.Relay(connID, p)
	case models.VideoSync:
		err = r.VideoSync(connID, p)
	case models.WatchPartyStart:
		err = r.WatchPartyStart(connID, p)
	}

	if err != nil {
		observability.IncWSEvent(ev.Event, "dropped")
		r.logger.Debug("inbound event not handled", "conn_id", connID, "event", ev.Event, "error", err)
		return
	}
	observability.IncWSEvent(ev.Event, "handled")
}

// Authenticate verifies the token outside any lock, then binds the
// connection to the user and subscribes it to the private channel.
func (r *Router) Authenticate(connID, token string) error {
	claims, err := r.tokens.Verify(token)
	if err != nil {
		r.emitToConn(connID, models.Envelope{Event: models.EventAuthError, Data: models.AuthErrorPayload{Message: "Invalid token"}})
		return err
	}

	r.mu.Lock()
	st, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("connection %s: %w", connID, apperr.ErrNotFound)
	}

	if err := r.registry.Bind(connID, claims.UserID); err != nil {
		r.sendLocked(st, models.Envelope{Event: models.EventAuthError, Data: models.AuthErrorPayload{Message: "Invalid token"}})
		r.mu.Unlock()
		return fmt.Errorf("%w: %w", apperr.ErrUnauthorized, err)
	}

	if st.userID != "" && st.userID != claims.UserID {
		r.leaveGroupLocked(r.channels, PrivateChannel(st.userID), connID)
	}
	st.userID = claims.UserID
	st.username = claims.Username
	r.joinGroupLocked(r.channels, PrivateChannel(st.userID), st)
	r.sendLocked(st, models.Envelope{
		Event: models.EventAuthenticated,
		Data:  models.AuthenticatedPayload{UserID: st.userID, Username: st.username},
	})
	r.mu.Unlock()

	r.logger.Info("connection authenticated", "conn_id", connID, "user_id", claims.UserID)
	r.publishPresence("connected", claims.UserID)
	return nil
}

// JoinRoom subscribes the connection to a room group. The room does not have
// to exist in the store.
func (r *Router) JoinRoom(connID, roomID string) error {
	if roomID == "" {
		return fmt.Errorf("room id is required: %w", apperr.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	st, err := r.authenticatedLocked(connID)
	if err != nil {
		return err
	}
	st.rooms[roomID] = struct{}{}
	r.joinGroupLocked(r.rooms, roomID, st)
	return nil
}

func (r *Router) LeaveRoom(connID, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, err := r.authenticatedLocked(connID)
	if err != nil {
		return err
	}
	delete(st.rooms, roomID)
	r.leaveGroupLocked(r.rooms, roomID, connID)
	return nil
}

// SendMessage stores a message and broadcasts new_message to the whole room,
// the sender's own connection included.
func (r *Router) SendMessage(connID, roomID, content string) (models.Message, error) {
	if roomID == "" || content == "" {
		return models.Message{}, fmt.Errorf("room id and content are required: %w", apperr.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	st, err := r.authenticatedLocked(connID)
	if err != nil {
		return models.Message{}, err
	}

	msg := models.Message{
		ID:             uuid.New().String(),
		RoomID:         roomID,
		SenderID:       st.userID,
		SenderUsername: st.username,
		Content:        content,
		Timestamp:      time.Now(),
	}
	r.store.SaveMessage(msg)
	if err := r.store.AppendMessage(roomID, msg.ID); err != nil {
		r.logger.Debug("message sent to a room outside the store", "room_id", roomID, "error", err)
	}

	r.broadcastLocked(r.rooms[roomID], models.Envelope{Event: models.EventNewMessage, Data: msg}, "")
	return msg, nil
}

func (r *Router) Typing(connID, roomID string) error {
	return r.toOthers(connID, roomID, func(st *connState) models.Envelope {
		return models.Envelope{
			Event: models.EventUserTyping,
			Data:  models.UserTypingPayload{UserID: st.userID, Username: st.username},
		}
	})
}

func (r *Router) StopTyping(connID, roomID string) error {
	return r.toOthers(connID, roomID, func(st *connState) models.Envelope {
		return models.Envelope{
			Event: models.EventUserStopTyping,
			Data:  models.UserStopTypingPayload{UserID: st.userID},
		}
	})
}

// Relay forwards call signaling and canvas events untouched, stamped with
// the sender id.
func (r *Router) Relay(connID string, p models.Relay) error {
	return r.toOthers(connID, p.RoomID, func(st *connState) models.Envelope {
		return models.Envelope{
			Event: p.Event,
			Data:  models.RelayPayload{RoomID: p.RoomID, Payload: p.Payload, UserID: st.userID},
		}
	})
}

// VideoSync relays playback state to the watch party, keyed by party id.
func (r *Router) VideoSync(connID string, p models.VideoSync) error {
	return r.toOthers(connID, p.PartyID, func(st *connState) models.Envelope {
		return models.Envelope{
			Event: models.EventVideoSync,
			Data: models.VideoSyncPayload{
				PartyID:     p.PartyID,
				CurrentTime: p.CurrentTime,
				IsPlaying:   p.IsPlaying,
				UserID:      st.userID,
			},
		}
	})
}

func (r *Router) WatchPartyStart(connID string, p models.WatchPartyStart) error {
	return r.toOthers(connID, p.RoomID, func(st *connState) models.Envelope {
		return models.Envelope{
			Event: models.EventWatchPartyStart,
			Data:  models.WatchPartyStartPayload{RoomID: p.RoomID, VideoID: p.VideoID, UserID: st.userID},
		}
	})
}

func (r *Router) toOthers(connID, roomID string, build func(st *connState) models.Envelope) error {
	if roomID == "" {
		return fmt.Errorf("room id is required: %w", apperr.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	st, err := r.authenticatedLocked(connID)
	if err != nil {
		return err
	}
	r.broadcastLocked(r.rooms[roomID], build(st), connID)
	return nil
}

// EmitToUser pushes env to the user's private channel and returns how many
// connections accepted it. Delivery is best-effort: offline users and full
// buffers simply miss the event.
func (r *Router) EmitToUser(userID string, env models.Envelope) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.broadcastLocked(r.channels[PrivateChannel(userID)], env, "")
}

// Disconnect tears a connection down exactly once; later calls are no-ops.
func (r *Router) Disconnect(connID string) {
	r.mu.Lock()
	st, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.conns, connID)
	for roomID := range st.rooms {
		r.leaveGroupLocked(r.rooms, roomID, connID)
	}
	if st.userID != "" {
		r.leaveGroupLocked(r.channels, PrivateChannel(st.userID), connID)
		r.registry.Unbind(connID)
	}
	r.mu.Unlock()

	st.client.Close()
	observability.DecWSActive()
	r.logger.Debug("connection closed", "conn_id", connID, "user_id", st.userID)
	if st.userID != "" {
		r.publishPresence("disconnected", st.userID)
	}
}

// CloseAll disconnects every connection, used on shutdown.
func (r *Router) CloseAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Disconnect(id)
	}
}

// ConnectionCount counts open connections, authenticated or not.
func (r *Router) ConnectionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func (r *Router) authenticatedLocked(connID string) (*connState, error) {
	st, ok := r.conns[connID]
	if !ok {
		return nil, fmt.Errorf("connection %s: %w", connID, apperr.ErrNotFound)
	}
	if st.userID == "" {
		return nil, fmt.Errorf("connection %s: %w", connID, apperr.ErrUnauthorized)
	}
	return st, nil
}

func (r *Router) emitToConn(connID string, env models.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.conns[connID]; ok {
		r.sendLocked(st, env)
	}
}

func (r *Router) joinGroupLocked(groups map[string]map[string]*connState, key string, st *connState) {
	members, ok := groups[key]
	if !ok {
		members = make(map[string]*connState)
		groups[key] = members
	}
	members[st.client.ID()] = st
}

func (r *Router) leaveGroupLocked(groups map[string]map[string]*connState, key, connID string) {
	members, ok := groups[key]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(groups, key)
	}
}

func (r *Router) broadcastLocked(members map[string]*connState, env models.Envelope, except string) int {
	delivered := 0
	for id, st := range members {
		if id == except {
			continue
		}
		if r.sendLocked(st, env) {
			delivered++
		}
	}
	return delivered
}

func (r *Router) sendLocked(st *connState, env models.Envelope) bool {
	select {
	case st.client.GetSendChannel() <- env:
		return true
	default:
		observability.IncDroppedDelivery(env.Event)
		r.logger.Warn("send buffer full, dropping event", "conn_id", st.client.ID(), "event", env.Event)
		return false
	}
}

func (r *Router) publishPresence(name, userID string) {
	event := observability.NewEvent("presence", name, map[string]string{"userId": userID})
	if err := observability.PublishEvent(context.Background(), observability.RoutingPresence, event, nil); err != nil {
		r.logger.Debug("presence event not published", "user_id", userID, "error", err)
	}
}
