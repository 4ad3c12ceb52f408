package chathub_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"introvert/backend/internal/apperr"
	"introvert/backend/internal/auth"
	"introvert/backend/internal/chathub"
	"introvert/backend/internal/models"
	"introvert/backend/internal/storage"
)

type routerFixture struct {
	store    *storage.Memory
	registry *chathub.Registry
	router   *chathub.Router
	tokens   *MockTokenVerifier
}

func newRouterFixture() *routerFixture {
	store := storage.NewMemoryStorage()
	registry := chathub.NewRegistry(store, testLogger())
	tokens := new(MockTokenVerifier)
	return &routerFixture{
		store:    store,
		registry: registry,
		router:   chathub.NewRouter(registry, store, tokens, testLogger()),
		tokens:   tokens,
	}
}

func (f *routerFixture) addUser(t *testing.T, username string, gender models.Gender) models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Gender: gender, Preferences: models.DefaultPreferences()}
	require.NoError(t, f.store.CreateUser(u))
	return *u
}

// connect registers and authenticates a connection for user, discarding the ack.
func (f *routerFixture) connect(t *testing.T, connID string, user models.User) *MockClient {
	t.Helper()
	client := newMockClient(connID, 16)
	f.router.Register(client)

	token := "token-" + user.ID
	f.tokens.On("Verify", token).Return(&auth.Claims{UserID: user.ID, Username: user.Username}, nil)
	require.NoError(t, f.router.Authenticate(connID, token))
	client.drain()
	return client
}

func inbound(t *testing.T, event string, data any) models.InboundEvent {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return models.InboundEvent{Event: event, Data: raw}
}

// TestAuthenticateBindsAndAcknowledges covers the happy authentication path.
func TestAuthenticateBindsAndAcknowledges(t *testing.T) {
	// Arrange
	f := newRouterFixture()
	alice := f.addUser(t, "alice", models.GenderFemale)
	client := newMockClient("conn_1", 4)
	f.router.Register(client)
	f.tokens.On("Verify", "good").Return(&auth.Claims{UserID: alice.ID, Username: "alice"}, nil)

	// Act
	f.router.Dispatch("conn_1", inbound(t, models.EventAuthenticate, "good"))

	// Assert
	events := client.drain()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventAuthenticated, events[0].Event)
	assert.Equal(t, models.AuthenticatedPayload{UserID: alice.ID, Username: "alice"}, events[0].Data)
	assert.True(t, f.registry.IsOnline(alice.ID))
	stored, _ := f.store.GetUserByID(alice.ID)
	assert.True(t, stored.Online)
}

// TestAuthenticateFailureEmitsAuthError leaves the connection unauthenticated.
func TestAuthenticateFailureEmitsAuthError(t *testing.T) {
	// Arrange
	f := newRouterFixture()
	client := newMockClient("conn_1", 4)
	f.router.Register(client)
	f.tokens.On("Verify", "forged").Return(nil, apperr.ErrUnauthorized)

	// Act
	err := f.router.Authenticate("conn_1", "forged")
	joinErr := f.router.JoinRoom("conn_1", "room_1")

	// Assert
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.ErrorIs(t, joinErr, apperr.ErrUnauthorized)
	events := client.drain()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventAuthError, events[0].Event)
	assert.Equal(t, models.AuthErrorPayload{Message: "Invalid token"}, events[0].Data)
	assert.Equal(t, 0, f.registry.Count())
}

// TestAuthenticateUnknownUser rejects a valid token for a user that no longer exists.
func TestAuthenticateUnknownUser(t *testing.T) {
	f := newRouterFixture()
	client := newMockClient("conn_1", 4)
	f.router.Register(client)
	f.tokens.On("Verify", "stale").Return(&auth.Claims{UserID: "ghost"}, nil)

	err := f.router.Authenticate("conn_1", "stale")

	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Equal(t, []string{models.EventAuthError}, eventNames(client.drain()))
}

// TestUnauthenticatedEventsAreDropped ensures nothing is stored or broadcast.
func TestUnauthenticatedEventsAreDropped(t *testing.T) {
	// Arrange
	f := newRouterFixture()
	bob := f.addUser(t, "bob", models.GenderMale)
	listener := f.connect(t, "conn_bob", bob)
	roomID := f.store.CreateRandomRoom(bob.ID, "someone")
	require.NoError(t, f.router.JoinRoom("conn_bob", roomID))
	anon := newMockClient("conn_anon", 4)
	f.router.Register(anon)

	// Act
	f.router.Dispatch("conn_anon", inbound(t, models.EventJoinRoom, roomID))
	f.router.Dispatch("conn_anon", inbound(t, models.EventSendMessage, models.SendMessage{RoomID: roomID, Content: "hi"}))
	f.router.Dispatch("conn_anon", inbound(t, models.EventTyping, models.Typing{RoomID: roomID}))

	// Assert
	assert.Empty(t, anon.drain())
	assert.Empty(t, listener.drain())
	history, err := f.store.RoomMessages(roomID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

// TestSendMessageReachesWholeRoomIncludingSender checks room-wide broadcast.
func TestSendMessageReachesWholeRoomIncludingSender(t *testing.T) {
	// Arrange
	f := newRouterFixture()
	alice := f.addUser(t, "alice", models.GenderFemale)
	bob := f.addUser(t, "bob", models.GenderMale)
	carol := f.addUser(t, "carol", models.GenderFemale)
	a := f.connect(t, "conn_a", alice)
	b := f.connect(t, "conn_b", bob)
	c := f.connect(t, "conn_c", carol)
	roomID := f.store.CreateRandomRoom(alice.ID, bob.ID)
	require.NoError(t, f.router.JoinRoom("conn_a", roomID))
	require.NoError(t, f.router.JoinRoom("conn_b", roomID))

	// Act
	f.router.Dispatch("conn_a", inbound(t, models.EventSendMessage, models.SendMessage{RoomID: roomID, Content: "hello"}))

	// Assert
	for _, client := range []*MockClient{a, b} {
		events := client.drain()
		require.Len(t, events, 1)
		assert.Equal(t, models.EventNewMessage, events[0].Event)
		msg := events[0].Data.(models.Message)
		assert.Equal(t, "hello", msg.Content)
		assert.Equal(t, alice.ID, msg.SenderID)
		assert.Equal(t, "alice", msg.SenderUsername)
	}
	assert.Empty(t, c.drain())

	history, err := f.store.RoomMessages(roomID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Content)
}

func TestSendMessageIgnoresEmptyContent(t *testing.T) {
	f := newRouterFixture()
	alice := f.addUser(t, "alice", models.GenderFemale)
	a := f.connect(t, "conn_a", alice)
	require.NoError(t, f.router.JoinRoom("conn_a", "room_1"))

	_, err := f.router.SendMessage("conn_a", "room_1", "")

	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	assert.Empty(t, a.drain())
}

// TestSendMessageKeepsWhitespaceContent only treats absent content as empty.
func TestSendMessageKeepsWhitespaceContent(t *testing.T) {
	f := newRouterFixture()
	alice := f.addUser(t, "alice", models.GenderFemale)
	a := f.connect(t, "conn_a", alice)
	require.NoError(t, f.router.JoinRoom("conn_a", "room_1"))

	msg, err := f.router.SendMessage("conn_a", "room_1", "   ")

	require.NoError(t, err)
	assert.Equal(t, "   ", msg.Content)
	assert.Equal(t, []string{models.EventNewMessage}, eventNames(a.drain()))
}

// TestSendMessageToUnknownRoomStillBroadcasts covers the unvalidated join pass-through.
func TestSendMessageToUnknownRoomStillBroadcasts(t *testing.T) {
	f := newRouterFixture()
	alice := f.addUser(t, "alice", models.GenderFemale)
	a := f.connect(t, "conn_a", alice)
	require.NoError(t, f.router.JoinRoom("conn_a", "adhoc"))

	msg, err := f.router.SendMessage("conn_a", "adhoc", "anyone?")

	require.NoError(t, err)
	assert.Equal(t, []string{models.EventNewMessage}, eventNames(a.drain()))
	stored, err := f.store.GetMessage(msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "anyone?", stored.Content)
}

// TestTypingExcludesSender verifies typing indicators go to others only.
func TestTypingExcludesSender(t *testing.T) {
	// Arrange
	f := newRouterFixture()
	alice := f.addUser(t, "alice", models.GenderFemale)
	bob := f.addUser(t, "bob", models.GenderMale)
	a := f.connect(t, "conn_a", alice)
	b := f.connect(t, "conn_b", bob)
	require.NoError(t, f.router.JoinRoom("conn_a", "room_1"))
	require.NoError(t, f.router.JoinRoom("conn_b", "room_1"))

	// Act
	f.router.Dispatch("conn_a", inbound(t, models.EventTyping, models.Typing{RoomID: "room_1"}))
	f.router.Dispatch("conn_a", inbound(t, models.EventStopTyping, models.StopTyping{RoomID: "room_1"}))

	// Assert
	assert.Empty(t, a.drain())
	events := b.drain()
	require.Len(t, events, 2)
	assert.Equal(t, models.UserTypingPayload{UserID: alice.ID, Username: "alice"}, events[0].Data)
	assert.Equal(t, models.UserStopTypingPayload{UserID: alice.ID}, events[1].Data)
}

// TestRelayEventsCarrySenderAndPayload covers call signaling, canvas and watch party relays.
func TestRelayEventsCarrySenderAndPayload(t *testing.T) {
	// Arrange
	f := newRouterFixture()
	alice := f.addUser(t, "alice", models.GenderFemale)
	bob := f.addUser(t, "bob", models.GenderMale)
	a := f.connect(t, "conn_a", alice)
	b := f.connect(t, "conn_b", bob)
	for _, conn := range []string{"conn_a", "conn_b"} {
		require.NoError(t, f.router.JoinRoom(conn, "room_1"))
	}
	offer := json.RawMessage(`{"sdp":"v=0"}`)

	// Act
	f.router.Dispatch("conn_a", inbound(t, models.EventCallOffer, map[string]any{"roomId": "room_1", "payload": offer}))
	f.router.Dispatch("conn_a", inbound(t, models.EventCanvasClear, map[string]any{"roomId": "room_1"}))
	f.router.Dispatch("conn_a", inbound(t, models.EventVideoSync, models.VideoSync{PartyID: "room_1", CurrentTime: 12.5, IsPlaying: true}))
	f.router.Dispatch("conn_a", inbound(t, models.EventWatchPartyStart, models.WatchPartyStart{RoomID: "room_1", VideoID: "vid"}))

	// Assert
	assert.Empty(t, a.drain())
	events := b.drain()
	require.Len(t, events, 4)
	assert.Equal(t, []string{models.EventCallOffer, models.EventCanvasClear, models.EventVideoSync, models.EventWatchPartyStart}, eventNames(events))

	relay := events[0].Data.(models.RelayPayload)
	assert.Equal(t, alice.ID, relay.UserID)
	assert.JSONEq(t, `{"sdp":"v=0"}`, string(relay.Payload))
	assert.Equal(t, models.VideoSyncPayload{PartyID: "room_1", CurrentTime: 12.5, IsPlaying: true, UserID: alice.ID}, events[2].Data)
	assert.Equal(t, models.WatchPartyStartPayload{RoomID: "room_1", VideoID: "vid", UserID: alice.ID}, events[3].Data)
}

// TestLeaveRoomStopsDelivery checks unsubscription.
func TestLeaveRoomStopsDelivery(t *testing.T) {
	f := newRouterFixture()
	alice := f.addUser(t, "alice", models.GenderFemale)
	bob := f.addUser(t, "bob", models.GenderMale)
	f.connect(t, "conn_a", alice)
	b := f.connect(t, "conn_b", bob)
	require.NoError(t, f.router.JoinRoom("conn_a", "room_1"))
	require.NoError(t, f.router.JoinRoom("conn_b", "room_1"))

	f.router.Dispatch("conn_b", inbound(t, models.EventLeaveRoom, "room_1"))
	_, err := f.router.SendMessage("conn_a", "room_1", "still there?")

	require.NoError(t, err)
	assert.Empty(t, b.drain())
}

// TestDisconnectIsIdempotent ensures a second disconnect is a no-op.
func TestDisconnectIsIdempotent(t *testing.T) {
	// Arrange
	f := newRouterFixture()
	alice := f.addUser(t, "alice", models.GenderFemale)
	a := f.connect(t, "conn_a", alice)
	require.NoError(t, f.router.JoinRoom("conn_a", "room_1"))

	// Act
	f.router.Disconnect("conn_a")
	f.router.Disconnect("conn_a")

	// Assert
	assert.Equal(t, int32(1), a.closed.Load())
	assert.False(t, f.registry.IsOnline(alice.ID))
	stored, _ := f.store.GetUserByID(alice.ID)
	assert.False(t, stored.Online)
	assert.False(t, stored.LastSeen.IsZero())
	assert.Equal(t, 0, f.router.ConnectionCount())
	assert.Equal(t, 0, f.router.EmitToUser(alice.ID, models.Envelope{Event: "ping"}))
}

// TestSecondConnectionKeepsUserOnline verifies multi-device presence.
func TestSecondConnectionKeepsUserOnline(t *testing.T) {
	f := newRouterFixture()
	alice := f.addUser(t, "alice", models.GenderFemale)
	f.connect(t, "phone", alice)
	laptop := f.connect(t, "laptop", alice)

	f.router.Disconnect("phone")

	assert.True(t, f.registry.IsOnline(alice.ID))
	assert.Equal(t, 1, f.router.EmitToUser(alice.ID, models.Envelope{Event: models.EventNewNotification}))
	assert.Equal(t, []string{models.EventNewNotification}, eventNames(laptop.drain()))
}

// TestFullBufferDropsOnlyForSlowConnection keeps fan-out non-blocking.
func TestFullBufferDropsOnlyForSlowConnection(t *testing.T) {
	// Arrange
	f := newRouterFixture()
	alice := f.addUser(t, "alice", models.GenderFemale)
	bob := f.addUser(t, "bob", models.GenderMale)
	fast := f.connect(t, "conn_fast", alice)

	slow := newMockClient("conn_slow", 1)
	f.router.Register(slow)
	f.tokens.On("Verify", "bob-token").Return(&auth.Claims{UserID: bob.ID, Username: "bob"}, nil)
	require.NoError(t, f.router.Authenticate("conn_slow", "bob-token")) // ack fills the buffer

	require.NoError(t, f.router.JoinRoom("conn_fast", "room_1"))
	require.NoError(t, f.router.JoinRoom("conn_slow", "room_1"))

	// Act
	_, err := f.router.SendMessage("conn_fast", "room_1", "one")
	require.NoError(t, err)

	// Assert
	assert.Len(t, fast.drain(), 1)
	assert.Equal(t, []string{models.EventAuthenticated}, eventNames(slow.drain()))
}

func TestDispatchDropsMalformedAndUnknownEvents(t *testing.T) {
	f := newRouterFixture()
	alice := f.addUser(t, "alice", models.GenderFemale)
	a := f.connect(t, "conn_a", alice)

	assert.NotPanics(t, func() {
		f.router.Dispatch("conn_a", models.InboundEvent{Event: "dance"})
		f.router.Dispatch("conn_a", models.InboundEvent{Event: models.EventSendMessage, Data: json.RawMessage(`"oops"`)})
		f.router.Dispatch("missing", inbound(t, models.EventJoinRoom, "room_1"))
	})
	assert.Empty(t, a.drain())
}

// TestCloseAllDisconnectsEveryone is used on shutdown.
func TestCloseAllDisconnectsEveryone(t *testing.T) {
	f := newRouterFixture()
	alice := f.addUser(t, "alice", models.GenderFemale)
	a := f.connect(t, "conn_a", alice)
	anon := newMockClient("conn_anon", 1)
	f.router.Register(anon)

	f.router.CloseAll()

	assert.Equal(t, 0, f.router.ConnectionCount())
	assert.Equal(t, int32(1), a.closed.Load())
	assert.Equal(t, int32(1), anon.closed.Load())
	assert.False(t, f.registry.IsOnline(alice.ID))
}
