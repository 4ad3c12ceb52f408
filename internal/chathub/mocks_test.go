package chathub_test

import (
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"introvert/backend/internal/auth"
	"introvert/backend/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockTokenVerifier struct {
	mock.Mock
}

func (m *MockTokenVerifier) Verify(token string) (*auth.Claims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Claims), args.Error(1)
}

type MockPresenceStore struct {
	mock.Mock
}

func (m *MockPresenceStore) SetPresence(id string, online bool, at time.Time) error {
	args := m.Called(id, online, at)
	return args.Error(0)
}

type MockEmitter struct {
	mock.Mock
}

func (m *MockEmitter) EmitToUser(userID string, env models.Envelope) int {
	args := m.Called(userID, env)
	return args.Int(0)
}

// emitted returns the envelopes sent to userID with the given event name.
func (m *MockEmitter) emitted(userID, event string) []models.Envelope {
	var out []models.Envelope
	for _, call := range m.Calls {
		if call.Method != "EmitToUser" || call.Arguments.String(0) != userID {
			continue
		}
		if env := call.Arguments.Get(1).(models.Envelope); env.Event == event {
			out = append(out, env)
		}
	}
	return out
}
