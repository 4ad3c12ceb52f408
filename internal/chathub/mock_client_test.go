package chathub_test

import (
	"sync/atomic"

	"introvert/backend/internal/models"
)

type MockClient struct {
	id     string
	send   chan models.Envelope
	closed atomic.Int32
}

func newMockClient(id string, buffer int) *MockClient {
	return &MockClient{
		id:   id,
		send: make(chan models.Envelope, buffer),
	}
}

func (c *MockClient) ID() string {
	return c.id
}

func (c *MockClient) GetSendChannel() chan<- models.Envelope {
	return c.send
}

func (c *MockClient) Run() {
	// Not needed for testing
}

// Close only counts calls so tests can still read what was queued.
func (c *MockClient) Close() {
	c.closed.Add(1)
}

// drain returns everything queued so far without blocking.
func (c *MockClient) drain() []models.Envelope {
	var out []models.Envelope
	for {
		select {
		case env := <-c.send:
			out = append(out, env)
		default:
			return out
		}
	}
}

func eventNames(envs []models.Envelope) []string {
	names := make([]string, 0, len(envs))
	for _, env := range envs {
		names = append(names, env.Event)
	}
	return names
}
