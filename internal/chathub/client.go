package chathub

import "introvert/backend/internal/models"

// Client is one live connection, whatever the transport. The router owns
// the lifecycle: it is the only writer to the send channel and the only
// caller of Close.
type Client interface {
	// ID returns the connection id. A user may hold several connections.
	ID() string

	// GetSendChannel returns the buffered channel the router pushes
	// outbound events to. The router never blocks on it.
	GetSendChannel() chan<- models.Envelope

	// Run starts the read and write pumps.
	Run()
	// Close releases the send channel; the write pump then closes the socket.
	Close()
}
