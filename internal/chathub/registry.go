package chathub

import (
	"log/slog"
	"sync"
	"time"
)

// PresenceStore is the part of the user directory the registry drives.
type PresenceStore interface {
	SetPresence(id string, online bool, at time.Time) error
}

// Registry maps connections to users and keeps the users' online flag in
// sync: a user is online while at least one connection is bound.
//
// Lock order is registry, then the user store.
type Registry struct {
	mu     sync.Mutex
	byConn map[string]string
	byUser map[string]map[string]struct{}

	users  PresenceStore
	logger *slog.Logger
	now    func() time.Time
}

func NewRegistry(users PresenceStore, logger *slog.Logger) *Registry {
	return &Registry{
		byConn: make(map[string]string),
		byUser: make(map[string]map[string]struct{}),
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

// Bind associates connID with userID and marks the user online. Binding the
// same pair twice is a no-op; rebinding a connection to another user unbinds
// it from the previous one first. Unknown users are not bound.
func (r *Registry) Bind(connID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, bound := r.byConn[connID]
	if bound && current == userID {
		return nil
	}

	if err := r.users.SetPresence(userID, true, r.now()); err != nil {
		return err
	}
	if bound {
		r.unbindLocked(connID)
	}

	r.byConn[connID] = userID
	conns, ok := r.byUser[userID]
	if !ok {
		conns = make(map[string]struct{})
		r.byUser[userID] = conns
	}
	conns[connID] = struct{}{}
	return nil
}

// Unbind drops connID. When it was the user's last connection the user goes
// offline and LastSeen is stamped. Unknown connection ids are ignored.
func (r *Registry) Unbind(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unbindLocked(connID)
}

func (r *Registry) unbindLocked(connID string) (string, bool) {
	userID, ok := r.byConn[connID]
	if !ok {
		return "", false
	}
	delete(r.byConn, connID)

	conns := r.byUser[userID]
	delete(conns, connID)
	if len(conns) > 0 {
		return userID, true
	}
	delete(r.byUser, userID)

	if err := r.users.SetPresence(userID, false, r.now()); err != nil {
		r.logger.Warn("failed to mark user offline", "user_id", userID, "error", err)
	}
	return userID, true
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser[userID]) > 0
}

func (r *Registry) ConnectionsFor(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.byUser[userID]))
	for connID := range r.byUser[userID] {
		out = append(out, connID)
	}
	return out
}

func (r *Registry) UserFor(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, ok := r.byConn[connID]
	return userID, ok
}

// Count returns the number of bound connections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byConn)
}
