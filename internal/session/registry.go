// Package session maps channel user ids to NLU session ids.
package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/wolfman30/messenger-booking-relay/pkg/logging"
)

// Registry resolves the NLU session for a user, creating one on first
// contact.
type Registry struct {
	store  Store
	newID  func() string
	logger *logging.Logger
}

// NewRegistry creates a Registry over store.
func NewRegistry(store Store, logger *logging.Logger) *Registry {
	if store == nil {
		store = NewMemoryStore(0)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{store: store, newID: newTimeOrderedID, logger: logger}
}

// Resolve returns the user's session id. It never fails: if the store is
// unreachable a fresh id is used for this turn and the error is logged.
func (r *Registry) Resolve(ctx context.Context, userID string) string {
	id, ok, err := r.store.Get(ctx, userID)
	if err != nil {
		r.logger.Warn("session: lookup failed", "user_id", userID, "error", err)
	}
	if ok && id != "" {
		return id
	}

	fresh := r.newID()
	stored, err := r.store.Put(ctx, userID, fresh)
	if err != nil {
		r.logger.Warn("session: store failed, using unsaved session", "user_id", userID, "error", err)
		return fresh
	}
	if stored == fresh {
		r.logger.Debug("session: created", "user_id", userID, "session_id", fresh)
	}
	return stored
}

// newTimeOrderedID returns a version 1 UUID, falling back to a random one
// if the clock sequence cannot be read.
func newTimeOrderedID() string {
	id, err := uuid.NewUUID()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
