package session

import (
	"context"
	"sync"
	"time"
)

// Store persists the user id -> NLU session id mapping. Put is insert-only:
// when a value already exists it is kept and returned.
type Store interface {
	Get(ctx context.Context, userID string) (string, bool, error)
	Put(ctx context.Context, userID, sessionID string) (string, error)
}

// MemoryStore is a process-local Store. With a positive TTL, entries idle
// for longer than ttl are evicted by a background janitor.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	ttl     time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type memoryEntry struct {
	sessionID string
	lastSeen  time.Time
}

// NewMemoryStore creates a MemoryStore. ttl <= 0 disables eviction.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if ttl > 0 {
		go s.janitor(janitorInterval(ttl))
	}
	return s
}

func janitorInterval(ttl time.Duration) time.Duration {
	interval := ttl / 2
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

// Get returns the session id for userID and refreshes its idle timer.
func (s *MemoryStore) Get(_ context.Context, userID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		return "", false, nil
	}
	now := s.now()
	if s.expired(e, now) {
		delete(s.entries, userID)
		return "", false, nil
	}
	e.lastSeen = now
	return e.sessionID, true, nil
}

// Put stores sessionID unless userID already has a live session.
func (s *MemoryStore) Put(_ context.Context, userID, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[userID]; ok && !s.expired(e, now) {
		e.lastSeen = now
		return e.sessionID, nil
	}
	s.entries[userID] = &memoryEntry{sessionID: sessionID, lastSeen: now}
	return sessionID, nil
}

// Len reports the number of stored sessions, including expired ones the
// janitor has not swept yet.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes expired entries and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for userID, e := range s.entries {
		if s.expired(e, now) {
			delete(s.entries, userID)
			removed++
		}
	}
	return removed
}

// Close stops the janitor.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) expired(e *memoryEntry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.lastSeen) > s.ttl
}

func (s *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stop:
			return
		}
	}
}
