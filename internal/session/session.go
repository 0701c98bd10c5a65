// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session persists the filter set of each dashboard session.
// A session is identified by an opaque id; its state is the ordered
// filter set the user has built so far.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/litcurate/internal/filter"
	"github.com/pdiddy/litcurate/internal/metrics"
	"github.com/pdiddy/litcurate/pkg/types"
)

// ErrUnknownSession is returned by Load for an id that was never saved or
// has expired.
var ErrUnknownSession = errors.New("unknown session")

// DefaultTTL is how long an idle session is kept when no TTL is configured.
const DefaultTTL = 24 * time.Hour

// Store loads and saves filter sets by session id.
type Store interface {
	Load(ctx context.Context, id string) (*filter.Set, error)
	Save(ctx context.Context, id string, set *filter.Set) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id has the shape NewID produces.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Create saves an empty filter set under a new id and returns the id.
func Create(ctx context.Context, s Store) (string, error) {
	id := NewID()
	if err := s.Save(ctx, id, &filter.Set{}); err != nil {
		return "", err
	}
	metrics.SessionsCreated.Inc()
	return id, nil
}

// Open returns the store selected by cfg.
func Open(ctx context.Context, cfg types.SessionConfig, log *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case "", types.SessionMemory:
		return NewMemoryStore(cfg.TTL), nil
	case types.SessionRedis:
		return NewRedisStore(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unsupported session backend %q", cfg.Backend)
	}
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryStore keeps sessions in process memory. Sets are stored in their
// JSON form so callers never share a *filter.Set with the store.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

// NewMemoryStore creates a MemoryStore whose sessions expire after ttl of
// inactivity. A zero ttl means DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*filter.Set, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok || m.now().After(e.expires) {
		delete(m.entries, id)
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	e.expires = m.now().Add(m.ttl)
	m.entries[id] = e

	set := &filter.Set{}
	if err := set.UnmarshalJSON(e.data); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return set, nil
}

func (m *MemoryStore) Save(_ context.Context, id string, set *filter.Set) error {
	data, err := set.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", id, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = memoryEntry{data: data, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	now := m.now()
	for _, e := range m.entries {
		if !now.After(e.expires) {
			n++
		}
	}
	return n
}
