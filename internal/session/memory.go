package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: map[string][]byte{},
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(id)
}

func (m *MemoryStore) Save(_ context.Context, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.storeLocked(sess)
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(*Session) error) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := m.loadLocked(id)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	if err := m.storeLocked(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Sessions are kept serialized so callers never share cart slices.
func (m *MemoryStore) loadLocked(id string) (*Session, error) {
	payload, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, err
	}
	if sess.Expired(m.now()) {
		delete(m.sessions, id)
		return nil, ErrNotFound
	}
	return &sess, nil
}

func (m *MemoryStore) storeLocked(sess *Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	m.sessions[sess.ID] = payload
	return nil
}
