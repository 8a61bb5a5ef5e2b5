package auth

import (
	"context"
	"sync"
	"time"
)

// RevocationStore remembers, per identity-provider uid, the instant up to
// which every session is revoked. Sessions issued in the same millisecond as
// the mark are revoked too.
type RevocationStore interface {
	Revoke(ctx context.Context, uid string, at time.Time, ttl time.Duration) error
	ValidSince(ctx context.Context, uid string) (time.Time, bool, error)
}

type revocation struct {
	validSince time.Time
	expiresAt  time.Time
}

// MemoryRevocationStore keeps revocations in process. Entries expire once no
// session issued before them can still be alive.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]revocation
	now     func() time.Time
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		entries: make(map[string]revocation),
		now:     time.Now,
	}
}

func (m *MemoryRevocationStore) Revoke(_ context.Context, uid string, at time.Time, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[uid]; ok && existing.validSince.After(at) {
		return nil
	}
	m.entries[uid] = revocation{
		validSince: at,
		expiresAt:  at.Add(ttl),
	}
	return nil
}

func (m *MemoryRevocationStore) ValidSince(_ context.Context, uid string) (time.Time, bool, error) {
	m.mu.RLock()
	entry, exists := m.entries[uid]
	m.mu.RUnlock()

	if !exists || m.now().After(entry.expiresAt) {
		return time.Time{}, false, nil
	}
	return entry.validSince, true, nil
}

// StartCleanup drops expired entries every interval until ctx is done.
func (m *MemoryRevocationStore) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.removeExpired()
			}
		}
	}()
}

func (m *MemoryRevocationStore) removeExpired() {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	for uid, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, uid)
		}
	}
}
