// Package credential holds the API key the UI works with. The core never reads
// it directly; handlers resolve a domain.Credential per request.
package credential

import (
	"strings"
	"sync"

	"github.com/davidbz/venicedesk/internal/domain"
)

// MemoryStore keeps a single credential in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	cred domain.Credential
}

// NewMemoryStore creates a store seeded with initial, which may be empty.
func NewMemoryStore(initial string) *MemoryStore {
	return &MemoryStore{cred: domain.Credential(strings.TrimSpace(initial))}
}

// Get returns the stored credential, if any.
func (s *MemoryStore) Get() (domain.Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cred, !s.cred.IsZero()
}

// Set replaces the stored credential. Surrounding whitespace is dropped.
func (s *MemoryStore) Set(cred domain.Credential) {
	s.mu.Lock()
	s.cred = domain.Credential(strings.TrimSpace(string(cred)))
	s.mu.Unlock()
}

// Clear forgets the stored credential.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	s.cred = ""
	s.mu.Unlock()
}

var _ domain.CredentialStore = (*MemoryStore)(nil)
