package session

import "sync"

// Store holds the process-wide credential. Reads and writes are atomic with
// respect to each other: a request that already read the old credential keeps
// using it, and any read starting after a Set observes the new one.
//
// The Refresher is the only writer of renewed credentials; login/bootstrap
// code seeds the initial one.
type Store struct {
	mu   sync.RWMutex
	cred *Credential
}

func NewStore() *Store {
	return &Store{}
}

// Get returns the current credential, or nil when logged out.
func (s *Store) Get() *Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred
}

// Set replaces the stored credential.
func (s *Store) Set(cred *Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = cred
}

// Clear removes the credential entirely, equivalent to logout.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
}
