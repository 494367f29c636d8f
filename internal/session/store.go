package session

import "sync"

// Credentials identify the account that owns the socket.
type Credentials struct {
	AccountID string
	Token     string
}

// Valid reports whether the credentials are complete enough to connect with.
func (c Credentials) Valid() bool {
	return c.AccountID != "" && c.Token != ""
}

// Store holds the current credentials and notifies watchers on change.
// Watchers fire on every Set and Clear, including a Set to the same value,
// because callers treat credential updates as edge-triggered connect signals.
type Store struct {
	mu       sync.Mutex
	creds    Credentials
	nextID   uint64
	watchers map[uint64]func(Credentials)
}

func NewStore() *Store {
	return &Store{watchers: make(map[uint64]func(Credentials))}
}

// Credentials returns the current credentials and whether they are usable.
func (s *Store) Credentials() (Credentials, bool) {
	s.mu.Lock()
	creds := s.creds
	s.mu.Unlock()
	return creds, creds.Valid()
}

// Set replaces the current credentials and notifies watchers.
func (s *Store) Set(creds Credentials) {
	s.mu.Lock()
	s.creds = creds
	watchers := make([]func(Credentials), 0, len(s.watchers))
	for _, fn := range s.watchers {
		watchers = append(watchers, fn)
	}
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(creds)
	}
}

// Clear drops the current credentials and notifies watchers.
func (s *Store) Clear() {
	s.Set(Credentials{})
}

// Watch registers fn for credential changes and returns its remover.
func (s *Store) Watch(fn func(Credentials)) (cancel func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.watchers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}
