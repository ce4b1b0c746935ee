package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/bryanwahyu/veritas/internal/domain/analysis"
)

var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrSessionNotFound = errors.New("session not found")
)

// Session owns one user's history and playback selection. All methods are safe for
// concurrent use.
type Session struct {
	ID string

	mu       sync.Mutex
	records  []*analysis.Record
	next     int
	playback *analysis.Record
}

func New(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{ID: id}
}

// OwnerID names the session in archived entries.
func (s *Session) OwnerID() string { return s.ID }

// Append stores a copy of rec with the next Order and returns it.
func (s *Session) Append(rec analysis.Record) *analysis.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Order = s.next
	s.next++
	stored := rec
	s.records = append(s.records, &stored)
	return &stored
}

// List returns records oldest first.
func (s *Session) List() []*analysis.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*analysis.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Recent returns records newest first.
func (s *Session) Recent() []*analysis.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*analysis.Record, len(s.records))
	for i, r := range s.records {
		out[len(s.records)-1-i] = r
	}
	return out
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Session) Get(id analysis.RecordID) (*analysis.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(id)
}

// Select makes the record the current playback selection.
func (s *Session) Select(id analysis.RecordID) (*analysis.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.find(id)
	if err != nil {
		return nil, err
	}
	s.playback = rec
	return rec, nil
}

// Playback returns the selected record or nil.
func (s *Session) Playback() *analysis.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playback
}

func (s *Session) ClosePlayback() {
	s.mu.Lock()
	s.playback = nil
	s.mu.Unlock()
}

// Clear empties history and playback together. Order keeps counting.
func (s *Session) Clear() {
	s.mu.Lock()
	s.records = nil
	s.playback = nil
	s.mu.Unlock()
}

func (s *Session) find(id analysis.RecordID) (*analysis.Record, error) {
	for _, r := range s.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, ErrRecordNotFound
}

// DefaultIdleTTL is how long an untouched session is kept.
const DefaultIdleTTL = 24 * time.Hour

// Registry maps session IDs to sessions. Sessions nobody touched for the idle TTL are
// evicted by the cache janitor.
type Registry struct {
	mu    sync.Mutex
	items *gocache.Cache
}

// NewRegistry keeps sessions for idle after their last use; idle <= 0 keeps them forever.
func NewRegistry(idle time.Duration) *Registry {
	if idle <= 0 {
		return &Registry{items: gocache.New(gocache.NoExpiration, 0)}
	}
	sweep := idle / 2
	if sweep > 10*time.Minute {
		sweep = 10 * time.Minute
	}
	return &Registry{items: gocache.New(idle, sweep)}
}

// Create mints a session with a fresh uuid.
func (r *Registry) Create() *Session {
	s := New("")
	r.items.SetDefault(s.ID, s)
	return s
}

// Open returns the session for id, creating it on first use. Only routes that record an
// analysis should call it.
func (r *Registry) Open(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.touch(id); ok {
		return s
	}
	s := New(id)
	r.items.SetDefault(s.ID, s)
	return s
}

// Lookup returns the session for id without creating one, and refreshes its idle timer.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.touch(id)
}

func (r *Registry) touch(id string) (*Session, bool) {
	v, ok := r.items.Get(id)
	if !ok {
		return nil, false
	}
	s := v.(*Session)
	r.items.SetDefault(id, s)
	return s, true
}

func (r *Registry) Delete(id string) {
	r.items.Delete(id)
}

// Len counts live sessions, including expired ones the janitor has not swept yet.
func (r *Registry) Len() int {
	return r.items.ItemCount()
}
