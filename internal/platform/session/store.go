// Package session keeps open form instances: one snapshot and one wizard
// position per opened dialog, mutated through a JSON API.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/practice/practice/internal/platform/form"
	"github.com/practice/practice/internal/platform/forms"
	"github.com/practice/practice/internal/platform/wizard"
)

// ErrSessionNotFound is returned for unknown, expired or foreign sessions.
var ErrSessionNotFound = errors.New("form session not found")

// Session is one open form. Its mutex serializes every mutation.
type Session struct {
	ID        string
	Owner     string
	Form      *forms.Entry
	EditingID string
	Snapshot  form.Snapshot
	Wizard    *wizard.Controller
	Errors    map[string]string
	OpenedAt  time.Time
	TouchedAt time.Time

	mu         sync.Mutex
	submitting bool
}

// View is the JSON representation of a session.
type View struct {
	ID         string            `json:"id"`
	FormID     string            `json:"form"`
	Resource   string            `json:"resource"`
	EditingID  string            `json:"editing_id,omitempty"`
	Values     map[string]any    `json:"values"`
	Wizard     wizard.State      `json:"wizard"`
	Step       string            `json:"step"`
	Errors     map[string]string `json:"errors"`
	Submitting bool              `json:"submitting"`
}

// view must be called with s.mu held.
func (s *Session) view() View {
	errs := make(map[string]string, len(s.Errors))
	for k, v := range s.Errors {
		errs[k] = v
	}
	def := s.Form.Definition
	return View{
		ID:         s.ID,
		FormID:     def.ID,
		Resource:   def.Resource,
		EditingID:  s.EditingID,
		Values:     s.Snapshot.Plain(),
		Wizard:     s.Wizard.State(),
		Step:       def.Steps[s.Wizard.Current()].ID,
		Errors:     errs,
		Submitting: s.submitting,
	}
}

// Store holds open sessions and expires idle ones.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	logger   zerolog.Logger
	onExpire func(id string)
}

// NewStore returns a Store expiring sessions idle for longer than ttl.
func NewStore(ttl time.Duration, logger zerolog.Logger) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// OnExpire registers a callback run for every removed session.
func (st *Store) OnExpire(fn func(id string)) { st.onExpire = fn }

// Add registers a new session and assigns its id.
func (st *Store) Add(s *Session) *Session {
	now := st.now()
	s.ID = uuid.New().String()
	s.OpenedAt = now
	s.TouchedAt = now
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns the session if it exists, belongs to owner and has not
// expired. It refreshes the idle timer.
func (st *Store) Get(id, owner string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok || s.Owner != owner {
		return nil, ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.now().Sub(s.TouchedAt) > st.ttl {
		return nil, ErrSessionNotFound
	}
	s.TouchedAt = st.now()
	return s, nil
}

// Remove discards a session.
func (st *Store) Remove(id string) {
	st.mu.Lock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if ok && st.onExpire != nil {
		st.onExpire(id)
	}
}

// Len returns the number of open sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes idle sessions that are not submitting and returns how many
// were removed.
func (st *Store) Sweep() int {
	now := st.now()
	var expired []string
	st.mu.RLock()
	for id, s := range st.sessions {
		s.mu.Lock()
		if !s.submitting && now.Sub(s.TouchedAt) > st.ttl {
			expired = append(expired, id)
		}
		s.mu.Unlock()
	}
	st.mu.RUnlock()
	for _, id := range expired {
		st.Remove(id)
	}
	if len(expired) > 0 {
		st.logger.Debug().Int("expired", len(expired)).Msg("form sessions swept")
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}
