package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/practice/practice/internal/platform/form"
	"github.com/practice/practice/internal/platform/forms"
	"github.com/practice/practice/internal/platform/lookup"
	"github.com/practice/practice/internal/platform/notification"
	"github.com/practice/practice/internal/platform/submission"
	"github.com/practice/practice/internal/platform/wizard"
)

var (
	// ErrFormNotFound is returned when opening an unknown form.
	ErrFormNotFound = errors.New("form not found")
	// ErrBusy is returned for mutations while a submission is outstanding.
	ErrBusy = errors.New("form is being submitted")
)

// ValidationError carries the failing results of a navigation or submit.
type ValidationError struct {
	View    View
	Results form.Results
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%d invalid fields", len(e.Results.Invalid()))
}

// Records loads an existing record for edit sessions.
type Records interface {
	Get(ctx context.Context, resource, id string) (map[string]any, error)
}

// Service implements the form session operations.
type Service struct {
	catalog  *forms.Catalog
	store    *Store
	pipeline *submission.Pipeline
	notices  *notification.Manager
	lookups  *lookup.Service
	records  Records
	logger   zerolog.Logger
}

// Config wires a Service.
type Config struct {
	Catalog  *forms.Catalog
	Store    *Store
	Pipeline *submission.Pipeline
	Notices  *notification.Manager
	Lookups  *lookup.Service
	Records  Records
	Logger   zerolog.Logger
}

// NewService constructs a Service. Notices of closed sessions are dropped.
func NewService(cfg Config) *Service {
	if cfg.Notices != nil {
		cfg.Store.OnExpire(cfg.Notices.Forget)
	}
	return &Service{
		catalog:  cfg.Catalog,
		store:    cfg.Store,
		pipeline: cfg.Pipeline,
		notices:  cfg.Notices,
		lookups:  cfg.Lookups,
		records:  cfg.Records,
		logger:   cfg.Logger,
	}
}

// OpenRequest opens a form, optionally on an existing record.
type OpenRequest struct {
	RecordID string         `json:"record_id"`
	Values   map[string]any `json:"values"`
}

// Open creates a session. Create sessions start from defaults plus values
// with every derived rule applied; edit sessions load the record (values
// override it) and navigate freely.
func (s *Service) Open(ctx context.Context, owner, formID string, req OpenRequest) (View, error) {
	entry, ok := s.catalog.Get(formID)
	if !ok {
		return View{}, fmt.Errorf("%w: %s", ErrFormNotFound, formID)
	}
	def := entry.Definition

	existing := req.Values
	policy := def.Navigation
	if req.RecordID != "" {
		policy = form.NavigationFree
		if s.records != nil {
			rec, err := s.records.Get(ctx, def.Resource, req.RecordID)
			if err != nil {
				return View{}, fmt.Errorf("load %s %s: %w", def.Resource, req.RecordID, err)
			}
			for k, v := range req.Values {
				rec[k] = v
			}
			existing = rec
		}
	}

	snap := form.NewSnapshot(def, existing)
	if req.RecordID == "" {
		entry.Derive.Recompute(snap)
	}
	sess := s.store.Add(&Session{
		Owner:     owner,
		Form:      entry,
		EditingID: req.RecordID,
		Snapshot:  snap,
		Wizard:    wizard.New(def, policy),
		Errors:    map[string]string{},
	})
	s.logger.Debug().Str("session", sess.ID).Str("form", formID).Bool("editing", req.RecordID != "").Msg("form session opened")

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(), nil
}

// Get returns the current view of a session.
func (s *Service) Get(owner, id string) (View, error) {
	sess, err := s.store.Get(id, owner)
	if err != nil {
		return View{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(), nil
}

// Close discards a session and its unsaved values.
func (s *Service) Close(owner, id string) error {
	if _, err := s.store.Get(id, owner); err != nil {
		return err
	}
	s.store.Remove(id)
	return nil
}

// mutate runs fn with the session locked, refusing while submitting.
func (s *Service) mutate(owner, id string, fn func(*Session) error) (View, error) {
	sess, err := s.store.Get(id, owner)
	if err != nil {
		return View{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.submitting {
		return sess.view(), ErrBusy
	}
	if err := fn(sess); err != nil {
		return sess.view(), err
	}
	return sess.view(), nil
}

// SetFields stores each value (dotted keys address nested objects) and runs
// the derived rules they trigger. With validate set, the touched fields are
// validated as on blur. An unknown key rejects the whole request unchanged.
func (s *Service) SetFields(owner, id string, values map[string]any, validate bool) (View, error) {
	return s.mutate(owner, id, func(sess *Session) error {
		def := sess.Form.Definition
		keys := sortedKeys(values)
		for _, key := range keys {
			if err := sess.Snapshot.CheckSettable(def, key); err != nil {
				return err
			}
		}
		for _, key := range keys {
			if err := sess.Snapshot.Set(def, key, values[key]); err != nil {
				return err
			}
			sess.Form.Derive.OnFieldChange(sess.Snapshot, key)
		}
		if validate {
			sess.revalidate(topKeys(values))
		}
		return nil
	})
}

// AppendRow adds a row to an array field and returns its id in the view's
// values.
func (s *Service) AppendRow(owner, id, key string, values map[string]any) (View, string, error) {
	var rowID string
	v, err := s.mutate(owner, id, func(sess *Session) error {
		var err error
		rowID, err = sess.Snapshot.AppendRow(sess.Form.Definition, key, values)
		if err != nil {
			return err
		}
		sess.Form.Derive.OnFieldChange(sess.Snapshot, key)
		return nil
	})
	return v, rowID, err
}

// SetRow stores child values of one row.
func (s *Service) SetRow(owner, id, key, rowID string, values map[string]any, validate bool) (View, error) {
	return s.mutate(owner, id, func(sess *Session) error {
		def := sess.Form.Definition
		for _, field := range sortedKeys(values) {
			if err := sess.Snapshot.SetRowField(def, key, rowID, field, values[field]); err != nil {
				return err
			}
		}
		sess.Form.Derive.OnFieldChange(sess.Snapshot, key)
		if validate {
			sess.revalidate([]string{key})
		}
		return nil
	})
}

// RemoveRow deletes a row by its stable id.
func (s *Service) RemoveRow(owner, id, key, rowID string) (View, error) {
	return s.mutate(owner, id, func(sess *Session) error {
		if err := sess.Snapshot.RemoveRow(key, rowID); err != nil {
			return err
		}
		sess.Form.Derive.OnFieldChange(sess.Snapshot, key)
		prefix := key + "." + rowID + "."
		for k := range sess.Errors {
			if strings.HasPrefix(k, prefix) {
				delete(sess.Errors, k)
			}
		}
		return nil
	})
}

// Next validates the current step and advances on success. A failing step
// returns a *ValidationError.
func (s *Service) Next(owner, id string) (View, error) {
	var res form.Results
	v, err := s.mutate(owner, id, func(sess *Session) error {
		var ok bool
		res, ok = sess.Wizard.Next(sess.Snapshot)
		sess.applyResults(res)
		if !ok {
			return errStepInvalid
		}
		return nil
	})
	if errors.Is(err, errStepInvalid) {
		return v, &ValidationError{View: v, Results: res.Invalid()}
	}
	return v, err
}

var errStepInvalid = errors.New("step invalid")

// Previous moves back one step.
func (s *Service) Previous(owner, id string) (View, error) {
	return s.mutate(owner, id, func(sess *Session) error {
		sess.Wizard.Previous()
		return nil
	})
}

// Jump opens a step directly, subject to the navigation policy.
func (s *Service) Jump(owner, id string, step int) (View, error) {
	return s.mutate(owner, id, func(sess *Session) error {
		return sess.Wizard.JumpTo(step)
	})
}

// Result of a successful submission.
type Result struct {
	Outcome submission.Outcome `json:"outcome"`
	// Session is the reset session after a create, nil after an edit
	// (the session is closed).
	Session *View `json:"session,omitempty"`
	// Notices are the pending notices of a closed edit session.
	Notices []notification.Notice `json:"notices,omitempty"`
}

// Submit validates every step, then runs the submission pipeline with the
// session unlocked. On success a create session is reset to defaults and an
// edit session is closed, returning its notices. On failure the values are
// left untouched.
func (s *Service) Submit(ctx context.Context, owner, id string) (Result, error) {
	sess, err := s.store.Get(id, owner)
	if err != nil {
		return Result{}, err
	}

	sess.mu.Lock()
	if sess.submitting {
		sess.mu.Unlock()
		return Result{}, submission.ErrInFlight
	}
	res, first := sess.Wizard.ValidateAll(sess.Snapshot)
	if first >= 0 {
		sess.setResults(res)
		v := sess.view()
		sess.mu.Unlock()
		return Result{}, &ValidationError{View: v, Results: res.Invalid()}
	}
	sess.Errors = map[string]string{}
	sess.submitting = true
	req := submission.Request{
		Instance:  sess.ID,
		Resource:  sess.Form.Resource(),
		Label:     sess.Form.Label,
		EditingID: sess.EditingID,
		Payload:   sess.Snapshot.Payload(),
		Lists:     sess.Form.Lists(),
	}
	sess.mu.Unlock()

	out, err := s.pipeline.Submit(ctx, req)

	sess.mu.Lock()
	sess.submitting = false
	if err != nil {
		sess.mu.Unlock()
		return Result{}, err
	}
	if sess.EditingID != "" {
		sess.mu.Unlock()
		var notices []notification.Notice
		if s.notices != nil {
			notices = s.notices.Drain(ctx, sess.ID)
		}
		s.store.Remove(sess.ID)
		return Result{Outcome: out, Notices: notices}, nil
	}
	sess.Snapshot = form.NewSnapshot(sess.Form.Definition, nil)
	sess.Form.Derive.Recompute(sess.Snapshot)
	sess.Wizard.Reset()
	sess.Errors = map[string]string{}
	v := sess.view()
	sess.mu.Unlock()
	return Result{Outcome: out, Session: &v}, nil
}

// Notices returns the pending notices of a session and clears them.
func (s *Service) Notices(ctx context.Context, owner, id string) ([]notification.Notice, error) {
	if _, err := s.store.Get(id, owner); err != nil {
		return nil, err
	}
	if s.notices == nil {
		return []notification.Notice{}, nil
	}
	return s.notices.Drain(ctx, id), nil
}

// Lookup returns a dropdown list for the session, recording a notice when
// the list could not be loaded.
func (s *Service) Lookup(ctx context.Context, owner, id, list string) (lookup.Result, error) {
	if _, err := s.store.Get(id, owner); err != nil {
		return lookup.Result{}, err
	}
	res := s.lookups.Options(ctx, list)
	if res.Err != nil && s.notices != nil {
		if _, err := s.notices.NotifyTemplate(ctx, id, "list-unavailable", map[string]string{"resource": list}); err != nil {
			s.logger.Warn().Err(err).Msg("notice not delivered")
		}
	}
	return res, nil
}

// applyResults replaces the errors of the validated keys. Caller holds mu.
func (sess *Session) applyResults(res form.Results) {
	for _, r := range res {
		delete(sess.Errors, r.Key)
		if !r.Valid {
			sess.Errors[r.Key] = r.Message
		}
	}
}

// setResults replaces every error. Caller holds mu.
func (sess *Session) setResults(res form.Results) {
	sess.Errors = res.Errors()
}

// revalidate validates keys and replaces their errors, including nested
// ones. Caller holds mu.
func (sess *Session) revalidate(keys []string) {
	for _, key := range keys {
		for k := range sess.Errors {
			if k == key || strings.HasPrefix(k, key+".") {
				delete(sess.Errors, k)
			}
		}
	}
	sess.applyResults(form.Validate(sess.Form.Definition, sess.Snapshot, keys))
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// dotted children after their parents, otherwise alphabetical
	sort.Strings(keys)
	return keys
}

func topKeys(m map[string]any) []string {
	seen := make(map[string]bool, len(m))
	var out []string
	for _, k := range sortedKeys(m) {
		top, _, _ := strings.Cut(k, ".")
		if !seen[top] {
			seen[top] = true
			out = append(out, top)
		}
	}
	return out
}
