// Package submission hands a validated form snapshot to the persistence
// collaborator and reports the outcome to the user.
package submission

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/practice/practice/internal/platform/notification"
)

// FallbackMessage is shown when the persistence layer gives no usable reason.
const FallbackMessage = "Something went wrong. Please try again."

// ErrInFlight is returned when the same form instance already has a
// submission outstanding.
var ErrInFlight = errors.New("submission already in progress")

// Persister creates records of a resource and patches existing ones. Patch
// leaves stored fields absent from body unchanged.
type Persister interface {
	Create(ctx context.Context, resource string, body map[string]any) (map[string]any, error)
	Patch(ctx context.Context, resource, id string, body map[string]any) (map[string]any, error)
}

// Invalidator drops cached lists after a record changed.
type Invalidator interface {
	Invalidate(ctx context.Context, list string)
}

// Notifier emits user-visible notices.
type Notifier interface {
	NotifyTemplate(ctx context.Context, sessionID, templateID string, data map[string]string) (*notification.Notice, error)
}

// Error is a rejected submission. Message is fit for the user.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return "submission failed: " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Request is one submission of a form instance.
type Request struct {
	// Instance identifies the open form; at most one submission per
	// instance runs at a time.
	Instance string
	Resource string
	// Label names the record in notices ("Patient").
	Label string
	// EditingID selects a patch of that record over create when set.
	EditingID string
	Payload   map[string]any
	// Lists are the cached lookup lists to invalidate on success.
	Lists []string
}

// Outcome is a successful submission.
type Outcome struct {
	Record  map[string]any `json:"record"`
	Created bool           `json:"created"`
}

// Pipeline runs submissions.
type Pipeline struct {
	persister Persister
	cache     Invalidator
	notices   Notifier
	logger    zerolog.Logger
	observe   func(resource, outcome string)

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New constructs a Pipeline. cache and notices may be nil.
func New(p Persister, cache Invalidator, notices Notifier, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		persister: p,
		cache:     cache,
		notices:   notices,
		logger:    logger,
		inFlight:  make(map[string]struct{}),
	}
}

// OnResult registers fn to be called with the resource and outcome (created,
// updated, failed, in_flight) of every submission.
func (p *Pipeline) OnResult(fn func(resource, outcome string)) { p.observe = fn }

func (p *Pipeline) record(resource, outcome string) {
	if p.observe != nil {
		p.observe(resource, outcome)
	}
}

// InFlight reports whether instance has a submission outstanding.
func (p *Pipeline) InFlight(instance string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.inFlight[instance]
	return ok
}

// Submit performs exactly one create or patch call. A concurrent call for
// the same instance returns ErrInFlight without contacting the persister.
// Failures are returned as *Error and never retried.
func (p *Pipeline) Submit(ctx context.Context, req Request) (Outcome, error) {
	if !p.acquire(req.Instance) {
		p.record(req.Resource, "in_flight")
		return Outcome{}, ErrInFlight
	}
	defer p.release(req.Instance)

	log := p.logger.With().
		Str("instance", req.Instance).
		Str("resource", req.Resource).
		Str("editing_id", req.EditingID).
		Logger()

	var (
		rec     map[string]any
		err     error
		created = req.EditingID == ""
	)
	if created {
		rec, err = p.persister.Create(ctx, req.Resource, req.Payload)
	} else {
		rec, err = p.persister.Patch(ctx, req.Resource, req.EditingID, req.Payload)
	}
	if err != nil {
		msg := MessageOf(err)
		log.Warn().Err(err).Msg("submission rejected")
		p.notify(ctx, req.Instance, "submission-failed", map[string]string{"message": msg})
		p.record(req.Resource, "failed")
		return Outcome{}, &Error{Message: msg, Err: err}
	}

	if p.cache != nil {
		for _, list := range req.Lists {
			p.cache.Invalidate(ctx, list)
		}
	}
	tpl, outcome := "record-updated", "updated"
	if created {
		tpl, outcome = "record-created", "created"
	}
	p.record(req.Resource, outcome)
	p.notify(ctx, req.Instance, tpl, map[string]string{"resource": req.Label})
	log.Info().Bool("created", created).Msg("submission stored")
	return Outcome{Record: rec, Created: created}, nil
}

func (p *Pipeline) acquire(instance string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inFlight[instance]; busy {
		return false
	}
	p.inFlight[instance] = struct{}{}
	return true
}

func (p *Pipeline) release(instance string) {
	p.mu.Lock()
	delete(p.inFlight, instance)
	p.mu.Unlock()
}

func (p *Pipeline) notify(ctx context.Context, instance, tpl string, data map[string]string) {
	if p.notices == nil {
		return
	}
	if _, err := p.notices.NotifyTemplate(ctx, instance, tpl, data); err != nil {
		p.logger.Warn().Err(err).Str("template", tpl).Msg("notice not delivered")
	}
}

// MessageOf extracts the user-facing message of a persistence error, or the
// fallback when none is available.
func MessageOf(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if msg := strings.TrimSpace(um.UserMessage()); msg != "" {
			return msg
		}
	}
	return FallbackMessage
}
