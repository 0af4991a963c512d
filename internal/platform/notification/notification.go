// Package notification delivers user-visible notices (submission succeeded,
// submission failed, a list could not be loaded) to the sessions that caused
// them, with template rendering, in-memory storage and Echo HTTP handlers.
package notification

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ---------------------------------------------------------------------------
// Notice Types
// ---------------------------------------------------------------------------

// Level is the severity of a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notice is a single transient message shown to the user.
type Notice struct {
	ID         string            `json:"id"`
	SessionID  string            `json:"session_id,omitempty"`
	Level      Level             `json:"level"`
	Title      string            `json:"title,omitempty"`
	Message    string            `json:"message"`
	TemplateID string            `json:"template_id,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// ---------------------------------------------------------------------------
// Sinks
// ---------------------------------------------------------------------------

// Sink receives every notice after it is stored.
type Sink interface {
	Deliver(ctx context.Context, n *Notice) error
}

// LogSink writes notices to a zerolog logger.
type LogSink struct {
	Logger zerolog.Logger
}

// Deliver logs the notice at a level matching its severity.
func (s LogSink) Deliver(_ context.Context, n *Notice) error {
	ev := s.Logger.Info()
	if n.Level == LevelError {
		ev = s.Logger.Warn()
	}
	ev.Str("notice_id", n.ID).
		Str("session_id", n.SessionID).
		Str("level", string(n.Level)).
		Str("template", n.TemplateID).
		Msg(n.Message)
	return nil
}

// MockSink is a test double recording delivered notices.
type MockSink struct {
	mu      sync.Mutex
	notices []Notice
}

// Deliver records the notice.
func (m *MockSink) Deliver(_ context.Context, n *Notice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, *n)
	return nil
}

// Notices returns a copy of the recorded notices.
func (m *MockSink) Notices() []Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notice, len(m.notices))
	copy(out, m.notices)
	return out
}

// ---------------------------------------------------------------------------
// Template Engine
// ---------------------------------------------------------------------------

// Template defines a reusable notice text.
type Template struct {
	ID      string `json:"id"`
	Level   Level  `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// TemplateEngine manages notice templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{ID: "record-created", Level: LevelSuccess, Title: "Saved", Message: "{{resource}} created successfully"},
		{ID: "record-updated", Level: LevelSuccess, Title: "Saved", Message: "{{resource}} updated successfully"},
		{ID: "record-deleted", Level: LevelSuccess, Title: "Deleted", Message: "{{resource}} deleted"},
		{ID: "submission-failed", Level: LevelError, Title: "Could not save", Message: "{{message}}"},
		{ID: "list-unavailable", Level: LevelError, Title: "No records found", Message: "Could not load {{resource}}"},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are left
// as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (Template, error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return Template{}, fmt.Errorf("template %q not found", templateID)
	}

	out := *t
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		out.Title = strings.ReplaceAll(out.Title, placeholder, v)
		out.Message = strings.ReplaceAll(out.Message, placeholder, v)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Manager
// ---------------------------------------------------------------------------

// Manager stores notices per session and fans them out to sinks.
type Manager struct {
	templates *TemplateEngine
	sinks     []Sink
	limit     int

	mu        sync.RWMutex
	bySession map[string][]*Notice
}

// NewManager constructs a Manager keeping at most limit notices per session.
func NewManager(tpl *TemplateEngine, limit int, sinks ...Sink) *Manager {
	if tpl == nil {
		tpl = NewTemplateEngine()
	}
	if limit <= 0 {
		limit = 50
	}
	return &Manager{
		templates: tpl,
		sinks:     sinks,
		limit:     limit,
		bySession: make(map[string][]*Notice),
	}
}

// Notify assigns an ID and timestamp, stores n under its session and delivers
// it to every sink. Sink failures do not prevent storage.
func (m *Manager) Notify(ctx context.Context, n *Notice) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.CreatedAt = time.Now().UTC()
	if n.Level == "" {
		n.Level = LevelInfo
	}

	m.mu.Lock()
	list := append(m.bySession[n.SessionID], n)
	if len(list) > m.limit {
		list = list[len(list)-m.limit:]
	}
	m.bySession[n.SessionID] = list
	m.mu.Unlock()

	var firstErr error
	for _, s := range m.sinks {
		if err := s.Deliver(ctx, n); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("deliver notice: %w", err)
		}
	}
	return firstErr
}

// NotifyTemplate renders a template and sends the resulting notice.
func (m *Manager) NotifyTemplate(ctx context.Context, sessionID, templateID string, data map[string]string) (*Notice, error) {
	t, err := m.templates.Render(templateID, data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	n := &Notice{
		SessionID:  sessionID,
		Level:      t.Level,
		Title:      t.Title,
		Message:    t.Message,
		TemplateID: templateID,
		Data:       data,
	}
	return n, m.Notify(ctx, n)
}

// ListBySession returns the notices of a session, oldest first.
func (m *Manager) ListBySession(_ context.Context, sessionID string) []Notice {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.bySession[sessionID]
	out := make([]Notice, len(list))
	for i, n := range list {
		out[i] = *n
	}
	return out
}

// Drain returns and forgets the notices of a session.
func (m *Manager) Drain(ctx context.Context, sessionID string) []Notice {
	out := m.ListBySession(ctx, sessionID)
	m.mu.Lock()
	delete(m.bySession, sessionID)
	m.mu.Unlock()
	return out
}

// Forget drops every notice of a session.
func (m *Manager) Forget(sessionID string) {
	m.mu.Lock()
	delete(m.bySession, sessionID)
	m.mu.Unlock()
}

// Stats returns counts of stored notices grouped by level.
func (m *Manager) Stats(_ context.Context) map[Level]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[Level]int)
	for _, list := range m.bySession {
		for _, n := range list {
			stats[n.Level]++
		}
	}
	return stats
}

// ---------------------------------------------------------------------------
// HTTP Handler
// ---------------------------------------------------------------------------

// Handler exposes notice feeds over HTTP via Echo.
type Handler struct {
	manager *Manager
}

// NewHandler creates a new Handler.
func NewHandler(mgr *Manager) *Handler {
	return &Handler{manager: mgr}
}

// RegisterRoutes registers the notice routes on the given Echo group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/notices/stats", h.HandleStats)
	g.GET("/notices", h.HandleList)
}

// HandleList handles GET /notices?session=...&drain=true.
func (h *Handler) HandleList(c echo.Context) error {
	session := c.QueryParam("session")
	if session == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session query parameter is required")
	}
	ctx := c.Request().Context()
	var list []Notice
	if c.QueryParam("drain") == "true" {
		list = h.manager.Drain(ctx, session)
	} else {
		list = h.manager.ListBySession(ctx, session)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return c.JSON(http.StatusOK, list)
}

// HandleStats handles GET /notices/stats.
func (h *Handler) HandleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.manager.Stats(c.Request().Context()))
}
