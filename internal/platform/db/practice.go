package db

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/practice/practice/internal/platform/auth"
)

type contextKey string

const (
	PracticeIDKey contextKey = "practice_id"
	DBConnKey     contextKey = "db_conn"
)

// PracticeHeader selects a practice when the token carries none.
const PracticeHeader = "X-Practice-ID"

var practiceIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// SchemaFor returns the schema holding a practice's tables.
func SchemaFor(practiceID string) string {
	return "practice_" + practiceID
}

// PracticeMiddleware pins a pooled connection to the caller's practice
// schema for the duration of the request.
func PracticeMiddleware(pool *pgxpool.Pool, defaultPractice string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			practiceID := extractPracticeID(c, defaultPractice)
			if !practiceIDPattern.MatchString(practiceID) {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid practice identifier")
			}

			err := WithPractice(c.Request().Context(), pool, practiceID, func(ctx context.Context) error {
				c.SetRequest(c.Request().WithContext(ctx))
				c.Set("practice_id", practiceID)
				return next(c)
			})
			if errors.Is(err, errAcquire) {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}
			if errors.Is(err, errSearchPath) {
				return echo.NewHTTPError(http.StatusInternalServerError, "practice resolution failed")
			}
			return err
		}
	}
}

var (
	errAcquire    = errors.New("acquire connection")
	errSearchPath = errors.New("set search path")
)

// WithPractice runs fn with a connection bound to the practice schema in its
// context. Background jobs use it where no request middleware ran.
func WithPractice(ctx context.Context, pool *pgxpool.Pool, practiceID string, fn func(ctx context.Context) error) error {
	if !practiceIDPattern.MatchString(practiceID) {
		return fmt.Errorf("invalid practice identifier: %s", practiceID)
	}
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", errAcquire, err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s, public", SchemaFor(practiceID))); err != nil {
		return fmt.Errorf("%w: %v", errSearchPath, err)
	}

	ctx = context.WithValue(ctx, PracticeIDKey, practiceID)
	ctx = context.WithValue(ctx, DBConnKey, conn)
	return fn(ctx)
}

func extractPracticeID(c echo.Context, defaultPractice string) string {
	if id := auth.PracticeFromContext(c.Request().Context()); id != "" {
		return id
	}
	if id := c.Request().Header.Get(PracticeHeader); id != "" {
		return id
	}
	return defaultPractice
}

// ConnFromContext retrieves the practice-scoped connection from context.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// PracticeFromContext retrieves the resolved practice ID from context.
func PracticeFromContext(ctx context.Context) string {
	id, _ := ctx.Value(PracticeIDKey).(string)
	return id
}

// CreatePracticeSchema creates the schema of a practice and applies every
// migration of fsys to it. A nil fsys skips migrations.
func CreatePracticeSchema(ctx context.Context, pool *pgxpool.Pool, practiceID string, fsys fs.FS) error {
	if !practiceIDPattern.MatchString(practiceID) {
		return fmt.Errorf("invalid practice identifier: %s", practiceID)
	}
	schema := SchemaFor(practiceID)

	if _, err := pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)); err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}

	if fsys != nil {
		if _, err := NewMigrator(pool, fsys).Up(ctx, schema); err != nil {
			return fmt.Errorf("run migrations for %s: %w", schema, err)
		}
	}
	return nil
}
