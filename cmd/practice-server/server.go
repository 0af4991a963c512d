package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/practice/practice/internal/config"
	"github.com/practice/practice/internal/domain/appointment"
	"github.com/practice/practice/internal/domain/catalog"
	"github.com/practice/practice/internal/domain/invoice"
	"github.com/practice/practice/internal/domain/patient"
	"github.com/practice/practice/internal/domain/payroll"
	"github.com/practice/practice/internal/domain/prescription"
	"github.com/practice/practice/internal/domain/staff"
	"github.com/practice/practice/internal/platform/apiclient"
	"github.com/practice/practice/internal/platform/auth"
	"github.com/practice/practice/internal/platform/db"
	"github.com/practice/practice/internal/platform/derive"
	"github.com/practice/practice/internal/platform/document"
	"github.com/practice/practice/internal/platform/forms"
	"github.com/practice/practice/internal/platform/lookup"
	"github.com/practice/practice/internal/platform/middleware"
	"github.com/practice/practice/internal/platform/notification"
	"github.com/practice/practice/internal/platform/resource"
	"github.com/practice/practice/internal/platform/session"
	"github.com/practice/practice/internal/platform/submission"
	"github.com/practice/practice/internal/platform/telemetry"
)

// version is reported by /health.
const version = "0.1.0"

// lookupLimit caps the records behind one dropdown list.
const lookupLimit = 1000

// backend is the persistence collaborator: the in-process registry or the
// remote API.
type backend interface {
	submission.Persister
	session.Records
	lookup.Source
}

// registryBackend lets the in-process registry feed lookup lists.
type registryBackend struct {
	*resource.Registry
}

func (b registryBackend) List(ctx context.Context, name string) ([]map[string]any, error) {
	return b.ListAll(ctx, name, lookupLimit)
}

// remoteServices reads the service catalog of a remote API as typed items so
// the price book can reload from it.
type remoteServices struct {
	client *apiclient.Client
}

func (r remoteServices) List(ctx context.Context, _, _ int) ([]*catalog.Item, int, error) {
	recs, err := r.client.List(ctx, "services")
	if err != nil {
		return nil, 0, err
	}
	items := make([]*catalog.Item, 0, len(recs))
	for _, rec := range recs {
		it, err := resource.Decode[catalog.Item](rec)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	return items, len(items), nil
}

type server struct {
	echo     *echo.Echo
	sessions *session.Store
	metrics  *telemetry.Provider
	closers  []func()
}

// Close releases the pool and cache clients.
func (s *server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func connect(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required")
	}
	pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func defaultPrices() derive.PriceTable { return catalog.DefaultPrices }

// newFormCatalog registers the practice forms. prices feeds the booking fee.
func newFormCatalog(prices func() derive.PriceTable) (*forms.Catalog, error) {
	builders := []func() (*forms.Entry, error){
		patient.Form,
		func() (*forms.Entry, error) { return appointment.Form(prices, appointment.Coupons) },
		prescription.Form,
		invoice.Form,
		payroll.Form,
	}
	c := forms.NewCatalog()
	for _, build := range builders {
		e, err := build()
		if err != nil {
			return nil, fmt.Errorf("load form: %w", err)
		}
		if err := c.Register(e); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// practiceOf scopes cached lookup lists.
func practiceOf(ctx context.Context) string {
	if p := db.PracticeFromContext(ctx); p != "" {
		return p
	}
	return auth.PracticeFromContext(ctx)
}

func newServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*server, error) {
	srv := &server{metrics: telemetry.NewProvider()}
	fail := func(err error) (*server, error) {
		srv.Close()
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	srv.echo = e

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(srv.metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader, db.PracticeHeader},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(middleware.SanitizeWithLogger(logger))

	if cfg.ResolvedAuthMode() == "development" {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})

	e.GET("/metrics", srv.metrics.Handler())

	api := e.Group("/api")

	var (
		pool *pgxpool.Pool
		be   backend
		book = catalog.NewPriceBook()
	)
	switch cfg.PersistenceMode {
	case config.PersistenceRemote:
		client := apiclient.New(cfg.APIBaseURL, apiclient.WithToken(cfg.APIToken))
		be = client
		if err := book.Reload(ctx, remoteServices{client: client}); err != nil {
			logger.Warn().Err(err).Msg("using default service prices")
		}
	default:
		var err error
		pool, err = db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			return fail(fmt.Errorf("connect to database: %w", err))
		}
		srv.closers = append(srv.closers, pool.Close)
		logger.Info().Msg("connected to database")
		e.GET("/health/db", db.PoolHealthHandler(pool))
		srv.metrics.Gauge("db_pool_acquired_connections", "Database connections in use.", func() int64 {
			return int64(pool.Stat().AcquiredConns())
		})
		srv.metrics.Gauge("db_pool_idle_connections", "Idle database connections.", func() int64 {
			return int64(pool.Stat().IdleConns())
		})
		api.Use(db.PracticeMiddleware(pool, cfg.DefaultPractice))
	}

	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))

	var cache lookup.Cache = lookup.NewMemoryCache()
	if cfg.RedisURL != "" {
		client, err := lookup.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return fail(err)
		}
		srv.closers = append(srv.closers, func() { _ = client.Close() })
		cache = lookup.NewRedisCache(client, "")
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable; lookup lists will be read through")
		}
	}

	var lists []lookup.List
	lists = append(lists, patient.Lookups()...)
	lists = append(lists, staff.Lookups()...)
	lists = append(lists, catalog.Lookups()...)

	if pool != nil {
		d := newDomains(pool)
		lookups := lookup.NewService(registryBackend{d.registry}, cache, cfg.LookupTTL, logger, lists...).ScopeBy(practiceOf)

		reloadPrices := func(ctx context.Context) error { return book.Reload(ctx, d.catalog) }
		onChange := func(ctx context.Context, name string) {
			lookups.Invalidate(ctx, name)
			if name == "services" && db.PracticeFromContext(ctx) == cfg.DefaultPractice {
				if err := reloadPrices(ctx); err != nil {
					logger.Warn().Err(err).Msg("service prices not reloaded")
				}
			}
		}
		d.routes(api, onChange)

		if err := db.WithPractice(ctx, pool, cfg.DefaultPractice, reloadPrices); err != nil {
			logger.Warn().Err(err).Msg("using default service prices")
		}

		be = registryBackend{d.registry}
		return srv.mountForms(api, cfg, logger, be, lookups, book)
	}

	lookups := lookup.NewService(be, cache, cfg.LookupTTL, logger, lists...).ScopeBy(practiceOf)
	return srv.mountForms(api, cfg, logger, be, lookups, book)
}

// domains are the practice resources stored in PostgreSQL.
type domains struct {
	registry     *resource.Registry
	staff        *staff.Service
	catalog      *catalog.Service
	patient      *patient.Service
	appointment  *appointment.Service
	prescription *prescription.Service
	invoice      *invoice.Service
	payroll      *payroll.Service
}

func newDomains(pool *pgxpool.Pool) *domains {
	d := &domains{
		registry:     resource.NewRegistry(),
		staff:        staff.NewService(staff.NewStaffRepoPG(pool)),
		catalog:      catalog.NewService(catalog.NewItemRepoPG(pool)),
		patient:      patient.NewService(patient.NewPatientRepoPG(pool)),
		appointment:  appointment.NewService(appointment.NewAppointmentRepoPG(pool)),
		prescription: prescription.NewService(prescription.NewPrescriptionRepoPG(pool)),
		invoice:      invoice.NewService(invoice.NewInvoiceRepoPG(pool)),
		payroll:      payroll.NewService(payroll.NewEntryRepoPG(pool)),
	}
	d.registry.Register("staff", staff.Store(d.staff))
	d.registry.Register("services", catalog.Store(d.catalog))
	d.registry.Register("patients", patient.Store(d.patient))
	d.registry.Register("appointments", appointment.Store(d.appointment))
	d.registry.Register("prescriptions", prescription.Store(d.prescription))
	d.registry.Register("invoices", invoice.Store(d.invoice))
	d.registry.Register("payroll", payroll.Store(d.payroll))
	return d
}

func (d *domains) routes(api *echo.Group, onChange func(ctx context.Context, name string)) {
	staff.NewHandler(d.staff, onChange).RegisterRoutes(api)
	catalog.NewHandler(d.catalog, onChange).RegisterRoutes(api)
	patient.NewHandler(d.patient, onChange).RegisterRoutes(api)
	appointment.NewHandler(d.appointment, onChange).RegisterRoutes(api)
	prescription.NewHandler(d.prescription, onChange).RegisterRoutes(api)
	invoice.NewHandler(d.invoice, onChange).RegisterRoutes(api)
	payroll.NewHandler(d.payroll, onChange).RegisterRoutes(api)
}

// mountForms wires the routes shared by both persistence modes.
func (srv *server) mountForms(api *echo.Group, cfg *config.Config, logger zerolog.Logger, be backend, lookups *lookup.Service, book *catalog.PriceBook) (*server, error) {
	catalogForms, err := newFormCatalog(book.Table)
	if err != nil {
		srv.Close()
		return nil, err
	}

	notices := notification.NewManager(nil, 50, notification.LogSink{Logger: logger})
	pipeline := submission.New(be, lookups, notices, logger)
	pipeline.OnResult(srv.metrics.RecordSubmission)
	srv.sessions = session.NewStore(cfg.SessionTTL, logger)
	srv.metrics.Gauge("form_sessions_open", "Open form sessions.", func() int64 {
		return int64(srv.sessions.Len())
	})
	sessions := session.NewService(session.Config{
		Catalog:  catalogForms,
		Store:    srv.sessions,
		Pipeline: pipeline,
		Notices:  notices,
		Lookups:  lookups,
		Records:  be,
		Logger:   logger,
	})

	session.NewHandler(sessions, catalogForms).RegisterRoutes(api.Group("/forms"))
	lookup.NewHandler(lookups).RegisterRoutes(api)
	notification.NewHandler(notices).RegisterRoutes(api.Group("", auth.RequireRole(auth.RoleAdmin)))

	renderer, err := document.NewRenderer(cfg.ClinicName)
	if err != nil {
		srv.Close()
		return nil, fmt.Errorf("load document templates: %w", err)
	}
	document.NewHandler(renderer, be,
		document.Printable{Resource: "invoices", Kind: "invoice"},
		document.Printable{Resource: "prescriptions", Kind: "prescription"},
	).RegisterRoutes(api)

	return srv, nil
}
