package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/practice/practice/internal/config"
	"github.com/practice/practice/internal/platform/apiclient"
	"github.com/practice/practice/internal/platform/db"
	"github.com/practice/practice/internal/platform/sandbox"
	"github.com/practice/practice/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "practice-server",
		Short: "Practice management forms and records API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(formsCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Create the practice schema and apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			practice, _ := cmd.Flags().GetString("practice")
			dir, _ := cmd.Flags().GetString("dir")

			cfg, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			if practice == "" {
				practice = cfg.DefaultPractice
			}

			fsys, err := migrationFS(dir, cfg.MigrationsDir)
			if err != nil {
				return err
			}
			schema := db.SchemaFor(practice)
			fmt.Fprintf(cmd.OutOrStdout(), "Running migrations on schema: %s\n", schema)
			if err := db.CreatePracticeSchema(cmd.Context(), pool, practice, nil); err != nil {
				return err
			}
			count, err := db.NewMigrator(pool, fsys).Up(cmd.Context(), schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("practice", "", "Practice identifier (defaults to DEFAULT_PRACTICE)")
	upCmd.Flags().String("dir", "", "Migrations directory (defaults to the embedded set)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			practice, _ := cmd.Flags().GetString("practice")
			dir, _ := cmd.Flags().GetString("dir")

			cfg, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			if practice == "" {
				practice = cfg.DefaultPractice
			}

			fsys, err := migrationFS(dir, cfg.MigrationsDir)
			if err != nil {
				return err
			}
			schema := db.SchemaFor(practice)
			statuses, err := db.NewMigrator(pool, fsys).Status(cmd.Context(), schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printStatus(cmd.OutOrStdout(), schema, statuses)
			return nil
		},
	}
	statusCmd.Flags().String("practice", "", "Practice identifier (defaults to DEFAULT_PRACTICE)")
	statusCmd.Flags().String("dir", "", "Migrations directory (defaults to the embedded set)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load reproducible demo staff, services, patients and appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			practice, _ := cmd.Flags().GetString("practice")
			seedCfg := sandbox.DefaultSeedConfig()
			seedCfg.PatientCount, _ = cmd.Flags().GetInt("patients")
			seedCfg.DoctorCount, _ = cmd.Flags().GetInt("doctors")
			seedCfg.AppointmentDate, _ = cmd.Flags().GetString("date")
			seedCfg.Seed, _ = cmd.Flags().GetInt64("seed")
			seedCfg.IncludeServices, _ = cmd.Flags().GetBool("services")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := newLogger(cfg.Env, cmd.ErrOrStderr())

			var res *sandbox.SeedResult
			if cfg.PersistenceMode == config.PersistenceRemote {
				client := apiclient.New(cfg.APIBaseURL, apiclient.WithToken(cfg.APIToken))
				res, err = sandbox.NewSeeder(client, seedCfg, logger).Seed(cmd.Context())
			} else {
				_, pool, cerr := connect(cmd.Context())
				if cerr != nil {
					return cerr
				}
				defer pool.Close()
				if practice == "" {
					practice = cfg.DefaultPractice
				}
				seeder := sandbox.NewSeeder(newDomains(pool).registry, seedCfg, logger)
				err = db.WithPractice(cmd.Context(), pool, practice, func(ctx context.Context) error {
					return db.WithTx(ctx, pool, func(ctx context.Context) error {
						var serr error
						res, serr = seeder.Seed(ctx)
						return serr
					})
				})
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d staff, %d services, %d patients, %d appointments.\n",
				res.Staff, res.Services, res.Patients, res.Appointments)
			return nil
		},
	}
	def := sandbox.DefaultSeedConfig()
	cmd.Flags().String("practice", "", "Practice identifier (defaults to DEFAULT_PRACTICE)")
	cmd.Flags().Int("patients", def.PatientCount, "Number of patients")
	cmd.Flags().Int("doctors", def.DoctorCount, "Number of doctors")
	cmd.Flags().String("date", "", "Book appointments on this day (YYYY-MM-DD)")
	cmd.Flags().Int64("seed", def.Seed, "Random seed")
	cmd.Flags().Bool("services", false, "Also create the service catalog")
	return cmd
}

func formsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forms",
		Short: "Inspect the built-in form definitions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List forms with their steps",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := newFormCatalog(defaultPrices)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-14s %-14s %-10s %s\n", "FORM", "RESOURCE", "NAV", "STEPS")
			for _, e := range catalog.List() {
				steps := ""
				for i, s := range e.Definition.Steps {
					if i > 0 {
						steps += " > "
					}
					steps += s.ID
				}
				fmt.Fprintf(out, "%-14s %-14s %-10s %s\n", e.ID(), e.Resource(), e.Definition.Navigation, steps)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Compile every form definition and its derived rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := newFormCatalog(defaultPrices)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d form(s) OK\n", len(catalog.List()))
			return nil
		},
	})

	return cmd
}

func printStatus(out io.Writer, schema string, statuses []db.MigrationStatus) {
	fmt.Fprintf(out, "Migration status for schema: %s\n", schema)
	fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

// migrationFS prefers the flag, then MIGRATIONS_DIR, then the embedded files.
func migrationFS(flagDir, cfgDir string) (fs.FS, error) {
	dir := flagDir
	if dir == "" {
		dir = cfgDir
	}
	if dir == "" {
		return migrations.FS, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("migrations directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("migrations directory: %s is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

func newLogger(env string, out io.Writer) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := newLogger(cfg.Env, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := newServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	go srv.sessions.Run(ctx, time.Minute)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("persistence", cfg.PersistenceMode).Msg("starting server")
		if err := srv.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
