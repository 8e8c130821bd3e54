package main

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/KyaptainJoyboy/Galpal/internal/config"
	"github.com/KyaptainJoyboy/Galpal/internal/domain/interpretation"
	"github.com/KyaptainJoyboy/Galpal/internal/domain/labanalysis"
	"github.com/KyaptainJoyboy/Galpal/internal/domain/patient"
	"github.com/KyaptainJoyboy/Galpal/internal/platform/auth"
	"github.com/KyaptainJoyboy/Galpal/internal/platform/cdshooks"
	"github.com/KyaptainJoyboy/Galpal/internal/platform/db"
	"github.com/KyaptainJoyboy/Galpal/internal/platform/middleware"
	"github.com/KyaptainJoyboy/Galpal/migrations"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "galpal-server",
		Short: "GalPal lab interpretation API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tenantCmd())
	rootCmd.AddCommand(evaluateCmd())

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

func newLogger(dev bool) zerolog.Logger {
	if dev {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.IsDev())
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader, "X-Tenant-ID"},
	}))
	e.Use(echomw.BodyLimit(cfg.BodyLimit))
	e.Use(echomw.Secure())

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(auth.AuthSkipper))
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
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
			"engine":  interpretation.SystemVersion,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool, version))

	hooks := cdshooks.NewHandler()
	cdshooks.RegisterLabFindings(hooks, logger)
	hooks.RegisterRoutes(e)

	apiV1 := e.Group("/api/v1")
	apiV1.Use(db.TenantMiddleware(pool, cfg.DefaultTenant))
	apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	apiV1.Use(middleware.Audit(logger))

	patientSvc := patient.NewService(patient.NewRepoPG(pool))
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)

	engine := interpretation.NewAggregator(interpretation.Options{IncludeLipids: cfg.LipidPanelEnabled})
	labSvc := labanalysis.NewService(labanalysis.NewRepoPG(pool), patientSvc, engine, cfg.AnalysisTimeout, logger)
	labanalysis.NewHandler(labSvc).RegisterRoutes(apiV1)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("lipids", cfg.LipidPanelEnabled).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// migrationSource returns the embedded migrations, or dir when set.
func migrationSource(dir string) fs.FS {
	if dir == "" {
		return migrations.FS
	}
	return os.DirFS(dir)
}

// withMigrator connects to the database and hands fn a migrator for the
// --schema and --dir flags of cmd.
func withMigrator(cmd *cobra.Command, fn func(ctx context.Context, m *db.Migrator, schema string) error) error {
	schema, _ := cmd.Flags().GetString("schema")
	dir, _ := cmd.Flags().GetString("dir")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, db.NewMigrator(pool, migrationSource(dir)), schema)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}
	cmd.PersistentFlags().String("schema", "tenant_default", "Target schema for migrations")
	cmd.PersistentFlags().String("dir", "", "Read migrations from this directory instead of the embedded set")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator, schema string) error {
				fmt.Printf("Running migrations on schema: %s\n", schema)
				count, err := m.Up(ctx, schema)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator, schema string) error {
				statuses, err := m.Status(ctx, schema)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				fmt.Printf("Migration status for schema: %s\n", schema)
				printStatus(os.Stdout, statuses)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recently applied migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator, schema string) error {
				rolled, err := m.Down(ctx, schema)
				if err != nil {
					return fmt.Errorf("rollback failed: %w", err)
				}
				if rolled == nil {
					fmt.Println("Nothing to roll back.")
					return nil
				}
				fmt.Printf("Rolled back %s on schema %s.\n", rolled.Name, schema)
				return nil
			})
		},
	})

	return cmd
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage clinic tenants",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a clinic schema and apply migrations to it",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			skip, _ := cmd.Flags().GetBool("skip-migrations")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			var src fs.FS = migrations.FS
			if skip {
				src = nil
			}
			fmt.Printf("Creating tenant schema: tenant_%s\n", name)
			if err := db.CreateTenantSchema(ctx, pool, name, src); err != nil {
				return err
			}
			fmt.Println("Tenant created successfully.")
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Tenant identifier (alphanumeric)")
	createCmd.Flags().Bool("skip-migrations", false, "Create the schema without applying migrations")

	cmd.AddCommand(createCmd)
	return cmd
}
