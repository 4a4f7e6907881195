package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rcm/rcm/internal/config"
	"github.com/rcm/rcm/internal/domain/claim"
	"github.com/rcm/rcm/internal/domain/client"
	"github.com/rcm/rcm/internal/domain/employee"
	"github.com/rcm/rcm/internal/domain/patient"
	"github.com/rcm/rcm/internal/domain/sow"
	"github.com/rcm/rcm/internal/platform/db"
	"github.com/rcm/rcm/internal/platform/importer"
	"github.com/rcm/rcm/internal/platform/middleware"
	"github.com/rcm/rcm/internal/platform/secrets"
	"github.com/rcm/rcm/internal/platform/session"
)

const defaultBodyLimit = 1 << 20 // JSON endpoints; import uploads get their own limit

func main() {
	rootCmd := &cobra.Command{
		Use:   "rcm-server",
		Short: "RCM operations API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the RCM API server",
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
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Credential encryption. Validate guarantees a key outside development;
	// in development the encryptor may be nil and credential endpoints refuse.
	var encryptor *secrets.Encryptor
	if key := cfg.EncryptionKey(); key != nil {
		encryptor, err = secrets.NewEncryptor(key)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create credential encryptor")
		}
		logger.Info().Msg("credential encryption enabled")
	} else {
		logger.Warn().Msg("CREDENTIAL_ENCRYPTION_KEY not set; client credential storage is disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(echomw.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Metrics())
	e.Use(middleware.BodyLimit(defaultBodyLimit, cfg.ImportMaxBytes))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", db.HealthHandler(pool))
	e.GET("/metrics", echo.WrapHandler(middleware.MetricsHandler()))

	api := e.Group("/api")
	if cfg.IsDev() {
		api.Use(session.DevMiddleware())
	} else {
		api.Use(session.Middleware(cfg.AuthSigningSecret, cfg.AuthIssuer))
	}

	// Domain wiring
	clientRepo := client.NewRepoPG(pool)
	clientSvc := client.NewService(clientRepo, encryptor, logger)
	client.NewHandler(clientSvc).RegisterRoutes(api)

	txRunner := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}
	sowRepo := sow.NewRepoPG(pool)
	sowSvc := sow.NewService(sowRepo, clientRepo, txRunner, logger)
	sow.NewHandler(sowSvc).RegisterRoutes(api)

	claimRepo := claim.NewRepoPG(pool)
	claimSvc := claim.NewService(claimRepo, logger)
	claim.NewHandler(claimSvc).RegisterRoutes(api)

	employeeRepo := employee.NewRepoPG(pool)
	employeeSvc := employee.NewService(employeeRepo, logger)
	employee.NewHandler(employeeSvc).RegisterRoutes(api)

	patientRepo := patient.NewRepoPG(pool)
	patientSvc := patient.NewService(patientRepo, logger)
	patient.NewHandler(patientSvc).RegisterRoutes(api)

	// Bulk import wizard
	importStore := importer.NewStore(time.Duration(cfg.ImportSessionTTLMinutes) * time.Minute)
	importHandler := importer.NewHandler(importStore, map[string]importer.Submitter{
		importer.TargetClients: importer.NewClientSubmitter(clientSvc),
		importer.TargetClaims:  importer.NewClaimSubmitter(claimSvc, clientRepo),
	}, cfg.ImportMaxBytes, logger)
	importHandler.RegisterRoutes(api)

	// Graceful shutdown
	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(timeoutCtx); err != nil {
		return err
	}
	return nil
}
