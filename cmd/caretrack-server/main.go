package main

import (
	"context"
	crypto_rand "crypto/rand"
	"encoding/hex"
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
	"golang.org/x/term"

	"github.com/caretrack/caretrack/internal/config"
	"github.com/caretrack/caretrack/internal/domain/careservice"
	"github.com/caretrack/caretrack/internal/domain/client"
	"github.com/caretrack/caretrack/internal/domain/company"
	"github.com/caretrack/caretrack/internal/domain/documents"
	"github.com/caretrack/caretrack/internal/domain/identity"
	"github.com/caretrack/caretrack/internal/domain/masterdata"
	"github.com/caretrack/caretrack/internal/platform/apierror"
	"github.com/caretrack/caretrack/internal/platform/auth"
	"github.com/caretrack/caretrack/internal/platform/blobstore"
	"github.com/caretrack/caretrack/internal/platform/db"
	"github.com/caretrack/caretrack/internal/platform/middleware"
	"github.com/caretrack/caretrack/internal/platform/oplog"
	"github.com/caretrack/caretrack/internal/platform/tenancy"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "caretrack-server",
		Short: "CareTrack case management backend",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			if dir == "" {
				dir = cfg.MigrationsDir
			}
			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
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

			if dir == "" {
				dir = cfg.MigrationsDir
			}
			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
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

func createAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin user interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			name, _ := cmd.Flags().GetString("name")
			if username == "" {
				return fmt.Errorf("--username is required")
			}
			if name == "" {
				name = username
			}

			password, err := promptPassword()
			if err != nil {
				return err
			}
			if err := auth.ValidatePasswordStrength(password); err != nil {
				return err
			}

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

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			user := &identity.User{
				Username:     username,
				PasswordHash: hash,
				Name:         name,
				Role:         auth.RoleAdmin,
			}
			if err := identity.NewUserRepoPG(pool).Create(ctx, user); err != nil {
				if db.IsUniqueViolation(err) {
					return fmt.Errorf("username %q already exists", username)
				}
				return err
			}

			fmt.Printf("Admin user %q created (id %d).\n", user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().String("username", "", "Login name for the new admin")
	cmd.Flags().String("name", "", "Display name (defaults to the username)")
	return cmd
}

// promptPassword reads the password twice with terminal echo disabled.
func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("create-admin requires an interactive terminal")
	}

	fmt.Print("Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	fmt.Print("Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	jwtSecret := []byte(cfg.JWTSecret)
	if len(jwtSecret) == 0 {
		// Development fallback. Tokens die with the process.
		buf := make([]byte, 32)
		if _, err := crypto_rand.Read(buf); err != nil {
			logger.Fatal().Err(err).Msg("failed to generate dev JWT secret")
		}
		jwtSecret = []byte(hex.EncodeToString(buf))
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Operational log writer shared by the audit, error and perf paths.
	logs := oplog.NewWriter(pool, logger)

	// Token issuer
	issuer := auth.NewTokenIssuer(
		jwtSecret,
		time.Duration(cfg.JWTAccessTTLMin)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLHrs)*time.Hour,
	)

	// Blob storage backend for client documents
	var store blobstore.BlobStore
	switch cfg.StorageBackend {
	case "azure":
		store = blobstore.NewAzureStore(blobstore.AzureConfig{
			AccountName:      cfg.AzureAccountName,
			ConnectionString: cfg.AzureConnString,
		})
	case "memory":
		store = blobstore.NewMemoryStore()
	default:
		store = blobstore.NewLocalStore(cfg.DocumentsRootPath)
	}
	logger.Info().Str("backend", cfg.StorageBackend).Msg("document storage configured")

	// Repositories
	companyRepo := company.NewCompanyRepoPG(pool)
	userRepo := identity.NewUserRepoPG(pool)
	masterDataRepo := masterdata.NewMasterDataRepoPG(pool)
	personRepo := client.NewPersonInfoRepoPG(pool)
	serviceRepo := careservice.NewClientServiceRepoPG(pool)
	documentRepo := documents.NewDocumentRepoPG(pool)

	// Services
	companySvc := company.NewService(companyRepo)
	identitySvc := identity.NewService(userRepo, issuer, logs)
	masterDataSvc := masterdata.NewService(masterDataRepo)
	clientSvc := client.NewService(personRepo)
	careServiceSvc := careservice.NewService(serviceRepo, masterDataSvc, pool)
	documentSvc := documents.NewService(documentRepo, store, logger)

	// Bootstrap admin account when the database is empty
	if cfg.AutoCreateAdmin {
		created, err := identitySvc.EnsureAdmin(ctx, "admin", "Administrator", cfg.InitialAdminPass)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to bootstrap admin user")
		}
		if created {
			logger.Info().Str("username", "admin").Msg("bootstrap admin user created")
		}
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apierror.HTTPErrorHandler(logger, logs)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.SanitizeWithLogger(logger))
	e.Use(middleware.BodyLimit("1M", "6M"))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(middleware.Performance(logs))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// API group
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Handlers
	companyHandler := company.NewHandler(companySvc)
	identityHandler := identity.NewHandler(identitySvc)
	masterDataHandler := masterdata.NewHandler(masterDataSvc)
	clientHandler := client.NewHandler(clientSvc)
	careServiceHandler := careservice.NewHandler(careServiceSvc)
	documentHandler := documents.NewHandler(documentSvc)

	// Login and refresh are the only unauthenticated endpoints.
	identityHandler.RegisterPublicRoutes(apiV1)

	// Account routes (logout, change-password, user administration) need a
	// verified token but no segment scope, so users not yet assigned to a
	// company can still manage their own account.
	authed := apiV1.Group("",
		auth.JWTMiddleware(jwtSecret),
		middleware.Audit(logger, logs),
	)
	identityHandler.RegisterRoutes(authed)

	// Record-level routes additionally run with the caller's segment scope
	// resolved.
	scoped := authed.Group("",
		tenancy.SegmentFilter(companySvc),
		tenancy.RequireSegmentAccess(),
	)
	companyHandler.RegisterRoutes(scoped)
	masterDataHandler.RegisterRoutes(scoped)
	clientHandler.RegisterRoutes(scoped)
	careServiceHandler.RegisterRoutes(scoped)
	documentHandler.RegisterRoutes(scoped)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
