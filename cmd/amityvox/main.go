// Package main is the CLI entrypoint for AmityVox. It provides subcommands for
// running the server (serve), managing database migrations (migrate), and
// printing version information (version). The serve command loads configuration,
// connects to PostgreSQL, NATS, and DragonflyDB, runs pending migrations, starts
// the HTTP API server, and handles graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/nats-io/nats.go"

	"github.com/amityvox/amityvox/internal/api"
	"github.com/amityvox/amityvox/internal/auth"
	"github.com/amityvox/amityvox/internal/cache"
	"github.com/amityvox/amityvox/internal/config"
	"github.com/amityvox/amityvox/internal/database"
	"github.com/amityvox/amityvox/internal/detector"
	"github.com/amityvox/amityvox/internal/glossary"
	"github.com/amityvox/amityvox/internal/media"
	"github.com/amityvox/amityvox/internal/messagestore"
	"github.com/amityvox/amityvox/internal/models"
	"github.com/amityvox/amityvox/internal/orchestrator"
	"github.com/amityvox/amityvox/internal/parser"
	"github.com/amityvox/amityvox/internal/presence"
	"github.com/amityvox/amityvox/internal/search"
	"github.com/amityvox/amityvox/internal/translator"
)

// Build-time variables set via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "migrate":
		if err := runMigrate(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "admin":
		if err := runAdmin(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		runVersion()
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// printUsage prints the CLI usage information.
func printUsage() {
	fmt.Println("AmityVox — Multilingual Chat Relay")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  amityvox <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve     Start the AmityVox server")
	fmt.Println("  migrate   Run database migrations")
	fmt.Println("  admin     Manage user accounts")
	fmt.Println("  version   Print version information")
	fmt.Println("  help      Show this help message")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println("  Config file:  amityvox.toml (or set AMITYVOX_CONFIG_PATH)")
	fmt.Println("  Env prefix:   AMITYVOX_ (e.g. AMITYVOX_DATABASE_URL)")
}

// runServe starts the full AmityVox server: loads config, connects to all
// services (PostgreSQL, NATS, DragonflyDB), runs migrations, wires the
// translation pipeline (components A-H), and starts the HTTP API server,
// handling graceful shutdown on SIGINT/SIGTERM.
func runServe() error {
	logger := setupLogger("info", "json")

	logger.Info("starting AmityVox",
		slog.String("version", version),
		slog.String("commit", commit),
	)

	cfgPath := configPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger = setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("configuration loaded", slog.String("path", cfgPath))

	ctx := context.Background()

	db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConnections, logger)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if err := database.MigrateUp(cfg.Database.URL, logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	natsConn, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer natsConn.Close()

	presenceCache, err := presence.New(cfg.Cache.URL, logger)
	if err != nil {
		return fmt.Errorf("connecting to cache: %w", err)
	}
	defer presenceCache.Close()

	sessionDuration, err := cfg.Auth.SessionDurationParsed()
	if err != nil {
		return fmt.Errorf("parsing session duration: %w", err)
	}

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		logger.Warn("auth.jwt_secret not set, generating an ephemeral one — sessions will not survive a restart; set AMITYVOX_AUTH_JWT_SECRET for production")
		jwtSecret, err = randomHex(32)
		if err != nil {
			return fmt.Errorf("generating ephemeral JWT secret: %w", err)
		}
	}

	authSvc := auth.NewService(auth.Config{
		Pool:            db.Pool,
		Cache:           presenceCache,
		JWTSecret:       []byte(jwtSecret),
		SessionDuration: sessionDuration,
		RegEnabled:      cfg.Auth.RegistrationEnabled,
		InviteOnly:      cfg.Auth.InviteOnly,
		RequireEmail:    cfg.Auth.RequireEmail,
		Logger:          logger,
	})

	// Media/S3 storage service (optional — attachments are opaque blobs
	// resolved to presigned URLs, never re-encoded by this service).
	var mediaSvc *media.Service
	if cfg.Storage.Endpoint != "" {
		maxBytes, err := cfg.Media.MaxUploadSizeBytes()
		if err != nil {
			return fmt.Errorf("parsing media.max_upload_size: %w", err)
		}
		svc, err := media.New(media.Config{
			Endpoint:    cfg.Storage.Endpoint,
			Bucket:      cfg.Storage.Bucket,
			AccessKey:   cfg.Storage.AccessKey,
			SecretKey:   cfg.Storage.SecretKey,
			UseSSL:      cfg.Storage.UseSSL,
			MaxUploadMB: maxBytes / (1024 * 1024),
		})
		if err != nil {
			logger.Warn("media service unavailable, attachment URLs disabled", slog.String("error", err.Error()))
		} else {
			if err := svc.EnsureBucket(ctx); err != nil {
				logger.Warn("could not ensure object storage bucket", slog.String("error", err.Error()))
			}
			mediaSvc = svc
			logger.Info("media service ready", slog.String("endpoint", cfg.Storage.Endpoint))
		}
	}

	// Meilisearch full-text search over message content (optional).
	var searchSvc *search.Client
	if cfg.Search.Enabled && cfg.Search.URL != "" {
		svc, err := search.New(ctx, cfg.Search.URL, cfg.Search.APIKey)
		if err != nil {
			logger.Warn("search service unavailable", slog.String("error", err.Error()))
		} else {
			searchSvc = svc
			logger.Info("search service ready", slog.String("url", cfg.Search.URL))
		}
	}

	// Wire the translation pipeline: parser -> detector -> glossary store ->
	// translation cache -> translator adapter -> orchestrator.
	contentParser := parser.New()
	langDetector := detector.New()
	glossaryStore := glossary.NewStore(db.Pool, cfg.Glossary.UseDefaultTerms)

	cacheTTL, err := cfg.TranslationCache.TTLParsed()
	if err != nil {
		return fmt.Errorf("parsing translation_cache.ttl: %w", err)
	}
	translationCache := cache.New(cacheTTL, cfg.TranslationCache.MaxEntries)

	translationTimeout, err := cfg.Translation.TimeoutParsed()
	if err != nil {
		return fmt.Errorf("parsing translation.timeout: %w", err)
	}
	translatorAdapter := translator.New(cfg.Translation.APIURL, cfg.Translation.APIKey, logger)
	translatorAdapter.Timeout = translationTimeout
	translatorAdapter.MaxAttempts = cfg.Translation.MaxAttempts
	translatorAdapter.Offline = cfg.Translation.Offline || !cfg.Translation.Enabled

	store := messagestore.New(db.Pool)

	orch := orchestrator.New(store, translationCache, contentParser, glossaryStore, translatorAdapter, presenceCache, logger)
	orch.NATS = natsConn
	workerSub, err := orch.StartWorkerPool(ctx)
	if err != nil {
		return fmt.Errorf("starting translation workers: %w", err)
	}

	srv := api.NewServer(db, cfg, authSvc, presenceCache, mediaSvc, searchSvc, store, orch, contentParser, langDetector, version, logger)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-shutdownCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	// Graceful shutdown: stop accepting new HTTP work, then drain the
	// translation worker subscription so no new jobs are taken, then sweep
	// expired translation-cache entries once. Translations already running
	// in worker goroutines are not waited for; NATS, the cache connection
	// and the database pool are closed by the deferred Close calls.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
	}
	if err := workerSub.Drain(); err != nil {
		logger.Warn("draining translation workers", slog.String("error", err.Error()))
	}
	translationCache.Cleanup()

	logger.Info("AmityVox stopped")
	return nil
}

// randomHex returns n random bytes hex-encoded, used to generate a
// throwaway JWT signing secret when none is configured.
func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// runMigrate handles the migrate subcommand with up/down/status operations.
func runMigrate() error {
	logger := setupLogger("info", "text")

	cfgPath := configPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	action := "up"
	if len(os.Args) >= 3 {
		action = os.Args[2]
	}

	switch action {
	case "up":
		return database.MigrateUp(cfg.Database.URL, logger)
	case "down":
		return database.MigrateDown(cfg.Database.URL, logger)
	case "status":
		v, dirty, err := database.MigrateStatus(cfg.Database.URL)
		if err != nil {
			return err
		}
		fmt.Printf("Migration version: %d\n", v)
		fmt.Printf("Dirty: %v\n", dirty)
		return nil
	default:
		return fmt.Errorf("unknown migrate action: %s (use: up, down, status)", action)
	}
}

// runAdmin handles admin subcommands for user account management.
func runAdmin() error {
	if len(os.Args) < 3 {
		fmt.Println("Usage: amityvox admin <action>")
		fmt.Println()
		fmt.Println("Actions:")
		fmt.Println("  create-user  Create a new user account")
		fmt.Println("  list-users   List all user accounts")
		return nil
	}

	logger := setupLogger("info", "text")

	cfgPath := configPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()
	db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConnections, logger)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	switch os.Args[2] {
	case "create-user":
		if len(os.Args) < 6 {
			return fmt.Errorf("usage: amityvox admin create-user <username> <password> <primary-language>")
		}
		username, password, lang := os.Args[3], os.Args[4], os.Args[5]

		hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}

		userID := models.NewULID().String()
		_, err = db.Pool.Exec(ctx,
			`INSERT INTO users (id, username, password_hash, primary_language, created_at) VALUES ($1, $2, $3, $4, now())`,
			userID, username, hash, lang)
		if err != nil {
			return fmt.Errorf("creating user: %w", err)
		}
		fmt.Printf("Created user %s (ID: %s)\n", username, userID)

	case "list-users":
		rows, err := db.Pool.Query(ctx,
			`SELECT id, username, primary_language, created_at FROM users ORDER BY created_at`)
		if err != nil {
			return fmt.Errorf("listing users: %w", err)
		}
		defer rows.Close()

		fmt.Printf("%-28s %-20s %-6s %s\n", "ID", "Username", "Lang", "Created")
		fmt.Println(strings.Repeat("-", 80))
		for rows.Next() {
			var id, username, lang string
			var createdAt time.Time
			if err := rows.Scan(&id, &username, &lang, &createdAt); err != nil {
				return fmt.Errorf("scanning user: %w", err)
			}
			fmt.Printf("%-28s %-20s %-6s %s\n", id, username, lang, createdAt.Format(time.RFC3339))
		}

	default:
		return fmt.Errorf("unknown admin action: %s", os.Args[2])
	}

	return nil
}

// runVersion prints version information and exits.
func runVersion() {
	fmt.Printf("AmityVox %s\n", version)
	fmt.Printf("  commit:     %s\n", commit)
	fmt.Printf("  built:      %s\n", buildDate)
}

// configPath returns the config file path from AMITYVOX_CONFIG_PATH env var
// or the default "amityvox.toml".
func configPath() string {
	if p := os.Getenv("AMITYVOX_CONFIG_PATH"); p != "" {
		return p
	}
	return "amityvox.toml"
}

// setupLogger creates a slog.Logger with the given level and format.
func setupLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
