// Package main checks a configured list of product pages once and notifies
// each product's targets the first time it comes in stock.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"instock-notifier/config"
	"instock-notifier/extract"
	"instock-notifier/fetch"
	"instock-notifier/gate"
	"instock-notifier/poll"
	"instock-notifier/publish"
	"instock-notifier/storage"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
)

func main() {
	logger := newLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Stdout).
		With("run_id", uuid.NewString())
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, logger)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run executes one batch. Only configuration and setup failures are returned;
// per-product failures are logged and never fail the run.
func run(ctx context.Context, logger *slog.Logger) error {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.json"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	logger.Info("Config loaded",
		"path", path,
		"products", len(cfg.Products),
		"cooldown", cfg.Cooldown.String(),
		"extraction", cfg.Extraction,
		"transport", cfg.Transport)

	extractor, err := extract.ForStrategy(cfg.Extraction, logger)
	if err != nil {
		return err
	}

	transport, err := newTransport(cfg, logger)
	if err != nil {
		return err
	}

	store, closeStore, err := newStore(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("Failed to close store", "error", err)
		}
	}()

	provider, err := newProvider(ctx, logger)
	if err != nil {
		return err
	}

	fetcher := fetch.New(&fetch.Config{
		Transport: transport,
		Logger:    logger,
		UserAgent: cfg.UserAgent,
		Host:      cfg.Host,
		Timeout:   cfg.FetchTimeout,
	})
	monitor := poll.New(
		fetcher,
		extractor,
		gate.New(store, cfg.Cooldown, logger),
		publish.New(provider, cfg.StoreName, logger),
		logger,
	)

	monitor.Run(ctx, cfg.Products)
	return nil
}

func newLogger(level, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func newTransport(cfg *config.Config, logger *slog.Logger) (fetch.Transport, error) {
	if cfg.Transport == config.TransportTLSClient {
		return fetch.NewTLSTransport(cfg.FetchTimeout, logger)
	}
	// One client for every fetch; the per-request timeout comes from the fetch context.
	return fetch.NewHTTPTransport(&http.Client{}, logger), nil
}

// newStore selects the suppression backend from STORE_BACKEND
// (local, gcs, redis, sqlite). The returned func releases its resources.
func newStore(ctx context.Context, logger *slog.Logger) (gate.Store, func() error, error) {
	noop := func() error { return nil }

	switch backend := os.Getenv("STORE_BACKEND"); backend {
	case "", "local":
		localPath := os.Getenv("LOCAL_STORAGE")
		if localPath == "" {
			localPath = "./data"
		}
		if err := os.MkdirAll(localPath, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create local storage directory: %w", err)
		}
		logger.Info("Using local suppression storage", "storage_path", localPath)
		return storage.New(nil, "", localPath, logger), noop, nil

	case "gcs":
		bucket := os.Getenv("STORAGE_BUCKET")
		if bucket == "" {
			return nil, nil, errors.New("STORAGE_BUCKET environment variable required for gcs backend")
		}
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize storage client: %w", err)
		}
		logger.Info("Using Cloud Storage suppression storage", "bucket", bucket)
		return storage.New(client, bucket, "", logger), client.Close, nil

	case "redis":
		redisURL := os.Getenv("REDIS_URL")
		if redisURL == "" {
			redisURL = "redis://127.0.0.1:6379"
		}
		rs, err := storage.NewRedisStore(ctx, redisURL, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using Redis suppression storage")
		return rs, rs.Close, nil

	case "sqlite":
		path := os.Getenv("SQLITE_PATH")
		if path == "" {
			path = "./data/instock.db"
		}
		ss, err := storage.OpenSQLite(path, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using SQLite suppression storage", "path", path)
		return ss, ss.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", backend)
	}
}

// newProvider selects the notification provider from NOTIFY_PROVIDER (log, gmail, brevo).
func newProvider(ctx context.Context, logger *slog.Logger) (publish.Provider, error) {
	switch name := os.Getenv("NOTIFY_PROVIDER"); name {
	case "", "log":
		logger.Info("Mock notification mode enabled, messages are only logged")
		return publish.NewLogProvider(logger), nil

	case "gmail":
		svc, err := publish.NewGmailService(ctx, os.Getenv("GOOGLE_CREDENTIALS_JSON"))
		if err != nil {
			return nil, err
		}
		return publish.NewGmailProvider(svc, logger), nil

	case "brevo":
		apiKey := os.Getenv("BREVO_API_KEY")
		from := os.Getenv("FROM_ADDRESS")
		if apiKey == "" || from == "" {
			return nil, errors.New("BREVO_API_KEY and FROM_ADDRESS environment variables required for brevo provider")
		}
		return publish.NewBrevoProvider(apiKey, from, os.Getenv("FROM_NAME"), logger), nil

	default:
		return nil, fmt.Errorf("unknown NOTIFY_PROVIDER %q", name)
	}
}
