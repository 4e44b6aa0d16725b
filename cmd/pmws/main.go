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
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/pmws/pmws/cmd/pmws/cli"
	"github.com/pmws/pmws/internal/app"
	"github.com/pmws/pmws/internal/auth"
	"github.com/pmws/pmws/internal/limiter"
	"github.com/pmws/pmws/internal/notify"
	"github.com/pmws/pmws/internal/observability"
	"github.com/pmws/pmws/internal/password"
	"github.com/pmws/pmws/internal/platform/cache"
	"github.com/pmws/pmws/internal/platform/db"
	"github.com/pmws/pmws/internal/rbac"
	"github.com/pmws/pmws/internal/roles"
	"github.com/pmws/pmws/internal/shared"
	"github.com/pmws/pmws/internal/token"
	"github.com/pmws/pmws/internal/users"
	"github.com/pmws/pmws/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(cli.RunJobs(ctx, asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}, os.Args[2:], os.Stdout, os.Stderr))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("pmws exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}

	tokens, err := token.NewService(token.Config{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		SessionTTL: cfg.SessionTokenTTL,
		ResetTTL:   cfg.ResetTokenTTL,
	})
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}
	templates, err := notify.NewTemplates(cfg.Branding())
	if err != nil {
		return err
	}
	sender, closer, err := newSender(cfg, logger, redisOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Warn("notification sender close", slog.Any("error", err))
		}
	}()

	attempts := limiter.New(redisClient, limiter.Config{
		MaxLoginFailures: cfg.LoginMaxAttempts,
		LoginWindow:      cfg.LoginWindow,
		MaxResetRequests: cfg.ResetMaxRequests,
		ResetWindow:      cfg.ResetWindow,
	})

	authService := auth.NewService(
		auth.NewRepository(pool),
		tokens,
		password.NewHasher(cfg.BcryptCost),
		sender,
		templates,
		logger,
		auth.Config{
			Support:          auth.SupportContact{Email: cfg.SupportEmail, Phone: cfg.SupportPhone},
			UniqueChecks:     cfg.SignupUniqueChecks,
			AllowedPlatforms: cfg.AllowedPlatforms,
		},
		auth.WithLimiter(attempts),
	)

	metrics := observability.NewMetrics()
	gate := rbac.Gate{Tokens: tokens, Logger: logger, Metrics: metrics}

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		AuthHandler:  auth.NewHandler(logger, authService, gate, cfg.RateLimitPerMinute),
		UsersHandler: users.NewHandler(logger, users.NewService(users.NewRepository(pool), authService, shared.NewAuditLogger(pool), logger), gate.Guard()),
		RolesHandler: roles.NewHandler(logger, roles.NewService(roles.NewRepository(pool), logger), gate.Guard()),
		JobHandler:   jobs.NewHandler(inspector, logger),
		Metrics:      metrics,
		Checks: map[string]app.Pinger{
			"postgres": pool,
			"redis":    app.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("notify_mode", cfg.NotifyMode))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newSender picks the notification transport for NOTIFY_MODE.
func newSender(cfg *app.Config, logger *slog.Logger, redisOpts asynq.RedisConnOpt) (notify.Sender, io.Closer, error) {
	switch cfg.NotifyMode {
	case app.NotifyDirect:
		brevo, err := notify.NewBrevoSender(cfg.Brevo(), logger)
		if err != nil {
			return nil, nil, err
		}
		return brevo, nopCloser{}, nil
	case app.NotifyQueue:
		client := jobs.NewClient(redisOpts)
		return notify.NewQueueSender(client), client, nil
	default:
		return notify.LogSender{Logger: logger}, nopCloser{}, nil
	}
}
