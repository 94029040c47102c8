package main // HTTP server entry point

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hybrid-auth/internal/config"
	"github.com/iliyamo/hybrid-auth/internal/database"
	"github.com/iliyamo/hybrid-auth/internal/handler"
	"github.com/iliyamo/hybrid-auth/internal/logging"
	"github.com/iliyamo/hybrid-auth/internal/metrics"
	"github.com/iliyamo/hybrid-auth/internal/middleware"
	"github.com/iliyamo/hybrid-auth/internal/model"
	"github.com/iliyamo/hybrid-auth/internal/queue"
	"github.com/iliyamo/hybrid-auth/internal/repository"
	"github.com/iliyamo/hybrid-auth/internal/router"
	"github.com/iliyamo/hybrid-auth/internal/service"
	"github.com/iliyamo/hybrid-auth/internal/session"
	"github.com/iliyamo/hybrid-auth/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(os.Stderr, "").Error(context.Background(), "invalid configuration", "err", err)
		os.Exit(1)
	}
	log := logging.New(os.Stdout, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log logging.Logger) error {
	db, err := database.Open(ctx, cfg.DSN(), cfg.Pool())
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	m := metrics.New()
	cookies := cfg.Cookies()

	// Audit events go to RabbitMQ when a broker is configured.
	var audit queue.Publisher = queue.NoopPublisher{}
	if ac := config.LoadAuditConfig(); ac.URL != "" {
		amqpPub := queue.NewAMQPPublisher(ac.URL, ac.Queue, log)
		defer amqpPub.Close()
		async := queue.NewAsync(amqpPub, 256, log)
		defer async.Close()
		audit = async
	}

	users := repository.NewUserRepo(db)
	hasher := utils.NewHasher(cfg.BcryptCost, cfg.HashWorkers).WithObserver(m.ObserveHash)
	accounts := service.NewAccounts(users, hasher, audit, log)
	tokens := utils.NewTokenService(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)

	sessions := session.NewManager(repository.NewSessionRepo(db), cfg.SessionTTL, cookies, log)
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go sessions.RunJanitor(janitorCtx, cfg.SessionPurgeInterval)

	rl := config.LoadRateLimitConfig()
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb != nil {
		defer rdb.Close()
	} else {
		log.Warn(ctx, "redis unavailable, rate limiting is per-process")
	}

	guards := router.Guards{
		RateLimit:    middleware.RateLimit(rl, middleware.NewLimiter(rl, rdb, log), m),
		CSRF:         middleware.CSRF(cookies, m),
		Authenticate: middleware.Authenticate(sessions, tokens, m),
		Authorize: func(roles ...model.Role) echo.MiddlewareFunc {
			return middleware.Authorize(m, roles...)
		},
	}
	// Without a trusted proxy the socket peer is the client; forwarding
	// headers would let a caller pick its own rate-limit key.
	var ipx echo.IPExtractor
	if cfg.TrustProxy {
		ipx = echo.ExtractIPFromXFFHeader()
	}
	e := router.New(router.Options{
		Log: log,
		Auth: &handler.AuthHandler{
			Accounts: accounts,
			Sessions: sessions,
			Tokens:   tokens,
			Cookies:  cookies,
			Audit:    audit,
			Metrics:  m,
			Log:      log,
		},
		Admin:       &handler.AdminHandler{Accounts: accounts},
		Guards:      guards,
		Ready:       handler.Ready(db),
		Metrics:     m.Handler(),
		IPExtractor: ipx,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", cfg.Addr(), "env", cfg.Env)
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
