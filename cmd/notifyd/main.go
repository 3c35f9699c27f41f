package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifykit/pkg/api"
	"github.com/dmitrymomot/notifykit/pkg/audit"
	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/config"
	"github.com/dmitrymomot/notifykit/pkg/confirmation"
	"github.com/dmitrymomot/notifykit/pkg/dispatch"
	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/history"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/preference"
	"github.com/dmitrymomot/notifykit/pkg/queue"
	"github.com/dmitrymomot/notifykit/pkg/ratelimit"
	redisconn "github.com/dmitrymomot/notifykit/pkg/redis"
)

func main() {
	if err := run(); err != nil {
		slog.Error("service exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var appCfg appConfig
	config.MustLoad(&appCfg)
	var pgCfg pg.Config
	config.MustLoad(&pgCfg)
	var redisCfg redisconn.Config
	config.MustLoad(&redisCfg)
	var emailCfg email.Config
	config.MustLoad(&emailCfg)
	var httpCfg api.Config
	config.MustLoad(&httpCfg)

	log := logger.New(
		logger.WithEnvironment(appCfg.Environment, appCfg.ServiceName),
	)
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	rdb, err := redisconn.Connect(ctx, redisCfg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer rdb.Close()

	// Durable stores, all postgres-backed.
	prefStore, err := preference.NewPGStore(pool)
	if err != nil {
		return err
	}
	queueStore, err := queue.NewPGStore(pool)
	if err != nil {
		return err
	}
	historyStore, err := history.NewPGStore(pool)
	if err != nil {
		return err
	}
	confStore, err := confirmation.NewPGStore(pool)
	if err != nil {
		return err
	}
	auditStorage, err := audit.NewPGStorage(pool)
	if err != nil {
		return err
	}

	// Frequency-cap windows live in redis so caps hold across instances.
	capStore, err := ratelimit.NewRedisStore(rdb)
	if err != nil {
		return err
	}
	hourly, err := ratelimit.NewWindow(capStore, time.Hour)
	if err != nil {
		return err
	}
	daily, err := ratelimit.NewWindow(capStore, 24*time.Hour)
	if err != nil {
		return err
	}

	auditLogger, err := audit.NewLogger(auditStorage, audit.WithLoggerFallback(log))
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := auditLogger.Close(flushCtx); err != nil {
			log.Error("audit flush failed", slog.Any("error", err))
		}
	}()
	auditReader, err := audit.NewReader(auditStorage)
	if err != nil {
		return err
	}

	// Channel gateways in the automatic fallback order.
	contacts := newRedisContacts(rdb)
	hub := channel.NewHub()
	defer hub.Close()

	push, err := channel.NewPushGateway(devPushProvider(log), contacts)
	if err != nil {
		return err
	}
	socket, err := channel.NewSocketGateway(hub)
	if err != nil {
		return err
	}
	mailer, err := newEmailSender(emailCfg, appCfg.Environment, log)
	if err != nil {
		return err
	}
	mail, err := channel.NewEmailGateway(mailer, contacts)
	if err != nil {
		return err
	}
	selector := channel.NewSelector(push, socket, mail)

	tracker, err := confirmation.NewTracker(confStore, prefStore,
		confirmation.WithTrackerLogger(log),
	)
	if err != nil {
		return err
	}

	resolver, err := preference.NewResolver(prefStore, selector,
		preference.WithFrequencyWindows(hourly, daily),
		preference.WithDeliveredCounter(tracker),
		preference.WithResolverLogger(log),
	)
	if err != nil {
		return err
	}

	dispatcher, err := dispatch.NewDispatcher(tracker,
		dispatch.WithAuditor(auditLogger),
		dispatch.WithDispatcherLogger(log),
	)
	if err != nil {
		return err
	}

	engine, err := dispatch.NewEngine(resolver, dispatcher, queueStore, historyStore, tracker,
		dispatch.WithMaxRetries(appCfg.MaxRetries),
		dispatch.WithRetryDelay(appCfg.RetryDelay),
		dispatch.WithWorkers(appCfg.Workers),
		dispatch.WithEngineAuditor(auditLogger),
		dispatch.WithEngineLogger(log),
	)
	if err != nil {
		return err
	}
	defer engine.Close()

	scheduler, err := queue.NewScheduler(queueStore, engine,
		queue.WithPollInterval(appCfg.PollInterval),
		queue.WithConcurrency(appCfg.Workers),
		queue.WithSchedulerLogger(log),
	)
	if err != nil {
		return err
	}

	replay, err := history.NewReplayEngine(historyStore, prefStore, socket,
		history.WithReplayLogger(log),
	)
	if err != nil {
		return err
	}
	// New socket sessions trigger offline replay.
	hub.OnConnect(replay.OnReconnect())

	pruner, err := history.NewPruner(historyStore,
		history.WithPruneInterval(appCfg.PruneInterval),
		history.WithPruneRetention(appCfg.PruneAfter),
		history.WithPrunerLogger(log),
	)
	if err != nil {
		return err
	}

	router := api.NewRouter(httpCfg, api.Deps{
		Engine:      engine,
		Preferences: prefStore,
		Tracker:     tracker,
		Replay:      replay,
		Hub:         hub,
		AuditReader: auditReader,
		AuditLogger: auditLogger,
		Logger:      log,
		Healthchecks: map[string]func(ctx context.Context) error{
			"postgres": pg.Healthcheck(pool),
			"redis":    redisconn.Healthcheck(rdb),
		},
	})

	server := &http.Server{
		Addr:         httpCfg.Addr,
		Handler:      router,
		ReadTimeout:  httpCfg.ReadTimeout,
		WriteTimeout: httpCfg.WriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(scheduler.Run(ctx))
	g.Go(func() error { return pruner.Run(ctx) })
	g.Go(func() error {
		log.LogAttrs(ctx, slog.LevelInfo, "http server listening",
			slog.String("addr", httpCfg.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// devPushProvider stands in for the real provider integration; the wire
// protocol is injected by the host deployment. It accepts every push so the
// rest of the pipeline is exercisable end to end.
func devPushProvider(log *slog.Logger) channel.PushProvider {
	return channel.PushProviderFunc(func(ctx context.Context, deviceToken string, content notification.Content) error {
		log.LogAttrs(ctx, slog.LevelDebug, "push delivered (dev provider)",
			slog.String("device_token", deviceToken),
			logger.Kind(content.Kind),
		)
		return nil
	})
}

func newEmailSender(cfg email.Config, environment string, log *slog.Logger) (email.Sender, error) {
	if cfg.PostmarkServerToken != "" {
		return email.NewPostmarkSender(cfg)
	}
	if environment == "production" {
		return nil, errors.New("email: postmark tokens are required in production")
	}
	log.Warn("postmark not configured, writing emails to disk",
		slog.String("dir", cfg.DevOutputDir))
	return email.NewDevSender(cfg.DevOutputDir), nil
}
