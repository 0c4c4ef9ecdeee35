package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carehome-go/internal/alerts"
	"carehome-go/internal/config"
	"carehome-go/internal/handlers"
	"carehome-go/internal/logger"
	"carehome-go/internal/metrics"
	"carehome-go/internal/models"
	"carehome-go/internal/notify"
	"carehome-go/internal/store"
	"carehome-go/internal/sweep"
	"carehome-go/web"

	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "carehome"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app holds the wired service components shared by every command.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	pg        *store.PostgresStore
	redis     *store.RedisStore
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	sink      *alerts.Sink
	sweeper   *sweep.Sweeper
	scheduler *sweep.Scheduler
	closers   []func() error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: serviceName,
		Version: version,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &app{cfg: cfg, log: log}

	a.pg, err = store.NewPostgresStore(cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MaxIdle)
	if err != nil {
		return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	a.closers = append(a.closers, a.pg.Close)

	a.redis = store.NewRedisStore(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, a.redis.Close)
	if err := a.redis.Ping(ctx); err != nil {
		log.Warn("redis unreachable at startup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)

	ruleCfg, err := config.LoadRules(cfg.RulesFile, cfg.Timezone)
	if err != nil {
		return nil, err
	}

	notifiers := []alerts.Notifier{notify.NewFeed(a.redis)}
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		notifiers = append(notifiers, notify.NewWebPush(a.pg, notify.WebPushOptions{
			VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
			Subject:         cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}, log))
	} else {
		log.Info("VAPID keys not set, web push disabled")
	}
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := notify.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.AlertTopic, log)
		if err != nil {
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		notifiers = append(notifiers, kp)
		a.closers = append(a.closers, kp.Close)
	}

	a.sink = alerts.NewSink(a.pg, a.metrics, log, notifiers...)
	a.sweeper = sweep.NewSweeper(a.pg, a.sink, ruleCfg, a.metrics, log)
	a.scheduler = sweep.NewScheduler(a.sweeper, a.redis, sweep.Jobs(a.pg, sweep.Intervals{
		Care:       cfg.Sweep.CareInterval,
		Night:      cfg.Sweep.NightInterval,
		Medication: cfg.Sweep.MedicationInterval,
	}), a.metrics, log)

	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close", zap.Error(err))
		}
	}
	a.log.Sync()
}

func (a *app) handler(ctx context.Context) (http.Handler, error) {
	secret := a.cfg.SessionSecret
	if secret == "" {
		var err error
		if secret, err = models.GenerateToken(); err != nil {
			return nil, err
		}
		a.log.Warn("SESSION_SECRET not set, sessions will not survive a restart")
	}
	cookies := sessions.NewCookieStore([]byte(secret))
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   12 * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	h := handlers.NewHandler(handlers.Stores{
		Residents: a.pg,
		CareLogs:  a.pg,
		Alerts:    a.pg,
		Incidents: a.pg,
		Admin:     a.pg,
		Feed:      a.redis,
	}, cookies, a.log)
	h.Sink = a.sink
	h.Sweeps = a.scheduler
	h.Rules = a.sweeper.Rules
	h.VAPIDPublicKey = a.cfg.Push.VAPIDPublicKey
	h.WebhookSecret = a.cfg.WebhookSecret
	h.HealthChecks = map[string]func(context.Context) error{
		"postgres": a.pg.Ping,
		"redis":    a.redis.Ping,
	}

	tmpl, adminTmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}
	h.Tmpl = tmpl
	h.AdminTmpl = adminTmpl

	h.InitSession(ctx, a.cfg.AdminPassword)

	mux := http.NewServeMux()
	h.Routes(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))
	return mux, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.pg.RunMigrations(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	a.log.Info("database migrations completed")

	mux, err := a.handler(ctx)
	if err != nil {
		return err
	}

	if a.cfg.RulesFile != "" {
		go func() {
			err := config.WatchRules(ctx, a.cfg.RulesFile, a.cfg.Timezone, a.log, a.sweeper.SetRules)
			if err != nil {
				a.log.Error("rules watcher stopped", zap.Error(err))
			}
		}()
	}

	done := make(chan struct{})
	if noScheduler {
		close(done)
	} else {
		go func() {
			defer close(done)
			a.scheduler.Run(ctx)
		}()
	}

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			stop()
			<-done
			return err
		}
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("http shutdown", zap.Error(err))
	}
	<-done
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.scheduler.Trigger(ctx, args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.pg.RunMigrations(cmd.Context()); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	a.log.Info("database migrations completed")
	return nil
}
