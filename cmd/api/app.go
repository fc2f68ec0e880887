package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/jwalitptl/patient-directory/config"
	"github.com/jwalitptl/patient-directory/internal/handler/alert"
	"github.com/jwalitptl/patient-directory/internal/handler/health"
	patientHandler "github.com/jwalitptl/patient-directory/internal/handler/patient"
	"github.com/jwalitptl/patient-directory/internal/handler/prometheus"
	"github.com/jwalitptl/patient-directory/internal/middleware"
	"github.com/jwalitptl/patient-directory/internal/router"
	"github.com/jwalitptl/patient-directory/internal/service/fetch"
	"github.com/jwalitptl/patient-directory/internal/service/notification"
	patientService "github.com/jwalitptl/patient-directory/internal/service/patient"
	"github.com/jwalitptl/patient-directory/internal/store"
	"github.com/jwalitptl/patient-directory/pkg/circuitbreaker"
	"github.com/jwalitptl/patient-directory/pkg/logger"
	"github.com/jwalitptl/patient-directory/pkg/messaging"
	"github.com/jwalitptl/patient-directory/pkg/messaging/redis"
	"github.com/jwalitptl/patient-directory/pkg/metrics"
)

// app is the composition root: it owns both stores and everything that
// reads or writes them.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	metrics   *metrics.Metrics
	patients  *store.PatientStore
	alerts    *store.AlertStore
	notifier  notification.Service
	publisher messaging.Publisher
	closer    io.Closer
	fetcher   *fetch.Orchestrator
	service   *patientService.Service
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stderr,
	})

	a := &app{
		cfg:       cfg,
		log:       log,
		metrics:   metrics.New(cfg.Monitoring.Namespace),
		patients:  store.NewPatientStore(),
		alerts:    store.NewAlertStore(),
		publisher: messaging.NopPublisher(),
	}
	a.notifier = notification.NewService(a.alerts)

	if cfg.Redis.URL != "" {
		broker, err := redis.NewRedisBroker(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize event broker: %w", err)
		}
		publisher := messaging.NewChannelPublisher(broker, cfg.Redis.Channel)
		a.publisher = publisher
		a.closer = publisher
		log.Info("publishing patient events", "channel", cfg.Redis.Channel)
	}

	a.fetcher = fetch.NewOrchestrator(fetch.Config{
		URL:     cfg.Source.URL,
		Timeout: cfg.Source.Timeout,
		Breaker: circuitbreaker.Settings{
			MaxFailures: cfg.Breaker.MaxFailures,
			Interval:    cfg.Breaker.Interval,
			Timeout:     cfg.Breaker.Timeout,
			OnChange: func(name, from, to string) {
				log.Warn("circuit breaker state changed", "breaker", name, "from", from, "to", to)
			},
		},
	}, a.patients, a.notifier, a.publisher, a.metrics, log)

	a.service = patientService.NewService(a.patients, a.notifier, a.publisher, cfg.Cache.ViewTTL, a.metrics, log)
	return a, nil
}

func (a *app) router() *router.Router {
	return router.NewRouter(
		router.RouterConfig{
			RateLimit: middleware.RateLimiterConfig{
				Enabled: a.cfg.RateLimit.Enabled,
				Rate:    rate.Limit(a.cfg.RateLimit.RequestsPerSecond),
				Burst:   a.cfg.RateLimit.Burst,
			},
			MetricsPath: a.cfg.Monitoring.MetricsPath,
		},
		a.log,
		prometheus.New(a.metrics),
		[]router.Handler{health.NewHandler(a.fetcher)},
		[]router.Handler{
			patientHandler.NewHandler(a.service, a.fetcher),
			alert.NewHandler(a.notifier),
		},
	)
}

// Close cancels in-flight fetches before releasing the broker.
func (a *app) Close() {
	a.fetcher.Close()
	a.notifier.Close()
	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			a.log.Error(err, "failed to close event broker")
		}
	}
}
