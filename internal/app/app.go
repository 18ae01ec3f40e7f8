// Package app wires stores, services and handlers from configuration.
package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jwalitptl/cupping-console/internal/config"
	"github.com/jwalitptl/cupping-console/internal/handler"
	couponHandler "github.com/jwalitptl/cupping-console/internal/handler/coupon"
	patientHandler "github.com/jwalitptl/cupping-console/internal/handler/patient"
	paymentHandler "github.com/jwalitptl/cupping-console/internal/handler/payment"
	pricingHandler "github.com/jwalitptl/cupping-console/internal/handler/pricing"
	reportHandler "github.com/jwalitptl/cupping-console/internal/handler/report"
	"github.com/jwalitptl/cupping-console/internal/middleware"
	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/repository"
	"github.com/jwalitptl/cupping-console/internal/repository/memory"
	"github.com/jwalitptl/cupping-console/internal/repository/postgres"
	"github.com/jwalitptl/cupping-console/internal/router"
	"github.com/jwalitptl/cupping-console/internal/service/changefeed"
	couponService "github.com/jwalitptl/cupping-console/internal/service/coupon"
	"github.com/jwalitptl/cupping-console/internal/service/invoice"
	"github.com/jwalitptl/cupping-console/internal/service/lifecycle"
	"github.com/jwalitptl/cupping-console/internal/service/partition"
	patientService "github.com/jwalitptl/cupping-console/internal/service/patient"
	paymentService "github.com/jwalitptl/cupping-console/internal/service/payment"
	"github.com/jwalitptl/cupping-console/internal/service/pricing"
	reportService "github.com/jwalitptl/cupping-console/internal/service/report"
	"github.com/jwalitptl/cupping-console/internal/service/treatment"
	"github.com/jwalitptl/cupping-console/pkg/circuitbreaker"
	"github.com/jwalitptl/cupping-console/pkg/logger"
	"github.com/jwalitptl/cupping-console/pkg/messaging"
	"github.com/jwalitptl/cupping-console/pkg/messaging/redis"
	"github.com/jwalitptl/cupping-console/pkg/metrics"
	"github.com/jwalitptl/cupping-console/pkg/worker"
)

const metricsNamespace = "cupping"

// Services groups the billing pipeline.
type Services struct {
	Patients   *patientService.Service
	Treatments *treatment.Service
	Catalog    *pricing.Catalog
	Coupons    *couponService.Service
	Payments   *paymentService.Service
	Invoices   *invoice.Service
	Reports    *reportService.Service
}

type App struct {
	Config   *config.Config
	Store    repository.Store
	Broker   messaging.Broker
	Services *Services
	Router   *router.Router
	Outbox   *worker.OutboxProcessor
	Feed     *changefeed.Subscriber
	Metrics  *metrics.Metrics
}

// NewStore opens the configured persistence backend.
func NewStore(cfg config.DatabaseConfig) (repository.Store, error) {
	switch cfg.Driver {
	case "memory":
		return memory.NewStore(), nil
	case "postgres":
		db, err := postgres.NewDB(cfg)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(db), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// NewBroker connects the change feed. Without Redis the feed stays in process.
func NewBroker(cfg config.RedisConfig, log *logger.Logger, zl *zap.Logger) (messaging.Broker, error) {
	if !cfg.Enabled {
		return messaging.NewLocalBroker(), nil
	}
	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultSettings("redis-broker"), zl)
	return redis.NewRedisBroker(redis.Config{
		URL:          cfg.URL,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}, cb, log.Zerolog())
}

// NewSynthesizer builds the invoice synthesizer from the clinic settings.
func NewSynthesizer(cfg *config.Config) (*invoice.Synthesizer, error) {
	loc, err := cfg.Clinic.Location()
	if err != nil {
		return nil, err
	}
	var payload invoice.PayloadStrategy = invoice.TextPayload{}
	if cfg.Invoice.Payload == config.PayloadTLV {
		payload = invoice.TLVPayload{}
	}
	return invoice.NewSynthesizer(invoice.SynthesizerConfig{
		SellerName: cfg.Clinic.SellerName,
		TaxID:      cfg.Clinic.TaxID,
		VATRate:    decimal.NewFromFloat(cfg.Clinic.VATRate),
		Location:   loc,
		Payload:    payload,
	}), nil
}

// New wires everything on top of store and broker. reg receives the metrics
// and backs /metrics; nil uses a private registry.
func New(cfg *config.Config, store repository.Store, broker messaging.Broker, log *logger.Logger, reg *prometheus.Registry) (*App, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := metrics.NewMetrics(metricsNamespace, reg)

	synth, err := NewSynthesizer(cfg)
	if err != nil {
		return nil, err
	}

	resolver := partition.NewResolver(store)
	machine := lifecycle.NewMachine(log, m)
	catalog := pricing.NewCatalog(store, cfg.Pricing.TierCacheTTL, log, m)
	coupons := couponService.NewService(store)

	svcs := &Services{
		Patients:   patientService.NewService(store, resolver, machine, log),
		Treatments: treatment.NewService(store, resolver, machine, catalog, log, m),
		Catalog:    catalog,
		Coupons:    coupons,
		Payments:   paymentService.NewService(store, resolver, machine, coupons, log, m),
		Invoices:   invoice.NewService(store, synth, invoice.NewQREncoder(cfg.Invoice.QRSize), log, m),
		Reports:    reportService.NewService(store, synth),
	}

	r, err := router.NewRouter(
		handler.NewHandler(store, reg),
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        cfg.RateLimit.RPS,
			RateBurst:        cfg.RateLimit.Burst,
			RequestTimeout:   cfg.Server.RequestTimeout,
			CORSConfig:       middleware.DefaultCORSConfig(cfg.Server.AllowedOrigins),
			MetricsPrefix:    metricsNamespace + "_http",
			Registerer:       reg,
			Logger:           log,
		},
		patientHandler.NewHandler(svcs.Patients, svcs.Treatments),
		pricingHandler.NewHandler(catalog, coupons),
		couponHandler.NewHandler(coupons),
		paymentHandler.NewHandler(svcs.Payments, svcs.Invoices),
		reportHandler.NewHandler(svcs.Reports),
	)
	if err != nil {
		return nil, err
	}
	r.Setup()

	feed := changefeed.NewSubscriber(broker, cfg.Redis.Channel, log)
	feed.InvalidateOn(model.TableTiers, catalog)

	return &App{
		Config:   cfg,
		Store:    store,
		Broker:   broker,
		Services: svcs,
		Router:   r,
		Outbox:   NewOutboxProcessor(cfg, store, broker, log, m),
		Feed:     feed,
		Metrics:  m,
	}, nil
}

func NewOutboxProcessor(cfg *config.Config, store repository.UnitOfWork, broker messaging.Broker, log *logger.Logger, m *metrics.Metrics) *worker.OutboxProcessor {
	return worker.NewOutboxProcessor(store, broker, worker.OutboxProcessorConfig{
		Channel:       cfg.Redis.Channel,
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
		Retention:     cfg.Outbox.Retention,
	}, log.WithFields(map[string]interface{}{"component": "outbox"}), m)
}
