package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/davidbz/venicedesk/internal/advisory"
	"github.com/davidbz/venicedesk/internal/catalog"
	"github.com/davidbz/venicedesk/internal/config"
	"github.com/davidbz/venicedesk/internal/credential"
	"github.com/davidbz/venicedesk/internal/domain"
	"github.com/davidbz/venicedesk/internal/http"
	"github.com/davidbz/venicedesk/internal/http/middleware"
	"github.com/davidbz/venicedesk/internal/observability"
	"github.com/davidbz/venicedesk/internal/provider/venice"
	"github.com/davidbz/venicedesk/internal/stats"
	statsredis "github.com/davidbz/venicedesk/internal/stats/redis"
)

const (
	shutdownTimeout = 10 * time.Second
	startupTimeout  = 15 * time.Second
)

func main() {
	container := buildContainer()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := container.Invoke(func(server *http.Server, logger *zap.Logger) error {
		defer func() { _ = logger.Sync() }()

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})
	if err != nil {
		log.Fatalf("Failed to run application: %v", err)
	}
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Provide(observability.NewEventBus, dig.As(new(domain.EventPublisher))); err != nil {
		log.Fatalf("Failed to provide event bus: %v", err)
	}

	// Venice upstream
	if err := container.Provide(
		func(cfg *venice.Config) *venice.Client {
			return venice.NewClient(*cfg)
		},
		dig.As(
			new(domain.Provider),
			new(domain.CatalogProvider),
			new(domain.CharacterProvider),
			new(domain.AccountProvider),
		),
	); err != nil {
		log.Fatalf("Failed to provide Venice client: %v", err)
	}

	// Credential store
	if err := container.Provide(func(cfg *venice.Config) domain.CredentialStore {
		return credential.NewMemoryStore(cfg.APIKey)
	}); err != nil {
		log.Fatalf("Failed to provide credential store: %v", err)
	}

	// Pricing
	if err := container.Provide(domain.NewInMemoryPricingRegistry, dig.As(new(domain.PricingRegistry))); err != nil {
		log.Fatalf("Failed to provide pricing registry: %v", err)
	}
	if err := container.Provide(domain.NewStandardCostCalculator, dig.As(new(domain.CostCalculator))); err != nil {
		log.Fatalf("Failed to provide cost calculator: %v", err)
	}

	// Stats, advisories and catalog
	if err := container.Provide(newStatsRecorder, dig.As(new(domain.StatsRecorder))); err != nil {
		log.Fatalf("Failed to provide stats accumulator: %v", err)
	}
	if err := container.Provide(
		func(publisher domain.EventPublisher, cfg *advisory.Config) *advisory.Registry {
			return advisory.NewRegistry(publisher, *cfg)
		},
		dig.As(new(domain.Advisor)),
	); err != nil {
		log.Fatalf("Failed to provide advisory registry: %v", err)
	}
	if err := container.Provide(func(
		provider domain.CatalogProvider,
		pricing domain.PricingRegistry,
		cfg *catalog.Config,
	) *catalog.Catalog {
		return catalog.New(provider, pricing, *cfg)
	}); err != nil {
		log.Fatalf("Failed to provide model catalog: %v", err)
	}

	// Domain Services
	if err := container.Provide(domain.NewWorkspaceService); err != nil {
		log.Fatalf("Failed to provide workspace service: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(http.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(http.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	// Warm the catalog so model pricing is known before the first call.
	if err := container.Invoke(warmCatalog); err != nil {
		log.Fatalf("Failed to warm model catalog: %v", err)
	}

	return container
}

// newStatsRecorder builds the accumulator, mirroring it to Redis when configured.
func newStatsRecorder(
	_ *zap.Logger,
	cfg *config.StatsConfig,
	redisCfg *config.RedisConfig,
) (*stats.Accumulator, error) {
	if !redisCfg.Enabled() {
		return stats.NewAccumulator(cfg.Capacity), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	client := goredis.NewClient(&goredis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	sink := statsredis.NewHistorySink(client, redisCfg.StatsKey, cfg.Capacity)
	if err := sink.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", redisCfg.Addr, err)
	}

	accumulator := stats.NewAccumulator(cfg.Capacity, stats.WithSink(sink))

	restored, err := accumulator.Restore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to restore stats history: %w", err)
	}

	observability.FromContext(ctx).Info("stats history restored",
		observability.Int("records", restored),
		observability.String("key", redisCfg.StatsKey),
	)

	return accumulator, nil
}

// warmCatalog loads the catalog with the seeded credential, if any. Failures
// are logged; the UI can retry through /v1/models.
func warmCatalog(_ *zap.Logger, store domain.CredentialStore, models *catalog.Catalog) {
	cred, ok := store.Get()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	if _, err := models.Models(ctx, cred); err != nil {
		observability.FromContext(ctx).Warn("model catalog unavailable at startup", observability.Error(err))
	}
}
