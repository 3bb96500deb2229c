package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/GoCodeAlone/workflow-plugin-soap/api"
	"github.com/GoCodeAlone/workflow-plugin-soap/config"
	"github.com/GoCodeAlone/workflow-plugin-soap/invoker"
	"github.com/GoCodeAlone/workflow-plugin-soap/observability"
	"github.com/GoCodeAlone/workflow-plugin-soap/piece"
	"github.com/GoCodeAlone/workflow-plugin-soap/pieces/harvest"
	soappiece "github.com/GoCodeAlone/workflow-plugin-soap/pieces/soap"
	"github.com/GoCodeAlone/workflow-plugin-soap/resolver"
	"github.com/GoCodeAlone/workflow-plugin-soap/soap"
	"github.com/GoCodeAlone/workflow-plugin-soap/store"
	"github.com/GoCodeAlone/workflow-plugin-soap/wsdl"
)

// service is the assembled application. closers run in reverse order.
type service struct {
	api      *api.Server
	registry *piece.Registry
	closers  []func(context.Context) error
	logger   *slog.Logger
}

func (s *service) close(ctx context.Context) {
	if s.api != nil {
		s.api.Stop()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			s.logger.Error("Shutdown error", "error", err)
		}
	}
}

// build wires config into the resolver, invoker, pieces and API server.
func build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *service, err error) {
	svc := &service{logger: logger}
	defer func() {
		if err != nil {
			svc.close(context.Background())
		}
	}()

	tracing := observability.NewTracing(cfg.Tracing, logger)
	if err := tracing.Start(ctx); err != nil {
		return nil, err
	}
	svc.closers = append(svc.closers, tracing.Stop)

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.MetricsConfig)
	}

	audit, err := openStore(ctx, cfg.Store, logger, svc)
	if err != nil {
		return nil, err
	}

	resolverOpts := []resolver.Option{resolver.WithMetrics(metrics), resolver.WithLogger(logger)}
	cache, err := openCache(ctx, cfg.Resolver.Cache, svc)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		resolverOpts = append(resolverOpts, resolver.WithCache(cache, cfg.Resolver.Cache.TTL))
	}

	fetcher := wsdl.NewHTTPFetcher(cfg.Resolver.FetchTimeout)
	res := resolver.New(wsdl.NewLoader(fetcher), resolverOpts...)
	inv := invoker.New(fetcher, soap.NewHTTPTransport(cfg.Invoker.Timeout),
		invoker.WithStore(audit),
		invoker.WithMetrics(metrics),
		invoker.WithLogger(logger),
		invoker.WithTimeout(cfg.Invoker.Timeout),
	)

	svc.registry = piece.NewRegistry()
	pieces := []*piece.Piece{
		soappiece.New(res, inv),
		harvest.New(harvest.Options{
			BaseURL:   cfg.Pieces.Harvest.BaseURL,
			UserAgent: cfg.Pieces.Harvest.UserAgent,
			HTTPClient: &http.Client{
				Timeout:   cfg.Invoker.Timeout,
				Transport: otelhttp.NewTransport(http.DefaultTransport),
			},
		}),
	}
	for _, p := range pieces {
		if err := svc.registry.Register(p); err != nil {
			return nil, fmt.Errorf("register piece %s: %w", p.Name, err)
		}
	}

	svc.api = api.NewServer(api.Deps{
		Engine:      piece.NewEngine(svc.registry, logger),
		Sessions:    res,
		Invocations: audit,
		Metrics:     metrics,
		Logger:      logger,
	}, api.Config{
		RequestsPerMinute: cfg.Server.RateLimit.RequestsPerMinute,
		Burst:             cfg.Server.RateLimit.Burst,
	})

	logger.Info("Service initialized",
		"pieces", len(pieces),
		"store", cfg.Store.Backend,
		"cache", cfg.Resolver.Cache.Backend,
		"metrics", cfg.Metrics.Enabled,
	)
	return svc, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger, svc *service) (store.InvocationStore, error) {
	if cfg.Backend != "sqlite" {
		return store.NewMemoryInvocationStore(), nil
	}
	s, err := store.OpenSQLiteInvocationStore(ctx, cfg.Path, logger)
	if err != nil {
		return nil, err
	}
	svc.closers = append(svc.closers, func(context.Context) error { return s.Close() })
	return s, nil
}

func openCache(ctx context.Context, cfg config.CacheConfig, svc *service) (resolver.CatalogCache, error) {
	switch cfg.Backend {
	case "memory":
		return resolver.NewMemoryCache(), nil
	case "redis":
		c, err := resolver.NewRedisCache(ctx, resolver.RedisCacheConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		svc.closers = append(svc.closers, func(context.Context) error { return c.Close() })
		return c, nil
	default:
		return nil, nil
	}
}
