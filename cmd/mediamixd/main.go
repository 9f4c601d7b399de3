// Command mediamixd serves the marketing-analytics API: response-curve and
// contribution endpoints derived from a fitted media-mix model, fronted by
// a coalescing TTL cache, plus the marketing-mix dataset endpoints.
//
// Configuration comes from MEDIAMIX_-prefixed environment variables, see
// the config package for the full list. A typical local run:
//
//	export MEDIAMIX_MODEL_PATH=./artifacts/mmm_model.json
//	export MEDIAMIX_DATA_DIR=./data
//	./mediamixd
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonwraymond/mediamix/api"
	"github.com/jonwraymond/mediamix/auth"
	"github.com/jonwraymond/mediamix/cache"
	"github.com/jonwraymond/mediamix/config"
	"github.com/jonwraymond/mediamix/health"
	"github.com/jonwraymond/mediamix/mix"
	"github.com/jonwraymond/mediamix/model"
	"github.com/jonwraymond/mediamix/observe"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mediamixd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs, err := observe.NewObserver(ctx, observe.Config{
		ServiceName: "mediamix",
		Version:     version,
		Metrics:     observe.MetricsConfig{Enabled: cfg.MetricsExporter != "none", Exporter: cfg.MetricsExporter},
		Logging:     observe.LoggingConfig{Enabled: true, Level: cfg.LogLevel},
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()

	logger := obs.Logger()
	logger.Info(ctx, "starting",
		observe.F("addr", cfg.Addr),
		observe.F("model_path", cfg.ModelPath),
		observe.F("data_dir", cfg.DataDir))

	dataset, err := mix.Load(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	logger.Info(ctx, "dataset loaded",
		observe.F("rows", dataset.Rows()),
		observe.F("geos", len(dataset.Geos())))

	provider := model.NewProvider(cfg.ModelPath)

	cacheMetrics, err := observe.NewCacheMetrics(obs.Meter())
	if err != nil {
		return fmt.Errorf("cache metrics: %w", err)
	}
	curveCache := cache.New(cache.Config{
		Policy: cache.Policy{
			TTL:         cfg.Cache.TTL,
			WaitTimeout: cfg.Cache.WaitTimeout,
		},
		Logger:  logger,
		Metrics: cacheMetrics,
	})

	httpMetrics, err := observe.NewHTTPMetrics(obs.Meter())
	if err != nil {
		return fmt.Errorf("http metrics: %w", err)
	}

	var verifier *auth.Verifier
	if cfg.Auth.Issuer != "" {
		jwks := auth.NewJWKSProvider(auth.JWKSConfig{URL: cfg.Auth.JWKSURL})
		verifier = auth.NewVerifier(auth.VerifierConfig{
			Issuer:   cfg.Auth.Issuer,
			Audience: cfg.Auth.Audience,
		}, jwks)
		logger.Info(ctx, "authentication enabled", observe.F("issuer", cfg.Auth.Issuer))
	} else {
		logger.Warn(ctx, "authentication disabled, no issuer configured")
	}

	agg := health.NewAggregator(5 * time.Second)
	agg.Register(health.ModelChecker(provider))
	agg.Register(health.DatasetChecker(dataset))

	server := api.NewServer(api.Config{
		Logger:   logger,
		Metrics:  httpMetrics,
		Provider: provider,
		Dataset:  dataset,
		Cache:    curveCache,
		Verifier: verifier,
		Health:   agg,
	})

	if cfg.Warmup {
		go func() {
			compute := func(ctx context.Context, key cache.Key) (*model.ResponseCurveSet, error) {
				h, err := provider.Get(ctx)
				if err != nil {
					return nil, err
				}
				return h.ResponseCurves(key.ChannelIDs(), key.Points, key.Interval)
			}
			keys := cache.DefaultWarmKeys()
			warmed := curveCache.Warm(ctx, keys, compute)
			logger.Info(ctx, "startup warm-up finished",
				observe.F("warmed", warmed),
				observe.F("requested", len(keys)))
		}()
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "listening", observe.F("addr", cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
