package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Sternrassler/ree-datos/internal/config"
	"github.com/Sternrassler/ree-datos/pkg/cache"
	"github.com/Sternrassler/ree-datos/pkg/client"
	"github.com/Sternrassler/ree-datos/pkg/fetch"
	"github.com/Sternrassler/ree-datos/pkg/logging"
	"github.com/Sternrassler/ree-datos/pkg/metrics"
	"github.com/Sternrassler/ree-datos/pkg/ratelimit"
	"github.com/Sternrassler/ree-datos/pkg/storage"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func run(ctx context.Context, variant string, opts options, out io.Writer) error {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return err
	}

	logger := logging.Setup(logging.Config{
		Level:   logging.LogLevel(cfg.Log.Level),
		Pretty:  cfg.Log.Pretty,
		Service: "ree-loader",
	})

	if opts.metricsAddr != "" {
		srv := startMetricsServer(opts.metricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("metrics server shutdown failed")
			}
		}()
	}

	descriptors, err := resolveDescriptors(cfg, opts)
	if err != nil {
		return err
	}

	c, closeClient, err := newClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeClient()

	bf := fetch.NewBatchFetcher(c, fetch.Config{
		MaxConcurrency: cfg.REE.MaxConcurrency,
		Timeout:        cfg.REE.Timeout,
	})

	headers := http.Header{}
	headers.Set("Accept", "application/json")
	headers.Set("Content-Type", "application/json")

	var (
		table   storage.Table
		results any
	)
	switch variant {
	case variantGeneration:
		r, err := bf.FetchAllGeneration(ctx, descriptors, headers)
		if err != nil {
			return err
		}
		table, results = storage.CategorizedTable(opts.table, r), r
	default:
		r, err := bf.FetchAll(ctx, descriptors, headers)
		if err != nil {
			return err
		}
		table, results = storage.FlatTable(opts.table, r), r
	}

	switch {
	case opts.jsonOut:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case len(table.Rows) == 0:
		logger.Warn().Str("table", table.Name).Msg("No rows to load")
		return nil
	case opts.dryRun:
		script, err := storage.InsertScript(table)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, script)
		return err
	}

	if err := cfg.ValidateDatabase(); err != nil {
		return err
	}
	store, err := storage.Open(ctx, cfg.Database, logging.NewLogger("storage"))
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = store.Insert(ctx, table)
	return err
}

func resolveDescriptors(cfg *config.Config, opts options) ([]fetch.Descriptor, error) {
	if opts.descriptors != "" {
		return fetch.LoadDescriptors(opts.descriptors)
	}

	endpoint := opts.endpoint
	if endpoint == "" {
		endpoint = cfg.REE.Endpoint
	}

	comms := fetch.Communities()
	if len(opts.communities) > 0 {
		comms = comms[:0]
		for _, code := range opts.communities {
			c, ok := fetch.CommunityByCode(code)
			if !ok {
				return nil, fmt.Errorf("unknown community geo id %d", code)
			}
			comms = append(comms, c)
		}
	}

	return fetch.BuildDescriptors(endpoint, comms, opts.years, nil)
}

// newClient builds the API client. A configured but unreachable Redis
// disables the cache instead of failing the run.
func newClient(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*client.Client, func(), error) {
	clientCfg := client.DefaultConfig()
	clientCfg.Timeout = cfg.REE.Timeout
	clientCfg.MaxRetries = cfg.REE.MaxRetries
	clientCfg.UserAgent = cfg.REE.UserAgent
	clientCfg.Limiter = ratelimit.New(cfg.REE.RateLimit, cfg.REE.RateBurst)

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		redisClient = redis.NewClient(redisOpts)

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, response cache disabled")
			redisClient.Close()
			redisClient = nil
		} else {
			clientCfg.Cache = cache.NewManager(redisClient, cfg.Redis.CacheTTL)
		}
	}

	c, err := client.New(clientCfg)
	if err != nil {
		if redisClient != nil {
			redisClient.Close()
		}
		return nil, nil, err
	}

	closeFn := func() {
		c.Close()
		if redisClient != nil {
			redisClient.Close()
		}
	}
	return c, closeFn, nil
}

func startMetricsServer(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", healthHandler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	return srv
}
