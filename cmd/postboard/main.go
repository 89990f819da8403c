// Command postboard serves the blog API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/postboard/actions"
	"github.com/jonwraymond/postboard/auth"
	"github.com/jonwraymond/postboard/cache"
	"github.com/jonwraymond/postboard/config"
	"github.com/jonwraymond/postboard/health"
	"github.com/jonwraymond/postboard/observe"
	"github.com/jonwraymond/postboard/queries"
	"github.com/jonwraymond/postboard/resilience"
	"github.com/jonwraymond/postboard/server"
	"github.com/jonwraymond/postboard/store"
)

var version = "dev"

// Limiter health degrades past this many tracked clients.
const maxTrackedClients = 100000

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "postboard: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return err
	}

	obs, err := observe.NewObserver(ctx, cfg.Observer(version))
	if err != nil {
		return fmt.Errorf("observer: %w", err)
	}
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return fmt.Errorf("observe middleware: %w", err)
	}
	log := obs.Logger().With("main")

	st, err := store.Open(cfg.StoreOptions(obs.Logger().With("store")))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error(context.Background(), "close store", observe.Err(err))
		}
	}()

	mc := cache.NewMemoryCache(cache.MemoryConfig{MaxEntries: cfg.Cache.MaxEntries})
	c := cache.New(mc, cache.Policy{DefaultTTL: cfg.Cache.DefaultTTL, MaxTTL: cfg.Cache.MaxTTL}, mw)

	authn, err := auth.NewJWTAuthenticator(cfg.JWT())
	if err != nil {
		return fmt.Errorf("authenticator: %w", err)
	}

	var limiters *resilience.Limiters
	if cfg.RateLimit.Enabled {
		limiters = resilience.NewLimiters(cfg.Limiters())
	}

	agg := health.NewAggregator()
	agg.Register("store", health.NewStoreChecker(st))
	agg.Register("cache", health.NewCacheChecker(mc, cfg.Cache.MaxEntries))
	if limiters != nil {
		agg.Register("ratelimit", health.NewLimiterChecker(limiters, maxTrackedClients))
	}

	srv := server.New(server.Deps{
		Queries:       queries.New(c, st, cfg.Revalidate()),
		Actions:       actions.NewService(st, c.Invalidator(), mw, actions.WithBcryptCost(cfg.Auth.BcryptCost)),
		Authenticator: authn,
		Users:         st,
		PathCache:     c,
		Limiters:      limiters,
		Health:        agg,
		Metrics:       obs.MetricsHandler(),
		Middleware:    mw,
	}, server.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
		PathTTL:     cfg.Cache.PathTTL,
	})

	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info(gctx, "listening", observe.F("addr", cfg.Server.Addr), observe.F("version", version))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		log.Info(shutdownCtx, "shutting down")
		err := httpSrv.Shutdown(shutdownCtx)
		if oerr := obs.Shutdown(shutdownCtx); oerr != nil {
			log.Warn(shutdownCtx, "telemetry shutdown", observe.Err(oerr))
		}
		return err
	})

	if limiters != nil {
		g.Go(func() error {
			limiters.RunCleanup(gctx, cfg.RateLimit.CleanupInterval)
			return nil
		})
	}

	g.Go(func() error {
		every(gctx, cfg.Cache.PurgeInterval, func() {
			if n := mc.Purge(); n > 0 {
				log.Debug(gctx, "purged expired cache entries", observe.F("count", n))
			}
		})
		return nil
	})

	if !cfg.Store.InMemory && cfg.Store.GCInterval > 0 {
		g.Go(func() error {
			every(gctx, cfg.Store.GCInterval, func() {
				if err := st.RunGC(cfg.Store.GCDiscardRatio); err != nil {
					log.Warn(gctx, "value log gc", observe.Err(err))
				}
			})
			return nil
		})
	}

	return g.Wait()
}

// every calls fn each interval until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func()) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}
