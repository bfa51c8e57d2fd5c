package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"orderbook-aggregator/internal/config"
	"orderbook-aggregator/internal/depth"
	"orderbook-aggregator/internal/metrics"
	"orderbook-aggregator/internal/publish"
	"orderbook-aggregator/internal/server"
	"orderbook-aggregator/internal/state"
	"orderbook-aggregator/internal/venue"
)

func main() {
	_ = godotenv.Load() // best-effort: .env is optional

	path := os.Getenv("ORDERBOOK_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", path, err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.LogLevel)
	logger.Info("orderbook-aggregator starting",
		slog.Int("port", cfg.Port),
		slog.Int("levels", cfg.Levels),
		slog.String("merge_policy", cfg.MergePolicy),
		slog.String("pair", cfg.Pair),
	)

	reg := metrics.Init(logger)
	st := state.NewState(cfg.StaleAfter())
	srv := server.NewHTTPServer(cfg, st, metrics.Handler(reg), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional Redis sink
	var redisPub *publish.RedisPublisher
	if cfg.Redis.Addr != "" {
		rc := publish.NewRedisClient(cfg.Redis)
		defer rc.Close()
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		if err := rc.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable; will keep retrying on publish", slog.String("err", err.Error()))
		}
		pingCancel()
		redisPub = publish.NewRedisPublisher(rc, cfg.Redis, logger)
		go redisPub.Run(ctx)
	}

	// Ingestion queue: one sender per feed, one receiver for the aggregator.
	tx, rx := depth.NewQueue()
	var feeds sync.WaitGroup
	for _, v := range depth.Venues() {
		vc := cfg.Venue(v)
		if !vc.Enabled {
			continue
		}
		adapter, err := venue.New(v, cfg.Pair, vc)
		if err != nil {
			logger.Error("venue adapter", slog.String("venue", v.String()), slog.String("err", err.Error()))
			os.Exit(1)
		}
		feed := venue.NewFeed(adapter, tx.Clone(), st, logger, func(depth.Venue, bool) {
			srv.BroadcastStatus()
		})
		feeds.Add(1)
		go func() {
			defer feeds.Done()
			feed.Run(ctx)
		}()
	}
	tx.Close()

	// The aggregator task owns the book; everything downstream gets copies. It
	// runs until every feed has closed its sender, so shutdown drains the queue.
	aggregator := depth.NewAggregator(cfg.Levels, cfg.Policy())
	aggDone := make(chan struct{})
	go func() {
		defer close(aggDone)
		aggregator.Run(context.Background(), rx, func(v depth.View) {
			metrics.QueueDepth.Set(float64(rx.Len()))
			metrics.ObserveView(v)
			srv.Publish(v)
			if redisPub != nil {
				redisPub.Offer(v)
			}
		})
		logger.Info("aggregator stopped")
	}()

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: srv.Router(),
	}

	done := make(chan struct{})
	go func() {
		logger.Info("HTTP server listening", slog.Int("port", cfg.Port))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.String("err", err.Error()))
			cancel()
		}
		close(done)
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	shCtx, shCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shCancel()

	_ = httpSrv.Shutdown(shCtx)
	cancel()
	feeds.Wait()
	rx.Close()
	<-aggDone
	<-done
	logger.Info("bye")
}
