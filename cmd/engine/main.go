package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/utkarsh205-ui/order-execution-engine/config"
	"github.com/utkarsh205-ui/order-execution-engine/pkg/engine"
	"github.com/utkarsh205-ui/order-execution-engine/pkg/engine/repo"
	"github.com/utkarsh205-ui/order-execution-engine/pkg/gateway"
	postgres_wrapper "github.com/utkarsh205-ui/order-execution-engine/pkg/infra/postgres"
	redis_wrapper "github.com/utkarsh205-ui/order-execution-engine/pkg/infra/redis"
	"github.com/utkarsh205-ui/order-execution-engine/pkg/jobqueue"
	"github.com/utkarsh205-ui/order-execution-engine/pkg/logging"
	"github.com/utkarsh205-ui/order-execution-engine/pkg/statuschannel"
	"github.com/utkarsh205-ui/order-execution-engine/pkg/venue"
	"github.com/utkarsh205-ui/order-execution-engine/pkg/venue/mock"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	logger, err := logging.Init(zapcore.InfoLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() // nolint

	go func() {
		http.ListenAndServe("localhost:6060", nil) // nolint
	}()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	configBytes, err := json.MarshalIndent(cfg, "", "   ")
	if err != nil {
		zap.S().Warnf("could not convert config to JSON: %v", err)
	} else {
		zap.S().Debugf("load config %s", string(configBytes))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// init db
	db := postgres_wrapper.InitPostgresWithBackoff(cfg.OrderDB)
	sqlRepo := repo.NewRepo(db)
	records := sqlRepo.OrderRecord()

	// queue backend: redis when configured, in-process otherwise
	store, err := buildStore(ctx, cfg)
	if err != nil {
		zap.S().Errorf("init queue store fail with err: %v", err)
		panic(err)
	}

	queue := jobqueue.New(store, jobqueue.Config{
		MaxAttempts: cfg.Queue.MaxAttempts,
		Backoff: jobqueue.BackoffPolicy{
			BaseDelay:  time.Duration(cfg.Queue.BaseDelayMs) * time.Millisecond,
			Multiplier: cfg.Queue.Multiplier,
			MaxDelay:   time.Duration(cfg.Queue.MaxDelayMs) * time.Millisecond,
		},
	})

	status := statuschannel.New()
	registry := buildRegistry(cfg)

	pipeline := engine.NewPipeline(registry, status, records, engine.Config{
		QuoteTimeout:   time.Duration(cfg.Pipeline.QuoteTimeoutMs) * time.Millisecond,
		ExecuteTimeout: time.Duration(cfg.Pipeline.ExecuteTimeoutMs) * time.Millisecond,
	})
	queue.RegisterWorker(ctx, cfg.Queue.Concurrency, pipeline.Handle)

	gw := gateway.New(gateway.Config{Addr: cfg.Server.Addr}, queue, status, records)
	if err := gw.Start(ctx); err != nil {
		zap.S().Errorf("start gateway fail with err: %v", err)
		panic(err)
	}
	fmt.Println("Order execution engine started. Press Ctrl+C to exit.")

	<-sigs
	fmt.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := gw.Stop(shutdownCtx); err != nil {
		zap.S().Warnf("gateway shutdown: %v", err)
	}

	cancel()
	queue.Stop()

	fmt.Println("Exited cleanly.")
}

func buildStore(ctx context.Context, cfg *config.AppConfig) (jobqueue.Store, error) {
	if cfg.Redis == nil {
		zap.S().Info("no redis configured, using in-process queue store")
		return jobqueue.NewMemoryStore(), nil
	}

	client, err := redis_wrapper.InitRedis(cfg.Redis)
	if err != nil {
		return nil, err
	}
	queueName := cfg.Queue.Name
	if queueName == "" {
		queueName = "order-processing"
	}
	store := jobqueue.NewRedisStore(client, queueName)
	if err := store.Recover(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func buildRegistry(cfg *config.AppConfig) *venue.Registry {
	registry := venue.NewRegistry()
	if len(cfg.Venues) == 0 {
		registry.Register(mock.NewRaydium())
		registry.Register(mock.NewMeteora())
		return registry
	}
	for _, vc := range cfg.Venues {
		registry.Register(mock.New(mock.Config{
			Name:        vc.Name,
			Fee:         vc.Fee,
			JitterLow:   vc.JitterLow,
			JitterHigh:  vc.JitterHigh,
			FailureRate: vc.FailureRate,
		}))
	}
	return registry
}
