package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/fourthcafe-inventory/internal/adapter/eventbus"
	"github.com/rl1809/fourthcafe-inventory/internal/adapter/handler"
	"github.com/rl1809/fourthcafe-inventory/internal/adapter/storage"
	"github.com/rl1809/fourthcafe-inventory/internal/config"
	"github.com/rl1809/fourthcafe-inventory/internal/core/domain"
	"github.com/rl1809/fourthcafe-inventory/internal/core/service"
	"github.com/rl1809/fourthcafe-inventory/internal/port"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	log, err := cfg.NewLogger()
	if err != nil {
		logrus.Fatalf("failed to build logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.WithError(err).Warn("close failed")
			}
		}
		log.Info("connections closed")
	}()

	// Redis backs the id sequence and the stream/asynq buses
	var rdb *redis.Client
	if cfg.IDStrategy == config.IDRedis || cfg.BusDriver == config.BusRedis {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, PoolSize: 100})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		closers = append(closers, rdb.Close)
		log.WithField("addr", cfg.RedisAddr).Info("connected to redis")
	}

	var ids port.IDGenerator
	if cfg.IDStrategy == config.IDRedis {
		ids = storage.NewRedisAdapter(rdb)
	}

	store, closeStore, err := openStore(ctx, cfg, ids, log)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	closers = append(closers, closeStore)

	bus, closeBus, err := openBus(cfg, rdb, log)
	if err != nil {
		log.Fatalf("failed to open event bus: %v", err)
	}
	closers = append(closers, closeBus)

	inventoryService := service.NewInventoryService(store, service.NewEventEmitter(bus, log), log)

	grpcServer := grpc.NewServer()
	handler.RegisterInventoryServer(grpcServer, handler.NewGRPCHandler(inventoryService, log))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewHTTPHandler(inventoryService, log).Routes(cfg.RateLimit, cfg.RequestTimeout),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		log.Infof("gRPC server listening on %s", cfg.GRPCAddr)
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		log.Infof("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("HTTP shutdown")
		}
		log.Info("HTTP server stopped")

		grpcServer.GracefulStop()
		log.Info("gRPC server stopped")
		return nil
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("server exited")
	}
}

func openStore(ctx context.Context, cfg *config.Config, ids port.IDGenerator, log logrus.FieldLogger) (port.RecordStore, func() error, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn("using in-memory store, records are lost on restart")
		return storage.NewMemoryAdapter(ids, log), func() error { return nil }, nil
	}

	db, err := sqlx.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		return nil, nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Info("connected to mysql")

	adapter := storage.NewMySQLAdapter(db, ids, log)
	if err := adapter.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return adapter, db.Close, nil
}

func openBus(cfg *config.Config, rdb *redis.Client, log logrus.FieldLogger) (port.EventBus, func() error, error) {
	noop := func() error { return nil }

	switch cfg.BusDriver {
	case config.BusRedis:
		return eventbus.NewRedisStreamBus(rdb, cfg.RedisStream, cfg.RedisStreamMaxLen), noop, nil
	case config.BusKafka:
		bus, err := eventbus.NewKafkaBus(cfg.KafkaBrokers, cfg.KafkaTopic, nil)
		if err != nil {
			return nil, nil, err
		}
		return bus, bus.Close, nil
	case config.BusAsynq:
		bus := eventbus.NewAsynqBus(cfg.RedisAddr, cfg.AsynqQueue)
		return bus, bus.Close, nil
	}

	bus := eventbus.NewMemoryBus()
	bus.Subscribe(func(ctx context.Context, ev domain.Event) {
		log.WithFields(logrus.Fields{
			"event":        ev.EventName(),
			"inventory_id": ev.AggregateID(),
		}).Debug("event delivered")
	})
	return bus, noop, nil
}
