package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ndanilov/warehouse-engine/internal/adapter/events"
	"github.com/ndanilov/warehouse-engine/internal/adapter/handler"
	"github.com/ndanilov/warehouse-engine/internal/adapter/storage"
	"github.com/ndanilov/warehouse-engine/internal/config"
	"github.com/ndanilov/warehouse-engine/internal/core/service"
	"github.com/ndanilov/warehouse-engine/internal/port"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg := config.Load()
	log.Info().
		Str("addr", cfg.HTTPAddr).
		Str("redis", cfg.RedisAddr).
		Msg("starting warehouse engine")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open mysql")
	}
	db.SetMaxOpenConns(cfg.MySQLMaxConns)
	db.SetMaxIdleConns(cfg.MySQLMaxConns / 2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping mysql")
	}
	log.Info().Msg("connected to mysql")

	mysqlAdapter := storage.NewMySQLAdapter(db)
	if cfg.MigrateOnStart {
		if err := mysqlAdapter.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		log.Info().Msg("schema migrated")
	}

	// Redis, best effort. The engine runs without the stock mirror.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	var cache port.CacheRepository
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, stock mirror disabled")
	} else {
		cache = storage.NewRedisAdapter(rdb)
		log.Info().Msg("connected to redis")
	}

	// RabbitMQ, best effort as well.
	var publisher port.EventPublisher = events.NoopPublisher{}
	var rabbit *events.RabbitPublisher
	if cfg.EventsEnabled {
		rabbit, err = events.NewRabbitPublisher(cfg.RabbitURL)
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable, events disabled")
		} else {
			publisher = rabbit
			log.Info().Msg("connected to rabbitmq")
		}
	}

	// Services
	ledgerService := service.NewLedgerService(mysqlAdapter, cache, publisher)
	supplyService := service.NewSupplyService(mysqlAdapter, ledgerService, publisher)
	orderService := service.NewOrderService(mysqlAdapter, cache, publisher)

	// HTTP surface
	internalAPI := handler.NewHTTPHandler(ledgerService, supplyService, orderService, mysqlAdapter)
	externalAPI := handler.NewExternalHandler(orderService, cfg.ExternalAPIKey)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", internalAPI.HealthCheck)

	mux.HandleFunc("POST /api/supplies", internalAPI.CreateSupply)
	mux.HandleFunc("GET /api/supplies/{id}", internalAPI.GetSupply)
	mux.HandleFunc("DELETE /api/supplies/{id}", internalAPI.DeleteSupply)
	mux.HandleFunc("PATCH /api/supplies/{id}/lines/{lineID}", internalAPI.UpdateSupplyLine)
	mux.HandleFunc("DELETE /api/supplies/{id}/lines/{lineID}", internalAPI.DeleteSupplyLine)

	mux.HandleFunc("POST /api/inventory/adjust", internalAPI.AdjustInventory)
	mux.HandleFunc("GET /api/warehouses/{id}", internalAPI.GetWarehouse)
	mux.HandleFunc("GET /api/warehouses/{id}/low-stock", internalAPI.GetLowStock)
	mux.HandleFunc("GET /api/products/{id}", internalAPI.GetProduct)
	mux.HandleFunc("POST /api/orders/{id}/status", internalAPI.UpdateOrderStatus)

	external := http.NewServeMux()
	external.HandleFunc("POST /api/external/orders/sync", externalAPI.SyncOrder)
	external.HandleFunc("PATCH /api/external/orders/sync-status", externalAPI.SyncStatus)
	external.HandleFunc("GET /api/external/orders/sync/{externalOrderID}", externalAPI.GetSyncedOrder)
	external.HandleFunc("DELETE /api/external/orders/sync/{externalOrderID}", externalAPI.DeleteSyncedOrder)
	mux.Handle("/api/external/", externalAPI.RequireAPIKey(external))

	corsWrapper := cors.New(cors.Options{
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE"},
		AllowedHeaders: []string{"Content-Type", "X-API-Key"},
	})

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: corsWrapper.Handler(mux),
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}
	log.Info().Msg("http server stopped")

	if rabbit != nil {
		rabbit.Close()
	}
	rdb.Close()
	db.Close()
	log.Info().Msg("connections closed")
}
