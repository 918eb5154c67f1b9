package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"checkout-service/internal/clock"
	"checkout-service/internal/config"
	handlers "checkout-service/internal/controllers/http"
	"checkout-service/internal/domain"
	"checkout-service/internal/infra"
	"checkout-service/internal/infra/idempotency"
	"checkout-service/internal/infra/kafka"
	mmysql "checkout-service/internal/infra/mysql"
	"checkout-service/internal/infra/rabbitmq"
	"checkout-service/internal/infra/session"
	"checkout-service/internal/infra/stripe"
	"checkout-service/internal/logger"
	"checkout-service/internal/metrics"
	"checkout-service/internal/repository"
	"checkout-service/internal/repository/memory"
	mysqlrepo "checkout-service/internal/repository/mysql"
	"checkout-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

const (
	shutdownTimeout = 10 * time.Second
	catalogTimeout  = 2 * time.Second
)

type stores struct {
	orders  repository.OrderRepository
	catalog repository.CatalogRepository
	carts   repository.CartRepository
	close   func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", logger.Fields{"error": err})
	}

	st, err := openStores(cfg)
	if err != nil {
		logger.Fatal("storage init failed", logger.Fields{"storage": cfg.Storage, "error": err})
	}
	defer st.close()

	if cfg.CatalogServiceURL != "" {
		st.catalog = infra.NewCatalogClient(cfg.CatalogServiceURL, catalogTimeout)
		logger.Info("using remote catalog", logger.Fields{"url": cfg.CatalogServiceURL})
	}

	publisher, closePublisher, err := openPublisher(cfg.Broker)
	if err != nil {
		logger.Fatal("failed to init publisher", logger.Fields{"broker": cfg.Broker.Kind, "error": err})
	}
	defer closePublisher()

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		DB:           0,
		PoolSize:     200,
		MinIdleConns: 20,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
	defer redisClient.Close()

	clk := clock.NewSystem()
	gateway := stripe.NewGateway(cfg.Payment)
	events := services.NewEventEmitter(publisher, clk)

	prices := services.NewPriceAuthority(st.catalog)
	prices.SetCacheClient(redisClient, cfg.CatalogCacheTTL)

	correlator := services.NewPaymentSessionCorrelator(st.orders, gateway, services.SessionURLs{
		Success: cfg.Payment.SuccessURL,
		Cancel:  cfg.Payment.CancelURL,
	})
	orderSvc := services.NewOrderService(st.orders, prices, correlator, events, clk)
	reconciler := services.NewReconciliationService(st.orders, st.carts, gateway, events)

	if len(cfg.CatalogWarmupIDs) > 0 && cfg.CatalogCacheTTL > 0 {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = prices.Warmup(ctx, cfg.CatalogWarmupIDs)
		}()
	}

	handler := handlers.NewHandler(orderSvc, reconciler, session.NewStore(redisClient, cfg.Session))
	handler.SetIdempotencyStore(idempotency.NewStore(redisClient, cfg.IdempotencyTTL))

	metrics.Register()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), handlers.RequestID(), handlers.RequestLogger(), handlers.Metrics())
	handler.RegisterRoutes(r)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("checkout service listening", logger.Fields{"port": cfg.Port, "storage": cfg.Storage, "broker": cfg.Broker.Kind})
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", logger.Fields{"error": err})
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server", nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", logger.Fields{"error": err})
	}
	events.Wait()
	logger.Info("server stopped", nil)
}

func openStores(cfg config.Config) (*stores, error) {
	if cfg.Storage == config.StorageMemory {
		logger.Warn("using in-memory storage, data is lost on restart", nil)
		return &stores{
			orders:  memory.NewOrderRepository(),
			catalog: memory.NewCatalogRepository(demoMenu()...),
			carts:   memory.NewCartRepository(),
			close:   func() {},
		}, nil
	}

	db, err := mmysql.NewMySQL(cfg.MySQL.ConnString())
	if err != nil {
		return nil, err
	}
	return &stores{
		orders:  mysqlrepo.NewOrderRepository(db),
		catalog: mysqlrepo.NewCatalogRepository(db),
		carts:   mysqlrepo.NewCartRepository(db),
		close: func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		},
	}, nil
}

func openPublisher(cfg config.Broker) (infra.PublisherInterface, func(), error) {
	switch cfg.Kind {
	case config.BrokerRabbitMQ:
		p, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	case config.BrokerKafka:
		p, err := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { _ = p.Close() }, nil
	}
	return infra.NopPublisher{}, func() {}, nil
}

func demoMenu() []domain.MenuItem {
	return []domain.MenuItem{
		{ID: 1, Name: "Margherita", Price: decimal.RequireFromString("10.00"), Category: "mains", Available: true},
		{ID: 2, Name: "Lemonade", Price: decimal.RequireFromString("5.00"), Category: "drinks", Available: true},
		{ID: 3, Name: "Tiramisu", Price: decimal.RequireFromString("6.50"), Category: "desserts", Available: true},
	}
}
