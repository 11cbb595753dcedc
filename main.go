package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pickup-kitchen/accounts"
	"pickup-kitchen/cart"
	"pickup-kitchen/catalog"
	"pickup-kitchen/config"
	"pickup-kitchen/events"
	"pickup-kitchen/handlers"
	"pickup-kitchen/logger"
	"pickup-kitchen/metrics"
	"pickup-kitchen/middleware"
	"pickup-kitchen/notify"
	"pickup-kitchen/orders"
	"pickup-kitchen/routes"
	"pickup-kitchen/statemachine"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	log := logger.New("pickup-kitchen")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, *configPath, log)
	stop()
	if err != nil {
		log.Error("startup", "service stopped with error", err)
		os.Exit(1)
	}
}

// run wires the service and serves until ctx is cancelled. Connections it
// opens are closed before it returns.
func run(ctx context.Context, configPath string, log *logger.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	gin.SetMode(cfg.Server.GinMode)

	db, err := config.OpenDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	log.Info("startup", "database ready", slog.String("driver", cfg.Database.Driver))

	m := metrics.New()

	// Carts and reset tickets live in Redis when it is configured
	var (
		cartStore  cart.Store          = cart.NewMemoryStore()
		resetStore accounts.ResetStore = accounts.NewMemoryResetStore()
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
		cartStore = cart.NewRedisStore(rdb, cfg.Redis.CartTTL)
		resetStore = accounts.NewRedisResetStore(rdb)
		log.Info("startup", "using redis", slog.String("addr", cfg.Redis.Addr))
	}

	var publisher orders.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		p := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		defer p.Close()
		publisher = p
		log.Info("startup", "publishing order events", slog.String("topic", cfg.Kafka.Topic))
	}

	var notifier orders.Notifier = notify.NewLogNotifier(log)
	if cfg.RabbitMQ.URL != "" {
		n, err := notify.DialAMQP(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			return err
		}
		defer n.Close()
		notifier = n
	}

	store := catalog.NewStore(db, catalog.Options{
		SentinelCategoryID: cfg.Restaurant.SentinelCategoryID,
		RestaurantID:       cfg.Restaurant.ID,
		Timeout:            cfg.Database.StorageTimeout,
		Logger:             log,
		Metrics:            m,
	})
	orderSvc := orders.NewService(db, orders.Options{
		RestaurantID:  cfg.Restaurant.ID,
		Policy:        statemachine.Policy{Strict: cfg.Orders.StrictTransitions},
		Timeout:       cfg.Database.StorageTimeout,
		PublicBaseURL: cfg.PublicBaseURL,
		Publisher:     publisher,
		Notifier:      notifier,
		Logger:        log,
		Metrics:       m,
	})
	accountSvc := accounts.NewService(db, accounts.Options{
		ResetStore:    resetStore,
		ResetTTL:      cfg.Auth.ResetTokenTTL,
		Mailer:        notifier,
		PublicBaseURL: cfg.PublicBaseURL,
		Timeout:       cfg.Database.StorageTimeout,
		Logger:        log,
	})
	auth := middleware.NewAuth(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	h := handlers.New(handlers.Deps{
		Catalog:           store,
		Carts:             cart.NewManager(cartStore, store, m),
		Orders:            orderSvc,
		Accounts:          accountSvc,
		Tokens:            auth,
		Logger:            log,
		PublicBaseURL:     cfg.PublicBaseURL,
		StrictTransitions: cfg.Orders.StrictTransitions,
	})

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(log))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"service": "Pickup Kitchen Order API",
			"version": "1.0.0",
		})
	})

	// Welcome
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome to the Pickup Kitchen Order API",
			"docs":    "/api/state-machine",
			"health":  "/health",
			"roles":   []string{"customer", "restaurant_owner", "admin"},
		})
	})

	routes.SetupRoutes(r, h, auth, routes.Options{
		CartMaxAge:   int(cfg.Redis.CartTTL / time.Second),
		SecureCookie: cfg.Server.GinMode == gin.ReleaseMode,
		Metrics:      m.Handler(),
		Users:        accountSvc,
	})

	// CORS for frontend integration
	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
	}).Handler(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go sweepExpiredCategories(ctx, store, log)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("startup", "server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("shutdown", "server stopped")
	return nil
}

// sweepExpiredCategories deactivates lapsed categories in the background.
// Reads deactivate inline as well, so a missed tick only delays the metric.
func sweepExpiredCategories(ctx context.Context, store *catalog.Store, log *logger.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := store.DeactivateExpired(ctx); err != nil {
				log.Error("category_sweep", "failed to deactivate expired categories", err)
			}
		}
	}
}
