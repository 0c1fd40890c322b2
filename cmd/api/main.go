package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"farmtable/internal/auth"
	"farmtable/internal/config"
	"farmtable/internal/db"
	"farmtable/internal/events"
	"farmtable/internal/gateway"
	"farmtable/internal/httpserver"
	"farmtable/internal/notify"
	cartrepo "farmtable/internal/repository/cart"
	chatrepo "farmtable/internal/repository/chat"
	orderrepo "farmtable/internal/repository/order"
	productrepo "farmtable/internal/repository/product"
	profilerepo "farmtable/internal/repository/profile"
	cartsvc "farmtable/internal/service/cart"
	checkoutsvc "farmtable/internal/service/checkout"
	fulfillmentsvc "farmtable/internal/service/fulfillment"
	ordersvc "farmtable/internal/service/order"
	paymentsvc "farmtable/internal/service/payment"
	productsvc "farmtable/internal/service/product"
	reconcilesvc "farmtable/internal/service/reconcile"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.ConnectWithRetry(ctx, cfg.DBConnString, 10, 2*time.Second)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	productRepo := productrepo.NewPostgres(dbpool, logger)
	profileRepo := profilerepo.NewPostgres(dbpool, logger)
	cartRepo := cartrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	chatRepo := chatrepo.NewPostgres(dbpool, logger)

	publisher, closePublisher := buildPublisher(cfg, chatRepo, logger)
	defer closePublisher()

	gw := gateway.NewClient(cfg.Gateway, cfg.PublicBaseURL, nil, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		ProductSvc:         productsvc.New(productRepo),
		CartSvc:            cartsvc.New(cartRepo, productRepo, logger),
		CheckoutSvc:        checkoutsvc.New(cartRepo, productRepo, profileRepo, orderRepo, publisher, cfg.Currency, logger),
		OrderSvc:           ordersvc.New(orderRepo, chatRepo),
		PaymentSvc:         paymentsvc.New(orderRepo, profileRepo, gw, cfg.Gateway.TranPrefix, logger),
		ReconcileSvc:       reconcilesvc.New(orderRepo, publisher, logger),
		FulfillmentSvc:     fulfillmentsvc.New(orderRepo, publisher, logger),
		Tokens:             auth.NewTokenManager(cfg.JWTSecret),
		FrontendBaseURL:    cfg.FrontendBaseURL,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}

// buildPublisher sends order events to Kafka when brokers are configured and
// otherwise posts chat notifications in-process.
func buildPublisher(cfg config.Config, chat notify.ChatPoster, logger *log.Logger) (events.Publisher, func()) {
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := events.DialKafka(cfg.KafkaBrokers, 10, 2*time.Second, logger)
		if err != nil {
			logger.Fatalf("connect to kafka: %v", err)
		}
		pub := events.NewKafkaPublisher(producer, cfg.OrderEventsTopic, logger)
		logger.Printf("publishing order events to kafka topic %s", cfg.OrderEventsTopic)
		return pub, func() {
			if err := pub.Close(); err != nil {
				logger.Printf("close kafka producer: %v", err)
			}
		}
	}

	var dedupe notify.Deduper
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		dedupe = notify.NewRedisDeduper(rdb, cfg.NotifyDedupeTTL)
	}
	pub := events.NewAsync(notify.NewBridge(chat, dedupe, logger), 10*time.Second, logger)
	logger.Printf("no kafka brokers configured, notifying in-process")
	return pub, func() {
		pub.Wait()
		if rdb != nil {
			_ = rdb.Close()
		}
	}
}
