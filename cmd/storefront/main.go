package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"github.com/joao-fontenele/storefront-cart/internal/backend"
	"github.com/joao-fontenele/storefront-cart/internal/cart"
	"github.com/joao-fontenele/storefront-cart/internal/checkout"
	"github.com/joao-fontenele/storefront-cart/internal/clock"
	"github.com/joao-fontenele/storefront-cart/internal/config"
	"github.com/joao-fontenele/storefront-cart/internal/flashsale"
	"github.com/joao-fontenele/storefront-cart/internal/messaging"
	"github.com/joao-fontenele/storefront-cart/internal/pricing"
	"github.com/joao-fontenele/storefront-cart/internal/shipping"
	"github.com/joao-fontenele/storefront-cart/internal/storefront"
	"github.com/joao-fontenele/storefront-cart/internal/telemetry"
	"github.com/joao-fontenele/storefront-cart/internal/vnpay"
)

const (
	serviceName    = "storefront"
	serviceVersion = "0.1.0"
)

func main() {
	ctx := context.Background()
	logger := telemetry.NewLogger(os.Stdout, serviceName)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter provider", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	instruments, err := telemetry.NewInstruments(otel.GetMeterProvider())
	if err != nil {
		logger.Error("failed to create instruments", "error", err)
		os.Exit(1)
	}

	httpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	timeout := cfg.ExternalCallTimeout

	cartClient := backend.NewCartClient(cfg.CartServiceURL, httpClient, timeout)
	flashSaleClient := backend.NewFlashSaleClient(cfg.FlashSaleServiceURL, httpClient, timeout, cfg.SaleLocation)
	ordersClient := backend.NewOrdersClient(cfg.OrdersServiceURL, httpClient, timeout)
	gateway := vnpay.NewClient(cfg.Payment.GatewayURL, httpClient, timeout)
	carrier := shipping.NewClient(cfg.Carrier.URL, cfg.Carrier.Token, shipping.Origin{
		DistrictID:      cfg.Carrier.FromDistrictID,
		WardCode:        cfg.Carrier.FromWardCode,
		ServiceTypeID:   cfg.Carrier.ServiceTypeID,
		CODFailedAmount: cfg.Carrier.CODFailedAmount,
	}, httpClient, timeout, instruments)

	var sessions checkout.SessionStore
	if cfg.PostgresURL != "" {
		db, err := openDB(ctx, cfg.PostgresURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		sessions = checkout.NewSessionRepository(db)
	}

	var locker checkout.Locker
	if cfg.RedisAddr != "" {
		rdb := telemetry.NewRedisClient(cfg.RedisAddr)
		defer func() { _ = rdb.Close() }()
		if err := pingRedis(ctx, rdb); err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		locker = checkout.NewRedisLocker(rdb, cfg.OrderCookieTTL)
	}

	var publisher checkout.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := messaging.NewProducer(cfg.KafkaBrokers, cfg.CheckoutTopic)
		defer func() { _ = producer.Close() }()
		publisher = producer
	}

	realClock := clock.NewRealClock()
	guard := flashsale.NewGuard(realClock, cfg.SaleLocation)
	calculator := pricing.NewCalculator(cfg.FlatShippingFee)

	factory := func() (*cart.Store, *checkout.Initiator) {
		store := cart.NewStore(cart.Deps{
			Backend:     cartClient,
			FlashSale:   flashSaleClient,
			Shipping:    carrier,
			Guard:       guard,
			Calculator:  calculator,
			Logger:      logger,
			Instruments: instruments,
		})
		initiator := checkout.NewInitiator(checkout.Options{
			Policy:       checkout.SubmitPolicy(cfg.SubmitPolicy),
			ExchangeRate: cfg.Payment.ExchangeRate,
			BankCode:     cfg.Payment.BankCode,
			Language:     cfg.Payment.Language,
			ReturnURL:    cfg.Payment.ReturnURL,
		}, checkout.Deps{
			Gateway:     gateway,
			Sessions:    sessions,
			Locker:      locker,
			Publisher:   publisher,
			Clock:       realClock,
			Logger:      logger,
			Instruments: instruments,
		})
		return store, initiator
	}

	registry := storefront.NewRegistry(factory, realClock, cfg.SessionIdleTTL, logger)
	handler := storefront.NewHandler(registry, ordersClient, cfg.OrderCookieTTL, logger)

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(mux, serviceName, otelhttp.WithSpanNameFormatter(telemetry.SpanName)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2*timeout + 5*time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go registry.Run(sweepCtx, time.Minute)

	go func() {
		logger.Info("starting storefront service", "port", cfg.Port, "submit_policy", cfg.SubmitPolicy)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	stopSweep()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := telemetry.OpenDB(dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func pingRedis(ctx context.Context, rdb *redis.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return rdb.Ping(pingCtx).Err()
}
