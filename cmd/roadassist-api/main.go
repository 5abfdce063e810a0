// Entry point: loads config, wires services, starts the HTTP server and the
// background sweeps.
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

	"go.uber.org/zap"

	"roadassist/internal/config"
	"roadassist/internal/events"
	httptransport "roadassist/internal/http"
	"roadassist/internal/infra"
	"roadassist/internal/logging"
	"roadassist/internal/modules/location"
	"roadassist/internal/modules/matching"
	"roadassist/internal/modules/payment"
	"roadassist/internal/modules/pricing"
	"roadassist/internal/modules/provider"
	"roadassist/internal/modules/request"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("postgres init", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr, cfg.Redis.Password)
	defer func() { _ = redisClient.Close() }()

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() { _ = kp.Close() }()
		publisher = kp
	}

	var geocoder location.Geocoder
	if cfg.Maps.APIKey != "" {
		geocoder, err = location.NewGoogleGeocoder(cfg.Maps.APIKey, 5*time.Second)
		if err != nil {
			logger.Fatal("geocoder init", zap.Error(err))
		}
	}

	providerStore := provider.NewPGStore(dbPool)
	geoIndex := provider.NewGeoIndex(redisClient)
	providerSvc := provider.NewService(providerStore, geoIndex, logger)

	requestStore := request.NewPGStore(dbPool)
	requestSvc := request.NewService(request.ServiceDeps{
		Store:     requestStore,
		Pricing:   pricing.NewEngine(pricing.DefaultRates()),
		Geocoder:  geocoder,
		Publisher: publisher,
		Releaser:  providerSvc,
		Logger:    logger,
	})

	matchingSvc := matching.NewService(providerStore, requestSvc, geoIndex, cfg.Matching, logger)

	gateway, err := buildGateway(cfg.Payment)
	if err != nil {
		logger.Fatal("payment gateway init", zap.Error(err))
	}
	paymentSvc := payment.NewService(payment.ServiceDeps{
		Store:         payment.NewPGStore(dbPool),
		Gateway:       gateway,
		Requests:      requestSvc,
		Logger:        logger,
		CallbackURL:   cfg.Payment.CallbackURL,
		VerifyTimeout: cfg.Payment.VerifyTimeout,
	})

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Requests:  requestSvc,
		Providers: providerSvc,
		Matching:  matchingSvc,
		Payments:  paymentSvc,
		Logger:    logger,
	})

	go matchingSvc.RunSweep(ctx)
	go requestSvc.RunExpirySweep(ctx, cfg.Payment.PendingExpiry, cfg.Payment.ExpirySweepGap)

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server", zap.Error(err))
	}
}

func buildGateway(cfg config.PaymentConfig) (payment.Gateway, error) {
	switch cfg.Gateway {
	case "stripe":
		return payment.NewStripeGateway(cfg.SecretKey), nil
	case "paystack":
		return payment.NewPaystackGateway(cfg.BaseURL, cfg.SecretKey, cfg.VerifyTimeout), nil
	default:
		return nil, errors.New("unknown payment gateway: " + cfg.Gateway)
	}
}
