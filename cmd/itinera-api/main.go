// README: Entry point; loads config, wires the itinerary pipeline, and serves HTTP until SIGINT/SIGTERM.
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

	"itinera/internal/ai"
	"itinera/internal/config"
	httptransport "itinera/internal/http"
	"itinera/internal/infra"
	"itinera/internal/maps"
	"itinera/internal/modules/aiusage"
	"itinera/internal/modules/itinerary"
	"itinera/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := infra.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("itinera-api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	verifier, err := newVerifier(ctx, cfg.Auth)
	if err != nil {
		return err
	}

	if cfg.DB.Migrate {
		if err := infra.Migrate(ctx, cfg.DB.DSN); err != nil {
			return err
		}
	}
	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	generator, err := ai.NewGenerator(ctx, ai.Config{
		APIKey:      cfg.Gemini.APIKey,
		Model:       cfg.Gemini.Model,
		Timeout:     cfg.Gemini.Timeout,
		MaxAttempts: cfg.Gemini.MaxAttempts,
	})
	if err != nil {
		return err
	}
	defer generator.Close()

	deps := service.ItineraryPlannerDeps{
		Verifier:        verifier,
		Generator:       generator,
		Store:           itinerary.NewStore(dbPool),
		Logger:          logger,
		Location:        cfg.Timezone,
		PersistAttempts: cfg.Persist.MaxAttempts,
	}

	if cfg.Redis.Addr != "" {
		redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		deps.Pending = itinerary.NewPendingStore(redisClient, cfg.Redis.PendingTTL)
	} else {
		logger.Warn("REDIS_ADDR not set; failed saves cannot be resumed without regenerating")
	}

	if cfg.Maps.APIKey != "" {
		geocoder, err := maps.NewGeocodeService(cfg.Maps.APIKey)
		if err != nil {
			return err
		}
		deps.Geocoder = geocoder
	}

	if cfg.Quota.MonthlyGenerations > 0 {
		deps.Quota = aiusage.NewService(aiusage.NewStore(dbPool), cfg.Quota.MonthlyGenerations, cfg.Timezone)
	}

	planner := service.NewItineraryPlanner(deps)
	handler := httptransport.NewServer(httptransport.ServerDeps{
		Planner:     planner,
		Verifier:    verifier,
		Logger:      logger,
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		// Generation can take most of a minute.
		WriteTimeout: cfg.Gemini.Timeout*time.Duration(cfg.Gemini.MaxAttempts) + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			zap.String("addr", cfg.HTTP.Addr),
			zap.String("model", generator.Model()),
			zap.String("auth_provider", cfg.Auth.Provider),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newVerifier(ctx context.Context, cfg config.AuthConfig) (infra.TokenVerifier, error) {
	switch cfg.Provider {
	case config.AuthJWT:
		return infra.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	default:
		return infra.NewFirebaseVerifier(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
	}
}
