package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatforge/internal/config"
	"chatforge/internal/domain/services"
	"chatforge/internal/infrastructure/database"
	"chatforge/internal/interfaces/http/handlers"

	"github.com/stripe/stripe-go/v79"
)

func main() {
	cfg := config.Load()

	if cfg.Billing.StripeSecret == "" {
		log.Fatal("STRIPE_SECRET is required")
	}
	stripe.Key = cfg.Billing.StripeSecret

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := database.NewPostgresConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	accountRepo := database.NewAccountRepository(db)
	subscriptionRepo := database.NewSubscriptionRepository(db)
	eventRepo := database.NewBillingEventRepository(db)

	quotaService := services.NewQuotaService(accountRepo, logger)
	paymentService := services.NewStripeService(subscriptionRepo, accountRepo, eventRepo, quotaService, logger)
	billingHandler := handlers.NewBillingHandler(paymentService, cfg.Billing.SuccessURL, cfg.Billing.CancelURL, logger)

	mux := http.NewServeMux()
	billingHandler.Register(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "billing-service"}`))
	})

	server := &http.Server{
		Addr:    ":" + cfg.Server.BillingPort,
		Handler: mux,
	}

	go func() {
		logger.Info("billing service listening", "port", cfg.Server.BillingPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("billing service stopped")
}
