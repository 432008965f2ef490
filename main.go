// File: verial/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"verial/config"
	"verial/cron"
	"verial/database"
	bookingRepo "verial/database/repository/booking"
	earningsRepo "verial/database/repository/earnings"
	refundRepo "verial/database/repository/refund"
	"verial/handlers"
	"verial/middleware"
	"verial/routes"
	"verial/services/payments"
	"verial/utils"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())
	stripe.Key = config.AppConfig.StripeKey

	// repositories.
	bookings := bookingRepo.NewMongoBookingRepo()
	earnings := earningsRepo.NewMongoEarningsRepo()
	refunds := refundRepo.NewMongoRefundRepo()

	// services.
	feePolicy := &payments.StaticFeePolicy{
		Terms: payments.FeeTerms{
			PlatformFeeBps: config.AppConfig.PlatformFeeBps,
			GSTRateBps:     config.AppConfig.GSTRateBps,
			ChargesGST:     config.AppConfig.ChargesGST,
		},
	}
	gateway := payments.NewStripeRefundGateway(
		time.Duration(config.AppConfig.GatewayTimeoutSeconds) * time.Second,
	)

	reconciler := payments.NewReconciler(bookings, earnings, feePolicy, logger)
	refundProcessor := payments.NewRefundProcessor(bookings, refunds, gateway, feePolicy, logger)
	bookingService := payments.NewBookingCommandService(bookings, logger)
	repairer := payments.NewRefundRepairer(bookings, refunds, gateway, feePolicy, logger)

	// background worker: stuck-refund reconciliation.
	cron.InitRefundRepairWorker(repairer)
	utils.StartHealthMonitor(utils.GetCacheClient(), database.MongoClient)

	// Assemble the handler bundle.
	handlerBundle := &routes.HandlerBundle{
		Webhook:  handlers.NewWebhookHandler(reconciler, utils.NewEventDedupeCache(utils.GetCacheClient()), logger),
		Refund:   handlers.NewRefundHandler(refundProcessor, refunds, logger),
		Earnings: handlers.NewEarningsHandler(earnings),
		Booking:  handlers.NewBookingHandler(bookingService, logger),
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
