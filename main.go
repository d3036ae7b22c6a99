package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joy095/booking/clients"
	"github.com/joy095/booking/config"
	"github.com/joy095/booking/config/db"
	redisclient "github.com/joy095/booking/config/redis"
	"github.com/joy095/booking/logger"
	"github.com/joy095/booking/middlewares/cors"
	"github.com/joy095/booking/routes"
	"github.com/joy095/booking/workers/reconcile"
)

func init() {
	logger.InitLoggers()
	config.LoadEnv()
}

func main() {
	db.Connect()
	defer db.Close()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redisclient.GetRedisClient(ctx)
	if err != nil {
		logger.WarnLogger.Warnf("Redis unavailable, slot holds and rate limiting degrade to DB-only guards: %v", err)
		rdb = nil
	}
	defer redisclient.CloseRedis()

	gateway := clients.NewRazorpayClient(
		os.Getenv("RAZORPAY_KEY_ID"),
		os.Getenv("RAZORPAY_KEY_SECRET"),
	)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.CorsMiddleware())

	routes.RegisterBookingRoutes(r, rdb)
	routes.RegisterPaymentRoutes(r, gateway)
	routes.RegisterSettlementRoutes(r, gateway)
	routes.RegisterScoreRoutes(r)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "ok from booking service"})
	})

	reporter := reconcile.NewReporter(db.DB)
	go reporter.Run(ctx)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.InfoLogger.Infof("Booking service listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorLogger.Errorf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.InfoLogger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorLogger.Errorf("Graceful shutdown failed: %v", err)
	}
}
