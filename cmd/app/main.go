package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"UD_daily_rewards/internal/api"
	"UD_daily_rewards/internal/metrics"
	"UD_daily_rewards/internal/middleware"
	"UD_daily_rewards/internal/repository"
	"UD_daily_rewards/internal/repository/memory"
	"UD_daily_rewards/internal/service"
	"UD_daily_rewards/pkg/auth"
	"UD_daily_rewards/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

type playerStore interface {
	service.PlayerStore
	Close() error
}

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	store, err := newStore(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to initialize store", zap.Error(err), zap.String("driver", cfg.Store.Driver))
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dailyLoginService := service.NewDailyLoginService(store, service.DailyLoginConfig{
		Rewards:       cfg.Rewards,
		RetentionDays: cfg.DailyLogin.RetentionDays,
	}, nil)
	playerService := service.NewPlayerService(store)
	vipService := service.NewVipService(store, nil)
	svc := service.NewService(dailyLoginService, playerService, vipService)

	hub := service.NewNotificationHub()

	var invoices api.VipPassInvoicer
	if cfg.TelegramAuth.TelegramBotToken != "" {
		paymentService, err := service.NewPaymentService(service.PaymentConfig{
			BotToken:     cfg.TelegramAuth.TelegramBotToken,
			Debug:        cfg.TelegramAuth.DebugMode,
			VipPassDays:  cfg.VipPass.DurationDays,
			VipPassPrice: cfg.VipPass.PriceStars,
		}, svc.VipService, hub)
		if err != nil {
			zapLogger.Fatal("Failed to initialize payment service", zap.Error(err))
		}
		invoices = paymentService
		go paymentService.StartPaymentListener(ctx)
	} else {
		zapLogger.Warn("Telegram bot token is not set, VIP pass payments are disabled")
	}

	telegramAuth := auth.NewTelegramAuth(cfg.TelegramAuth.TelegramBotToken, cfg.TelegramAuth.DebugMode)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
	}
	config.AllowHeaders = []string{"*"}
	config.ExposeHeaders = []string{middleware.RequestIDHeader}
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	a := router.Group("/api/v1")
	api.NewDailyLoginRoutes(a, svc.DailyLoginService, telegramAuth)
	api.NewPlayerRoutes(a, svc.PlayerService, telegramAuth)
	api.NewStoreRoutes(a, telegramAuth, invoices, hub)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLogger.Info("Starting server", zap.String("addr", addr), zap.String("store", cfg.Store.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
}

func newStore(cfg *Config) (playerStore, error) {
	if cfg.Store.Driver == storeDriverMemory {
		return memory.New(cfg.Database.MaxTxAttempts), nil
	}
	return repository.New(cfg.Database)
}
