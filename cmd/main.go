package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	configs "github.com/Payphone-Digital/auth/config"
	"github.com/Payphone-Digital/auth/internal/handler"
	"github.com/Payphone-Digital/auth/internal/middleware"
	"github.com/Payphone-Digital/auth/internal/repository"
	"github.com/Payphone-Digital/auth/internal/router"
	"github.com/Payphone-Digital/auth/internal/service"
	"github.com/Payphone-Digital/auth/pkg/circuit"
	"github.com/Payphone-Digital/auth/pkg/database"
	"github.com/Payphone-Digital/auth/pkg/health"
	"github.com/Payphone-Digital/auth/pkg/logger"
	"github.com/Payphone-Digital/auth/pkg/mailer"
	"github.com/Payphone-Digital/auth/pkg/redis"
)

const housekeepingInterval = time.Hour

func main() {
	config, err := configs.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	// Initialize Zap logger
	if err := logger.InitLogger(config); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.GetLogger().Info("Application starting",
		zap.String("app_name", config.App.Name),
		zap.String("environment", config.App.Environment),
	)

	db, err := database.NewPostgresDB(database.Config{
		Host:            config.Database.Host,
		Port:            config.Database.Port,
		User:            config.Database.User,
		Password:        config.Database.Password,
		Database:        config.Database.Name,
		SSLMode:         config.Database.SSLMode,
		MaxIdleConns:    config.Database.MaxIdleConns,
		MaxOpenConns:    config.Database.MaxOpenConns,
		ConnMaxLifetime: config.Database.ConnMaxLifetime,
		ConnMaxIdleTime: config.Database.ConnMaxIdleTime,
	})
	if err != nil {
		logger.GetLogger().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	if err := database.AutoMigrate(db); err != nil {
		logger.GetLogger().Fatal("Failed to run database migrations", zap.Error(err))
	}
	logger.GetLogger().Info("Database migrated successfully")

	// Redis backs distributed rate limiting; the service runs without it.
	redisClient, err := redis.NewClient(config)
	if err != nil {
		logger.GetLogger().Warn("Redis unavailable, rate limiting disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	codeRepo := repository.NewVerificationCodeRepository(db)
	resetRepo := repository.NewPasswordResetTokenRepository(db)
	tokenRepo := repository.NewIssuedTokenRepository(db)

	// Outbound email: Postmark in production, log-only otherwise.
	var sender mailer.Sender
	if config.Mail.Enabled {
		sender, err = mailer.NewPostmarkSender(mailer.Config{
			PostmarkServerToken:  config.Mail.PostmarkServerToken,
			PostmarkAccountToken: config.Mail.PostmarkAccountToken,
			SenderEmail:          config.Mail.SenderEmail,
			SenderName:           config.Mail.SenderName,
		})
		if err != nil {
			logger.GetLogger().Fatal("Failed to configure mail transport", zap.Error(err))
		}
	} else {
		sender = mailer.NewDevSender(logger.GetLogger())
	}

	mailBreaker := circuit.NewBreaker("mail", circuit.DefaultConfig(), logger.GetLogger())
	googleBreaker := circuit.NewBreaker("google-userinfo", circuit.DefaultConfig(), logger.GetLogger())

	// Services
	notifier := service.NewNotificationService(sender, mailBreaker, config.App.BaseURL)
	defer notifier.Close()

	jwtService := service.NewJWTService(config.JWT.Secret, config.JWT.AccessTTL, config.JWT.RefreshTTL)
	hasher := service.NewBcryptHasher()
	verificationService := service.NewVerificationService(userRepo, codeRepo, notifier, config.Auth.VerificationCodeTTL, config.Auth.ResendCooldown)
	resetService := service.NewPasswordResetService(userRepo, resetRepo, hasher, notifier, config.Auth.ResetTokenTTL)
	googleClient := service.NewGoogleClient(config, googleBreaker)
	authService := service.NewAuthService(userRepo, tokenRepo, jwtService, hasher, verificationService, googleClient)

	// Handlers and middleware
	authHandler := handler.NewAuthHandler(authService, verificationService, resetService)
	healthHandler := handler.NewHealthHandler(db, redisClient)
	jwtMiddleware := middleware.NewJWTMiddleware(jwtService, tokenRepo, userRepo)

	engine := router.NewRouter(
		authHandler,
		healthHandler,
		jwtMiddleware,
		redisClient,
		config,
	).SetupRoutes()

	srv := &http.Server{
		Addr:    ":" + config.App.Port,
		Handler: engine,
	}

	go func() {
		logger.GetLogger().Info("Server starting",
			zap.String("port", config.App.Port),
			zap.String("host", "0.0.0.0"),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.GetLogger().Fatal("Failed to start server",
				zap.Error(err),
				zap.String("port", config.App.Port),
			)
		}
	}()

	backgroundCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// Periodically flag tokens past their JWT lifetime so the issued-token
	// table reflects reality without relying on parse-time checks alone.
	go runTokenHousekeeping(backgroundCtx, tokenRepo, config.JWT.RefreshTTL)

	checkers := []health.Checker{&health.DatabaseChecker{DB: db}}
	if redisClient != nil {
		checkers = append(checkers, &health.RedisChecker{Client: redisClient})
	}
	monitor := health.NewMonitor(time.Minute, logger.GetLogger(), checkers...)
	go monitor.Start(backgroundCtx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.GetLogger().Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.GetLogger().Error("Server shutdown failed", zap.Error(err))
	}
}

func runTokenHousekeeping(ctx context.Context, tokens *repository.IssuedTokenRepository, maxLifetime time.Duration) {
	ticker := time.NewTicker(housekeepingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-maxLifetime)
			marked, err := tokens.MarkExpiredBefore(ctx, cutoff)
			if err != nil {
				logger.GetLogger().Warn("Token housekeeping pass failed", zap.Error(err))
				continue
			}
			if marked > 0 {
				logger.GetLogger().Info("Token housekeeping pass completed",
					zap.Int64("tokens_marked", marked),
				)
			}
		}
	}
}
