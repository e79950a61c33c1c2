/**
 * @description
 * This is the main entry point for the Horizon Bank ledger service. It loads
 * configuration, opens the primary store, the optional Redis challenge store
 * and the RabbitMQ producer, wires the application services, and then runs the
 * HTTP server, the cron scheduler and (optionally) the notification worker
 * until SIGINT/SIGTERM.
 *
 * @dependencies
 * - github.com/joho/godotenv: local .env loading.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/redis/go-redis/v9: OTP challenge cache.
 * - pkg/rabbitmq: event producer and notification consumer.
 * - go.uber.org/zap: structured logging.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/adarsh140528/Horizon-Bank/internal/api"
	"github.com/adarsh140528/Horizon-Bank/internal/app"
	"github.com/adarsh140528/Horizon-Bank/internal/config"
	"github.com/adarsh140528/Horizon-Bank/internal/domain"
	"github.com/adarsh140528/Horizon-Bank/internal/logger"
	"github.com/adarsh140528/Horizon-Bank/internal/store"
	"github.com/adarsh140528/Horizon-Bank/pkg/mailer"
	"github.com/adarsh140528/Horizon-Bank/pkg/rabbitmq"
	"github.com/adarsh140528/Horizon-Bank/pkg/smsclient"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("level=warn component=bootstrap msg=\"failed to load .env\" err=%v", err)
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"logger init failed\" err=%v", err)
	}
	defer zlog.Sync()

	zlog.Info("starting ledger service", zap.String("port", cfg.ServerPort), zap.String("store", cfg.StoreDriver))

	ctx := context.Background()

	repository, closeStore := openStore(ctx, cfg, zlog)
	defer closeStore()

	var challenges store.ChallengeStore = repository
	if cfg.OTPStore == "redis" {
		if redisClient := openRedis(ctx, cfg, zlog); redisClient != nil {
			defer redisClient.Close()
			challenges = store.NewRedisChallengeStore(redisClient, cfg.RedisKeyPrefix)
		}
	}

	var publisher rabbitmq.Publisher = &rabbitmq.EventProducerFallback{Log: zlog}
	brokerConnected := false
	if cfg.RabbitMQURL == "" {
		zlog.Warn("rabbitmq url missing; events will be dropped")
	} else if producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, zlog); err != nil {
		zlog.Warn("rabbitmq producer unavailable; using fallback", zap.Error(err))
	} else {
		defer producer.Close()
		publisher = producer
		brokerConnected = true
		zlog.Info("rabbitmq producer connected")
	}

	emailTransport := mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	smsTransport := smsclient.NewClient(cfg.SMSAPIURL, cfg.SMSAPIKey)
	directEmail := &app.EmailCodeSender{Transport: emailTransport}
	directSMS := &app.SMSCodeSender{Transport: smsTransport}

	delivery := newDelivery(cfg, zlog, publisher, brokerConnected, directEmail, directSMS)

	tokens := app.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour)
	otpService := app.NewOTPService(
		repository,
		challenges,
		repository,
		delivery,
		zlog,
		time.Duration(cfg.OTPTTLSeconds)*time.Second,
		time.Duration(cfg.TicketTTLSeconds)*time.Second,
	)
	authService := app.NewAuthService(repository, otpService, tokens, zlog, cfg.LoginOTPRequired)
	moneyService := app.NewMoneyService(repository, publisher, cfg.EventsExchange, zlog)
	adminService := app.NewAdminService(repository, publisher, cfg.EventsExchange, zlog,
		cfg.RevenuePerTransactionMinor, cfg.SuspiciousThresholdMinor)

	var webauthn *app.WebAuthnDemo
	if cfg.WebAuthnDemoMode {
		webauthn = app.NewWebAuthnDemo(repository, authService, zlog, cfg.WebAuthnRPName)
		zlog.Warn("biometric login running in demo mode; no signature verification is performed")
	}

	seedCtx, cancelSeed := context.WithTimeout(ctx, 10*time.Second)
	if err := authService.SeedAdmin(seedCtx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminAccountNumber); err != nil {
		zlog.Error("admin seed failed", zap.Error(err))
	}
	cancelSeed()

	jobs := app.NewJobs(repository, publisher, cfg.EventsExchange, zlog, cfg.SuspiciousThresholdMinor)
	scheduler := app.NewScheduler(jobs, zlog, cfg.SuspiciousSweepSchedule, cfg.TicketPurgeSchedule)
	scheduler.Start()

	if cfg.NotificationWorkerEnabled {
		if consumer := startNotificationWorker(cfg, zlog, directEmail, directSMS); consumer != nil {
			defer consumer.Close()
		}
	}

	handler := api.NewHandler(api.Services{
		Auth:     authService,
		OTP:      otpService,
		Money:    moneyService,
		Admin:    adminService,
		WebAuthn: webauthn,
	}, zlog)
	router := api.NewRouter(handler, api.RouterOptions{
		Tokens:         tokens,
		AllowedOrigins: cfg.AllowedOrigins(),
		RequestTimeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
	})

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("server listening", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server stopped unexpectedly", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	zlog.Info("shutdown started")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown failed", zap.Error(err))
	}
	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		zlog.Warn("scheduled jobs still running at shutdown")
	}

	zlog.Info("shutdown complete")
}

// openStore returns the primary repository and its close func.
func openStore(ctx context.Context, cfg config.Config, zlog *zap.Logger) (store.Repository, func()) {
	if cfg.StoreDriver == "memory" {
		zlog.Warn("using in-memory store; data is lost on restart")
		return store.NewMemoryRepository(), func() {}
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("database url parse failed", zap.Error(err))
	}
	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	zlog.Info("database connected")

	repository := store.NewPostgresRepository(dbpool)
	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := repository.Migrate(migrateCtx); err != nil {
		dbpool.Close()
		zlog.Fatal("schema migration failed", zap.Error(err))
	}
	return repository, dbpool.Close
}

// openRedis connects to REDIS_URL. It returns nil when redis is unusable, in
// which case challenges stay in the primary store.
func openRedis(ctx context.Context, cfg config.Config, zlog *zap.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		zlog.Warn("redis url missing; otp challenges stay in the primary store", zap.String("env", "REDIS_URL"))
		return nil
	}
	options, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zlog.Warn("redis url parse failed; otp challenges stay in the primary store", zap.Error(err))
		return nil
	}
	client := redis.NewClient(options)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		zlog.Warn("redis ping failed; otp challenges stay in the primary store", zap.Error(err))
		client.Close()
		return nil
	}
	zlog.Info("redis connected")
	return client
}

// newDelivery installs the code senders selected by DELIVERY_PROVIDER.
func newDelivery(cfg config.Config, zlog *zap.Logger, publisher rabbitmq.Publisher, brokerConnected bool, email, sms app.CodeSender) *app.Delivery {
	provider := cfg.DeliveryProvider
	if provider == "queue" && !brokerConnected {
		zlog.Warn("queue delivery needs rabbitmq; falling back to log delivery")
		provider = "log"
	}

	switch provider {
	case "direct":
		if strings.TrimSpace(cfg.SMTPUser) == "" {
			zlog.Warn("SMTP_USER is empty; email delivery will likely be rejected")
		}
		if strings.TrimSpace(cfg.SMSAPIKey) == "" {
			zlog.Warn("SMS_API_KEY is empty; sms delivery will likely be rejected")
		}
		return app.NewDelivery(email, sms)
	case "queue":
		return app.NewDelivery(
			&app.QueueCodeSender{Channel: domain.ChannelEmail, Publisher: publisher, Exchange: cfg.EventsExchange},
			&app.QueueCodeSender{Channel: domain.ChannelSMS, Publisher: publisher, Exchange: cfg.EventsExchange},
		)
	default:
		zlog.Warn("otp codes are written to the log; do not use in production")
		return app.NewDelivery(
			&app.LogCodeSender{Channel: domain.ChannelEmail, Log: zlog},
			&app.LogCodeSender{Channel: domain.ChannelSMS, Log: zlog},
		)
	}
}

func startNotificationWorker(cfg config.Config, zlog *zap.Logger, email, sms app.CodeSender) *rabbitmq.Consumer {
	consumer, err := rabbitmq.NewConsumer(cfg.RabbitMQURL, zlog)
	if err != nil {
		zlog.Error("rabbitmq consumer init failed; notification worker disabled", zap.Error(err))
		return nil
	}
	worker := app.NewNotificationWorker(email, sms, zlog)
	if err := consumer.ConsumeWithBindings(cfg.EventsExchange, cfg.NotificationQueue, worker.Bindings()); err != nil {
		consumer.Close()
		zlog.Error("notification consumer start failed", zap.Error(err))
		return nil
	}
	zlog.Info("notification worker started", zap.String("queue", cfg.NotificationQueue))
	return consumer
}
