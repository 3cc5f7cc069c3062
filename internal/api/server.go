package api

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/config"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/infra/queue"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/api/rest/handlers"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/database"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/helper"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/helper/utils"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/interfaces"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/logging"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/repository"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/services"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/ws"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/pkg/cloudinary"
)

const shutdownTimeout = 10 * time.Second

// NewApp builds the fiber app with the shared middleware stack and mounts the
// user routes.
func NewApp(cfg config.Config, userHandler *handlers.UserHandler, log logging.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "indah-bermasyarakat",
		BodyLimit:    6 * 1024 * 1024,
		ErrorHandler: errorHandler(log),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.BaseURL,
		AllowHeaders:     "Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		AllowCredentials: cfg.BaseURL != "*",
	}))
	if cfg.RateLimitMax > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimitMax,
			Expiration: cfg.RateLimitWindow,
			LimitReached: func(ctx *fiber.Ctx) error {
				return utils.ResponseError(ctx, fiber.StatusTooManyRequests, "Terlalu banyak permintaan, coba lagi nanti")
			},
		}))
	}

	app.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
	})

	userHandler.SetupRoutes(app)

	app.Use(func(ctx *fiber.Ctx) error {
		return utils.ResponseError(ctx, fiber.StatusNotFound, "Route not found")
	})
	return app
}

func errorHandler(log logging.Logger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
			return utils.ResponseError(ctx, fe.Code, fe.Message)
		}
		log.Error(ctx.UserContext(), "unhandled error",
			"path", ctx.Path(),
			"request_id", ctx.GetRespHeader(fiber.HeaderXRequestID),
			"error", err)
		return utils.ResponseInternal(ctx, "Terjadi kesalahan pada server", "internal")
	}
}

// StartServer wires the stores, mail transport, socket hub and HTTP app, then
// blocks until SIGINT/SIGTERM.
func StartServer(cfg config.Config, log logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---------- DB ----------
	db, err := database.Connect(cfg.DatabaseDSN, database.GormLogLevel(cfg.LogLevel))
	if err != nil {
		return err
	}
	log.Info(ctx, "database connected")

	if err := database.MigratePostgres(ctx, db); err != nil {
		return err
	}
	log.Info(ctx, "migration successful")

	// ---------- Mail ----------
	var (
		mailer   interfaces.Mailer
		producer *queue.Producer
	)
	if cfg.UseKafka() {
		producer = queue.NewProducer(cfg.KafkaBroker, cfg.KafkaTopic, cfg.KafkaUsername, cfg.KafkaPassword)
		mailer = queue.NewMailPublisher(producer)
		log.Info(ctx, "mail via kafka", "broker", cfg.KafkaBroker, "topic", cfg.KafkaTopic)
	} else {
		mailer = services.NewMailService(smtpConfig(cfg))
		log.Info(ctx, "mail via smtp", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
	}
	defer func() { _ = producer.Close() }()

	// ---------- Uploads ----------
	var uploader interfaces.Uploader
	if cfg.CloudinaryUrl != "" {
		cld, err := cloudinary.New(cfg.CloudinaryUrl)
		if err != nil {
			return err
		}
		uploader = cloudinary.NewCloudinaryUploader(cld)
	} else {
		log.Warn(ctx, "CLOUDINARY_URL not set, avatar uploads disabled")
	}

	authHelper := helper.SetupAuth(cfg.JWTSecret, cfg.JWTExpire)

	// ---------- Socket ----------
	hub := ws.NewHub(authHelper, log.With("component", "ws"))
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	socketSrv := &http.Server{Addr: cfg.SocketAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	// ---------- Repositories ----------
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// ---------- Services ----------
	userSvc := services.NewUserService(services.UserServiceDeps{
		Users:         userRepo,
		Audit:         auditRepo,
		Auth:          authHelper,
		Hasher:        helper.NewHasher(cfg.BcryptCost),
		Tokens:        services.NewTokenManager(userRepo, cfg.VerifyTokenTTL, cfg.ResetTokenTTL, time.Now),
		Notifications: services.NewNotificationService(notificationRepo, mailer, log.With("component", "notify"), cfg.FrontendURL),
		Broadcaster:   hub,
		Uploader:      uploader,
		Log:           log,
	})

	// ---------- HTTP ----------
	app := NewApp(cfg, handlers.NewUserHandler(userSvc, authHelper, log), log)

	errCh := make(chan error, 2)
	go func() {
		log.Info(ctx, "socket listening", "addr", cfg.SocketAddr)
		if err := socketSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		log.Info(ctx, "http listening", "addr", cfg.ServerPort)
		if err := app.Listen(cfg.ServerPort); err != nil {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info(context.Background(), "shutting down")
	case runErr = <-errCh:
		log.Error(context.Background(), "server stopped", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	hub.Close()
	if err := socketSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "socket shutdown", "error", err)
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "http shutdown", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return runErr
}

func smtpConfig(cfg config.Config) services.SMTPConfig {
	return services.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		FromName: cfg.MailFromName,
	}
}
