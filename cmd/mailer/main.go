// Command mailer drains the mail topic and delivers each message over SMTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ihzhatamamy/indah-bermasyarakat-be/config"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/infra/queue"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/api/events"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/database"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/logging"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/repository"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/services"
)

func main() {
	// ---------- Load Config ----------
	cfg := config.LoadConfig()
	log := logging.New(os.Stdout, cfg.Env, cfg.LogLevel).With("component", "mailer")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cfg.UseKafka() {
		log.Error(ctx, "KAFKA_BROKER is required for the mail worker")
		os.Exit(1)
	}
	log.Info(ctx, "mail worker starting", "broker", cfg.KafkaBroker, "topic", cfg.KafkaTopic, "group", cfg.KafkaGroupID)

	// ---------- Init Service ----------
	mailService := services.NewMailService(services.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		FromName: cfg.MailFromName,
	})

	// delivery outcomes are written back when the worker can reach the database
	var outcomes events.OutcomeRecorder
	if cfg.DatabaseDSN != "" {
		db, err := database.Connect(cfg.DatabaseDSN, database.GormLogLevel(cfg.LogLevel))
		if err != nil {
			log.Error(ctx, "database connection failed", "error", err)
			os.Exit(1)
		}
		outcomes = services.NewNotificationService(repository.NewNotificationRepository(db), nil, log, cfg.FrontendURL)
	} else {
		log.Warn(ctx, "DATABASE_DSN not set, notification status will not be updated")
	}

	// ---------- Init Handler ----------
	handler := events.NewMailHandler(mailService, outcomes, log)

	// ---------- Init Kafka Consumer ----------
	consumer := queue.NewKafkaConsumer(
		cfg.KafkaBroker,
		cfg.KafkaTopic,
		cfg.KafkaGroupID,
		cfg.KafkaUsername,
		cfg.KafkaPassword,
		handler,
		log,
	)
	defer consumer.Close()

	// ---------- Start Listening ----------
	log.Info(ctx, "listening for mail events")
	if err := consumer.Listen(ctx); err != nil {
		log.Error(ctx, "consumer stopped", "error", err)
	}
	log.Info(context.Background(), "mail worker stopped")
}
