// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"bookstore/internal/auth"
	"bookstore/internal/clients"
	"bookstore/internal/notify"
	"bookstore/internal/server"
	"bookstore/pkg/config"
	"bookstore/pkg/database"
	"bookstore/pkg/logging"
	"bookstore/pkg/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	// Prices travel as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown", "error", err)
		}
	}()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	var sinks []notify.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		kafka := notify.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafka.Close()
		sinks = append(sinks, kafka)
		logger.Info("forwarding notifications to kafka", "topic", cfg.Kafka.Topic)
	}
	hub := notify.NewHub(64, logger, sinks...)

	otps := auth.NewOTPStore(cfg.Auth.OTPTTL, cfg.Auth.ResetTTL, cfg.Auth.OTPCapacity)
	go otps.Run(ctx)

	var mailer auth.Mailer = auth.LogMailer{Logger: logger}
	if cfg.Mail.User != "" && cfg.Mail.Password != "" {
		smtp, err := auth.NewSMTPMailer(cfg.Mail.SMTPAddr, cfg.Mail.User, cfg.Mail.Password)
		if err != nil {
			return err
		}
		mailer = smtp
	}

	handler, err := server.Build(server.Deps{
		Config:  cfg,
		DB:      db,
		Hub:     hub,
		OTPs:    otps,
		Mailer:  mailer,
		Gateway: clients.NewPaymentClient(cfg.Payment.BaseURL, cfg.Payment.SecretKey, cfg.Payment.Timeout),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting bookstore api", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		// Open event streams keep their connections busy.
		logger.Warn("graceful shutdown incomplete, closing connections", "error", err)
		srv.Close()
	}
	hub.Wait()
	return nil
}
