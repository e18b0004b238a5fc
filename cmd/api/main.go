package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nazarhussain/portfolio-contact/env"
	portfolio_contact "github.com/nazarhussain/portfolio-contact/internal"
)

func main() {
	logger := newLogger()

	config, err := portfolio_contact.LoadConfig()
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := portfolio_contact.OpenStore(ctx, config)
	if err != nil {
		logger.Error("open rate limit store", "backend", config.RateLimitBackend, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	journal, err := portfolio_contact.NewJournal(config.LogDir, config.Logging, config.Location)
	if err != nil {
		logger.Error("open log directory", "dir", config.LogDir, "err", err)
		os.Exit(1)
	}

	var mailer portfolio_contact.Mailer = portfolio_contact.LogMailer{}
	if config.SMTP.Enabled {
		mailer = portfolio_contact.NewSMTPMailer(config.SMTP)
	}

	contact, err := portfolio_contact.NewHandler(config, portfolio_contact.Deps{
		Mailer:  mailer,
		Limiter: portfolio_contact.NewLimiter(store, config.RateLimitWindow),
		Journal: journal,
	})
	if err != nil {
		logger.Error("build contact handler", "err", err)
		os.Exit(1)
	}

	router := mux.NewRouter()
	router.Handle(config.ContactPath, contact)
	router.HandleFunc("/health", portfolio_contact.HandleHealth).Methods(http.MethodGet, http.MethodHead)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.MethodNotAllowedHandler = http.HandlerFunc(portfolio_contact.HandleMethodNotAllowed)

	handler := portfolio_contact.RequestLogger(logger, config.Location)(portfolio_contact.SecurityHeaders(router))

	s := &http.Server{
		Addr:              config.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	maintainer := portfolio_contact.NewMaintainer(config, store, journal, logger.With("component", "maintenance"))
	go maintainer.Run(ctx)

	go func() {
		logger.Info("contact service listening",
			"addr", config.ListenAddr,
			"path", config.ContactPath,
			"rate_limit_backend", config.RateLimitBackend,
			"smtp", config.SMTP.Enabled,
		)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "err", err)
		return
	}
	logger.Info("server shutdown complete")
}

// newLogger loads .env first so LOG_LEVEL and LOG_FORMAT can come from it.
func newLogger() *slog.Logger {
	env.Load()
	opts := &slog.HandlerOptions{
		Level: logLevelFromEnv(),
	}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func logLevelFromEnv() slog.Leveler {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
