package main

import (
	"context"
	"errors"
	"flag"
	"github.com/burenotti/go_bmi_backend/internal/adapter/api"
	"github.com/burenotti/go_bmi_backend/internal/adapter/storage"
	"github.com/burenotti/go_bmi_backend/internal/app/authapp"
	bmiservice "github.com/burenotti/go_bmi_backend/internal/app/bmi"
	categoryservice "github.com/burenotti/go_bmi_backend/internal/app/category"
	measurementservice "github.com/burenotti/go_bmi_backend/internal/app/measurement"
	"github.com/burenotti/go_bmi_backend/internal/app/messagebus"
	"github.com/burenotti/go_bmi_backend/internal/app/unitofwork"
	userservice "github.com/burenotti/go_bmi_backend/internal/app/user"
	"github.com/burenotti/go_bmi_backend/internal/config"
	"github.com/burenotti/go_bmi_backend/internal/domain"
	"github.com/burenotti/go_bmi_backend/internal/domain/measurement"
	"github.com/burenotti/go_bmi_backend/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config/config.yaml", "path to config file, empty to read the environment only")
	flag.Parse()

	cfg := config.MustLoad(configPath)
	logger := initLogger(cfg)

	bus := messagebus.New(logger)
	registerEventLoggers(bus, logger)
	defer bus.Close()

	ctx := context.Background()

	db, err := storage.Open(ctx, storage.Driver(cfg.DB.Driver), cfg.DB.DSN)
	if err != nil {
		panic("failed to connect database: " + err.Error())
	}
	defer db.Close()

	if err := storage.Migrate(ctx, db); err != nil {
		panic("failed to create schema: " + err.Error())
	}

	categories := categoryservice.New(logger)
	if cfg.DB.Seed {
		uow := unitofwork.New(db, categoryservice.NewAtomicContext, bus, logger)
		added, err := categories.Seed(ctx, uow)
		if err != nil {
			panic("failed to seed categories: " + err.Error())
		}
		logger.Info("categories seeded", "added", added)
	}

	authorizer := &authapp.Authorizer{
		Cost:           bcrypt.DefaultCost,
		Secret:         cfg.JWT.Secret,
		AccessTokenTTL: cfg.JWT.AccessTokenTTL,
	}

	server := api.NewServer(
		api.Addr(cfg.Server.Host, cfg.Server.Port),
		api.BasePath(cfg.Server.BasePath),
		api.AllowedOrigins(cfg.CORS.AllowedOrigins...),
		api.Logger(logger),
		api.Database(db),
		api.MessageBus(bus),
		api.Authorizer(authorizer),
		api.BMIService(bmiservice.New(logger, cfg.BMI.StrictUnits)),
		api.CategoryService(categories),
		api.UserService(userservice.New(authorizer, logger)),
		api.MeasurementService(measurementservice.New(logger)),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error)

	go func() {
		defer close(errCh)
		logger.Info("starting server",
			"name", cfg.App.Name,
			"version", cfg.App.Version,
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
			"db_driver", cfg.DB.Driver,
		)
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server was not shutdown gracefully", "error", err)
		}
	case err := <-errCh:
		if err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server closed with unexpected error", "error", err)
			}
		}
	}
	logger.Info("server shutdown")
}

func registerEventLoggers(bus *messagebus.MessageBus, logger *slog.Logger) {
	logEvent := func(event domain.Event) error {
		attrs := []any{"type", event.Type(), "at", event.PublishedAt()}
		switch e := event.(type) {
		case user.CreatedEvent:
			attrs = append(attrs, "username", e.Username)
		case user.LoginEvent:
			attrs = append(attrs,
				"user_id", e.UserID,
				"browser", e.Device.Browser,
				"os", e.Device.OS,
				"ip", e.Device.IPAddress,
			)
		case user.DeletedEvent:
			attrs = append(attrs, "user_id", e.UserID)
		case measurement.RecordedEvent:
			attrs = append(attrs, "user_id", e.UserID, "measurement_id", e.MeasurementID, "bmi", e.BMI)
		case measurement.DeletedEvent:
			attrs = append(attrs, "user_id", e.UserID, "measurement_id", e.MeasurementID)
		}
		logger.Info("domain event", attrs...)
		return nil
	}

	for _, eventType := range []string{
		user.EventCreated,
		user.EventNewLogin,
		user.EventDeleted,
		measurement.EventRecorded,
		measurement.EventDeleted,
	} {
		bus.Register(eventType, logEvent)
	}
}

func initLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler
	switch cfg.App.Env {
	case config.Development:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			AddSource: true,
			Level:     slog.LevelDebug,
		})
	case config.Production:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			AddSource: false,
			Level:     slog.LevelInfo,
		})
	default:
		panic("invalid env")
	}

	return slog.New(handler)
}
