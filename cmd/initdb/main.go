// Command initdb creates the database schema and seeds the standard BMI categories.
//
// Usage:
//
//	initdb [-config path] [all|tables|categories|reset -yes]
package main

import (
	"context"
	"flag"
	"fmt"
	"github.com/burenotti/go_bmi_backend/internal/adapter/storage"
	categoryservice "github.com/burenotti/go_bmi_backend/internal/app/category"
	"github.com/burenotti/go_bmi_backend/internal/app/messagebus"
	"github.com/burenotti/go_bmi_backend/internal/app/unitofwork"
	"github.com/burenotti/go_bmi_backend/internal/config"
	"log/slog"
	"os"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config/config.yaml", "path to config file, empty to read the environment only")
	flag.Usage = usage
	flag.Parse()

	command := "all"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg := config.MustLoad(configPath)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx := context.Background()
	db, err := storage.Open(ctx, storage.Driver(cfg.DB.Driver), cfg.DB.DSN)
	if err != nil {
		logger.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := run(ctx, db, logger, command, flag.Args()); err != nil {
		logger.Error("initdb failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, db *storage.DB, logger *slog.Logger, command string, args []string) error {
	switch command {
	case "all":
		if err := createTables(ctx, db, logger); err != nil {
			return err
		}
		return seedCategories(ctx, db, logger)
	case "tables":
		return createTables(ctx, db, logger)
	case "categories":
		return seedCategories(ctx, db, logger)
	case "reset":
		fs := flag.NewFlagSet("reset", flag.ContinueOnError)
		yes := fs.Bool("yes", false, "confirm dropping all tables")
		if len(args) > 1 {
			if err := fs.Parse(args[1:]); err != nil {
				return err
			}
		}
		if !*yes {
			return fmt.Errorf("reset drops every table, pass -yes to confirm")
		}
		if err := storage.Drop(ctx, db); err != nil {
			return err
		}
		logger.Info("tables dropped")
		if err := createTables(ctx, db, logger); err != nil {
			return err
		}
		return seedCategories(ctx, db, logger)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func createTables(ctx context.Context, db *storage.DB, logger *slog.Logger) error {
	if err := storage.Migrate(ctx, db); err != nil {
		return err
	}
	logger.Info("tables created")
	return nil
}

func seedCategories(ctx context.Context, db *storage.DB, logger *slog.Logger) error {
	bus := messagebus.New(logger)
	defer bus.Close()

	uow := unitofwork.New(db, categoryservice.NewAtomicContext, bus, logger)
	added, err := categoryservice.New(logger).Seed(ctx, uow)
	if err != nil {
		return err
	}
	logger.Info("categories initialized", "added", added)
	return nil
}

func usage() {
	out := flag.CommandLine.Output()
	_, _ = fmt.Fprintf(out, "Usage: %s [-config path] [command]\n\n", os.Args[0])
	_, _ = fmt.Fprintln(out, "Commands:")
	_, _ = fmt.Fprintln(out, "  all         create tables and seed categories (default)")
	_, _ = fmt.Fprintln(out, "  tables      create tables")
	_, _ = fmt.Fprintln(out, "  categories  seed the standard BMI categories")
	_, _ = fmt.Fprintln(out, "  reset -yes  drop all tables, then run all")
	_, _ = fmt.Fprintln(out, "\nFlags:")
	flag.PrintDefaults()
}
