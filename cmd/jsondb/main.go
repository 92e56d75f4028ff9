package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/leengari/jsondb/internal/config"
	dberrors "github.com/leengari/jsondb/internal/domain/errors"
	"github.com/leengari/jsondb/internal/engine"
	"github.com/leengari/jsondb/internal/logging"
	"github.com/leengari/jsondb/internal/repl"
	"github.com/leengari/jsondb/internal/storage/manager"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML or TOML config file")
	dir := flag.String("dir", "", "Database directory (overrides config)")
	demo := flag.Bool("demo", false, "Seed the users table and run the demo queries")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jsondb: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *dir != "" {
		cfg.Database.Dir = *dir
	}

	logger, closeFn := logging.SetupLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	if err := run(cfg, *demo); err != nil {
		slog.Error("jsondb failed", "error", err)
		closeFn()
		os.Exit(1)
	}
	closeFn()
}

func run(cfg *config.Config, demo bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := manager.Open(cfg.Database.Dir, manager.WithJournal(cfg.Database.Journal))
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Warn("closing database", "error", err)
		}
	}()

	eng := engine.New(db)
	eng.AddObserver(engine.NewLoggingObserver(slog.Default()))

	opts := []repl.Option{
		repl.WithPrompt(cfg.Console.Prompt),
		repl.WithColor(cfg.Console.Color),
	}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		metrics, err := engine.NewMetricsObserver(cfg.Metrics.Namespace, reg)
		if err != nil {
			return err
		}
		eng.AddObserver(metrics)
		opts = append(opts, repl.WithGatherer(reg))
	}

	console := repl.New(eng, os.Stdout, opts...)

	if demo {
		return runDemo(ctx, db, eng, console)
	}

	slog.Info("Application ready!", "dir", db.Dir(), "tables", len(db.Tables()))
	err = console.Run(ctx, os.Stdin)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

var demoQueries = []string{
	`INSERT INTO users VALUES {"id": 1, "name": "Alice", "age": 30}`,
	`INSERT INTO users VALUES {"id": 2, "name": "Bob", "age": 24}`,
	`INSERT INTO users VALUES {"id": 3, "name": "Charlie", "age": 28}`,
	`SELECT * FROM users WHERE {"age": 30}`,
	`SELECT * FROM users WHERE age > 25`,
	`UPDATE users SET name = 'Alice Cooper' WHERE id = 1`,
	`DELETE FROM users WHERE id = 2`,
	`SELECT * FROM users`,
}

// runDemo creates the users table (unless present) and runs the sample queries
func runDemo(ctx context.Context, db *manager.Database, eng *engine.Engine, console *repl.Console) error {
	if _, err := db.CreateTable("users", []string{"id", "name", "age"}, "id"); err != nil {
		if !errors.Is(err, dberrors.ErrTableAlreadyExists) {
			return err
		}
		slog.Info("users table already exists, reusing it")
	}

	for _, q := range demoQueries {
		fmt.Fprintf(os.Stdout, "> %s\n", q)
		res, err := eng.ExecuteContext(ctx, q)
		if err != nil {
			fmt.Fprintf(os.Stdout, "Error: %v\n", err)
			continue
		}
		console.PrintResult(res)
	}
	return nil
}
