package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deps-triage/config"
	"deps-triage/data"
	"deps-triage/depsdev"
	"deps-triage/handlers"
	"deps-triage/storage"
	"deps-triage/triage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := newLogger()
	if err := newRootCmd(logger).ExecuteContext(ctx); err != nil {
		logger.Fatal(err)
	}
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		ForceColors:     true,
		DisableQuote:    true,
		PadLevelText:    true,
	})
	return logger
}

func newRootCmd(logger *logrus.Logger) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "deps-triage",
		Short:        "Track project dependencies and triage them by risk",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newServeCmd(logger))
	root.AddCommand(newTriageCmd(logger))
	return root
}

func newServeCmd(logger *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	db, err := sql.Open("sqlite3", cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to open DB: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	store := &storage.Storage{DB: db}

	initCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := store.InitSchema(initCtx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	client := &depsdev.DepsDevClient{
		BaseURL:    cfg.DepsDevURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}

	dm := &data.DataManager{
		Store:         store,
		API:           client,
		Log:           logger,
		MaxConcurrent: cfg.MaxConcurrent,
	}

	handler := &handlers.Handler{
		Store:       store,
		DataManager: dm,
		Engine:      triage.NewEngine(cfg.Thresholds, logger),
		Refresh:     cfg.Refresh,
		Log:         logger,
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.Logger)
	handler.Routes(r)

	target := cfg.Refresh
	refresh := func(ctx context.Context) error {
		return dm.RefreshDependencies(ctx, target.Project, target.System, target.Package, target.Version)
	}

	if cfg.InitialRefresh {
		if err := refresh(ctx); err != nil {
			return fmt.Errorf("failed to refresh dependencies: %w", err)
		}
	}

	if cfg.DailyRefresh {
		c := cron.New()
		_, err := c.AddFunc(cfg.RefreshSchedule, func() {
			logger.Info("Scheduled refresh triggered")
			if err := refresh(context.Background()); err != nil {
				logger.Errorf("scheduled refresh failed: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to schedule cron: %w", err)
		}
		c.Start()
		defer c.Stop()
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("starting on port %s...", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type triageOptions struct {
	file    string
	search  string
	filters []string
	sortKey string
	dir     string
}

func newTriageCmd(logger *logrus.Logger) *cobra.Command {
	var opts triageOptions

	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Filter and sort dependency records from a JSON file",
		Example: `  deps-triage triage --file deps.json --filter high-risk --filter stale
  deps-triage triage --file deps.json --q left --sort stars --dir desc`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			in, err := os.Open(opts.file)
			if err != nil {
				return err
			}
			defer in.Close()

			logger.SetOutput(cmd.ErrOrStderr())
			return runTriage(in, cmd.OutOrStdout(), triage.NewEngine(cfg.Thresholds, logger), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "JSON array of dependency records")
	cmd.Flags().StringVar(&opts.search, "q", "", "case-insensitive name search")
	cmd.Flags().StringSliceVar(&opts.filters, "filter", nil, "filter id, repeatable (high-risk, stale, few-contributors, popular)")
	cmd.Flags().StringVar(&opts.sortKey, "sort", "", "sort key (name, version, contributors, stars, score)")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "sort direction (asc, desc)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runTriage(in io.Reader, out io.Writer, engine *triage.Engine, opts triageOptions) error {
	var records []*triage.DependencyRecord
	if err := json.NewDecoder(in).Decode(&records); err != nil {
		return fmt.Errorf("decoding records: %w", err)
	}

	state, err := triage.ParseSortState(opts.sortKey, opts.dir)
	if err != nil {
		return err
	}

	res, err := engine.Triage(records, opts.search, opts.filters, state)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(engine.Report(res))
}
