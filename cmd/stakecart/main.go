package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/screwyprof/stakecart/cmd/stakecart/config"
	"github.com/screwyprof/stakecart/migrator"
	"github.com/screwyprof/stakecart/pkg/httpkit"
	"github.com/screwyprof/stakecart/pkg/lcd"
	"github.com/screwyprof/stakecart/pkg/logger"
	"github.com/screwyprof/stakecart/pkg/pgxdb"
	"github.com/screwyprof/stakecart/staking"
	"github.com/screwyprof/stakecart/staking/store/pgxstore"
	"github.com/screwyprof/stakecart/web"
	"github.com/screwyprof/stakecart/web/handler"
)

var (
	version = "dev"
	date    = "unknown"
)

func main() {
	cfg := config.New()

	log := logger.NewFromConfig(logger.Config{
		LogLevel:         cfg.LogLevel,
		LogHumanFriendly: cfg.LogHumanFriendly,
	})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.InfoContext(ctx, "Stakecart starting",
		slog.String("version", version),
		slog.String("date", date),
		slog.String("account", cfg.Account),
		slog.Bool("journal", cfg.JournalEnabled()),
	)

	if err := run(ctx, cfg, log); err != nil {
		log.ErrorContext(ctx, "Stakecart failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.InfoContext(ctx, "Stakecart stopped gracefully")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	feed := staking.NewFeed(cfg.EventBuffer)
	subCloser := setupEventLogging(ctx, feed.Events(), log)
	defer subCloser()
	defer feed.Close()

	opts := []staking.Option{
		staking.WithLogger(log),
		staking.WithNotifier(feed),
		staking.WithPollInterval(cfg.PollInterval),
		staking.WithReconcileDelay(cfg.ReconcileDelay),
	}

	// A nil finder keeps the history endpoint answering 404
	var finder handler.HistoryFinder
	if cfg.JournalEnabled() {
		journal, closer, err := openJournal(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closer()
		opts = append(opts, staking.WithRecorder(journal))
		finder = journal
	}

	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}
	ledger := staking.NewLedger(lcd.NewClient(httpClient, cfg.LCDURL))

	engine := staking.NewEngine(ledger, ledger, opts...)
	engine.SetAccount(cfg.Account)

	poller := staking.NewPoller(engine, opts...)

	server := &http.Server{
		Addr:    cfg.Web.Addr(),
		Handler: web.NewHandler(engine, finder, log),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-poller.Start(gctx)
		return nil
	})
	g.Go(func() error {
		log.InfoContext(gctx, "Server started", slog.String("addr", server.Addr))
		return httpkit.Serve(gctx, server, cfg.Web.ShutdownTimeout)
	})

	return g.Wait()
}

// openJournal connects to the journal database, applying migrations first
// when a migrations directory is configured
func openJournal(ctx context.Context, cfg config.Config, log *slog.Logger) (*pgxstore.Journal, func(), error) {
	db, err := pgxdb.NewConnection(ctx, cfg.DatabaseURL, pgxdb.WithMaxConns(cfg.DatabaseMaxConns))
	if err != nil {
		return nil, nil, err
	}

	if cfg.MigrationsDir != "" {
		log.InfoContext(ctx, "Applying database migrations", slog.String("dir", cfg.MigrationsDir))
		if err := migrator.ApplyMigrations(db, cfg.MigrationsDir); err != nil {
			db.Close()
			return nil, nil, err
		}
	}

	journal, closer := pgxstore.New(db)
	return journal, closer, nil
}

// setupEventLogging logs engine events using slog directly
func setupEventLogging(ctx context.Context, events <-chan staking.Event, log *slog.Logger) func() {
	return staking.NewSubscriber(events,
		staking.OnReconciled(func(event staking.Reconciled) {
			if event.CartAdded > 0 {
				log.InfoContext(ctx, "Cart extended with new delegations",
					slog.String("account", event.Account),
					slog.Int("added", event.CartAdded),
				)
			}
		}),
		staking.OnReconcileDiscarded(func(event staking.ReconcileDiscarded) {
			log.DebugContext(ctx, "Reconciliation discarded",
				slog.String("account", event.Account),
				slog.String("active", event.Active),
			)
		}),
		staking.OnReconcileFailed(func(event staking.ReconcileFailed) {
			log.ErrorContext(ctx, event.Title,
				slog.String("account", event.Account),
				slog.Any("error", event.Err),
			)
		}),
		staking.OnCandidateMissing(func(event staking.CandidateMissing) {
			log.DebugContext(ctx, "Candidate missing",
				slog.String("validator", string(event.Validator)),
			)
		}),
		staking.OnRecordFailed(func(event staking.RecordFailed) {
			log.WarnContext(ctx, "Journal write failed",
				slog.String("account", event.Account),
				slog.Any("error", event.Err),
			)
		}),
		staking.OnUnbondingCompleted(func(event staking.UnbondingCompleted) {
			log.InfoContext(ctx, event.Message)
		}),
		staking.OnPollingStarted(func(event staking.PollingStarted) {
			log.InfoContext(ctx, "Polling started",
				slog.Duration("interval", event.Interval),
			)
		}),
		staking.OnPollingShutdown(func(event staking.PollingShutdown) {
			log.InfoContext(ctx, "Polling stopped",
				slog.String("reason", event.Reason.Error()),
			)
		}),
	)
}
