package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/offerbot/config"
	"github.com/alejandrodnm/offerbot/internal/adapters/amboss"
	"github.com/alejandrodnm/offerbot/internal/adapters/lnd"
	"github.com/alejandrodnm/offerbot/internal/adapters/metrics"
	"github.com/alejandrodnm/offerbot/internal/adapters/notify"
	"github.com/alejandrodnm/offerbot/internal/adapters/paper"
	"github.com/alejandrodnm/offerbot/internal/adapters/storage"
	"github.com/alejandrodnm/offerbot/internal/application/reconcile"
	"github.com/alejandrodnm/offerbot/internal/application/schedule"
	"github.com/alejandrodnm/offerbot/internal/domain"
	"github.com/alejandrodnm/offerbot/internal/ports"
)

// Códigos de salida: 0 ok, 1 fallo de arranque o run abortado, 2 run con errores por template.
const (
	exitOK          = 0
	exitFailure     = 1
	exitRunWithErrs = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run contiene todo el proceso para que los defers (journal, señales) se ejecuten
// antes de os.Exit.
func run(args []string) int {
	fs := flag.NewFlagSet("offerbot", flag.ContinueOnError)
	configPath := fs.String("config", "config/config.yaml", "path to config file")
	dryRun := fs.Bool("dry-run", false, "plan and report without calling mutation endpoints")
	force := fs.Bool("force", false, "apply live changes without the confirmation prompt")
	verbose := fs.Bool("verbose", false, "set log level to debug")
	logFormat := fs.String("format", "", "log format: text|json (overrides config)")
	cronSpec := fs.String("schedule", "", "run periodically with a cron spec (e.g. \"*/30 * * * *\" or \"@every 1h\")")
	history := fs.Int("history", 0, "print the last N recorded runs and exit")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		return exitFailure
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	console := notify.NewConsole()

	journal, err := storage.NewSQLiteJournal(cfg.Storage.DSN)
	if err != nil {
		// sin journal el run sigue: es solo auditoría
		slog.Warn("failed to open run journal", "err", err, "dsn", cfg.Storage.DSN)
	} else {
		defer func() {
			if err := journal.Close(); err != nil {
				slog.Warn("failed to close run journal", "err", err)
			}
		}()
	}

	if *history > 0 {
		if journal == nil {
			return exitFailure
		}
		if err := printHistory(context.Background(), journal, console, *history); err != nil {
			slog.Error("failed to read run history", "err", err)
			return exitFailure
		}
		return exitOK
	}

	if !cfg.AutoPrice.Enabled {
		slog.Info("autoprice disabled in config, nothing to do", "config", *configPath)
		return exitOK
	}

	if *cronSpec != "" && !*dryRun && !*force {
		slog.Error("scheduled live runs require -force (no interactive prompt inside the scheduler)")
		return exitFailure
	}

	slog.Info("offerbot starting",
		"config", *configPath,
		"dry_run", *dryRun,
		"force", *force,
		"schedule", *cronSpec,
		"templates", len(cfg.AutoPrice.Templates),
	)

	client := amboss.NewClient(cfg.API.BaseURL, cfg.Secrets.AmbossToken, cfg.APITimeout())
	wallet := lnd.NewWallet(lnd.Config{
		LncliPath:       cfg.Wallet.LncliPath,
		MinConfs:        cfg.Wallet.MinConfs,
		LoopPath:        cfg.Wallet.LoopPath,
		LoopRPCServer:   cfg.Wallet.LoopRPCServer,
		LoopTLSCertPath: cfg.Wallet.LoopTLSCertPath,
		Timeout:         cfg.WalletTimeout(),
	}, nil)

	// dry-run: mismo plan, las escrituras se registran en memoria
	var executor ports.OfferExecutor = client
	if *dryRun {
		executor = paper.NewExecutor()
	}

	deps := reconcile.Deps{
		Credentials: client,
		Capital:     wallet,
		Market:      client,
		Executor:    executor,
		Notifiers:   []ports.Notifier{console},
	}
	if journal != nil {
		deps.Journal = journal
	}
	if !*force && !*dryRun && *cronSpec == "" {
		if c, ok := newPromptConfirmer(); ok {
			deps.Confirmer = c
		}
	}
	if cfg.Secrets.TelegramBotToken != "" {
		tg, err := notify.NewTelegram(cfg.Secrets.TelegramBotToken, cfg.Secrets.TelegramChatID, notify.TelegramOptions{
			APIServer:    cfg.Telegram.APIServer,
			OnChangeOnly: cfg.Telegram.NotifyOnChangeOnly,
			NotifyDryRun: cfg.Telegram.NotifyDryRun,
		})
		if err != nil {
			slog.Warn("telegram notifier disabled", "err", err)
		} else {
			deps.Notifiers = append(deps.Notifiers, tg)
		}
	}
	if cfg.Metrics.Textfile != "" {
		sink, err := metrics.NewTextfile(cfg.Metrics.Textfile)
		if err != nil {
			slog.Warn("metrics textfile disabled", "err", err)
		} else {
			deps.Metrics = sink
		}
	}

	svc := reconcile.NewService(buildReconcileConfig(cfg, *dryRun, *force), cfg.Templates(), deps)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *cronSpec != "" {
		runner := schedule.New(ctx)
		err := runner.Add(*cronSpec, "reconcile", func(ctx context.Context) error {
			_, err := svc.RunOnce(ctx)
			return err
		})
		if err != nil {
			slog.Error("invalid schedule", "err", err)
			return exitFailure
		}
		runner.Run(ctx)
		slog.Info("offerbot stopped cleanly")
		return exitOK
	}

	report, err := svc.RunOnce(ctx)
	switch {
	case errors.Is(err, reconcile.ErrAborted):
		slog.Info("run declined, no changes applied")
	case err != nil:
		slog.Error("run aborted", "err", err)
		return exitFailure
	case len(report.Errors()) > 0:
		// el run terminó pero algún template falló: código distinto para cron/systemd
		return exitRunWithErrs
	}
	return exitOK
}

// buildReconcileConfig traduce la config de fichero y los flags a la config inmutable del run.
func buildReconcileConfig(cfg *config.Config, dryRun, force bool) reconcile.Config {
	rc := reconcile.DefaultConfig()
	rc.Percentile = *cfg.AutoPrice.Percentile
	rc.PositionOffset = cfg.AutoPrice.PositionOffset
	rc.GlobalMinPPM = cfg.AutoPrice.GlobalMinPPM
	rc.BalanceFraction = cfg.AutoPrice.BalanceFraction
	rc.Filter = domain.DefaultMarketFilter()
	rc.Filter.MinSellerScore = cfg.AutoPrice.MinSellerScore
	rc.Filter.OwnAccount = cfg.AutoPrice.OwnAccount
	rc.DryRun = dryRun
	rc.Force = force
	return rc
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
