package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"applyflow/internal/docgen"
	"applyflow/internal/docgen/gemini"
	"applyflow/internal/logger"
	"applyflow/internal/secrets"
	"applyflow/internal/store"
	"applyflow/internal/submit"
	"applyflow/internal/worker"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process due queue entries and submit applications",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("once", false, "process the currently due entries and exit")
	runCmd.Flags().Bool("dry-run", false, "log submissions instead of performing them")
	runCmd.Flags().Duration("interval", 5*time.Minute, "wake-up interval between queue sweeps")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting applyflow", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	st, err := store.Open(config.DataDir)
	if err != nil {
		logger.Fatal("opening the state store", zap.Error(err))
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	submitter := newSubmitter(config, dryRun, logger)

	var polisher worker.LetterPolisher
	if config.AI != nil && config.AI.Enabled {
		polisher, err = newLetterPolisher(ctx, config.AI, logger)
		if err != nil {
			logger.Fatal("configuring the cover letter polisher", zap.Error(err))
		}
	}

	w := worker.New(worker.Options{
		Store:     st,
		Docs:      docgen.New(config.DocsDir),
		Polisher:  polisher,
		Submitter: submitter,
		Schedule:  config.Schedule,
		Logger:    logger,
	})

	once, _ := cmd.Flags().GetBool("once")
	if once {
		submitted, err := w.RunOnce(ctx)
		if err != nil {
			logger.Fatal("processing the queue", zap.Error(err))
		}
		logger.Info("queue sweep finished", zap.Int("submitted", submitted))
		return
	}

	interval, _ := cmd.Flags().GetDuration("interval")
	logger.Info("entering the worker loop", zap.Duration("interval", interval))

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return w.Run(ctx, interval)
	})
	group.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down", zap.String("reason", "signal or worker exit"))
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.Fatal("worker loop failed", zap.Error(err))
	}
}

func newSubmitter(config *Config, dryRun bool, log *zap.Logger) submit.Submitter {
	mode := "manual"
	if config.Submit != nil && config.Submit.Mode != "" {
		mode = strings.ToLower(config.Submit.Mode)
	}
	if dryRun {
		mode = "dry-run"
	}

	sublog := logger.WithComponent(log, "submit")
	switch mode {
	case "dry-run":
		return submit.NewDryRun(sublog)
	default:
		return submit.NewManual(sublog)
	}
}

func newLetterPolisher(ctx context.Context, cfg *AIConfig, log *zap.Logger) (worker.LetterPolisher, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	gem := cfg.Gemini
	if gem == nil {
		gem = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: gem.APIKey,
		Env:   "GEMINI_API_KEY",
		File:  gem.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key, ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, gem.Model)
	if err != nil {
		return nil, err
	}

	genLogger := logger.WithFields(log, logger.StringFields(
		logger.StringField{Key: logger.FieldComponent, Value: "gemini"},
		logger.StringField{Key: logger.FieldModel, Value: generator.Model()},
	)...)

	return gemini.NewWriter(generator, genLogger, cfg.MaxLogLength), nil
}
