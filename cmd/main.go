package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	cfgPkg "github.com/xhad/sowgen/pkg/config"
	"github.com/xhad/sowgen/pkg/extractor"
	"github.com/xhad/sowgen/pkg/llm"
	"github.com/xhad/sowgen/pkg/processor"
	"github.com/xhad/sowgen/pkg/scraper"
	"github.com/xhad/sowgen/pkg/sow"
	"github.com/xhad/sowgen/pkg/store"
)

var (
	configPath string
	verbose    bool
	noLibrary  bool

	logger *zap.Logger
	cfg    *cfgPkg.Config
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sowgen",
		Short: "Draft Scope of Work documents from a brief and example clauses",
		Long: `sowgen reads an uploaded brief (pdf, docx, xlsx, xls, pptx), gathers
example clauses from a clause library page, SEC filings and any page you
point it at, and asks a language model for a Scope of Work. Every figure
in the result is marked for independent validation.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = newLogger(verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			cfg, err = cfgPkg.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if errs := cfg.Validate(); len(errs) > 0 {
				for _, e := range errs {
					logger.Error("invalid configuration", zap.String("field", e.Field), zap.String("message", e.Message))
				}
				return fmt.Errorf("invalid configuration: %v", errs[0])
			}
			logger.Debug("config loaded",
				zap.String("provider", cfg.LLM.Provider),
				zap.String("model", cfg.LLM.Model),
				zap.Bool("library", cfg.Library.URL != "" && !noLibrary))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noLibrary, "no-library", false, "Do not use the clause library even if configured")

	rootCmd.AddCommand(newGenerateCmd(), newShellCmd(), newServeCmd())
	return rootCmd
}

// newLogger logs JSON to stderr. Only warnings show unless --verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zapCfg.Build()
}

// app holds the wired components for one run.
type app struct {
	generator *sow.Generator
	library   *store.VectorStore
}

func (a *app) Close() {
	if a.library != nil {
		a.library.Close()
	}
}

func newApp(ctx context.Context, cfg *cfgPkg.Config, logger *zap.Logger, onProgress func(url string)) (*app, error) {
	s := scraper.NewWithConfig(scraper.ScraperConfig{
		RateLimit:  cfg.Sources.RateLimit,
		Timeout:    cfg.Sources.Timeout,
		UserAgent:  cfg.Sources.UserAgent,
		Logger:     logger.Named("scraper"),
		OnProgress: onProgress,
	})

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.Model,
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		MaxTokens: cfg.LLM.MaxTokens,
		Logger:    logger.Named("llm"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	a := &app{}
	var opts []sow.Option
	if cfg.Library.URL != "" && !noLibrary {
		library, err := newLibrary(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		a.library = library
		opts = append(opts, sow.WithLibrary(library, processor.NewWithConfig(processor.ProcessorConfig{
			ChunkSize:    cfg.Library.ChunkSize,
			ChunkOverlap: cfg.Library.ChunkOverlap,
		})))
	}

	a.generator = sow.NewWithConfig(sow.GeneratorConfig{
		GenerateTemperature: cfg.LLM.GenerateTemperature,
		RefineTemperature:   cfg.LLM.RefineTemperature,
		LibraryLimit:        cfg.Library.SearchLimit,
		Logger:              logger.Named("sow"),
	},
		extractor.NewWithConfig(extractor.ExtractorConfig{MaxChars: cfg.Extractor.MaxChars}),
		chatEngine,
		sow.Sources{
			Reference: scraper.NewReferenceSource(s, cfg.Sources.ReferenceURL, cfg.Sources.ReferenceSelector, cfg.Sources.ReferenceLimit),
			Page:      scraper.NewPageSource(s, cfg.Sources.ParagraphLimit),
			Filings: scraper.NewFilingSource(s, cfg.Sources.FilingSearchURL, cfg.Sources.FilingBaseURL,
				cfg.Sources.FilingLimit, cfg.Sources.FilingSnippetChars),
		},
		opts...,
	)

	return a, nil
}

func newLibrary(ctx context.Context, cfg *cfgPkg.Config, logger *zap.Logger) (*store.VectorStore, error) {
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider: cfg.LLM.Provider,
		Model:    cfg.Library.EmbeddingModel,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	library, err := store.NewWithConfig(ctx, store.VectorStoreConfig{
		ConnString:  cfg.Library.URL,
		TableName:   cfg.Library.TableName,
		VectorDim:   cfg.Library.VectorDim,
		SearchLimit: cfg.Library.SearchLimit,
		Logger:      logger.Named("library"),
	}, embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize clause library: %w", err)
	}
	return library, nil
}
