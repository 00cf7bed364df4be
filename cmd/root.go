package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/abhisek/coursecraft/internal/config"
	"github.com/abhisek/coursecraft/internal/generation"
	"github.com/abhisek/coursecraft/internal/llm"
	"github.com/abhisek/coursecraft/internal/logging"
	"github.com/abhisek/coursecraft/internal/orchestrator"
	"github.com/abhisek/coursecraft/internal/ratelimit"
	"github.com/abhisek/coursecraft/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "coursecraft",
	Short: "Personalized courses generated by an LLM",
	Long: "CourseCraft asks what you want to learn and how you like to learn it,\n" +
		"drafts a course outline for your approval and then writes the full course.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCreate(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", config.DefaultConfigFile, "Path to the YAML config file")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides COURSECRAFT_DB)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(coursesCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file named by --config and applies the
// persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DBPath = p
	}
	if l, _ := cmd.Flags().GetString("log-level"); l != "" {
		cfg.LogLevel = l
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	return logging.New(cfg.Env, cfg.LogLevel, out)
}

func openStore(cfg *config.Config) (*store.Store, error) {
	path := cfg.DBPath
	var err error
	if path == "" {
		path, err = store.DefaultDBPath()
	} else {
		err = store.EnsureDir(path)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}

// newOrchestrator wires the provider, generation client and limiter.
func newOrchestrator(ctx context.Context, cfg *config.Config, st *store.Store, limiter ratelimit.Limiter, log zerolog.Logger) (*orchestrator.Orchestrator, error) {
	if err := cfg.LLM.Validate(); err != nil {
		return nil, err
	}
	provider, err := llm.NewProvider(ctx, cfg.LLM, st.EventRepo(), log)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	log.Info().Str("provider", cfg.LLM.Provider).Str("model", provider.ModelID()).Msg("llm provider ready")
	client := generation.NewClient(provider, log)
	return orchestrator.New(limiter, client, cfg.Generation, log), nil
}

// logFile opens COURSECRAFT_LOG_FILE for logging while the terminal UI owns
// the screen. Without it logs are discarded.
func logFile() (io.WriteCloser, error) {
	path := os.Getenv("COURSECRAFT_LOG_FILE")
	if path == "" {
		return nopCloser{io.Discard}, nil
	}
	if err := store.EnsureDir(path); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
