package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sitescout/internal/analyzer"
	"sitescout/internal/browser"
	"sitescout/internal/config"
	"sitescout/internal/knowledge"
	"sitescout/internal/llm"
	"sitescout/internal/logging"
	"sitescout/internal/orchestrator"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "sitescout",
	Short: "Investigate websites and turn them into executable knowledge",
	Long: `Sitescout drives a headless browser against a target site, discovers its
interactive elements and workflows, and stores the results in a queryable
knowledge base. Free-text commands like "log in" or "search for shoes" are
resolved against that knowledge into concrete execution plans.`,
	SilenceUsage: true,
}

var (
	flagConfigDir string
	flagJSON      bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "Directory to search for .sitescout/config.yaml (default: working directory)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Emit raw JSON instead of formatted output")
}

// SetVersion sets the version string shown by the version command.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// appContext wires the full service stack for one command invocation.
type appContext struct {
	cfg     *config.Config
	store   *knowledge.Store
	service *orchestrator.Service
}

// buildApp loads config, initializes logging, opens the knowledge store, and
// wires analyzer and orchestrator. Every subcommand goes through here so the
// dependency graph is assembled in exactly one place.
func buildApp() (*appContext, error) {
	dir := flagConfigDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		dir = wd
	}

	cfg, err := config.NewLoader(dir).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := logging.Initialize(dir); err != nil {
		fmt.Fprintf(os.Stderr, "warning: file logging unavailable: %v\n", err)
	}

	store, err := knowledge.Open(cfg.Storage.DBPath, cfg.Storage.CachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge store: %w", err)
	}

	var model llm.Client
	if cfg.Investigation.EnableAI {
		model, err = llm.NewClient(llm.Provider(cfg.AI.Provider), cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to create AI client: %w", err)
		}
	}

	factory := browser.NewChromeFactory(cfg.Browser.Headless)
	a := analyzer.New(factory, model, cfg)

	return &appContext{
		cfg:     cfg,
		store:   store,
		service: orchestrator.New(a, store, cfg),
	}, nil
}

func (app *appContext) close() {
	if err := app.store.Close(); err != nil {
		logging.Warn("Knowledge store close failed: %v", err)
	}
}

// printJSON renders any result as indented JSON on stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
