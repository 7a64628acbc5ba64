// Package main provides the voxsearch CLI application entry point.
// voxsearch turns spoken or typed requests into search engine queries, asking an
// AI provider for keywords and falling back to local extraction when it cannot.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"voxsearch/internal/logger"
	"voxsearch/internal/orchestration"
	"voxsearch/internal/services"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	logLevel   string
	logFile    string
	configFile string
	style      string
	testMode   bool
	flags      *pflag.FlagSet
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Each call returns an independent tree.
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "voxsearch",
		Short: "voxsearch - voice to search keywords",
		Long: `voxsearch turns a spoken or typed request into a compact search query.
It asks the configured AI provider for keywords, falls back to local extraction
when the provider is unavailable, and builds search links for your engines.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return initConfig(opts)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Set log level (debug|info|warn|error) [default: info]")
	rootCmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "Write logs to file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Config file [default: ~/.config/voxsearch/config.yaml]")
	rootCmd.PersistentFlags().StringVar(&opts.style, "style", "", "Markdown style (auto|dark|light|notty|ascii) [default: config markdown_style]")
	rootCmd.PersistentFlags().BoolVar(&opts.testMode, "test-mode", false, "Run in deterministic test mode")
	// log-level and style are bound into the configuration service's viper.
	opts.flags = rootCmd.PersistentFlags()

	rootCmd.AddCommand(
		newExtractCmd(),
		newQueryCmd(opts),
		newListenCmd(opts),
		newProvidersCmd(opts),
		newEnginesCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

func initConfig(opts *globalOptions) error {
	if opts.testMode {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	if err := logger.Configure(opts.logLevel, opts.logFile, opts.testMode); err != nil {
		return fmt.Errorf("error configuring logger: %w", err)
	}
	return nil
}

// setupServices initializes the service registry for commands that need it.
func setupServices(opts *globalOptions, keywordOpts services.KeywordServiceOptions) (*services.Registry, error) {
	style := ""
	if opts.testMode {
		style = "notty"
	}
	registry, err := orchestration.SetupServices(orchestration.SetupOptions{
		Config:         services.ConfigurationOptions{ConfigFile: opts.configFile, Flags: opts.flags},
		MarkdownStyle:  style,
		KeywordOptions: keywordOpts,
	})
	if err != nil {
		return nil, err
	}
	if opts.testMode {
		return registry, nil
	}

	// Flag, then VOXSEARCH_LOG_LEVEL, then the config file.
	config, err := services.GetTypedService[*services.ConfigurationService]("configuration")
	if err != nil {
		return nil, err
	}
	level, err := config.GetConfigValue(services.ConfigKeyLogLevel)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)
	return registry, nil
}
