package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"voxsearch/internal/logger"
	"voxsearch/internal/orchestration"
	"voxsearch/internal/services"
	"voxsearch/internal/version"
	"voxsearch/pkg/extraction"
	"voxsearch/pkg/voxtypes"
)

// readInput joins args, or reads stdin when there are none.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if cmd.InOrStdin() == os.Stdin && stdinIsTerminal() {
		return "", fmt.Errorf("no input: pass text as arguments or pipe it on stdin")
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func newExtractCmd() *cobra.Command {
	opts := voxtypes.DefaultExtractionOptions()
	var noQuotes, explain bool

	cmd := &cobra.Command{
		Use:   "extract [text...]",
		Short: "Extract search keywords locally, without any provider",
		Long: `Extract search keywords using the built-in extractor only.
Reads from stdin when no text is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			opts.IncludeQuotes = !noQuotes

			analysis := extraction.Analyze(text, opts)
			out := cmd.OutOrStdout()
			if !explain {
				_, err = fmt.Fprintln(out, analysis.Query)
				return err
			}
			return renderAnalysis(out, analysis)
		},
	}

	cmd.Flags().IntVarP(&opts.MaxKeywords, "max-keywords", "n", voxtypes.DefaultMaxKeywords, "Maximum number of keyword items")
	cmd.Flags().BoolVar(&opts.IncludeBoolean, "boolean", false, "Join the first two items with AND")
	cmd.Flags().BoolVar(&noQuotes, "no-quotes", false, "Do not preserve quoted phrases")
	cmd.Flags().BoolVar(&explain, "explain", false, "Show intent, quoted phrases and term counts")
	return cmd
}

// queryFlags are shared by query and listen.
type queryFlags struct {
	provider string
	model    string
	engines  string
	copy     bool
	json     bool
	plain    bool
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.provider, "provider", "p", "", "Provider to use instead of the configured one")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Model to use instead of the configured one")
	cmd.Flags().StringVarP(&f.engines, "engines", "e", "", "Comma separated engine ids instead of the configured ones")
	cmd.Flags().BoolVar(&f.copy, "copy", false, "Copy the final query to the clipboard")
	cmd.Flags().BoolVar(&f.json, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&f.plain, "plain", false, "Print only the query")
}

// searchSession holds what query and listen need to run the pipeline repeatedly.
type searchSession struct {
	flags     *queryFlags
	pipeline  *orchestration.Pipeline
	cfg       voxtypes.ProviderConfig
	engines   []string
	markdown  *services.MarkdownService
	clipboard *services.ClipboardService
}

func newSearchSession(opts *globalOptions, flags *queryFlags) (*searchSession, error) {
	if _, err := setupServices(opts, services.KeywordServiceOptions{}); err != nil {
		return nil, err
	}

	configService, err := services.GetTypedService[*services.ConfigurationService]("configuration")
	if err != nil {
		return nil, err
	}

	var cfg voxtypes.ProviderConfig
	if flags.provider != "" {
		id, err := voxtypes.ParseProviderID(flags.provider)
		if err != nil {
			return nil, err
		}
		cfg, err = configService.ProviderConfigFor(id)
		if err != nil {
			return nil, err
		}
	} else {
		cfg, err = configService.ResolveProviderConfig()
		if err != nil {
			return nil, err
		}
	}
	if flags.model != "" {
		cfg.Model = flags.model
	}

	engines := configService.Engines()
	if flags.engines != "" {
		engines = orchestration.SplitEngineList(flags.engines)
	}

	pipeline, err := orchestration.NewPipelineFromRegistry()
	if err != nil {
		return nil, err
	}
	markdown, err := services.GetTypedService[*services.MarkdownService]("markdown")
	if err != nil {
		return nil, err
	}
	clipboard, err := services.GetTypedService[*services.ClipboardService]("clipboard")
	if err != nil {
		return nil, err
	}
	if !opts.testMode {
		if width := readline.GetScreenWidth(); width > 0 {
			if err := markdown.SetWordWrap(width); err != nil {
				return nil, err
			}
		}
	}

	logger.Debug("Search session ready", "provider", cfg.Provider, "remote", cfg.IsRemote(), "engines", engines)
	return &searchSession{
		flags:     flags,
		pipeline:  pipeline,
		cfg:       cfg,
		engines:   engines,
		markdown:  markdown,
		clipboard: clipboard,
	}, nil
}

func (s *searchSession) search(cmd *cobra.Command, transcript string) error {
	outcome, err := s.pipeline.Run(cmd.Context(), orchestration.Request{
		Transcript: transcript,
		Provider:   s.cfg,
		Engines:    s.engines,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case s.flags.json:
		err = writeOutcomeJSON(out, outcome)
	case s.flags.plain:
		_, err = fmt.Fprintln(out, outcome.Query)
	default:
		err = renderOutcome(out, s.markdown, outcome)
	}
	if err != nil {
		return err
	}

	if s.flags.copy && outcome.Query != "" {
		copied, err := s.clipboard.Copy(outcome.Query)
		if err != nil {
			return err
		}
		if !copied {
			logger.Warn("Clipboard unavailable, query not copied")
		}
	}
	return nil
}

func newQueryCmd(opts *globalOptions) *cobra.Command {
	flags := &queryFlags{}

	cmd := &cobra.Command{
		Use:   "query [text...]",
		Short: "Turn a transcript into search keywords and links",
		Long: `Send the transcript to the configured provider for keyword extraction and
print one search link per engine. Falls back to local extraction when the
provider fails. Reads from stdin when no text is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			transcript, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			session, err := newSearchSession(opts, flags)
			if err != nil {
				return err
			}
			return session.search(cmd, transcript)
		},
	}
	flags.register(cmd)
	return cmd
}

func newListenCmd(opts *globalOptions) *cobra.Command {
	flags := &queryFlags{}

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Interactive loop: each line is searched as a transcript",
		Long: `Read transcripts line by line and search for each one.
Paste output from any speech-to-text tool, or type. Ctrl-D or "exit" quits.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := newSearchSession(opts, flags)
			if err != nil {
				return err
			}
			return runListenLoop(cmd, session)
		},
	}
	flags.register(cmd)
	return cmd
}

func runListenLoop(cmd *cobra.Command, session *searchSession) error {
	historyFile := ""
	if dir, err := services.UserConfigDir(); err == nil {
		historyFile = filepath.Join(dir, "history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "voxsearch> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
	})
	if err != nil {
		return fmt.Errorf("failed to start line editor: %w", err)
	}
	defer func() {
		if closeErr := rl.Close(); closeErr != nil {
			logger.Debug("Failed to close line editor", "error", closeErr)
		}
	}()

	listenLog := logger.NewStyledLogger("Listen")
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", bannerStyle.Render(fmt.Sprintf("voxsearch %s · provider %s", version.GetBaseVersion(), session.cfg.Provider)))

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if err := session.search(cmd, line); err != nil {
			listenLog.Error("Search failed", "query", line, "error", err)
		}
	}
}

func newProvidersCmd(opts *globalOptions) *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:   "providers [provider]",
		Short: "List keyword providers and their models",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := setupServices(opts, services.KeywordServiceOptions{}); err != nil {
				return err
			}
			catalog, err := services.GetTypedService[*services.ProviderCatalogService]("provider_catalog")
			if err != nil {
				return err
			}

			var providers []voxtypes.ProviderDescriptor
			switch {
			case len(args) == 1:
				id, err := voxtypes.ParseProviderID(args[0])
				if err != nil {
					return err
				}
				descriptor, err := catalog.GetProvider(id)
				if err != nil {
					return err
				}
				providers = []voxtypes.ProviderDescriptor{descriptor}
			case search != "":
				providers, err = catalog.SearchProviderCatalog(search)
			default:
				providers, err = catalog.GetProviderCatalog()
			}
			if err != nil {
				return err
			}
			return renderProviders(cmd.OutOrStdout(), providers, len(args) == 1)
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter providers by id, name or description")
	return cmd
}

func newEnginesCmd(opts *globalOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "engines",
		Short: "List search engines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := setupServices(opts, services.KeywordServiceOptions{}); err != nil {
				return err
			}
			catalog, err := services.GetTypedService[*services.EngineCatalogService]("engine_catalog")
			if err != nil {
				return err
			}
			engines, err := catalog.ByCategory(voxtypes.SearchCategory(strings.ToLower(category)))
			if err != nil {
				return err
			}
			if len(engines) == 0 {
				return fmt.Errorf("no engines in category %q", category)
			}
			return renderEngines(cmd.OutOrStdout(), engines)
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", string(voxtypes.CategoryAll), "Only list engines of this category")
	return cmd
}

func newConfigCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change preferences",
	}

	configService := func() (*services.ConfigurationService, error) {
		if _, err := setupServices(opts, services.KeywordServiceOptions{}); err != nil {
			return nil, err
		}
		return services.GetTypedService[*services.ConfigurationService]("configuration")
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective settings (API keys masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := configService()
			if err != nil {
				return err
			}
			rows, err := svc.Settings()
			if err != nil {
				return err
			}
			return renderSettings(cmd.OutOrStdout(), svc.ConfigFilePath(), rows)
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set and save a preference",
		Long: `Set and save a preference. Keys: provider, model, api_key, azure_endpoint,
request_timeout, engines, max_keywords, log_level. api_key is stored for the
currently configured provider.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := configService()
			if err != nil {
				return err
			}
			if err := svc.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := svc.Save(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", args[0], svc.ConfigFilePath())
			return err
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := configService()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), svc.ConfigFilePath())
			return err
		},
	}

	cmd.AddCommand(showCmd, setCmd, pathCmd)
	return cmd
}

func newVersionCmd() *cobra.Command {
	var detailed bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if detailed {
				if err := version.ValidateVersion(); err != nil {
					return err
				}
				if _, err := fmt.Fprintln(out, version.GetDetailedVersion()); err != nil {
					return err
				}
				if version.IsDevelopment() {
					_, err := fmt.Fprintln(out, warnStyle.Render("development build"))
					return err
				}
				return nil
			}
			_, err := fmt.Fprintln(out, version.GetFormattedVersion())
			return err
		},
	}
	cmd.Flags().BoolVar(&detailed, "detailed", false, "Show build details")
	return cmd
}

func writeOutcomeJSON(w io.Writer, outcome orchestration.Outcome) error {
	type jsonOutcome struct {
		RequestID string                  `json:"requestId"`
		Query     string                  `json:"query"`
		Provider  voxtypes.ProviderID     `json:"provider"`
		Model     string                  `json:"model,omitempty"`
		Source    services.KeywordSource  `json:"source"`
		Fallback  string                  `json:"fallbackReason,omitempty"`
		Results   []voxtypes.SearchResult `json:"results"`
	}

	payload := jsonOutcome{
		RequestID: outcome.RequestID,
		Query:     outcome.Query,
		Provider:  outcome.Provider,
		Model:     outcome.Model,
		Source:    outcome.Source,
		Results:   outcome.Results,
	}
	if outcome.RemoteErr != nil {
		payload.Fallback = outcome.RemoteErr.Error()
	}
	if payload.Results == nil {
		payload.Results = []voxtypes.SearchResult{}
	}

	buffered := bufio.NewWriter(w)
	encoder := json.NewEncoder(buffered)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return buffered.Flush()
}

// stdinIsTerminal reports whether stdin is interactive.
func stdinIsTerminal() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
