package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/callum/sitecheck/internal/aggregate"
	"github.com/callum/sitecheck/internal/analyzer"
	"github.com/callum/sitecheck/internal/browser"
	"github.com/callum/sitecheck/internal/catalog"
	"github.com/callum/sitecheck/internal/config"
	"github.com/callum/sitecheck/internal/discover"
	"github.com/callum/sitecheck/internal/filelock"
	"github.com/callum/sitecheck/internal/history"
	"github.com/callum/sitecheck/internal/logger"
	"github.com/callum/sitecheck/internal/models"
	"github.com/callum/sitecheck/internal/output"
	"github.com/callum/sitecheck/internal/pipeline"
	"github.com/callum/sitecheck/internal/planner"
	"github.com/callum/sitecheck/internal/report"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <url>",
		Short: "Run the test battery against a website",
		Long: `Run discovers the site's pages, plans the selected tests into phases,
and executes them with bounded parallelism.

Configuration is loaded from .sitecheck/config.yaml if present.
CLI flags override configuration file settings.

The command exits 0 when every phase completed, even if individual tests
failed; it exits non-zero only on a configuration error or an
unrecoverable loss of the rendering engine.

Examples:
  sitecheck run https://example.com
  sitecheck run --tests seo,a11y https://example.com
  sitecheck run --max-pages 5 --concurrency 2 https://example.com
  sitecheck run --catalog tests.yaml --output ./out https://example.com
  sitecheck run --dry-run https://example.com   # Plan without executing`,
		Args: cobra.ExactArgs(1),
		RunE: runCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .sitecheck/config.yaml)")
	cmd.Flags().StringSlice("tests", nil, "Comma-separated test ids to run (default: all)")
	cmd.Flags().Bool("dry-run", false, "Plan the session without executing tests")
	cmd.Flags().Int("max-pages", -1, "Maximum pages to discover (-1 = use config)")
	cmd.Flags().Int("concurrency", -1, "Base per-phase worker budget (-1 = use config)")
	cmd.Flags().String("nav-timeout", "", "Page load timeout (e.g. 30s, 2m)")
	cmd.Flags().String("extract-timeout", "", "Per-action extraction timeout on a loaded page (e.g. 30s)")
	cmd.Flags().String("output", "", "Directory for session artifacts")
	cmd.Flags().String("catalog", "", "YAML test catalog replacing the built-in tests")
	cmd.Flags().String("log-level", "", "Log verbosity (trace, debug, info, warn, error)")
	cmd.Flags().Bool("no-headless", false, "Run the browser with a visible window")

	return cmd
}

func runCommand(cmd *cobra.Command, args []string) error {
	startURL := args[0]

	cfg, err := loadMergedConfig(cmd)
	if err != nil {
		return err
	}

	logLevel, _ := cmd.Flags().GetString("log-level")
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	log := logger.NewConsole(os.Stdout, logLevel)

	// Resolve the catalog and the user's selection before touching any
	// external resource: planning errors must block the whole session.
	defs, err := resolveCatalog(cfg)
	if err != nil {
		return err
	}
	testIDs, _ := cmd.Flags().GetStringSlice("tests")
	selected, err := catalog.Select(defs, testIDs)
	if err != nil {
		return err
	}

	strategy, err := planner.New(cfg.BaseConcurrency).Plan(selected)
	if err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if dryRun {
		printStrategy(cmd, strategy)
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionID := aggregate.NewSessionID()
	sessionStart := time.Now()

	// One session owns one output directory, guarded against concurrent runs.
	lock := filelock.New(filepath.Join(cfg.OutputDir, ".lock"))
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	acquired, err := lock.TryLock()
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("another sitecheck run is using %s", cfg.OutputDir)
	}
	defer lock.Unlock()

	sink, err := output.NewDirSink(filepath.Join(cfg.OutputDir, sessionID))
	if err != nil {
		return err
	}

	log.LogInfo(fmt.Sprintf("Session %s: discovering pages from %s", sessionID, startURL))
	discoverer := &discover.Discoverer{MaxPages: cfg.MaxPages}
	urls, err := discoverer.Discover(ctx, startURL)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}
	log.LogInfo(fmt.Sprintf("Discovered %d page(s)", len(urls)))

	registry, err := analyzer.NewRegistry(selected)
	if err != nil {
		return err
	}

	engine, err := browser.NewChrome(cfg.Headless, cfg.ExtractTimeout)
	if err != nil {
		return fmt.Errorf("start rendering engine: %w", err)
	}
	defer engine.Close()

	orchestrator := pipeline.NewOrchestrator(engine, registry, sink, log, cfg.NavTimeout)
	session := analyzer.Session{StartURL: startURL, URLs: urls}

	results, runErr := orchestrator.Run(ctx, strategy, selected, session)

	sessionErrors := []string{}
	if runErr != nil {
		sessionErrors = append(sessionErrors, runErr.Error())
	}

	pages, summary := aggregate.Build(aggregate.Session{
		ID:        sessionID,
		StartURL:  startURL,
		URLs:      urls,
		Errors:    sessionErrors,
		StartTime: sessionStart,
		EndTime:   time.Now(),
	}, results)

	// Report and history failures degrade: they are logged but never fail
	// the session or alter test outcomes.
	if mdPath, htmlPath, err := report.Write(sink, summary, pages); err != nil {
		log.LogWarn(fmt.Sprintf("report generation failed: %v", err))
	} else {
		log.LogInfo(fmt.Sprintf("Reports written: %s, %s", mdPath, htmlPath))
	}
	recordHistory(ctx, cfg, summary, log)

	log.LogSummary(summary)

	if runErr != nil {
		return fmt.Errorf("session %s did not complete: %w", sessionID, runErr)
	}
	return nil
}

func loadMergedConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	var maxPages, concurrency *int
	if v, _ := cmd.Flags().GetInt("max-pages"); v >= 0 {
		maxPages = &v
	}
	if v, _ := cmd.Flags().GetInt("concurrency"); v >= 0 {
		concurrency = &v
	}

	var navTimeout, extractTimeout *time.Duration
	if s, _ := cmd.Flags().GetString("nav-timeout"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid nav-timeout %q: %w", s, err)
		}
		navTimeout = &d
	}
	if s, _ := cmd.Flags().GetString("extract-timeout"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid extract-timeout %q: %w", s, err)
		}
		extractTimeout = &d
	}

	var outputDir, catalogPath *string
	if s, _ := cmd.Flags().GetString("output"); s != "" {
		outputDir = &s
	}
	if s, _ := cmd.Flags().GetString("catalog"); s != "" {
		catalogPath = &s
	}

	var headless *bool
	if noHeadless, _ := cmd.Flags().GetBool("no-headless"); noHeadless {
		v := false
		headless = &v
	}

	cfg.MergeWithFlags(maxPages, concurrency, navTimeout, extractTimeout, outputDir, catalogPath, headless)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func resolveCatalog(cfg *config.Config) ([]models.TestDefinition, error) {
	if cfg.CatalogPath == "" {
		return catalog.Builtins(), nil
	}
	return catalog.Load(cfg.CatalogPath)
}

func recordHistory(ctx context.Context, cfg *config.Config, summary models.SessionSummary, log *logger.Console) {
	if !cfg.History.Enabled {
		return
	}
	store, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		log.LogWarn(fmt.Sprintf("history store unavailable: %v", err))
		return
	}
	defer store.Close()
	if err := store.RecordSession(ctx, summary); err != nil {
		log.LogWarn(fmt.Sprintf("failed to record session: %v", err))
	}
}

func printStrategy(cmd *cobra.Command, strategy *models.ExecutionStrategy) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Execution strategy: %d phase(s), %d test(s)\n", len(strategy.Phases), strategy.TotalTests())
	for _, phase := range strategy.Phases {
		fmt.Fprintf(out, "\nPhase %d (max concurrency %d)\n", phase.Phase, phase.MaxConcurrency)
		if len(phase.SessionTestIDs) > 0 {
			fmt.Fprintf(out, "  session tests: %s\n", strings.Join(phase.SessionTestIDs, ", "))
		}
		if len(phase.PageTestIDs) > 0 {
			fmt.Fprintf(out, "  page tests:    %s\n", strings.Join(phase.PageTestIDs, ", "))
		}
		for i, group := range phase.ConflictGroups {
			fmt.Fprintf(out, "  conflict group %d: %s\n", i+1, strings.Join(group, ", "))
		}
	}
}
