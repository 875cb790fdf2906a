package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/classic-quest/internal/cart"
	"github.com/kingrea/classic-quest/internal/config"
	"github.com/kingrea/classic-quest/internal/icons"
	"github.com/kingrea/classic-quest/internal/logbook"
	"github.com/kingrea/classic-quest/internal/logging"
	"github.com/kingrea/classic-quest/internal/recipe"
	"github.com/kingrea/classic-quest/internal/tui"
	"github.com/kingrea/classic-quest/internal/wowhead"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	projectDir string
	dataset    string
	noIcons    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "classicquest",
		Short: "Plan crafting sessions: look up recipes, pin them, get a shopping list.",
		Long: `classicquest searches a recipe dataset, scales reagents by how many times
you want to craft, and totals the reagents of every pinned recipe into one
shopping list you can export or copy.

Run it with no arguments to open the interactive cart.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.projectDir, "project", "", "project directory holding .classicquest/ (defaults to cwd)")
	root.PersistentFlags().StringVar(&opts.dataset, "dataset", "", "recipe dataset (.json or .csv); overrides config")
	root.PersistentFlags().BoolVar(&opts.noIcons, "no-icons", false, "skip reagent icon lookups")

	root.AddCommand(
		newSearchCmd(opts),
		newRecipeCmd(opts),
		newNamesCmd(opts),
	)
	return root
}

// session bundles everything a command needs, built from config.
type session struct {
	cfg      *config.Config
	logger   *logging.Logger
	book     *logbook.Logbook
	catalog  *recipe.Catalog
	client   *wowhead.Client
	enricher *icons.Enricher
}

func openSession(opts *globalOptions) (*session, error) {
	projectDir := opts.projectDir
	if projectDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determine working directory: %w", err)
		}
		projectDir = cwd
	}
	projectDir, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("resolve project dir: %w", err)
	}
	if err := config.InitStateDir(projectDir); err != nil {
		return nil, err
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}
	if opts.dataset != "" {
		cfg.SetDatasetPath(opts.dataset)
	}
	if opts.noIcons {
		cfg.DisableIcons()
	}

	logger, err := logging.New(cfg.LogsDir(), cfg.Project.Logging.Level)
	if err != nil {
		return nil, err
	}
	book, err := logbook.New(filepath.Join(cfg.LogsDir(), logbook.FileName))
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("open logbook: %w", err)
	}

	catalog, err := recipe.Load(cfg.DatasetPath(), cfg.Project.Dataset.Format)
	if err != nil {
		logger.Close()
		return nil, err
	}
	logger.Infof("loaded %d recipes from %s", catalog.Len(), datasetLabel(cfg.DatasetPath()))

	iconSettings := cfg.Project.Icons
	client := wowhead.New(wowhead.Settings{
		TooltipURL: iconSettings.TooltipURL,
		ImageURL:   iconSettings.ImageURL,
		SpellURL:   cfg.Project.Links.SpellURL,
		Timeout:    iconSettings.Timeout,
		Retries:    iconSettings.Retries,
	}, wowhead.WithLogger(logger.With("wowhead")))
	enricher := icons.New(client, icons.Settings{
		Enabled:     iconSettings.Enabled,
		Concurrency: iconSettings.Concurrency,
		CacheSize:   iconSettings.CacheSize,
		CacheTTL:    iconSettings.CacheTTL,
	}, icons.WithLogger(logger.With("icons")))

	return &session{
		cfg:      cfg,
		logger:   logger,
		book:     book,
		catalog:  catalog,
		client:   client,
		enricher: enricher,
	}, nil
}

func (s *session) Close() error {
	s.enricher.Cancel()
	return s.logger.Close()
}

// newEngine builds a cart whose missing-recipe warnings land in the logbook.
func (s *session) newEngine() *cart.Engine {
	return cart.New(s.catalog, cart.WithReporter(s.book))
}

func runTUI(opts *globalOptions) error {
	s, err := openSession(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	s.book.Info("Session started with %d recipes", s.catalog.Len())
	app := tui.NewApp(s.newEngine(),
		tui.WithEnricher(s.enricher),
		tui.WithLogbook(s.book),
		tui.WithLogger(s.logger.With("tui")),
		tui.WithExportDir(s.cfg.ExportsDir()),
		tui.WithSpellURL(s.cfg.Project.Links.SpellURL),
	)

	// Run blocks until the user quits
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

func datasetLabel(path string) string {
	if path == "" {
		return "bundled dataset"
	}
	return path
}
