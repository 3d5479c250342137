package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/csom/internal/config"
	"github.com/roach88/csom/internal/csom"
	"github.com/roach88/csom/internal/journal"
	"github.com/roach88/csom/internal/taxonomy"
	"github.com/roach88/csom/internal/transport"
)

// Version is set at build time.
var Version = "dev"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	ConfigPath  string
	SiteURL     string
	AccessToken string
	JournalPath string

	// Poster replaces the HTTP transport when set.
	Poster csom.Poster
	// ObjectIDs replaces the random Guid generator when set.
	ObjectIDs taxonomy.ObjectIDGenerator
	// LogWriter receives log output; stderr when nil.
	LogWriter io.Writer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the csom CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "csom",
		Short:         "Manage SharePoint taxonomy through the client object model",
		Long:          "csom builds ProcessQuery request batches for the SharePoint managed metadata term store, posts them and correlates the responses.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			setupLogging(opts)
			return nil
		},
	}

	// Flag defaults are the preset option values, so options built by a
	// caller survive flag registration.
	if opts.Format == "" {
		opts.Format = "text"
	}
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", opts.Verbose, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", opts.Format, "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", opts.ConfigPath, "config file (default $CSOM_CONFIG or ~/.csom/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.SiteURL, "site-url", opts.SiteURL, "site collection URL")
	cmd.PersistentFlags().StringVar(&opts.AccessToken, "access-token", opts.AccessToken, "OAuth bearer token")
	cmd.PersistentFlags().StringVar(&opts.JournalPath, "journal", opts.JournalPath, "SQLite journal of round trips")

	cmd.AddCommand(NewTermCommand(opts))
	cmd.AddCommand(NewTaxonomyCommand(opts))
	cmd.AddCommand(NewJournalCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func setupLogging(opts *RootOptions) {
	w := opts.LogWriter
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func (opts *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}
}

// loadConfig reads the config file and environment, then applies the
// global flags on top.
func (opts *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(config.DiscoverPath(opts.ConfigPath))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	if opts.SiteURL != "" {
		cfg.SiteURL = opts.SiteURL
	}
	if opts.AccessToken != "" {
		cfg.AccessToken = opts.AccessToken
	}
	if opts.JournalPath != "" {
		cfg.Journal = opts.JournalPath
	}
	return cfg, nil
}

// openService wires a taxonomy service to the configured site. The
// returned close function releases the journal, if one was opened.
func (opts *RootOptions) openService() (*taxonomy.Service, func(), error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "invalid config", err)
	}

	poster := opts.Poster
	if poster == nil {
		poster = transport.New(transport.Options{
			AccessToken: cfg.AccessToken,
			Timeout:     cfg.TimeoutDuration(),
			RetryCount:  cfg.RetryCount,
			UserAgent:   "csom/" + Version,
		})
	}

	clientOpts := []csom.Option{csom.WithApplicationName(cfg.ApplicationName)}
	closer := func() {}
	if cfg.Journal != "" {
		j, err := journal.Open(cfg.Journal)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "open journal", err)
		}
		clientOpts = append(clientOpts, csom.WithRecorder(j))
		closer = func() { j.Close() }
	}

	client := csom.NewClient(poster, cfg.SiteURL, clientOpts...)
	slog.Debug("client ready", "endpoint", client.Endpoint(), "journal", cfg.Journal)

	svcOpts := []taxonomy.Option{taxonomy.WithLCID(cfg.LCID)}
	if opts.ObjectIDs != nil {
		svcOpts = append(svcOpts, taxonomy.WithObjectIDs(opts.ObjectIDs))
	}
	return taxonomy.NewService(client, svcOpts...), closer, nil
}

// openJournal opens the configured journal for reading.
func (opts *RootOptions) openJournal() (*journal.Journal, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Journal == "" {
		return nil, NewExitError(ExitCommandError, "no journal configured (use --journal, CSOM_JOURNAL or the config file)")
	}
	j, err := journal.Open(cfg.Journal)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open journal", err)
	}
	return j, nil
}
