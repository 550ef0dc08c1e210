// Package cli implements the Tipjar command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mrz1836/tipjar/internal/config"
	"github.com/mrz1836/tipjar/internal/output"
	"github.com/mrz1836/tipjar/internal/tip"
	tjerr "github.com/mrz1836/tipjar/pkg/errors"
)

// BuildInfo is stamped into the binary at link time.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter
	cmdCtx    *CommandContext

	buildInfo BuildInfo
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tipjar",
	Short: "Send tips from an external wallet",
	Long: `Tipjar sends native-token tips on a Solana-compatible ledger.

Keys never touch tipjar: every transaction is built locally, then signed and
broadcast by an external wallet reached through a signer bridge. Tipjar checks
the amount and balance first, and reports exactly one outcome per tip.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initGlobals()
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command. Interrupts cancel the command context, which
// abandons a queued tip but never one already handed to the wallet.
func Execute(info BuildInfo) error {
	buildInfo = info
	rootCmd.Version = formatVersion(info)

	walkCommands(rootCmd, enrichParentLong)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		formatErr(err)
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if errors.Is(err, context.Canceled) {
		return tjerr.ExitCancelled
	}
	return tjerr.ExitCode(err)
}

// formatErr prints err to stderr in the active output format.
func formatErr(err error) {
	format := output.FormatText
	if formatter != nil {
		format = formatter.Format()
	}
	_ = output.FormatError(os.Stderr, err, format, string(tip.CategoryOf(err)))
}

func formatVersion(info BuildInfo) string {
	version, commit, date := info.Version, info.Commit, info.Date
	if version == "" {
		version = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

// initGlobals initializes global configuration, logger, and formatter.
func initGlobals() error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	var err error
	cfg, err = config.Load(config.Path(home))
	switch {
	case err == nil:
	case tjerr.Is(err, tjerr.ErrConfigNotFound):
		cfg = config.Defaults()
	default:
		return err
	}
	cfg.Home = home

	config.ApplyEnvironment(cfg)

	if homeDir != "" {
		cfg.Home = homeDir
	}
	if verbose {
		cfg.Logging.Level = config.LogLevelDebug.String()
	}
	if outputFormat != "" && outputFormat != string(output.FormatAuto) {
		cfg.Output.DefaultFormat = outputFormat
	}

	if cfg.Logging.File == config.Defaults().Logging.File {
		cfg.Logging.File = filepath.Join(cfg.Home, "tipjar.log")
	}
	logger, err = config.NewLoggerFromConfig(cfg.Logging)
	if err != nil {
		logger = config.NullLogger()
	}

	formatter = output.NewFormatter(output.ParseFormat(cfg.Output.DefaultFormat), os.Stdout)
	cmdCtx = NewCommandContext(cfg, logger, formatter)

	return nil
}

// cleanup releases resources.
func cleanup() {
	if logger != nil {
		_ = logger.Close()
	}
}

// Config returns the global configuration.
func Config() *config.Config {
	return cfg
}

// Logger returns the global logger.
func Logger() *config.Logger {
	return logger
}

// Formatter returns the global output formatter.
func Formatter() *output.Formatter {
	return formatter
}

// Context returns the command context built from the globals.
func Context() *CommandContext {
	return cmdCtx
}

// versionCmd prints build information.
var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Show version information",
	Long:    `Show the tipjar version, commit and build date.`,
	Example: `  tipjar version`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if formatter != nil && formatter.IsJSON() {
			f := output.NewFormatter(output.FormatJSON, cmd.OutOrStdout())
			return f.Print(buildInfo)
		}
		outln(cmd.OutOrStdout(), "tipjar "+formatVersion(buildInfo))
		return nil
	},
}

// walkCommands visits every command in the tree depth-first.
func walkCommands(cmd *cobra.Command, fn func(*cobra.Command)) {
	fn(cmd)
	for _, sub := range cmd.Commands() {
		walkCommands(sub, fn)
	}
}

// enrichParentLong appends the list of available subcommands to a parent
// command's Long description. It runs once per process.
func enrichParentLong(cmd *cobra.Command) {
	if !cmd.HasSubCommands() || cmd == cmd.Root() || strings.Contains(cmd.Long, "\n\nSubcommands:\n") {
		return
	}

	var sb strings.Builder
	sb.WriteString(cmd.Long)
	sb.WriteString("\n\nSubcommands:\n")
	for _, sub := range cmd.Commands() {
		if sub.IsAvailableCommand() {
			fmt.Fprintf(&sb, "  %-16s %s\n", sub.Name(), sub.Short)
		}
	}
	cmd.Long = sb.String()
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "tipping", Title: "Tipping:"},
		&cobra.Group{ID: "wallet", Title: "Wallet Session:"},
		&cobra.Group{ID: "service", Title: "Service:"},
		&cobra.Group{ID: "config", Title: "Configuration:"},
	)

	versionCmd.GroupID = "config"
	rootCmd.AddCommand(versionCmd)
	rootCmd.SetCompletionCommandGroupID("config")
	rootCmd.SetHelpCommandGroupID("config")

	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "tipjar data directory (default: ~/.tipjar)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
