// Package cli implements the walletcore command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"io"
	"os"
	"os/user"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/algointent/walletcore/internal/config"
	"github.com/algointent/walletcore/internal/output"
	walleterr "github.com/algointent/walletcore/pkg/errors"
)

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool
	userFlag     string

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *zap.Logger
	logCloser io.Closer
	formatter *output.Formatter
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "walletcore",
	Short: "Password-gated Algorand wallet sessions",
	Long: `walletcore keeps one encrypted wallet session per user and signs
Algorand transactions only after the wallet password is supplied.`,
	Example: `  walletcore wallet create
  walletcore balance
  walletcore send --to ADDRESS --amount 1.5
  walletcore serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initGlobals(cmd)
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	walkCommands(rootCmd, enrichParentLong)
	err := rootCmd.Execute()
	if err == nil {
		return walleterr.ExitSuccess
	}
	format := output.FormatText
	if formatter != nil {
		format = formatter.Format()
	}
	_ = output.FormatError(os.Stderr, err, format)
	cleanup()
	return walleterr.ExitCode(err)
}

// initGlobals loads configuration, then applies the environment and flags.
func initGlobals(cmd *cobra.Command) error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	var err error
	cfg, err = config.LoadOrDefault(config.Path(home))
	if err != nil {
		return err
	}
	cfg.Home = home

	config.ApplyEnvironment(cfg)
	if homeDir != "" {
		cfg.Home = homeDir
	}
	if verbose {
		cfg.Output.Verbose = true
	}
	if outputFormat != "" && outputFormat != string(output.FormatAuto) {
		cfg.Output.DefaultFormat = outputFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, logCloser, err = config.NewLogger(cfg.Logging, cfg.Output.Verbose)
	if err != nil {
		// Logging is best effort; commands still run without a log file.
		logger, logCloser = zap.NewNop(), nil
	}

	w := cmd.OutOrStdout()
	formatter = output.NewFormatter(output.ParseFormat(cfg.Output.DefaultFormat), w).
		WithColor(output.UseColor(w, cfg.Output.Color))
	return nil
}

// cleanup releases resources.
func cleanup() {
	if logger != nil {
		_ = logger.Sync()
	}
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
}

// currentUser resolves the session owner: --user, then the OS account.
func currentUser() (string, error) {
	if userFlag != "" {
		return userFlag, nil
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username, nil
	}
	return "", walleterr.WithSuggestion(walleterr.ErrValidation, "pass --user to name the session owner")
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "wallet", Title: "Wallet Operations:"},
		&cobra.Group{ID: "tx", Title: "Transactions:"},
		&cobra.Group{ID: "server", Title: "Server:"},
		&cobra.Group{ID: "config", Title: "Configuration:"},
	)
	rootCmd.SetHelpCommandGroupID("config")
	rootCmd.SetCompletionCommandGroupID("config")

	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "walletcore data directory (default: ~/.walletcore)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "session owner id (default: OS user name)")
}
