// =============================================================================
// Payments Engine - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Called with a single
// input file, the root command replays it and prints the final account
// balances. The 'process' and 'version' commands are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (payments-engine INPUT_FILE)
//   ├── processCmd (payments-engine process)
//   └── versionCmd (payments-engine version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (e.g., --config, --verbose)
//   2. Loading the configuration file and applying flag overrides
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ginjaninja78/payments-engine/internal/config"
	"github.com/ginjaninja78/payments-engine/internal/logging"
	"github.com/ginjaninja78/payments-engine/internal/processor"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// Single-file replay flags. Each one overrides its configuration value when
// given on the command line.
var (
	outputFormat    string
	outputPath      string
	strictInput     bool
	duplicatePolicy string
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "payments-engine [flags] INPUT_FILE",
	Short: "Payments Engine - Replay a transaction ledger into account balances",
	Long: `Payments Engine replays a file of client transactions (deposits,
withdrawals, disputes, resolves and chargebacks) in order and reports the
final state of every client account.

Input files are CSV or XLSX with the columns type, client, tx and amount.
Account balances are written to standard output (or --output) as CSV, XML or
XLSX with the columns client, available, held, total and locked.

Rejected transactions never stop a replay; they are counted and logged.

Example Usage:
  payments-engine transactions.csv > accounts.csv
  payments-engine --format xml --output accounts.xml transactions.xlsx
  payments-engine process                  # Replay every file in the input directory`,

	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger := logging.MustNew(loggerOptions(cfg))
		defer logger.Sync()

		return replayFile(cfg, logger, args[0], outputPath, cmd.OutOrStdout())
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	// ==========================================================================
	// PERSISTENT FLAGS
	// ==========================================================================

	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file (optional unless set explicitly)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging, including every rejected transaction",
	)

	rootCmd.PersistentFlags().StringVar(
		&outputFormat,
		"format",
		"",
		"Output format: csv, xml or xlsx (default csv)",
	)

	rootCmd.PersistentFlags().BoolVar(
		&strictInput,
		"strict",
		false,
		"Abort at the first malformed record instead of skipping it",
	)

	rootCmd.PersistentFlags().StringVar(
		&duplicatePolicy,
		"duplicate-policy",
		"",
		"Reused transaction ids: reject or overwrite (default reject)",
	)

	// ==========================================================================
	// LOCAL FLAGS
	// ==========================================================================

	rootCmd.Flags().StringVarP(
		&outputPath,
		"output",
		"o",
		"",
		"Write accounts to this file instead of standard output",
	)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// loadConfig reads the configuration file and applies flag overrides. The
// default config.yaml may be absent; an explicitly named file may not.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	optional := !cmd.Flags().Changed("config")

	cfg, err := config.Load(cfgFile, optional)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if flags.Changed("format") {
		cfg.Output.Format = outputFormat
	}
	if flags.Changed("strict") {
		cfg.Input.Strict = strictInput
	}
	if flags.Changed("duplicate-policy") {
		cfg.Ledger.DuplicatePolicy = duplicatePolicy
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loggerOptions maps the logging settings and --verbose onto logger options.
func loggerOptions(cfg *config.Config) logging.Options {
	return logging.Options{
		Level:   cfg.LogLevel,
		Verbose: verbose,
		JSON:    strings.EqualFold(cfg.LogFormat, config.LogFormatJSON),
	}
}

// replayFile replays one input file. Accounts go to outPath when set, to
// stdout otherwise. outPath is only created once the replay has succeeded.
func replayFile(cfg *config.Config, logger *zap.Logger, inputPath, outPath string, stdout io.Writer) error {
	proc := processor.New(cfg, logger)

	source, err := proc.Open(inputPath)
	if err != nil {
		return err
	}
	defer source.Close()

	var accounts bytes.Buffer

	result, err := proc.Run(source, &accounts)
	if err != nil {
		return err
	}

	if outPath != "" {
		if err := os.WriteFile(outPath, accounts.Bytes(), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
	} else if _, err := stdout.Write(accounts.Bytes()); err != nil {
		return fmt.Errorf("failed to write accounts: %w", err)
	}

	logger.Debug("replay summary",
		zap.String("input", inputPath),
		zap.String("run_id", result.RunID),
		zap.Any("rejected_by_reason", result.Stats.RejectedByReason),
	)

	return nil
}
