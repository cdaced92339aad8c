// =============================================================================
// Payments Engine - Configuration Module
// =============================================================================
//
// This module loads the run configuration. A configuration file is optional
// for single-file replays; every setting has a default. Command-line flags
// override file values (see cmd/root.go).
//
// CONFIGURATION FILE (config.yaml):
//
//   log_level: info
//   log_format: console
//   input:
//     delimiter: ","
//     encoding: UTF-8
//     sheet: ""
//     strict: false
//     max_amount_scale: 4
//     allow_negative_amounts: true
//   ledger:
//     duplicate_policy: reject
//   output:
//     format: csv
//     precision: 4
//   batch:
//     input_dir: ./input
//     output_dir: ./output
//     input_archive_dir: ./input_archive
//     output_name_format: "{original}_{timestamp}_{uuid}"
//     max_concurrency: 4
//     archive_inputs: true
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ginjaninja78/payments-engine/internal/ledger"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatXML  = "xml"
	FormatXLSX = "xlsx"
)

// Log encodings.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Duplicate transaction id policies.
const (
	DuplicatePolicyReject    = "reject"
	DuplicatePolicyOverwrite = "overwrite"
)

// =============================================================================
// CONFIGURATION STRUCTURES
// =============================================================================

// Config holds the whole run configuration.
type Config struct {
	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat selects the log encoding: "console" or "json".
	// Default: "console"
	LogFormat string `yaml:"log_format"`

	Input  InputSettings  `yaml:"input"`
	Ledger LedgerSettings `yaml:"ledger"`
	Output OutputSettings `yaml:"output"`
	Batch  BatchSettings  `yaml:"batch"`
}

// InputSettings contains settings for reading transaction records.
type InputSettings struct {
	// CSV embeds the delimiter and encoding settings of the CSV reader.
	CSV CSVSettings `yaml:",inline"`

	// Sheet is the worksheet read from XLSX inputs. Empty means the first one.
	Sheet string `yaml:"sheet"`

	// Strict aborts the run at the first malformed record instead of
	// skipping it.
	// Default: false
	Strict bool `yaml:"strict"`

	// MaxAmountScale is the maximum number of decimal places in an amount.
	// Default: 4
	MaxAmountScale *int32 `yaml:"max_amount_scale"`

	// AllowNegativeAmounts accepts deposits and withdrawals below zero.
	// Default: true
	AllowNegativeAmounts *bool `yaml:"allow_negative_amounts"`
}

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields in the CSV.
	// Common values: "," (comma), "|" (pipe), "\t" (tab)
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// Encoding is the character encoding of the CSV file.
	// Supported: "UTF-8", "ISO-8859-1", "Windows-1252"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`
}

// LedgerSettings configures the ledger engine.
type LedgerSettings struct {
	// DuplicatePolicy decides what happens when a deposit or withdrawal
	// reuses a transaction id: "reject" or "overwrite".
	// Default: "reject"
	DuplicatePolicy string `yaml:"duplicate_policy"`
}

// OutputSettings controls how final account balances are written.
type OutputSettings struct {
	// Format is one of "csv", "xml", "xlsx".
	// Default: "csv"
	Format string `yaml:"format"`

	// Precision is the number of decimal places written for amounts.
	// Default: 4
	Precision *int32 `yaml:"precision"`
}

// BatchSettings configures the 'process' command.
type BatchSettings struct {
	// InputDir is scanned for .csv and .xlsx transaction files.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives account files, summaries and rejection logs.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives input files after a successful replay.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputNameFormat names output files. Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {original}  - Input file name without extension
	// The format extension is appended.
	// Default: "{original}_{timestamp}_{uuid}"
	OutputNameFormat string `yaml:"output_name_format"`

	// MaxConcurrency is the maximum number of files replayed at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ArchiveInputs moves processed inputs to InputArchiveDir.
	// Default: true
	ArchiveInputs *bool `yaml:"archive_inputs"`
}

// =============================================================================
// ACCESSORS
// =============================================================================

// PrecisionOrDefault returns the output precision.
func (o OutputSettings) PrecisionOrDefault() int32 {
	if o.Precision == nil {
		return 4
	}

	return *o.Precision
}

// MaxScale returns the amount scale limit.
func (i InputSettings) MaxScale() int32 {
	if i.MaxAmountScale == nil {
		return 4
	}

	return *i.MaxAmountScale
}

// NegativeAmountsAllowed reports whether negative amounts are accepted.
func (i InputSettings) NegativeAmountsAllowed() bool {
	return i.AllowNegativeAmounts == nil || *i.AllowNegativeAmounts
}

// ShouldArchive reports whether processed inputs are archived.
func (b BatchSettings) ShouldArchive() bool {
	return b.ArchiveInputs == nil || *b.ArchiveInputs
}

// Policy maps the configured duplicate policy onto the ledger option.
func (l LedgerSettings) Policy() ledger.DuplicatePolicy {
	if strings.EqualFold(l.DuplicatePolicy, DuplicatePolicyOverwrite) {
		return ledger.DuplicateOverwrite
	}

	return ledger.DuplicateReject
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)

	return cfg
}

// Load reads a YAML configuration file.
//
// If optional is true and the file does not exist, the defaults are returned.
func Load(configPath string, optional bool) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes, defaults and validates a YAML configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = LogFormatConsole
	}

	if cfg.Input.CSV.Delimiter == "" {
		cfg.Input.CSV.Delimiter = ","
	}
	if cfg.Input.CSV.Encoding == "" {
		cfg.Input.CSV.Encoding = "UTF-8"
	}

	if cfg.Ledger.DuplicatePolicy == "" {
		cfg.Ledger.DuplicatePolicy = DuplicatePolicyReject
	}

	if cfg.Output.Format == "" {
		cfg.Output.Format = FormatCSV
	}

	if cfg.Batch.InputDir == "" {
		cfg.Batch.InputDir = "./input"
	}
	if cfg.Batch.OutputDir == "" {
		cfg.Batch.OutputDir = "./output"
	}
	if cfg.Batch.InputArchiveDir == "" {
		cfg.Batch.InputArchiveDir = "./input_archive"
	}
	if cfg.Batch.OutputNameFormat == "" {
		cfg.Batch.OutputNameFormat = "{original}_{timestamp}_{uuid}"
	}
	if cfg.Batch.MaxConcurrency == 0 {
		cfg.Batch.MaxConcurrency = 4
	}
}

// Validate checks enumerated values and ranges.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}

	switch strings.ToLower(c.LogFormat) {
	case LogFormatConsole, LogFormatJSON:
	default:
		errs = append(errs, fmt.Errorf("log_format %q is not one of console, json", c.LogFormat))
	}

	switch strings.ToLower(c.Output.Format) {
	case FormatCSV, FormatXML, FormatXLSX:
	default:
		errs = append(errs, fmt.Errorf("output.format %q is not one of csv, xml, xlsx", c.Output.Format))
	}

	switch strings.ToLower(c.Ledger.DuplicatePolicy) {
	case DuplicatePolicyReject, DuplicatePolicyOverwrite:
	default:
		errs = append(errs, fmt.Errorf("ledger.duplicate_policy %q is not one of reject, overwrite", c.Ledger.DuplicatePolicy))
	}

	if p := c.Output.PrecisionOrDefault(); p < 0 || p > 28 {
		errs = append(errs, fmt.Errorf("output.precision %d out of range 0..28", p))
	}

	if s := c.Input.MaxScale(); s < 0 || s > 28 {
		errs = append(errs, fmt.Errorf("input.max_amount_scale %d out of range 0..28", s))
	}

	switch strings.ToUpper(strings.ReplaceAll(c.Input.CSV.Encoding, "_", "-")) {
	case "UTF-8", "UTF8", "ISO-8859-1", "LATIN1", "WINDOWS-1252", "CP1252":
	default:
		errs = append(errs, fmt.Errorf("input.encoding %q is not supported", c.Input.CSV.Encoding))
	}

	if c.Batch.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("batch.max_concurrency must be at least 1"))
	}

	return errors.Join(errs...)
}
