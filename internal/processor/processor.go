// =============================================================================
// Payments Engine - Processor Module
// =============================================================================
//
// This module orchestrates one replay run, from reading transaction records
// to writing the final account balances.
//
// REPLAY PIPELINE:
//   1. Open the record source (CSV or XLSX)
//   2. Validate each record into a ledger transaction
//   3. Apply the transaction to a fresh ledger engine, in arrival order
//   4. Count and log rejections and malformed records
//   5. Write the account snapshots in the configured output format
//
// CONCURRENCY:
//   A Processor holds no per-run state and may be shared. Each call to Run
//   builds its own engine, so separate files can be replayed concurrently.
//   A single run is strictly sequential.
//
// =============================================================================

package processor

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/payments-engine/internal/config"
	"github.com/ginjaninja78/payments-engine/internal/csvparser"
	"github.com/ginjaninja78/payments-engine/internal/csvwriter"
	"github.com/ginjaninja78/payments-engine/internal/ledger"
	"github.com/ginjaninja78/payments-engine/internal/types"
	"github.com/ginjaninja78/payments-engine/internal/validation"
	"github.com/ginjaninja78/payments-engine/internal/xlsxparser"
	"github.com/ginjaninja78/payments-engine/internal/xmlwriter"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReasonMalformed labels records that could not be turned into a transaction.
const ReasonMalformed = "malformed"

// ErrMalformedRecord is returned by Run in strict mode.
var ErrMalformedRecord = errors.New("malformed record")

// =============================================================================
// RECORD SOURCE
// =============================================================================

// RecordSource yields transaction records in arrival order.
// csvparser.StreamingParser and xlsxparser.SheetReader both satisfy it.
type RecordSource interface {
	Next() bool
	Record() types.Record
	Err() error
	Close() error
}

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of one replay run.
type Result struct {
	// RunID identifies the run in logs and batch output names.
	RunID string

	// Accounts holds the final account snapshots, sorted by client.
	Accounts []ledger.AccountSnapshot

	// Rejections lists every record that did not change the ledger.
	Rejections []Rejection

	// Stats contains replay statistics.
	Stats Stats
}

// Stats contains statistics about a replay run.
type Stats struct {
	// Rows is the number of records read from the source.
	Rows int

	// Applied is the number of transactions accepted by the engine.
	Applied int

	// Rejected is the number of transactions refused by the engine.
	Rejected int

	// Malformed is the number of records that failed validation.
	Malformed int

	// RejectedByReason counts engine rejections by ledger.Reason label.
	RejectedByReason map[string]int

	// Duration is the time taken by the run.
	Duration time.Duration
}

// Rejection describes one record that was not applied.
type Rejection struct {
	Row    int
	Type   string
	Client string
	TxID   string
	Reason string
	Detail string
}

// =============================================================================
// PROCESSOR STRUCTURE
// =============================================================================

// Processor replays transaction files.
type Processor struct {
	cfg       *config.Config
	logger    *zap.Logger
	validator *validation.Validator
}

// New creates a Processor. A nil logger discards all log output.
func New(cfg *config.Config, logger *zap.Logger) *Processor {
	if cfg == nil {
		cfg = config.Default()
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	options := validation.DefaultValidationOptions()
	options.MaxScale = cfg.Input.MaxScale()
	options.AllowNegativeAmounts = cfg.Input.NegativeAmountsAllowed()

	return &Processor{
		cfg:       cfg,
		logger:    logger,
		validator: validation.NewValidatorWithOptions(options),
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTIONS
// =============================================================================

// RunFile opens path with the reader matching its extension and replays it.
func (p *Processor) RunFile(path string, sink io.Writer) (Result, error) {
	source, err := p.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer source.Close()

	return p.Run(source, sink)
}

// Open returns the record source for a .csv or .xlsx file.
func (p *Processor) Open(path string) (RecordSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		source, err := csvparser.Open(path, p.cfg.Input.CSV)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		return source, nil

	case ".xlsx":
		source, err := xlsxparser.Open(path, p.cfg.Input.Sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		return source, nil

	default:
		return nil, fmt.Errorf("unsupported input file type: %s", path)
	}
}

// Run replays every record from source and writes the final accounts to
// sink. Engine rejections are never fatal. A malformed record is skipped
// unless strict input is configured, in which case Run stops and returns an
// error wrapping ErrMalformedRecord without writing any accounts.
//
// Run does not close source.
func (p *Processor) Run(source RecordSource, sink io.Writer) (Result, error) {
	startTime := time.Now()
	result := Result{
		RunID: uuid.NewString(),
		Stats: Stats{RejectedByReason: make(map[string]int)},
	}

	logger := p.logger.With(zap.String("run_id", result.RunID))
	logger.Debug("replay started", zap.String("duplicate_policy", p.cfg.Ledger.DuplicatePolicy))

	engine := ledger.New(ledger.WithDuplicatePolicy(p.cfg.Ledger.Policy()))

	for source.Next() {
		record := source.Record()
		result.Stats.Rows++

		tx, err := p.validator.Validate(record)
		if err != nil {
			result.Stats.Malformed++
			result.Rejections = append(result.Rejections, rejectionFor(record, ReasonMalformed, err))

			logger.Warn("skipping malformed record",
				zap.Int("row", record.Row),
				zap.String("detail", validation.FormatErrors(validation.FieldErrors(err))),
			)

			if p.cfg.Input.Strict {
				result.Stats.Duration = time.Since(startTime)
				return result, fmt.Errorf("row %d: %w: %w", record.Row, ErrMalformedRecord, err)
			}

			continue
		}

		if err := engine.Apply(tx); err != nil {
			reason := ledger.Reason(err)
			result.Stats.Rejected++
			result.Stats.RejectedByReason[reason]++
			result.Rejections = append(result.Rejections, rejectionFor(record, reason, err))

			logger.Debug("transaction rejected",
				zap.Int("row", record.Row),
				zap.Stringer("type", tx.Kind),
				zap.Uint16("client", uint16(tx.Client)),
				zap.Uint32("tx", uint32(tx.TxID)),
				zap.String("reason", reason),
			)

			continue
		}

		result.Stats.Applied++
	}

	if err := source.Err(); err != nil {
		result.Stats.Duration = time.Since(startTime)
		return result, fmt.Errorf("failed to read input: %w", err)
	}

	result.Accounts = engine.Accounts()

	if sink != nil {
		if err := p.WriteAccounts(sink, result.Accounts); err != nil {
			result.Stats.Duration = time.Since(startTime)
			return result, err
		}
	}

	result.Stats.Duration = time.Since(startTime)

	logger.Info("replay finished",
		zap.Int("rows", result.Stats.Rows),
		zap.Int("applied", result.Stats.Applied),
		zap.Int("rejected", result.Stats.Rejected),
		zap.Int("malformed", result.Stats.Malformed),
		zap.Int("accounts", len(result.Accounts)),
		zap.Duration("duration", result.Stats.Duration),
	)

	return result, nil
}

// WriteAccounts renders accounts in the configured output format.
func (p *Processor) WriteAccounts(w io.Writer, accounts []ledger.AccountSnapshot) error {
	precision := p.cfg.Output.PrecisionOrDefault()

	var err error

	switch strings.ToLower(p.cfg.Output.Format) {
	case config.FormatCSV:
		err = csvwriter.Write(w, accounts, precision)

	case config.FormatXML:
		options := xmlwriter.DefaultGenerateOptions()
		options.Precision = precision
		err = xmlwriter.Write(w, accounts, options)

	case config.FormatXLSX:
		err = xlsxparser.WriteAccounts(w, accounts, precision)

	default:
		return fmt.Errorf("unsupported output format: %s", p.cfg.Output.Format)
	}

	if err != nil {
		return fmt.Errorf("failed to write accounts: %w", err)
	}

	return nil
}

// Extension returns the file extension of the configured output format.
func (p *Processor) Extension() string {
	return "." + strings.ToLower(p.cfg.Output.Format)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func rejectionFor(record types.Record, reason string, err error) Rejection {
	return Rejection{
		Row:    record.Row,
		Type:   record.Get(types.ColumnType),
		Client: record.Get(types.ColumnClient),
		TxID:   record.Get(types.ColumnTx),
		Reason: reason,
		Detail: strings.ReplaceAll(err.Error(), "\n", "; "),
	}
}
