// =============================================================================
// Payments Engine - Process Command
// =============================================================================
//
// This file defines the 'process' command, which replays every transaction
// file in the input directory as an independent ledger.
//
// COMMAND USAGE:
//   payments-engine process [flags]
//
// FLAGS:
//   --dry-run     : Replay without writing outputs, logs or archiving inputs
//
// PROCESSING PIPELINE:
//   1. Load configuration
//   2. Discover .csv and .xlsx files in the input directory
//   3. For each file (concurrently, up to batch.max_concurrency):
//      a. Replay it into a fresh ledger engine
//      b. Write the account file to the output directory
//      c. Archive the input file
//   4. Write the rejection log and the summary report
//
// =============================================================================

package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ginjaninja78/payments-engine/internal/config"
	"github.com/ginjaninja78/payments-engine/internal/logging"
	"github.com/ginjaninja78/payments-engine/internal/processor"
	"github.com/ginjaninja78/payments-engine/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun replays files without writing anything.
var dryRun bool

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Replay every transaction file in the input directory",
	Long: `The process command scans the input directory for CSV and XLSX
transaction files and replays each one into its own ledger.

Files are replayed concurrently. Errors in one file do not affect the others.

On success:
  - The account balances are placed in the output directory
  - The input file is moved to the input archive

On error:
  - The input file remains in the input directory
  - The error is recorded in the summary report

Rejected transactions from every file are collected in a rejection log in
the output directory.`,

	Args: cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger := logging.MustNew(loggerOptions(cfg))
		defer logger.Sync()

		return runProcess(cfg, logger, dryRun)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Replay files without writing outputs, logs or archiving inputs",
	)
}

// =============================================================================
// BATCH RESULT
// =============================================================================

// fileOutcome is the result of replaying one input file.
type fileOutcome struct {
	InputFile  string
	OutputFile string
	Result     processor.Result
	Err        error
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runProcess replays every input file and writes the batch reports.
func runProcess(cfg *config.Config, logger *zap.Logger, dryRun bool) error {
	startTime := time.Now()

	fm := utils.NewFileManager(cfg.Batch.InputDir, cfg.Batch.OutputDir, cfg.Batch.InputArchiveDir)
	fm.ArchiveOnSuccess = cfg.Batch.ShouldArchive() && !dryRun

	if !dryRun {
		if err := fm.EnsureDirectories(); err != nil {
			return err
		}
	}

	// =========================================================================
	// STEP 1: DISCOVER INPUT FILES
	// =========================================================================

	inputFiles, err := fm.DiscoverInputFiles()
	if err != nil {
		return fmt.Errorf("failed to discover input files: %w", err)
	}

	if len(inputFiles) == 0 {
		logger.Info("no transaction files found", zap.String("input_dir", fm.InputDir))
		return nil
	}

	logger.Info("replaying files",
		zap.Int("files", len(inputFiles)),
		zap.Int("max_concurrency", cfg.Batch.MaxConcurrency),
		zap.Bool("dry_run", dryRun),
	)

	// =========================================================================
	// STEP 2: REPLAY FILES CONCURRENTLY
	// =========================================================================
	// Each file owns its engine. The semaphore bounds how many replays run
	// at once.

	proc := processor.New(cfg, logger)

	var wg sync.WaitGroup
	results := make(chan fileOutcome, len(inputFiles))
	semaphore := make(chan struct{}, cfg.Batch.MaxConcurrency)

	for _, file := range inputFiles {
		wg.Add(1)

		go func(inputPath string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			results <- replayBatchFile(proc, fm, cfg, logger, inputPath, dryRun)
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// =========================================================================
	// STEP 3: COLLECT RESULTS
	// =========================================================================

	var outcomes []fileOutcome
	for outcome := range results {
		outcomes = append(outcomes, outcome)
	}

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].InputFile < outcomes[j].InputFile
	})

	summary, rejections := summarize(outcomes)
	summary.StartTime = startTime
	summary.EndTime = time.Now()

	// =========================================================================
	// STEP 4: WRITE REPORTS
	// =========================================================================

	if !dryRun {
		if path, err := utils.WriteRejectionLog(rejections, fm.OutputDir); err != nil {
			logger.Error("failed to write rejection log", zap.Error(err))
		} else if path != "" {
			logger.Info("rejection log written", zap.String("path", path))
		}

		if path, err := utils.WriteSummaryLog(summary, fm.OutputDir); err != nil {
			logger.Error("failed to write summary", zap.Error(err))
		} else {
			logger.Info("summary written", zap.String("path", path))
		}
	}

	logger.Info("processing complete",
		zap.Int("files", summary.TotalFiles),
		zap.Int("successful", summary.SuccessfulFiles),
		zap.Int("failed", summary.FailedFiles),
		zap.Int("rows", summary.TotalRows),
		zap.Int("applied", summary.Applied),
		zap.Int("rejected", summary.Rejected),
		zap.Int("malformed", summary.Malformed),
		zap.Duration("elapsed", summary.EndTime.Sub(summary.StartTime)),
	)

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// replayBatchFile replays one input file, writes its account file and
// archives it.
func replayBatchFile(proc *processor.Processor, fm *utils.FileManager, cfg *config.Config, logger *zap.Logger, inputPath string, dryRun bool) fileOutcome {
	outcome := fileOutcome{InputFile: inputPath}

	var accounts bytes.Buffer

	result, err := proc.RunFile(inputPath, &accounts)
	outcome.Result = result
	if err != nil {
		outcome.Err = err
		logger.Error("replay failed", zap.String("input", inputPath), zap.Error(err))
		return outcome
	}

	if dryRun {
		logger.Info("replayed (dry run)", zap.String("input", inputPath), zap.Int("accounts", len(result.Accounts)))
		return outcome
	}

	name := utils.GenerateOutputFileName(cfg.Batch.OutputNameFormat, inputPath, proc.Extension())
	outcome.OutputFile = filepath.Join(fm.OutputDir, name)

	if err := os.WriteFile(outcome.OutputFile, accounts.Bytes(), 0644); err != nil {
		outcome.Err = fmt.Errorf("failed to write output: %w", err)
		outcome.OutputFile = ""
		logger.Error("replay failed", zap.String("input", inputPath), zap.Error(outcome.Err))
		return outcome
	}

	if _, err := fm.ArchiveInputFile(inputPath); err != nil {
		// The replay itself succeeded.
		logger.Warn("failed to archive input", zap.String("input", inputPath), zap.Error(err))
	}

	logger.Info("replayed",
		zap.String("input", inputPath),
		zap.String("output", outcome.OutputFile),
		zap.String("run_id", result.RunID),
	)

	return outcome
}

// summarize folds file outcomes into the batch summary and rejection log.
func summarize(outcomes []fileOutcome) (utils.ProcessingSummary, []utils.RejectionLogEntry) {
	summary := utils.ProcessingSummary{TotalFiles: len(outcomes)}

	var rejections []utils.RejectionLogEntry

	for _, outcome := range outcomes {
		stats := outcome.Result.Stats

		summary.TotalRows += stats.Rows
		summary.Applied += stats.Applied
		summary.Rejected += stats.Rejected
		summary.Malformed += stats.Malformed

		for _, r := range outcome.Result.Rejections {
			rejections = append(rejections, utils.RejectionLogEntry{
				FileName: filepath.Base(outcome.InputFile),
				Row:      r.Row,
				Type:     r.Type,
				Client:   r.Client,
				TxID:     r.TxID,
				Reason:   r.Reason,
				Detail:   r.Detail,
			})
		}

		if outcome.Err != nil {
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    outcome.InputFile,
				ErrorMessage: outcome.Err.Error(),
			})
			continue
		}

		summary.SuccessfulFiles++
		summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
			InputFile:   outcome.InputFile,
			OutputFile:  outcome.OutputFile,
			RunID:       outcome.Result.RunID,
			Rows:        stats.Rows,
			Applied:     stats.Applied,
			Rejected:    stats.Rejected,
			Malformed:   stats.Malformed,
			Accounts:    len(outcome.Result.Accounts),
			ProcessTime: stats.Duration,
		})
	}

	return summary, rejections
}
