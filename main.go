// =============================================================================
// Payments Engine - Main Entry Point
// =============================================================================
//
// USAGE:
//   payments-engine INPUT_FILE   - Replay one file, accounts to stdout
//   payments-engine process      - Replay every file in the input directory
//   payments-engine version      - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Ledger engine, readers, writers and the replay processor
//   - pkg/           : Batch file management utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/payments-engine/cmd"
)

func main() {
	cmd.Execute()
}
