package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ginjaninja78/payments-engine/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, LogFormatConsole, cfg.LogFormat)
	assert.Equal(t, ",", cfg.Input.CSV.Delimiter)
	assert.Equal(t, "UTF-8", cfg.Input.CSV.Encoding)
	assert.Equal(t, FormatCSV, cfg.Output.Format)
	assert.Equal(t, int32(4), cfg.Output.PrecisionOrDefault())
	assert.Equal(t, int32(4), cfg.Input.MaxScale())
	assert.True(t, cfg.Input.NegativeAmountsAllowed())
	assert.Equal(t, ledger.DuplicateReject, cfg.Ledger.Policy())
	assert.Equal(t, 4, cfg.Batch.MaxConcurrency)
	assert.True(t, cfg.Batch.ShouldArchive())
	require.NoError(t, cfg.Validate())
}

func TestParse(t *testing.T) {
	doc := []byte(`
log_level: debug
log_format: json
input:
  delimiter: "|"
  encoding: ISO-8859-1
  strict: true
  max_amount_scale: 2
  allow_negative_amounts: false
ledger:
  duplicate_policy: overwrite
output:
  format: xml
  precision: 2
batch:
  input_dir: /tmp/in
  max_concurrency: 1
  archive_inputs: false
`)

	cfg, err := Parse(doc)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, LogFormatJSON, cfg.LogFormat)
	assert.Equal(t, "|", cfg.Input.CSV.Delimiter)
	assert.Equal(t, "ISO-8859-1", cfg.Input.CSV.Encoding)
	assert.True(t, cfg.Input.Strict)
	assert.Equal(t, int32(2), cfg.Input.MaxScale())
	assert.False(t, cfg.Input.NegativeAmountsAllowed())
	assert.Equal(t, ledger.DuplicateOverwrite, cfg.Ledger.Policy())
	assert.Equal(t, FormatXML, cfg.Output.Format)
	assert.Equal(t, int32(2), cfg.Output.PrecisionOrDefault())
	assert.Equal(t, "/tmp/in", cfg.Batch.InputDir)
	assert.Equal(t, "./output", cfg.Batch.OutputDir)
	assert.Equal(t, 1, cfg.Batch.MaxConcurrency)
	assert.False(t, cfg.Batch.ShouldArchive())
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{name: "bad yaml", doc: "log_level: [", wantErr: "failed to parse"},
		{name: "bad level", doc: "log_level: loud", wantErr: "log_level"},
		{name: "bad log format", doc: "log_format: xml", wantErr: "log_format"},
		{name: "bad format", doc: "output:\n  format: json", wantErr: "output.format"},
		{name: "bad policy", doc: "ledger:\n  duplicate_policy: merge", wantErr: "duplicate_policy"},
		{name: "bad precision", doc: "output:\n  precision: -1", wantErr: "output.precision"},
		{name: "bad encoding", doc: "input:\n  encoding: EBCDIC", wantErr: "input.encoding"},
		{name: "bad concurrency", doc: "batch:\n  max_concurrency: -2", wantErr: "max_concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("optional missing file yields defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(dir, "missing.yaml"), true)
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("required missing file fails", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "missing.yaml"), false)
		require.Error(t, err)
	})

	t.Run("existing file", func(t *testing.T) {
		path := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("output:\n  format: xlsx\n"), 0o600))

		cfg, err := Load(path, false)
		require.NoError(t, err)
		assert.Equal(t, FormatXLSX, cfg.Output.Format)
	})
}
