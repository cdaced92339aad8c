// =============================================================================
// Payments Engine - CSV Parser Module
// =============================================================================
//
// This module streams transaction records out of a CSV file. It handles:
//   - Different delimiters (comma, pipe, tab, semicolon)
//   - Whitespace around fields and headers
//   - Rows with fewer columns than the header (dispute/resolve/chargeback
//     rows often omit the trailing amount)
//   - Blank rows
//   - Non-UTF-8 encodings (ISO-8859-1, Windows-1252) and UTF-8 BOMs
//
// Rows are read one at a time so inputs larger than memory can be replayed.
//
// USAGE:
//   parser, err := csvparser.NewStreamingParser(r, settings)
//   if err != nil {
//       return err
//   }
//   defer parser.Close()
//
//   for parser.Next() {
//       record := parser.Record()
//       // Validate and apply the record...
//   }
//
//   if err := parser.Err(); err != nil {
//       return err
//   }
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/ginjaninja78/payments-engine/internal/config"
	"github.com/ginjaninja78/payments-engine/internal/types"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// requiredColumns must all be present in the header row.
var requiredColumns = []string{types.ColumnType, types.ColumnClient, types.ColumnTx}

// =============================================================================
// STREAMING PARSER
// =============================================================================

// StreamingParser reads transaction records row by row.
type StreamingParser struct {
	closer    io.Closer
	reader    *csv.Reader
	headers   []string
	current   types.Record
	rowNumber int
	err       error
}

// Open opens a CSV file and returns a parser positioned after the header row.
func Open(filePath string, settings config.CSVSettings) (*StreamingParser, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	parser, err := NewStreamingParser(file, settings)
	if err != nil {
		file.Close()
		return nil, err
	}

	parser.closer = file

	return parser, nil
}

// NewStreamingParser wraps r and reads its header row.
func NewStreamingParser(r io.Reader, settings config.CSVSettings) (*StreamingParser, error) {
	decoder, err := decoderFor(settings.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(transform.NewReader(bufio.NewReader(r), decoder))
	configureReader(reader, settings)

	parser := &StreamingParser{reader: reader}

	if err := parser.readHeaders(); err != nil {
		return nil, err
	}

	return parser, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	// Allow variable number of fields per row.
	reader.FieldsPerRecord = -1

	// Allow lazy quotes (quotes that don't follow strict CSV rules).
	reader.LazyQuotes = true

	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true
}

// decoderFor returns the text decoder for a configured encoding name.
func decoderFor(name string) (transform.Transformer, error) {
	var enc encoding.Encoding

	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "UTF-8", "UTF8":
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	case "ISO-8859-1", "LATIN1":
		enc = charmap.ISO8859_1
	case "WINDOWS-1252", "CP1252":
		enc = charmap.Windows1252
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}

	return enc.NewDecoder(), nil
}

// readHeaders reads the header row and checks the required columns.
func (p *StreamingParser) readHeaders() error {
	row, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("CSV file is empty")
	}
	if err != nil {
		return fmt.Errorf("error reading header row: %w", err)
	}

	p.rowNumber++

	headers := make([]string, len(row))
	for i, header := range row {
		headers[i] = types.NormalizeHeader(header)
	}

	for _, column := range requiredColumns {
		if !slices.Contains(headers, column) {
			return fmt.Errorf("header row is missing column %q", column)
		}
	}

	p.headers = headers

	return nil
}

// Next advances to the next non-blank row. Returns false when there are no
// more rows or a read error occurred.
func (p *StreamingParser) Next() bool {
	for p.err == nil {
		row, err := p.reader.Read()
		if errors.Is(err, io.EOF) {
			return false
		}
		if err != nil {
			p.err = fmt.Errorf("error reading row %d: %w", p.rowNumber+1, err)
			return false
		}

		p.rowNumber++

		if types.IsBlank(row) {
			continue
		}

		p.current = types.NewRecord(p.rowNumber, p.headers, row)

		return true
	}

	return false
}

// Record returns the current row.
func (p *StreamingParser) Record() types.Record {
	return p.current
}

// Headers returns the normalized headers.
func (p *StreamingParser) Headers() []string {
	return p.headers
}

// Err returns any error that occurred during parsing.
func (p *StreamingParser) Err() error {
	return p.err
}

// Close closes the underlying file when the parser owns it.
func (p *StreamingParser) Close() error {
	if p.closer == nil {
		return nil
	}

	return p.closer.Close()
}

