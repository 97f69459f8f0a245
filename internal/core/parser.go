package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ParsedRow is one outcome of the parser: either a converted Product, or a
// nil Product when the row failed and its RowError was already recorded.
type ParsedRow struct {
	Product   *Product
	RowNumber int
}

// Parser is a single-use pull cursor over a product CSV stream.
//
// Each call to Next consumes one data row. Conversion failures are recorded
// on the ImportResult and reported as a ParsedRow with a nil Product, so a
// bad row never stops the parse.
type Parser struct {
	r      *csv.Reader
	result *ImportResult
	logger *slog.Logger

	header  HeaderIndex
	width   int
	row     int // row number of the last record read, header is 1
	started bool
	done    bool
}

// NewParser creates a parser reading from r and accumulating into result.
func NewParser(r io.Reader, result *ImportResult, logger *slog.Logger) *Parser {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	if logger == nil {
		logger = slog.Default()
	}

	return &Parser{r: cr, result: result, logger: logger}
}

// Header returns the resolved header index, or nil before the first Next.
func (p *Parser) Header() HeaderIndex {
	return p.header
}

// Next returns the next row. It returns io.EOF once the input is exhausted,
// and keeps returning io.EOF afterwards. A cancelled ctx yields an error
// wrapping ErrCancelled.
func (p *Parser) Next(ctx context.Context) (ParsedRow, error) {
	if p.done {
		return ParsedRow{}, io.EOF
	}

	if err := ctx.Err(); err != nil {
		p.done = true
		return ParsedRow{}, fmt.Errorf("%w: parsing stopped after row %d: %w", ErrCancelled, p.row, err)
	}

	if !p.started {
		p.started = true
		if err := p.readHeader(); err != nil {
			p.done = true
			return ParsedRow{}, err
		}
	}

	record, err := p.r.Read()
	if err == io.EOF {
		p.done = true
		return ParsedRow{}, io.EOF
	}

	p.row++
	p.result.RecordTotal()

	if err != nil {
		var perr *csv.ParseError
		if !errors.As(err, &perr) {
			p.done = true
			return ParsedRow{}, fmt.Errorf("read row %d: %w", p.row, err)
		}
		p.logger.Warn("malformed csv row", "row", p.row, "error", perr.Err)
		return p.fail(record, fmt.Sprintf("malformed row: %v", perr.Err)), nil
	}

	if len(record) < p.width {
		p.logger.Debug("short row, missing cells treated as empty",
			"row", p.row, "fields", len(record), "header_fields", p.width)
	}

	product, err := BuildProduct(record, p.header)
	if err != nil {
		return p.fail(record, err.Error()), nil
	}

	return ParsedRow{Product: &product, RowNumber: p.row}, nil
}

// readHeader consumes the header row and resolves column positions.
func (p *Parser) readHeader() error {
	header, err := p.r.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	p.row = 1
	p.width = len(header)
	p.header = MakeHeaderIndex(header)

	if missing := p.header.Missing(RequiredColumns); len(missing) > 0 {
		p.logger.Warn("header is missing required columns, every row will fail",
			"missing", strings.Join(missing, ","))
	}
	return nil
}

// fail records a RowError for the current row and returns the nil marker.
func (p *Parser) fail(record []string, msg string) ParsedRow {
	rowErr := RowError{
		RowNumber: p.row,
		RawData:   rawLine(record),
		Message:   msg,
	}
	p.result.RecordFailure(rowErr)

	p.logger.Warn("row rejected",
		"row", rowErr.RowNumber,
		"error", rowErr.Message,
		"raw", rowErr.RawData,
	)

	return ParsedRow{RowNumber: p.row}
}

// ParseAll drains the parser, returning the valid rows in input order.
// On cancellation the collected rows are discarded.
func (p *Parser) ParseAll(ctx context.Context) ([]ParsedRow, error) {
	var valid []ParsedRow
	for {
		row, err := p.Next(ctx)
		if err == io.EOF {
			return valid, nil
		}
		if err != nil {
			return nil, err
		}
		if row.Product != nil {
			valid = append(valid, row)
		}
	}
}

// rawLine re-encodes a record as a single CSV line. The reader does not
// keep the original bytes, so this is a best-effort reconstruction.
func rawLine(record []string) string {
	if len(record) == 0 {
		return ""
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(record); err != nil {
		return strings.Join(record, ",")
	}
	w.Flush()

	return strings.TrimRight(buf.String(), "\r\n")
}
