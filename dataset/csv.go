package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Parse reads delimited records from r typing every field with [ParseValue].
// Empty lines are skipped and all records must hold the same number of fields.
// On error no records are returned.
func Parse(r io.Reader, cfg Config) ([][]Value, error) {
	cr := csv.NewReader(r)
	cr.Comma = cfg.delimiter()
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	var records [][]Value
	width := 0
	for {
		raw, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, &ParseError{Line: perr.Line, Field: perr.Column, Err: perr.Err}
			}
			return nil, err
		}
		if len(raw) == 1 && strings.TrimSpace(raw[0]) == "" {
			continue // Whitespace only line.
		}
		if width == 0 {
			width = len(raw)
		} else if len(raw) != width {
			line, _ := cr.FieldPos(0)
			return nil, &ParseError{Line: line, Err: fmt.Errorf("%d fields, want %d: %w", len(raw), width, csv.ErrFieldCount)}
		}
		rec := make([]Value, len(raw))
		for i, field := range raw {
			rec[i] = ParseValue(field)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Load parses r and assembles the records into a [Dataset].
func Load(r io.Reader, cfg Config) (*Dataset, error) {
	records, err := Parse(r, cfg)
	if err != nil {
		return nil, err
	}
	return New(records, cfg)
}

// WriteCSV writes ds with labels re-attached as the last field using delim as separator,
// zero meaning ','. Output parsed by [Load] reproduces the numeric content of ds exactly.
func WriteCSV(w io.Writer, ds *Dataset, delim rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = Config{Delimiter: delim}.delimiter()
	var fields []string
	for i, row := range ds.Points {
		fields = fields[:0]
		for _, v := range row {
			fields = append(fields, Num(v).String())
		}
		fields = append(fields, ds.Labels[i].String())
		if err := cw.Write(fields); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
