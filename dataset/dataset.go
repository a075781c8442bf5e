// Package dataset implements ingest of labeled delimited-text tables into
// numeric point tables with per-column statistics.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/soypat/geometry/ms3"
)

var (
	// ErrNoData is returned when statistics or a dataset are requested over an empty table.
	ErrNoData = errors.New("no data")
	// ErrNotNumeric is returned when a non-label field does not hold a number.
	ErrNotNumeric = errors.New("field is not numeric")
)

// ParseError reports the location of a malformed field.
// Line is the 1-based input line during parsing or the 1-based record number
// when records are assembled into a [Dataset]. Field is 1-based, 0 for whole-record errors.
type ParseError struct {
	Line  int
	Field int
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == 0 {
		return fmt.Sprintf("dataset: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("dataset: line %d field %d: %v", e.Line, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Value is a single delimited field. Fields that parse as numbers are stored
// in Num with IsNum set, anything else is kept verbatim in Str.
type Value struct {
	Num   float64
	Str   string
	IsNum bool
}

// Num returns a numeric value.
func Num(v float64) Value { return Value{Num: v, IsNum: true} }

// Str returns a text value.
func Str(s string) Value { return Value{Str: s} }

// ParseValue types a raw field, trimming surrounding space before attempting a numeric parse.
// Only plain decimal notation is numeric: "NaN", "inf" or hex floats stay text.
func ParseValue(field string) Value {
	trimmed := strings.TrimSpace(field)
	if isDecimal(trimmed) {
		if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return Num(v)
		}
	}
	return Str(field)
}

// isDecimal reports whether s is an optionally signed decimal number with
// optional fraction and exponent, i.e: "-1", "2.", ".5", "3e-2".
func isDecimal(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for ; i < len(s) && isDigit(s[i]); i++ {
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for ; i < len(s) && isDigit(s[i]); i++ {
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		start := i
		for ; i < len(s) && isDigit(s[i]); i++ {
		}
		if i == start {
			return false
		}
	}
	return i == len(s)
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

// String formats the value the way it is written back to delimited text.
// Numbers use the shortest representation that parses back to the same float64.
func (v Value) String() string {
	if v.IsNum {
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	}
	return v.Str
}

// Class returns the integral class of a numeric label.
func (v Value) Class() (class int, ok bool) {
	if !v.IsNum || v.Num != math.Trunc(v.Num) || math.IsInf(v.Num, 0) {
		return 0, false
	}
	return int(v.Num), true
}

// LabelMap maps text labels to integer classes. Labels not present are passed through unchanged.
type LabelMap map[string]int

// DefaultLabelMap returns the class mapping of the three Iris species.
func DefaultLabelMap() LabelMap {
	return LabelMap{
		"Iris-setosa":     0,
		"Iris-versicolor": 1,
		"Iris-virginica":  2,
	}
}

// Map returns the class of a text label present in the map or v unchanged.
// Matching is exact.
func (lm LabelMap) Map(v Value) Value {
	if v.IsNum {
		return v
	}
	if class, ok := lm[v.Str]; ok {
		return Num(float64(class))
	}
	return v
}

// Config controls ingest.
type Config struct {
	// Name identifies the dataset in logs and output, e.g. the experiment name.
	Name string
	// Delimiter separates fields. Defaults to ','.
	Delimiter rune
	// Labels maps text labels to classes. A nil map means [DefaultLabelMap],
	// an empty map disables mapping.
	Labels LabelMap
}

func (cfg Config) delimiter() rune {
	if cfg.Delimiter == 0 {
		return ','
	}
	return cfg.Delimiter
}

func (cfg Config) labels() LabelMap {
	if cfg.Labels == nil {
		return DefaultLabelMap()
	}
	return cfg.Labels
}

// Dataset is a numeric point table with one label per row and the column
// statistics of the table. Points and Labels are aligned by row index.
type Dataset struct {
	Name   string
	Points [][]float64
	Labels []Value
	Stats  Stats
}

// New splits the trailing label off every record, maps the labels and computes
// column statistics over the remaining fields which must all be numeric.
// records are not retained.
func New(records [][]Value, cfg Config) (*Dataset, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}
	width := len(records[0])
	if width < 2 {
		return nil, &ParseError{Line: 1, Err: fmt.Errorf("%d fields, need at least one besides the label", width)}
	}
	lm := cfg.labels()
	ds := &Dataset{
		Name:   cfg.Name,
		Points: make([][]float64, len(records)),
		Labels: make([]Value, len(records)),
	}
	ncols := width - 1
	flat := make([]float64, len(records)*ncols)
	for i, rec := range records {
		if len(rec) != width {
			return nil, &ParseError{Line: i + 1, Err: fmt.Errorf("%d fields, want %d", len(rec), width)}
		}
		row := flat[i*ncols : (i+1)*ncols : (i+1)*ncols]
		for j, v := range rec[:ncols] {
			if !v.IsNum {
				return nil, &ParseError{Line: i + 1, Field: j + 1, Err: fmt.Errorf("%q: %w", v.Str, ErrNotNumeric)}
			}
			row[j] = v.Num
		}
		ds.Points[i] = row
		ds.Labels[i] = lm.Map(rec[ncols])
	}
	stats, err := ComputeStats(ds.Points)
	if err != nil {
		return nil, err
	}
	ds.Stats = stats
	return ds, nil
}

// Len returns the number of rows.
func (ds *Dataset) Len() int { return len(ds.Points) }

// Dim returns the number of numeric columns.
func (ds *Dataset) Dim() int {
	if len(ds.Points) == 0 {
		return 0
	}
	return len(ds.Points[0])
}

// Records re-attaches every label as the last field of its row, inverting the split done by [New].
func (ds *Dataset) Records() [][]Value {
	records := make([][]Value, len(ds.Points))
	for i, row := range ds.Points {
		rec := make([]Value, len(row)+1)
		for j, v := range row {
			rec[j] = Num(v)
		}
		rec[len(row)] = ds.Labels[i]
		records[i] = rec
	}
	return records
}

// WithPoints returns a dataset with the same name and labels over a new point table,
// such as an embedding of ds. Points are copied.
func (ds *Dataset) WithPoints(points [][]float64) (*Dataset, error) {
	if len(points) != len(ds.Labels) {
		return nil, fmt.Errorf("got %d rows for %d labels", len(points), len(ds.Labels))
	}
	stats, err := ComputeStats(points)
	if err != nil {
		return nil, err
	}
	cp := make([][]float64, len(points))
	for i := range points {
		cp[i] = append([]float64(nil), points[i]...)
	}
	return &Dataset{
		Name:   ds.Name,
		Points: cp,
		Labels: append([]Value(nil), ds.Labels...),
		Stats:  stats,
	}, nil
}

// Classes returns the row indices of every integral class label.
// Rows with text or fractional labels are not part of any class.
func (ds *Dataset) Classes() map[int]*roaring.Bitmap {
	classes := make(map[int]*roaring.Bitmap)
	for i, label := range ds.Labels {
		class, ok := label.Class()
		if !ok {
			continue
		}
		bm := classes[class]
		if bm == nil {
			bm = roaring.New()
			classes[class] = bm
		}
		bm.Add(uint32(i))
	}
	return classes
}

// Positions3 returns the first three fields of row as a position, zero padded
// for tables with fewer columns.
func Positions3(row []float64) ms3.Vec {
	var p [3]float32
	for i := 0; i < len(row) && i < 3; i++ {
		p[i] = float32(row[i])
	}
	return ms3.Vec{X: p[0], Y: p[1], Z: p[2]}
}
