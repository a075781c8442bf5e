package dataset

import (
	"fmt"
	"math"
)

// ColumnStats summarizes a single column.
type ColumnStats struct {
	Min, Max, Range, Mean float64
}

// Stats holds per-column statistics as parallel slices indexed by column
// and the largest absolute column range, used to size scenes.
type Stats struct {
	Min      []float64
	Max      []float64
	Range    []float64
	Mean     []float64
	MaxRange float64
}

// Columns returns the number of columns summarized.
func (s *Stats) Columns() int { return len(s.Min) }

// Column returns the statistics of column c.
func (s *Stats) Column(c int) ColumnStats {
	return ColumnStats{Min: s.Min[c], Max: s.Max[c], Range: s.Range[c], Mean: s.Mean[c]}
}

// ComputeStats scans points once computing min, max, range and mean of every column.
// Returns [ErrNoData] for an empty table. Non-finite values are not special cased.
func ComputeStats(points [][]float64) (Stats, error) {
	if len(points) == 0 || len(points[0]) == 0 {
		return Stats{}, ErrNoData
	}
	ncols := len(points[0])
	s := Stats{
		Min:   make([]float64, ncols),
		Max:   make([]float64, ncols),
		Range: make([]float64, ncols),
		Mean:  make([]float64, ncols),
	}
	copy(s.Min, points[0])
	copy(s.Max, points[0])
	for i, row := range points {
		if len(row) != ncols {
			return Stats{}, fmt.Errorf("row %d has %d columns, want %d", i, len(row), ncols)
		}
		for c, v := range row {
			s.Mean[c] += v
			if v > s.Max[c] {
				s.Max[c] = v
			}
			if v < s.Min[c] {
				s.Min[c] = v
			}
		}
	}
	n := float64(len(points))
	for c := range s.Mean {
		s.Mean[c] /= n
		// Summation rounding can leave the mean just outside the column's bounds.
		if !math.IsNaN(s.Min[c]) && !math.IsNaN(s.Max[c]) && !math.IsNaN(s.Mean[c]) {
			s.Mean[c] = max(s.Min[c], min(s.Mean[c], s.Max[c]))
		}
		s.Range[c] = s.Max[c] - s.Min[c]
		if r := math.Abs(s.Range[c]); r > s.MaxRange {
			s.MaxRange = r
		}
	}
	return s, nil
}
