package dataprep

import (
	"survival/pkg/data"
	"survival/pkg/stats"
)

// ColumnProfile summarizes the missingness and shape of one column.
type ColumnProfile struct {
	Name         string
	Missing      int
	MissingRatio float64
	Numeric      bool
	Levels       int     // distinct non-null values, categorical columns only
	Mean         float64 // numeric columns only
	Std          float64
	Min, Max     float64
	P25, Median  float64
	P75          float64
	Skew         float64
}

// Profile describes every column of t. Numeric columns get location,
// spread and skew of their observed values.
func Profile(t *data.Table) []ColumnProfile {
	rows := t.NumRows()
	out := make([]ColumnProfile, 0, t.NumCols())
	for _, name := range t.Names() {
		col, _ := t.Column(name)
		p := ColumnProfile{Name: name, Numeric: t.IsNumeric(name)}
		var nums []float64
		levels := make(map[string]struct{})
		for _, v := range col {
			switch {
			case v.IsNull():
				p.Missing++
			case p.Numeric:
				f, _ := v.Float()
				nums = append(nums, f)
			default:
				levels[v.String()] = struct{}{}
			}
		}
		if rows > 0 {
			p.MissingRatio = float64(p.Missing) / float64(rows)
		}
		if p.Numeric {
			p.Mean = stats.Mean(nums)
			p.Std = stats.Std(nums)
			p.Min, p.Max = stats.MinMax(nums)
			p.P25 = stats.Percentile(nums, 25)
			p.Median = stats.Median(nums)
			p.P75 = stats.Percentile(nums, 75)
			p.Skew = stats.Skew(nums)
		} else {
			p.Levels = len(levels)
		}
		out = append(out, p)
	}
	return out
}
