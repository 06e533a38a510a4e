package stats

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/ensim/internal/table"
)

// Summary describes one observation column within one ensemble member
// (Member == 0 means across the whole table).
type Summary struct {
	Column string
	Member int
	Rows   int
	Mean   float64
	Std    float64
	Min    float64
	Max    float64
	Median float64
}

// bookkeeping columns excluded from summaries.
var skip = map[string]bool{"step": true, "id": true, "ensemble": true}

// Summarize computes per-member summaries for every observation column of an
// ensemble result table, grouped by the "ensemble" column, followed by one
// overall summary per column (Member 0). Tables without an ensemble column
// get the overall summaries only.
func Summarize(t *table.Table) ([]Summary, error) {
	if t.Rows() == 0 {
		return nil, fmt.Errorf("stats: empty table")
	}

	var cols []string
	for _, name := range t.Columns() {
		if !skip[name] {
			cols = append(cols, name)
		}
	}

	var out []Summary
	if t.HasColumn("ensemble") {
		members := t.MustCol("ensemble")
		for _, member := range distinct(members) {
			for _, name := range cols {
				vals := selectWhere(t.MustCol(name), members, member)
				out = append(out, summarize(name, int(member), vals))
			}
		}
	}
	for _, name := range cols {
		out = append(out, summarize(name, 0, t.MustCol(name)))
	}
	return out, nil
}

func summarize(name string, member int, vals []float64) Summary {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	return Summary{
		Column: name,
		Member: member,
		Rows:   len(vals),
		Mean:   stat.Mean(vals, nil),
		Std:    stat.StdDev(vals, nil),
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
	}
}

func distinct(vals []float64) []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, v := range vals {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

func selectWhere(vals, keys []float64, key float64) []float64 {
	var out []float64
	for i, k := range keys {
		if k == key {
			out = append(out, vals[i])
		}
	}
	return out
}

// SeriesMean averages a model-table column across ensemble members at each
// step, returning the values ordered by step. This is the series the CLI
// plots after an ensemble run.
func SeriesMean(t *table.Table, column string) ([]float64, error) {
	steps, err := t.Col("step")
	if err != nil {
		return nil, err
	}
	vals, err := t.Col(column)
	if err != nil {
		return nil, err
	}

	byStep := make(map[float64][]float64)
	for i, s := range steps {
		byStep[s] = append(byStep[s], vals[i])
	}

	order := distinct(steps)
	out := make([]float64, len(order))
	for i, s := range order {
		out[i] = stat.Mean(byStep[s], nil)
	}
	return out, nil
}
