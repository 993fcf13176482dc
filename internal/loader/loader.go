// Package loader turns a raw CSV/XLSX table into a complete numeric
// dataset.Table: missing rows dropped, cells coerced to float64 and the
// response split from the predictors.
package loader

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"bayesreg/adapters/tabular"
	"bayesreg/domain/core"
	"bayesreg/domain/dataset"

	"go.uber.org/zap"
)

// DefaultResponseColumn is the response the student-score data uses
const DefaultResponseColumn = "score"

// missingTokens are cell values treated as missing, compared case-insensitively
var missingTokens = map[string]struct{}{
	"":     {},
	"na":   {},
	"n/a":  {},
	"nan":  {},
	"null": {},
	"none": {},
	"-":    {},
}

// IsMissing reports whether a trimmed cell counts as a missing value
func IsMissing(cell string) bool {
	_, ok := missingTokens[strings.ToLower(strings.TrimSpace(cell))]
	return ok
}

// Options controls how a raw table becomes a dataset table
type Options struct {
	ResponseColumn string   `koanf:"response" validate:"required"`
	IndexColumn    bool     `koanf:"index_column"` // first column is a row index
	Predictors     []string `koanf:"predictors"`   // empty means every other column
	Sheet          string   `koanf:"sheet"`
}

// DefaultOptions matches the student-score CSV layout
func DefaultOptions() Options {
	return Options{
		ResponseColumn: DefaultResponseColumn,
		IndexColumn:    true,
	}
}

// Loader reads files through the tabular adapter
type Loader struct {
	opts   Options
	logger *zap.Logger
}

// New creates a loader
func New(opts Options, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ResponseColumn == "" {
		opts.ResponseColumn = DefaultResponseColumn
	}
	return &Loader{opts: opts, logger: logger}
}

// Load reads path and builds the table
func (l *Loader) Load(ctx context.Context, path string) (*dataset.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := tabular.DefaultReaderConfig(path)
	cfg.Sheet = l.opts.Sheet

	raw, err := tabular.NewDataReader(cfg, l.logger).ReadData()
	if err != nil {
		return nil, err
	}
	return l.FromRaw(raw)
}

// FromRaw validates columns, drops incomplete rows and coerces to float64
func (l *Loader) FromRaw(raw *tabular.RawTable) (*dataset.Table, error) {
	headers := raw.Headers
	start := 0
	if l.opts.IndexColumn && len(headers) > 0 {
		start = 1
	}

	respIdx := -1
	for i := start; i < len(headers); i++ {
		if headers[i] == l.opts.ResponseColumn {
			respIdx = i
			break
		}
	}
	if respIdx < 0 {
		return nil, core.NewMissingColumnError(l.opts.ResponseColumn)
	}

	predIdx, predKeys, err := l.selectPredictors(headers, start, respIdx)
	if err != nil {
		return nil, err
	}

	var (
		x       [][]float64
		y       []float64
		rowIDs  []string
		dropped int
	)
	for r, row := range raw.Rows {
		if l.incomplete(row, respIdx, predIdx) {
			dropped++
			continue
		}

		yv, err := parseCell(row[respIdx], headers[respIdx], r)
		if err != nil {
			return nil, err
		}
		xr := make([]float64, len(predIdx))
		for j, c := range predIdx {
			if xr[j], err = parseCell(row[c], headers[c], r); err != nil {
				return nil, err
			}
		}

		x = append(x, xr)
		y = append(y, yv)
		if start == 1 {
			rowIDs = append(rowIDs, row[0])
		} else {
			rowIDs = append(rowIDs, strconv.Itoa(r))
		}
	}

	if len(y) == 0 {
		return nil, fmt.Errorf("%w: %d of %d rows had missing values", core.ErrEmptyDataset, dropped, len(raw.Rows))
	}

	t, err := dataset.NewTable(raw.Source, core.VariableKey(l.opts.ResponseColumn), y, predKeys, x)
	if err != nil {
		return nil, err
	}
	t.RowIDs = rowIDs
	t.DroppedRows = dropped

	l.logger.Info("dataset loaded",
		zap.String("source", raw.Source),
		zap.Int("rows", t.RowCount()),
		zap.Int("predictors", t.PredictorCount()),
		zap.Int("dropped_rows", dropped),
		zap.String("fingerprint", t.Fingerprint.Short()))
	return t, nil
}

func (l *Loader) selectPredictors(headers []string, start, respIdx int) ([]int, []core.VariableKey, error) {
	var idx []int
	if len(l.opts.Predictors) == 0 {
		for i := start; i < len(headers); i++ {
			if i != respIdx {
				idx = append(idx, i)
			}
		}
	} else {
		for _, name := range l.opts.Predictors {
			found := -1
			for i := start; i < len(headers); i++ {
				if i != respIdx && headers[i] == name {
					found = i
					break
				}
			}
			if found < 0 {
				return nil, nil, core.NewMissingColumnError(name)
			}
			idx = append(idx, found)
		}
	}

	keys := make([]core.VariableKey, len(idx))
	seen := make(map[string]bool, len(idx))
	for j, i := range idx {
		if headers[i] == "" {
			return nil, nil, fmt.Errorf("predictor column %d has an empty header", i+1)
		}
		if seen[headers[i]] {
			return nil, nil, fmt.Errorf("duplicate predictor column %q", headers[i])
		}
		seen[headers[i]] = true
		keys[j] = core.VariableKey(headers[i])
	}
	return idx, keys, nil
}

func (l *Loader) incomplete(row []string, respIdx int, predIdx []int) bool {
	if IsMissing(row[respIdx]) {
		return true
	}
	for _, c := range predIdx {
		if IsMissing(row[c]) {
			return true
		}
	}
	return false
}

func parseCell(cell, column string, row int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, core.NewNonNumericError(column, row+1, cell)
	}
	return v, nil
}
