package dataset

import (
	"fmt"

	"bayesreg/domain/core"
)

// Table is the canonical data object for every model in the repository: a
// response vector plus a dense predictor matrix with no missing values.
// It is the single output of the loader and the single input of the model builder.
type Table struct {
	// Core data
	Matrix   Matrix
	Response Response

	// Provenance
	Source      string
	RowIDs      []string // row index column values, when the source has one
	DroppedRows int      // rows removed because a selected column was missing

	// Fingerprint for replayability
	Fingerprint core.DatasetHash
}

// Matrix represents dense predictor data ready for modelling
type Matrix struct {
	Data         [][]float64        // rows=students, cols=predictors
	VariableKeys []core.VariableKey // column predictor names
}

// Response is the observed outcome column
type Response struct {
	Key    core.VariableKey
	Values []float64
}

// NewTable assembles a table from already-coerced columns and computes its fingerprint.
func NewTable(source string, response core.VariableKey, y []float64, predictors []core.VariableKey, x [][]float64) (*Table, error) {
	t := &Table{
		Source:   source,
		Matrix:   Matrix{Data: x, VariableKeys: predictors},
		Response: Response{Key: response, Values: y},
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.Fingerprint = core.ComputeDatasetHash(t.columnNames(), x, y)
	return t, nil
}

// Validate ensures the table is internally consistent
func (t *Table) Validate() error {
	n := len(t.Response.Values)
	if n == 0 {
		return core.ErrEmptyDataset
	}
	if len(t.Matrix.Data) != n {
		return core.NewDimensionMismatchError("predictor rows", n, len(t.Matrix.Data))
	}
	if t.RowIDs != nil && len(t.RowIDs) != n {
		return core.NewDimensionMismatchError("row ids", n, len(t.RowIDs))
	}

	d := len(t.Matrix.VariableKeys)
	for i, row := range t.Matrix.Data {
		if len(row) != d {
			return fmt.Errorf("%w: row %d has %d columns, expected %d", core.ErrDimensionMismatch, i, len(row), d)
		}
	}
	return nil
}

// GetColumn returns the column index for a predictor name
func (t *Table) GetColumn(key core.VariableKey) (int, bool) {
	for i, k := range t.Matrix.VariableKeys {
		if k == key {
			return i, true
		}
	}
	return -1, false
}

// GetColumnData returns a copy of one predictor column
func (t *Table) GetColumnData(key core.VariableKey) ([]float64, bool) {
	idx, found := t.GetColumn(key)
	if !found {
		return nil, false
	}

	data := make([]float64, len(t.Matrix.Data))
	for i, row := range t.Matrix.Data {
		data[i] = row[idx]
	}
	return data, true
}

// Select returns a new table restricted to the named predictors, in the given order.
func (t *Table) Select(keys ...core.VariableKey) (*Table, error) {
	idx := make([]int, len(keys))
	for j, k := range keys {
		i, ok := t.GetColumn(k)
		if !ok {
			return nil, core.NewMissingColumnError(k.String())
		}
		idx[j] = i
	}

	x := make([][]float64, len(t.Matrix.Data))
	for r, row := range t.Matrix.Data {
		x[r] = make([]float64, len(idx))
		for j, i := range idx {
			x[r][j] = row[i]
		}
	}

	out, err := NewTable(t.Source, t.Response.Key, t.Response.Values, append([]core.VariableKey(nil), keys...), x)
	if err != nil {
		return nil, err
	}
	out.RowIDs = t.RowIDs
	out.DroppedRows = t.DroppedRows
	return out, nil
}

// RowCount returns N
func (t *Table) RowCount() int {
	return len(t.Response.Values)
}

// PredictorCount returns D
func (t *Table) PredictorCount() int {
	return len(t.Matrix.VariableKeys)
}

// PredictorNames returns the predictor names as plain strings
func (t *Table) PredictorNames() []string {
	names := make([]string, len(t.Matrix.VariableKeys))
	for i, k := range t.Matrix.VariableKeys {
		names[i] = k.String()
	}
	return names
}

func (t *Table) columnNames() []string {
	return append(t.PredictorNames(), t.Response.Key.String())
}
