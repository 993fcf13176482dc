package dataset

import (
	"errors"
	"testing"

	"bayesreg/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable("scores.csv", "score",
		[]float64{90, 85, 70},
		[]core.VariableKey{"siblings", "hours"},
		[][]float64{{1, 5}, {2, 3}, {4, 1}},
	)
	require.NoError(t, err)
	return tbl
}

func TestNewTable_Fingerprint(t *testing.T) {
	tbl := sampleTable(t)

	assert.Equal(t, 3, tbl.RowCount())
	assert.Equal(t, 2, tbl.PredictorCount())
	assert.False(t, core.Hash(tbl.Fingerprint).IsEmpty())
	assert.Equal(t, []string{"siblings", "hours"}, tbl.PredictorNames())
}

func TestNewTable_Validation(t *testing.T) {
	tests := []struct {
		name    string
		y       []float64
		x       [][]float64
		wantErr error
	}{
		{"empty", nil, nil, core.ErrEmptyDataset},
		{"row count mismatch", []float64{1, 2}, [][]float64{{1}}, core.ErrDimensionMismatch},
		{"ragged row", []float64{1, 2}, [][]float64{{1}, {1, 2}}, core.ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable("x", "score", tt.y, []core.VariableKey{"a"}, tt.x)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestTable_Select(t *testing.T) {
	tbl := sampleTable(t)

	sub, err := tbl.Select("hours")
	require.NoError(t, err)
	assert.Equal(t, 1, sub.PredictorCount())
	assert.Equal(t, [][]float64{{5}, {3}, {1}}, sub.Matrix.Data)
	assert.NotEqual(t, tbl.Fingerprint, sub.Fingerprint)

	_, err = tbl.Select("missing")
	assert.ErrorIs(t, err, core.ErrMissingColumn)
}

func TestTable_GetColumnData(t *testing.T) {
	tbl := sampleTable(t)

	col, ok := tbl.GetColumnData("siblings")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2, 4}, col)

	_, ok = tbl.GetColumnData("nope")
	assert.False(t, ok)
}
