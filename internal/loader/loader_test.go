package loader

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"bayesreg/domain/core"
	"bayesreg/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scores.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DropsMissingRows(t *testing.T) {
	path := writeCSV(t, `,siblings,hours,score
0,1,5,90
1,NA,3,85
2,2,,70
3,3,2,
4,0,7,95
5,n/a,1,60
`)

	tbl, err := New(DefaultOptions(), nil).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 2, tbl.RowCount())
	assert.Equal(t, 4, tbl.DroppedRows)
	assert.Equal(t, []string{"siblings", "hours"}, tbl.PredictorNames())
	assert.Equal(t, []float64{90, 95}, tbl.Response.Values)
	assert.Equal(t, [][]float64{{1, 5}, {0, 7}}, tbl.Matrix.Data)
	assert.Equal(t, []string{"0", "4"}, tbl.RowIDs)
}

func TestLoad_RowInvariant(t *testing.T) {
	cfg := testkit.DefaultStudentConfig()
	cfg.MissingRate = 0.1
	rec := testkit.NewStudentScoreGenerator(cfg).Generate()

	path := filepath.Join(t.TempDir(), "students.csv")
	require.NoError(t, rec.WriteFile(path))

	tbl, err := New(DefaultOptions(), nil).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, rec.CompleteRows(), tbl.RowCount())
	assert.Len(t, tbl.Matrix.Data, len(tbl.Response.Values))
	assert.Equal(t, cfg.Students-rec.CompleteRows(), tbl.DroppedRows)
	for _, row := range tbl.Matrix.Data {
		assert.Len(t, row, 3)
		for _, v := range row {
			assert.False(t, math.IsNaN(v))
		}
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		opts    func(*Options)
		wantErr error
	}{
		{
			name:    "missing response column",
			content: ",siblings,grade\n0,1,90\n",
			wantErr: core.ErrMissingColumn,
		},
		{
			name:    "response only in index position",
			content: "score,siblings\n90,1\n",
			wantErr: core.ErrMissingColumn,
		},
		{
			name:    "empty after filtering",
			content: ",siblings,score\n0,NA,90\n1,2,NaN\n",
			wantErr: core.ErrEmptyDataset,
		},
		{
			name:    "non numeric cell",
			content: ",siblings,score\n0,two,90\n",
			wantErr: core.ErrNonNumeric,
		},
		{
			name:    "unknown predictor",
			content: ",siblings,score\n0,1,90\n",
			opts:    func(o *Options) { o.Predictors = []string{"pets"} },
			wantErr: core.ErrMissingColumn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}
			_, err := New(opts, nil).Load(context.Background(), writeCSV(t, tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, core.IsValidationError(err))
		})
	}
}

func TestLoad_PredictorSelection(t *testing.T) {
	path := writeCSV(t, `,siblings,hours,score
0,1,NA,90
1,2,3,80
`)
	opts := DefaultOptions()
	opts.Predictors = []string{"siblings"}

	tbl, err := New(opts, nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.RowCount(), "missing value in an unselected column keeps the row")
	assert.Equal(t, []string{"siblings"}, tbl.PredictorNames())
}

func TestLoad_NoIndexColumn(t *testing.T) {
	path := writeCSV(t, "score,siblings\n90,1\n80,2\n")
	opts := DefaultOptions()
	opts.IndexColumn = false

	tbl, err := New(opts, nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []float64{90, 80}, tbl.Response.Values)
	assert.Equal(t, []string{"0", "1"}, tbl.RowIDs)
}

func TestIsMissing(t *testing.T) {
	for _, tok := range []string{"", " ", "NA", "na", "N/A", "NaN", "null", "None", "-"} {
		assert.True(t, IsMissing(tok), tok)
	}
	for _, tok := range []string{"0", "nah", "-1"} {
		assert.False(t, IsMissing(tok), tok)
	}
}
