package testkit

import (
	"math"
	"path/filepath"
	"testing"

	"bayesreg/adapters/tabular"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentScoreGenerator_Deterministic(t *testing.T) {
	cfg := DefaultStudentConfig()
	cfg.Students = 50

	a := NewStudentScoreGenerator(cfg).Generate()
	b := NewStudentScoreGenerator(cfg).Generate()

	require.Len(t, a.Score, 50)
	for i := range a.Score {
		if math.IsNaN(a.Score[i]) {
			assert.True(t, math.IsNaN(b.Score[i]))
			continue
		}
		assert.Equal(t, a.Score[i], b.Score[i])
	}
}

func TestStudentScoreGenerator_Missing(t *testing.T) {
	cfg := DefaultStudentConfig()
	cfg.MissingRate = 0.2

	rec := NewStudentScoreGenerator(cfg).Generate()
	complete := rec.CompleteRows()
	assert.Less(t, complete, cfg.Students)

	tbl, err := rec.Table()
	require.NoError(t, err)
	assert.Equal(t, complete, tbl.RowCount())

	raw := rec.Raw("x.csv")
	assert.Equal(t, []string{"", "siblings", "hours_studied", "sleep_hours", "score"}, raw.Headers)
}

func TestStudentRecords_WriteFile(t *testing.T) {
	cfg := DefaultStudentConfig()
	cfg.Students = 20
	rec := NewStudentScoreGenerator(cfg).Generate()

	for _, name := range []string{"students.csv", "students.xlsx"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, rec.WriteFile(path))

			raw, err := tabular.NewDataReader(tabular.DefaultReaderConfig(path), nil).ReadData()
			require.NoError(t, err)
			assert.Len(t, raw.Rows, 20)
			assert.Equal(t, "score", raw.Headers[len(raw.Headers)-1])
		})
	}
}

func TestProductModel(t *testing.T) {
	tbl := LineTable(30, 5, 3, 1, 1)
	m, err := ProductModel(tbl)
	require.NoError(t, err)
	assert.Equal(t, 4, m.Dim())
	assert.Equal(t, m.LogProb([]float64{5, 1.5, 2, 1}), m.LogProb([]float64{5, -1.5, -2, 1}))
}
