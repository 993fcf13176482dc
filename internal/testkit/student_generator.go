package testkit

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"bayesreg/adapters/tabular"
	"bayesreg/domain/core"
	"bayesreg/domain/dataset"
)

// PredictorSpec describes one synthetic predictor column and its true effect
type PredictorSpec struct {
	Name     string  `json:"name"`
	Mean     float64 `json:"mean"`
	SD       float64 `json:"sd"`
	Coef     float64 `json:"coef"`
	Discrete bool    `json:"discrete"` // rounded and clipped at zero, like a count
}

// StudentGeneratorConfig configures the student score generator
type StudentGeneratorConfig struct {
	Students    int             `json:"students"`
	Intercept   float64         `json:"intercept"`
	NoiseSD     float64         `json:"noise_sd"`
	Predictors  []PredictorSpec `json:"predictors"`
	MissingRate float64         `json:"missing_rate"` // per-cell probability of an NA
	Seed        uint64          `json:"seed"`
}

// DefaultStudentConfig returns sensible defaults for student score generation
func DefaultStudentConfig() StudentGeneratorConfig {
	return StudentGeneratorConfig{
		Students:  500,
		Intercept: 85,
		NoiseSD:   8,
		Predictors: []PredictorSpec{
			{Name: "siblings", Mean: 1.5, SD: 1.2, Coef: -2.5, Discrete: true},
			{Name: "hours_studied", Mean: 6, SD: 2.5, Coef: 1.8},
			{Name: "sleep_hours", Mean: 7.5, SD: 1, Coef: 1.2},
		},
		MissingRate: 0.02,
		Seed:        42,
	}
}

// StudentScoreGenerator generates score = intercept + coef . x + noise
type StudentScoreGenerator struct {
	config StudentGeneratorConfig
	rng    *rand.Rand
}

// NewStudentScoreGenerator creates a new generator
func NewStudentScoreGenerator(config StudentGeneratorConfig) *StudentScoreGenerator {
	return &StudentScoreGenerator{
		config: config,
		rng:    rand.New(rand.NewPCG(config.Seed, 0x5eed)),
	}
}

// StudentRecords is a generated dataset; NaN marks a missing cell
type StudentRecords struct {
	Predictors []string
	X          [][]float64
	Score      []float64
}

// Generate draws every student
func (g *StudentScoreGenerator) Generate() *StudentRecords {
	cfg := g.config
	rec := &StudentRecords{
		X:     make([][]float64, cfg.Students),
		Score: make([]float64, cfg.Students),
	}
	for _, p := range cfg.Predictors {
		rec.Predictors = append(rec.Predictors, p.Name)
	}

	for i := 0; i < cfg.Students; i++ {
		row := make([]float64, len(cfg.Predictors))
		mu := cfg.Intercept
		for j, p := range cfg.Predictors {
			v := p.Mean + p.SD*g.rng.NormFloat64()
			if p.Discrete {
				v = math.Max(0, math.Round(v))
			}
			row[j] = v
			mu += p.Coef * v
		}
		score := mu + cfg.NoiseSD*g.rng.NormFloat64()

		for j := range row {
			if g.rng.Float64() < cfg.MissingRate {
				row[j] = math.NaN()
			}
		}
		if g.rng.Float64() < cfg.MissingRate {
			score = math.NaN()
		}
		rec.X[i] = row
		rec.Score[i] = score
	}
	return rec
}

// Coefficients returns the true intercept and slopes by name
func (cfg StudentGeneratorConfig) Coefficients() map[string]float64 {
	out := map[string]float64{"intercept": cfg.Intercept}
	for _, p := range cfg.Predictors {
		out[p.Name] = p.Coef
	}
	return out
}

// Raw renders the records the way the notebook's CSV looks: an unnamed row
// index first, predictors, then score. Missing cells become "NA".
func (r *StudentRecords) Raw(source string) *tabular.RawTable {
	headers := append([]string{""}, r.Predictors...)
	headers = append(headers, "score")

	rows := make([][]string, len(r.Score))
	for i := range r.Score {
		row := make([]string, 0, len(headers))
		row = append(row, strconv.Itoa(i))
		for _, v := range r.X[i] {
			row = append(row, formatCell(v))
		}
		row = append(row, formatCell(r.Score[i]))
		rows[i] = row
	}
	return &tabular.RawTable{Headers: headers, Rows: rows, Source: source}
}

// Table returns the complete rows as a dataset table
func (r *StudentRecords) Table() (*dataset.Table, error) {
	keys := make([]core.VariableKey, len(r.Predictors))
	for i, p := range r.Predictors {
		keys[i] = core.VariableKey(p)
	}

	var x [][]float64
	var y []float64
	for i, row := range r.X {
		if math.IsNaN(r.Score[i]) || hasNaN(row) {
			continue
		}
		x = append(x, row)
		y = append(y, r.Score[i])
	}
	return dataset.NewTable("synthetic", "score", y, keys, x)
}

// CompleteRows counts rows without a missing cell
func (r *StudentRecords) CompleteRows() int {
	n := 0
	for i, row := range r.X {
		if !math.IsNaN(r.Score[i]) && !hasNaN(row) {
			n++
		}
	}
	return n
}

// WriteFile writes the records as CSV or XLSX
func (r *StudentRecords) WriteFile(path string) error {
	if err := tabular.WriteFile(path, r.Raw(path)); err != nil {
		return fmt.Errorf("write synthetic dataset: %w", err)
	}
	return nil
}

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func hasNaN(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
