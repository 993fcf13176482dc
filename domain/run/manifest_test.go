package run

import (
	"encoding/json"
	"testing"
	"time"

	"bayesreg/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunFingerprint_Deterministic(t *testing.T) {
	params := []string{"intercept", "slope[siblings]", "sigma"}

	fp1 := NewRunFingerprint("abc", "simple", params, 4, 2000, 2000, 42, "dev")
	fp2 := NewRunFingerprint("abc", "simple", params, 4, 2000, 2000, 42, "dev")

	assert.Equal(t, fp1.Fingerprint, fp2.Fingerprint)
	assert.Equal(t, uint64(42), fp1.Seed)
	assert.Equal(t, params, fp1.Parameters)
}

func TestRunFingerprint_Unique(t *testing.T) {
	params := []string{"mu", "sigma"}
	base := NewRunFingerprint("abc", "naive", params, 4, 2000, 2000, 42, "dev")

	testCases := []struct {
		name string
		fp   RunFingerprint
	}{
		{"different dataset", NewRunFingerprint("abd", "naive", params, 4, 2000, 2000, 42, "dev")},
		{"different model", NewRunFingerprint("abc", "simple", params, 4, 2000, 2000, 42, "dev")},
		{"different params", NewRunFingerprint("abc", "naive", []string{"mu"}, 4, 2000, 2000, 42, "dev")},
		{"different chains", NewRunFingerprint("abc", "naive", params, 2, 2000, 2000, 42, "dev")},
		{"different seed", NewRunFingerprint("abc", "naive", params, 4, 2000, 2000, 43, "dev")},
		{"different code", NewRunFingerprint("abc", "naive", params, 4, 2000, 2000, 42, "v1")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotEqual(t, base.Fingerprint, tc.fp.Fingerprint)
		})
	}
}

func TestRunManifest_Validate(t *testing.T) {
	m := &RunManifest{
		RunID:       core.NewRunID(),
		Model:       "naive",
		DatasetHash: "abc",
		Parameters:  []ParameterSummary{{Name: "mu", Mean: 1}},
	}
	require.NoError(t, m.Validate())

	p, err := m.Parameter("mu")
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.Mean)

	_, err = m.Parameter("sigma")
	assert.ErrorIs(t, err, core.ErrParameterNotFound)

	m.Parameters = nil
	assert.Error(t, m.Validate())
}

func TestRunManifest_JSONTimestamp(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m := RunManifest{RunID: "r", CreatedAt: core.NewTimestamp(at)}

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"created_at":"2024-03-01T12:00:00Z"`)

	var back RunManifest
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.CreatedAt.Time().Equal(at))
}
