package run

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"bayesreg/domain/core"
)

// RunFingerprint ensures deterministic replay: two runs with the same
// fingerprint draw bit-identical samples.
type RunFingerprint struct {
	DatasetHash core.DatasetHash `json:"dataset_hash"`
	Model       string           `json:"model"`
	Parameters  []string         `json:"parameters"`
	Chains      int              `json:"chains"`
	Draws       int              `json:"draws"`
	Tune        int              `json:"tune"`
	Seed        uint64           `json:"seed"`
	CodeVersion string           `json:"code_version"`
	Fingerprint core.Hash        `json:"fingerprint"` // Hash of all above
}

// NewRunFingerprint creates a fingerprint from determinism parameters
func NewRunFingerprint(datasetHash core.DatasetHash, model string, params []string,
	chains, draws, tune int, seed uint64, codeVersion string) RunFingerprint {

	fingerprint := computeRunFingerprint(datasetHash, model, params, chains, draws, tune, seed, codeVersion)

	return RunFingerprint{
		DatasetHash: datasetHash,
		Model:       model,
		Parameters:  append([]string(nil), params...),
		Chains:      chains,
		Draws:       draws,
		Tune:        tune,
		Seed:        seed,
		CodeVersion: codeVersion,
		Fingerprint: fingerprint,
	}
}

// computeRunFingerprint generates deterministic hash from all determinism parameters
func computeRunFingerprint(datasetHash core.DatasetHash, model string, params []string,
	chains, draws, tune int, seed uint64, codeVersion string) core.Hash {

	data := fmt.Sprintf("dataset:%s|model:%s|params:%s|chains:%d|draws:%d|tune:%d|seed:%d|code:%s",
		datasetHash, model, strings.Join(params, ","), chains, draws, tune, seed, codeVersion)

	hash := sha256.Sum256([]byte(data))
	return core.Hash(fmt.Sprintf("%x", hash))
}

// ParameterSummary is the stored posterior summary of one parameter
type ParameterSummary struct {
	Name    string  `json:"name" db:"name"`
	Mean    float64 `json:"mean" db:"mean"`
	SD      float64 `json:"sd" db:"sd"`
	HDILow  float64 `json:"hdi_low" db:"hdi_low"`
	HDIHigh float64 `json:"hdi_high" db:"hdi_high"`
	MCSE    float64 `json:"mcse_mean" db:"mcse_mean"`
	ESS     float64 `json:"ess" db:"ess"`
	RHat    float64 `json:"r_hat" db:"r_hat"`
}
