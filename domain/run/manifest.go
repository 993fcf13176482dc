package run

import (
	"fmt"

	"bayesreg/domain/core"
)

// RunManifest is the persisted record of one completed analysis. It is the
// unit the run store saves and the report server lists.
type RunManifest struct {
	RunID       core.RunID         `json:"run_id"`
	Model       string             `json:"model"`
	Variant     string             `json:"variant"`
	DataPath    string             `json:"data_path"`
	DatasetHash core.DatasetHash   `json:"dataset_hash"`
	Rows        int                `json:"rows"`
	Predictors  int                `json:"predictors"`
	Chains      int                `json:"chains"`
	Draws       int                `json:"draws"`
	Tune        int                `json:"tune"`
	Seed        uint64             `json:"seed"`
	HDIProb     float64            `json:"hdi_prob"`
	MaxRHat     float64            `json:"max_r_hat"`
	Converged   bool               `json:"converged"`
	ReportPath  string             `json:"report_path,omitempty"`
	Fingerprint RunFingerprint     `json:"fingerprint"`
	Parameters  []ParameterSummary `json:"parameters"`
	CreatedAt   core.Timestamp     `json:"created_at"`
}

// Validate checks if the manifest is complete
func (r *RunManifest) Validate() error {
	if core.ID(r.RunID).IsEmpty() {
		return fmt.Errorf("run manifest: run_id cannot be empty")
	}
	if r.Model == "" {
		return fmt.Errorf("run manifest: model cannot be empty")
	}
	if core.Hash(r.DatasetHash).IsEmpty() {
		return fmt.Errorf("run manifest: dataset_hash cannot be empty")
	}
	if len(r.Parameters) == 0 {
		return fmt.Errorf("run manifest: no parameter summaries")
	}
	return nil
}

// Parameter returns the summary for a named parameter
func (r *RunManifest) Parameter(name string) (ParameterSummary, error) {
	for _, p := range r.Parameters {
		if p.Name == name {
			return p, nil
		}
	}
	return ParameterSummary{}, fmt.Errorf("%w: %s", core.ErrParameterNotFound, name)
}
