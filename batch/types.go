package batch

import (
	"github.com/cetran-sg/ViSTA-Simulation-Format-Validator/processor"
)

// StoredRun is one uploaded simulation run: the raw file bytes plus the
// validation result computed at index time.
type StoredRun struct {
	TestCaseID string
	RunID      string
	VUT        []byte
	Actor      []byte // nil when no usable actor file was uploaded
	Validation processor.ValidationResult
}

// TestCaseSummary lists one test case for the frontend.
type TestCaseSummary struct {
	ID        string `json:"id"`
	HasActors bool   `json:"has_actors"`
}

// RunSummary lists one run of a test case with its stored validation.
type RunSummary struct {
	ID         string                     `json:"id"`
	HasActors  bool                       `json:"has_actors"`
	Validation processor.ValidationResult `json:"validation"`
}

// UploadSummary is the response to a batch upload: aggregate counts plus
// the per-run validation details.
type UploadSummary struct {
	OverallValid      bool                                             `json:"overall_valid"`
	ValidRuns         int                                              `json:"valid_runs"`
	InvalidRuns       int                                              `json:"invalid_runs"`
	TestCaseCount     int                                              `json:"test_case_count"`
	RunCount          int                                              `json:"run_count"`
	TestCases         []string                                         `json:"test_cases"`
	ValidationDetails map[string]map[string]processor.ValidationResult `json:"validation_details"`
}

// StoreEvent is pushed to websocket clients whenever the store changes.
type StoreEvent struct {
	Event         string `json:"event"` // "upload" or "clear"
	TestCaseCount int    `json:"test_case_count"`
	RunCount      int    `json:"run_count"`
}
