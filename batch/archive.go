package batch

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"log"
	"path"
	"regexp"
	"strings"

	"github.com/cetran-sg/ViSTA-Simulation-Format-Validator/catalog"
	"github.com/cetran-sg/ViSTA-Simulation-Format-Validator/processor"
	"github.com/cetran-sg/ViSTA-Simulation-Format-Validator/validator"
)

// runDirPattern matches a run directory name: {test_case_id}_{rN},
// e.g. "M2-CL4-S-TST-05-02_r0".
var runDirPattern = regexp.MustCompile(`^(.+)_(r\d+)$`)

var (
	vutFileNames   = map[string]bool{"VUT_status.xlsx": true, "VUT_status.csv": true}
	actorFileNames = map[string]bool{"Environment_actors_true.xlsx": true, "Environment_actors_true.csv": true}
)

// IndexArchive walks a ZIP archive of test-case runs, validates every
// run it finds, and returns the runs ready for the store together with
// the upload summary. A run parses out of
//
//	{test_case_id}_{rN}/VUT_status.{xlsx,csv}
//	{test_case_id}_{rN}/Environment_actors_true.{xlsx,csv}   (optional)
//
// Parse failures inside a run become validation errors for that run;
// only an unreadable archive fails the upload as a whole.
func IndexArchive(cat *catalog.Catalog, zipBytes []byte) (*UploadSummary, []StoredRun, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open ZIP: %w", err)
	}

	// First pass: index actor files by their run directory.
	actorIndex := make(map[string][]byte)
	for _, f := range zr.File {
		if !isRunFile(f.Name, actorFileNames) {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			log.Printf("Skipping unreadable actor file %s: %v", f.Name, err)
			continue
		}
		actorIndex[path.Base(path.Dir(f.Name))] = data
	}

	summary := &UploadSummary{
		TestCases:         []string{},
		ValidationDetails: map[string]map[string]processor.ValidationResult{},
	}
	var runs []StoredRun
	seenTestCase := make(map[string]bool)

	// Second pass: one stored run per VUT file.
	for _, f := range zr.File {
		if !isRunFile(f.Name, vutFileNames) {
			continue
		}
		dir := path.Base(path.Dir(f.Name))
		m := runDirPattern.FindStringSubmatch(dir)
		if m == nil {
			log.Printf("Skipping %s: directory %q does not match {test_case_id}_{rN}", f.Name, dir)
			continue
		}
		testCaseID, runID := m[1], m[2]

		vutBytes, err := readZipFile(f)
		if err != nil {
			log.Printf("Skipping unreadable VUT file %s: %v", f.Name, err)
			continue
		}

		actorBytes := usableActorBytes(cat, actorIndex[dir])
		validation := validateRun(vutBytes, actorBytes)

		if validation.Valid {
			summary.ValidRuns++
		} else {
			summary.InvalidRuns++
		}
		if !seenTestCase[testCaseID] {
			seenTestCase[testCaseID] = true
			summary.TestCases = append(summary.TestCases, testCaseID)
		}
		if summary.ValidationDetails[testCaseID] == nil {
			summary.ValidationDetails[testCaseID] = map[string]processor.ValidationResult{}
		}
		summary.ValidationDetails[testCaseID][runID] = validation
		summary.RunCount++

		runs = append(runs, StoredRun{
			TestCaseID: testCaseID,
			RunID:      runID,
			VUT:        vutBytes,
			Actor:      actorBytes,
			Validation: validation,
		})
	}

	summary.TestCaseCount = len(summary.TestCases)
	summary.OverallValid = summary.InvalidRuns == 0 && summary.RunCount > 0
	return summary, runs, nil
}

// validateRun runs the format checks for one run at index time. A file
// that cannot even be loaded yields a single parse-failure error.
func validateRun(vutBytes, actorBytes []byte) processor.ValidationResult {
	errors := []string{}
	warnings := []string{}

	vut, err := processor.LoadVehicleTable(vutBytes)
	if err != nil {
		errors = append(errors, fmt.Sprintf("Failed to parse file: %v", err))
	} else {
		ve, vw := validator.ValidateVehicle(vut)
		errors = append(errors, ve...)
		warnings = append(warnings, vw...)

		if actorBytes != nil {
			actors, err := processor.LoadActorTable(actorBytes)
			if err != nil {
				errors = append(errors, fmt.Sprintf("Failed to parse file: %v", err))
			} else {
				ae, aw := validator.ValidateActors(actors)
				errors = append(errors, ae...)
				warnings = append(warnings, aw...)
			}
		}
	}

	return processor.ValidationResult{
		Valid:    len(errors) == 0,
		Errors:   errors,
		Warnings: warnings,
	}
}

// usableActorBytes treats header-only or unloadable actor files as
// absent, mirroring the policy of dropping unusable actor data instead
// of failing the run.
func usableActorBytes(cat *catalog.Catalog, b []byte) []byte {
	if b == nil {
		return nil
	}
	t, err := processor.LoadActorTable(b)
	if err != nil {
		return nil
	}
	if len(processor.EnumerateActors(cat, t)) == 0 {
		return nil
	}
	return b
}

// isRunFile reports whether a ZIP entry is a real data file with one of
// the expected base names, excluding macOS resource-fork noise.
func isRunFile(name string, allowed map[string]bool) bool {
	base := path.Base(name)
	return allowed[base] &&
		!strings.Contains(name, "__MACOSX") &&
		!strings.HasPrefix(base, "._")
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
