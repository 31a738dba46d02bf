package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/cetran-sg/ViSTA-Simulation-Format-Validator/catalog"
	"github.com/cetran-sg/ViSTA-Simulation-Format-Validator/processor"
	"github.com/cetran-sg/ViSTA-Simulation-Format-Validator/tabular"
)

// Service wires the run store, the actor-type catalog and the websocket
// notifier behind the batch HTTP endpoints. Injecting the store keeps
// handler tests isolated from each other.
type Service struct {
	catalog  *catalog.Catalog
	store    *Store
	notifier *Notifier
}

func NewService(cat *catalog.Catalog) (*Service, error) {
	store, err := OpenStore()
	if err != nil {
		return nil, err
	}
	return &Service{
		catalog:  cat,
		store:    store,
		notifier: NewNotifier(),
	}, nil
}

// Close shuts down the websocket clients and the store.
func (s *Service) Close() error {
	s.notifier.Close()
	return s.store.Close()
}

func (s *Service) SetupHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/api/actor-types", s.handleActorTypes)
	mux.HandleFunc("/api/batch/upload", s.handleUpload)
	mux.HandleFunc("/api/batch/clear", s.handleClear)
	mux.HandleFunc("/api/batch/test-cases", s.handleTestCases)
	mux.HandleFunc("/api/batch/runs/", s.handleRuns)
	mux.HandleFunc("/api/batch/evaluate", s.handleEvaluate)
	mux.HandleFunc("/api/batch/ws", s.notifier.HandleWS)
}

// handleActorTypes returns the actor type catalog for OBB rendering.
func (s *Service) handleActorTypes(w http.ResponseWriter, r *http.Request) {
	type actorTypeEntry struct {
		ID         int        `json:"id"`
		Name       string     `json:"name"`
		Dimensions [2]float64 `json:"dimensions"`
	}

	types := []actorTypeEntry{}
	for _, t := range s.catalog.Types() {
		types = append(types, actorTypeEntry{
			ID:         t.ID,
			Name:       t.Name,
			Dimensions: [2]float64{t.LengthM, t.WidthM},
		})
	}

	writeJSON(w, map[string]interface{}{"types": types})
}

// handleUpload accepts a ZIP archive of test-case runs, validates every
// run, and repopulates the store.
func (s *Service) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(256 << 20); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("zip_file")
	if err != nil {
		http.Error(w, "Missing zip_file upload", http.StatusBadRequest)
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read upload", http.StatusInternalServerError)
		return
	}

	summary, runs, err := IndexArchive(s.catalog, raw)
	if err != nil {
		http.Error(w, fmt.Sprintf("Cannot open ZIP: %v", err), http.StatusBadRequest)
		return
	}

	if err := s.store.Replace(runs); err != nil {
		log.Printf("Failed to store uploaded runs: %v", err)
		http.Error(w, "Failed to store uploaded runs", http.StatusInternalServerError)
		return
	}

	log.Printf("Batch upload indexed: %d test case(s), %d run(s), %d invalid",
		summary.TestCaseCount, summary.RunCount, summary.InvalidRuns)
	s.notifier.Broadcast(StoreEvent{
		Event:         "upload",
		TestCaseCount: summary.TestCaseCount,
		RunCount:      summary.RunCount,
	})

	writeJSON(w, summary)
}

// handleClear empties the batch store.
func (s *Service) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.store.Clear(); err != nil {
		log.Printf("Failed to clear batch store: %v", err)
		http.Error(w, "Failed to clear batch store", http.StatusInternalServerError)
		return
	}

	s.notifier.Broadcast(StoreEvent{Event: "clear"})
	writeJSON(w, map[string]bool{"cleared": true})
}

// handleTestCases lists the loaded test case ids.
func (s *Service) handleTestCases(w http.ResponseWriter, r *http.Request) {
	testCases, err := s.store.TestCases()
	if err != nil {
		log.Printf("Failed to list test cases: %v", err)
		http.Error(w, "Failed to list test cases", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"test_cases": testCases})
}

// handleRuns lists the runs of one test case with their stored
// validation status.
func (s *Service) handleRuns(w http.ResponseWriter, r *http.Request) {
	testCaseID := strings.TrimPrefix(r.URL.Path, "/api/batch/runs/")
	if testCaseID == "" {
		http.Error(w, "Missing test case id", http.StatusBadRequest)
		return
	}

	runs, found, err := s.store.Runs(testCaseID)
	if err != nil {
		log.Printf("Failed to list runs for %s: %v", testCaseID, err)
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, fmt.Sprintf("Test case '%s' not found", testCaseID), http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]interface{}{"runs": runs})
}

// handleEvaluate validates and extracts trajectory data for a stored
// run.
func (s *Service) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	testCaseID := r.FormValue("test_case_id")
	runID := r.FormValue("run_id")
	if testCaseID == "" || runID == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	run, found, err := s.store.Run(testCaseID, runID)
	if err != nil {
		log.Printf("Failed to load run %s/%s: %v", testCaseID, runID, err)
		http.Error(w, "Failed to load run", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, fmt.Sprintf("Run '%s' not found in test case '%s'", runID, testCaseID), http.StatusNotFound)
		return
	}

	result, err := processor.Evaluate(s.catalog, run.VUT, run.Actor, testCaseID, runID)
	if err != nil {
		var parseErr *tabular.ParseError
		var schemaErr *processor.SchemaError
		if errors.As(err, &parseErr) || errors.As(err, &schemaErr) {
			http.Error(w, fmt.Sprintf("Could not process file: %v", err), http.StatusInternalServerError)
			return
		}
		log.Printf("Evaluation error for %s/%s: %v", testCaseID, runID, err)
		http.Error(w, fmt.Sprintf("Evaluation error: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, result)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
	}
}
