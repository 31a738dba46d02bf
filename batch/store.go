package batch

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
)

// Store holds the uploaded runs for the lifetime of the process. It is
// backed by an in-memory sqlite database, so nothing survives a restart
// and concurrent handlers are serialized by the single connection.
type Store struct {
	db *sql.DB
}

const storeSchema = `
	CREATE TABLE IF NOT EXISTS runs (
		test_case_id TEXT NOT NULL,
		run_id       TEXT NOT NULL,
		run_seq      INTEGER NOT NULL,
		tc_seq       INTEGER NOT NULL,
		vut          BLOB NOT NULL,
		actor        BLOB,
		validation   TEXT NOT NULL,
		uploaded_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (test_case_id, run_id)
	);
`

// storeSeq distinguishes the in-memory databases of separately opened
// stores; shared-cache DSNs with the same name would otherwise alias.
var storeSeq atomic.Int64

// OpenStore creates an empty run store.
func OpenStore() (*Store, error) {
	// A plain ":memory:" DSN would give every pooled connection its own
	// database; the named shared-cache DSN keeps one database per store.
	dsn := fmt.Sprintf("file:vista_batch_%d?mode=memory&cache=shared", storeSeq.Add(1))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping batch store: %w", err)
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create batch store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the store's database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Replace drops all stored runs and loads the given set, as one
// transaction. An upload always repopulates the store from scratch.
func (s *Store) Replace(runs []StoredRun) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin store transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM runs"); err != nil {
		return fmt.Errorf("failed to clear batch store: %w", err)
	}

	tcSeq := make(map[string]int)
	for _, run := range runs {
		if _, ok := tcSeq[run.TestCaseID]; !ok {
			tcSeq[run.TestCaseID] = len(tcSeq)
		}
		validation, err := json.Marshal(run.Validation)
		if err != nil {
			return fmt.Errorf("failed to encode validation for %s/%s: %w", run.TestCaseID, run.RunID, err)
		}
		_, err = tx.Exec(
			"INSERT INTO runs (test_case_id, run_id, run_seq, tc_seq, vut, actor, validation) VALUES (?, ?, ?, ?, ?, ?, ?)",
			run.TestCaseID, run.RunID, runSortKey(run.RunID), tcSeq[run.TestCaseID], run.VUT, run.Actor, string(validation),
		)
		if err != nil {
			return fmt.Errorf("failed to store run %s/%s: %w", run.TestCaseID, run.RunID, err)
		}
	}

	return tx.Commit()
}

// Clear empties the store.
func (s *Store) Clear() error {
	if _, err := s.db.Exec("DELETE FROM runs"); err != nil {
		return fmt.Errorf("failed to clear batch store: %w", err)
	}
	return nil
}

// TestCases returns the loaded test cases sorted by id.
func (s *Store) TestCases() ([]TestCaseSummary, error) {
	rows, err := s.db.Query(`
		SELECT test_case_id, MAX(actor IS NOT NULL)
		FROM runs GROUP BY test_case_id ORDER BY test_case_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query test cases: %w", err)
	}
	defer rows.Close()

	result := []TestCaseSummary{}
	for rows.Next() {
		var tc TestCaseSummary
		if err := rows.Scan(&tc.ID, &tc.HasActors); err != nil {
			return nil, fmt.Errorf("failed to scan test case row: %w", err)
		}
		result = append(result, tc)
	}
	return result, rows.Err()
}

// TestCaseIDs returns the test case ids in upload order.
func (s *Store) TestCaseIDs() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT test_case_id FROM runs ORDER BY tc_seq")
	if err != nil {
		return nil, fmt.Errorf("failed to query test case ids: %w", err)
	}
	defer rows.Close()

	result := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan test case id: %w", err)
		}
		result = append(result, id)
	}
	return result, rows.Err()
}

// Runs returns the runs of one test case sorted numerically by run id
// (r2 before r10). The second return is false when the test case is not
// in the store.
func (s *Store) Runs(testCaseID string) ([]RunSummary, bool, error) {
	rows, err := s.db.Query(`
		SELECT run_id, actor IS NOT NULL, validation
		FROM runs WHERE test_case_id = ? ORDER BY run_seq`, testCaseID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	result := []RunSummary{}
	for rows.Next() {
		var run RunSummary
		var validation string
		if err := rows.Scan(&run.ID, &run.HasActors, &validation); err != nil {
			return nil, false, fmt.Errorf("failed to scan run row: %w", err)
		}
		if err := json.Unmarshal([]byte(validation), &run.Validation); err != nil {
			return nil, false, fmt.Errorf("failed to decode validation for run %s: %w", run.ID, err)
		}
		result = append(result, run)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return result, len(result) > 0, nil
}

// Run fetches one stored run. The second return is false when it does
// not exist.
func (s *Store) Run(testCaseID, runID string) (*StoredRun, bool, error) {
	run := &StoredRun{TestCaseID: testCaseID, RunID: runID}
	var validation string
	err := s.db.QueryRow(
		"SELECT vut, actor, validation FROM runs WHERE test_case_id = ? AND run_id = ?",
		testCaseID, runID,
	).Scan(&run.VUT, &run.Actor, &validation)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load run %s/%s: %w", testCaseID, runID, err)
	}
	if err := json.Unmarshal([]byte(validation), &run.Validation); err != nil {
		return nil, false, fmt.Errorf("failed to decode validation for %s/%s: %w", testCaseID, runID, err)
	}
	return run, true, nil
}

// Counts returns the number of distinct test cases and total runs.
func (s *Store) Counts() (testCases, runs int, err error) {
	err = s.db.QueryRow("SELECT COUNT(DISTINCT test_case_id), COUNT(*) FROM runs").Scan(&testCases, &runs)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count stored runs: %w", err)
	}
	return testCases, runs, nil
}

// runSortKey extracts the numeric part of a run id ("r10" -> 10) so runs
// order numerically rather than lexically.
func runSortKey(runID string) int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, runID)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
