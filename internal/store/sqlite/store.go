package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"agentscope/internal/domain"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("record not found")

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	agent_data TEXT NOT NULL,
	test_cases TEXT NOT NULL DEFAULT '[]',
	running_test TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS test_results (
	id TEXT PRIMARY KEY,
	analysis_id TEXT NOT NULL,
	test_id TEXT NOT NULL,
	session_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	execution_time REAL NOT NULL DEFAULT 0,
	results TEXT NOT NULL DEFAULT 'null',
	recommendations TEXT NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL,
	FOREIGN KEY(analysis_id) REFERENCES analyses(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_test_results_analysis ON test_results(analysis_id, created_at);

CREATE TABLE IF NOT EXISTS export_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	analysis_id TEXT NOT NULL,
	path TEXT NOT NULL,
	format TEXT NOT NULL,
	bytes INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_export_log_analysis ON export_log(analysis_id, created_at);
`

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set sqlite pragma %q: %w", stmt, err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// SaveAnalysis inserts the analysis or replaces its payload, keeping the
// original creation time. A missing ID is generated.
func (s *Store) SaveAnalysis(ctx context.Context, a domain.Analysis) (domain.Analysis, error) {
	now := time.Now().UTC()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = domain.AnalysisStatusCompleted
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	data, err := json.Marshal(a.Data)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("marshal agent data: %w", err)
	}
	tests, err := marshalList(a.TestCases)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("marshal test cases: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO analyses(id, name, status, agent_data, test_cases, running_test, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			agent_data = excluded.agent_data,
			test_cases = excluded.test_cases,
			running_test = excluded.running_test,
			updated_at = excluded.updated_at`,
		a.ID, a.Name, string(a.Status), string(data), tests, a.RunningTest,
		a.CreatedAt.Unix(), a.UpdatedAt.Unix(),
	)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("save analysis: %w", err)
	}
	return s.GetAnalysis(ctx, a.ID)
}

func (s *Store) GetAnalysis(ctx context.Context, id string) (domain.Analysis, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, name, status, agent_data, test_cases, running_test, created_at, updated_at
		FROM analyses WHERE id = ?`,
		id,
	)
	a, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Analysis{}, fmt.Errorf("get analysis %s: %w", id, ErrNotFound)
		}
		return domain.Analysis{}, fmt.Errorf("get analysis: %w", err)
	}
	return a, nil
}

func (s *Store) ListAnalyses(ctx context.Context) ([]domain.Analysis, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, name, status, agent_data, test_cases, running_test, created_at, updated_at
		FROM analyses ORDER BY updated_at DESC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Analysis, 0)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return result, nil
}

func (s *Store) SetTestCases(ctx context.Context, analysisID string, cases []domain.TestCase) error {
	tests, err := marshalList(cases)
	if err != nil {
		return fmt.Errorf("marshal test cases: %w", err)
	}
	return s.updateAnalysis(ctx, "set test cases", analysisID,
		`UPDATE analyses SET test_cases = ?, updated_at = ? WHERE id = ?`,
		tests, time.Now().UTC().Unix(), analysisID)
}

// SetRunningTest records the composite key of the executing test; "" clears it.
func (s *Store) SetRunningTest(ctx context.Context, analysisID, key string) error {
	return s.updateAnalysis(ctx, "set running test", analysisID,
		`UPDATE analyses SET running_test = ?, updated_at = ? WHERE id = ?`,
		key, time.Now().UTC().Unix(), analysisID)
}

func (s *Store) updateAnalysis(ctx context.Context, action, analysisID, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s affected rows: %w", action, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %s: %w", action, analysisID, ErrNotFound)
	}
	return nil
}

// RecordTestResult stores a result under its analysis. The row ID is generated
// when empty and the running marker is cleared if it pointed at this test.
func (s *Store) RecordTestResult(ctx context.Context, analysisID string, r domain.TestResult) (domain.TestResult, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	details, err := json.Marshal(r.Results)
	if err != nil {
		return domain.TestResult{}, fmt.Errorf("marshal result details: %w", err)
	}
	recs, err := marshalList(r.Recommendations)
	if err != nil {
		return domain.TestResult{}, fmt.Errorf("marshal recommendations: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.TestResult{}, fmt.Errorf("begin tx record result: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var running string
	if err := tx.QueryRowContext(ctx, `SELECT running_test FROM analyses WHERE id = ?`, analysisID).Scan(&running); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TestResult{}, fmt.Errorf("record result for %s: %w", analysisID, ErrNotFound)
		}
		return domain.TestResult{}, fmt.Errorf("read analysis: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO test_results(id, analysis_id, test_id, session_id, status, execution_time, results, recommendations, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, analysisID, r.TestID, r.SessionID, string(r.Status), r.ExecutionTime,
		string(details), recs, r.CreatedAt.Unix(),
	); err != nil {
		return domain.TestResult{}, fmt.Errorf("insert test result: %w", err)
	}

	if running != "" && (running == r.Key() || running == r.TestID) {
		running = ""
	}
	if _, err := tx.ExecContext(
		ctx,
		`UPDATE analyses SET running_test = ?, updated_at = ? WHERE id = ?`,
		running, time.Now().UTC().Unix(), analysisID,
	); err != nil {
		return domain.TestResult{}, fmt.Errorf("touch analysis after result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.TestResult{}, fmt.Errorf("commit record result: %w", err)
	}
	return r, nil
}

// ListTestResults returns results in arrival order.
func (s *Store) ListTestResults(ctx context.Context, analysisID string) ([]domain.TestResult, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, test_id, session_id, status, execution_time, results, recommendations, created_at
		FROM test_results
		WHERE analysis_id = ?
		ORDER BY created_at ASC, rowid ASC`,
		analysisID,
	)
	if err != nil {
		return nil, fmt.Errorf("list test results: %w", err)
	}
	defer rows.Close()

	result := make([]domain.TestResult, 0)
	for rows.Next() {
		var r domain.TestResult
		var status, details, recs string
		var created int64
		if err := rows.Scan(&r.ID, &r.TestID, &r.SessionID, &status, &r.ExecutionTime, &details, &recs, &created); err != nil {
			return nil, fmt.Errorf("scan test result: %w", err)
		}
		r.Status = domain.TestStatus(status)
		if err := json.Unmarshal([]byte(details), &r.Results); err != nil {
			return nil, fmt.Errorf("decode result details: %w", err)
		}
		if err := json.Unmarshal([]byte(recs), &r.Recommendations); err != nil {
			return nil, fmt.Errorf("decode recommendations: %w", err)
		}
		r.CreatedAt = unixToTime(created)
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate test results: %w", err)
	}
	return result, nil
}

// LatestResults keeps the last result per composite key.
func (s *Store) LatestResults(ctx context.Context, analysisID string) (map[string]domain.TestResult, error) {
	all, err := s.ListTestResults(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	latest := make(map[string]domain.TestResult, len(all))
	for _, r := range all {
		latest[r.Key()] = r
	}
	return latest, nil
}

func (s *Store) LogExport(ctx context.Context, rec domain.ExportRecord) (domain.ExportRecord, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO export_log(analysis_id, path, format, bytes, created_at)
		VALUES(?, ?, ?, ?, ?)`,
		rec.AnalysisID, rec.Path, rec.Format, rec.Bytes, rec.CreatedAt.Unix(),
	)
	if err != nil {
		return domain.ExportRecord{}, fmt.Errorf("log export: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.ExportRecord{}, fmt.Errorf("export log id: %w", err)
	}
	rec.ID = id
	return rec, nil
}

func (s *Store) ListExports(ctx context.Context, analysisID string, limit int) ([]domain.ExportRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, analysis_id, path, format, bytes, created_at
		FROM export_log
		WHERE analysis_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		analysisID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	result := make([]domain.ExportRecord, 0, limit)
	for rows.Next() {
		var rec domain.ExportRecord
		var created int64
		if err := rows.Scan(&rec.ID, &rec.AnalysisID, &rec.Path, &rec.Format, &rec.Bytes, &created); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		rec.CreatedAt = unixToTime(created)
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exports: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (domain.Analysis, error) {
	var a domain.Analysis
	var status, data, tests string
	var created, updated int64
	if err := row.Scan(&a.ID, &a.Name, &status, &data, &tests, &a.RunningTest, &created, &updated); err != nil {
		return domain.Analysis{}, err
	}
	a.Status = domain.AnalysisStatus(status)
	if err := json.Unmarshal([]byte(data), &a.Data); err != nil {
		return domain.Analysis{}, fmt.Errorf("decode agent data: %w", err)
	}
	if err := json.Unmarshal([]byte(tests), &a.TestCases); err != nil {
		return domain.Analysis{}, fmt.Errorf("decode test cases: %w", err)
	}
	a.CreatedAt = unixToTime(created)
	a.UpdatedAt = unixToTime(updated)
	return a, nil
}

// marshalList encodes nil slices as [] so the columns stay valid JSON arrays.
func marshalList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unixToTime(v int64) time.Time {
	return time.Unix(v, 0).UTC()
}
