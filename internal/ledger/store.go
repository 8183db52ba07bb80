package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"imgsim/internal/config"
	"imgsim/internal/scoring"
)

// Run is one invocation of the collection driver.
type Run struct {
	ID          string    `json:"id"`
	Stages      []string  `json:"stages"`
	RootDir     string    `json:"root_dir"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Collections int       `json:"collections"`
	Completed   int       `json:"completed"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
}

// StageRecord is the outcome of one stage for one collection.
type StageRecord struct {
	RunID      string    `json:"run_id"`
	Collection string    `json:"collection"`
	Stage      string    `json:"stage"`
	Outcome    string    `json:"outcome"`
	CacheHit   bool      `json:"cache_hit"`
	Reason     string    `json:"reason,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// CollectionState is the terminal state a collection reached in a run.
type CollectionState struct {
	RunID      string    `json:"run_id"`
	Collection string    `json:"collection"`
	State      string    `json:"state"`
	Reason     string    `json:"reason,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ScoreSet is the ranked result stored for one query image.
type ScoreSet struct {
	RunID      string
	Collection string
	Query      string
	Records    []scoring.Record
}

// ErrNoScores is returned when no ranked result is stored for a lookup.
var ErrNoScores = errors.New("no stored scores")

// Store manages the run ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.LedgerPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Collection workers write concurrently; a single connection keeps
	// SQLite writers from contending for the lock.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartRun inserts a run row.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, stages, root_dir, started_at, collections) VALUES (?, ?, ?, ?, ?)`,
		run.ID,
		strings.Join(run.Stages, ","),
		run.RootDir,
		formatTime(run.StartedAt),
		run.Collections,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stores the completion time and collection tallies of a run.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, collections = ?, completed = ?, skipped = ?, failed = ? WHERE id = ?`,
		formatTime(run.FinishedAt),
		run.Collections,
		run.Completed,
		run.Skipped,
		run.Failed,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecordStage appends one stage outcome.
func (s *Store) RecordStage(ctx context.Context, rec StageRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stage_outcomes (run_id, collection, stage, outcome, cache_hit, reason, started_at, finished_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.Collection,
		rec.Stage,
		rec.Outcome,
		boolToInt(rec.CacheHit),
		nullableString(rec.Reason),
		formatTime(rec.StartedAt),
		formatTime(rec.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert stage outcome: %w", err)
	}
	return nil
}

// RecordCollection upserts the terminal state of a collection in a run.
func (s *Store) RecordCollection(ctx context.Context, state CollectionState) error {
	updated := state.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collection_states (run_id, collection, state, reason, updated_at) VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(run_id, collection) DO UPDATE SET state = excluded.state, reason = excluded.reason, updated_at = excluded.updated_at`,
		state.RunID,
		state.Collection,
		state.State,
		nullableString(state.Reason),
		formatTime(updated),
	)
	if err != nil {
		return fmt.Errorf("upsert collection state: %w", err)
	}
	return nil
}

// RecordScores replaces the ranked records stored for a query in a run.
func (s *Store) RecordScores(ctx context.Context, runID, collection, query string, records []scoring.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin scores tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM score_records WHERE run_id = ? AND collection = ? AND query_image = ?`,
		runID, collection, query,
	); err != nil {
		return fmt.Errorf("clear scores: %w", err)
	}
	for i, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode score record: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO score_records (run_id, collection, query_image, position, custom_score, record_json)
             VALUES (?, ?, ?, ?, ?, ?)`,
			runID, collection, query, i, rec.CustomScore, string(payload),
		); err != nil {
			return fmt.Errorf("insert score record: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit scores: %w", err)
	}
	return nil
}

// LatestScores returns the most recently stored ranking for a collection.
// An empty query matches any query image.
func (s *Store) LatestScores(ctx context.Context, collection, query string) (ScoreSet, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT sr.run_id, sr.query_image FROM score_records sr
         JOIN runs r ON r.id = sr.run_id
         WHERE sr.collection = ? AND (? = '' OR sr.query_image = ?)
         ORDER BY r.started_at DESC, sr.id DESC LIMIT 1`,
		collection, query, query,
	)
	set := ScoreSet{Collection: collection}
	if err := row.Scan(&set.RunID, &set.Query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ScoreSet{}, ErrNoScores
		}
		return ScoreSet{}, fmt.Errorf("find latest scores: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT record_json FROM score_records WHERE run_id = ? AND collection = ? AND query_image = ? ORDER BY position`,
		set.RunID, collection, set.Query,
	)
	if err != nil {
		return ScoreSet{}, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return ScoreSet{}, err
		}
		var rec scoring.Record
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return ScoreSet{}, fmt.Errorf("decode score record: %w", err)
		}
		set.Records = append(set.Records, rec)
	}
	return set, rows.Err()
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, stages, root_dir, started_at, finished_at, collections, completed, skipped, failed
         FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run         Run
			stages      string
			startedRaw  string
			finishedRaw sql.NullString
		)
		if err := rows.Scan(&run.ID, &stages, &run.RootDir, &startedRaw, &finishedRaw,
			&run.Collections, &run.Completed, &run.Skipped, &run.Failed); err != nil {
			return nil, err
		}
		if stages != "" {
			run.Stages = strings.Split(stages, ",")
		}
		run.StartedAt, _ = parseTime(startedRaw)
		if finishedRaw.Valid {
			run.FinishedAt, _ = parseTime(finishedRaw.String)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// StageRecords returns the stage outcomes of a run in insertion order.
func (s *Store) StageRecords(ctx context.Context, runID string) ([]StageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, collection, stage, outcome, cache_hit, reason, started_at, finished_at
         FROM stage_outcomes WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query stage outcomes: %w", err)
	}
	defer rows.Close()

	var records []StageRecord
	for rows.Next() {
		var (
			rec         StageRecord
			cacheHit    int
			reason      sql.NullString
			startedRaw  string
			finishedRaw string
		)
		if err := rows.Scan(&rec.RunID, &rec.Collection, &rec.Stage, &rec.Outcome, &cacheHit, &reason, &startedRaw, &finishedRaw); err != nil {
			return nil, err
		}
		rec.CacheHit = cacheHit != 0
		rec.Reason = reason.String
		rec.StartedAt, _ = parseTime(startedRaw)
		rec.FinishedAt, _ = parseTime(finishedRaw)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CollectionStates returns the terminal states recorded for a run.
func (s *Store) CollectionStates(ctx context.Context, runID string) ([]CollectionState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, collection, state, reason, updated_at FROM collection_states WHERE run_id = ? ORDER BY collection`, runID)
	if err != nil {
		return nil, fmt.Errorf("query collection states: %w", err)
	}
	defer rows.Close()

	var states []CollectionState
	for rows.Next() {
		var (
			state      CollectionState
			reason     sql.NullString
			updatedRaw string
		)
		if err := rows.Scan(&state.RunID, &state.Collection, &state.State, &reason, &updatedRaw); err != nil {
			return nil, err
		}
		state.Reason = reason.String
		state.UpdatedAt, _ = parseTime(updatedRaw)
		states = append(states, state)
	}
	return states, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
