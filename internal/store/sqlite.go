// Package store keeps a history of training runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Run is one completed training run.
type Run struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	Dataset        string
	Samples        int
	Features       int
	Best           string
	BestAccuracy   float64
	Fastest        string
	FastestSeconds float64
	Models         []ModelRun
}

// ModelRun is one row of a run's comparison table. Rank 1 is the best.
type ModelRun struct {
	Rank            int
	Name            string
	Accuracy        float64
	Precision       float64
	Recall          float64
	F1              float64
	TrainingSeconds float64
	Artifact        string
}

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	started_at      TEXT NOT NULL,
	finished_at     TEXT NOT NULL,
	dataset         TEXT NOT NULL,
	samples         INTEGER NOT NULL,
	features        INTEGER NOT NULL,
	best            TEXT NOT NULL,
	best_accuracy   REAL NOT NULL,
	fastest         TEXT NOT NULL,
	fastest_seconds REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS run_models (
	id               TEXT PRIMARY KEY,
	run_id           TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	rank             INTEGER NOT NULL,
	name             TEXT NOT NULL,
	accuracy         REAL NOT NULL,
	precision_score  REAL NOT NULL,
	recall           REAL NOT NULL,
	f1               REAL NOT NULL,
	training_seconds REAL NOT NULL,
	artifact         TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_run_models_run_id ON run_models(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun stores a run and its model rows in one transaction. An empty ID
// gets a fresh UUID.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, dataset, samples, features, best, best_accuracy, fastest, fastest_seconds)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt), run.Dataset, run.Samples, run.Features,
		run.Best, run.BestAccuracy, run.Fastest, run.FastestSeconds,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	for _, m := range run.Models {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_models (id, run_id, rank, name, accuracy, precision_score, recall, f1, training_seconds, artifact)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), run.ID, m.Rank, m.Name, m.Accuracy, m.Precision, m.Recall, m.F1,
			m.TrainingSeconds, m.Artifact,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert model %s", m.Name)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// ListRuns returns the most recent runs first, without model rows.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, dataset, samples, features, best, best_accuracy, fastest, fastest_seconds
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

// GetRun loads a run with its model rows ordered by rank.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, dataset, samples, features, best, best_accuracy, fastest, fastest_seconds
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(err, "sqlite: run %s not found", id)
		}
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT rank, name, accuracy, precision_score, recall, f1, training_seconds, artifact
		 FROM run_models WHERE run_id = ? ORDER BY rank`, id)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list models of %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		var m ModelRun
		if err := rows.Scan(&m.Rank, &m.Name, &m.Accuracy, &m.Precision, &m.Recall, &m.F1,
			&m.TrainingSeconds, &m.Artifact); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan model")
		}
		run.Models = append(run.Models, m)
	}
	return run, eris.Wrap(rows.Err(), "sqlite: iterate models")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var run Run
	var started, finished string
	if err := sc.Scan(&run.ID, &started, &finished, &run.Dataset, &run.Samples, &run.Features,
		&run.Best, &run.BestAccuracy, &run.Fastest, &run.FastestSeconds); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	var err error
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, eris.Wrap(err, "sqlite: parse started_at")
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return nil, eris.Wrap(err, "sqlite: parse finished_at")
	}
	return &run, nil
}

// timeLayout is fixed width so that text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
