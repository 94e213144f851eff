package repository

import (
	"database/sql"
	"errors"

	"buzzdigest/internal/model"
)

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// EnsureSchema creates the run archive table when it is missing, so the
// digester can run against a fresh database.
func (r *RunRepository) EnsureSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS digest_run (
			id           TEXT PRIMARY KEY,
			run_date     DATE NOT NULL,
			status       TEXT NOT NULL,
			summary_key  TEXT NOT NULL DEFAULT '',
			entity_count INT NOT NULL DEFAULT 0,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	return err
}

func (r *RunRepository) Save(run *model.Run) error {
	return r.db.QueryRow(`
		INSERT INTO digest_run(id, run_date, status, summary_key, entity_count)
		VALUES($1, $2, $3, $4, $5)
		RETURNING created_at
	`, run.ID, run.Date, run.Status, run.SummaryKey, run.EntityCount).Scan(&run.CreatedAt)
}

func (r *RunRepository) GetRuns(limit, offset int) ([]model.Run, error) {
	rows, err := r.db.Query(`
		SELECT id, run_date::text, status, summary_key, entity_count, created_at
		FROM digest_run
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var run model.Run
		err := rows.Scan(&run.ID, &run.Date, &run.Status, &run.SummaryKey, &run.EntityCount, &run.CreatedAt)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// LatestSuccessful returns the newest run that produced a digest, or nil
// when none has yet.
func (r *RunRepository) LatestSuccessful() (*model.Run, error) {
	var run model.Run
	err := r.db.QueryRow(`
		SELECT id, run_date::text, status, summary_key, entity_count, created_at
		FROM digest_run
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, model.RunStatusSuccess).Scan(&run.ID, &run.Date, &run.Status, &run.SummaryKey, &run.EntityCount, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *RunRepository) GetRunTotal() (int, error) {
	var total int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM digest_run`).Scan(&total)
	return total, err
}
