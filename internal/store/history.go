package store

import (
	"database/sql"
	"errors"

	"github.com/ayusman/signstream/internal/prediction"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// HistoryRepository provides access to the durable prediction history.
// It implements prediction.HistoryLog.
type HistoryRepository struct {
	db *sql.DB
}

// History returns the history repository for this store.
func (s *Store) History() *HistoryRepository {
	return &HistoryRepository{db: s.db}
}

// Append inserts a history entry.
func (r *HistoryRepository) Append(e prediction.Entry) error {
	_, err := r.db.Exec(
		`INSERT INTO history (id, text, confidence, processing_time_ms, captured_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Text, e.Confidence, e.ProcessingTimeMs, e.CapturedAt,
	)
	return err
}

// Recent retrieves the most recent entries, newest first.
func (r *HistoryRepository) Recent(limit int) ([]prediction.Entry, error) {
	if limit < 1 {
		limit = prediction.DefaultHistoryCapacity
	}

	rows, err := r.db.Query(
		`SELECT id, text, confidence, processing_time_ms, captured_at
		 FROM history ORDER BY captured_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []prediction.Entry
	for rows.Next() {
		var e prediction.Entry
		if err := rows.Scan(&e.ID, &e.Text, &e.Confidence, &e.ProcessingTimeMs, &e.CapturedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// GetByID retrieves a single entry.
func (r *HistoryRepository) GetByID(id string) (*prediction.Entry, error) {
	e := &prediction.Entry{}

	err := r.db.QueryRow(
		`SELECT id, text, confidence, processing_time_ms, captured_at
		 FROM history WHERE id = ?`,
		id,
	).Scan(&e.ID, &e.Text, &e.Confidence, &e.ProcessingTimeMs, &e.CapturedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return e, nil
}

// Clear truncates the history log.
func (r *HistoryRepository) Clear() error {
	_, err := r.db.Exec(`DELETE FROM history`)
	return err
}
