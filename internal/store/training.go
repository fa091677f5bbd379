package store

import (
	"database/sql"
	"fmt"
	"io"

	"github.com/ayusman/irplan/internal/gesture"
)

// TrainingRepository stores the labeled frequency magnitudes the shake
// classifier is trained on. It implements gesture.CorpusSource.
type TrainingRepository struct {
	db *sql.DB
}

var _ gesture.CorpusSource = (*TrainingRepository)(nil)

// Training returns the training repository for this store.
func (s *Store) Training() *TrainingRepository {
	return &TrainingRepository{db: s.db}
}

// Append adds values to the end of a category in a single transaction.
func (r *TrainingRepository) Append(category string, values []float64) error {
	if category == "" {
		return fmt.Errorf("category is required")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRow(
		`SELECT COALESCE(MAX(seq) + 1, 0) FROM training_samples WHERE category = ?`,
		category,
	).Scan(&next)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO training_samples (category, seq, value) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, v := range values {
		if _, err := stmt.Exec(category, next+i, v); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Values returns every value of a category in insertion order.
func (r *TrainingRepository) Values(category string) ([]float64, error) {
	rows, err := r.db.Query(
		`SELECT value FROM training_samples WHERE category = ? ORDER BY seq`,
		category,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return values, nil
}

// Count returns the number of values stored for a category.
func (r *TrainingRepository) Count(category string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM training_samples WHERE category = ?`, category).Scan(&n)
	return n, err
}

// Categories returns the categories that have at least one value, sorted.
func (r *TrainingRepository) Categories() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT category FROM training_samples ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes every value of a category.
func (r *TrainingRepository) Delete(category string) error {
	_, err := r.db.Exec(`DELETE FROM training_samples WHERE category = ?`, category)
	return err
}

// ImportCSV appends the values of a training file (a header line, then one
// value per line) to a category and returns how many were stored.
func (r *TrainingRepository) ImportCSV(category string, src io.Reader) (int, error) {
	values, err := gesture.ReadValues(src)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", category, err)
	}

	if err := r.Append(category, values); err != nil {
		return 0, fmt.Errorf("store %s: %w", category, err)
	}

	return len(values), nil
}
