package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pavelanni/exambank/internal/model"
)

// GetImportedFileHash returns the content hash recorded for path, or an empty
// string if the file was never imported.
func (s *Store) GetImportedFileHash(ctx context.Context, path string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT hash FROM imported_files WHERE path = $1`, path).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return hash, err
}

// SetImportedFileHash records the content hash for path.
func (s *Store) SetImportedFileHash(ctx context.Context, path, hash string) error {
	return setImportedFileHash(ctx, s.db, path, hash)
}

func setImportedFileHash(ctx context.Context, q querier, path, hash string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO imported_files (path, hash, imported_at) VALUES ($1, $2, $3)
		 ON CONFLICT (path) DO UPDATE SET hash = EXCLUDED.hash, imported_at = EXCLUDED.imported_at`,
		path, hash, time.Now().UTC(),
	)
	return err
}

// ImportQuestions stores validated questions from one file and records the
// file's hash. Either every question is stored or none is.
func (s *Store) ImportQuestions(ctx context.Context, path, hash string, questions []model.QuestionImport) error {
	return s.InTx(ctx, func(tx *Tx) error {
		for i, qi := range questions {
			subjectID, err := ensureNamed(ctx, tx.tx, "subjects", "name", qi.Subject)
			if err != nil {
				return fmt.Errorf("question %d: %w", i+1, err)
			}
			gradeID, err := ensureNamed(ctx, tx.tx, "grades", "level", qi.Grade)
			if err != nil {
				return fmt.Errorf("question %d: %w", i+1, err)
			}
			if _, err := insertQuestion(ctx, tx.tx, qi.Question(subjectID, gradeID)); err != nil {
				return fmt.Errorf("question %d: %w", i+1, err)
			}
		}
		return setImportedFileHash(ctx, tx.tx, path, hash)
	})
}
