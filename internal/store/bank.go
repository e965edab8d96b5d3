package store

import (
	"context"
	"fmt"

	"github.com/pavelanni/exambank/internal/model"
)

// GetSubject returns a subject by ID.
func (s *Store) GetSubject(ctx context.Context, id int64) (model.Subject, error) {
	var sub model.Subject
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM subjects WHERE id = $1`, id).Scan(&sub.ID, &sub.Name)
	return sub, notFound(err)
}

// GetGrade returns a grade by ID.
func (s *Store) GetGrade(ctx context.Context, id int64) (model.Grade, error) {
	var g model.Grade
	err := s.db.QueryRowContext(ctx, `SELECT id, level FROM grades WHERE id = $1`, id).Scan(&g.ID, &g.Level)
	return g, notFound(err)
}

// ListSubjects returns all subjects ordered by name.
func (s *Store) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM subjects ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subjects []model.Subject
	for rows.Next() {
		var sub model.Subject
		if err := rows.Scan(&sub.ID, &sub.Name); err != nil {
			return nil, err
		}
		subjects = append(subjects, sub)
	}
	return subjects, rows.Err()
}

// ListGrades returns all grades ordered by level.
func (s *Store) ListGrades(ctx context.Context) ([]model.Grade, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, level FROM grades ORDER BY level`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grades []model.Grade
	for rows.Next() {
		var g model.Grade
		if err := rows.Scan(&g.ID, &g.Level); err != nil {
			return nil, err
		}
		grades = append(grades, g)
	}
	return grades, rows.Err()
}

// EnsureSubject returns the ID of the subject with name, creating it if needed.
func (s *Store) EnsureSubject(ctx context.Context, name string) (int64, error) {
	return ensureNamed(ctx, s.db, "subjects", "name", name)
}

// EnsureGrade returns the ID of the grade with level, creating it if needed.
func (s *Store) EnsureGrade(ctx context.Context, level string) (int64, error) {
	return ensureNamed(ctx, s.db, "grades", "level", level)
}

// ensureNamed get-or-creates a row in a lookup table with a unique text column.
func ensureNamed(ctx context.Context, q querier, table, column, value string) (int64, error) {
	_, err := q.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1) ON CONFLICT (%s) DO NOTHING`, table, column, column),
		value,
	)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	var id int64
	err = q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT id FROM %s WHERE %s = $1`, table, column), value,
	).Scan(&id)
	return id, err
}

// InsertQuestion stores a question together with its answer options.
func (s *Store) InsertQuestion(ctx context.Context, q model.Question) (int64, error) {
	var id int64
	err := s.InTx(ctx, func(tx *Tx) error {
		var err error
		id, err = insertQuestion(ctx, tx.tx, q)
		return err
	})
	return id, err
}

func insertQuestion(ctx context.Context, q querier, question model.Question) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`INSERT INTO questions (text, subject_id, grade_id, type) VALUES ($1, $2, $3, $4) RETURNING id`,
		question.Text, question.SubjectID, question.GradeID, question.Type,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert question: %w", err)
	}
	for _, o := range question.Options {
		_, err := q.ExecContext(ctx,
			`INSERT INTO answer_options (question_id, text, is_correct) VALUES ($1, $2, $3)`,
			id, o.Text, o.IsCorrect,
		)
		if err != nil {
			return 0, fmt.Errorf("insert answer option: %w", err)
		}
	}
	return id, nil
}

// GetQuestion returns a question with its options.
func (s *Store) GetQuestion(ctx context.Context, id int64) (model.Question, error) {
	var q model.Question
	err := s.db.QueryRowContext(ctx,
		`SELECT id, text, subject_id, grade_id, type FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.Text, &q.SubjectID, &q.GradeID, &q.Type)
	if err != nil {
		return q, notFound(err)
	}
	opts, err := optionsFor(ctx, s.db,
		`SELECT id, question_id, text, is_correct FROM answer_options WHERE question_id = $1 ORDER BY id`, id)
	if err != nil {
		return q, err
	}
	q.Options = opts[id]
	return q, nil
}

// QuestionPool returns the IDs of all questions for a subject and grade.
func (s *Store) QuestionPool(ctx context.Context, subjectID, gradeID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM questions WHERE subject_id = $1 AND grade_id = $2 ORDER BY id`,
		subjectID, gradeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// QuestionCount returns the number of questions in the database.
func (s *Store) QuestionCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}

// optionsFor runs an answer option query and groups the rows by question ID.
func optionsFor(ctx context.Context, q querier, query string, args ...any) (map[int64][]model.AnswerOption, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64][]model.AnswerOption)
	for rows.Next() {
		var o model.AnswerOption
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.IsCorrect); err != nil {
			return nil, err
		}
		out[o.QuestionID] = append(out[o.QuestionID], o)
	}
	return out, rows.Err()
}
