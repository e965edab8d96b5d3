package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavelanni/exambank/internal/model"
)

// CreateExam inserts a pending exam and its ordered questions. Question order
// is the position in questionIDs, starting at 1.
func (t *Tx) CreateExam(ctx context.Context, e model.Exam, questionIDs []int64) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO exams (user_id, subject_id, grade_id, status, generated_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		e.UserID, e.SubjectID, e.GradeID, model.StatusPending, e.GeneratedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert exam: %w", err)
	}
	for i, qID := range questionIDs {
		_, err := t.tx.ExecContext(ctx,
			`INSERT INTO exam_questions (exam_id, question_id, question_order) VALUES ($1, $2, $3)`,
			id, qID, i+1,
		)
		if err != nil {
			return 0, fmt.Errorf("insert exam question: %w", err)
		}
	}
	return id, nil
}

// GetExam returns an exam by ID.
func (t *Tx) GetExam(ctx context.Context, id int64) (model.Exam, error) {
	return getExam(ctx, t.tx, id)
}

// GetExam returns an exam by ID.
func (s *Store) GetExam(ctx context.Context, id int64) (model.Exam, error) {
	return getExam(ctx, s.db, id)
}

func getExam(ctx context.Context, q querier, id int64) (model.Exam, error) {
	var e model.Exam
	err := q.QueryRowContext(ctx,
		`SELECT id, user_id, subject_id, grade_id, status, generated_at, completed_at FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.UserID, &e.SubjectID, &e.GradeID, &e.Status, &e.GeneratedAt, &e.CompletedAt)
	return e, notFound(err)
}

// CompleteExam moves a pending exam to completed and assigns it to userID if it
// has no owner yet. It reports false when the exam was not pending, which
// means another submission got there first.
func (t *Tx) CompleteExam(ctx context.Context, id, userID int64, at time.Time) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE exams SET status = $1, completed_at = $2, user_id = COALESCE(user_id, $3)
		 WHERE id = $4 AND status = $5`,
		model.StatusCompleted, at.UTC(), userID, id, model.StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("complete exam: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ExamQuestions returns the questions of an exam in exam order, including
// their answer keys.
func (t *Tx) ExamQuestions(ctx context.Context, examID int64) ([]model.Question, error) {
	return examQuestions(ctx, t.tx, examID)
}

// ExamQuestions returns the questions of an exam in exam order, including
// their answer keys.
func (s *Store) ExamQuestions(ctx context.Context, examID int64) ([]model.Question, error) {
	return examQuestions(ctx, s.db, examID)
}

func examQuestions(ctx context.Context, q querier, examID int64) ([]model.Question, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT q.id, q.text, q.subject_id, q.grade_id, q.type
		 FROM exam_questions eq JOIN questions q ON q.id = eq.question_id
		 WHERE eq.exam_id = $1 ORDER BY eq.question_order`, examID,
	)
	if err != nil {
		return nil, err
	}
	var questions []model.Question
	for rows.Next() {
		var qu model.Question
		if err := rows.Scan(&qu.ID, &qu.Text, &qu.SubjectID, &qu.GradeID, &qu.Type); err != nil {
			rows.Close()
			return nil, err
		}
		questions = append(questions, qu)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	opts, err := optionsFor(ctx, q,
		`SELECT o.id, o.question_id, o.text, o.is_correct
		 FROM answer_options o JOIN exam_questions eq ON eq.question_id = o.question_id
		 WHERE eq.exam_id = $1 ORDER BY o.id`, examID,
	)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		questions[i].Options = opts[questions[i].ID]
	}
	return questions, nil
}

// ExamView builds the learner-facing view of an exam. Answer keys are not
// included.
func (s *Store) ExamView(ctx context.Context, examID int64) (*model.ExamView, error) {
	var v model.ExamView
	err := s.db.QueryRowContext(ctx,
		`SELECT e.id, e.status, e.generated_at, s.name, g.level
		 FROM exams e
		 JOIN subjects s ON s.id = e.subject_id
		 JOIN grades g ON g.id = e.grade_id
		 WHERE e.id = $1`, examID,
	).Scan(&v.ExamID, &v.Status, &v.GeneratedAt, &v.SubjectName, &v.GradeLevel)
	if err != nil {
		return nil, notFound(err)
	}
	questions, err := examQuestions(ctx, s.db, examID)
	if err != nil {
		return nil, err
	}
	v.Questions = make([]model.QuestionView, 0, len(questions))
	for i, q := range questions {
		v.Questions = append(v.Questions, q.View(i+1))
	}
	return &v, nil
}

// InsertResult stores the result of a submitted exam. At most one result can
// exist per exam.
func (t *Tx) InsertResult(ctx context.Context, r model.ExamResult) (int64, error) {
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return 0, fmt.Errorf("marshal answers: %w", err)
	}
	var id int64
	err = t.tx.QueryRowContext(ctx,
		`INSERT INTO exam_results (user_id, exam_id, score, total_questions, correct_questions, user_answers, feedback, submission_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		r.UserID, r.ExamID, r.Score, r.TotalQuestions, r.CorrectQuestions, string(answers), r.Feedback, r.SubmittedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert result: %w", err)
	}
	return id, nil
}

// GetResult returns a stored exam result by ID.
func (s *Store) GetResult(ctx context.Context, id int64) (model.ExamResult, error) {
	var r model.ExamResult
	var answers string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, exam_id, score, total_questions, correct_questions, user_answers, feedback, submission_date
		 FROM exam_results WHERE id = $1`, id,
	).Scan(&r.ID, &r.UserID, &r.ExamID, &r.Score, &r.TotalQuestions, &r.CorrectQuestions, &answers, &r.Feedback, &r.SubmittedAt)
	if err != nil {
		return r, notFound(err)
	}
	if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
		return r, fmt.Errorf("unmarshal answers of result %d: %w", id, err)
	}
	return r, nil
}

// ListResults returns result summaries, newest first. A zero userID lists the
// results of all users.
func (s *Store) ListResults(ctx context.Context, userID int64) ([]model.ResultSummary, error) {
	query := `SELECT r.id, r.exam_id, r.user_id, s.name, g.level, r.score, r.correct_questions, r.total_questions, r.feedback, r.submission_date
		FROM exam_results r
		JOIN exams e ON e.id = r.exam_id
		JOIN subjects s ON s.id = e.subject_id
		JOIN grades g ON g.id = e.grade_id`
	var args []any
	if userID != 0 {
		query += ` WHERE r.user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY r.submission_date DESC, r.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := []model.ResultSummary{}
	for rows.Next() {
		var r model.ResultSummary
		if err := rows.Scan(&r.ResultID, &r.ExamID, &r.UserID, &r.SubjectName, &r.GradeLevel,
			&r.Score, &r.CorrectQuestions, &r.TotalQuestions, &r.Feedback, &r.SubmittedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
