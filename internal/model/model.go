package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleTeacher is a teacher user role.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// QuestionType tells how many options a learner is expected to select.
type QuestionType string

const (
	QuestionSingleChoice   QuestionType = "single-choice"
	QuestionMultipleChoice QuestionType = "multiple-choice"
)

// OptionsPerQuestion is the fixed number of answer options of every question.
const OptionsPerQuestion = 5

// ExamStatus represents the lifecycle state of an exam.
type ExamStatus string

const (
	StatusPending   ExamStatus = "pending"
	StatusCompleted ExamStatus = "completed"
)

// Subject is a school subject questions are tagged with.
type Subject struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Grade is a school grade level questions are tagged with.
type Grade struct {
	ID    int64  `json:"id"`
	Level string `json:"level"`
}

// AnswerOption is one of the options of a question. IsCorrect is part of the
// answer key and must never reach a learner before scoring.
type AnswerOption struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
}

// Question represents a bank question with its answer options.
type Question struct {
	ID        int64          `json:"id"`
	Text      string         `json:"text"`
	SubjectID int64          `json:"subject_id"`
	GradeID   int64          `json:"grade_id"`
	Type      QuestionType   `json:"type"`
	Options   []AnswerOption `json:"options"`
}

// Exam is a fixed, ordered selection of questions generated for one attempt.
type Exam struct {
	ID          int64      `json:"id"`
	UserID      *int64     `json:"user_id,omitempty"`
	SubjectID   int64      `json:"subject_id"`
	GradeID     int64      `json:"grade_id"`
	Status      ExamStatus `json:"status"`
	GeneratedAt time.Time  `json:"generated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// OwnedByOther reports whether the exam is assigned to a user other than userID.
func (e Exam) OwnedByOther(userID int64) bool {
	return e.UserID != nil && *e.UserID != userID
}

// AnswerSelection is the learner's selection for one question.
type AnswerSelection struct {
	QuestionID        int64   `json:"question_id"`
	SelectedAnswerIDs []int64 `json:"selected_answer_ids"`
}

// Submission holds the learner's selections, one entry per answered question.
type Submission []AnswerSelection

// Selected returns the selection for a question, or nil if it was left unanswered.
func (s Submission) Selected(questionID int64) []int64 {
	for _, a := range s {
		if a.QuestionID == questionID {
			return a.SelectedAnswerIDs
		}
	}
	return nil
}

// ExamResult is the immutable outcome of a submitted exam.
type ExamResult struct {
	ID               int64      `json:"id"`
	UserID           int64      `json:"user_id"`
	ExamID           int64      `json:"exam_id"`
	Score            float64    `json:"score"`
	TotalQuestions   int        `json:"total_questions"`
	CorrectQuestions int        `json:"correct_questions"`
	Answers          Submission `json:"user_answers"`
	Feedback         string     `json:"feedback"`
	SubmittedAt      time.Time  `json:"submitted_at"`
}

// OptionView is an answer option as shown to a learner.
type OptionView struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// QuestionView is a question as shown to a learner, without its answer key.
type QuestionView struct {
	ID      int64        `json:"id"`
	Order   int          `json:"question_order"`
	Text    string       `json:"text"`
	Type    QuestionType `json:"type"`
	Options []OptionView `json:"answer_options"`
}

// ExamView is the exam payload returned for taking.
type ExamView struct {
	ExamID      int64          `json:"exam_id"`
	Status      ExamStatus     `json:"status"`
	SubjectName string         `json:"subject_name"`
	GradeLevel  string         `json:"grade_level"`
	GeneratedAt time.Time      `json:"generated_at"`
	Questions   []QuestionView `json:"questions"`
}

// ResultSummary is one row of a learner's performance report.
type ResultSummary struct {
	ResultID         int64     `json:"result_id"`
	ExamID           int64     `json:"exam_id"`
	UserID           int64     `json:"user_id"`
	SubjectName      string    `json:"subject_name"`
	GradeLevel       string    `json:"grade_level"`
	Score            float64   `json:"score"`
	CorrectQuestions int       `json:"correct_questions"`
	TotalQuestions   int       `json:"total_questions"`
	Feedback         string    `json:"feedback"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// ExamConfig holds runtime exam parameters set via CLI flags.
type ExamConfig struct {
	DefaultQuestions   int    // used when a request omits the question count
	Lang               string // feedback language (en, es)
	StrictSingleChoice bool   // reject single-choice imports with several correct options
	HintVariant        string // study tip prompt variant (concise, detailed)
}

// View returns the learner-facing form of the question at the given position.
// Correctness flags are dropped.
func (q Question) View(order int) QuestionView {
	v := QuestionView{
		ID:      q.ID,
		Order:   order,
		Text:    q.Text,
		Type:    q.Type,
		Options: make([]OptionView, 0, len(q.Options)),
	}
	for _, o := range q.Options {
		v.Options = append(v.Options, OptionView{ID: o.ID, Text: o.Text})
	}
	return v
}
