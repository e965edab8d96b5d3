package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pavelanni/exambank/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s *Store, username string) int64 {
	t.Helper()
	id, err := s.CreateUser(context.Background(), model.User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: "x",
		Role:         model.UserRoleStudent,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("createTestUser: %v", err)
	}
	return id
}

// insertTestQuestion stores a single-choice question whose first option is correct.
func insertTestQuestion(t *testing.T, s *Store, text string, subjectID, gradeID int64) int64 {
	t.Helper()
	q := model.Question{Text: text, SubjectID: subjectID, GradeID: gradeID, Type: model.QuestionSingleChoice}
	for i := 0; i < model.OptionsPerQuestion; i++ {
		q.Options = append(q.Options, model.AnswerOption{Text: text + string(rune('a'+i)), IsCorrect: i == 0})
	}
	id, err := s.InsertQuestion(context.Background(), q)
	if err != nil {
		t.Fatalf("insertTestQuestion: %v", err)
	}
	return id
}

func subjectAndGrade(t *testing.T, s *Store, subject, grade string) (int64, int64) {
	t.Helper()
	ctx := context.Background()
	subjectID, err := s.EnsureSubject(ctx, subject)
	if err != nil {
		t.Fatalf("EnsureSubject: %v", err)
	}
	gradeID, err := s.EnsureGrade(ctx, grade)
	if err != nil {
		t.Fatalf("EnsureGrade: %v", err)
	}
	return subjectID, gradeID
}

func createTestExam(t *testing.T, s *Store, owner *int64, subjectID, gradeID int64, questionIDs []int64) int64 {
	t.Helper()
	var id int64
	err := s.InTx(context.Background(), func(tx *Tx) error {
		var err error
		id, err = tx.CreateExam(context.Background(), model.Exam{
			UserID:      owner,
			SubjectID:   subjectID,
			GradeID:     gradeID,
			GeneratedAt: time.Now(),
		}, questionIDs)
		return err
	})
	if err != nil {
		t.Fatalf("createTestExam: %v", err)
	}
	return id
}

func TestSubjectsAndGrades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.EnsureSubject(ctx, "Math")
	if err != nil {
		t.Fatalf("EnsureSubject: %v", err)
	}
	again, err := s.EnsureSubject(ctx, "Math")
	if err != nil {
		t.Fatalf("EnsureSubject again: %v", err)
	}
	if first != again {
		t.Errorf("EnsureSubject created a duplicate: %d vs %d", first, again)
	}

	sub, err := s.GetSubject(ctx, first)
	if err != nil {
		t.Fatalf("GetSubject: %v", err)
	}
	if sub.Name != "Math" {
		t.Errorf("expected name 'Math', got %q", sub.Name)
	}
	if _, err := s.GetSubject(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	gradeID, err := s.EnsureGrade(ctx, "5")
	if err != nil {
		t.Fatalf("EnsureGrade: %v", err)
	}
	g, err := s.GetGrade(ctx, gradeID)
	if err != nil {
		t.Fatalf("GetGrade: %v", err)
	}
	if g.Level != "5" {
		t.Errorf("expected level '5', got %q", g.Level)
	}
	if _, err := s.GetGrade(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if _, err := s.EnsureSubject(ctx, "Art"); err != nil {
		t.Fatalf("EnsureSubject: %v", err)
	}
	subjects, err := s.ListSubjects(ctx)
	if err != nil {
		t.Fatalf("ListSubjects: %v", err)
	}
	if len(subjects) != 2 || subjects[0].Name != "Art" {
		t.Errorf("expected [Art Math], got %+v", subjects)
	}
	grades, err := s.ListGrades(ctx)
	if err != nil {
		t.Fatalf("ListGrades: %v", err)
	}
	if len(grades) != 1 {
		t.Errorf("expected 1 grade, got %d", len(grades))
	}
}

func TestQuestionCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	subjectID, gradeID := subjectAndGrade(t, s, "Math", "5")

	count, err := s.QuestionCount(ctx)
	if err != nil {
		t.Fatalf("QuestionCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 questions, got %d", count)
	}

	id := insertTestQuestion(t, s, "What is 2+2?", subjectID, gradeID)
	q, err := s.GetQuestion(ctx, id)
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	if q.Text != "What is 2+2?" {
		t.Errorf("expected text 'What is 2+2?', got %q", q.Text)
	}
	if q.Type != model.QuestionSingleChoice {
		t.Errorf("expected type single-choice, got %q", q.Type)
	}
	if len(q.Options) != model.OptionsPerQuestion {
		t.Fatalf("expected %d options, got %d", model.OptionsPerQuestion, len(q.Options))
	}
	if !q.Options[0].IsCorrect || q.Options[1].IsCorrect {
		t.Errorf("answer key not stored correctly: %+v", q.Options)
	}

	if _, err := s.GetQuestion(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	count, _ = s.QuestionCount(ctx)
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}
}

func TestQuestionPool(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	math5, grade5 := subjectAndGrade(t, s, "Math", "5")
	art, grade6 := subjectAndGrade(t, s, "Art", "6")

	insertTestQuestion(t, s, "Q1", math5, grade5)
	insertTestQuestion(t, s, "Q2", math5, grade5)
	insertTestQuestion(t, s, "Q3", math5, grade6)
	insertTestQuestion(t, s, "Q4", art, grade5)

	tests := []struct {
		name      string
		subjectID int64
		gradeID   int64
		wantCount int
	}{
		{"math grade 5", math5, grade5, 2},
		{"math grade 6", math5, grade6, 1},
		{"art grade 5", art, grade5, 1},
		{"art grade 6", art, grade6, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := s.QuestionPool(ctx, tt.subjectID, tt.gradeID)
			if err != nil {
				t.Fatalf("QuestionPool: %v", err)
			}
			if len(ids) != tt.wantCount {
				t.Errorf("expected %d questions, got %d", tt.wantCount, len(ids))
			}
		})
	}
}

func TestExamLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	subjectID, gradeID := subjectAndGrade(t, s, "Math", "5")
	userID := createTestUser(t, s, "alice")

	q1 := insertTestQuestion(t, s, "Q1", subjectID, gradeID)
	q2 := insertTestQuestion(t, s, "Q2", subjectID, gradeID)
	q3 := insertTestQuestion(t, s, "Q3", subjectID, gradeID)

	examID := createTestExam(t, s, nil, subjectID, gradeID, []int64{q3, q1, q2})

	e, err := s.GetExam(ctx, examID)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if e.Status != model.StatusPending {
		t.Errorf("expected status pending, got %q", e.Status)
	}
	if e.UserID != nil || e.CompletedAt != nil {
		t.Errorf("new exam should have no owner and no completion time: %+v", e)
	}

	view, err := s.ExamView(ctx, examID)
	if err != nil {
		t.Fatalf("ExamView: %v", err)
	}
	if view.SubjectName != "Math" || view.GradeLevel != "5" {
		t.Errorf("unexpected labels %q/%q", view.SubjectName, view.GradeLevel)
	}
	wantOrder := []int64{q3, q1, q2}
	if len(view.Questions) != len(wantOrder) {
		t.Fatalf("expected %d questions, got %d", len(wantOrder), len(view.Questions))
	}
	for i, qv := range view.Questions {
		if qv.ID != wantOrder[i] || qv.Order != i+1 {
			t.Errorf("position %d: got question %d order %d, want %d", i, qv.ID, qv.Order, wantOrder[i])
		}
		if len(qv.Options) != model.OptionsPerQuestion {
			t.Errorf("question %d: expected %d options, got %d", qv.ID, model.OptionsPerQuestion, len(qv.Options))
		}
	}

	questions, err := s.ExamQuestions(ctx, examID)
	if err != nil {
		t.Fatalf("ExamQuestions: %v", err)
	}
	if questions[0].ID != q3 || !questions[0].Options[0].IsCorrect {
		t.Errorf("ExamQuestions lost order or answer key: %+v", questions[0])
	}

	// Complete: the first transition wins, the second is a no-op.
	var completed, again bool
	err = s.InTx(ctx, func(tx *Tx) error {
		var err error
		completed, err = tx.CompleteExam(ctx, examID, userID, time.Now())
		if err != nil {
			return err
		}
		again, err = tx.CompleteExam(ctx, examID, userID, time.Now())
		return err
	})
	if err != nil {
		t.Fatalf("CompleteExam: %v", err)
	}
	if !completed || again {
		t.Errorf("expected first completion to win only, got %v then %v", completed, again)
	}

	e, _ = s.GetExam(ctx, examID)
	if e.Status != model.StatusCompleted || e.CompletedAt == nil {
		t.Errorf("exam not completed: %+v", e)
	}
	if e.UserID == nil || *e.UserID != userID {
		t.Errorf("expected ownerless exam to be assigned to %d, got %v", userID, e.UserID)
	}

	if _, err := s.GetExam(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.ExamView(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCompleteExamKeepsOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	subjectID, gradeID := subjectAndGrade(t, s, "Math", "5")
	owner := createTestUser(t, s, "alice")
	other := createTestUser(t, s, "bob")
	q := insertTestQuestion(t, s, "Q1", subjectID, gradeID)

	examID := createTestExam(t, s, &owner, subjectID, gradeID, []int64{q})
	err := s.InTx(ctx, func(tx *Tx) error {
		_, err := tx.CompleteExam(ctx, examID, other, time.Now())
		return err
	})
	if err != nil {
		t.Fatalf("CompleteExam: %v", err)
	}
	e, _ := s.GetExam(ctx, examID)
	if e.UserID == nil || *e.UserID != owner {
		t.Errorf("owner overwritten: %v", e.UserID)
	}
}

func TestInTxRollback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	subjectID, gradeID := subjectAndGrade(t, s, "Math", "5")
	q := insertTestQuestion(t, s, "Q1", subjectID, gradeID)

	boom := errors.New("boom")
	var examID int64
	err := s.InTx(ctx, func(tx *Tx) error {
		var err error
		examID, err = tx.CreateExam(ctx, model.Exam{SubjectID: subjectID, GradeID: gradeID, GeneratedAt: time.Now()}, []int64{q})
		if err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := s.GetExam(ctx, examID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected rolled back exam to be gone, got %v", err)
	}
}

func TestResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	subjectID, gradeID := subjectAndGrade(t, s, "Math", "5")
	alice := createTestUser(t, s, "alice")
	bob := createTestUser(t, s, "bob")
	q := insertTestQuestion(t, s, "Q1", subjectID, gradeID)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	insert := func(userID, examID int64, score float64, at time.Time) (int64, error) {
		var id int64
		err := s.InTx(ctx, func(tx *Tx) error {
			var err error
			id, err = tx.InsertResult(ctx, model.ExamResult{
				UserID:           userID,
				ExamID:           examID,
				Score:            score,
				TotalQuestions:   1,
				CorrectQuestions: int(score / 100),
				Answers:          model.Submission{{QuestionID: q, SelectedAnswerIDs: []int64{3, 1}}},
				Feedback:         "feedback",
				SubmittedAt:      at,
			})
			return err
		})
		return id, err
	}

	e1 := createTestExam(t, s, &alice, subjectID, gradeID, []int64{q})
	e2 := createTestExam(t, s, &alice, subjectID, gradeID, []int64{q})
	e3 := createTestExam(t, s, &bob, subjectID, gradeID, []int64{q})

	r1, err := insert(alice, e1, 0, base)
	if err != nil {
		t.Fatalf("InsertResult: %v", err)
	}
	r2, err := insert(alice, e2, 100, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("InsertResult: %v", err)
	}
	if _, err := insert(bob, e3, 100, base.Add(2*time.Hour)); err != nil {
		t.Fatalf("InsertResult: %v", err)
	}

	// A second result for the same exam violates the unique constraint.
	if _, err := insert(alice, e1, 100, base); err == nil {
		t.Error("expected duplicate result to be rejected")
	}

	got, err := s.GetResult(ctx, r1)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got.ExamID != e1 || got.UserID != alice || got.Feedback != "feedback" {
		t.Errorf("unexpected result %+v", got)
	}
	if len(got.Answers) != 1 || len(got.Answers[0].SelectedAnswerIDs) != 2 || got.Answers[0].SelectedAnswerIDs[0] != 3 {
		t.Errorf("answers not stored verbatim: %+v", got.Answers)
	}
	if !got.SubmittedAt.Equal(base) {
		t.Errorf("expected submitted at %v, got %v", base, got.SubmittedAt)
	}
	if _, err := s.GetResult(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	list, err := s.ListResults(ctx, alice)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 results for alice, got %d", len(list))
	}
	if list[0].ResultID != r2 || list[1].ResultID != r1 {
		t.Errorf("expected newest first, got %d then %d", list[0].ResultID, list[1].ResultID)
	}
	if list[0].SubjectName != "Math" || list[0].GradeLevel != "5" {
		t.Errorf("unexpected labels %q/%q", list[0].SubjectName, list[0].GradeLevel)
	}

	all, err := s.ListResults(ctx, 0)
	if err != nil {
		t.Fatalf("ListResults all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 results, got %d", len(all))
	}

	export, err := s.ExportResults(ctx, bob)
	if err != nil {
		t.Fatalf("ExportResults: %v", err)
	}
	if export.Count != 1 || export.UserID != bob {
		t.Errorf("unexpected export %+v", export)
	}
}

func TestImportQuestions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	answers := func() []model.AnswerImport {
		out := make([]model.AnswerImport, model.OptionsPerQuestion)
		for i := range out {
			out[i] = model.AnswerImport{Text: string(rune('A' + i)), IsCorrect: i == 2}
		}
		return out
	}
	questions := []model.QuestionImport{
		{Text: "Q1", Subject: "Math", Grade: "5", Type: model.QuestionSingleChoice, Answers: answers()},
		{Text: "Q2", Subject: "Math", Grade: "5", Type: model.QuestionSingleChoice, Answers: answers()},
		{Text: "Q3", Subject: "Science", Grade: "6", Type: model.QuestionMultipleChoice, Answers: answers()},
	}
	if err := s.ImportQuestions(ctx, "bank.json", "abc123", questions); err != nil {
		t.Fatalf("ImportQuestions: %v", err)
	}

	count, _ := s.QuestionCount(ctx)
	if count != 3 {
		t.Errorf("expected 3 questions, got %d", count)
	}
	subjects, _ := s.ListSubjects(ctx)
	if len(subjects) != 2 {
		t.Errorf("expected subjects created on demand, got %+v", subjects)
	}
	hash, _ := s.GetImportedFileHash(ctx, "bank.json")
	if hash != "abc123" {
		t.Errorf("expected recorded hash 'abc123', got %q", hash)
	}
}

func TestImportedFileHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Missing file returns empty string.
	hash, err := s.GetImportedFileHash(ctx, "/some/path.json")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "" {
		t.Errorf("expected empty hash, got %q", hash)
	}

	if err := s.SetImportedFileHash(ctx, "/some/path.json", "abc123"); err != nil {
		t.Fatalf("SetImportedFileHash: %v", err)
	}
	hash, _ = s.GetImportedFileHash(ctx, "/some/path.json")
	if hash != "abc123" {
		t.Errorf("expected 'abc123', got %q", hash)
	}

	// Update existing.
	if err := s.SetImportedFileHash(ctx, "/some/path.json", "def456"); err != nil {
		t.Fatalf("SetImportedFileHash update: %v", err)
	}
	hash, _ = s.GetImportedFileHash(ctx, "/some/path.json")
	if hash != "def456" {
		t.Errorf("expected 'def456', got %q", hash)
	}
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.GetUserByUsername(ctx, "nobody")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil for missing user, got %+v", u)
	}

	id := createTestUser(t, s, "alice")
	u, err = s.GetUserByID(ctx, id)
	if err != nil || u == nil {
		t.Fatalf("GetUserByID: %v, %v", u, err)
	}
	if u.Username != "alice" || u.Role != model.UserRoleStudent || !u.Active {
		t.Errorf("unexpected user %+v", u)
	}

	if _, err := s.CreateUser(ctx, model.User{Username: "alice", PasswordHash: "x", Role: model.UserRoleStudent}); err == nil {
		t.Error("expected duplicate username to be rejected")
	}

	if err := s.SetUserActive(ctx, id, false); err != nil {
		t.Fatalf("SetUserActive: %v", err)
	}
	u, _ = s.GetUserByUsername(ctx, "alice")
	if u.Active {
		t.Error("expected user to be disabled")
	}
	if err := s.SetUserActive(ctx, 9999, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	count, _ := s.UserCount(ctx)
	if count != 1 {
		t.Errorf("expected 1 user, got %d", count)
	}
	users, _ := s.ListUsers(ctx)
	if len(users) != 1 {
		t.Errorf("expected 1 user, got %d", len(users))
	}
}

func TestIsUniqueViolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createTestUser(t, s, "alice")

	_, err := s.CreateUser(ctx, model.User{Username: "alice", PasswordHash: "x", Role: model.UserRoleStudent})
	if !IsUniqueViolation(err) {
		t.Errorf("expected unique violation, got %v", err)
	}
	if IsUniqueViolation(errors.New("other")) {
		t.Error("plain error reported as unique violation")
	}
}
