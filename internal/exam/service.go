// Package exam implements the exam lifecycle: assembling randomized exams,
// accepting a single submission per exam, and reporting results.
package exam

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/exambank/internal/feedback"
	"github.com/pavelanni/exambank/internal/model"
	"github.com/pavelanni/exambank/internal/scoring"
	"github.com/pavelanni/exambank/internal/store"
)

// tipConcurrency bounds parallel study tip requests for one result.
const tipConcurrency = 4

// StudyTipper suggests what to review after an incorrect answer.
type StudyTipper interface {
	StudyTip(ctx context.Context, lang string, df feedback.DetailedFeedback) (string, error)
}

// Service runs exam lifecycle operations against a store.
type Service struct {
	store *store.Store
	cfg   model.ExamConfig
	tips  StudyTipper
	now   func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewService creates a Service. A nil rng is replaced by a randomly seeded one.
func NewService(st *store.Store, cfg model.ExamConfig, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Service{store: st, cfg: cfg, rng: rng, now: time.Now}
}

// SetStudyTipper enables study tips on result feedback.
func (s *Service) SetStudyTipper(t StudyTipper) {
	s.tips = t
}

// AssembleRequest describes an exam to generate.
type AssembleRequest struct {
	SubjectID int64
	GradeID   int64
	Count     int
	OwnerID   *int64
}

// Assemble creates a new pending exam with req.Count questions drawn at
// random from the subject and grade pool.
func (s *Service) Assemble(ctx context.Context, req AssembleRequest) (*model.ExamView, error) {
	if req.Count <= 0 {
		return nil, ErrInvalidCount
	}
	if _, err := s.store.GetSubject(ctx, req.SubjectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSubjectNotFound
		}
		return nil, internal("load subject", err)
	}
	if _, err := s.store.GetGrade(ctx, req.GradeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrGradeNotFound
		}
		return nil, internal("load grade", err)
	}

	pool, err := s.store.QuestionPool(ctx, req.SubjectID, req.GradeID)
	if err != nil {
		return nil, internal("load question pool", err)
	}
	if len(pool) < req.Count {
		return nil, &InsufficientQuestionsError{Available: len(pool), Requested: req.Count}
	}

	s.mu.Lock()
	selected := Select(pool, req.Count, s.rng)
	s.mu.Unlock()

	var examID int64
	err = s.store.InTx(ctx, func(tx *store.Tx) error {
		var err error
		examID, err = tx.CreateExam(ctx, model.Exam{
			UserID:      req.OwnerID,
			SubjectID:   req.SubjectID,
			GradeID:     req.GradeID,
			GeneratedAt: s.now(),
		}, selected)
		return err
	})
	if err != nil {
		return nil, internal("create exam", err)
	}
	slog.Info("exam assembled", "exam_id", examID, "subject_id", req.SubjectID, "grade_id", req.GradeID, "questions", req.Count)

	view, err := s.store.ExamView(ctx, examID)
	if err != nil {
		return nil, internal("load exam", err)
	}
	return view, nil
}

// ExamForTaking returns a pending exam in its stored order.
func (s *Service) ExamForTaking(ctx context.Context, examID, callerID int64) (*model.ExamView, error) {
	e, err := s.store.GetExam(ctx, examID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, internal("load exam", err)
	}
	if e.OwnedByOther(callerID) {
		return nil, ErrNotExamOwner
	}
	if e.Status == model.StatusCompleted {
		return nil, ErrAlreadyCompleted
	}
	view, err := s.store.ExamView(ctx, examID)
	if err != nil {
		return nil, internal("load exam", err)
	}
	return view, nil
}

// SubmitResult is the outcome of a successful submission.
type SubmitResult struct {
	ResultID         int64                       `json:"result_id"`
	ExamID           int64                       `json:"exam_id"`
	Score            float64                     `json:"score"`
	TotalQuestions   int                         `json:"total_questions"`
	CorrectQuestions int                         `json:"correct_questions"`
	Feedback         string                      `json:"feedback"`
	PerQuestion      []feedback.DetailedFeedback `json:"per_question_feedback"`
}

// Submit scores sub and completes the exam. Completing the exam and storing
// its result happen in one transaction, and only one submission per exam
// can succeed.
func (s *Service) Submit(ctx context.Context, examID, callerID int64, sub model.Submission) (*SubmitResult, error) {
	var (
		res       scoring.Result
		questions []model.Question
		general   string
		resultID  int64
	)
	now := s.now()

	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		e, err := tx.GetExam(ctx, examID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrExamNotFound
			}
			return internal("load exam", err)
		}
		if e.OwnedByOther(callerID) {
			return ErrNotExamOwner
		}
		if e.Status == model.StatusCompleted {
			return ErrAlreadyCompleted
		}

		ok, err := tx.CompleteExam(ctx, examID, callerID, now)
		if err != nil {
			return internal("complete exam", err)
		}
		if !ok {
			return ErrAlreadyCompleted
		}

		questions, err = tx.ExamQuestions(ctx, examID)
		if err != nil {
			return internal("load answer key", err)
		}
		res, err = scoring.Score(keyedQuestions(questions), sub)
		if err != nil {
			return internal("score exam", err)
		}
		general = feedback.General(ctx, res.Score)

		resultID, err = tx.InsertResult(ctx, model.ExamResult{
			UserID:           callerID,
			ExamID:           examID,
			Score:            res.Score,
			TotalQuestions:   res.Total,
			CorrectQuestions: res.CorrectCount,
			Answers:          sub,
			Feedback:         general,
			SubmittedAt:      now,
		})
		if err != nil {
			if store.IsUniqueViolation(err) {
				return ErrAlreadyCompleted
			}
			return internal("store result", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("exam submitted", "exam_id", examID, "user_id", callerID, "result_id", resultID, "score", res.Score)

	return &SubmitResult{
		ResultID:         resultID,
		ExamID:           examID,
		Score:            res.Score,
		TotalQuestions:   res.Total,
		CorrectQuestions: res.CorrectCount,
		Feedback:         general,
		PerQuestion:      feedback.Detailed(ctx, res.PerQuestion, optionsByQuestion(questions)),
	}, nil
}

// ResultFeedback is the detailed view of a stored result.
type ResultFeedback struct {
	ResultID         int64                       `json:"result_id"`
	ExamID           int64                       `json:"exam_id"`
	SubjectName      string                      `json:"subject_name"`
	GradeLevel       string                      `json:"grade_level"`
	Score            float64                     `json:"score"`
	Band             string                      `json:"band"`
	TotalQuestions   int                         `json:"total_questions"`
	CorrectQuestions int                         `json:"correct_questions"`
	GeneralFeedback  string                      `json:"general_feedback"`
	SubmittedAt      time.Time                   `json:"submitted_at"`
	PerQuestion      []feedback.DetailedFeedback `json:"per_question_feedback"`
}

// ResultFeedback rebuilds the feedback of a stored result for its owner.
func (s *Service) ResultFeedback(ctx context.Context, resultID, callerID int64) (*ResultFeedback, error) {
	r, err := s.store.GetResult(ctx, resultID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrResultNotFound
		}
		return nil, internal("load result", err)
	}
	if r.UserID != callerID {
		return nil, ErrNotResultOwner
	}

	e, err := s.store.GetExam(ctx, r.ExamID)
	if err != nil {
		return nil, internal("load exam", err)
	}
	subject, err := s.store.GetSubject(ctx, e.SubjectID)
	if err != nil {
		return nil, internal("load subject", err)
	}
	grade, err := s.store.GetGrade(ctx, e.GradeID)
	if err != nil {
		return nil, internal("load grade", err)
	}
	questions, err := s.store.ExamQuestions(ctx, r.ExamID)
	if err != nil {
		return nil, internal("load answer key", err)
	}
	res, err := scoring.Score(keyedQuestions(questions), r.Answers)
	if err != nil {
		return nil, internal("score exam", err)
	}

	detailed := feedback.Detailed(ctx, res.PerQuestion, optionsByQuestion(questions))
	s.addStudyTips(ctx, detailed)

	return &ResultFeedback{
		ResultID:         r.ID,
		ExamID:           r.ExamID,
		SubjectName:      subject.Name,
		GradeLevel:       grade.Level,
		Score:            r.Score,
		Band:             feedback.BandFor(r.Score).Letter(),
		TotalQuestions:   r.TotalQuestions,
		CorrectQuestions: r.CorrectQuestions,
		GeneralFeedback:  feedback.General(ctx, r.Score),
		SubmittedAt:      r.SubmittedAt,
		PerQuestion:      detailed,
	}, nil
}

// addStudyTips fills in study tips for incorrect answers. Failures are
// logged and leave the tip empty.
func (s *Service) addStudyTips(ctx context.Context, detailed []feedback.DetailedFeedback) {
	if s.tips == nil {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tipConcurrency)
	for i := range detailed {
		if detailed[i].IsCorrect {
			continue
		}
		g.Go(func() error {
			tip, err := s.tips.StudyTip(gctx, s.cfg.Lang, detailed[i])
			if err != nil {
				slog.Warn("study tip failed", "question_id", detailed[i].QuestionID, "error", err)
				return nil
			}
			detailed[i].StudyTip = tip
			return nil
		})
	}
	_ = g.Wait()
}

// PerformanceReport lists a user's results, newest first. Users may see
// their own results; administrators may see anyone's.
func (s *Service) PerformanceReport(ctx context.Context, caller *model.User, userID int64) ([]model.ResultSummary, error) {
	if caller == nil || (caller.ID != userID && caller.Role != model.UserRoleAdmin) {
		return nil, ErrReportForbidden
	}
	if caller.ID != userID {
		u, err := s.store.GetUserByID(ctx, userID)
		if err != nil {
			return nil, internal("load user", err)
		}
		if u == nil {
			return nil, ErrUserNotFound
		}
	}
	results, err := s.store.ListResults(ctx, userID)
	if err != nil {
		return nil, internal("list results", err)
	}
	return results, nil
}

func keyedQuestions(questions []model.Question) []scoring.KeyedQuestion {
	out := make([]scoring.KeyedQuestion, 0, len(questions))
	for _, q := range questions {
		out = append(out, scoring.KeyedQuestion{ID: q.ID, Text: q.Text, Options: q.Options})
	}
	return out
}

func optionsByQuestion(questions []model.Question) map[int64][]model.AnswerOption {
	out := make(map[int64][]model.AnswerOption, len(questions))
	for _, q := range questions {
		out[q.ID] = q.Options
	}
	return out
}
