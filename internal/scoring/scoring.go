// Package scoring compares a learner's selections against an exam's answer key.
package scoring

import (
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/pavelanni/exambank/internal/model"
)

var (
	// ErrNoQuestions is returned when an exam has no questions to score.
	ErrNoQuestions = errors.New("exam has no questions")
	// ErrMissingAnswerKey is returned when a question has no correct option.
	ErrMissingAnswerKey = errors.New("question has no correct answer")
)

// KeyedQuestion is a question of an exam together with its answer key.
type KeyedQuestion struct {
	ID      int64
	Text    string
	Options []model.AnswerOption
}

// QuestionVerdict is the per-question outcome of scoring.
type QuestionVerdict struct {
	QuestionID        int64   `json:"question_id"`
	QuestionText      string  `json:"question_text"`
	IsCorrect         bool    `json:"is_correct"`
	CorrectAnswerIDs  []int64 `json:"correct_answer_ids"`
	SelectedAnswerIDs []int64 `json:"selected_answer_ids"`
}

// Result is the aggregate outcome of scoring one submission.
type Result struct {
	Score        float64           `json:"score"`
	CorrectCount int               `json:"correct_questions"`
	Total        int               `json:"total_questions"`
	PerQuestion  []QuestionVerdict `json:"per_question"`
}

// Score evaluates sub against questions in their exam order. A question is
// correct only when the selected ids equal the correct ids as sets.
func Score(questions []KeyedQuestion, sub model.Submission) (Result, error) {
	if len(questions) == 0 {
		return Result{}, ErrNoQuestions
	}

	res := Result{
		Total:       len(questions),
		PerQuestion: make([]QuestionVerdict, 0, len(questions)),
	}
	for _, q := range questions {
		correct := AnswerKey(q.Options)
		if len(correct) == 0 {
			return Result{}, fmt.Errorf("question %d: %w", q.ID, ErrMissingAnswerKey)
		}
		selected := normalize(sub.Selected(q.ID))

		ok := slices.Equal(correct, selected)
		if ok {
			res.CorrectCount++
		}
		res.PerQuestion = append(res.PerQuestion, QuestionVerdict{
			QuestionID:        q.ID,
			QuestionText:      q.Text,
			IsCorrect:         ok,
			CorrectAnswerIDs:  correct,
			SelectedAnswerIDs: selected,
		})
	}

	res.Score = Percent(res.CorrectCount, res.Total)
	return res, nil
}

// AnswerKey returns the sorted ids of the options flagged correct.
func AnswerKey(options []model.AnswerOption) []int64 {
	ids := make([]int64, 0, len(options))
	for _, o := range options {
		if o.IsCorrect {
			ids = append(ids, o.ID)
		}
	}
	slices.Sort(ids)
	return ids
}

// Percent returns correct/total*100 rounded half away from zero to two decimals.
// total must be positive.
func Percent(correct, total int) float64 {
	p := decimal.NewFromInt(int64(correct)).
		Div(decimal.NewFromInt(int64(total))).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	f, _ := p.Float64()
	return f
}

// normalize returns a sorted copy of ids without duplicates; the caller's
// slice is left untouched.
func normalize(ids []int64) []int64 {
	out := slices.Clone(ids)
	if out == nil {
		out = []int64{}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
