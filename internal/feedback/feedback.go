// Package feedback turns scoring results into messages for learners.
package feedback

import (
	"context"
	"slices"

	"github.com/pavelanni/exambank/internal/i18n"
	"github.com/pavelanni/exambank/internal/model"
	"github.com/pavelanni/exambank/internal/scoring"
)

// Band is a coarse performance level derived from a score.
type Band string

const (
	BandPerfect   Band = "perfect"
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandFair      Band = "fair"
	BandPoor      Band = "poor"
)

// Letter returns the A-E grade letter of the band.
func (b Band) Letter() string {
	switch b {
	case BandPerfect:
		return "A"
	case BandExcellent:
		return "B"
	case BandGood:
		return "C"
	case BandFair:
		return "D"
	default:
		return "E"
	}
}

func (b Band) messageID() string {
	switch b {
	case BandPerfect:
		return "BandPerfect"
	case BandExcellent:
		return "BandExcellent"
	case BandGood:
		return "BandGood"
	case BandFair:
		return "BandFair"
	default:
		return "BandPoor"
	}
}

// BandFor maps a score in [0, 100] to its band.
func BandFor(score float64) Band {
	switch {
	case score >= 100:
		return BandPerfect
	case score >= 80:
		return BandExcellent
	case score >= 60:
		return BandGood
	case score >= 40:
		return BandFair
	default:
		return BandPoor
	}
}

// General returns the localized overall message for score.
func General(ctx context.Context, score float64) string {
	return i18n.T(ctx, BandFor(score).messageID())
}

// DetailedFeedback is the per-question breakdown shown after submission.
type DetailedFeedback struct {
	QuestionID      int64    `json:"question_id"`
	QuestionText    string   `json:"question_text"`
	IsCorrect       bool     `json:"is_correct"`
	FeedbackMessage string   `json:"feedback_message"`
	CorrectAnswers  []string `json:"correct_answers"`
	YourAnswers     []string `json:"your_answers"`
	StudyTip        string   `json:"study_tip,omitempty"`
}

// Detailed resolves option ids in verdicts to their texts. options maps
// question ids to the options of that question; ids that cannot be resolved
// are skipped.
func Detailed(ctx context.Context, verdicts []scoring.QuestionVerdict, options map[int64][]model.AnswerOption) []DetailedFeedback {
	correctMsg := i18n.T(ctx, "AnswerCorrect")
	incorrectMsg := i18n.T(ctx, "AnswerIncorrect")

	out := make([]DetailedFeedback, 0, len(verdicts))
	for _, v := range verdicts {
		opts := options[v.QuestionID]
		df := DetailedFeedback{
			QuestionID:      v.QuestionID,
			QuestionText:    v.QuestionText,
			IsCorrect:       v.IsCorrect,
			FeedbackMessage: incorrectMsg,
			CorrectAnswers:  texts(opts, v.CorrectAnswerIDs),
			YourAnswers:     texts(opts, v.SelectedAnswerIDs),
		}
		if v.IsCorrect {
			df.FeedbackMessage = correctMsg
		}
		out = append(out, df)
	}
	return out
}

// texts returns the texts of ids in option order.
func texts(opts []model.AnswerOption, ids []int64) []string {
	out := []string{}
	for _, o := range opts {
		if slices.Contains(ids, o.ID) {
			out = append(out, o.Text)
		}
	}
	return out
}
