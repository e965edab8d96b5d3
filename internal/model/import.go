package model

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// AnswerImport is one answer option in a questions JSON file.
type AnswerImport struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

// QuestionImport is used for loading questions from JSON.
type QuestionImport struct {
	Text    string         `json:"text" validate:"required"`
	Subject string         `json:"subject" validate:"required"`
	Grade   string         `json:"grade" validate:"required"`
	Type    QuestionType   `json:"type" validate:"omitempty,oneof=single-choice multiple-choice"`
	Answers []AnswerImport `json:"answers" validate:"len=5,dive"`
}

var (
	// ErrNoCorrectOption is returned for a question without any correct option.
	ErrNoCorrectOption = errors.New("at least one answer must be marked as correct")
	// ErrSingleChoiceKey is returned for a single-choice question with several correct options.
	ErrSingleChoiceKey = errors.New("a single-choice question must have exactly one correct answer")
)

// Validate checks the structural rules of an imported question. When strict is
// set, single-choice questions must have exactly one correct option.
func (qi *QuestionImport) Validate(strict bool) error {
	if qi.Type == "" {
		qi.Type = QuestionSingleChoice
	}
	if err := validate.Struct(qi); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Field() == "Answers" && fe.Tag() == "len" {
				return fmt.Errorf("a question must have exactly %d answer options", OptionsPerQuestion)
			}
			return fmt.Errorf("field %s failed %q validation", fe.Namespace(), fe.Tag())
		}
		return err
	}

	correct := 0
	for _, a := range qi.Answers {
		if a.IsCorrect {
			correct++
		}
	}
	if correct == 0 {
		return ErrNoCorrectOption
	}
	if strict && qi.Type == QuestionSingleChoice && correct != 1 {
		return ErrSingleChoiceKey
	}
	return nil
}

// Question converts the import into a Question for the given subject and grade.
func (qi QuestionImport) Question(subjectID, gradeID int64) Question {
	q := Question{
		Text:      qi.Text,
		SubjectID: subjectID,
		GradeID:   gradeID,
		Type:      qi.Type,
	}
	for _, a := range qi.Answers {
		q.Options = append(q.Options, AnswerOption{Text: a.Text, IsCorrect: a.IsCorrect})
	}
	return q
}
