package handler

import (
	"net/http"

	"github.com/pavelanni/exambank/internal/exam"
	"github.com/pavelanni/exambank/internal/model"
)

type generateRequest struct {
	SubjectID         int64 `json:"subject_id" validate:"required,gt=0"`
	GradeID           int64 `json:"grade_id" validate:"required,gt=0"`
	NumberOfQuestions *int  `json:"number_of_questions" validate:"omitempty,gt=0,lte=200"`
}

type answerRequest struct {
	QuestionID        int64   `json:"question_id" validate:"required,gt=0"`
	SelectedAnswerIDs []int64 `json:"selected_answer_ids" validate:"dive,gt=0"`
}

type submitRequest struct {
	UserAnswers []answerRequest `json:"user_answers" validate:"required,dive"`
}

func (req submitRequest) submission() model.Submission {
	sub := make(model.Submission, 0, len(req.UserAnswers))
	for _, a := range req.UserAnswers {
		sub = append(sub, model.AnswerSelection{QuestionID: a.QuestionID, SelectedAnswerIDs: a.SelectedAnswerIDs})
	}
	return sub
}

func (h *Handler) handleGenerateExam(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var req generateRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	count := h.config.Exam.DefaultQuestions
	if req.NumberOfQuestions != nil {
		count = *req.NumberOfQuestions
	}

	view, err := h.exams.Assemble(r.Context(), exam.AssembleRequest{
		SubjectID: req.SubjectID,
		GradeID:   req.GradeID,
		Count:     count,
		OwnerID:   &user.ID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	examID, err := idParam(r, "examID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	view, err := h.exams.ExamForTaking(r.Context(), examID, user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleSubmitExam(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	examID, err := idParam(r, "examID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req submitRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.exams.Submit(r.Context(), examID, user.ID, req.submission())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	resultID, err := idParam(r, "resultID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	fb, err := h.exams.ResultFeedback(r.Context(), resultID, user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

type reportResponse struct {
	UserID  int64                 `json:"user_id"`
	Count   int                   `json:"count"`
	Results []model.ResultSummary `json:"results"`
}

func (h *Handler) handleUserResults(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	userID, err := idParam(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	results, err := h.exams.PerformanceReport(r.Context(), user, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if results == nil {
		results = []model.ResultSummary{}
	}
	writeJSON(w, http.StatusOK, reportResponse{UserID: userID, Count: len(results), Results: results})
}
