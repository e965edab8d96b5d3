// Package handler exposes the exam lifecycle as a JSON HTTP API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/pavelanni/exambank/internal/auth"
	"github.com/pavelanni/exambank/internal/exam"
	appI18n "github.com/pavelanni/exambank/internal/i18n"
	"github.com/pavelanni/exambank/internal/model"
	"github.com/pavelanni/exambank/internal/store"
)

const maxBodyBytes = 1 << 20

// Config holds HTTP-level settings.
type Config struct {
	Exam        model.ExamConfig
	CORSOrigins []string
	RateLimit   rate.Limit // requests per second per client on write endpoints, 0 disables
	RateBurst   int
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	exams    *exam.Service
	tokens   *auth.Tokens
	config   Config
	validate *validator.Validate
	limiter  *clientLimiter
}

// New creates a new Handler.
func New(s *store.Store, exams *exam.Service, tokens *auth.Tokens, cfg Config) *Handler {
	if cfg.Exam.DefaultQuestions <= 0 {
		cfg.Exam.DefaultQuestions = 10
	}
	return &Handler{
		store:    s,
		exams:    exams,
		tokens:   tokens,
		config:   cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		limiter:  newClientLimiter(cfg.RateLimit, cfg.RateBurst),
	}
}

// Router builds the complete HTTP handler with middleware.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(h.config.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	r.Use(appI18n.Middleware(h.config.Exam.Lang))
	h.Routes(r)
	return r
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Post("/auth/login", h.handleLogin)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.requireAuth)

		r.With(h.rateLimit).Post("/exams", h.handleGenerateExam)
		r.Get("/exams/{examID}", h.handleGetExam)
		r.With(h.rateLimit).Post("/exams/{examID}/submit", h.handleSubmitExam)
		r.Get("/results/{resultID}", h.handleGetResult)
		r.Get("/users/{userID}/results", h.handleUserResults)

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Get("/users", h.handleListUsers)
			r.Post("/users", h.handleCreateUser)
			r.Patch("/users/{userID}", h.handleSetUserActive)
		})
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps err to an HTTP status and a JSON error body. Internal
// errors are logged and replaced by a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := exam.KindOf(err)
	body := map[string]any{"error": err.Error(), "kind": kind}

	var status int
	switch kind {
	case exam.KindValidation:
		status = http.StatusBadRequest
	case exam.KindNotFound:
		status = http.StatusNotFound
	case exam.KindForbidden:
		status = http.StatusForbidden
	case exam.KindConflict:
		status = http.StatusConflict
		var insufficient *exam.InsufficientQuestionsError
		if errors.As(err, &insufficient) {
			body["available"] = insufficient.Available
			body["requested"] = insufficient.Requested
		}
	default:
		status = http.StatusInternalServerError
		body["error"] = "internal error"
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	writeJSON(w, status, body)
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{"error": msg, "kind": "unauthenticated"})
}

// decode reads a JSON body into dst and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return exam.Validation("invalid JSON body: " + err.Error())
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return exam.Validation("field " + fe.Namespace() + " failed '" + fe.Tag() + "' validation")
		}
		return exam.Validation(err.Error())
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, exam.Validation("invalid " + name)
	}
	return id, nil
}
