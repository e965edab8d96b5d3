package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/exambank/internal/exam"
	"github.com/pavelanni/exambank/internal/model"
	"github.com/pavelanni/exambank/internal/store"
)

// userDTO is the public form of a user; the password hash never leaves the server.
type userDTO struct {
	ID          int64          `json:"id"`
	Username    string         `json:"username"`
	DisplayName string         `json:"display_name"`
	Role        model.UserRole `json:"role"`
	Active      bool           `json:"active"`
	CreatedAt   time.Time      `json:"created_at"`
}

func newUserDTO(u model.User) userDTO {
	return userDTO{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		Active:      u.Active,
		CreatedAt:   u.CreatedAt,
	}
}

type createUserRequest struct {
	Username    string         `json:"username" validate:"required,min=3,max=64"`
	DisplayName string         `json:"display_name" validate:"max=128"`
	Password    string         `json:"password" validate:"required,min=8"`
	Role        model.UserRole `json:"role" validate:"omitempty,oneof=student teacher admin"`
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]userDTO, 0, len(users))
	for _, u := range users {
		out = append(out, newUserDTO(u))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Role == "" {
		req.Role = model.UserRoleStudent
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, err)
		return
	}

	u := model.User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		Role:         req.Role,
		Active:       true,
	}
	id, err := h.store.CreateUser(r.Context(), u)
	if err != nil {
		if store.IsUniqueViolation(err) {
			writeError(w, r, &exam.Error{Kind: exam.KindConflict, Msg: "username already exists"})
			return
		}
		writeError(w, r, err)
		return
	}
	created, err := h.store.GetUserByID(r.Context(), id)
	if err != nil || created == nil {
		writeError(w, r, errors.Join(errors.New("reload created user"), err))
		return
	}

	slog.Info("user created", "username", created.Username, "role", created.Role)
	writeJSON(w, http.StatusCreated, newUserDTO(*created))
}

func (h *Handler) handleSetUserActive(w http.ResponseWriter, r *http.Request) {
	caller := model.UserFromContext(r.Context())
	userID, err := idParam(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req setActiveRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if userID == caller.ID && !*req.Active {
		writeError(w, r, exam.Validation("cannot deactivate your own account"))
		return
	}

	if err := h.store.SetUserActive(r.Context(), userID, *req.Active); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, exam.ErrUserNotFound)
			return
		}
		writeError(w, r, err)
		return
	}
	slog.Info("user active state changed", "user_id", userID, "active", *req.Active)
	w.WriteHeader(http.StatusNoContent)
}
