package handler

import (
	"net/http"
	"strconv"

	"github.com/martiv/eshop-api/internal/service"
)

// UserHandler handles user registration, profile access, and login.
type UserHandler struct {
	auth *service.AuthService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(auth *service.AuthService) *UserHandler {
	return &UserHandler{auth: auth}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a new user account.
// POST /api/users
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondServiceError(w, "register user", err)
		return
	}

	w.Header().Set("Location", "/api/users/"+strconv.FormatInt(user.ID, 10))
	writeJSON(w, http.StatusCreated, toUserDTO(user))
}

// HandleGet returns a user's profile.
// GET /api/users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// HandleUpdate updates the authenticated user's own profile.
// PUT /api/users/{id}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	caller := UserFromContext(r.Context())
	if caller == nil || caller.ID != id {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var req registerRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := h.auth.UpdateUser(r.Context(), id, req.Name, req.Email, req.Password)
	if err != nil {
		respondServiceError(w, "update user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// HandleLogin verifies credentials and returns a bearer token.
// POST /api/login
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
