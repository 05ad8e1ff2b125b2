package api

import (
	"net/http"

	"ms-travel-sales/internal/auth"
	"ms-travel-sales/internal/models"
	"ms-travel-sales/internal/users"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Login failed", err)
		return
	}
	user, err := h.Users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, "Login failed", err)
		return
	}
	token, err := h.Issuer.Issue(user)
	if err != nil {
		h.fail(w, r, "Login failed", err)
		return
	}
	h.ok(w, http.StatusOK, "Logged in", tokenResponse{Token: token, User: user})
}

// Register creates a client account. Other roles are granted by admins.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req users.CreateRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Registration failed", err)
		return
	}
	if req.Role != models.RoleApplicant {
		req.Role = models.RoleClient
	}
	user, err := h.Users.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, "Registration failed", err)
		return
	}
	h.ok(w, http.StatusCreated, "User registered", user)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	if err := h.Revoked.Revoke(r.Context(), claims); err != nil {
		h.fail(w, r, "Logout failed", err)
		return
	}
	h.Logger.LogSecurity("LOGOUT", "token revoked for "+claims.Subject)
	h.ok(w, http.StatusOK, "Logged out", nil)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.Get(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, r, "Failed to load profile", err)
		return
	}
	h.ok(w, http.StatusOK, "Profile", user)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	if !auth.Actor(r.Context()).IsAdmin() {
		h.fail(w, r, "Failed to create user", models.ErrForbidden)
		return
	}
	var req users.CreateRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Failed to create user", err)
		return
	}
	user, err := h.Users.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, "Failed to create user", err)
		return
	}
	h.ok(w, http.StatusCreated, "User created", user)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.Users.List(r.Context(), auth.Actor(r.Context()))
	if err != nil {
		h.fail(w, r, "Failed to list users", err)
		return
	}
	h.ok(w, http.StatusOK, "Users", list)
}
