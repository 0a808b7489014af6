package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/jersey-storefront/internal/apperr"
	"github.com/vasiliy-maslov/jersey-storefront/internal/session"
)

type Accounts interface {
	SignUp(ctx context.Context, email, password, displayName string) (session.Identity, error)
	SignIn(ctx context.Context, email, password string) (session.Token, session.Identity, error)
	SignOut(ctx context.Context, token string) error
}

type SignUpRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SessionResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
	User      session.Identity `json:"user"`
}

type AuthHandler struct {
	accounts Accounts
	validate *validator.Validate
}

func NewAuthHandler(accounts Accounts) *AuthHandler {
	return &AuthHandler{accounts: accounts, validate: validator.New()}
}

func (h *AuthHandler) RegisterRoutes(router chi.Router) {
	router.Post("/auth/signup", h.handleSignUp)
	router.Post("/auth/login", h.handleLogin)
	router.Post("/auth/logout", h.handleLogout)
}

// handleSignUp creates the account and signs it straight in.
func (h *AuthHandler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	if _, err := h.accounts.SignUp(r.Context(), req.Email, req.Password, req.Name); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	token, id, err := h.accounts.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, SessionResponse{Token: token.Value, ExpiresAt: token.ExpiresAt, User: id})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	token, id, err := h.accounts.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, SessionResponse{Token: token.Value, ExpiresAt: token.ExpiresAt, User: id})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		respondWithError(w, http.StatusUnauthorized, apperr.KindNotAuthenticated, "Sign in required")
		return
	}
	if err := h.accounts.SignOut(r.Context(), token); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
