package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/jersey-storefront/internal/profile"
)

type UpdateProfileRequest struct {
	Name    string `json:"name" validate:"required,min=2"`
	Address string `json:"address" validate:"max=500"`
}

type ProfileHandler struct {
	profiles profile.Service
	validate *validator.Validate
}

func NewProfileHandler(profiles profile.Service) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, validate: validator.New()}
}

func (h *ProfileHandler) RegisterRoutes(router chi.Router) {
	router.Get("/profile", h.handleGetProfile)
	router.Put("/profile", h.handleUpdateProfile)
}

func (h *ProfileHandler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.Get(r.Context(), identity(r))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	p, err := h.profiles.Save(r.Context(), identity(r), req.Name, req.Address)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}
