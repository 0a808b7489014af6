package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/jersey-storefront/internal/apperr"
	"github.com/vasiliy-maslov/jersey-storefront/internal/cart"
	"github.com/vasiliy-maslov/jersey-storefront/internal/checkout"
	"github.com/vasiliy-maslov/jersey-storefront/internal/session"
)

type Carts interface {
	AddLine(ctx context.Context, user session.Identity, productID string, size cart.Size, qty int64, snap cart.Snapshot) (cart.Line, error)
	RemoveLine(ctx context.Context, user session.Identity, lineID string) error
	Clear(ctx context.Context, user session.Identity) error
	List(ctx context.Context, user session.Identity) ([]cart.Line, error)
}

// AddLineRequest only caps the quantity; the lower bound and the merged
// total are checked by the cart store.
type AddLineRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Size      string `json:"size" validate:"required"`
	Quantity  int64  `json:"quantity" validate:"lte=99"`
}

type ClearCartErrorResponse struct {
	ErrorResponse
	Remaining []string `json:"remaining"`
}

type CartHandler struct {
	carts    Carts
	catalog  Catalog
	validate *validator.Validate
}

func NewCartHandler(carts Carts, c Catalog) *CartHandler {
	return &CartHandler{carts: carts, catalog: c, validate: validator.New()}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Get("/cart", h.handleGetCart)
	router.Post("/cart/lines", h.handleAddLine)
	router.Delete("/cart/lines/{lineID}", h.handleRemoveLine)
	router.Delete("/cart", h.handleClearCart)
}

func (h *CartHandler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	lines, err := h.carts.List(r.Context(), identity(r))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, checkout.Summarize(lines))
}

// handleAddLine copies the product's current title, image and price onto the
// line; the cart never looks the product up again.
func (h *CartHandler) handleAddLine(w http.ResponseWriter, r *http.Request) {
	var req AddLineRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	size, err := cart.ParseSize(req.Size)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	product, err := h.catalog.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	line, err := h.carts.AddLine(r.Context(), identity(r), product.ID, size, req.Quantity, cart.Snapshot{
		Title: product.Name,
		Image: product.Image,
		Price: product.Price,
	})
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, line)
}

func (h *CartHandler) handleRemoveLine(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.RemoveLine(r.Context(), identity(r), chi.URLParam(r, "lineID")); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	err := h.carts.Clear(r.Context(), identity(r))
	if err == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var partial *cart.PartialClearError
	if !errors.As(err, &partial) {
		respondWithServiceError(w, r, err)
		return
	}
	log.Error().Err(err).Strs("line_ids", partial.Remaining).Msg("http: cart only partly cleared")
	respondWithJSON(w, http.StatusInternalServerError, ClearCartErrorResponse{
		ErrorResponse: ErrorResponse{
			Error: clientMessage(err, apperr.KindCartClearPartialFailure),
			Code:  apperr.KindCartClearPartialFailure.String(),
		},
		Remaining: partial.Remaining,
	})
}
