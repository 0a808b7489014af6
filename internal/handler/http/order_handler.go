package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/jersey-storefront/internal/apperr"
	"github.com/vasiliy-maslov/jersey-storefront/internal/checkout"
	"github.com/vasiliy-maslov/jersey-storefront/internal/order"
	"github.com/vasiliy-maslov/jersey-storefront/internal/session"
)

type CheckoutPreparer interface {
	Prepare(ctx context.Context, user session.Identity) (checkout.Prepared, error)
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, user session.Identity, address, payment string) (*order.Order, error)
}

// PlaceOrderRequest is checked by the committer, not the validator, so that
// blank fields come back as INCOMPLETE_CHECKOUT.
type PlaceOrderRequest struct {
	Address string `json:"address"`
	Payment string `json:"payment"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type OrderHandler struct {
	checkout  CheckoutPreparer
	committer OrderPlacer
	orders    order.Service
	validate  *validator.Validate
}

func NewOrderHandler(co CheckoutPreparer, committer OrderPlacer, orders order.Service) *OrderHandler {
	return &OrderHandler{checkout: co, committer: committer, orders: orders, validate: validator.New()}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Get("/checkout", h.handleCheckout)
	router.Post("/orders", h.handlePlaceOrder)
	router.Get("/orders", h.handleListOrders)
}

// RegisterFulfillmentRoutes mounts the back-office status route.
func (h *OrderHandler) RegisterFulfillmentRoutes(router chi.Router) {
	router.Patch("/fulfillment/orders/{email}/{id}", h.handleUpdateStatus)
}

func (h *OrderHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	prepared, err := h.checkout.Prepare(r.Context(), identity(r))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, prepared)
}

func (h *OrderHandler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, apperr.KindInvalidArgument, err.Error())
		return
	}

	o, err := h.committer.PlaceOrder(r.Context(), identity(r), req.Address, req.Payment)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context(), identity(r))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	status, err := order.ParseStatus(req.Status)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, apperr.KindInvalidArgument, err.Error())
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "email"), chi.URLParam(r, "id"), status)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}
