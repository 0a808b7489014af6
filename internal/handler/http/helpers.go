package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/jersey-storefront/internal/apperr"
	"github.com/vasiliy-maslov/jersey-storefront/internal/order"
	"github.com/vasiliy-maslov/jersey-storefront/internal/session"
)

// retryAfterSeconds is sent with errors the client may retry unchanged.
const retryAfterSeconds = "5"

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("http: failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response","code":"INTERNAL"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("http: failed to write JSON response")
	}
}

func respondWithError(w http.ResponseWriter, code int, kind apperr.Kind, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message, Code: kind.String()})
}

// respondWithServiceError maps err to a status and a message that is safe to
// show the client. Internal failures are logged and reported generically.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := mapErrorToStatusCode(err)
	kind := apperr.KindOf(err)

	message := clientMessage(err, kind)
	if code >= http.StatusInternalServerError {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Str("kind", kind.String()).Msg("http: request failed")
	} else {
		log.Warn().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Str("kind", kind.String()).Msg("http: request rejected")
	}
	if apperr.Retryable(err) {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}
	respondWithError(w, code, kind, message)
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, session.ErrEmailExists):
		return http.StatusConflict
	case errors.Is(err, session.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrWeakPassword):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrInvalidStatusTransition):
		return http.StatusConflict
	}

	switch apperr.KindOf(err) {
	case apperr.KindNotAuthenticated:
		return http.StatusUnauthorized
	case apperr.KindInvalidQuantity, apperr.KindInvalidArgument:
		return http.StatusBadRequest
	case apperr.KindIncompleteCheckout:
		return http.StatusUnprocessableEntity
	case apperr.KindOrderWriteFailed, apperr.KindBackendUnavailable:
		return http.StatusServiceUnavailable
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func clientMessage(err error, kind apperr.Kind) string {
	switch {
	case errors.Is(err, session.ErrEmailExists):
		return "Email already registered"
	case errors.Is(err, session.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, session.ErrWeakPassword):
		return session.ErrWeakPassword.Error()
	case errors.Is(err, order.ErrInvalidStatusTransition):
		return "Order status cannot change that way"
	}

	switch kind {
	case apperr.KindNotAuthenticated:
		return "Sign in required"
	case apperr.KindInvalidQuantity, apperr.KindInvalidArgument, apperr.KindIncompleteCheckout, apperr.KindNotFound:
		return innermostMessage(err)
	case apperr.KindOrderWriteFailed:
		return "Your order could not be saved. Your cart is unchanged, please try again"
	case apperr.KindBackendUnavailable:
		return "Service temporarily unavailable, please try again"
	case apperr.KindCartClearPartialFailure:
		return "Some cart items could not be removed"
	default:
		return "Internal server error"
	}
}

// innermostMessage is the message of the first *apperr.Error in the chain,
// joined with its cause when that cause carries the detail.
func innermostMessage(err error) string {
	var e *apperr.Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	if e.Msg == "" && e.Err == nil {
		return strings.ToLower(strings.ReplaceAll(e.Kind.String(), "_", " "))
	}
	return strings.ReplaceAll(e.Error(), "\n", "; ")
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request payload: %w", err)
	}
	return nil
}

// decodeAndValidate decodes the body into dst and runs struct validation.
// It writes the error response itself and reports whether the caller may go on.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst any) bool {
	if err := decodeJSON(r, dst); err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("http: failed to decode request body")
		respondWithError(w, http.StatusBadRequest, apperr.KindInvalidArgument, err.Error())
		return false
	}

	err := validate.Struct(dst)
	if err == nil {
		return true
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:   "Validation failed",
			Code:    validationKind(validationErrors).String(),
			Details: formatValidationErrors(validationErrors),
		})
		return false
	}
	log.Error().Err(err).Type("validation_error_type", err).Msg("http: unexpected error type during validation")
	respondWithError(w, http.StatusInternalServerError, apperr.KindInternal, "Internal validation error")
	return false
}

// validationKind keeps quantity problems under INVALID_QUANTITY, the same
// code the cart store reports for them.
func validationKind(errs validator.ValidationErrors) apperr.Kind {
	for _, fe := range errs {
		if fe.Field() != "Quantity" {
			return apperr.KindInvalidArgument
		}
	}
	return apperr.KindInvalidQuantity
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			details[fe.Field()] = "is required"
		case "email":
			details[fe.Field()] = "must be a valid email"
		case "min", "gte":
			details[fe.Field()] = "must be at least " + fe.Param()
		case "max", "lte":
			details[fe.Field()] = "must be at most " + fe.Param()
		case "oneof":
			details[fe.Field()] = "must be one of " + fe.Param()
		default:
			details[fe.Field()] = "is invalid"
		}
	}
	return details
}
