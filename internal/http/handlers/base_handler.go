// Package handlers maps HTTP requests onto module service calls.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"roadassist/internal/modules/location"
	"roadassist/internal/modules/matching"
	"roadassist/internal/modules/payment"
	"roadassist/internal/modules/provider"
	"roadassist/internal/modules/request"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

// writeServiceError maps module sentinel errors onto HTTP statuses. Errors
// come wrapped, so the mapping goes through errors.Is.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, request.ErrBadRequest),
		errors.Is(err, provider.ErrBadRequest),
		errors.Is(err, payment.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, request.ErrNotFound),
		errors.Is(err, provider.ErrNotFound),
		errors.Is(err, payment.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, request.ErrInvalidState),
		errors.Is(err, request.ErrConflict),
		errors.Is(err, payment.ErrConflict),
		errors.Is(err, provider.ErrBusy),
		errors.Is(err, matching.ErrNoProvider):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, payment.ErrVerificationFailed):
		writeError(c, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, location.ErrGeocodingFailed):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
