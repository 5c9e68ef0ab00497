package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/BradenHooton/usergate/internal/models"
	pkghttp "github.com/BradenHooton/usergate/pkg/http"
)

const msgInternal = "Something went wrong. Please try again later."

// writeServiceError maps a service sentinel onto the response envelope.
// notFound is the message used for models.ErrNotFound.
func writeServiceError(w http.ResponseWriter, err error, notFound string) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		pkghttp.WriteBadRequest(w, ve.Message)
	case errors.Is(err, models.ErrInvalidOTP):
		pkghttp.WriteBadRequest(w, "Invalid OTP")
	case errors.Is(err, models.ErrOTPExpired):
		pkghttp.WriteBadRequest(w, "OTP has expired")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Invalid email or password")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, notFound)
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Resource already exists")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid input data")
	case errors.Is(err, models.ErrDelivery):
		pkghttp.WriteBadGateway(w, "There was an error sending the email. Try again later.")
	default:
		pkghttp.WriteInternalError(w, msgInternal)
	}
}

// parseID reads a positive integer path parameter
func parseID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
