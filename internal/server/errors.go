package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CJuwaneme1704/SentinelIQ/internal/auth"
	"github.com/CJuwaneme1704/SentinelIQ/internal/google"
	"github.com/CJuwaneme1704/SentinelIQ/internal/ingest"
	"github.com/CJuwaneme1704/SentinelIQ/internal/store"
)

// ErrForbidden is returned when the caller is authenticated but does
// not own the requested resource.
var ErrForbidden = errors.New("forbidden")

// statusFor maps domain errors onto HTTP status codes. This is the only
// place the mapping lives; handlers return errors and let writeError
// translate them.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, google.ErrExchangeFailed),
		errors.Is(err, google.ErrProfileFailed),
		errors.Is(err, ingest.ErrListFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes the JSON error response for err. Internal detail
// never crosses the boundary; 5xx responses carry a generic message.
func writeError(c *gin.Context, err error, message string) {
	status := statusFor(err)
	if message == "" {
		message = publicMessage(status)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func publicMessage(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "authentication required"
	case http.StatusForbidden:
		return "access denied"
	case http.StatusNotFound:
		return "not found"
	case http.StatusConflict:
		return "already exists"
	case http.StatusBadGateway:
		return "upstream provider error"
	default:
		return "internal server error"
	}
}
