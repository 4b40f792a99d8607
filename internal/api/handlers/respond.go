package handlers

import (
	"errors"
	"net/http"

	"nhanhsync/internal/services/nhanh"
	"nhanhsync/internal/sync"
)

// statusFor maps an error from the sync engine or the remote client to the
// HTTP status the API reports.
func statusFor(err error) int {
	var auth *nhanh.AuthError
	var rate *nhanh.RateLimitError
	var notFound *nhanh.NotFoundError
	var validation *nhanh.ValidationError
	var transport *nhanh.TransportError
	var api *nhanh.APIError

	switch {
	case errors.As(err, &auth):
		return http.StatusUnauthorized
	case errors.As(err, &rate):
		return http.StatusTooManyRequests
	case errors.As(err, &notFound), errors.Is(err, sync.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &transport), errors.As(err, &api):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
