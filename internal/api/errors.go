package api

import (
	"context"
	"errors"
	"net/http"

	"invoice-analytics/internal/domain"
)

// httpStatusFromDomainError picks the response status for a failed request.
// Upstream analytics failures map to 502 and timeouts to 504; anything
// unrecognised is a 500.
func httpStatusFromDomainError(err error) int {
	var (
		notFound   *domain.NotFoundError
		validation *domain.ValidationError
		conflict   *domain.ConflictError
		rejected   *domain.RemoteRejectionError
		transport  *domain.TransportError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &rejected), errors.As(err, &transport):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Error string `json:"error"`
}

// failureBody shows 4xx messages as-is. Server-side failures get the
// endpoint's generic text instead.
func failureBody(status int, err error, generic string) errorBody {
	if status >= http.StatusInternalServerError {
		return errorBody{Error: generic}
	}
	return errorBody{Error: err.Error()}
}
