package httpadapter

import (
	"net/http"

	"github.com/olgamyk/outfit-shopper/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrOutfitNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrBackendNotConfigured):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
