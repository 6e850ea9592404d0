package storefront

import (
	"errors"
	"net/http"

	"github.com/joao-fontenele/storefront-cart/internal/domain"
)

var kindStatus = map[domain.ErrorKind]int{
	domain.ErrorKindValidationDenied:          http.StatusUnprocessableEntity,
	domain.ErrorKindBackendUnavailable:        http.StatusBadGateway,
	domain.ErrorKindGatewayUnavailable:        http.StatusBadGateway,
	domain.ErrorKindConfirmationIndeterminate: http.StatusServiceUnavailable,
	domain.ErrorKindShippingQuoteUnavailable:  http.StatusServiceUnavailable,
	domain.ErrorKindTimeout:                   http.StatusGatewayTimeout,
}

var sentinelStatus = []struct {
	err    error
	status int
}{
	{domain.ErrCheckoutInProgress, http.StatusConflict},
	{domain.ErrInvalidTransition, http.StatusConflict},
	{domain.ErrOrderNotPayable, http.StatusUnprocessableEntity},
	{domain.ErrNotFound, http.StatusNotFound},
}

func statusForKind(kind domain.ErrorKind) int {
	if kind == domain.ErrorKindNone {
		return http.StatusOK
	}
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func errorStatus(err error) int {
	for _, s := range sentinelStatus {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return statusForKind(domain.KindOf(err))
}
