package domain

import (
	"context"
	"errors"
)

type ErrorKind string

const (
	ErrorKindNone                      ErrorKind = ""
	ErrorKindValidationDenied          ErrorKind = "ValidationDenied"
	ErrorKindBackendUnavailable        ErrorKind = "BackendUnavailable"
	ErrorKindGatewayUnavailable        ErrorKind = "GatewayUnavailable"
	ErrorKindConfirmationIndeterminate ErrorKind = "ConfirmationIndeterminate"
	ErrorKindShippingQuoteUnavailable  ErrorKind = "ShippingQuoteUnavailable"
	ErrorKindTimeout                   ErrorKind = "Timeout"
)

var (
	ErrBackendUnavailable        = errors.New("backend unavailable")
	ErrGatewayUnavailable        = errors.New("payment gateway unavailable")
	ErrConfirmationIndeterminate = errors.New("payment confirmation indeterminate")
	ErrShippingQuoteUnavailable  = errors.New("shipping quote unavailable")
	ErrTimeout                   = errors.New("external call timed out")

	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrInvalidTransition  = errors.New("invalid checkout state transition")
	ErrOrderNotPayable    = errors.New("order is not eligible for online payment")
	ErrNotFound           = errors.New("not found")
	ErrEntryNotFound      = errors.New("cart entry not found")
)

type DenyReason string

const (
	DenyIncompatibleItem DenyReason = "cart contains incompatible item type"
	DenyFlashSaleProduct DenyReason = "product is a flash-sale item"
	DenySaleEnded        DenyReason = "sale period ended"
	DenySaleNotOpen      DenyReason = "sale not yet open"
	DenySoldOut          DenyReason = "sold out"
	DenyFlashSaleInCart  DenyReason = "cart already contains a flash-sale item"
	DenyInvalidCandidate DenyReason = "invalid product"
)

var denyMessages = map[DenyReason]string{
	DenyIncompatibleItem: "The shopping cart contains flash sale products, which cannot be added",
	DenyFlashSaleProduct: "This is a flash sale product, please add it to the cart from the flash sale section",
	DenySaleEnded:        "The flash sale period has ended",
	DenySaleNotOpen:      "Flash sale has not opened yet",
	DenySoldOut:          "The product has been sold out",
	DenyFlashSaleInCart:  "The shopping cart already contains a flash sale product",
	DenyInvalidCandidate: "The product cannot be added to the cart",
}

// Message is the text shown to the shopper for a denial.
func (r DenyReason) Message() string {
	if m, ok := denyMessages[r]; ok {
		return m
	}
	return string(r)
}

type DenyError struct {
	Reason DenyReason
}

func (e *DenyError) Error() string {
	return "denied: " + string(e.Reason)
}

func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}

	var deny *DenyError
	switch {
	case errors.As(err, &deny), errors.Is(err, ErrEntryNotFound):
		return ErrorKindValidationDenied
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrorKindTimeout
	case errors.Is(err, ErrConfirmationIndeterminate):
		return ErrorKindConfirmationIndeterminate
	case errors.Is(err, ErrGatewayUnavailable):
		return ErrorKindGatewayUnavailable
	case errors.Is(err, ErrShippingQuoteUnavailable):
		return ErrorKindShippingQuoteUnavailable
	default:
		return ErrorKindBackendUnavailable
	}
}
