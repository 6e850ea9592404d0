package cart

import (
	"errors"

	"github.com/joao-fontenele/storefront-cart/internal/domain"
)

// Notice is the single success or failure notification every store
// operation produces.
type Notice struct {
	Operation Operation        `json:"operation"`
	Mode      ConsistencyMode  `json:"mode"`
	Success   bool             `json:"success"`
	Message   string           `json:"message,omitempty"`
	Kind      domain.ErrorKind `json:"kind,omitempty"`
}

var successMessages = map[Operation]string{
	OpAddItem:          "Add cart success",
	OpAddFlashSaleItem: "Add cart success",
	OpIncrease:         "Quantity updated",
	OpDecrease:         "Quantity updated",
	OpRemove:           "Delete Success",
	OpApplyCoupon:      "Coupon applied",
	OpReset:            "Cart cleared",
	OpSync:             "Update Success",
	OpQuoteShipping:    "Shipping quote updated",
}

var failureMessages = map[Operation]string{
	OpAddItem:          "Add cart failed",
	OpAddFlashSaleItem: "Add cart failed",
	OpIncrease:         "Update Failed",
	OpDecrease:         "Update Failed",
	OpRemove:           "Delete Failed",
	OpReset:            "Could not clear the cart",
	OpRefresh:          "Could not load the cart",
	OpRefreshFlashSale: "Could not load the cart",
	OpSync:             "Update Failed",
	OpQuoteShipping:    "Shipping is currently unavailable",
}

func newNotice(op Operation, err error) Notice {
	n := Notice{Operation: op, Mode: ModeOf(op), Kind: domain.KindOf(err)}
	if err == nil {
		n.Success = true
		n.Message = successMessages[op]
		return n
	}

	var deny *domain.DenyError
	switch {
	case errors.As(err, &deny):
		n.Message = deny.Reason.Message()
	case n.Kind == domain.ErrorKindTimeout:
		n.Message = "The request timed out, please try again"
	default:
		n.Message = failureMessages[op]
	}
	return n
}
