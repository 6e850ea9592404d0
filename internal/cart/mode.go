package cart

type Operation string

const (
	OpAddItem          Operation = "add_item"
	OpAddFlashSaleItem Operation = "add_flash_sale_item"
	OpIncrease         Operation = "increase"
	OpDecrease         Operation = "decrease"
	OpRemove           Operation = "remove"
	OpApplyCoupon      Operation = "apply_coupon"
	OpReset            Operation = "reset"
	OpRefresh          Operation = "refresh"
	OpRefreshFlashSale Operation = "refresh_flash_sale"
	OpSync             Operation = "sync"
	OpQuoteShipping    Operation = "quote_shipping"
)

// ConsistencyMode says whether an operation's result came from the cart
// backend or only from local arithmetic.
type ConsistencyMode int

const (
	// AuthoritativeRefresh operations replace local state with the
	// backend's payload after the write commits.
	AuthoritativeRefresh ConsistencyMode = iota
	// OptimisticLocal operations change local state only. The cart may
	// drift from the backend until the next Sync or refresh.
	OptimisticLocal
)

func (m ConsistencyMode) String() string {
	switch m {
	case OptimisticLocal:
		return "OPTIMISTIC_LOCAL"
	default:
		return "AUTHORITATIVE_REFRESH"
	}
}

func (m ConsistencyMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ModeOf reports the consistency mode of op. Coupon application is local
// too, but coupons never reach the backend so there is nothing to drift.
func ModeOf(op Operation) ConsistencyMode {
	switch op {
	case OpIncrease, OpDecrease, OpApplyCoupon:
		return OptimisticLocal
	default:
		return AuthoritativeRefresh
	}
}
