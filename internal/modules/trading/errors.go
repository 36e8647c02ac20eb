package trading

import "errors"

// Order validation and lifecycle errors. Handlers map these onto HTTP
// status codes with errors.Is.
var (
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInvalidStock         = errors.New("stock does not exist")
	ErrInvalidLimitPrice    = errors.New("limit price missing, non-positive or not triggered")
	ErrInsufficientHoldings = errors.New("sell quantity exceeds holdings")
	ErrDuplicateOrder       = errors.New("identical order submitted moments ago")
	ErrExceedsTradeLimit    = errors.New("order notional exceeds the trade limit")
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderNotCancellable  = errors.New("order is not pending")
)
