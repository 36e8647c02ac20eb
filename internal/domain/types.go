// Package domain holds the shared value types of the trading core.
// It has no infrastructure dependencies so every module can import it.
package domain

import (
	"fmt"
	"strings"
)

// Side represents the trade direction (BUY or SELL)
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// IsValid checks if the side is valid
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// IsBuy returns true if this is a BUY
func (s Side) IsBuy() bool {
	return s == SideBuy
}

// IsSell returns true if this is a SELL
func (s Side) IsSell() bool {
	return s == SideSell
}

// SideFromString creates a Side from a string (case-insensitive)
func SideFromString(value string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "BUY":
		return SideBuy, nil
	case "SELL":
		return SideSell, nil
	default:
		return "", fmt.Errorf("invalid side: %q", value)
	}
}

// OrderType represents how an order prices its execution
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// IsValid checks if the order type is valid
func (t OrderType) IsValid() bool {
	return t == OrderTypeMarket || t == OrderTypeLimit
}

// OrderTypeFromString creates an OrderType from a string (case-insensitive)
func OrderTypeFromString(value string) (OrderType, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "MARKET":
		return OrderTypeMarket, nil
	case "LIMIT":
		return OrderTypeLimit, nil
	default:
		return "", fmt.Errorf("invalid order type: %q", value)
	}
}

// OrderStatus represents the lifecycle state of an order.
// Transitions are monotonic: PENDING -> EXECUTED or PENDING -> CANCELLED,
// and no transition leaves a terminal state.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusExecuted  OrderStatus = "EXECUTED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// IsTerminal reports whether the status is a terminal state
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusExecuted || s == OrderStatusCancelled
}

// OrderStatusFromString creates an OrderStatus from a string (case-insensitive)
func OrderStatusFromString(value string) (OrderStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "PENDING":
		return OrderStatusPending, nil
	case "EXECUTED":
		return OrderStatusExecuted, nil
	case "CANCELLED":
		return OrderStatusCancelled, nil
	default:
		return "", fmt.Errorf("invalid order status: %q", value)
	}
}

// MarketType distinguishes listed vs over-the-counter instruments
type MarketType string

const (
	MarketTypeListed MarketType = "LISTED"
	MarketTypeOTC    MarketType = "OTC"
)

func (m MarketType) IsValid() bool {
	return m == MarketTypeListed || m == MarketTypeOTC
}

// MarketTypeFromString creates a MarketType from a string (case-insensitive)
func MarketTypeFromString(value string) (MarketType, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "LISTED":
		return MarketTypeListed, nil
	case "OTC":
		return MarketTypeOTC, nil
	default:
		return "", fmt.Errorf("invalid market type: %q", value)
	}
}
