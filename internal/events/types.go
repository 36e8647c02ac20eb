// Package events provides the in-process event bus.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	PriceUpdated   EventType = "PRICE_UPDATED"
	OrderCreated   EventType = "ORDER_CREATED"
	OrderCancelled EventType = "ORDER_CANCELLED"
	TradeExecuted  EventType = "TRADE_EXECUTED"
	MarketOpened   EventType = "MARKET_OPENED"
	MarketClosed   EventType = "MARKET_CLOSED"
	ErrorOccurred  EventType = "ERROR_OCCURRED"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Module    string                 `json:"module"`
	Data      map[string]interface{} `json:"data"`
}
