package book

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType classifies book events.
type EventType string

const (
	// EventOpen is emitted when a residual posts to the book.
	EventOpen EventType = "open"
	// EventMatch is the trade notification: one per resting order touched
	// by a matching walk, in walk order.
	EventMatch EventType = "match"
	// EventCancel is emitted when a resting order is cancelled. Cancels
	// never produce EventMatch.
	EventCancel EventType = "cancel"
)

// Event is one entry in the book's event stream. Sequence increases by one
// per event and lets downstream views detect gaps; TradeID is set on match
// events only.
//
// For EventMatch, MakerOrderID is the resting order, Size the quantity
// actually exchanged, Price the resting order's price, and Side the taker's
// side. For EventOpen and EventCancel, OrderID is the resting order and
// Size its remaining quantity at the time of the event.
type Event struct {
	Sequence     uint64          `json:"seq_id"`
	TradeID      uint64          `json:"trade_id,omitempty"`
	Type         EventType       `json:"type"`
	Side         Side            `json:"side"`
	Price        decimal.Decimal `json:"price"`
	Size         decimal.Decimal `json:"size"`
	OrderID      OrderID         `json:"order_id,omitempty"`
	MakerOrderID OrderID         `json:"maker_order_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
