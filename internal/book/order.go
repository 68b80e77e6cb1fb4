package book

import "github.com/shopspring/decimal"

// Side identifies which half of the book an order rests on.
type Side int8

const (
	Buy  Side = 1
	Sell Side = 2
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	}
	return "unknown"
}

// Opposite returns the side a taker order matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderID is assigned by the Book from a monotonic counter and is never
// reused for the lifetime of the Book.
type OrderID uint64

// Order is a resting order. It lives in exactly one price level's FIFO;
// the level owns it, the order index only locates it.
type Order struct {
	ID        OrderID
	Side      Side
	Price     decimal.Decimal
	Remaining decimal.Decimal

	// Intrusive FIFO links and the owning level, maintained by sideBook.
	next, prev *Order
	level      *priceLevel
}
