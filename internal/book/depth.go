package book

import "github.com/shopspring/decimal"

// DepthItem is one aggregated price level.
type DepthItem struct {
	Price decimal.Decimal
	Size  decimal.Decimal
	Count int64
}

// Depth is a best-first view of both sides up to a level limit. UpdateID is
// the event sequence at the time of the snapshot.
type Depth struct {
	UpdateID uint64
	Bids     []DepthItem
	Asks     []DepthItem
}

// Stats contains order and level counts per side.
type Stats struct {
	BidOrders int64
	BidLevels int64
	AskOrders int64
	AskLevels int64
}

// Depth returns the current depth of the book up to limit levels per side.
func (b *Book) Depth(limit uint32) Depth {
	return Depth{
		UpdateID: b.seq,
		Bids:     b.bids.depth(limit),
		Asks:     b.asks.depth(limit),
	}
}

// Stats returns usage counters for both sides.
func (b *Book) Stats() Stats {
	return Stats{
		BidOrders: b.bids.orderCount(),
		BidLevels: b.bids.levelCount(),
		AskOrders: b.asks.orderCount(),
		AskLevels: b.asks.levelCount(),
	}
}

// Contains reports whether an order id is live in the book.
func (b *Book) Contains(id OrderID) bool {
	_, ok := b.index[id]
	return ok
}

// Remaining returns the live remaining size of an order, or zero when the
// id is not in the book.
func (b *Book) Remaining(id OrderID) decimal.Decimal {
	order, ok := b.index[id]
	if !ok {
		return decimal.Zero
	}
	return order.Remaining
}

// Sequence returns the id of the last published event.
func (b *Book) Sequence() uint64 {
	return b.seq
}
