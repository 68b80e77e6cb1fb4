package book

import (
	"github.com/igrmk/treemap/v2"
	"github.com/shopspring/decimal"
)

// DepthView maintains a simplified image of the order book, tracking only
// price levels and their aggregated sizes. It is designed for downstream
// consumers that rebuild book state from the event stream; it never touches
// the Book itself.
type DepthView struct {
	seq  uint64
	bids *treemap.TreeMap[decimal.Decimal, decimal.Decimal]
	asks *treemap.TreeMap[decimal.Decimal, decimal.Decimal]
}

// NewDepthView creates an empty view. The first event applied sets the
// sequence baseline, so a view may attach mid-stream.
func NewDepthView() *DepthView {
	less := func(a, b decimal.Decimal) bool {
		return a.LessThan(b)
	}
	return &DepthView{
		bids: treemap.NewWithKeyCompare[decimal.Decimal, decimal.Decimal](less),
		asks: treemap.NewWithKeyCompare[decimal.Decimal, decimal.Decimal](less),
	}
}

// Sequence returns the last applied event sequence.
func (v *DepthView) Sequence() uint64 {
	return v.seq
}

// Apply folds one event into the view. Events at or below the current
// sequence are ignored (duplicates on reconnect); a skipped sequence
// returns ErrSequenceGap and leaves the view unchanged.
func (v *DepthView) Apply(ev Event) error {
	if v.seq != 0 {
		if ev.Sequence <= v.seq {
			return nil
		}
		if ev.Sequence != v.seq+1 {
			return ErrSequenceGap
		}
	}
	v.seq = ev.Sequence

	switch ev.Type {
	case EventOpen:
		v.add(ev.Side, ev.Price, ev.Size)
	case EventCancel:
		v.sub(ev.Side, ev.Price, ev.Size)
	case EventMatch:
		// A match removes liquidity from the maker side, which is the
		// opposite of the event's taker side.
		v.sub(ev.Side.Opposite(), ev.Price, ev.Size)
	}
	return nil
}

// Best returns the best price on a side: highest bid or lowest ask.
func (v *DepthView) Best(side Side) (decimal.Decimal, bool) {
	if side == Buy {
		it := v.bids.Reverse()
		if !it.Valid() {
			return decimal.Zero, false
		}
		return it.Key(), true
	}
	it := v.asks.Iterator()
	if !it.Valid() {
		return decimal.Zero, false
	}
	return it.Key(), true
}

// Depth returns the aggregated size at a price level, zero if absent.
func (v *DepthView) Depth(side Side, price decimal.Decimal) decimal.Decimal {
	size, ok := v.tree(side).Get(price)
	if !ok {
		return decimal.Zero
	}
	return size
}

// Levels returns the number of price levels on a side.
func (v *DepthView) Levels(side Side) int {
	return v.tree(side).Len()
}

func (v *DepthView) tree(side Side) *treemap.TreeMap[decimal.Decimal, decimal.Decimal] {
	if side == Buy {
		return v.bids
	}
	return v.asks
}

func (v *DepthView) add(side Side, price, size decimal.Decimal) {
	tree := v.tree(side)
	if cur, ok := tree.Get(price); ok {
		tree.Set(price, cur.Add(size))
		return
	}
	tree.Set(price, size)
}

func (v *DepthView) sub(side Side, price, size decimal.Decimal) {
	tree := v.tree(side)
	cur, ok := tree.Get(price)
	if !ok {
		return
	}
	next := cur.Sub(size)
	if next.IsPositive() {
		tree.Set(price, next)
		return
	}
	tree.Del(price)
}
