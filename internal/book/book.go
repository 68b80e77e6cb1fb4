package book

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlaceStatus tags the outcome of a limit order submission.
type PlaceStatus uint8

const (
	// Posted means a residual entered the book under PlaceResult.OrderID.
	Posted PlaceStatus = iota + 1
	// FullyFilled means the order executed completely; no resting order
	// was created and no id was assigned.
	FullyFilled
)

func (s PlaceStatus) String() string {
	switch s {
	case Posted:
		return "posted"
	case FullyFilled:
		return "fully_filled"
	}
	return "unknown"
}

// PlaceResult is the tagged outcome of LimitBuy/LimitSell. OrderID is only
// meaningful when Status == Posted.
type PlaceResult struct {
	Status  PlaceStatus
	OrderID OrderID
}

// Book is a single-instrument central limit order book with price-time
// priority. All operations run to completion on the calling goroutine; the
// book has no internal synchronization, so callers must serialize access
// (one in-flight operation per Book at a time).
type Book struct {
	bids  *sideBook
	asks  *sideBook
	index map[OrderID]*Order

	lastID  OrderID
	seq     uint64
	tradeID uint64

	publisher Publisher
}

// New creates an empty Book. A nil publisher discards all events.
func New(publisher Publisher) *Book {
	if publisher == nil {
		publisher = NewDiscardPublisher()
	}
	return &Book{
		bids:      newBidBook(),
		asks:      newAskBook(),
		index:     make(map[OrderID]*Order),
		publisher: publisher,
	}
}

// LimitBuy submits a buy limit order. Whatever cannot execute immediately
// posts to the bid side.
func (b *Book) LimitBuy(size, price decimal.Decimal) (PlaceResult, error) {
	return b.limit(Buy, size, price)
}

// LimitSell submits a sell limit order. Whatever cannot execute immediately
// posts to the ask side.
func (b *Book) LimitSell(size, price decimal.Decimal) (PlaceResult, error) {
	return b.limit(Sell, size, price)
}

// FOKBuy submits a fill-or-kill buy. It either executes the full size
// against resting asks or leaves the book untouched and emits nothing.
func (b *Book) FOKBuy(size, price decimal.Decimal) (bool, error) {
	return b.fok(Buy, size, price)
}

// FOKSell submits a fill-or-kill sell.
func (b *Book) FOKSell(size, price decimal.Decimal) (bool, error) {
	return b.fok(Sell, size, price)
}

// Cancel removes a resting order. It reports false with no side effects
// when the id is unknown; a second cancel of the same id therefore fails.
func (b *Book) Cancel(id OrderID) bool {
	order, ok := b.index[id]
	if !ok {
		return false
	}

	remaining := order.Remaining
	price := order.Price
	side := order.Side
	b.unlist(order)

	b.publish(Event{
		Type:    EventCancel,
		Side:    side,
		Price:   price,
		Size:    remaining,
		OrderID: id,
	})
	return true
}

func (b *Book) limit(side Side, size, price decimal.Decimal) (PlaceResult, error) {
	if err := validate(size, price); err != nil {
		return PlaceResult{}, err
	}

	residual := b.walk(side, price, size, false)
	if residual.IsZero() {
		return PlaceResult{Status: FullyFilled}, nil
	}

	b.lastID++
	order := &Order{
		ID:        b.lastID,
		Side:      side,
		Price:     price,
		Remaining: residual,
	}
	b.sameSide(side).append(order)
	b.index[order.ID] = order

	b.publish(Event{
		Type:    EventOpen,
		Side:    side,
		Price:   price,
		Size:    residual,
		OrderID: order.ID,
	})
	return PlaceResult{Status: Posted, OrderID: order.ID}, nil
}

func (b *Book) fok(side Side, size, price decimal.Decimal) (bool, error) {
	if err := validate(size, price); err != nil {
		return false, err
	}

	// Probe: same traversal, no mutation, no events.
	if b.walk(side, price, size, true).IsPositive() {
		return false, nil
	}

	// Commit: the probe guarantees a zero residual because nothing can
	// mutate the book between the two passes.
	b.walk(side, price, size, false)
	return true, nil
}

// walk crosses the opposing side best price first, oldest order first
// within a level, and returns the unfilled residual. With dryRun set it
// only computes the residual: level totals are maintained on every
// mutation, so subtracting them level by level yields the same residual as
// consuming the queues head by head.
func (b *Book) walk(taker Side, price, qty decimal.Decimal, dryRun bool) decimal.Decimal {
	opposing := b.opposing(taker)

	if dryRun {
		for el := opposing.levels.Front(); el != nil && qty.IsPositive(); el = el.Next() {
			level, _ := el.Value.(*priceLevel)
			if !crosses(taker, price, level.price) {
				break
			}
			qty = qty.Sub(level.totalSize)
		}
		if qty.IsNegative() {
			return decimal.Zero
		}
		return qty
	}

	for qty.IsPositive() {
		level := opposing.best()
		if level == nil || !crosses(taker, price, level.price) {
			break
		}

		maker := level.head
		if maker.Remaining.LessThanOrEqual(qty) {
			filled := maker.Remaining
			b.publishMatch(taker, maker.ID, filled, level.price)
			qty = qty.Sub(filled)
			b.unlist(maker)
		} else {
			// Partial fill: the maker is decremented in place and
			// keeps its head position and index entry.
			b.publishMatch(taker, maker.ID, qty, level.price)
			opposing.reduce(maker, qty)
			qty = decimal.Zero
		}
	}

	return qty
}

// unlist is the single removal path shared by full fills and cancels, so
// the index and the level queue never disagree about liveness.
func (b *Book) unlist(order *Order) {
	b.sameSide(order.Side).unlink(order)
	delete(b.index, order.ID)
}

func (b *Book) sameSide(side Side) *sideBook {
	if side == Buy {
		return b.bids
	}
	return b.asks
}

func (b *Book) opposing(side Side) *sideBook {
	if side == Buy {
		return b.asks
	}
	return b.bids
}

func (b *Book) publish(ev Event) {
	b.seq++
	ev.Sequence = b.seq
	ev.CreatedAt = time.Now().UTC()
	b.publisher.Publish(ev)
}

func (b *Book) publishMatch(taker Side, maker OrderID, size, price decimal.Decimal) {
	b.tradeID++
	b.publish(Event{
		TradeID:      b.tradeID,
		Type:         EventMatch,
		Side:         taker,
		Price:        price,
		Size:         size,
		MakerOrderID: maker,
	})
}

// crosses reports whether a taker at takerPrice executes against a maker
// at makerPrice: buys cross at or above, sells at or below.
func crosses(taker Side, takerPrice, makerPrice decimal.Decimal) bool {
	if taker == Buy {
		return takerPrice.GreaterThanOrEqual(makerPrice)
	}
	return takerPrice.LessThanOrEqual(makerPrice)
}

// validate rejects malformed input before any state is touched.
func validate(size, price decimal.Decimal) error {
	if !size.IsPositive() || !price.IsPositive() {
		return ErrInvalidParam
	}
	return nil
}
