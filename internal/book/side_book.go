package book

import (
	"github.com/huandu/skiplist"
	"github.com/shopspring/decimal"
)

// priceLevel is the FIFO of all resting orders at one price, oldest first.
// A level exists in its sideBook iff the queue is non-empty.
type priceLevel struct {
	price     decimal.Decimal
	head      *Order
	tail      *Order
	totalSize decimal.Decimal
	count     int64

	// Back-reference to the skiplist node so an emptied level can be
	// dropped without a second lookup.
	elem *skiplist.Element
}

type sideBook struct {
	side        Side
	levels      *skiplist.SkipList
	totalOrders int64
}

// newBidBook creates the buy side, best (highest) price first.
func newBidBook() *sideBook {
	return &sideBook{
		side: Buy,
		levels: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			d1, _ := lhs.(decimal.Decimal)
			d2, _ := rhs.(decimal.Decimal)
			return d2.Cmp(d1)
		})),
	}
}

// newAskBook creates the sell side, best (lowest) price first.
func newAskBook() *sideBook {
	return &sideBook{
		side: Sell,
		levels: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			d1, _ := lhs.(decimal.Decimal)
			d2, _ := rhs.(decimal.Decimal)
			return d1.Cmp(d2)
		})),
	}
}

// append enqueues an order at the tail of its price level, creating the
// level at the correct rank if it does not exist yet.
func (sb *sideBook) append(order *Order) {
	var level *priceLevel
	if el := sb.levels.Get(order.Price); el != nil {
		level, _ = el.Value.(*priceLevel)
	} else {
		level = &priceLevel{price: order.Price}
		level.elem = sb.levels.Set(order.Price, level)
	}

	order.prev = level.tail
	order.next = nil
	if level.tail != nil {
		level.tail.next = order
	}
	level.tail = order
	if level.head == nil {
		level.head = order
	}

	order.level = level
	level.totalSize = level.totalSize.Add(order.Remaining)
	level.count++
	sb.totalOrders++
}

// unlink removes an order from its level in O(1) and drops the level the
// instant its queue empties. This is the only removal path; full fills and
// cancels both go through it.
func (sb *sideBook) unlink(order *Order) {
	level := order.level
	if level == nil {
		return
	}

	if order.prev != nil {
		order.prev.next = order.next
	} else {
		level.head = order.next
	}
	if order.next != nil {
		order.next.prev = order.prev
	} else {
		level.tail = order.prev
	}
	order.next = nil
	order.prev = nil
	order.level = nil

	level.totalSize = level.totalSize.Sub(order.Remaining)
	level.count--
	sb.totalOrders--

	if level.count == 0 {
		sb.levels.RemoveElement(level.elem)
		level.elem = nil
	}
}

// reduce shrinks an order in place after a partial fill. The order keeps
// its queue position.
func (sb *sideBook) reduce(order *Order, qty decimal.Decimal) {
	order.Remaining = order.Remaining.Sub(qty)
	order.level.totalSize = order.level.totalSize.Sub(qty)
}

// best returns the best-priced level, or nil when the side is empty.
func (sb *sideBook) best() *priceLevel {
	el := sb.levels.Front()
	if el == nil {
		return nil
	}
	level, _ := el.Value.(*priceLevel)
	return level
}

func (sb *sideBook) orderCount() int64 {
	return sb.totalOrders
}

func (sb *sideBook) levelCount() int64 {
	return int64(sb.levels.Len())
}

// depth aggregates the side's levels best-first up to limit.
func (sb *sideBook) depth(limit uint32) []DepthItem {
	result := make([]DepthItem, 0, limit)

	el := sb.levels.Front()
	var i uint32
	for i < limit && el != nil {
		level, _ := el.Value.(*priceLevel)
		result = append(result, DepthItem{
			Price: level.price,
			Size:  level.totalSize,
			Count: level.count,
		})
		el = el.Next()
		i++
	}

	return result
}
