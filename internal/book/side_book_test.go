package book

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSideBookOrdering(t *testing.T) {
	t.Run("bids best first descending", func(t *testing.T) {
		sb := newBidBook()
		for _, p := range []int64{80, 200, 130} {
			sb.append(&Order{Side: Buy, Price: d(p), Remaining: d(1)})
		}

		items := sb.depth(10)
		require.Len(t, items, 3)
		assert.Equal(t, "200", items[0].Price.String())
		assert.Equal(t, "130", items[1].Price.String())
		assert.Equal(t, "80", items[2].Price.String())
	})

	t.Run("asks best first ascending", func(t *testing.T) {
		sb := newAskBook()
		for _, p := range []int64{120, 100, 110} {
			sb.append(&Order{Side: Sell, Price: d(p), Remaining: d(1)})
		}

		items := sb.depth(10)
		require.Len(t, items, 3)
		assert.Equal(t, "100", items[0].Price.String())
		assert.Equal(t, "120", items[2].Price.String())
	})
}

func TestSideBookFIFO(t *testing.T) {
	sb := newAskBook()
	first := &Order{ID: 1, Side: Sell, Price: d(100), Remaining: d(5)}
	second := &Order{ID: 2, Side: Sell, Price: d(100), Remaining: d(7)}
	sb.append(first)
	sb.append(second)

	level := sb.best()
	require.NotNil(t, level)
	assert.Equal(t, first, level.head)
	assert.Equal(t, second, level.tail)
	assert.Equal(t, "12", level.totalSize.String())
	assert.Equal(t, int64(2), level.count)

	// Unlinking the head promotes the next order.
	sb.unlink(first)
	assert.Equal(t, second, sb.best().head)
	assert.Equal(t, "7", sb.best().totalSize.String())

	// Unlinking the last order drops the level immediately.
	sb.unlink(second)
	assert.Nil(t, sb.best())
	assert.Zero(t, sb.levelCount())
	assert.Zero(t, sb.orderCount())
}

func TestSideBookUnlinkMiddle(t *testing.T) {
	sb := newBidBook()
	a := &Order{ID: 1, Side: Buy, Price: d(50), Remaining: d(1)}
	b := &Order{ID: 2, Side: Buy, Price: d(50), Remaining: d(2)}
	c := &Order{ID: 3, Side: Buy, Price: d(50), Remaining: d(3)}
	sb.append(a)
	sb.append(b)
	sb.append(c)

	sb.unlink(b)

	level := sb.best()
	assert.Equal(t, a, level.head)
	assert.Equal(t, c, level.tail)
	assert.Equal(t, c, a.next)
	assert.Equal(t, a, c.prev)
	assert.Equal(t, "4", level.totalSize.String())
}

func TestSideBookReduce(t *testing.T) {
	sb := newAskBook()
	o := &Order{ID: 1, Side: Sell, Price: d(100), Remaining: d(10)}
	sb.append(o)

	sb.reduce(o, decimal.NewFromInt(4))

	assert.Equal(t, "6", o.Remaining.String())
	assert.Equal(t, "6", sb.best().totalSize.String())
	assert.Equal(t, o, sb.best().head)
	assert.Equal(t, int64(1), sb.orderCount())
}
