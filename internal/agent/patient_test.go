package agent

import (
	"math/rand/v2"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"kestrel/internal/book"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewPCG(7, 7))
}

func testConfig() Config {
	return Config{
		PlacementRate:    2,
		CancellationRate: 1,
		OrderSize:        decimal.NewFromInt(10),
		ReferencePrice:   decimal.NewFromInt(100),
		PriceVol:         0.05,
	}
}

func TestPatientPlacesPassiveOrders(t *testing.T) {
	ref := decimal.NewFromInt(100)
	var placed []struct {
		side  book.Side
		price decimal.Decimal
	}
	nextID := uint64(0)
	p := NewPatient(testConfig(), testRNG(), zerolog.Nop(),
		func(side book.Side, size, price decimal.Decimal) (uint64, bool, error) {
			require.True(t, size.Equal(decimal.NewFromInt(10)))
			placed = append(placed, struct {
				side  book.Side
				price decimal.Decimal
			}{side, price})
			nextID++
			return nextID, true, nil
		},
		func(orderID uint64) (bool, error) { return true, nil },
		func(side book.Side) (decimal.Decimal, bool) { return decimal.Decimal{}, false },
	)

	for i := 0; i < 50; i++ {
		require.NoError(t, p.Act())
	}
	require.NotEmpty(t, placed)

	for _, o := range placed {
		if o.side == book.Buy {
			require.True(t, o.price.LessThanOrEqual(ref), "buy at %s above reference", o.price)
		} else {
			require.True(t, o.price.GreaterThanOrEqual(ref), "sell at %s below reference", o.price)
		}
		require.True(t, o.price.IsPositive())
	}
}

func TestPatientAnchorsOnBestQuote(t *testing.T) {
	bestBid := decimal.NewFromInt(90)
	var buyPrices []decimal.Decimal
	p := NewPatient(testConfig(), testRNG(), zerolog.Nop(),
		func(side book.Side, size, price decimal.Decimal) (uint64, bool, error) {
			if side == book.Buy {
				buyPrices = append(buyPrices, price)
			}
			return 1, true, nil
		},
		func(orderID uint64) (bool, error) { return true, nil },
		func(side book.Side) (decimal.Decimal, bool) {
			if side == book.Buy {
				return bestBid, true
			}
			return decimal.Decimal{}, false
		},
	)

	for i := 0; i < 50; i++ {
		require.NoError(t, p.Act())
	}
	require.NotEmpty(t, buyPrices)
	for _, price := range buyPrices {
		require.True(t, price.LessThanOrEqual(bestBid), "buy at %s above best bid", price)
	}
}

func TestPatientCancelsOwnOrders(t *testing.T) {
	cancelled := map[uint64]bool{}
	placedIDs := map[uint64]bool{}
	nextID := uint64(0)
	p := NewPatient(testConfig(), testRNG(), zerolog.Nop(),
		func(side book.Side, size, price decimal.Decimal) (uint64, bool, error) {
			nextID++
			placedIDs[nextID] = true
			return nextID, true, nil
		},
		func(orderID uint64) (bool, error) {
			cancelled[orderID] = true
			return true, nil
		},
		func(side book.Side) (decimal.Decimal, bool) { return decimal.Decimal{}, false },
	)

	for i := 0; i < 100; i++ {
		require.NoError(t, p.Act())
	}
	require.NotEmpty(t, cancelled)
	for id := range cancelled {
		require.True(t, placedIDs[id], "cancelled id %d never placed", id)
	}
	require.Equal(t, len(placedIDs)-len(cancelled), p.ActiveOrders())
}

func TestPatientDropsMissedCancels(t *testing.T) {
	nextID := uint64(0)
	seen := map[uint64]int{}
	p := NewPatient(testConfig(), testRNG(), zerolog.Nop(),
		func(side book.Side, size, price decimal.Decimal) (uint64, bool, error) {
			nextID++
			return nextID, true, nil
		},
		// Every cancel misses, as if the orders all traded away. A missed
		// order must still be forgotten, never retried.
		func(orderID uint64) (bool, error) {
			seen[orderID]++
			return false, nil
		},
		func(side book.Side) (decimal.Decimal, bool) { return decimal.Decimal{}, false },
	)

	for i := 0; i < 100; i++ {
		require.NoError(t, p.Act())
	}
	require.NotEmpty(t, seen)
	for id, n := range seen {
		require.LessOrEqual(t, n, 1, "order %d cancelled twice", id)
	}
}

func TestPoissonMean(t *testing.T) {
	rng := testRNG()
	const lambda = 3.0
	const samples = 20000
	total := 0
	for i := 0; i < samples; i++ {
		total += poisson(rng, lambda)
	}
	mean := float64(total) / samples
	require.InDelta(t, lambda, mean, 0.1)
	require.Zero(t, poisson(rng, 0))
}
