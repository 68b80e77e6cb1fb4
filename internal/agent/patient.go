// Package agent contains synthetic order flow generators. A patient
// agent posts passive limit orders around the best quote and cancels
// its own resting orders, both at Poisson rates, producing a book with
// persistent depth.
package agent

import (
	"math"
	"math/rand/v2"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"kestrel/internal/book"
)

// PlaceFunc posts a limit order and reports the assigned id and whether a
// residual rests in the book.
type PlaceFunc func(side book.Side, size, price decimal.Decimal) (orderID uint64, posted bool, err error)

// CancelFunc removes a resting order; false means it was already gone.
type CancelFunc func(orderID uint64) (bool, error)

// BestFunc returns the best price on a side, or false when the side is
// empty.
type BestFunc func(side book.Side) (decimal.Decimal, bool)

// Config tunes a patient agent.
type Config struct {
	// PlacementRate is the expected number of new orders per tick.
	PlacementRate float64
	// CancellationRate is the expected number of cancel attempts per tick.
	CancellationRate float64
	// OrderSize is the quantity of every order the agent posts.
	OrderSize decimal.Decimal
	// ReferencePrice anchors quotes while the relevant side is empty.
	ReferencePrice decimal.Decimal
	// PriceVol is the sigma of the lognormal offset applied to the anchor.
	PriceVol float64
}

// Patient is a single agent. It is not safe for concurrent use; drive it
// from one goroutine.
type Patient struct {
	cfg    Config
	rng    *rand.Rand
	log    zerolog.Logger
	place  PlaceFunc
	cancel CancelFunc
	best   BestFunc

	active []uint64
}

func NewPatient(cfg Config, rng *rand.Rand, logger zerolog.Logger, place PlaceFunc, cancel CancelFunc, best BestFunc) *Patient {
	return &Patient{
		cfg:    cfg,
		rng:    rng,
		log:    logger,
		place:  place,
		cancel: cancel,
		best:   best,
	}
}

// Act runs one tick: a Poisson-distributed number of cancellations of the
// agent's own orders, then a Poisson-distributed number of new placements.
func (p *Patient) Act() error {
	if err := p.cancelSome(); err != nil {
		return err
	}
	return p.placeSome()
}

// ActiveOrders reports how many of the agent's orders it believes rest in
// the book.
func (p *Patient) ActiveOrders() int {
	return len(p.active)
}

func (p *Patient) cancelSome() error {
	n := poisson(p.rng, p.cfg.CancellationRate)
	for i := 0; i < n && len(p.active) > 0; i++ {
		idx := p.rng.IntN(len(p.active))
		id := p.active[idx]
		ok, err := p.cancel(id)
		if err != nil {
			return err
		}
		// A miss means the order traded away since we placed it, so it
		// is forgotten either way.
		p.active[idx] = p.active[len(p.active)-1]
		p.active = p.active[:len(p.active)-1]
		p.log.Debug().Uint64("order_id", id).Bool("cancelled", ok).Msg("cancel attempt")
	}
	return nil
}

func (p *Patient) placeSome() error {
	n := poisson(p.rng, p.cfg.PlacementRate)
	for i := 0; i < n; i++ {
		side := book.Buy
		if p.rng.IntN(2) == 1 {
			side = book.Sell
		}
		price := p.quote(side)
		if !price.IsPositive() {
			continue
		}
		id, posted, err := p.place(side, p.cfg.OrderSize, price)
		if err != nil {
			return err
		}
		if posted {
			p.active = append(p.active, id)
		}
		p.log.Debug().Stringer("side", side).Str("price", price.String()).Bool("posted", posted).Msg("placed order")
	}
	return nil
}

// quote draws a passive price: at or below the best bid for buys, at or
// above the best ask for sells, with a lognormal offset from the anchor.
func (p *Patient) quote(side book.Side) decimal.Decimal {
	anchor := p.cfg.ReferencePrice
	if best, ok := p.best(side); ok {
		anchor = best
	}
	offset := math.Exp(math.Abs(p.rng.NormFloat64()) * p.cfg.PriceVol)
	factor := 1 / offset
	if side == book.Sell {
		factor = offset
	}
	return anchor.Mul(decimal.NewFromFloat(factor)).Round(2)
}

// poisson samples a Poisson variate by Knuth's product method. Fine for
// the small rates agents use.
func poisson(rng *rand.Rand, lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	limit := math.Exp(-lambda)
	n := 0
	for product := rng.Float64(); product > limit; product *= rng.Float64() {
		n++
	}
	return n
}
