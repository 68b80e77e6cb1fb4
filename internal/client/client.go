// Package client is the programmatic counterpart of the exchange server.
// One connection multiplexes request/response pairs, the market data
// feed and execution reports; responses are correlated by request id.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"kestrel/internal/book"
	"kestrel/internal/protocol"
)

// ErrClosed is returned by calls made after the connection went away.
var ErrClosed = errors.New("client: connection closed")

// ReportFunc receives execution reports for this client's resting orders.
type ReportFunc func(protocol.Event)

type Option func(*Client)

// WithLogger replaces the default no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.log = logger }
}

// OnReport installs a callback invoked from the read loop whenever one of
// this client's resting orders trades. The callback must not block.
func OnReport(fn ReportFunc) Option {
	return func(c *Client) { c.onReport = fn }
}

// Placement is the outcome of a limit order.
type Placement struct {
	OrderID uint64
	// Posted is true when a residual rests in the book; false means the
	// order filled completely on entry.
	Posted bool
}

type Client struct {
	conn net.Conn
	ser  protocol.Serializer
	log  zerolog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan protocol.Response
	closed  bool

	viewMu sync.Mutex
	view   *book.DepthView

	onReport ReportFunc
	done     chan struct{}
}

// Dial connects to an exchange server over "unix" or "tcp" and starts the
// read loop. Close releases the connection.
func Dial(network, address string, opts ...Option) (*Client, error) {
	conn, err := net.Dial(network, address)
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn:    conn,
		ser:     protocol.JSONSerializer{},
		log:     zerolog.Nop(),
		pending: make(map[string]chan protocol.Response),
		view:    book.NewDepthView(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) Close() error {
	err := c.conn.Close()
	<-c.done
	return err
}

// LimitBuy submits a limit buy; see Placement for the outcome.
func (c *Client) LimitBuy(ctx context.Context, size, price decimal.Decimal) (Placement, error) {
	return c.limit(ctx, protocol.SideBuy, size, price)
}

// LimitSell submits a limit sell.
func (c *Client) LimitSell(ctx context.Context, size, price decimal.Decimal) (Placement, error) {
	return c.limit(ctx, protocol.SideSell, size, price)
}

// FOKBuy submits a fill-or-kill buy and reports whether it executed.
func (c *Client) FOKBuy(ctx context.Context, size, price decimal.Decimal) (bool, error) {
	return c.fok(ctx, protocol.SideBuy, size, price)
}

// FOKSell submits a fill-or-kill sell.
func (c *Client) FOKSell(ctx context.Context, size, price decimal.Decimal) (bool, error) {
	return c.fok(ctx, protocol.SideSell, size, price)
}

// Cancel removes a resting order. It returns false when the order is not
// in the book, which usually means it already filled.
func (c *Client) Cancel(ctx context.Context, orderID uint64) (bool, error) {
	resp, err := c.do(ctx, protocol.Request{Type: protocol.ReqCancel, OrderID: orderID})
	if err != nil {
		return false, err
	}
	switch resp.Status {
	case protocol.StatusCancelled:
		return true, nil
	case protocol.StatusNotFound:
		return false, nil
	}
	return false, statusError(resp)
}

// Depth fetches an aggregated snapshot of both sides, best first.
func (c *Client) Depth(ctx context.Context, limit uint32) (protocol.Depth, error) {
	resp, err := c.do(ctx, protocol.Request{Type: protocol.ReqDepth, Limit: limit})
	if err != nil {
		return protocol.Depth{}, err
	}
	if resp.Status != protocol.StatusDepth || resp.Depth == nil {
		return protocol.Depth{}, statusError(resp)
	}
	return *resp.Depth, nil
}

// Subscribe turns on the market data feed for this connection. The feed
// drives the client's DepthView.
func (c *Client) Subscribe(ctx context.Context) error {
	resp, err := c.do(ctx, protocol.Request{Type: protocol.ReqSubscribe})
	if err != nil {
		return err
	}
	if resp.Status != protocol.StatusSubscribed {
		return statusError(resp)
	}
	return nil
}

// Best returns the best price on a side of the feed-maintained view.
func (c *Client) Best(side book.Side) (decimal.Decimal, bool) {
	c.viewMu.Lock()
	defer c.viewMu.Unlock()
	return c.view.Best(side)
}

// ViewSequence reports the last event sequence applied to the view.
func (c *Client) ViewSequence() uint64 {
	c.viewMu.Lock()
	defer c.viewMu.Unlock()
	return c.view.Sequence()
}

func (c *Client) limit(ctx context.Context, side protocol.Side, size, price decimal.Decimal) (Placement, error) {
	resp, err := c.do(ctx, protocol.Request{
		Type:  protocol.ReqLimit,
		Side:  side,
		Size:  size.String(),
		Price: price.String(),
	})
	if err != nil {
		return Placement{}, err
	}
	switch resp.Status {
	case protocol.StatusPosted:
		return Placement{OrderID: resp.OrderID, Posted: true}, nil
	case protocol.StatusFilled:
		return Placement{OrderID: resp.OrderID}, nil
	}
	return Placement{}, statusError(resp)
}

func (c *Client) fok(ctx context.Context, side protocol.Side, size, price decimal.Decimal) (bool, error) {
	resp, err := c.do(ctx, protocol.Request{
		Type:  protocol.ReqFOK,
		Side:  side,
		Size:  size.String(),
		Price: price.String(),
	})
	if err != nil {
		return false, err
	}
	switch resp.Status {
	case protocol.StatusExecuted:
		return true, nil
	case protocol.StatusKilled:
		return false, nil
	}
	return false, statusError(resp)
}

func (c *Client) do(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	req.ID = xid.New().String()
	ch := make(chan protocol.Response, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return protocol.Response{}, ErrClosed
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
	}()

	payload, err := c.ser.Marshal(req)
	if err != nil {
		return protocol.Response{}, err
	}
	c.writeMu.Lock()
	err = protocol.WriteFrame(c.conn, protocol.MsgRequest, payload)
	c.writeMu.Unlock()
	if err != nil {
		return protocol.Response{}, err
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-c.done:
		return protocol.Response{}, ErrClosed
	case <-ctx.Done():
		return protocol.Response{}, ctx.Err()
	}
}

func (c *Client) readLoop() {
	defer func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
	}()
	for {
		kind, payload, err := protocol.ReadFrame(c.conn)
		if err != nil {
			return
		}
		switch kind {
		case protocol.MsgResponse:
			var resp protocol.Response
			if err := c.ser.Unmarshal(payload, &resp); err != nil {
				c.log.Warn().Err(err).Msg("bad response payload")
				continue
			}
			c.mu.Lock()
			ch, ok := c.pending[resp.ID]
			c.mu.Unlock()
			if ok {
				ch <- resp
			}
		case protocol.MsgEvent:
			c.applyEvent(payload)
		case protocol.MsgReport:
			if c.onReport == nil {
				continue
			}
			var ev protocol.Event
			if err := c.ser.Unmarshal(payload, &ev); err != nil {
				c.log.Warn().Err(err).Msg("bad report payload")
				continue
			}
			c.onReport(ev)
		}
	}
}

func (c *Client) applyEvent(payload []byte) {
	var wire protocol.Event
	if err := c.ser.Unmarshal(payload, &wire); err != nil {
		c.log.Warn().Err(err).Msg("bad event payload")
		return
	}
	ev, err := bookEvent(wire)
	if err != nil {
		c.log.Warn().Err(err).Msg("bad event fields")
		return
	}
	c.viewMu.Lock()
	err = c.view.Apply(ev)
	c.viewMu.Unlock()
	if err != nil {
		c.log.Warn().Uint64("seq", wire.Sequence).Err(err).Msg("event out of sequence")
	}
}

func bookEvent(wire protocol.Event) (book.Event, error) {
	price, err := decimal.NewFromString(wire.Price)
	if err != nil {
		return book.Event{}, fmt.Errorf("price: %w", err)
	}
	size, err := decimal.NewFromString(wire.Size)
	if err != nil {
		return book.Event{}, fmt.Errorf("size: %w", err)
	}
	return book.Event{
		Sequence:     wire.Sequence,
		TradeID:      wire.TradeID,
		Type:         book.EventType(wire.Type),
		Side:         book.Side(wire.Side),
		Price:        price,
		Size:         size,
		OrderID:      book.OrderID(wire.OrderID),
		MakerOrderID: book.OrderID(wire.MakerOrderID),
	}, nil
}

func statusError(resp protocol.Response) error {
	if resp.Reason != "" {
		return fmt.Errorf("server: %s: %s", resp.Status, resp.Reason)
	}
	return fmt.Errorf("server: unexpected status %q", resp.Status)
}
