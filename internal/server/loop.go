package server

import (
	"fmt"

	"github.com/shopspring/decimal"

	"kestrel/internal/book"
	"kestrel/internal/protocol"
)

// loop is the single goroutine that owns the book. Handling a command,
// fanning out the events it produced and answering the requester all
// happen here, so the core needs no locking at all.
func (s *Server) loop() error {
	for {
		select {
		case <-s.t.Dying():
			return nil
		case cmd := <-s.commands:
			resp := s.handle(cmd.sess, cmd.req)
			s.dispatch(s.feed.take())
			s.respond(cmd.sess, resp)
		}
	}
}

func (s *Server) handle(sess *session, req protocol.Request) protocol.Response {
	resp := protocol.Response{ID: req.ID}
	switch req.Type {
	case protocol.ReqLimit:
		size, price, err := parseAmounts(req)
		if err != nil {
			return reject(resp, err)
		}
		var res book.PlaceResult
		switch req.Side {
		case protocol.SideBuy:
			res, err = s.book.LimitBuy(size, price)
		case protocol.SideSell:
			res, err = s.book.LimitSell(size, price)
		default:
			err = fmt.Errorf("unknown side %d", req.Side)
		}
		if err != nil {
			return reject(resp, err)
		}
		resp.OrderID = uint64(res.OrderID)
		if res.Status == book.Posted {
			resp.Status = protocol.StatusPosted
			s.owners[res.OrderID] = &restingOrder{
				sess:      sess,
				remaining: s.book.Remaining(res.OrderID).String(),
			}
		} else {
			resp.Status = protocol.StatusFilled
		}

	case protocol.ReqFOK:
		size, price, err := parseAmounts(req)
		if err != nil {
			return reject(resp, err)
		}
		var executed bool
		switch req.Side {
		case protocol.SideBuy:
			executed, err = s.book.FOKBuy(size, price)
		case protocol.SideSell:
			executed, err = s.book.FOKSell(size, price)
		default:
			err = fmt.Errorf("unknown side %d", req.Side)
		}
		if err != nil {
			return reject(resp, err)
		}
		if executed {
			resp.Status = protocol.StatusExecuted
		} else {
			resp.Status = protocol.StatusKilled
		}

	case protocol.ReqCancel:
		id := book.OrderID(req.OrderID)
		if s.book.Cancel(id) {
			resp.Status = protocol.StatusCancelled
			delete(s.owners, id)
		} else {
			resp.Status = protocol.StatusNotFound
		}
		resp.OrderID = req.OrderID

	case protocol.ReqDepth:
		limit := req.Limit
		if limit == 0 {
			limit = 50
		}
		resp.Status = protocol.StatusDepth
		resp.Depth = wireDepth(s.book.Depth(limit))

	case protocol.ReqSubscribe:
		sess.subscribed = true
		resp.Status = protocol.StatusSubscribed

	default:
		return reject(resp, fmt.Errorf("unknown request type %d", req.Type))
	}
	return resp
}

// dispatch fans out book events: every subscribed session gets the feed,
// and the owner of a resting order that traded or was cancelled gets an
// execution report.
func (s *Server) dispatch(events []book.Event) {
	for _, ev := range events {
		wire := wireEvent(ev)
		payload, err := s.ser.Marshal(wire)
		if err != nil {
			s.log.Error().Err(err).Msg("marshal event")
			continue
		}
		s.broadcast(payload)
		if ev.Type == book.EventMatch {
			s.reportFill(ev, wire)
		}
	}
}

func (s *Server) reportFill(ev book.Event, wire protocol.Event) {
	resting, ok := s.owners[ev.MakerOrderID]
	if !ok {
		return
	}
	left, err := decimal.NewFromString(resting.remaining)
	if err == nil {
		left = left.Sub(ev.Size)
		resting.remaining = left.String()
		if !left.IsPositive() {
			delete(s.owners, ev.MakerOrderID)
		}
	}
	payload, err := s.ser.Marshal(wire)
	if err != nil {
		return
	}
	if err := resting.sess.write(protocol.MsgReport, payload); err != nil {
		s.log.Debug().Str("session", resting.sess.id).Err(err).Msg("drop execution report")
	}
}

func (s *Server) broadcast(payload []byte) {
	s.sessionMu.Lock()
	targets := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		targets = append(targets, sess)
	}
	s.sessionMu.Unlock()
	for _, sess := range targets {
		if !sess.subscribed {
			continue
		}
		if err := sess.write(protocol.MsgEvent, payload); err != nil {
			s.log.Debug().Str("session", sess.id).Err(err).Msg("drop feed event")
		}
	}
}

func (s *Server) respond(sess *session, resp protocol.Response) {
	payload, err := s.ser.Marshal(resp)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal response")
		return
	}
	if err := sess.write(protocol.MsgResponse, payload); err != nil {
		s.log.Debug().Str("session", sess.id).Err(err).Msg("drop response")
	}
}

func reject(resp protocol.Response, err error) protocol.Response {
	resp.Status = protocol.StatusRejected
	resp.Reason = err.Error()
	return resp
}

func parseAmounts(req protocol.Request) (size, price decimal.Decimal, err error) {
	size, err = decimal.NewFromString(req.Size)
	if err != nil {
		return size, price, fmt.Errorf("size: %w", err)
	}
	price, err = decimal.NewFromString(req.Price)
	if err != nil {
		return size, price, fmt.Errorf("price: %w", err)
	}
	return size, price, nil
}
