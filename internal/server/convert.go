package server

import (
	"kestrel/internal/book"
	"kestrel/internal/protocol"
)

func wireDepth(depth book.Depth) *protocol.Depth {
	out := &protocol.Depth{
		UpdateID: depth.UpdateID,
		Bids:     make([]protocol.DepthItem, 0, len(depth.Bids)),
		Asks:     make([]protocol.DepthItem, 0, len(depth.Asks)),
	}
	for _, item := range depth.Bids {
		out.Bids = append(out.Bids, protocol.DepthItem{Price: item.Price.String(), Size: item.Size.String(), Count: item.Count})
	}
	for _, item := range depth.Asks {
		out.Asks = append(out.Asks, protocol.DepthItem{Price: item.Price.String(), Size: item.Size.String(), Count: item.Count})
	}
	return out
}

func wireEvent(ev book.Event) protocol.Event {
	return protocol.Event{
		Sequence:     ev.Sequence,
		TradeID:      ev.TradeID,
		Type:         protocol.EventType(ev.Type),
		Side:         protocol.Side(ev.Side),
		Price:        ev.Price.String(),
		Size:         ev.Size.String(),
		OrderID:      uint64(ev.OrderID),
		MakerOrderID: uint64(ev.MakerOrderID),
	}
}
