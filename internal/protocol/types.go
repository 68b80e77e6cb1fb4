// Package protocol defines the wire contract between the exchange server
// and its clients. Prices and sizes travel as strings to prevent precision
// loss in JSON.
package protocol

// RequestType identifies the operation a request carries.
type RequestType uint8

const (
	ReqUnknown   RequestType = 0
	ReqLimit     RequestType = 1
	ReqFOK       RequestType = 2
	ReqCancel    RequestType = 3
	ReqDepth     RequestType = 4
	ReqSubscribe RequestType = 5
)

// Side represents the order side (Buy/Sell).
type Side int8

const (
	SideBuy  Side = 1
	SideSell Side = 2
)

// Request is the standard carrier for client commands. ID correlates the
// response on a connection that also carries asynchronous events.
type Request struct {
	ID      string      `json:"id"`
	Type    RequestType `json:"type"`
	Side    Side        `json:"side,omitempty"`
	Price   string      `json:"price,omitempty"`
	Size    string      `json:"size,omitempty"`
	OrderID uint64      `json:"order_id,omitempty"` // cancel target
	Limit   uint32      `json:"limit,omitempty"`    // depth levels
}

// Status is the tagged outcome of a request.
type Status string

const (
	// StatusPosted: a limit order residual rests in the book under OrderID.
	StatusPosted Status = "posted"
	// StatusFilled: a limit order executed completely; no resting order.
	StatusFilled Status = "filled"
	// StatusExecuted: a FOK order filled its entire quantity.
	StatusExecuted Status = "executed"
	// StatusKilled: a FOK order could not fill completely; nothing happened.
	StatusKilled Status = "killed"
	// StatusCancelled: the cancel target was removed.
	StatusCancelled Status = "cancelled"
	// StatusNotFound: the cancel target does not exist.
	StatusNotFound Status = "not_found"
	// StatusSubscribed: the session now receives the event feed.
	StatusSubscribed Status = "subscribed"
	// StatusDepth: the response carries a depth snapshot.
	StatusDepth Status = "depth"
	// StatusRejected: malformed request; Reason explains why.
	StatusRejected Status = "rejected"
)

// Response answers exactly one Request, matched by ID.
type Response struct {
	ID      string `json:"id"`
	Status  Status `json:"status"`
	OrderID uint64 `json:"order_id,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Depth   *Depth `json:"depth,omitempty"`
}

// DepthItem is one aggregated price level.
type DepthItem struct {
	Price string `json:"price"`
	Size  string `json:"size"`
	Count int64  `json:"count"`
}

// Depth is a best-first snapshot of both sides.
type Depth struct {
	UpdateID uint64      `json:"update_id"`
	Bids     []DepthItem `json:"bids"`
	Asks     []DepthItem `json:"asks"`
}

// EventType classifies feed events.
type EventType string

const (
	EventOpen   EventType = "open"
	EventMatch  EventType = "match"
	EventCancel EventType = "cancel"
)

// Event mirrors one book event onto the wire. Match events report the
// resting order (MakerOrderID), the quantity exchanged and the resting
// order's price; Side is the taker's side.
type Event struct {
	Sequence     uint64    `json:"seq_id"`
	TradeID      uint64    `json:"trade_id,omitempty"`
	Type         EventType `json:"type"`
	Side         Side      `json:"side"`
	Price        string    `json:"price"`
	Size         string    `json:"size"`
	OrderID      uint64    `json:"order_id,omitempty"`
	MakerOrderID uint64    `json:"maker_order_id,omitempty"`
}
