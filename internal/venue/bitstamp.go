package venue

import (
	"encoding/json"
	"fmt"

	"orderbook-aggregator/internal/depth"
)

// Bitstamp speaks the v2 WebSocket API, order_book_<pair> channel (top 100 levels).
type Bitstamp struct {
	url     string
	channel string
	limit   int
}

func NewBitstamp(url, pair string, limit int) *Bitstamp {
	return &Bitstamp{url: url, channel: "order_book_" + pair, limit: limit}
}

func (b *Bitstamp) Venue() depth.Venue { return depth.Bitstamp }
func (b *Bitstamp) URL() string        { return b.url }

func (b *Bitstamp) Subscribe() []byte {
	return []byte(fmt.Sprintf(`{"event":"bts:subscribe","data":{"channel":%q}}`, b.channel))
}

type bitstampFrame struct {
	Event   string `json:"event"`
	Channel string `json:"channel"`
	Data    struct {
		Bids [][]string `json:"bids"`
		Asks [][]string `json:"asks"`
	} `json:"data"`
}

func (b *Bitstamp) Convert(raw []byte) (depth.Snapshot, bool) {
	var f bitstampFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return depth.Snapshot{}, false
	}
	// bts:subscription_succeeded, bts:heartbeat, bts:request_reconnect, ...
	if f.Event != "data" || f.Channel != b.channel {
		return depth.Snapshot{}, false
	}
	bids, ok := parseLevels(depth.Bitstamp, f.Data.Bids, b.limit)
	if !ok {
		return depth.Snapshot{}, false
	}
	asks, ok := parseLevels(depth.Bitstamp, f.Data.Asks, b.limit)
	if !ok {
		return depth.Snapshot{}, false
	}
	return depth.Snapshot{Venue: depth.Bitstamp, Bids: bids, Asks: asks}, true
}
