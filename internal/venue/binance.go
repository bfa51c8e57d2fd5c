package venue

import (
	"encoding/json"
	"fmt"
	"strings"

	"orderbook-aggregator/internal/depth"
)

// Binance reads the partial book depth stream <pair>@depth<N>@100ms, where
// every frame is already a full top-N snapshot.
type Binance struct {
	url   string
	limit int
}

// Binance only serves partial depth streams of these sizes.
var binanceLevels = []int{5, 10, 20}

func NewBinance(baseURL, pair string, limit int) *Binance {
	n := binanceLevels[len(binanceLevels)-1]
	for _, l := range binanceLevels {
		if limit <= l {
			n = l
			break
		}
	}
	url := fmt.Sprintf("%s/%s@depth%d@100ms", strings.TrimRight(baseURL, "/"), pair, n)
	return &Binance{url: url, limit: limit}
}

func (b *Binance) Venue() depth.Venue { return depth.Binance }
func (b *Binance) URL() string        { return b.url }
func (b *Binance) Subscribe() []byte  { return nil }

type binanceFrame struct {
	LastUpdateID *int64     `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

func (b *Binance) Convert(raw []byte) (depth.Snapshot, bool) {
	var f binanceFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return depth.Snapshot{}, false
	}
	if f.LastUpdateID == nil {
		return depth.Snapshot{}, false
	}
	bids, ok := parseLevels(depth.Binance, f.Bids, b.limit)
	if !ok {
		return depth.Snapshot{}, false
	}
	asks, ok := parseLevels(depth.Binance, f.Asks, b.limit)
	if !ok {
		return depth.Snapshot{}, false
	}
	return depth.Snapshot{Venue: depth.Binance, Bids: bids, Asks: asks}, true
}
