package venue

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"orderbook-aggregator/internal/config"
	"orderbook-aggregator/internal/depth"
)

// Converter turns one raw venue frame into a snapshot. It reports false for
// anything that is not a depth update: acks, heartbeats, malformed payloads.
type Converter interface {
	Venue() depth.Venue
	Convert(raw []byte) (depth.Snapshot, bool)
}

// Adapter is a Converter that also knows how to reach its venue.
type Adapter interface {
	Converter
	URL() string
	// Subscribe is the first frame to send after dialing; nil when none is needed.
	Subscribe() []byte
}

// New builds the adapter for v from its configuration block.
func New(v depth.Venue, pair string, vc config.VenueConfig) (Adapter, error) {
	switch v {
	case depth.Bitstamp:
		return NewBitstamp(vc.URL, pair, vc.Depth), nil
	case depth.Binance:
		return NewBinance(vc.URL, pair, vc.Depth), nil
	}
	return nil, fmt.Errorf("no adapter for %s", v)
}

// parseLevels converts [["price","amount"], ...] rows. Any bad row rejects the
// whole side so a half-parsed book never reaches the aggregator.
func parseLevels(v depth.Venue, rows [][]string, limit int) ([]depth.Level, bool) {
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]depth.Level, 0, len(rows))
	for _, r := range rows {
		if len(r) < 2 {
			return nil, false
		}
		p, err := decimal.NewFromString(strings.TrimSpace(r[0]))
		if err != nil {
			return nil, false
		}
		a, err := decimal.NewFromString(strings.TrimSpace(r[1]))
		if err != nil {
			return nil, false
		}
		out = append(out, depth.NewLevel(v, p, a))
	}
	return out, true
}
