package venue

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"orderbook-aggregator/internal/config"
	"orderbook-aggregator/internal/depth"
)

const bitstampData = `{"data":{"timestamp":"1652103479","microtimestamp":"1652103479857383",
"bids":[["0.07358322","0.46500000"],["0.07357954","8.50000000"],["0.07357942","0.46500000"]],
"asks":[["0.07366569","0.46500000"],["0.07368584","16.30832712"]]},
"channel":"order_book_ethbtc","event":"data"}`

func TestBitstampConvert(t *testing.T) {
	b := NewBitstamp("wss://ws.bitstamp.net", "ethbtc", 2)
	snap, ok := b.Convert([]byte(bitstampData))
	if !ok {
		t.Fatal("expected snapshot")
	}
	if snap.Venue != depth.Bitstamp {
		t.Fatalf("venue got %v", snap.Venue)
	}
	if len(snap.Bids) != 2 || len(snap.Asks) != 2 {
		t.Fatalf("limit not applied: %d/%d", len(snap.Bids), len(snap.Asks))
	}
	if !snap.Bids[1].Amount.Equal(decimal.RequireFromString("8.5")) || snap.Bids[1].Venue != depth.Bitstamp {
		t.Fatalf("bad level %+v", snap.Bids[1])
	}
}

func TestBitstampIgnoresNonData(t *testing.T) {
	b := NewBitstamp("wss://ws.bitstamp.net", "ethbtc", 10)
	for _, raw := range []string{
		`{"event":"bts:subscription_succeeded","channel":"order_book_ethbtc","data":{}}`,
		`{"event":"bts:heartbeat","channel":"","data":{"status":"success"}}`,
		`{"event":"data","channel":"order_book_btcusd","data":{"bids":[],"asks":[]}}`,
		`{"event":"data","channel":"order_book_ethbtc","data":{"bids":[["x","1"]],"asks":[]}}`,
		`{"event":"data","channel":"order_book_ethbtc","data":{"bids":[["1"]],"asks":[]}}`,
		`not json`,
	} {
		if _, ok := b.Convert([]byte(raw)); ok {
			t.Fatalf("should ignore %s", raw)
		}
	}
}

func TestBitstampSubscribe(t *testing.T) {
	got := string(NewBitstamp("", "ethbtc", 10).Subscribe())
	if !strings.Contains(got, `"bts:subscribe"`) || !strings.Contains(got, `"order_book_ethbtc"`) {
		t.Fatalf("subscribe frame %s", got)
	}
}

func TestBinanceConvert(t *testing.T) {
	b := NewBinance("wss://stream.binance.com:9443/ws/", "ethbtc", 10)
	if b.URL() != "wss://stream.binance.com:9443/ws/ethbtc@depth10@100ms" {
		t.Fatalf("url got %s", b.URL())
	}
	if b.Subscribe() != nil {
		t.Fatal("binance needs no subscribe frame")
	}
	snap, ok := b.Convert([]byte(`{"lastUpdateId":160,"bids":[["0.0024","10"]],"asks":[["0.0026","100"],["0.0027","1"]]}`))
	if !ok {
		t.Fatal("expected snapshot")
	}
	if snap.Venue != depth.Binance || len(snap.Bids) != 1 || len(snap.Asks) != 2 {
		t.Fatalf("bad snapshot %+v", snap)
	}
	if !snap.Asks[0].Price.Equal(decimal.RequireFromString("0.0026")) {
		t.Fatalf("ask price %s", snap.Asks[0].Price)
	}
}

func TestBinanceIgnoresNonDepth(t *testing.T) {
	b := NewBinance("ws://x", "ethbtc", 10)
	for _, raw := range []string{
		`{"result":null,"id":1}`,
		`{"lastUpdateId":1,"bids":[["1","nan?"]],"asks":[]}`,
		`[]`,
	} {
		if _, ok := b.Convert([]byte(raw)); ok {
			t.Fatalf("should ignore %s", raw)
		}
	}
}

func TestBinanceStreamSize(t *testing.T) {
	if u := NewBinance("ws://x", "ethbtc", 3).URL(); !strings.HasSuffix(u, "@depth5@100ms") {
		t.Fatalf("got %s", u)
	}
	if u := NewBinance("ws://x", "ethbtc", 50).URL(); !strings.HasSuffix(u, "@depth20@100ms") {
		t.Fatalf("got %s", u)
	}
}

func TestNewFromConfig(t *testing.T) {
	a, err := New(depth.Binance, "ethbtc", config.VenueConfig{Enabled: true, URL: "ws://x", Depth: 10})
	if err != nil || a.Venue() != depth.Binance {
		t.Fatalf("got %v, %v", a, err)
	}
	if _, err := New(depth.Venue(200), "ethbtc", config.VenueConfig{}); err == nil {
		t.Fatal("expected error for unknown venue")
	}
}
