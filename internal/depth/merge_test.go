package depth

import (
	"fmt"
	"math/rand"
	"testing"
)

func TestMergeBoundsAndOrdersAnyInput(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		depths := make([]VenueDepth, numVenues)
		for v := range depths {
			n := r.Intn(30)
			for i := 0; i < n; i++ {
				p := fmt.Sprintf("%d.%02d", 90+r.Intn(10), r.Intn(100))
				depths[v].Bids = append(depths[v].Bids, lv(Venue(v), p, "1"))
				q := fmt.Sprintf("%d.%02d", 100+r.Intn(10), r.Intn(100))
				depths[v].Asks = append(depths[v].Asks, lv(Venue(v), q, "1"))
			}
		}
		view := Merge(depths, 10, MergeDistinct)
		if len(view.Bids) > 10 || len(view.Asks) > 10 {
			t.Fatalf("round %d: depth exceeded: %d/%d", round, len(view.Bids), len(view.Asks))
		}
		for i := 0; i+1 < len(view.Bids); i++ {
			if view.Bids[i].Price.LessThan(view.Bids[i+1].Price) {
				t.Fatalf("round %d: bids out of order at %d", round, i)
			}
		}
		for i := 0; i+1 < len(view.Asks); i++ {
			if view.Asks[i].Price.GreaterThan(view.Asks[i+1].Price) {
				t.Fatalf("round %d: asks out of order at %d", round, i)
			}
		}
		if len(view.Bids) > 0 && len(view.Asks) > 0 {
			if want := view.Asks[0].Price.Sub(view.Bids[0].Price); !view.Spread.Equal(want) {
				t.Fatalf("round %d: spread got %s want %s", round, view.Spread, want)
			}
		} else if !view.Spread.IsZero() {
			t.Fatalf("round %d: one-sided book must have zero spread", round)
		}
	}
}

func TestMergeKeepsEqualPricesDistinct(t *testing.T) {
	depths := []VenueDepth{
		{Bids: []Level{lv(Bitstamp, "100.00", "1")}},
		{Bids: []Level{lv(Binance, "100", "2")}},
	}
	view := Merge(depths, 10, MergeDistinct)
	if len(view.Bids) != 2 {
		t.Fatalf("bids got %d want 2 (no summing)", len(view.Bids))
	}
	if view.Bids[0].Venue != Bitstamp || view.Bids[1].Venue != Binance {
		t.Fatalf("tie not broken by venue order: %v, %v", view.Bids[0].Venue, view.Bids[1].Venue)
	}
}

func TestMergeTieBreakIsInputOrderIndependent(t *testing.T) {
	a := []VenueDepth{
		{Asks: []Level{lv(Bitstamp, "5", "1"), lv(Bitstamp, "5", "3")}},
		{Asks: []Level{lv(Binance, "5", "2")}},
	}
	b := []VenueDepth{
		{Asks: []Level{lv(Binance, "5", "2")}},
		{Asks: []Level{lv(Bitstamp, "5", "3"), lv(Bitstamp, "5", "1")}},
	}
	va, vb := Merge(a, 10, MergeDistinct), Merge(b, 10, MergeDistinct)
	for i := range va.Asks {
		if va.Asks[i].Venue != vb.Asks[i].Venue || !va.Asks[i].Amount.Equal(vb.Asks[i].Amount) {
			t.Fatalf("asks[%d] differ: %+v vs %+v", i, va.Asks[i], vb.Asks[i])
		}
	}
	if va.Asks[0].Venue != Bitstamp || !va.Asks[0].Amount.Equal(dec("3")) {
		t.Fatalf("unexpected first ask %+v", va.Asks[0])
	}
}

func TestMergeSumPolicy(t *testing.T) {
	depths := []VenueDepth{
		{Bids: []Level{lv(Bitstamp, "10", "1"), lv(Bitstamp, "9", "1")}, Asks: []Level{lv(Bitstamp, "11.00", "1")}},
		{Bids: []Level{lv(Binance, "10.0", "2")}, Asks: []Level{lv(Binance, "11", "4"), lv(Binance, "12", "1")}},
	}
	view := Merge(depths, 10, MergeSum)
	assertPrices(t, "bids", view.Bids, "10", "9")
	assertPrices(t, "asks", view.Asks, "11", "12")
	if !view.Bids[0].Amount.Equal(dec("3")) {
		t.Fatalf("summed bid amount got %s want 3", view.Bids[0].Amount)
	}
	if !view.Asks[0].Amount.Equal(dec("5")) {
		t.Fatalf("summed ask amount got %s want 5", view.Asks[0].Amount)
	}
	if view.Asks[0].Venue != Bitstamp {
		t.Fatalf("summed level should carry first venue, got %v", view.Asks[0].Venue)
	}
	if !view.Spread.Equal(dec("1")) {
		t.Fatalf("spread got %s want 1", view.Spread)
	}
}

func TestMergeZeroDepth(t *testing.T) {
	depths := []VenueDepth{{Bids: []Level{lv(Bitstamp, "1", "1")}, Asks: []Level{lv(Bitstamp, "2", "1")}}}
	view := Merge(depths, 0, MergeDistinct)
	if len(view.Bids)+len(view.Asks) != 0 || !view.Spread.IsZero() {
		t.Fatalf("k=0 should yield an empty view")
	}
}

func TestParseMergePolicy(t *testing.T) {
	if p, err := ParseMergePolicy(" SUM "); err != nil || p != MergeSum {
		t.Fatalf("got %v, %v", p, err)
	}
	if p, err := ParseMergePolicy(""); err != nil || p != MergeDistinct {
		t.Fatalf("empty should default to distinct, got %v, %v", p, err)
	}
	if _, err := ParseMergePolicy("average"); err == nil {
		t.Fatal("expected error")
	}
}

func TestVenueText(t *testing.T) {
	v, err := ParseVenue("Binance")
	if err != nil || v != Binance {
		t.Fatalf("got %v, %v", v, err)
	}
	if _, err := ParseVenue("kraken"); err == nil {
		t.Fatal("expected unknown venue error")
	}
	b, err := Bitstamp.MarshalText()
	if err != nil || string(b) != "bitstamp" {
		t.Fatalf("got %q, %v", b, err)
	}
	if numVenues.Valid() {
		t.Fatal("sentinel must not be a valid venue")
	}
}
