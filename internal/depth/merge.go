package depth

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// MergePolicy decides what happens when two venues quote the same price.
type MergePolicy int

const (
	// MergeDistinct keeps every venue's level; nothing is summed.
	MergeDistinct MergePolicy = iota
	// MergeSum collapses numerically equal prices into one level with the summed
	// amount. The result carries the venue of the first contributor in
	// enumeration order, so per-venue attribution is lost.
	MergeSum
)

func (p MergePolicy) String() string {
	switch p {
	case MergeDistinct:
		return "distinct"
	case MergeSum:
		return "sum"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

func ParseMergePolicy(s string) (MergePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "distinct":
		return MergeDistinct, nil
	case "sum":
		return MergeSum, nil
	}
	return MergeDistinct, fmt.Errorf("unknown merge policy %q", s)
}

// Merge ranks every venue's levels into a consolidated view of at most k levels
// per side and computes the spread between the best ask and the best bid.
func Merge(depths []VenueDepth, k int, policy MergePolicy) View {
	var nb, na int
	for _, d := range depths {
		nb += len(d.Bids)
		na += len(d.Asks)
	}
	bids := make([]Level, 0, nb)
	asks := make([]Level, 0, na)
	for _, d := range depths {
		bids = append(bids, d.Bids...)
		asks = append(asks, d.Asks...)
	}

	if policy == MergeSum {
		bids = sumByPrice(bids)
		asks = sumByPrice(asks)
	}

	slices.SortFunc(bids, func(a, b Level) int {
		// best bid is highest price first
		if c := b.Price.Cmp(a.Price); c != 0 {
			return c
		}
		return tieBreak(a, b)
	})
	slices.SortFunc(asks, func(a, b Level) int {
		if c := a.Price.Cmp(b.Price); c != 0 {
			return c
		}
		return tieBreak(a, b)
	})

	if k < 0 {
		k = 0
	}
	if len(bids) > k {
		bids = bids[:k]
	}
	if len(asks) > k {
		asks = asks[:k]
	}

	spread := decimal.Zero
	if len(bids) > 0 && len(asks) > 0 {
		spread = asks[0].Price.Sub(bids[0].Price)
	}
	return View{Spread: spread, Bids: slices.Clip(bids), Asks: slices.Clip(asks)}
}

// tieBreak orders levels at an equal price: venue enumeration order, then the
// larger amount first.
func tieBreak(a, b Level) int {
	if a.Venue != b.Venue {
		if a.Venue < b.Venue {
			return -1
		}
		return 1
	}
	return b.Amount.Cmp(a.Amount)
}

func sumByPrice(levels []Level) []Level {
	out := make([]Level, 0, len(levels))
	idx := make(map[string]int, len(levels))
	for _, lvl := range levels {
		k := canonicalPriceKey(lvl.Price)
		i, ok := idx[k]
		if !ok {
			idx[k] = len(out)
			out = append(out, lvl)
			continue
		}
		merged := out[i]
		merged.Amount = merged.Amount.Add(lvl.Amount)
		if lvl.Venue < merged.Venue {
			merged.Venue = lvl.Venue
		}
		out[i] = merged
	}
	return out
}

// canonicalPriceKey normalizes a Decimal so numerically equal values hash to the same key.
// String() drops redundant trailing zeros ("100.00" -> "100").
func canonicalPriceKey(p decimal.Decimal) string {
	return p.String()
}
