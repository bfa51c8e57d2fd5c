package depth

import (
	"context"
	"slices"
)

// Aggregator keeps the latest depth of every venue and merges it on demand.
//
// It is not safe for concurrent use. One goroutine owns it (see Run) and every
// other component talks to it through the ingestion queue.
type Aggregator struct {
	venues [numVenues]VenueDepth
	levels int
	policy MergePolicy
}

func NewAggregator(levels int, policy MergePolicy) *Aggregator {
	return &Aggregator{levels: levels, policy: policy}
}

// Update replaces the snapshot venue's stored bids and asks wholesale. Every
// stored level is tagged with the snapshot's venue.
func (a *Aggregator) Update(s Snapshot) {
	if !s.Venue.Valid() {
		return
	}
	a.venues[s.Venue] = VenueDepth{
		Bids: stamp(s.Venue, s.Bids),
		Asks: stamp(s.Venue, s.Asks),
	}
}

func stamp(v Venue, levels []Level) []Level {
	out := make([]Level, len(levels))
	for i, lvl := range levels {
		lvl.Venue = v
		out[i] = lvl
	}
	return out
}

// Depth returns a copy of what is currently stored for v.
func (a *Aggregator) Depth(v Venue) VenueDepth {
	if !v.Valid() {
		return VenueDepth{}
	}
	d := a.venues[v]
	return VenueDepth{Bids: slices.Clone(d.Bids), Asks: slices.Clone(d.Asks)}
}

func (a *Aggregator) View() View {
	return Merge(a.venues[:], a.levels, a.policy)
}

// Run consumes snapshots until the stream ends or ctx is cancelled, emitting a
// fresh View after every update. emit may be nil.
func (a *Aggregator) Run(ctx context.Context, rx *Receiver, emit func(View)) {
	for {
		s, ok := rx.Receive(ctx)
		if !ok {
			return
		}
		a.Update(s)
		if emit != nil {
			emit(a.View())
		}
	}
}
