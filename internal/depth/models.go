package depth

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Venue identifies a supported exchange. The set is closed; the numeric value
// doubles as the deterministic tie-break order when two levels share a price.
type Venue uint8

const (
	Bitstamp Venue = iota
	Binance

	numVenues
)

var venueNames = [numVenues]string{
	Bitstamp: "bitstamp",
	Binance:  "binance",
}

// Venues lists every known venue in enumeration order.
func Venues() []Venue {
	out := make([]Venue, 0, numVenues)
	for v := Venue(0); v < numVenues; v++ {
		out = append(out, v)
	}
	return out
}

func (v Venue) Valid() bool { return v < numVenues }

func (v Venue) String() string {
	if !v.Valid() {
		return fmt.Sprintf("venue(%d)", uint8(v))
	}
	return venueNames[v]
}

func ParseVenue(s string) (Venue, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for v, n := range venueNames {
		if n == name {
			return Venue(v), nil
		}
	}
	return 0, fmt.Errorf("unknown venue %q", s)
}

func (v Venue) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("invalid venue %d", uint8(v))
	}
	return []byte(v.String()), nil
}

func (v *Venue) UnmarshalText(b []byte) error {
	parsed, err := ParseVenue(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Level is one price point quoted by one venue.
type Level struct {
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
	Venue  Venue           `json:"exchange"`
}

func NewLevel(v Venue, price, amount decimal.Decimal) Level {
	return Level{Price: price, Amount: amount, Venue: v}
}

// Snapshot is a venue's full depth at one point in time. Bids and asks are
// taken as-is: unsorted, possibly with duplicate prices.
type Snapshot struct {
	Venue Venue
	Bids  []Level
	Asks  []Level
}

// VenueDepth holds the latest snapshot contents for one venue.
type VenueDepth struct {
	Bids []Level
	Asks []Level
}

// View is the consolidated book handed to downstream consumers.
type View struct {
	Spread decimal.Decimal `json:"spread"`
	Bids   []Level         `json:"bids"` // best (highest) first
	Asks   []Level         `json:"asks"` // best (lowest) first
}

// EmptyView is what consumers see before any venue has reported.
func EmptyView() View {
	return View{Spread: decimal.Zero, Bids: []Level{}, Asks: []Level{}}
}
