package models

import (
	"math"
	"strings"
	"time"
)

// SnapshotKindTrade is the only snapshot kind currently produced.
const SnapshotKindTrade = "trade"

// TradeTick is a normalized trade observation for a watched symbol.
// Volume carries the feed's "v" field.
type TradeTick struct {
	Symbol      string  `json:"symbol"`
	Price       float64 `json:"price"`
	Volume      float64 `json:"volume"`
	TimestampMs int64   `json:"timestamp"`
	Exchange    string  `json:"exchange"`
}

// NewTradeTick builds a TradeTick from a raw feed entry, normalizing the
// symbol to uppercase. A missing exchange is reported as "N/A".
func NewTradeTick(t FeedTrade) TradeTick {
	exchange := t.Exchange
	if exchange == "" {
		exchange = "N/A"
	}
	return TradeTick{
		Symbol:      strings.ToUpper(t.Symbol),
		Price:       t.Price,
		Volume:      t.Volume,
		TimestampMs: t.Timestamp,
		Exchange:    exchange,
	}
}

// MarketSnapshot is the per-symbol value cached by the market data store.
type MarketSnapshot struct {
	Kind  string    `json:"type"`
	Trade TradeTick `json:"data"`
}

// Insight records a price move of at least the configured threshold between
// two consecutive trades of a watched symbol. Immutable once constructed.
type Insight struct {
	ID               string  `json:"id"`
	Symbol           string  `json:"symbol"`
	InitialPrice     float64 `json:"initial_price"`
	CurrentPrice     float64 `json:"current_price"`
	ChangePercent    float64 `json:"change_percent"`
	PriceChange      float64 `json:"price_change"`
	EventTimestampMs int64   `json:"event_timestamp_ms"`
	Message          string  `json:"message"`
}

// EventDatetimeUTC renders the event timestamp the way the query API
// exposes it.
func (i Insight) EventDatetimeUTC() string {
	return time.UnixMilli(i.EventTimestampMs).UTC().Format("2006-01-02 15:04:05 UTC")
}

// Round4 rounds to four decimal places, the precision used for percent
// changes in insights.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
