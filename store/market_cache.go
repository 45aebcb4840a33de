package store

import (
	"strings"
	"sync"

	"stockpulse/models"
)

// MarketCache retains the most recent trade snapshot for each watched symbol.
// It is safe for concurrent use; callers always receive copies, never
// references into internal state.
type MarketCache struct {
	mu   sync.RWMutex
	data map[string]models.MarketSnapshot
}

func NewMarketCache() *MarketCache {
	return &MarketCache{data: make(map[string]models.MarketSnapshot)}
}

// Update overwrites or inserts the snapshot for a symbol. The latest trade
// always wins.
func (c *MarketCache) Update(symbol string, snapshot models.MarketSnapshot) {
	symbol = strings.ToUpper(symbol)

	c.mu.Lock()
	c.data[symbol] = snapshot
	c.mu.Unlock()
}

// Get returns the snapshot for a symbol. The second return value reports
// whether a trade has been seen for the symbol yet.
func (c *MarketCache) Get(symbol string) (models.MarketSnapshot, bool) {
	symbol = strings.ToUpper(symbol)

	c.mu.RLock()
	snapshot, ok := c.data[symbol]
	c.mu.RUnlock()
	return snapshot, ok
}

// GetAll returns a copy of the full symbol to snapshot mapping.
func (c *MarketCache) GetAll() map[string]models.MarketSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]models.MarketSnapshot, len(c.data))
	for symbol, snapshot := range c.data {
		out[symbol] = snapshot
	}
	return out
}

// LastPrice returns the latest trade price for a symbol, or false when no
// trade has been observed.
func (c *MarketCache) LastPrice(symbol string) (float64, bool) {
	snapshot, ok := c.Get(symbol)
	if !ok || snapshot.Kind != models.SnapshotKindTrade {
		return 0, false
	}
	return snapshot.Trade.Price, true
}
