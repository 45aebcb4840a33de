package processor

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"stockpulse/internal/metrics"
	"stockpulse/logger"
	"stockpulse/models"
	"stockpulse/store"
)

// Engine turns trades for watched symbols into cache updates and, when the
// price moved by at least the configured threshold percentage since the
// previous trade, insight events. The engine itself is stateless; all state
// lives in the cache and the insight log.
type Engine struct {
	watched   map[string]struct{}
	threshold float64
	cache     *store.MarketCache
	insights  *store.InsightLog
	log       *logger.Log
}

// NewEngine creates an engine watching the given symbols. Symbols are
// normalized to uppercase.
func NewEngine(symbols []string, thresholdPercent float64, cache *store.MarketCache, insights *store.InsightLog) *Engine {
	watched := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		watched[strings.ToUpper(s)] = struct{}{}
	}
	return &Engine{
		watched:   watched,
		threshold: thresholdPercent,
		cache:     cache,
		insights:  insights,
		log:       logger.GetLogger(),
	}
}

// Watched reports whether trades for the symbol are processed.
func (e *Engine) Watched(symbol string) bool {
	_, ok := e.watched[strings.ToUpper(symbol)]
	return ok
}

// ProcessTrades handles every trade entry of a trade message in arrival
// order. Trades for unwatched symbols are silently ignored.
func (e *Engine) ProcessTrades(env models.FeedEnvelope) {
	for _, trade := range env.Data {
		if !e.Watched(trade.Symbol) {
			continue
		}
		e.processTrade(trade)
	}
}

func (e *Engine) processTrade(trade models.FeedTrade) {
	tick := models.NewTradeTick(trade)
	log := e.log.WithComponent("insight_engine").WithFields(logger.Fields{"symbol": tick.Symbol})

	// The previous price must be read before the new trade overwrites it.
	lastPrice, hasLast := e.cache.LastPrice(tick.Symbol)

	e.cache.Update(tick.Symbol, models.MarketSnapshot{
		Kind:  models.SnapshotKindTrade,
		Trade: tick,
	})
	metrics.IncrementTradeProcessed(tick.Symbol)

	if !hasLast {
		log.WithFields(logger.Fields{"price": tick.Price}).Debug("first trade received, seeding cache")
		return
	}

	priceChange := tick.Price - lastPrice
	pctChange := 0.0
	if lastPrice != 0 {
		pctChange = (priceChange / lastPrice) * 100
	}

	log.WithFields(logger.Fields{
		"price_change": models.Round4(priceChange),
		"pct_change":   models.Round4(pctChange),
	}).Debug("calculated change")

	if math.Abs(pctChange) < e.threshold {
		return
	}

	direction := "decrease"
	if pctChange > 0 {
		direction = "increase"
	}

	insight := models.Insight{
		ID:               uuid.NewString(),
		Symbol:           tick.Symbol,
		InitialPrice:     lastPrice,
		CurrentPrice:     tick.Price,
		ChangePercent:    models.Round4(pctChange),
		PriceChange:      math.Round(priceChange),
		EventTimestampMs: tick.TimestampMs,
		Message:          fmt.Sprintf("Significant price %s of %.2f%%", direction, math.Abs(pctChange)),
	}
	e.insights.Append(insight)

	logger.IncrementInsight()
	metrics.IncrementInsight(tick.Symbol)

	log.WithFields(logger.Fields{
		"old_price": lastPrice,
		"new_price": tick.Price,
	}).Info(insight.Message)
}
