package store

import (
	"fmt"
	"sync"
	"testing"

	"stockpulse/models"
)

func tradeSnapshot(symbol string, price float64) models.MarketSnapshot {
	return models.MarketSnapshot{
		Kind: models.SnapshotKindTrade,
		Trade: models.TradeTick{
			Symbol:      symbol,
			Price:       price,
			TimestampMs: 1,
			Exchange:    "N/A",
		},
	}
}

func TestMarketCacheLastWriteWins(t *testing.T) {
	cache := NewMarketCache()
	cache.Update("AAPL", tradeSnapshot("AAPL", 170.0))
	cache.Update("AAPL", tradeSnapshot("AAPL", 171.5))

	snapshot, ok := cache.Get("AAPL")
	if !ok {
		t.Fatal("expected snapshot for AAPL")
	}
	if snapshot.Trade.Price != 171.5 {
		t.Fatalf("expected latest price 171.5, got %v", snapshot.Trade.Price)
	}
}

func TestMarketCacheNormalizesSymbolCase(t *testing.T) {
	cache := NewMarketCache()
	cache.Update("aapl", tradeSnapshot("AAPL", 170.0))

	if _, ok := cache.Get("AAPL"); !ok {
		t.Fatal("expected lookup by uppercase symbol to succeed")
	}
	if _, ok := cache.Get("aapl"); !ok {
		t.Fatal("expected lookup by lowercase symbol to succeed")
	}
}

func TestMarketCacheGetMissingSymbol(t *testing.T) {
	cache := NewMarketCache()
	if _, ok := cache.Get("TSLA"); ok {
		t.Fatal("expected no snapshot for unseen symbol")
	}
	if _, ok := cache.LastPrice("TSLA"); ok {
		t.Fatal("expected no last price for unseen symbol")
	}
}

func TestMarketCacheGetAllReturnsCopy(t *testing.T) {
	cache := NewMarketCache()
	cache.Update("AAPL", tradeSnapshot("AAPL", 170.0))

	all := cache.GetAll()
	all["AAPL"] = tradeSnapshot("AAPL", 1.0)
	all["MSFT"] = tradeSnapshot("MSFT", 2.0)

	snapshot, _ := cache.Get("AAPL")
	if snapshot.Trade.Price != 170.0 {
		t.Fatalf("mutating GetAll result leaked into cache: %v", snapshot.Trade.Price)
	}
	if _, ok := cache.Get("MSFT"); ok {
		t.Fatal("mutating GetAll result leaked into cache")
	}
}

func TestMarketCacheLastPrice(t *testing.T) {
	cache := NewMarketCache()
	cache.Update("GOOGL", tradeSnapshot("GOOGL", 140.25))

	price, ok := cache.LastPrice("googl")
	if !ok || price != 140.25 {
		t.Fatalf("expected last price 140.25, got %v (ok=%v)", price, ok)
	}
}

func TestMarketCacheConcurrentAccess(t *testing.T) {
	cache := NewMarketCache()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				symbol := fmt.Sprintf("SYM%d", i)
				cache.Update(symbol, tradeSnapshot(symbol, float64(j)))
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.GetAll()
				cache.LastPrice(fmt.Sprintf("SYM%d", i))
			}
		}(i)
	}
	wg.Wait()

	if len(cache.GetAll()) != 8 {
		t.Fatalf("expected 8 symbols, got %d", len(cache.GetAll()))
	}
}
