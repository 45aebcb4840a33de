package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"stockpulse/models"
	"stockpulse/store"
)

// insightResponse augments an insight with the formatted event time the REST
// surface exposes.
type insightResponse struct {
	models.Insight
	EventDatetimeUTC string `json:"event_datetime_utc"`
}

func toInsightResponses(insights []models.Insight) []insightResponse {
	out := make([]insightResponse, len(insights))
	for i, in := range insights {
		out[i] = insightResponse{Insight: in, EventDatetimeUTC: in.EventDatetimeUTC()}
	}
	return out
}

func (s *Server) handleAllMarketData(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"all_market_data": s.cache.GetAll()})
}

func (s *Server) handleSymbolMarketData(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	snapshot, ok := s.cache.Get(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("No data for symbol %s", symbol)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "data": snapshot})
}

func (s *Server) handleAllInsights(c *gin.Context) {
	filter, err := insightFilterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid timestamp, limit, or offset format. Must be integers."})
		return
	}

	results := toInsightResponses(s.insights.Filtered(filter))
	c.JSON(http.StatusOK, gin.H{"count": len(results), "results": results})
}

func (s *Server) handleSymbolInsights(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	filter, err := insightFilterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid timestamp, limit, or offset format. Must be integers."})
		return
	}
	filter.Symbol = symbol

	results := toInsightResponses(s.insights.Filtered(filter))
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "insights": results})
}

func (s *Server) handleHealth(c *gin.Context) {
	state := "unknown"
	if s.feedState != nil {
		state = s.feedState()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"feed_state": state,
		"symbols":    s.symbols,
	})
}

func insightFilterFromQuery(c *gin.Context) (store.InsightFilter, error) {
	var filter store.InsightFilter
	var err error

	if filter.FromMs, err = int64Query(c, "from_timestamp"); err != nil {
		return store.InsightFilter{}, err
	}
	if filter.ToMs, err = int64Query(c, "to_timestamp"); err != nil {
		return store.InsightFilter{}, err
	}

	limit, err := int64Query(c, "limit")
	if err != nil {
		return store.InsightFilter{}, err
	}
	offset, err := int64Query(c, "offset")
	if err != nil {
		return store.InsightFilter{}, err
	}
	filter.Limit = int(limit)
	filter.Offset = int(offset)

	return filter, nil
}

func int64Query(c *gin.Context, name string) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
