// Registers:
//
//	#stockpulse_trades_processed_total
//	#stockpulse_insights_generated_total
//	#stockpulse_feed_reconnects_total
//	#stockpulse_messages_dropped_total
//	#stockpulse_feed_connection_state
//	#go_* and process_* system metrics
//
// Exposes them on the configured address using the Prometheus HTTP handler.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once            sync.Once
	tradesProcessed *prometheus.CounterVec
	insights        *prometheus.CounterVec
	reconnects      prometheus.Counter
	dropped         *prometheus.CounterVec
	connectionState prometheus.Gauge
)

// Init registers the collectors and serves /metrics on addr. When addr is
// empty the HTTP endpoint is not started but collectors remain usable.
func Init(addr string) {
	once.Do(func() {
		tradesProcessed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_trades_processed_total",
				Help: "Number of watched-symbol trades processed",
			},
			[]string{"symbol"},
		)

		insights = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_insights_generated_total",
				Help: "Number of price-change insights generated",
			},
			[]string{"symbol"},
		)

		reconnects = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "stockpulse_feed_reconnects_total",
				Help: "Number of feed connect attempts after the first",
			},
		)

		dropped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_messages_dropped_total",
				Help: "Number of feed messages dropped",
			},
			[]string{"reason"},
		)

		connectionState = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockpulse_feed_connection_state",
				Help: "Feed connection state (0 disconnected, 1 connecting, 2 connected, 3 closing, 4 stopped)",
			},
		)

		_ = prometheus.Register(tradesProcessed)
		_ = prometheus.Register(insights)
		_ = prometheus.Register(reconnects)
		_ = prometheus.Register(dropped)
		_ = prometheus.Register(connectionState)
		_ = prometheus.Register(collectors.NewGoCollector())
		_ = prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		if addr == "" {
			return
		}

		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil {
				panic("metrics server failed: " + err.Error())
			}
		}()
	})
}

// IncrementTradeProcessed increases the processed-trade counter for a symbol.
func IncrementTradeProcessed(symbol string) {
	if tradesProcessed != nil {
		tradesProcessed.WithLabelValues(symbol).Inc()
	}
}

// IncrementInsight increases the generated-insight counter for a symbol.
func IncrementInsight(symbol string) {
	if insights != nil {
		insights.WithLabelValues(symbol).Inc()
	}
}

// IncrementReconnect increases the feed reconnect counter.
func IncrementReconnect() {
	if reconnects != nil {
		reconnects.Inc()
	}
}

// IncrementDropped increases the dropped-message counter for a reason.
func IncrementDropped(reason string) {
	if dropped != nil {
		dropped.WithLabelValues(reason).Inc()
	}
}

// SetConnectionState records the feed connection state.
func SetConnectionState(state int) {
	if connectionState != nil {
		connectionState.Set(float64(state))
	}
}
