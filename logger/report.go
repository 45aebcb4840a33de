package logger

import (
	"context"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

var (
	feedErrors    int64
	feedWarns     int64
	otherErrors   int64
	otherWarns    int64
	tradesRead    int64
	tradeBytes    int64
	insightsCount int64
	reconnects    int64
)

func recordWarn(component string) {
	if strings.Contains(component, "feed") {
		atomic.AddInt64(&feedWarns, 1)
	} else {
		atomic.AddInt64(&otherWarns, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "feed") {
		atomic.AddInt64(&feedErrors, 1)
	} else {
		atomic.AddInt64(&otherErrors, 1)
	}
}

// IncrementTradeRead records one trade message received from the feed.
func IncrementTradeRead(size int) {
	atomic.AddInt64(&tradesRead, 1)
	atomic.AddInt64(&tradeBytes, int64(size))
}

// IncrementInsight records one generated insight.
func IncrementInsight() {
	atomic.AddInt64(&insightsCount, 1)
}

// IncrementReconnect records one feed reconnect attempt.
func IncrementReconnect() {
	atomic.AddInt64(&reconnects, 1)
}

// StartReport begins periodic logging of runtime statistics. The report is
// also forwarded to CloudWatch when a client has been initialised.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func logReport(ctx context.Context, log *Log) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	fields := Fields{
		"errors_feed":    atomic.LoadInt64(&feedErrors),
		"errors_other":   atomic.LoadInt64(&otherErrors),
		"warns_feed":     atomic.LoadInt64(&feedWarns),
		"warns_other":    atomic.LoadInt64(&otherWarns),
		"trades_read":    atomic.LoadInt64(&tradesRead),
		"trade_bytes":    atomic.LoadInt64(&tradeBytes),
		"insights":       atomic.LoadInt64(&insightsCount),
		"reconnects":     atomic.LoadInt64(&reconnects),
		"goroutines":     runtime.NumGoroutine(),
		"heap_alloc_mb":  int64(mem.HeapAlloc) / 1024 / 1024,
		"total_alloc_mb": int64(mem.TotalAlloc) / 1024 / 1024,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("FeedErrors"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&feedErrors)))},
		{MetricName: aws.String("FeedWarns"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&feedWarns)))},
		{MetricName: aws.String("TradesRead"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&tradesRead)))},
		{MetricName: aws.String("TradeBytes"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(atomic.LoadInt64(&tradeBytes)))},
		{MetricName: aws.String("Insights"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&insightsCount)))},
		{MetricName: aws.String("Reconnects"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&reconnects)))},
		{MetricName: aws.String("Goroutines"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(runtime.NumGoroutine()))},
		{MetricName: aws.String("HeapAllocMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(mem.HeapAlloc) / 1024 / 1024)},
	}

	publishMetrics(ctx, data)
}
