package store

import (
	"strings"
	"sync"

	"stockpulse/models"
)

const defaultInsightCapacity = 1000

// InsightLog retains a bounded history of generated insights in a
// fixed-capacity ring buffer. Appends beyond capacity overwrite the oldest
// entry in place, so appends stay constant-time at steady state. It is safe
// for concurrent use.
type InsightLog struct {
	mu    sync.Mutex
	buf   []models.Insight
	head  int // index of the oldest entry
	count int
}

func NewInsightLog(limit int) *InsightLog {
	if limit <= 0 {
		limit = defaultInsightCapacity
	}
	return &InsightLog{buf: make([]models.Insight, limit)}
}

// Append adds an insight to the tail of the log, overwriting the oldest
// entry when the log is full.
func (l *InsightLog) Append(insight models.Insight) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tail := (l.head + l.count) % len(l.buf)
	l.buf[tail] = insight
	if l.count < len(l.buf) {
		l.count++
	} else {
		l.head = (l.head + 1) % len(l.buf)
	}
}

// Len reports the number of insights currently retained.
func (l *InsightLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// snapshot copies the retained insights oldest-first under the lock.
func (l *InsightLog) snapshot() []models.Insight {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := make([]models.Insight, l.count)
	for i := 0; i < l.count; i++ {
		items[i] = l.buf[(l.head+i)%len(l.buf)]
	}
	return items
}

// InsightFilter narrows and paginates a Filtered query. Zero values disable
// the corresponding constraint.
type InsightFilter struct {
	Symbol string
	FromMs int64
	ToMs   int64
	Limit  int
	Offset int
}

// Filtered returns insights most-recent-first. Symbol matching is
// case-insensitive and timestamp bounds are inclusive; offset and limit are
// applied after filtering and ordering. A snapshot of the log is taken under
// the lock so concurrent appends cannot corrupt the result.
func (l *InsightLog) Filtered(f InsightFilter) []models.Insight {
	symbol := strings.ToUpper(f.Symbol)

	items := l.snapshot()

	filtered := make([]models.Insight, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		insight := items[i]
		if symbol != "" && insight.Symbol != symbol {
			continue
		}
		if f.FromMs != 0 && insight.EventTimestampMs < f.FromMs {
			continue
		}
		if f.ToMs != 0 && insight.EventTimestampMs > f.ToMs {
			continue
		}
		filtered = append(filtered, insight)
	}

	if f.Offset > 0 {
		if f.Offset >= len(filtered) {
			return []models.Insight{}
		}
		filtered = filtered[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(filtered) {
		filtered = filtered[:f.Limit]
	}
	return filtered
}
