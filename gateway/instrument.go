package gateway

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"pantrypal/inventory"
)

// Metrics holds the Prometheus collectors for gateway calls.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pantrypal",
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Gateway calls by operation, collection and result.",
		}, []string{"op", "collection", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pantrypal",
			Subsystem: "gateway",
			Name:      "call_duration_seconds",
			Help:      "Gateway call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "collection"}),
	}
	for _, c := range []prometheus.Collector{m.calls, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

type instrumented struct {
	next    inventory.Gateway
	metrics *Metrics
}

// Instrument wraps g so every call is counted and timed.
func Instrument(g inventory.Gateway, m *Metrics) inventory.Gateway {
	return &instrumented{next: g, metrics: m}
}

func (i *instrumented) observe(op, collection string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	i.metrics.calls.WithLabelValues(op, collection, result).Inc()
	i.metrics.duration.WithLabelValues(op, collection).Observe(time.Since(start).Seconds())
}

func (i *instrumented) Read(ctx context.Context, userID, collection string) ([]inventory.Item, error) {
	start := time.Now()
	items, err := i.next.Read(ctx, userID, collection)
	i.observe("read", collection, start, err)
	return items, err
}

func (i *instrumented) WriteAll(ctx context.Context, userID, collection string, items []inventory.Item) error {
	start := time.Now()
	err := i.next.WriteAll(ctx, userID, collection, items)
	i.observe("write_all", collection, start, err)
	return err
}

func (i *instrumented) MergeOne(ctx context.Context, userID, collection string, item inventory.Item) error {
	start := time.Now()
	err := i.next.MergeOne(ctx, userID, collection, item)
	i.observe("merge_one", collection, start, err)
	return err
}

func (i *instrumented) ReplaceOne(ctx context.Context, userID, collection string, item inventory.Item, match inventory.MatchFunc) error {
	start := time.Now()
	err := i.next.ReplaceOne(ctx, userID, collection, item, match)
	i.observe("replace_one", collection, start, err)
	return err
}

func (i *instrumented) UpsertOne(ctx context.Context, userID, collection string, item inventory.Item, match inventory.MatchFunc) error {
	start := time.Now()
	err := i.next.UpsertOne(ctx, userID, collection, item, match)
	i.observe("upsert_one", collection, start, err)
	return err
}

func (i *instrumented) RemoveOne(ctx context.Context, userID, collection string, item inventory.Item) error {
	start := time.Now()
	err := i.next.RemoveOne(ctx, userID, collection, item)
	i.observe("remove_one", collection, start, err)
	return err
}
