package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lazysauce/collector/internal/metrics"
	"github.com/lazysauce/collector/internal/models"
	"github.com/lazysauce/collector/internal/store"
)

// RawCheckpoint is a conversion checkpoint waiting to be written.
type RawCheckpoint struct {
	Scope      store.Scope
	VisitKey   int64
	ActionHash int64
	Name       string
	At         time.Time
}

// Collector buffers checkpoints in memory and writes them per shard in
// batches. Delivery is best-effort: a full buffer drops new events.
type Collector struct {
	ch     chan RawCheckpoint
	stop   chan struct{}
	done   chan struct{}
	router *store.Router
	log    *zap.Logger
}

func NewCollector(r *store.Router, log *zap.Logger, bufferSize int, flushInterval time.Duration) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Collector{
		ch:     make(chan RawCheckpoint, bufferSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		router: r,
		log:    log,
	}
	go c.run(flushInterval)
	return c
}

// Push enqueues without blocking and reports whether the event was accepted.
func (c *Collector) Push(cp RawCheckpoint) bool {
	select {
	case c.ch <- cp:
		return true
	default:
		metrics.Checkpoints.WithLabelValues("dropped").Inc()
		c.log.Warn("checkpoint dropped, buffer full", zap.Stringer("scope", cp.Scope), zap.String("name", cp.Name))
		return false
	}
}

// Shutdown flushes remaining events and returns.
func (c *Collector) Shutdown() {
	close(c.stop)
	<-c.done
}

func (c *Collector) run(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.stop:
			c.flush()
			return
		}
	}
}

func (c *Collector) drain() []RawCheckpoint {
	var batch []RawCheckpoint
	for {
		select {
		case cp := <-c.ch:
			batch = append(batch, cp)
		default:
			return batch
		}
	}
}

func (c *Collector) flush() {
	batch := c.drain()
	if len(batch) == 0 {
		return
	}

	byScope := make(map[store.Scope][]models.Parameter)
	var order []store.Scope
	for _, cp := range batch {
		if _, ok := byScope[cp.Scope]; !ok {
			order = append(order, cp.Scope)
		}
		byScope[cp.Scope] = append(byScope[cp.Scope], models.Parameter{
			VisitKey:   cp.VisitKey,
			ActionHash: cp.ActionHash,
			Name:       cp.Name,
			Value:      "1",
			CreatedAt:  cp.At,
		})
	}

	for _, s := range order {
		params := byScope[s]
		res, err := models.BatchInsertParameters(context.Background(), c.router, s, params)
		metrics.Checkpoints.WithLabelValues("written").Add(float64(res.Written))
		metrics.Checkpoints.WithLabelValues("duplicate").Add(float64(res.Duplicates))
		metrics.Checkpoints.WithLabelValues("failed").Add(float64(res.Failed))
		if err != nil {
			c.log.Error("checkpoint flush failed", zap.Stringer("scope", s), zap.Int("count", len(params)), zap.Error(err))
			continue
		}
		c.log.Debug("checkpoints flushed", zap.Stringer("scope", s),
			zap.Int("written", res.Written), zap.Int("duplicates", res.Duplicates), zap.Int("failed", res.Failed))
	}
}
