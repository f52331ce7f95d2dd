// Package provision makes sure a shard's database and tables exist before
// anything is written to it.
package provision

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/lazysauce/collector/internal/metrics"
	"github.com/lazysauce/collector/internal/store"
)

// Provisioner runs the shard DDL at most once per shard per process.
// Concurrent Ensure calls for the same shard share one provisioning run.
// Every statement is CREATE ... IF NOT EXISTS, so a second process racing
// on the same shard cannot corrupt it.
type Provisioner struct {
	router *store.Router
	log    *zap.Logger

	group singleflight.Group

	mu    sync.RWMutex
	ready map[store.Scope]struct{}
}

func New(r *store.Router, log *zap.Logger) *Provisioner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provisioner{router: r, log: log, ready: make(map[store.Scope]struct{})}
}

func (p *Provisioner) isReady(s store.Scope) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.ready[s]
	return ok
}

// Ensure provisions the shard if needed. It reports whether this call
// created the shard's database.
func (p *Provisioner) Ensure(ctx context.Context, host string, shardID int64) (bool, error) {
	scope := store.Shard(host, shardID)
	if p.isReady(scope) {
		return false, nil
	}

	key := host + "/" + strconv.FormatInt(shardID, 10)
	v, err, _ := p.group.Do(key, func() (any, error) {
		if p.isReady(scope) {
			return false, nil
		}
		created, err := p.provision(ctx, scope)
		if err != nil {
			return false, err
		}
		p.mu.Lock()
		p.ready[scope] = struct{}{}
		p.mu.Unlock()
		return created, nil
	})
	if err != nil {
		metrics.ShardProvisions.WithLabelValues("error").Inc()
		p.log.Error("shard provisioning failed", zap.String("host", host), zap.Int64("shard", shardID), zap.Error(err))
		return false, err
	}
	return v.(bool), nil
}

func (p *Provisioner) provision(ctx context.Context, scope store.Scope) (bool, error) {
	exists, err := p.router.ShardExists(ctx, scope.Host, scope.ShardID)
	if err != nil {
		return false, fmt.Errorf("check shard: %w", err)
	}
	if !exists {
		if err := p.router.CreateShard(ctx, scope.Host, scope.ShardID); err != nil {
			return false, fmt.Errorf("create shard: %w", err)
		}
	}
	// Tables are replayed even for an existing database, which repairs a
	// shard whose earlier provisioning stopped halfway.
	for _, stmt := range p.router.ShardSchema() {
		if _, err := p.router.Execute(ctx, scope, stmt); err != nil {
			return false, fmt.Errorf("create tables: %w", err)
		}
	}

	if exists {
		metrics.ShardProvisions.WithLabelValues("existing").Inc()
		p.log.Debug("shard schema verified", zap.String("host", scope.Host), zap.Int64("shard", scope.ShardID))
	} else {
		metrics.ShardProvisions.WithLabelValues("created").Inc()
		p.log.Info("shard provisioned", zap.String("host", scope.Host), zap.Int64("shard", scope.ShardID))
	}
	return !exists, nil
}
