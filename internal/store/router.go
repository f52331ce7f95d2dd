package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lazysauce/collector/internal/metrics"
)

type Options struct {
	Driver            string
	DataDir           string
	DirectoryHost     string
	DirectoryDB       string
	Port              int
	User              string
	Password          string
	DirectoryPoolSize int
	ShardPoolSize     int
	QueryTimeout      time.Duration
}

// Router owns one pool per scope. The directory pool is opened eagerly;
// shard and server pools are opened on first use and kept until Close.
type Router struct {
	opts    Options
	dialect dialect
	log     *zap.Logger

	mu     sync.RWMutex
	pools  map[Scope]*sql.DB
	closed bool
}

// Open connects to the directory database and applies its schema.
func Open(ctx context.Context, opts Options, log *zap.Logger) (*Router, error) {
	if opts.DirectoryDB == "" {
		opts.DirectoryDB = "lazysauce"
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 5 * time.Second
	}
	if opts.DirectoryPoolSize <= 0 {
		opts.DirectoryPoolSize = 10
	}
	if opts.ShardPoolSize <= 0 {
		opts.ShardPoolSize = 5
	}
	if log == nil {
		log = zap.NewNop()
	}
	d, err := newDialect(opts)
	if err != nil {
		return nil, err
	}

	r := &Router{
		opts:    opts,
		dialect: d,
		log:     log,
		pools:   make(map[Scope]*sql.DB),
	}
	for _, stmt := range d.directorySchema() {
		if _, err := r.Execute(ctx, Directory(), stmt); err != nil {
			r.Close()
			return nil, fmt.Errorf("apply directory schema: %w", err)
		}
	}
	return r, nil
}

func (r *Router) Options() Options { return r.opts }

// DefaultHost is where tenants with no assigned host live.
func (r *Router) DefaultHost() string { return r.opts.DirectoryHost }

func (r *Router) pool(s Scope) (*sql.DB, error) {
	if s.Kind == KindDirectory {
		s = Directory()
	}

	r.mu.RLock()
	db, ok := r.pools[s]
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if ok {
		return db, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if db, ok := r.pools[s]; ok {
		return db, nil
	}

	dsn, err := r.dialect.dsn(s)
	if err != nil {
		return nil, err
	}
	db, err = sql.Open(r.dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	n := r.dialect.maxOpenConns(s)
	db.SetMaxOpenConns(n)
	db.SetMaxIdleConns(n)
	db.SetConnMaxIdleTime(5 * time.Minute)

	r.pools[s] = db
	metrics.ShardPools.Set(float64(len(r.pools)))
	r.log.Info("pool opened", zap.Stringer("scope", s), zap.Int("max_conns", n))
	return db, nil
}

func (r *Router) fail(s Scope, err error) error {
	if IsUniqueViolation(err) {
		r.log.Debug("store conflict", zap.Stringer("scope", s), zap.Error(err))
	} else {
		r.log.Error("store call failed", zap.Stringer("scope", s), zap.Error(err))
	}
	return &Error{Scope: s, Err: err}
}

// Query runs a read and calls scan once per row.
func (r *Router) Query(ctx context.Context, s Scope, scan func(*sql.Rows) error, query string, args ...any) error {
	db, err := r.pool(s)
	if err != nil {
		return r.fail(s, err)
	}
	ctx, cancel := context.WithTimeout(ctx, r.opts.QueryTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return r.fail(s, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return r.fail(s, err)
		}
	}
	if err := rows.Err(); err != nil {
		return r.fail(s, err)
	}
	return nil
}

// Execute runs a write. InsertID is only meaningful after an INSERT.
func (r *Router) Execute(ctx context.Context, s Scope, query string, args ...any) (Result, error) {
	db, err := r.pool(s)
	if err != nil {
		return Result{}, r.fail(s, err)
	}
	ctx, cancel := context.WithTimeout(ctx, r.opts.QueryTimeout)
	defer cancel()

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return Result{}, r.fail(s, err)
	}
	var out Result
	out.RowsAffected, _ = res.RowsAffected()
	out.InsertID, _ = res.LastInsertId()
	return out, nil
}

// Tx runs fn inside one transaction on the scope's pool, committing when fn
// returns nil. The query timeout covers the whole transaction.
func (r *Router) Tx(ctx context.Context, s Scope, fn func(*sql.Tx) error) error {
	db, err := r.pool(s)
	if err != nil {
		return r.fail(s, err)
	}
	ctx, cancel := context.WithTimeout(ctx, r.opts.QueryTimeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return r.fail(s, err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return r.fail(s, err)
	}
	if err := tx.Commit(); err != nil {
		return r.fail(s, err)
	}
	return nil
}

// ShardExists reports whether the shard's database has been created.
func (r *Router) ShardExists(ctx context.Context, host string, shardID int64) (bool, error) {
	ok, err := r.dialect.shardExists(ctx, r, host, shardID)
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return false, err
		}
		return false, r.fail(Shard(host, shardID), err)
	}
	return ok, nil
}

// CreateShard creates the shard's database if absent. Tables are not created here.
func (r *Router) CreateShard(ctx context.Context, host string, shardID int64) error {
	err := r.dialect.createShard(ctx, r, host, shardID)
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return r.fail(Shard(host, shardID), err)
}

// ShardSchema lists the idempotent DDL statements for one shard.
func (r *Router) ShardSchema() []string {
	return r.dialect.shardSchema()
}

// Pools reports how many pools are open.
func (r *Router) Pools() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pools)
}

// Close closes every pool. Later calls fail with ErrClosed.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for s, db := range r.pools {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s, err))
		}
		delete(r.pools, s)
	}
	metrics.ShardPools.Set(0)
	return errors.Join(errs...)
}
