// Package directory resolves tenants (tracked hostnames) to their shard and
// physical host, and authenticates advertisers, against the shared
// directory database.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lazysauce/collector/internal/store"
)

var (
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrAdvertiserNotFound = errors.New("advertiser not found")
	ErrInvalidLicense     = errors.New("invalid license")
)

// Tenant is one tracked hostname. ShardID doubles as the domain key.
type Tenant struct {
	ShardID      int64
	Name         string
	AdvertiserID int64
	Host         string
	CreatedAt    time.Time
}

type Advertiser struct {
	ID        int64
	Name      string
	License   string
	Host      string
	CreatedAt time.Time
}

type Directory struct {
	router *store.Router
	cache  *TenantCache
	log    *zap.Logger
	now    func() time.Time
}

func New(r *store.Router, cacheSize int, log *zap.Logger) (*Directory, error) {
	c, err := NewTenantCache(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("tenant cache: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Directory{router: r, cache: c, log: log, now: time.Now}, nil
}

const tenantColumns = "dkey, name, aid, db_host, date_created"

func scanTenant(rows *sql.Rows, t *Tenant) error {
	return rows.Scan(&t.ShardID, &t.Name, &t.AdvertiserID, &t.Host, &t.CreatedAt)
}

func (d *Directory) queryTenant(ctx context.Context, where string, arg any) (Tenant, error) {
	var t Tenant
	found := false
	err := d.router.Query(ctx, store.Directory(), func(rows *sql.Rows) error {
		found = true
		return scanTenant(rows, &t)
	}, "SELECT "+tenantColumns+" FROM domain WHERE "+where+" LIMIT 1", arg)
	if err != nil {
		return Tenant{}, err
	}
	if !found {
		return Tenant{}, ErrTenantNotFound
	}
	if t.Host == "" {
		t.Host, err = d.advertiserHost(ctx, t.AdvertiserID)
		if err != nil {
			return Tenant{}, err
		}
	}
	d.cache.Set(t)
	return t, nil
}

// advertiserHost is the fallback route for tenants created without a host.
func (d *Directory) advertiserHost(ctx context.Context, aid int64) (string, error) {
	a, err := d.ResolveAdvertiser(ctx, aid)
	if errors.Is(err, ErrAdvertiserNotFound) {
		return d.router.DefaultHost(), nil
	}
	if err != nil {
		return "", err
	}
	if a.Host == "" {
		return d.router.DefaultHost(), nil
	}
	return a.Host, nil
}

// TenantByName looks a tenant up by exact hostname.
func (d *Directory) TenantByName(ctx context.Context, name string) (Tenant, error) {
	if t, ok := d.cache.ByName(name); ok {
		return t, nil
	}
	return d.queryTenant(ctx, "name = ?", name)
}

// ResolveTenant looks a tenant up by shard id.
func (d *Directory) ResolveTenant(ctx context.Context, shardID int64) (Tenant, error) {
	if t, ok := d.cache.ByShard(shardID); ok {
		return t, nil
	}
	return d.queryTenant(ctx, "dkey = ?", shardID)
}

// ResolveOrCreateTenant returns the tenant for hostname, inserting it on
// first sight with the advertiser's host (or the default host). When a
// concurrent caller wins the insert, the unique constraint on name fails
// ours and the winner's row is returned instead.
func (d *Directory) ResolveOrCreateTenant(ctx context.Context, hostname string, adv Advertiser) (Tenant, bool, error) {
	t, err := d.TenantByName(ctx, hostname)
	if err == nil {
		return t, false, nil
	}
	if !errors.Is(err, ErrTenantNotFound) {
		return Tenant{}, false, err
	}

	host := adv.Host
	if host == "" {
		host = d.router.DefaultHost()
	}
	created := d.now().UTC().Truncate(time.Second)
	res, err := d.router.Execute(ctx, store.Directory(),
		"INSERT INTO domain (name, aid, db_host, date_created) VALUES (?, ?, ?, ?)",
		hostname, adv.ID, host, created)
	if err != nil {
		if store.IsUniqueViolation(err) {
			d.log.Info("tenant insert lost race", zap.String("domain", hostname))
			t, err := d.queryTenant(ctx, "name = ?", hostname)
			return t, false, err
		}
		return Tenant{}, false, err
	}

	t = Tenant{
		ShardID:      res.InsertID,
		Name:         hostname,
		AdvertiserID: adv.ID,
		Host:         host,
		CreatedAt:    created,
	}
	d.cache.Set(t)
	d.log.Info("tenant created", zap.String("domain", hostname), zap.Int64("shard", t.ShardID), zap.String("host", host))
	return t, true, nil
}

// ListTenants returns every tenant ordered by shard id.
func (d *Directory) ListTenants(ctx context.Context) ([]Tenant, error) {
	var out []Tenant
	err := d.router.Query(ctx, store.Directory(), func(rows *sql.Rows) error {
		var t Tenant
		if err := scanTenant(rows, &t); err != nil {
			return err
		}
		out = append(out, t)
		return nil
	}, "SELECT "+tenantColumns+" FROM domain ORDER BY dkey")
	return out, err
}

func (d *Directory) ResolveAdvertiser(ctx context.Context, aid int64) (Advertiser, error) {
	var a Advertiser
	found := false
	err := d.router.Query(ctx, store.Directory(), func(rows *sql.Rows) error {
		found = true
		return rows.Scan(&a.ID, &a.Name, &a.License, &a.Host, &a.CreatedAt)
	}, "SELECT aid, name, license, db_host, date_created FROM advertiser WHERE aid = ? LIMIT 1", aid)
	if err != nil {
		return Advertiser{}, err
	}
	if !found {
		return Advertiser{}, ErrAdvertiserNotFound
	}
	return a, nil
}

// Authenticate checks license against the advertiser's stored secret.
// The comparison is plain string equality.
func (d *Directory) Authenticate(ctx context.Context, aid int64, license string) (Advertiser, error) {
	a, err := d.ResolveAdvertiser(ctx, aid)
	if err != nil {
		return Advertiser{}, err
	}
	if a.License != license {
		return Advertiser{}, ErrInvalidLicense
	}
	return a, nil
}

func (d *Directory) CreateAdvertiser(ctx context.Context, name, license, host string) (Advertiser, error) {
	a := Advertiser{
		Name:      name,
		License:   license,
		Host:      host,
		CreatedAt: d.now().UTC().Truncate(time.Second),
	}
	res, err := d.router.Execute(ctx, store.Directory(),
		"INSERT INTO advertiser (name, license, db_host, date_created) VALUES (?, ?, ?, ?)",
		a.Name, a.License, a.Host, a.CreatedAt)
	if err != nil {
		return Advertiser{}, err
	}
	a.ID = res.InsertID
	return a, nil
}
