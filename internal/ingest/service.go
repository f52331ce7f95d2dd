// Package ingest implements the tracking endpoints: it validates input,
// resolves the tenant shard, provisions it, and reads or writes the
// shard-local rows.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lazysauce/collector/internal/analytics"
	"github.com/lazysauce/collector/internal/datacenter"
	"github.com/lazysauce/collector/internal/directory"
	"github.com/lazysauce/collector/internal/geo"
	"github.com/lazysauce/collector/internal/metrics"
	"github.com/lazysauce/collector/internal/provision"
	"github.com/lazysauce/collector/internal/ref"
	"github.com/lazysauce/collector/internal/store"
)

// Service holds the collaborators every endpoint needs. Geo, Datacenter
// and Checkpoints are optional.
type Service struct {
	Router      *store.Router
	Directory   *directory.Directory
	Provisioner *provision.Provisioner
	Geo         *geo.Resolver
	Datacenter  *datacenter.Checker
	// Checkpoints receives checkpoint writes asynchronously. When nil,
	// checkpoints are written inline.
	Checkpoints *analytics.Collector
	Log         *zap.Logger
	Now         func() time.Time
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// rowTime is the timestamp stored on new rows.
func (s *Service) rowTime() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

func (s *Service) observe(endpoint, outcome string, err error) {
	if err != nil {
		outcome = outcomeOf(err)
	}
	metrics.Events.WithLabelValues(endpoint, outcome).Inc()
}

// authenticate checks an advertiser id and license pair.
func (s *Service) authenticate(ctx context.Context, rawID, license string) (directory.Advertiser, error) {
	aid, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil {
		return directory.Advertiser{}, invalid("Advertiser ID invalid: " + rawID)
	}
	adv, err := s.Directory.Authenticate(ctx, aid, license)
	switch {
	case errors.Is(err, directory.ErrAdvertiserNotFound):
		return directory.Advertiser{}, notFound("Advertiser not found: "+rawID, err)
	case errors.Is(err, directory.ErrInvalidLicense):
		return directory.Advertiser{}, &AuthError{Msg: "Invalid license for advertiser: " + rawID}
	case err != nil:
		return directory.Advertiser{}, err
	}
	return adv, nil
}

func (s *Service) tenantByShard(ctx context.Context, shardID int64) (directory.Tenant, error) {
	t, err := s.Directory.ResolveTenant(ctx, shardID)
	if errors.Is(err, directory.ErrTenantNotFound) {
		return directory.Tenant{}, notFound(msgDomain, err)
	}
	return t, err
}

// tenantFor finds the shard an event belongs to: from the reference when
// one was given, otherwise from the page URL of an authenticated advertiser.
func (s *Service) tenantFor(ctx context.Context, r *ref.Reference, rawURL, rawAID, license string) (directory.Tenant, error) {
	if r != nil {
		return s.tenantByShard(ctx, r.ShardID)
	}
	if rawURL == "" || rawAID == "" {
		return directory.Tenant{}, invalid(msgInvalidHash)
	}
	adv, err := s.authenticate(ctx, rawAID, license)
	if err != nil {
		return directory.Tenant{}, err
	}
	host, _ := pageHost(rawURL)
	t, err := s.Directory.TenantByName(ctx, host)
	if errors.Is(err, directory.ErrTenantNotFound) {
		return directory.Tenant{}, notFound(msgDomain, err)
	}
	if err != nil {
		return directory.Tenant{}, err
	}
	if t.AdvertiserID != adv.ID {
		return directory.Tenant{}, &AuthError{Msg: "Invalid license for advertiser: " + rawAID}
	}
	return t, nil
}

// shard provisions the tenant's shard and returns its scope.
func (s *Service) shard(ctx context.Context, t directory.Tenant) (store.Scope, error) {
	if _, err := s.Provisioner.Ensure(ctx, t.Host, t.ShardID); err != nil {
		return store.Scope{}, err
	}
	return store.Shard(t.Host, t.ShardID), nil
}

// parseOptionalRef decodes raw when present. "0" counts as absent.
func parseOptionalRef(raw string, required int) (*ref.Reference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0" {
		return nil, nil
	}
	r, err := ref.Parse(raw, required)
	if err != nil {
		return nil, invalid(msgInvalidHash)
	}
	return &r, nil
}

// visitKey picks the checksummed key when it verifies, else the
// reference's visit segment.
func visitKey(rawKey string, r *ref.Reference) int64 {
	if k := ref.VerifyChecksum(strings.TrimSpace(rawKey)); k != ref.Invalid {
		return k
	}
	if r != nil {
		return r.VisitKey
	}
	return ref.Invalid
}

// pageHost extracts the tenant hostname and query of a tracked page URL.
// A leading "www." is dropped; unparseable URLs map to "unknown".
func pageHost(raw string) (string, url.Values) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Hostname() == "" {
		return "unknown", url.Values{}
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return host, u.Query()
}

func parseRevenue(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, invalid("Invalid revenue: " + raw)
	}
	return d, nil
}

// revenueJSON renders an amount as a bare JSON number.
func revenueJSON(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
