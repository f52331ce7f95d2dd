// Package geo resolves client addresses to a coarse location. Lookups
// never fail the caller: upstream problems degrade to an empty Location.
package geo

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/lazysauce/collector/internal/metrics"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a whole Resolve call.
const DefaultTimeout = 3 * time.Second

// ErrNoRecord means the provider answered but knows nothing about the address.
var ErrNoRecord = errors.New("geo: no record")

// Location is what the collector keeps about where a visit came from.
// TimezoneOffset is in seconds east of UTC.
type Location struct {
	CountryCode    string
	CountryName    string
	City           string
	State          string
	Postcode       string
	ISP            string
	TimezoneOffset int
	IsProxy        bool
	ProxyType      string
	IsCrawler      bool
	CrawlerName    string
	CrawlerType    string
	IsTor          bool
}

// Provider is one geo-IP backend.
type Provider interface {
	Name() string
	Locate(ctx context.Context, addr netip.Addr) (Location, error)
}

// UpstreamError is a provider failure. The resolver logs it and moves on.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("geo %s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Resolver asks each provider in order and returns the first answer.
type Resolver struct {
	providers []Provider
	timeout   time.Duration
	log       *zap.Logger
}

// NewResolver builds a resolver. A non-positive timeout uses DefaultTimeout.
func NewResolver(timeout time.Duration, log *zap.Logger, providers ...Provider) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{providers: providers, timeout: timeout, log: log.Named("geo")}
}

// Resolve returns the location for addr, or the zero Location when no
// provider could answer in time. Unspecified, loopback and private
// addresses are not looked up.
func (r *Resolver) Resolve(ctx context.Context, addr netip.Addr) Location {
	if r == nil || !addr.IsValid() || addr.IsUnspecified() || addr.IsLoopback() || addr.IsPrivate() {
		return Location{}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	for _, p := range r.providers {
		loc, err := p.Locate(ctx, addr)
		if err == nil {
			return loc
		}
		if errors.Is(err, ErrNoRecord) {
			continue
		}
		uerr := &UpstreamError{Provider: p.Name(), Err: err}
		metrics.GeoFailures.WithLabelValues(p.Name()).Inc()
		r.log.Warn("lookup failed", zap.String("ip", addr.String()), zap.Error(uerr))
		if ctx.Err() != nil {
			break
		}
	}
	return Location{}
}
