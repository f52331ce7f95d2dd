package geo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type stubProvider struct {
	name  string
	loc   Location
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Locate(ctx context.Context, _ netip.Addr) (Location, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return Location{}, ctx.Err()
		}
	}
	return p.loc, p.err
}

var publicAddr = netip.MustParseAddr("8.8.8.8")

// ── MaxMind ─────────────────────────────────────────────────────────

func TestOpenMaxMind_EmptyPath_ReturnsNoOpReader(t *testing.T) {
	m, err := OpenMaxMind("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Enabled() {
		t.Fatal("empty path should not load a database")
	}
	if _, err := m.Locate(context.Background(), publicAddr); !errors.Is(err, ErrNoRecord) {
		t.Errorf("Locate err = %v, want ErrNoRecord", err)
	}
	m.Close()
}

func TestOpenMaxMind_MissingFile(t *testing.T) {
	if _, err := OpenMaxMind(t.TempDir() + "/missing.mmdb"); err == nil {
		t.Fatal("expected error for missing database")
	}
}

func TestZoneOffset(t *testing.T) {
	at := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	if got := zoneOffset("Asia/Tokyo", at); got != 9*3600 {
		t.Errorf("Tokyo offset = %d, want %d", got, 9*3600)
	}
	if got := zoneOffset("", at); got != 0 {
		t.Errorf("empty zone offset = %d", got)
	}
	if got := zoneOffset("Mars/Olympus", at); got != 0 {
		t.Errorf("unknown zone offset = %d", got)
	}
}

// ── IPStack ─────────────────────────────────────────────────────────

func TestIPStack_ParsesResponse(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{
			"country_code":"US","country_name":"United States","region_code":"CA",
			"city":"Mountain View","zip":"94043",
			"time_zone":{"id":"America/Los_Angeles","gmt_offset":-25200},
			"connection":{"isp":"Google LLC"},
			"security":{"is_proxy":true,"proxy_type":"cdn","is_crawler":true,
				"crawler_name":"Googlebot","crawler_type":"search_engine_bot","is_tor":false}
		}`)
	}))
	defer srv.Close()

	loc, err := NewIPStack(srv.URL+"/", "k3y", nil).Locate(context.Background(), publicAddr)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if gotPath != "/8.8.8.8" {
		t.Errorf("path = %q", gotPath)
	}
	for _, want := range []string{"access_key=k3y", "format=1", "security=1"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
	want := Location{
		CountryCode: "US", CountryName: "United States", City: "Mountain View",
		State: "CA", Postcode: "94043", ISP: "Google LLC", TimezoneOffset: -25200,
		IsProxy: true, ProxyType: "cdn", IsCrawler: true,
		CrawlerName: "Googlebot", CrawlerType: "search_engine_bot",
	}
	if loc != want {
		t.Errorf("got %+v\nwant %+v", loc, want)
	}
}

func TestIPStack_NullSecurityFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"country_code":"DE","security":{"is_proxy":false,"proxy_type":null,"crawler_name":null}}`)
	}))
	defer srv.Close()

	loc, err := NewIPStack(srv.URL, "k", nil).Locate(context.Background(), publicAddr)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if loc.CountryCode != "DE" || loc.ProxyType != "" || loc.CrawlerName != "" {
		t.Errorf("got %+v", loc)
	}
}

func TestIPStack_APIErrorIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":false,"error":{"code":101,"type":"invalid_access_key","info":"bad key"}}`)
	}))
	defer srv.Close()

	_, err := NewIPStack(srv.URL, "bad", nil).Locate(context.Background(), publicAddr)
	if err == nil || !strings.Contains(err.Error(), "invalid_access_key") {
		t.Fatalf("err = %v, want api error", err)
	}
}

func TestIPStack_BadStatusAndBody(t *testing.T) {
	for _, tc := range []struct {
		name   string
		status int
		body   string
	}{
		{"status", http.StatusInternalServerError, "{}"},
		{"body", http.StatusOK, "<html>"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			defer srv.Close()

			if _, err := NewIPStack(srv.URL, "k", nil).Locate(context.Background(), publicAddr); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

// ── Resolver ────────────────────────────────────────────────────────

func TestResolve_FirstAnswerWins(t *testing.T) {
	a := &stubProvider{name: "a", loc: Location{CountryCode: "FR"}}
	b := &stubProvider{name: "b", loc: Location{CountryCode: "IT"}}

	loc := NewResolver(time.Second, nil, a, b).Resolve(context.Background(), publicAddr)
	if loc.CountryCode != "FR" {
		t.Errorf("CountryCode = %q, want FR", loc.CountryCode)
	}
	if b.calls.Load() != 0 {
		t.Error("second provider should not be asked")
	}
}

func TestResolve_FallsThroughFailuresAndMisses(t *testing.T) {
	failing := &stubProvider{name: "failing", err: errors.New("boom")}
	empty := &stubProvider{name: "empty", err: ErrNoRecord}
	good := &stubProvider{name: "good", loc: Location{City: "Lyon"}}

	loc := NewResolver(time.Second, nil, failing, empty, good).Resolve(context.Background(), publicAddr)
	if loc.City != "Lyon" {
		t.Errorf("City = %q, want Lyon", loc.City)
	}
}

func TestResolve_AllFail_ReturnsEmptyLocation(t *testing.T) {
	failing := &stubProvider{name: "failing", err: errors.New("boom")}
	loc := NewResolver(time.Second, nil, failing).Resolve(context.Background(), publicAddr)
	if loc != (Location{}) {
		t.Errorf("expected empty location, got %+v", loc)
	}
}

func TestResolve_TimeoutDegrades(t *testing.T) {
	slow := &stubProvider{name: "slow", delay: time.Minute, loc: Location{CountryCode: "XX"}}
	next := &stubProvider{name: "next", loc: Location{CountryCode: "YY"}}

	start := time.Now()
	loc := NewResolver(50*time.Millisecond, nil, slow, next).Resolve(context.Background(), publicAddr)
	if loc != (Location{}) {
		t.Errorf("expected empty location, got %+v", loc)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("resolver did not honour its timeout")
	}
	if next.calls.Load() != 0 {
		t.Error("providers after an expired deadline should be skipped")
	}
}

func TestResolve_SkipsNonPublicAddresses(t *testing.T) {
	p := &stubProvider{name: "p", loc: Location{CountryCode: "US"}}
	r := NewResolver(time.Second, nil, p)

	for _, s := range []string{"0.0.0.0", "127.0.0.1", "10.1.2.3", "192.168.0.9", "::1"} {
		if loc := r.Resolve(context.Background(), netip.MustParseAddr(s)); loc != (Location{}) {
			t.Errorf("Resolve(%s) = %+v, want empty", s, loc)
		}
	}
	if loc := r.Resolve(context.Background(), netip.Addr{}); loc != (Location{}) {
		t.Errorf("zero Addr resolved to %+v", loc)
	}
	if p.calls.Load() != 0 {
		t.Errorf("provider called %d times", p.calls.Load())
	}
}

func TestResolve_NilResolver(t *testing.T) {
	var r *Resolver
	if loc := r.Resolve(context.Background(), publicAddr); loc != (Location{}) {
		t.Errorf("nil resolver returned %+v", loc)
	}
}

func TestUpstreamError_Unwrap(t *testing.T) {
	base := errors.New("dial")
	err := error(&UpstreamError{Provider: "ipstack", Err: base})
	if !errors.Is(err, base) {
		t.Error("UpstreamError should unwrap to its cause")
	}
	if err.Error() != "geo ipstack: dial" {
		t.Errorf("Error() = %q", err.Error())
	}
}
