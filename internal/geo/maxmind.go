package geo

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/oschwald/maxminddb-golang"
)

// MaxMind reads a local GeoIP2/GeoLite2 City database.
type MaxMind struct {
	db *maxminddb.Reader
}

// OpenMaxMind opens a .mmdb file. An empty path gives a reader that
// reports ErrNoRecord for everything.
func OpenMaxMind(path string) (*MaxMind, error) {
	if path == "" {
		return &MaxMind{}, nil
	}
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, err
	}
	return &MaxMind{db: db}, nil
}

// Enabled reports whether a database is loaded.
func (m *MaxMind) Enabled() bool { return m != nil && m.db != nil }

func (m *MaxMind) Close() {
	if m.Enabled() {
		m.db.Close()
	}
}

func (m *MaxMind) Name() string { return "maxmind" }

type cityRecord struct {
	Country struct {
		ISOCode string            `maxminddb:"iso_code"`
		Names   map[string]string `maxminddb:"names"`
	} `maxminddb:"country"`
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	Subdivisions []struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"subdivisions"`
	Postal struct {
		Code string `maxminddb:"code"`
	} `maxminddb:"postal"`
	Location struct {
		TimeZone string `maxminddb:"time_zone"`
	} `maxminddb:"location"`
	Traits struct {
		IsAnonymousProxy bool `maxminddb:"is_anonymous_proxy"`
	} `maxminddb:"traits"`
}

func (m *MaxMind) Locate(_ context.Context, addr netip.Addr) (Location, error) {
	if !m.Enabled() {
		return Location{}, ErrNoRecord
	}

	var rec cityRecord
	if err := m.db.Lookup(net.IP(addr.Unmap().AsSlice()), &rec); err != nil {
		return Location{}, err
	}
	if rec.Country.ISOCode == "" && rec.City.Names == nil {
		return Location{}, ErrNoRecord
	}

	loc := Location{
		CountryCode:    rec.Country.ISOCode,
		CountryName:    rec.Country.Names["en"],
		City:           rec.City.Names["en"],
		Postcode:       rec.Postal.Code,
		TimezoneOffset: zoneOffset(rec.Location.TimeZone, time.Now()),
		IsProxy:        rec.Traits.IsAnonymousProxy,
	}
	if len(rec.Subdivisions) > 0 {
		loc.State = rec.Subdivisions[0].ISOCode
	}
	return loc, nil
}

// zoneOffset is the UTC offset in seconds of an IANA zone at t, 0 if unknown.
func zoneOffset(zone string, t time.Time) int {
	if zone == "" {
		return 0
	}
	tz, err := time.LoadLocation(zone)
	if err != nil {
		return 0
	}
	_, off := t.In(tz).Zone()
	return off
}
