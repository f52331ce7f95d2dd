package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
)

// DefaultIPStackURL is the public ipstack endpoint.
const DefaultIPStackURL = "http://api.ipstack.com"

// IPStack queries the ipstack HTTP API with the security module enabled.
type IPStack struct {
	baseURL string
	key     string
	client  *http.Client
}

// NewIPStack returns a client for baseURL. A nil client uses http.DefaultClient;
// the resolver's context bounds each call.
func NewIPStack(baseURL, key string, client *http.Client) *IPStack {
	if baseURL == "" {
		baseURL = DefaultIPStackURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &IPStack{baseURL: strings.TrimRight(baseURL, "/"), key: key, client: client}
}

func (s *IPStack) Name() string { return "ipstack" }

type ipstackResponse struct {
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
	RegionCode  string `json:"region_code"`
	City        string `json:"city"`
	Zip         string `json:"zip"`
	TimeZone    *struct {
		ID        string `json:"id"`
		GMTOffset int    `json:"gmt_offset"`
	} `json:"time_zone"`
	Connection *struct {
		ISP string `json:"isp"`
	} `json:"connection"`
	Security *struct {
		IsProxy     bool   `json:"is_proxy"`
		ProxyType   string `json:"proxy_type"`
		IsCrawler   bool   `json:"is_crawler"`
		CrawlerName string `json:"crawler_name"`
		CrawlerType string `json:"crawler_type"`
		IsTor       bool   `json:"is_tor"`
	} `json:"security"`
	Error *struct {
		Code int    `json:"code"`
		Type string `json:"type"`
		Info string `json:"info"`
	} `json:"error"`
}

func (s *IPStack) Locate(ctx context.Context, addr netip.Addr) (Location, error) {
	q := url.Values{}
	q.Set("access_key", s.key)
	q.Set("format", "1")
	q.Set("security", "1")
	endpoint := s.baseURL + "/" + url.PathEscape(addr.Unmap().String()) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Location{}, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Location{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body ipstackResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, fmt.Errorf("decode: %w", err)
	}
	if body.Error != nil {
		return Location{}, fmt.Errorf("api error %d %s: %s", body.Error.Code, body.Error.Type, body.Error.Info)
	}

	loc := Location{
		CountryCode: body.CountryCode,
		CountryName: body.CountryName,
		City:        body.City,
		State:       body.RegionCode,
		Postcode:    body.Zip,
	}
	if body.TimeZone != nil {
		loc.TimezoneOffset = body.TimeZone.GMTOffset
	}
	if body.Connection != nil {
		loc.ISP = body.Connection.ISP
	}
	if sec := body.Security; sec != nil {
		loc.IsProxy = sec.IsProxy
		loc.ProxyType = sec.ProxyType
		loc.IsCrawler = sec.IsCrawler
		loc.CrawlerName = sec.CrawlerName
		loc.CrawlerType = sec.CrawlerType
		loc.IsTor = sec.IsTor
	}
	return loc, nil
}
