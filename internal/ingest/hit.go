package ingest

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lazysauce/collector/internal/analytics"
	"github.com/lazysauce/collector/internal/attribution"
	"github.com/lazysauce/collector/internal/clientip"
	"github.com/lazysauce/collector/internal/models"
	"github.com/lazysauce/collector/internal/ref"
)

// HitRequest is a page visit. ClientIP is the address derived from the
// connection and proxy headers; IP is the caller's explicit override.
type HitRequest struct {
	URL                string
	ActionOffer        string
	AdvertiserID       string
	License            string
	Key                string
	ChannelVar         string
	ChannelOverride    string
	SubchannelVar      string
	SubchannelOverride string
	TargetOverride     string
	Variant            int
	Engagement         int
	IP                 string
	ClientIP           string
	UserAgent          string
	Languages          string
	ScreenWidth        int
	ScreenHeight       int
	// TimezoneOffset is the browser's getTimezoneOffset(), minutes west of UTC.
	TimezoneOffset int
}

type HitResponse struct {
	PKey           string `json:"pkey"`
	Hash           string `json:"hash"`
	Domain         string `json:"domain"`
	IsBot          int    `json:"is_bot"`
	OS             string `json:"os"`
	OSVersion      string `json:"os_version"`
	Browser        string `json:"browser"`
	BrowserVersion string `json:"browser_version"`
	IsMobile       int    `json:"is_mobile"`
	IsSmartphone   int    `json:"is_smartphone"`
	IsTablet       int    `json:"is_tablet"`
	IsAndroid      int    `json:"is_android"`
	IsIOS          int    `json:"is_ios"`
	Languages      string `json:"languages"`
	Screen         string `json:"screen"`
	Timezone       int    `json:"timezone"`
	Country        string `json:"country"`
	State          string `json:"state"`
	City           string `json:"city"`
	Postcode       string `json:"postcode"`
	Channel        string `json:"channel"`
	Subchannel     string `json:"subchannel"`

	// Blocked is set for deny-listed hits; only PKey and Hash are meaningful.
	Blocked bool `json:"-"`
	// Created reports whether a new visit row was written.
	Created bool `json:"-"`
}

// BlockedResponse is the body returned for deny-listed hits.
type BlockedResponse struct {
	PKey  string `json:"pkey"`
	Hash  string `json:"hash"`
	IsBot int    `json:"is_bot"`
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Hit records a visit, creating the tenant and its shard on first sight,
// and returns the visit key and a fresh reference.
func (s *Service) Hit(ctx context.Context, req HitRequest) (resp HitResponse, err error) {
	outcome := "ok"
	defer func() { s.observe("hit", outcome, err) }()

	if attribution.IsBlocked(req.ActionOffer, req.URL) {
		outcome = "blocked"
		return HitResponse{PKey: req.Key, Hash: attribution.StubHash, Blocked: true}, nil
	}
	if strings.TrimSpace(req.URL) == "" {
		return HitResponse{}, invalid(msgMissingParams)
	}

	adv, err := s.authenticate(ctx, req.AdvertiserID, req.License)
	if err != nil {
		return HitResponse{}, err
	}

	var existing int64
	if k := strings.TrimSpace(req.Key); k != "" && k != "0" {
		existing = ref.VerifyChecksum(k)
		if existing == ref.Invalid {
			return HitResponse{}, invalid(msgInvalidKey)
		}
	}

	host, params := pageHost(req.URL)
	attr := attribution.Resolve(attribution.Input{
		ChannelOverride:    req.ChannelOverride,
		ChannelVar:         req.ChannelVar,
		SubchannelOverride: req.SubchannelOverride,
		SubchannelVar:      req.SubchannelVar,
		TargetOverride:     req.TargetOverride,
		Params:             params,
	})

	ipText := req.IP
	if ipText == "" {
		ipText = req.ClientIP
	}
	addr := clientip.Parse(ipText)
	device := analytics.ParseUserAgent(req.UserAgent)
	loc := s.Geo.Resolve(ctx, addr)
	isBot := device.IsBot || loc.IsCrawler
	if !isBot && s.Datacenter != nil {
		isBot = s.Datacenter.Contains(addr)
	}

	tenant, created, err := s.Directory.ResolveOrCreateTenant(ctx, host, adv)
	if err != nil {
		return HitResponse{}, err
	}
	scope, err := s.shard(ctx, tenant)
	if err != nil {
		return HitResponse{}, err
	}

	key := existing
	if key == 0 {
		v := models.Visit{
			DomainKey:  tenant.ShardID,
			IP:         addr,
			Variant:    req.Variant,
			Channel:    attr.Channel,
			Subchannel: attr.Subchannel,
			Target:     attr.Target,
			IsBot:      isBot,
			Engagement: req.Engagement,
			CreatedAt:  s.rowTime(),
		}
		if err := models.InsertVisit(ctx, s.Router, scope, &v); err != nil {
			return HitResponse{}, err
		}
		key = v.Key
		resp.Created = true
	} else if _, err := models.GetVisit(ctx, s.Router, scope, key); err != nil {
		if models.IsNotFound(err) {
			return HitResponse{}, notFound(msgVisit, err)
		}
		return HitResponse{}, err
	}

	if created {
		s.logger().Info("first hit for domain", zap.String("domain", host), zap.Int64("shard", tenant.ShardID))
	}

	resp.PKey = ref.Checksum(key)
	resp.Hash = ref.New(tenant.ShardID, key, s.now().UnixMilli()).String()
	resp.Domain = host
	resp.IsBot = flag(isBot)
	resp.OS = device.OS
	resp.OSVersion = device.OSVersion
	resp.Browser = device.Browser
	resp.BrowserVersion = device.BrowserVersion
	resp.IsMobile = flag(device.IsMobile)
	resp.IsSmartphone = flag(device.IsSmartphone)
	resp.IsTablet = flag(device.IsTablet)
	resp.IsAndroid = flag(device.IsAndroid)
	resp.IsIOS = flag(device.IsIOS)
	resp.Languages = req.Languages
	resp.Screen = fmt.Sprintf("%dx%d", req.ScreenWidth, req.ScreenHeight)
	resp.Timezone = -req.TimezoneOffset
	resp.Country = loc.CountryCode
	resp.State = loc.State
	resp.City = loc.City
	resp.Postcode = loc.Postcode
	resp.Channel = attr.Channel
	resp.Subchannel = attr.Subchannel
	return resp, nil
}
