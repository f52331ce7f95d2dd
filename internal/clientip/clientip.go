// Package clientip works out the visitor's address behind CDNs and proxies.
package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Consulted in order after cf-connecting-ip. The first comma-separated item
// of the first header holding a valid address wins.
var forwardedHeaders = []string{
	"X-Forwarded-For",
	"X-Real-Ip",
	"X-Client-Ip",
	"X-Cluster-Client-Ip",
	"Forwarded-For",
	"Forwarded",
}

// FromRequest returns the client address as text. The CDN header is
// trusted as-is; the forwarded headers must parse as IPv4 or IPv6; the
// connection address is the last resort.
func FromRequest(r *http.Request) string {
	if cf := strings.TrimSpace(r.Header.Get("Cf-Connecting-Ip")); cf != "" {
		return cf
	}
	for _, h := range forwardedHeaders {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		first, _, _ := strings.Cut(v, ",")
		first = strings.TrimSpace(first)
		if addr, err := netip.ParseAddr(first); err == nil {
			return addr.String()
		}
	}
	return remoteHost(r.RemoteAddr)
}

func remoteHost(remote string) string {
	if remote == "" {
		return "0.0.0.0"
	}
	if host, _, err := net.SplitHostPort(remote); err == nil {
		return host
	}
	return remote
}

// Parse converts a textual address to netip form, unmapping IPv4-in-IPv6.
// Invalid input yields the zero Addr.
func Parse(s string) netip.Addr {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}
	}
	return addr.Unmap()
}
