// Package attribution decides which channel, subchannel and keyword a
// visit is credited to. Each field is the first non-empty candidate of a
// fixed ordered list.
package attribution

import (
	"net/url"
	"strings"
)

const DefaultChannel = "organic"

// Input is what the tracking call supplied. Params are the query
// parameters of the tracked page URL.
type Input struct {
	ChannelOverride    string // co
	ChannelVar         string // cv
	SubchannelOverride string // so
	SubchannelVar      string // sv
	TargetOverride     string // to
	Params             url.Values
}

type Result struct {
	Channel    string
	Subchannel string
	Target     string
}

func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

// named resolves a variable-name indirection: the value of the page
// parameter called name, if any.
func named(params url.Values, name string) string {
	if name == "" {
		return ""
	}
	return params.Get(name)
}

func Resolve(in Input) Result {
	p := in.Params
	if p == nil {
		p = url.Values{}
	}

	channel := firstNonEmpty(
		in.ChannelOverride,
		named(p, in.ChannelVar),
		p.Get("lz_c"),
		p.Get("c"),
		DefaultChannel,
	)

	subchannel := NormalizeSubchannel(firstNonEmpty(
		in.SubchannelOverride,
		named(p, in.SubchannelVar),
		p.Get("lz_s"),
		p.Get("s"),
	))

	target := firstNonEmpty(
		in.TargetOverride,
		p.Get("lz_t"),
		p.Get("k"),
		p.Get("keyword"),
	)
	if campid := p.Get("campid"); campid != "" {
		target += "-.-" + campid
	}

	return Result{Channel: channel, Subchannel: subchannel, Target: target}
}

// NormalizeSubchannel turns underscores into dots and drops one trailing dot.
func NormalizeSubchannel(s string) string {
	s = strings.ReplaceAll(s, "_", ".")
	return strings.TrimSuffix(s, ".")
}

// Known scraped inventory. Hits whose action offer or page URL contain one of
// these are answered with a stub and never stored.
var blockedPatterns = []string{
	"/home-mortgage-refinance-lenders/redr.php",
	"/home-mortgage/compare-best-refinance-lenders/redr.php",
	"besthomewarranty.deals/redr",
	"besthomewarranty.reviews/redr",
	"homemortgagerefinance.online/redr",
	"besthomewarranty.net/go.php",
	"besthomemortgagerefinance.com/go.php",
	"bestgiftsideas.com/go.php",
}

// StubHash is returned in place of a reference for blocked hits.
const StubHash = "redr_hash"

func IsBlocked(candidates ...string) bool {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		for _, p := range blockedPatterns {
			if strings.Contains(c, p) {
				return true
			}
		}
	}
	return false
}
