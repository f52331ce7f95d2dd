package analytics

import (
	"strings"

	"github.com/mssola/useragent"
)

// botSignatures are matched case-insensitively against the raw user agent,
// on top of the parser's own crawler detection.
var botSignatures = []string{
	// generic
	"bot", "spider", "crawl", "scraper",

	// link unfurlers
	"facebookexternalhit", "facebot", "whatsapp", "telegrambot", "preview",

	// ad and search verification
	"google web preview", "google favicon", "google-ad", "googlesecurityscanner",
	"google_analytics_snippet_validator", "chrome-lighthouse", "bingpreview/",
	"admantx", "pageanalyzer/",

	// scanners
	"burpcollaborator.net/", "zgrab/", "netcraftsurveyagent/", "wappalyzer", "whatweb/",

	// HTTP clients and scripting runtimes
	"go-http-client/", "curl/", "wget", "python", "pycurl/", "java/",
	"libwww-perl/", "perl", "okhttp/", "ruby", "faraday v", "wininet",

	// headless renderers
	"headlesschrome/", "phantomjs", "slimerjs", "wkhtmltoimage", "wkhtmltopdf",

	// synthetic monitoring
	"ruxitsynthetic/", "ruxitrecorder/", "dataprovider.com", "ubermetrics-technologies.com",
}

// IsBot reports whether the user agent looks automated. An empty user
// agent is not a bot.
func IsBot(raw string) bool {
	if raw == "" {
		return false
	}
	if useragent.New(raw).Bot() {
		return true
	}
	lower := strings.ToLower(raw)
	for _, sig := range botSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
