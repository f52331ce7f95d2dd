package analytics

import (
	"strings"

	"github.com/mssola/useragent"
)

// Device is what the collector reports about a visitor's user agent.
type Device struct {
	Browser        string
	BrowserVersion string
	OS             string
	OSVersion      string
	IsMobile       bool
	IsSmartphone   bool
	IsTablet       bool
	IsAndroid      bool
	IsIOS          bool
	IsBot          bool
}

func ParseUserAgent(raw string) Device {
	ua := useragent.New(raw)
	browser, browserVersion := ua.Browser()
	os := ua.OSInfo()

	lower := strings.ToLower(raw)
	tablet := strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet")
	mobile := ua.Mobile() || tablet

	osName := strings.ToLower(os.Name)
	return Device{
		Browser:        browser,
		BrowserVersion: browserVersion,
		OS:             os.Name,
		OSVersion:      os.Version,
		IsMobile:       mobile,
		IsSmartphone:   mobile && !tablet,
		IsTablet:       tablet,
		IsAndroid:      strings.Contains(osName, "android") || strings.Contains(lower, "android"),
		IsIOS:          strings.Contains(osName, "ios") || strings.Contains(lower, "iphone") || strings.Contains(lower, "ipad") || strings.Contains(lower, "ipod"),
		IsBot:          IsBot(raw),
	}
}
