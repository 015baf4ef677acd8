package metadata

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// ParseUserAgent renders a short "Browser on OS" description of a User-Agent.
func ParseUserAgent(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return unknownDevice
	}

	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}

	os := ua.OS()
	if platform := ua.Platform(); ua.Mobile() && platform != "" && !strings.Contains(os, platform) {
		os = platform + " " + os
	}
	if strings.TrimSpace(os) == "" {
		os = "Unknown OS"
	}

	return strings.TrimSpace(browser) + " on " + strings.TrimSpace(os)
}
