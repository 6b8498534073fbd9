package utils

import (
	"fmt"
	"strings"

	"github.com/mssola/user_agent"
)

// SummarizeUserAgent condenses a raw User-Agent header into a short
// human-readable device description for the waiver's evidentiary record
func SummarizeUserAgent(raw string) string {
	if raw == "" {
		return "unknown device"
	}

	ua := user_agent.New(raw)

	browser, version := ua.Browser()
	os := ua.OS()

	parts := []string{}
	if browser != "" {
		if version != "" {
			parts = append(parts, fmt.Sprintf("%s %s", browser, version))
		} else {
			parts = append(parts, browser)
		}
	}
	if os != "" {
		parts = append(parts, os)
	}
	if ua.Mobile() {
		parts = append(parts, "mobile")
	}

	if len(parts) == 0 {
		return "unknown device"
	}
	return strings.Join(parts, ", ")
}
