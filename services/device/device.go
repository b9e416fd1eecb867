package device

import (
	"strings"

	"github.com/mileusna/useragent"
)

// Browser returns a human-readable browser label for a raw User-Agent
// string, or "" when the browser cannot be identified. Callers are
// expected to substitute their own "unknown" wording for "".
func Browser(uaString string) string {
	if uaString == "" {
		return ""
	}

	// Official clients embed the product name in their User-Agent and
	// are labelled as such regardless of the underlying engine.
	if strings.Contains(strings.ToLower(uaString), "harborchat") {
		return "Harborchat"
	}

	ua := useragent.Parse(uaString)

	// The parser echoes the raw input as the name when it recognizes
	// nothing; that junk must not end up in a notification email.
	if ua.Name == uaString {
		return ""
	}

	return browserLabel(ua.Name)
}

// OS returns the operating system label for a raw User-Agent string,
// or "" when the parser cannot identify one.
func OS(uaString string) string {
	if uaString == "" {
		return ""
	}

	ua := useragent.Parse(uaString)
	if ua.OS == uaString {
		return ""
	}
	return osLabel(ua.OS)
}

func browserLabel(family string) string {
	switch family {
	case "IE":
		return "Internet Explorer"
	case "Chrome Mobile iOS":
		return "Chrome Mobile"
	case "", "Other":
		return ""
	default:
		return family
	}
}

func osLabel(family string) string {
	if family == "" || family == "Other" {
		return ""
	}
	return family
}
