package utils

import (
	"net/url"
	"strings"
)

func UrlQuery(s string) string { return strings.ReplaceAll(s, " ", "+") }

// Domain extracts the bare hostname from a URL, without the www. prefix.
func Domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return strings.TrimPrefix(u.Host, "www.")
}

// SourceIcon maps a result URL to a display emoji based on its domain.
func SourceIcon(raw string) string {
	domain := strings.ToLower(Domain(raw))
	switch {
	case strings.Contains(domain, "gov"):
		return "🏛️"
	case strings.Contains(domain, "edu"):
		return "🎓"
	case strings.Contains(domain, "news") || strings.Contains(domain, "reuters") || strings.Contains(domain, "bloomberg"):
		return "📰"
	case strings.Contains(domain, "stats"):
		return "📊"
	case strings.Contains(domain, "org"):
		return "🌐"
	default:
		return "🔍"
	}
}
