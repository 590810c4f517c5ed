package utils

import "testing"

func TestDomain(t *testing.T) {
	cases := map[string]string{
		"https://www.example.com/path?q=1": "example.com",
		"http://stats.gov.cn/data":         "stats.gov.cn",
		"not a url":                        "not a url",
	}
	for in, want := range cases {
		if got := Domain(in); got != want {
			t.Errorf("Domain(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSourceIcon(t *testing.T) {
	cases := map[string]string{
		"https://www.stats.gov.cn/":  "🏛️",
		"https://news.example.com/a": "📰",
		"https://mit.edu/research":   "🎓",
		"https://example.org/":       "🌐",
		"https://random.io/":         "🔍",
	}
	for in, want := range cases {
		if got := SourceIcon(in); got != want {
			t.Errorf("SourceIcon(%q) = %q, want %q", in, got, want)
		}
	}
}
