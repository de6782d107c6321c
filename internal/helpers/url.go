package helpers

import (
	"net/url"
	"strings"
)

// Host returns the lower-cased host of raw without a leading "www." and
// without a port. Schemeless input such as "nih.gov/page" is accepted.
func Host(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + strings.TrimPrefix(raw, "//")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

// HostMatches reports whether host is domain or a subdomain of it. A domain
// without a dot, like "pubmed", matches any host label equal to it.
func HostMatches(host, domain string) bool {
	host = strings.ToLower(host)
	domain = strings.ToLower(strings.TrimSpace(domain))
	if host == "" || domain == "" {
		return false
	}
	if !strings.Contains(domain, ".") {
		for _, label := range strings.Split(host, ".") {
			if label == domain {
				return true
			}
		}
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// URLMatchesAny reports whether the host of raw matches any of domains.
func URLMatchesAny(raw string, domains []string) bool {
	host := Host(raw)
	for _, d := range domains {
		if HostMatches(host, d) {
			return true
		}
	}
	return false
}
