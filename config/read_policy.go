package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ReadPolicyConfig lists hosts whose pages are never deep-read. Their search
// snippets are still used as evidence.
type ReadPolicyConfig struct {
	Disallow []string `mapstructure:"disallow" json:"disallow"`
	Paywall  []string `mapstructure:"paywall" json:"paywall"`
}

// Normalize cleans entries and removes duplicates.
func (c ReadPolicyConfig) Normalize() ReadPolicyConfig {
	return ReadPolicyConfig{
		Disallow: sanitizeDomainList(c.Disallow),
		Paywall:  sanitizeDomainList(c.Paywall),
	}
}

// Validate rejects a host listed as both disallowed and paywalled.
func (c ReadPolicyConfig) Validate() error {
	norm := c.Normalize()
	disallow := make(map[string]struct{}, len(norm.Disallow))
	for _, host := range norm.Disallow {
		disallow[host] = struct{}{}
	}
	for _, host := range norm.Paywall {
		if _, ok := disallow[host]; ok {
			return fmt.Errorf("read policy conflict: host %q marked disallow and paywall", host)
		}
	}
	return nil
}

// Skips reports whether rawURL's host, or a parent domain of it, is listed.
func (c ReadPolicyConfig) Skips(rawURL string) bool {
	host := normalizeHost(rawURL)
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	if host == "" {
		return false
	}
	for _, list := range [][]string{c.Disallow, c.Paywall} {
		for _, h := range list {
			h = normalizeHost(h)
			if host == h || strings.HasSuffix(host, "."+h) {
				return true
			}
		}
	}
	return false
}

// Empty reports whether no host is listed.
func (c ReadPolicyConfig) Empty() bool {
	return len(c.Disallow) == 0 && len(c.Paywall) == 0
}

func sanitizeDomainList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	for _, raw := range values {
		host := normalizeHost(raw)
		if host == "" {
			continue
		}
		seen[host] = struct{}{}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for host := range seen {
		out = append(out, host)
	}
	sort.Strings(out)
	return out
}

func normalizeHost(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		if u, err := url.Parse(value); err == nil && u.Host != "" {
			return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		}
	}
	value = strings.TrimPrefix(value, "www.")
	return value
}
