package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadPolicyNormalize(t *testing.T) {
	cfg := ReadPolicyConfig{
		Disallow: []string{"www.Example.com", "bad.com", "https://BAD.com/path"},
		Paywall:  []string{"Paywall.com", "PAYWALL.COM"},
	}
	norm := cfg.Normalize()
	assert.Equal(t, []string{"bad.com", "example.com"}, norm.Disallow)
	assert.Equal(t, []string{"paywall.com"}, norm.Paywall)
}

func TestReadPolicyValidate(t *testing.T) {
	assert.NoError(t, ReadPolicyConfig{Disallow: []string{"a.com"}, Paywall: []string{"b.com"}}.Validate())
	assert.Error(t, ReadPolicyConfig{Disallow: []string{"nejm.org"}, Paywall: []string{"www.nejm.org"}}.Validate())
}

func TestReadPolicySkips(t *testing.T) {
	p := ReadPolicyConfig{Disallow: []string{"pinterest.com"}, Paywall: []string{"nejm.org"}}.Normalize()
	cases := map[string]bool{
		"https://www.pinterest.com/pin/1":   true,
		"https://eu.pinterest.com/x":        true,
		"https://www.nejm.org/doi/10.1/abc": true,
		"https://notnejm.org/a":             false,
		"https://ods.od.nih.gov/factsheets": false,
		"":                                  false,
	}
	for u, want := range cases {
		assert.Equal(t, want, p.Skips(u), u)
	}
	assert.True(t, ReadPolicyConfig{}.Empty())
}
