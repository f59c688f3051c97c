// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"errors"
	"testing"
)

// =============================================================================
// LOCALHOST DETECTION TESTS
// =============================================================================

func TestIsLocalhost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"localhost", true},
		{"LOCALHOST", true},
		{"localhost:11434", true},
		{"127.0.0.1", true},
		{"127.0.0.1:8080", true},
		{"::1", true},
		{"[::1]", true},
		{"[::1]:11434", true},
		{"0:0:0:0:0:0:0:1", true},
		{"192.168.1.1", false},
		{"10.0.0.1", false},
		{"example.com", false},
		{"localhost.evil.com", false},
		{"", false},
	}

	for _, tc := range tests {
		if got := IsLocalhost(tc.host); got != tc.want {
			t.Errorf("IsLocalhost(%q) = %v, want %v", tc.host, got, tc.want)
		}
	}
}

func TestIsLocalhost_IPv4Loopback(t *testing.T) {
	// The entire 127.0.0.0/8 range should be localhost
	for _, host := range []string{"127.0.0.2", "127.1.2.3", "127.255.255.255"} {
		if !IsLocalhost(host) {
			t.Errorf("IsLocalhost(%q) should be true for 127.x.x.x range", host)
		}
	}
}

// =============================================================================
// URL VALIDATION TESTS
// =============================================================================

func TestValidateURL_SchemeValidation(t *testing.T) {
	badSchemes := []string{
		"file:///etc/passwd",
		"javascript:alert(1)",
		"data:text/html,<script>alert(1)</script>",
		"ftp://ftp.example.com",
		"localhost:11434",
	}

	for _, offlineMode := range []bool{false, true} {
		for _, u := range badSchemes {
			if err := ValidateURL(u, offlineMode); !errors.Is(err, ErrInvalidURLScheme) {
				t.Errorf("ValidateURL(%q, %v) = %v, want ErrInvalidURLScheme", u, offlineMode, err)
			}
		}
	}

	for _, u := range []string{"http://", "https:///v1", "http:localhost"} {
		if err := ValidateURL(u, false); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("ValidateURL(%q) = %v, want ErrInvalidURL", u, err)
		}
	}
	if err := ValidateURL("http://a b\x7f", false); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("unparseable URL: err = %v", err)
	}
}

func TestValidateURL_OfflineMode(t *testing.T) {
	remote := []string{
		"https://api.openai.com/v1",
		"https://openrouter.ai/api/v1",
		"http://192.168.1.1:8080/api",
		"http://ollama.example.com:11434",
	}
	for _, u := range remote {
		if err := ValidateURL(u, true); !errors.Is(err, ErrNonLocalhost) {
			t.Errorf("ValidateURL(%q, offline) = %v, want ErrNonLocalhost", u, err)
		}
		if err := ValidateURL(u, false); err != nil {
			t.Errorf("ValidateURL(%q, online) = %v", u, err)
		}
	}

	local := []string{
		"http://localhost:11434",
		"http://127.0.0.1:11434/v1",
		"https://localhost:8080/api",
		"http://[::1]:11434",
	}
	for _, u := range local {
		if err := ValidateURL(u, true); err != nil {
			t.Errorf("ValidateURL(%q, offline) = %v", u, err)
		}
	}
}

func TestValidateURL_Adversarial(t *testing.T) {
	// Attempts to smuggle a remote host past the localhost check
	adversarial := []struct {
		url    string
		reason string
	}{
		{"http://localhost.evil.com:11434", "subdomain of evil.com"},
		{"http://127.0.0.1.evil.com:11434", "IP-like subdomain"},
		{"http://evil.com#localhost", "fragment injection"},
		{"http://evil.com?host=localhost", "query injection"},
		{"http://localhost@evil.com", "userinfo injection"},
	}

	for _, tc := range adversarial {
		if err := ValidateURL(tc.url, true); err == nil {
			t.Errorf("ValidateURL(%q) should be blocked (%s)", tc.url, tc.reason)
		}
	}
}

func TestStatusBadge(t *testing.T) {
	if got := StatusBadge(true); got != "[OFFLINE]" {
		t.Errorf("StatusBadge(true) = %q", got)
	}
	if got := StatusBadge(false); got != "" {
		t.Errorf("StatusBadge(false) = %q", got)
	}
}
