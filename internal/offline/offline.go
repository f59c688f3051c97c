// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNonLocalhost is returned for a remote host in offline mode.
	ErrNonLocalhost = errors.New("offline mode: only localhost providers are allowed")

	// ErrInvalidURLScheme is returned when the URL scheme is not http or https.
	ErrInvalidURLScheme = errors.New("only http and https URLs are allowed")

	// ErrInvalidURL is returned when the URL does not parse.
	ErrInvalidURL = errors.New("invalid provider URL")
)

// =============================================================================
// URL VALIDATION
// =============================================================================

// IsLocalhost reports whether host refers to this machine. It accepts
// "localhost", the whole 127.0.0.0/8 range and every IPv6 loopback spelling,
// with or without a port or brackets.
func IsLocalhost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "[]"))

	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// ValidateURL checks that rawURL is an absolute http(s) URL. In offline mode
// the host must also be localhost.
func ValidateURL(rawURL string, offlineMode bool) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ErrInvalidURL
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrInvalidURLScheme
	}
	if parsed.Host == "" {
		return ErrInvalidURL
	}

	if offlineMode && !IsLocalhost(parsed.Hostname()) {
		return ErrNonLocalhost
	}
	return nil
}

// =============================================================================
// STATUS DISPLAY
// =============================================================================

// StatusBadge returns "[OFFLINE]" in offline mode and "" otherwise.
func StatusBadge(offlineMode bool) string {
	if offlineMode {
		return "[OFFLINE]"
	}
	return ""
}
