// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jeranaias/rigrun-chat/internal/model"
)

// formatDuration formats a time.Duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}

// formatAge renders t relative to now ("5m ago"), falling back to a date
// after a week.
func formatAge(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	if d >= 7*24*time.Hour {
		return t.Local().Format("2006-01-02")
	}
	return formatDuration(d) + " ago"
}

// outputJSON writes data as indented JSON.
func outputJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// parseDate accepts RFC 3339 or YYYY-MM-DD. For a bare date, endOfDay selects
// the last instant of that day so "--to 2025-03-02" includes the whole day.
func parseDate(field, v string, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return nil, usageErrorf(field, "%q is not a date (use YYYY-MM-DD or RFC 3339)", v)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func parseRange(from, to string) (model.DateRange, error) {
	start, err := parseDate("--from", from, false)
	if err != nil {
		return model.DateRange{}, err
	}
	end, err := parseDate("--to", to, true)
	if err != nil {
		return model.DateRange{}, err
	}
	return model.DateRange{Start: start, End: end}, nil
}

func parseIndex(field, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, usageErrorf(field, "%q is not a number", v)
	}
	return n, nil
}
