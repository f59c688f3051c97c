// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package benchmark

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// Result contains the benchmark results for one provider.
type Result struct {
	ProviderID      string        `json:"provider_id"`
	ModelID         string        `json:"model_id"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	Duration        time.Duration `json:"duration"`
	Tests           []TestResult  `json:"tests"`
	AvgTTFT         time.Duration `json:"avg_ttft"`
	AvgCharsPerSec  float64       `json:"avg_chars_per_sec"`
	AvgQualityScore float64       `json:"avg_quality_score"`
	PassedTests     int           `json:"passed_tests"`
	FailedTests     int           `json:"failed_tests"`
}

// TestResult contains the result of a single test.
type TestResult struct {
	Name         string        `json:"name"`
	Type         TestType      `json:"type"`
	Status       TestStatus    `json:"status"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Duration     time.Duration `json:"duration"`
	TTFT         time.Duration `json:"ttft"` // time to first text
	Chunks       int           `json:"chunks"`
	Chars        int           `json:"chars"`
	CharsPerSec  float64       `json:"chars_per_sec"`
	QualityScore float64       `json:"quality_score"` // 0-100
	Response     string        `json:"response"`
	Error        string        `json:"error,omitempty"`
}

// TestStatus indicates the outcome of a test.
type TestStatus string

const (
	TestStatusRunning TestStatus = "running"
	TestStatusPassed  TestStatus = "passed"
	TestStatusFailed  TestStatus = "failed"
)

// Comparison holds results from benchmarking several providers.
type Comparison struct {
	Providers []string           `json:"providers"`
	Results   map[string]*Result `json:"results"`
	StartTime time.Time          `json:"start_time"`
	EndTime   time.Time          `json:"end_time"`
	Duration  time.Duration      `json:"duration"`
}

// =============================================================================
// COMPARISON
// =============================================================================

// GetFastestProvider returns the provider with the highest throughput.
func (c *Comparison) GetFastestProvider() (string, *Result) {
	return c.best(func(r *Result) bool { return r.AvgCharsPerSec > 0 },
		func(a, b *Result) bool { return a.AvgCharsPerSec > b.AvgCharsPerSec })
}

// GetLowestLatencyProvider returns the provider with the lowest average TTFT.
func (c *Comparison) GetLowestLatencyProvider() (string, *Result) {
	return c.best(func(r *Result) bool { return r.AvgTTFT > 0 },
		func(a, b *Result) bool { return a.AvgTTFT < b.AvgTTFT })
}

// best walks providers in sorted order so ties resolve the same way every
// time.
func (c *Comparison) best(eligible func(*Result) bool, better func(a, b *Result) bool) (string, *Result) {
	ids := make([]string, 0, len(c.Results))
	for id := range c.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var bestID string
	var bestResult *Result
	for _, id := range ids {
		r := c.Results[id]
		if r == nil || !eligible(r) {
			continue
		}
		if bestResult == nil || better(r, bestResult) {
			bestID, bestResult = id, r
		}
	}
	return bestID, bestResult
}

// =============================================================================
// SUMMARY GENERATION
// =============================================================================

// Summary returns a text summary of the benchmark result.
func (r *Result) Summary() string {
	return fmt.Sprintf(
		"Provider: %s (%s)\n"+
			"Duration: %s\n"+
			"Tests: %d passed, %d failed\n"+
			"Avg TTFT: %s\n"+
			"Avg Speed: %s\n"+
			"Avg Quality: %s",
		r.ProviderID, r.ModelID,
		FormatDuration(r.Duration),
		r.PassedTests,
		r.FailedTests,
		FormatTTFT(r.AvgTTFT),
		FormatCharsPerSec(r.AvgCharsPerSec),
		FormatQualityScore(r.AvgQualityScore),
	)
}

// ComparisonSummary returns a text summary of the comparison.
func (c *Comparison) ComparisonSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Providers tested: %d\n", len(c.Providers))
	fmt.Fprintf(&b, "Total duration: %s\n", FormatDuration(c.Duration))

	if id, r := c.GetFastestProvider(); r != nil {
		fmt.Fprintf(&b, "Fastest: %s (%s)\n", id, FormatCharsPerSec(r.AvgCharsPerSec))
	}
	if id, r := c.GetLowestLatencyProvider(); r != nil {
		fmt.Fprintf(&b, "Lowest Latency: %s (%s)\n", id, FormatTTFT(r.AvgTTFT))
	}
	return b.String()
}
