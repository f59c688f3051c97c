// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package benchmark

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jeranaias/rigrun-chat/internal/chat"
	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/model"
)

// =============================================================================
// BENCHMARK RUNNER
// =============================================================================

// Runner executes benchmarks against providers.
// Note: Runner is not safe for concurrent use.
type Runner struct {
	clients *chat.Registry
	now     func() time.Time
}

// NewRunner creates a runner that streams through the clients in reg.
func NewRunner(reg *chat.Registry) *Runner {
	return &Runner{clients: reg, now: time.Now}
}

// Run executes tests one after another against p. Failed tests are recorded
// in the result; only an unusable provider returns an error.
func (r *Runner) Run(ctx context.Context, p config.Provider, tests []Test) (*Result, error) {
	client, ok := r.clients.Lookup(p.EffectiveKind())
	if !ok {
		return nil, fmt.Errorf("%w: no client for provider kind %q", model.ErrConfiguration, p.EffectiveKind())
	}

	result := &Result{
		ProviderID: p.ID,
		ModelID:    p.ModelID,
		StartTime:  r.now(),
		Tests:      make([]TestResult, 0, len(tests)),
	}

	for _, test := range tests {
		result.Tests = append(result.Tests, r.runTest(ctx, client, p, test))
	}

	result.EndTime = r.now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.computeAggregates()
	return result, nil
}

// runTest streams a single prompt and measures it.
func (r *Runner) runTest(ctx context.Context, client chat.StreamClient, p config.Provider, test Test) TestResult {
	testResult := TestResult{
		Name:   test.Name,
		Type:   test.Type,
		Status: TestStatusRunning,
	}

	if err := ctx.Err(); err != nil {
		testResult.Status = TestStatusFailed
		testResult.Error = "canceled"
		return testResult
	}
	if strings.TrimSpace(test.Prompt) == "" {
		testResult.Status = TestStatusFailed
		testResult.Error = "empty prompt"
		return testResult
	}

	var (
		firstText time.Time
		response  strings.Builder
		streamErr error
	)
	testResult.StartTime = r.now()

	history := []model.Turn{{Role: model.RoleUser, Content: test.Prompt}}
	err := client.Stream(ctx, p, history, func(ev model.StreamEvent) {
		switch ev.Type {
		case model.EventText:
			if firstText.IsZero() && ev.Content != "" {
				firstText = r.now()
			}
			response.WriteString(ev.Content)
			testResult.Chunks++
		case model.EventError:
			streamErr = ev.AsError()
		}
	})
	if err == nil {
		err = streamErr
	}
	testResult.EndTime = r.now()
	testResult.Duration = testResult.EndTime.Sub(testResult.StartTime)

	if err != nil {
		testResult.Status = TestStatusFailed
		testResult.Error = err.Error()
		if errors.Is(err, context.Canceled) || errors.Is(err, model.ErrCanceled) {
			testResult.Error = "canceled"
		}
		return testResult
	}

	if !firstText.IsZero() {
		testResult.TTFT = firstText.Sub(testResult.StartTime)
	}
	testResult.Chars = utf8.RuneCountInString(response.String())
	if testResult.Chars > 0 && testResult.Duration > 0 {
		testResult.CharsPerSec = float64(testResult.Chars) / testResult.Duration.Seconds()
	}
	if test.Evaluator != nil {
		testResult.QualityScore = test.Evaluator(response.String())
	}
	testResult.Response = response.String()
	testResult.Status = TestStatusPassed
	return testResult
}

// RunComparison benchmarks several providers with the same tests. It
// returns an error only when every provider fails.
func (r *Runner) RunComparison(ctx context.Context, providers []config.Provider, tests []Test) (*Comparison, error) {
	comparison := &Comparison{
		Results:   make(map[string]*Result),
		StartTime: r.now(),
	}

	var errs []error
	for _, p := range providers {
		comparison.Providers = append(comparison.Providers, p.ID)
		result, err := r.Run(ctx, p, tests)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.ID, err))
			continue
		}
		comparison.Results[p.ID] = result
	}

	comparison.EndTime = r.now()
	comparison.Duration = comparison.EndTime.Sub(comparison.StartTime)

	if len(comparison.Results) == 0 && len(errs) > 0 {
		return comparison, errors.Join(errs...)
	}
	return comparison, nil
}

// =============================================================================
// RESULT COMPUTATION
// =============================================================================

// computeAggregates averages the metrics of the passed tests.
func (r *Result) computeAggregates() {
	var totalTTFT time.Duration
	var totalCPS, totalQuality float64
	var ttftCount, cpsCount, qualityCount int

	for _, test := range r.Tests {
		switch test.Status {
		case TestStatusPassed:
			r.PassedTests++
		case TestStatusFailed:
			r.FailedTests++
			continue
		default:
			continue
		}

		if test.TTFT > 0 {
			totalTTFT += test.TTFT
			ttftCount++
		}
		if test.CharsPerSec > 0 {
			totalCPS += test.CharsPerSec
			cpsCount++
		}
		totalQuality += test.QualityScore
		qualityCount++
	}

	if ttftCount > 0 {
		r.AvgTTFT = totalTTFT / time.Duration(ttftCount)
	}
	if cpsCount > 0 {
		r.AvgCharsPerSec = totalCPS / float64(cpsCount)
	}
	if qualityCount > 0 {
		r.AvgQualityScore = totalQuality / float64(qualityCount)
	}
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// FormatTTFT formats time to first text for display.
func FormatTTFT(d time.Duration) string {
	if d == 0 {
		return "N/A"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// FormatCharsPerSec formats throughput for display.
func FormatCharsPerSec(cps float64) string {
	if cps == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f c/s", cps)
}

// FormatQualityScore formats quality score for display.
func FormatQualityScore(score float64) string {
	if score == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.0f%%", score)
}

// FormatDuration formats duration for display.
func FormatDuration(d time.Duration) string {
	if d == 0 {
		return "N/A"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
