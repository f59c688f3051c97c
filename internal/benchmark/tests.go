// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package benchmark

import (
	"strings"
)

// =============================================================================
// TEST DEFINITIONS
// =============================================================================

// Test represents a single benchmark prompt.
type Test struct {
	Name        string
	Type        TestType
	Prompt      string
	Evaluator   QualityEvaluator
	Description string
}

// TestType categorizes the type of test.
type TestType string

const (
	TestTypeLatency     TestType = "latency"
	TestTypeSpeed       TestType = "speed"
	TestTypeExplanation TestType = "explanation"
)

// QualityEvaluator scores a response from 0 to 100.
type QualityEvaluator func(response string) float64

// =============================================================================
// STANDARD TEST SUITE
// =============================================================================

// GetStandardTests returns the standard benchmark test suite.
func GetStandardTests() []Test {
	return []Test{
		{
			Name:        "Latency",
			Type:        TestTypeLatency,
			Prompt:      "Say 'Hello'",
			Description: "time to first text with a minimal prompt",
			Evaluator:   keywordEvaluator("hello"),
		},
		{
			Name:        "Haiku",
			Type:        TestTypeSpeed,
			Prompt:      "Write a haiku about programming.",
			Description: "throughput on a short creative reply",
			Evaluator: func(response string) float64 {
				lines := strings.Split(strings.TrimSpace(response), "\n")
				if len(lines) >= 3 {
					return 100
				}
				if len(response) > 10 {
					return 70
				}
				return 30
			},
		},
		{
			Name:        "Story",
			Type:        TestTypeSpeed,
			Prompt:      "Write a short story of about 200 words about a lighthouse keeper.",
			Description: "throughput on a longer reply",
			Evaluator: func(response string) float64 {
				words := len(strings.Fields(response))
				if words >= 150 {
					return 100
				}
				return float64(words) / 150 * 100
			},
		},
		{
			Name:        "Explanation",
			Type:        TestTypeExplanation,
			Prompt:      "Explain what a REST API is in simple terms.",
			Description: "coherence of a plain explanation",
			Evaluator:   keywordEvaluator("api", "http", "request", "response", "rest"),
		},
	}
}

// NewCustomTest builds a latency test from a user-supplied prompt. Any
// non-empty reply scores 100.
func NewCustomTest(name, prompt string) Test {
	return Test{
		Name:        name,
		Type:        TestTypeLatency,
		Prompt:      prompt,
		Description: "custom prompt",
		Evaluator: func(response string) float64 {
			if strings.TrimSpace(response) != "" {
				return 100
			}
			return 0
		},
	}
}

// keywordEvaluator scores the share of keywords found, case-insensitively.
func keywordEvaluator(keywords ...string) QualityEvaluator {
	return func(response string) float64 {
		lower := strings.ToLower(response)
		found := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				found++
			}
		}
		return float64(found) / float64(len(keywords)) * 100
	}
}

// =============================================================================
// TEST SUITE HELPERS
// =============================================================================

// FilterTestsByType returns only tests of a specific type.
func FilterTestsByType(tests []Test, testType TestType) []Test {
	filtered := make([]Test, 0)
	for _, test := range tests {
		if test.Type == testType {
			filtered = append(filtered, test)
		}
	}
	return filtered
}

// GetQuickTestSuite returns the first test of each type.
func GetQuickTestSuite() []Test {
	quick := make([]Test, 0)
	seen := make(map[TestType]bool)
	for _, test := range GetStandardTests() {
		if !seen[test.Type] {
			quick = append(quick, test)
			seen[test.Type] = true
		}
	}
	return quick
}
