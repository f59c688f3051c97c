// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-chat/internal/benchmark"
	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/util"
)

func newProvidersBenchCmd(a *app) *cobra.Command {
	var (
		full   bool
		prompt string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "bench [id...]",
		Short: "Measure time to first text and throughput of providers",
		Long: `Sends a few one-turn prompts to each provider and reports time to first
text, total time and characters per second. With no ids the current
provider is measured. Nothing is saved to the session database.`,
		Example: `  rigrun-chat providers bench
  rigrun-chat providers bench openai local --full
  rigrun-chat providers bench --prompt "Summarize TCP in one line" --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			providers, err := a.benchTargets(args)
			if err != nil {
				return err
			}

			tests := benchmark.GetQuickTestSuite()
			if full {
				tests = benchmark.GetStandardTests()
			}
			if prompt != "" {
				tests = []benchmark.Test{benchmark.NewCustomTest("Custom", prompt)}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			runner := benchmark.NewRunner(a.clients())
			w := cmd.OutOrStdout()
			if len(providers) == 1 {
				result, err := runner.Run(ctx, providers[0], tests)
				if err != nil {
					return err
				}
				if asJSON {
					return outputJSON(w, result)
				}
				printBenchResult(w, result)
				return nil
			}

			comparison, err := runner.RunComparison(ctx, providers, tests)
			if err != nil {
				return err
			}
			if asJSON {
				return outputJSON(w, comparison)
			}
			for _, id := range comparison.Providers {
				if result, ok := comparison.Results[id]; ok {
					printBenchResult(w, result)
					fmt.Fprintln(w)
				}
			}
			fmt.Fprint(w, comparison.ComparisonSummary())
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "run the full suite instead of one prompt per kind")
	cmd.Flags().StringVar(&prompt, "prompt", "", "benchmark a single custom prompt")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

// benchTargets resolves provider ids, or the current provider when none are
// given.
func (a *app) benchTargets(ids []string) ([]config.Provider, error) {
	if len(ids) == 0 {
		current, err := a.cfg.CurrentProviderDescriptor()
		if err != nil {
			return nil, err
		}
		return []config.Provider{*current}, nil
	}
	providers := make([]config.Provider, 0, len(ids))
	for _, id := range ids {
		p, ok := a.cfg.ProviderByID(id)
		if !ok {
			return nil, fmt.Errorf("provider %q: %w", id, model.ErrNotFound)
		}
		providers = append(providers, *p)
	}
	return providers, nil
}

func printBenchResult(w io.Writer, r *benchmark.Result) {
	fmt.Fprintln(w, TitleStyle.Render(r.ProviderID+" / "+r.ModelID))
	for _, t := range r.Tests {
		if t.Status != benchmark.TestStatusPassed {
			fmt.Fprintf(w, "  %s %s %s\n", ErrorStyle.Render("x"), util.PadWidth(t.Name, 14), DimStyle.Render(t.Error))
			continue
		}
		fmt.Fprintf(w, "  %s %s ttft %-8s total %-8s %-12s quality %s\n",
			SuccessStyle.Render("+"),
			util.PadWidth(t.Name, 14),
			benchmark.FormatTTFT(t.TTFT),
			benchmark.FormatDuration(t.Duration),
			benchmark.FormatCharsPerSec(t.CharsPerSec),
			benchmark.FormatQualityScore(t.QualityScore))
	}
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Average"), ValueStyle.Render(fmt.Sprintf("ttft %s, %s, %d passed, %d failed",
		benchmark.FormatTTFT(r.AvgTTFT),
		benchmark.FormatCharsPerSec(r.AvgCharsPerSec),
		r.PassedTests, r.FailedTests)))
}
