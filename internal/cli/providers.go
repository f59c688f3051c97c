// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/ollama"
	"github.com/jeranaias/rigrun-chat/internal/util"
)

func newProvidersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "providers",
		Aliases: []string{"provider", "p"},
		Short:   "Configure chat endpoints",
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List configured providers; the current one is marked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if asJSON {
				redacted := make([]config.Provider, len(a.cfg.Providers))
				for i, p := range a.cfg.Providers {
					redacted[i] = p.Redacted()
				}
				return outputJSON(w, struct {
					Current   string            `json:"current"`
					Providers []config.Provider `json:"providers"`
				}{a.cfg.CurrentProvider, redacted})
			}
			if len(a.cfg.Providers) == 0 {
				fmt.Fprintln(w, DimStyle.Render("No providers. Add one with: rigrun-chat providers add <id> --base-url URL --model NAME"))
				return nil
			}
			for _, p := range a.cfg.Providers {
				marker := " "
				if p.ID == a.cfg.CurrentProvider {
					marker = SuccessStyle.Render(">")
				}
				fmt.Fprintf(w, "%s %s %s %s  %s\n",
					marker,
					util.PadWidth(p.ID, 12),
					util.PadWidth(p.EffectiveKind(), 7),
					util.PadWidth(p.ModelID, 24),
					DimStyle.Render(p.BaseURL+"  key:"+p.KeyFingerprint()))
			}
			return nil
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "output JSON (keys redacted)")

	var p config.Provider
	var makeCurrent bool
	add := &cobra.Command{
		Use:   "add <id>",
		Short: "Add or replace a provider",
		Example: `  rigrun-chat providers add openai --base-url https://api.openai.com/v1 --model gpt-4o-mini --api-key sk-...
  rigrun-chat providers add local --kind ollama --base-url http://localhost:11434 --model llama3.2 --use`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := a.editableStore()
			if err != nil {
				return err
			}
			p.ID = args[0]
			cfg.UpsertProvider(p)
			if makeCurrent {
				cfg.CurrentProvider = p.ID
			}
			if err := store.Save(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s saved provider %s (%s)\n",
				SuccessStyle.Render("[OK]"), p.ID, store.Path)
			return nil
		},
	}
	add.Flags().StringVar(&p.Name, "name", "", "display name")
	add.Flags().StringVar(&p.Kind, "kind", config.KindOpenAI, "openai or ollama")
	add.Flags().StringVar(&p.BaseURL, "base-url", "", "endpoint base URL")
	add.Flags().StringVar(&p.APIKey, "api-key", "", "API key (openai kind)")
	add.Flags().StringVar(&p.ModelID, "model", "", "model id")
	add.Flags().BoolVar(&makeCurrent, "use", false, "make this the current provider")
	_ = add.MarkFlagRequired("base-url")
	_ = add.MarkFlagRequired("model")

	use := &cobra.Command{
		Use:   "use <id>",
		Short: "Select the current provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := a.editableStore()
			if err != nil {
				return err
			}
			if err := cfg.SetCurrent(args[0]); err != nil {
				return err
			}
			return store.Save(cfg)
		},
	}

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := a.editableStore()
			if err != nil {
				return err
			}
			if err := cfg.RemoveProvider(args[0]); err != nil {
				return err
			}
			return store.Save(cfg)
		},
	}

	models := &cobra.Command{
		Use:   "models [id]",
		Short: "List models installed on an Ollama provider",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var target *config.Provider
			if len(args) == 1 {
				found, ok := a.cfg.ProviderByID(args[0])
				if !ok {
					return fmt.Errorf("provider %q: %w", args[0], model.ErrNotFound)
				}
				target = found
			} else {
				current, err := a.cfg.CurrentProviderDescriptor()
				if err != nil {
					return err
				}
				target = current
			}
			if target.EffectiveKind() != config.KindOllama {
				return usageErrorf("provider", "%s is not an ollama provider", target.ID)
			}

			infos, err := ollama.NewClient(ollama.WithLogger(a.logger)).ListModels(cmd.Context(), *target)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for i := range infos {
				marker := " "
				if infos[i].Name == target.ModelID {
					marker = SuccessStyle.Render(">")
				}
				fmt.Fprintf(w, "%s %s %s\n", marker, util.PadWidth(infos[i].Name, 32), DimStyle.Render(infos[i].FormatSize()))
			}
			return nil
		},
	}

	cmd.AddCommand(list, add, use, remove, models, newProvidersBenchCmd(a))
	return cmd
}
