package main

import (
	"fmt"

	"github.com/dukerupert/reloop/internal/catalog"
	"github.com/dukerupert/reloop/internal/genai"
	"github.com/dukerupert/reloop/internal/push"
	"github.com/dukerupert/reloop/internal/quiz"
	"github.com/dukerupert/reloop/internal/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load rewards, locations and blog posts into empty tables",
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			if file == "" {
				file = e.cfg.SeedFile
			}
			cat, err := catalog.Load(file)
			if err != nil {
				return err
			}
			return cat.Seed(cmd.Context(), catalog.Stores{
				Rewards:   store.NewRewardStore(e.db),
				Locations: store.NewLocationStore(e.db),
				Blog:      store.NewBlogStore(e.db),
			}, e.logger.With("component", "catalog"))
		}),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed YAML (defaults to RELOOP_SEED_FILE, then the built-in catalog)")
	return cmd
}

func newQuizCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "quiz", Short: "Quiz generation"}

	var topic string
	previewCmd := &cobra.Command{
		Use:   "preview",
		Short: "Generate a quiz and print it as YAML without saving it",
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			var llm quiz.TextGenerator
			if e.cfg.GeminiAPIKey != "" {
				llm = genai.NewClient(e.cfg.GeminiBaseURL, e.cfg.GeminiAPIKey, e.cfg.GeminiModel)
			}
			gen, err := quiz.NewGenerator(llm, e.logger.With("component", "quiz"))
			if err != nil {
				return err
			}
			result := gen.Generate(cmd.Context(), topic)
			if result.Degraded {
				fmt.Fprintln(cmd.ErrOrStderr(), "generator unavailable, showing the standard question set")
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(result.Questions); err != nil {
				return err
			}
			return enc.Close()
		}),
	}
	previewCmd.Flags().StringVarP(&topic, "topic", "t", "", "quiz topic")
	cmd.AddCommand(previewCmd)

	return cmd
}

func newVAPIDCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "vapid", Short: "Web push keys"}
	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Print a new VAPID key pair for RELOOP_VAPID_PUBLIC_KEY and RELOOP_VAPID_PRIVATE_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := push.GenerateVAPIDKeys()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "RELOOP_VAPID_PUBLIC_KEY=%s\nRELOOP_VAPID_PRIVATE_KEY=%s\n", pub, priv)
			return nil
		},
	})
	return cmd
}
