package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"go.aimuz.me/cliptrans/config"
	"go.aimuz.me/cliptrans/langdetect"
	"go.aimuz.me/cliptrans/segment"
)

func newDetectCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <text>",
		Short: "Print the detected translation direction",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			det, err := langdetect.New(cfg.Detector, cfg.Languages)
			if err != nil {
				return err
			}
			res := det.Detect(strings.Join(args, " "))
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", res.Source, res.Target)
			return nil
		},
	}
}

func newSegmentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "segment <text>",
		Short: "Split Japanese text into phrases, one per line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := segment.Apply(strings.Join(args, " "), segment.Phrases)
			fmt.Fprintln(cmd.OutOrStdout(), strings.ReplaceAll(text, segment.ZeroWidthSpace, "\n"))
			return nil
		},
	}
}

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path := root.configPath
				if path == "" {
					var err error
					if path, err = config.Path(); err != nil {
						return err
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration as JSON",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := root.load()
				if err != nil {
					return err
				}
				if cfg.Translator.OpenAI.APIKey != "" {
					cfg.Translator.OpenAI.APIKey = "********"
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			},
		},
	)
	return cmd
}
