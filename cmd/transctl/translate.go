package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/text/unicode/norm"

	"go.aimuz.me/cliptrans/config"
	"go.aimuz.me/cliptrans/internal/core"
	"go.aimuz.me/cliptrans/internal/types"
	"go.aimuz.me/cliptrans/langdetect"
	"go.aimuz.me/cliptrans/segment"
	"go.aimuz.me/cliptrans/translate"
)

func newTranslateCmd(root *rootOptions) *cobra.Command {
	var (
		from, to string
		timeout  time.Duration
		segments bool
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "translate [text]",
		Short: "Translate text, streaming the result to stdout",
		Long: `Translate text between the configured language pair.

The text is taken from the arguments, or from stdin when none are given.
The direction is detected unless --from and --to are set.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if timeout > 0 {
				cfg.Translator.Timeout = config.Duration(timeout)
			}
			if noCache {
				cfg.Cache.Enabled = false
			}

			text, err := inputText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			dir, err := direction(cfg, text, types.Language(from), types.Language(to))
			if err != nil {
				return err
			}

			engine, err := core.NewEngine(cfg, slog.Default())
			if err != nil {
				return err
			}
			c, err := core.OpenCache(cfg)
			if err != nil {
				return err
			}
			if c != nil {
				defer c.Close()
			}
			engine = core.WithCache(engine, c, cfg)

			return runTranslate(cmd, engine, translate.Request{
				ID:      1,
				Text:    text,
				Source:  dir.Source,
				Target:  dir.Target,
				TraceID: uuid.NewString(),
			}, segments)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Source language (default: detected)")
	cmd.Flags().StringVar(&to, "to", "", "Target language (default: the other side of the pair)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Inactivity timeout (default: from config)")
	cmd.Flags().BoolVar(&segments, "segment", false, "Print the final translation split into phrases, one per line")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the translation cache")
	return cmd
}

func runTranslate(cmd *cobra.Command, engine translate.Engine, req translate.Request, segments bool) error {
	ctx := cmd.Context()
	if err := engine.Init(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for ev := range engine.Stream(ctx, req) {
		switch ev.Kind {
		case translate.KindChunk:
			if !segments {
				fmt.Fprint(out, ev.Text)
			}
		case translate.KindCompleted:
			if segments {
				text := segment.Apply(ev.Text, segment.Phrases)
				fmt.Fprintln(out, strings.ReplaceAll(text, segment.ZeroWidthSpace, "\n"))
				return nil
			}
			fmt.Fprintln(out)
			return nil
		case translate.KindFailed:
			if !segments {
				fmt.Fprintln(out)
			}
			return fmt.Errorf("%s: %w", ev.Text, ev.Err)
		}
	}
	return errors.New("translation ended without a result")
}

// inputText joins args, or reads stdin when there are none.
func inputText(stdin io.Reader, args []string) (string, error) {
	text := strings.Join(args, " ")
	if len(args) == 0 {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		text = string(b)
	}
	text = norm.NFC.String(strings.TrimSpace(text))
	if text == "" {
		return "", errors.New("no text to translate")
	}
	return text, nil
}

// direction resolves the translation direction from the flags, falling back
// to detection within the configured pair.
func direction(cfg *config.Config, text string, from, to types.Language) (types.DetectResult, error) {
	for _, l := range []types.Language{from, to} {
		if l != "" && !l.Valid() {
			return types.DetectResult{}, fmt.Errorf("unsupported language %q", l)
		}
	}

	switch {
	case from != "" && from == to:
		return types.DetectResult{}, fmt.Errorf("source and target are both %s", from)
	case from != "" && to != "":
		return types.DetectResult{Source: from, Target: to}, nil
	case from != "":
		return types.DetectResult{Source: from, Target: cfg.Languages.Other(from)}, nil
	}

	det, err := langdetect.New(cfg.Detector, cfg.Languages)
	if err != nil {
		return types.DetectResult{}, err
	}
	res := det.Detect(text)
	if to != "" {
		res.Target = to
	}
	if res.Source == res.Target {
		return types.DetectResult{}, fmt.Errorf("source and target are both %s", res.Source)
	}
	return res, nil
}
