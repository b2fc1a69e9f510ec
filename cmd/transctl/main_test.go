package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.aimuz.me/cliptrans/config"
	"go.aimuz.me/cliptrans/internal/types"
)

// TestHelperProcess is re-executed as the translator by the translate tests.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	in, _ := io.ReadAll(os.Stdin)
	if string(in) == "fail" {
		fmt.Fprintln(os.Stderr, "model error")
		os.Exit(1)
	}
	fmt.Printf("[%s] %s", strings.Join(args, "->"), in)
}

// writeConfig writes a config that runs this test binary as the translator.
func writeConfig(t *testing.T) string {
	t.Helper()
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")

	cfg := config.Default()
	cfg.Translator.Command = os.Args[0]
	cfg.Translator.Args = []string{"-test.run=TestHelperProcess", "--", "{from}", "{to}"}
	cfg.Cache.Enabled = false

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, cfg.SaveFile(path))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTranslateCmd(t *testing.T) {
	path := writeConfig(t)

	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{name: "detects english", args: []string{"translate", "hello", "world"}, want: "[English->Japanese] hello world\n"},
		{name: "detects japanese", args: []string{"translate", "こんにちは"}, want: "[Japanese->English] こんにちは\n"},
		{name: "stdin", stdin: "  from stdin\n", args: []string{"translate"}, want: "[English->Japanese] from stdin\n"},
		{name: "explicit direction", args: []string{"translate", "--from", "English", "--to", "German", "hi"}, want: "[English->German] hi\n"},
		{name: "from only", args: []string{"translate", "--from", "Japanese", "hi"}, want: "[Japanese->English] hi\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.stdin, append(tt.args, "--config", path)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestTranslateCmdErrors(t *testing.T) {
	path := writeConfig(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "translator failure", args: []string{"translate", "fail"}, wantErr: "model error"},
		{name: "empty input", args: []string{"translate", "  "}, wantErr: "no text to translate"},
		{name: "unknown language", args: []string{"translate", "--from", "Klingon", "hi"}, wantErr: `unsupported language "Klingon"`},
		{name: "same direction", args: []string{"translate", "--to", "English", "hello"}, wantErr: "source and target are both English"},
		{name: "same explicit direction", args: []string{"translate", "--from", "German", "--to", "German", "hallo"}, wantErr: "source and target are both German"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", append(tt.args, "--config", path)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDetectCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")

	out, err := execute(t, "", "detect", "--config", path, "日本語のテキスト")
	require.NoError(t, err)
	assert.Equal(t, "Japanese -> English\n", out)
}

func TestSegmentCmd(t *testing.T) {
	out, err := execute(t, "", "segment", "「はい」と言った。")
	require.NoError(t, err)
	assert.Equal(t, "「はい」\nと\n言った。\n", out)
}

func TestConfigCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := config.Default()
	cfg.Translator.OpenAI.APIKey = "sk-secret"
	cfg.Languages = types.LanguagePair{Primary: types.Japanese, Secondary: types.Korean}
	require.NoError(t, cfg.SaveFile(path))

	out, err := execute(t, "", "config", "path", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)

	out, err = execute(t, "", "config", "show", "--config", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "sk-secret")

	var got config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, types.Korean, got.Languages.Secondary)
}
