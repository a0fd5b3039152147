package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const ffmpegStub = `#!/bin/sh
if [ "$1" = "-version" ]; then
  echo "ffmpeg version 7.0-stub Copyright (c) the authors"
  exit 0
fi
for arg; do last="$arg"; done
printf 'audio' > "$last"
`

const failingFFmpegStub = `#!/bin/sh
if [ "$1" = "-version" ]; then
  echo "ffmpeg version 7.0-stub Copyright (c) the authors"
  exit 0
fi
echo "Invalid data found when processing input" >&2
exit 1
`

const ffprobeStub = `#!/bin/sh
if [ "$1" = "-version" ]; then
  echo "ffprobe version 7.0-stub Copyright (c) the authors"
  exit 0
fi
cat <<'JSON'
{"streams":[{"index":0,"codec_name":"pcm_s16le","codec_type":"audio","sample_fmt":"s16","sample_rate":"8000","channels":1,"channel_layout":"mono"}],"format":{"filename":"in.wav","nb_streams":1,"format_name":"wav","duration":"1.000000","size":"16044","bit_rate":"128000"}}
JSON
`

type cliTestEnv struct {
	baseDir     string
	binDir      string
	workDir     string
	logDir      string
	journalPath string
	configPath  string
}

type envOption func(*envSettings)

type envSettings struct {
	ffmpegScript     string
	ffmpegPath       string
	cleanupOnFailure bool
	journal          bool
}

func withFailingEngine() envOption {
	return func(s *envSettings) { s.ffmpegScript = failingFFmpegStub }
}

func withMissingEngine() envOption {
	return func(s *envSettings) { s.ffmpegPath = "/nonexistent/ffmpeg" }
}

func withoutCleanup() envOption {
	return func(s *envSettings) { s.cleanupOnFailure = false }
}

func setupCLITestEnv(t *testing.T, opts ...envOption) *cliTestEnv {
	t.Helper()

	settings := envSettings{ffmpegScript: ffmpegStub, cleanupOnFailure: true, journal: true}
	for _, opt := range opts {
		opt(&settings)
	}

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("AUDIOCHAIN_FFMPEG", "")
	t.Setenv("AUDIOCHAIN_FFPROBE", "")

	env := &cliTestEnv{
		baseDir:     base,
		binDir:      filepath.Join(base, "bin"),
		workDir:     filepath.Join(base, "work"),
		logDir:      filepath.Join(base, "logs"),
		journalPath: filepath.Join(base, "data", "journal.db"),
		configPath:  filepath.Join(base, "config.toml"),
	}
	if err := os.MkdirAll(env.binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}

	ffmpeg := settings.ffmpegPath
	if ffmpeg == "" {
		ffmpeg = writeScript(t, env.binDir, "ffmpeg", settings.ffmpegScript)
	}
	ffprobe := writeScript(t, env.binDir, "ffprobe", ffprobeStub)

	content := fmt.Sprintf(`[paths]
work_dir = %q
log_dir = %q
journal_path = %q

[engine]
ffmpeg = %q
ffprobe = %q
cleanup_on_failure = %t

[logging]
level = "error"

[journal]
enabled = %t
`, env.workDir, env.logDir, env.journalPath, ffmpeg, ffprobe, settings.cleanupOnFailure, settings.journal)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func writeScript(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write %s stub: %v", name, err)
	}
	return path
}

// writeRecipe stores a recipe next to its source file and returns its path.
func (e *cliTestEnv) writeRecipe(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(e.baseDir, "recipe.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write recipe: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func runDirs(t *testing.T, root string) []string {
	t.Helper()
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read work dir: %v", err)
	}
	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "run-") {
			dirs = append(dirs, entry.Name())
		}
	}
	return dirs
}
