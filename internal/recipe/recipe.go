package recipe

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"audiochain/internal/audio"
)

// Recipe is the decoded TOML document.
type Recipe struct {
	Source string `toml:"source"`
	Output string `toml:"output"`
	// Format overrides the output format otherwise inferred from Output's extension.
	Format string `toml:"format"`
	Steps  []Step `toml:"step"`

	baseDir string
}

// Step is one [[step]] table. Only the fields relevant to Op are read.
type Step struct {
	Op string `toml:"op"`

	At       string `toml:"at"`
	Start    string `toml:"start"`
	End      string `toml:"end"`
	Duration string `toml:"duration"`
	Delay    string `toml:"delay"`

	Factor float64 `toml:"factor"`
	Decay  float64 `toml:"decay"`
	Cutoff float64 `toml:"cutoff"`

	Effect  string   `toml:"effect"`
	Source  string   `toml:"source"`
	Sources []string `toml:"sources"`
	Format  string   `toml:"format"`
}

// Load reads and validates the recipe at path. Relative file references are
// resolved against the recipe's directory.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve recipe path: %w", err)
	}
	return Parse(data, filepath.Dir(abs))
}

// Parse decodes and validates a recipe. baseDir anchors relative paths.
func Parse(data []byte, baseDir string) (*Recipe, error) {
	var r Recipe
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&r); err != nil {
		return nil, fmt.Errorf("parse recipe: %w", err)
	}
	r.baseDir = baseDir
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks every field and compiles every step without running anything.
func (r *Recipe) Validate() error {
	if strings.TrimSpace(r.Source) == "" {
		return errors.New("recipe: source is required")
	}
	if strings.TrimSpace(r.Output) == "" {
		return errors.New("recipe: output is required")
	}
	if _, err := r.OutputFormat(); err != nil {
		return fmt.Errorf("recipe: %w", err)
	}
	if _, err := r.compile(); err != nil {
		return err
	}
	return nil
}

// OutputFormat returns the explicit format or the one implied by Output.
func (r *Recipe) OutputFormat() (audio.Format, error) {
	if name := strings.TrimSpace(r.Format); name != "" {
		return audio.ParseFormat(name)
	}
	ext := filepath.Ext(r.Output)
	if ext == "" {
		return audio.FormatUnknown, fmt.Errorf("output %q has no extension; set format", r.Output)
	}
	return audio.ParseFormat(ext)
}

// SourcePath returns the absolute source location.
func (r *Recipe) SourcePath() string { return r.resolve(r.Source) }

// OutputPath returns the absolute output location.
func (r *Recipe) OutputPath() string { return r.resolve(r.Output) }

func (r *Recipe) resolve(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || filepath.IsAbs(path) || r.baseDir == "" {
		return path
	}
	return filepath.Join(r.baseDir, path)
}

// parseDuration accepts Go durations ("1.5s", "250ms") and bare seconds ("30").
func parseDuration(field, value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("%s is required", field)
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}
	if d, err := time.ParseDuration(value + "s"); err == nil {
		return d, nil
	}
	return 0, fmt.Errorf("%s: invalid duration %q", field, value)
}

func optionalDuration(field, value string) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	return parseDuration(field, value)
}
