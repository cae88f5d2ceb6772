// Package config loads relay's runtime configuration.
//
// Configuration is read from a YAML or CUE file and validated against the
// embedded CUE schema (schema.cue), which also supplies defaults. Unknown
// keys are rejected in both formats.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/relay/internal/store"
)

//go:embed schema.cue
var schemaSource string

// Config is the effective runtime configuration.
type Config struct {
	Store StoreConfig `json:"store" yaml:"store"`
	Log   LogConfig   `json:"log" yaml:"log"`
	Trace TraceConfig `json:"trace" yaml:"trace"`
	Test  TestConfig  `json:"test" yaml:"test"`
}

// StoreConfig configures store history.
type StoreConfig struct {
	MaxHistorySize int  `json:"max_history_size" yaml:"max_history_size"`
	DisableHistory bool `json:"disable_history" yaml:"disable_history"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// TraceConfig configures action trace recording.
type TraceConfig struct {
	Database string `json:"database" yaml:"database"`
}

// TestConfig configures the test store and scenario harness.
type TestConfig struct {
	ReceiveTimeout string `json:"receive_timeout" yaml:"receive_timeout"`
}

// Defaults returns the schema defaults.
func Defaults() Config {
	cfg, err := decode(nil)
	if err != nil {
		// The embedded schema is fixed; a failure here is a build defect.
		panic(fmt.Sprintf("config: invalid embedded schema: %v", err))
	}
	return cfg
}

// Load reads the config file at path. Files ending in .cue are evaluated
// as CUE; anything else is parsed as YAML. An empty path returns Defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Defaults(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if filepath.Ext(path) == ".cue" {
		cfg, err := ParseCUE(path, data)
		if err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
		return cfg, nil
	}

	cfg, err := ParseYAML(data)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseYAML parses YAML config. Omitted fields take schema defaults.
func ParseYAML(data []byte) (Config, error) {
	cfg := Defaults()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}

	return decode(func(ctx *cue.Context) cue.Value { return ctx.Encode(cfg) })
}

// ParseCUE evaluates CUE config. The file's top-level fields are unified
// with the schema, so it may omit anything that has a default.
func ParseCUE(filename string, data []byte) (Config, error) {
	return decode(func(ctx *cue.Context) cue.Value {
		return ctx.CompileBytes(data, cue.Filename(filename))
	})
}

// decode unifies the value built by src (if any) with #Config, requires it
// to be concrete and decodes it.
func decode(src func(*cue.Context) cue.Value) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	value := ctx.CompileString("{}")
	if src != nil {
		value = src(ctx)
		if err := value.Err(); err != nil {
			return Config{}, fmt.Errorf("build config: %s", details(err))
		}
	}

	unified := def.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("validate config: %s", details(err))
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if _, err := time.ParseDuration(cfg.Test.ReceiveTimeout); err != nil {
		return Config{}, fmt.Errorf("validate config: test.receive_timeout: %w", err)
	}
	return cfg, nil
}

func details(err error) string {
	return strings.TrimSpace(cueerrors.Details(err, nil))
}

// ReceiveTimeout returns test.receive_timeout as a duration.
func (c Config) ReceiveTimeout() time.Duration {
	d, err := time.ParseDuration(c.Test.ReceiveTimeout)
	if err != nil {
		return time.Second
	}
	return d
}

// StoreOptions returns the store options the config implies.
func (c Config) StoreOptions() []store.Option {
	if c.Store.DisableHistory {
		return []store.Option{store.WithoutHistory()}
	}
	return []store.Option{store.WithMaxHistorySize(c.Store.MaxHistorySize)}
}

// NewLogger builds a slog logger writing to w with the configured level
// and format.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// SlogLevel maps the configured level to a slog.Level.
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// YAML renders the config as YAML.
func (c Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}
