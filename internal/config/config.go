// Package config loads the stash configuration file.
//
// The file is YAML. Before it is decoded into Go structs it is checked
// against the #Config definition in schema.cue, so unknown keys, bad enum
// values and missing per-backend keys are reported with their paths.
//
// Config file locations (priority order):
//  1. --config flag
//  2. $STASH_CONFIG
//  3. ./stash.yaml
//  4. ~/.config/stash/config.yaml
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/stash/internal/manager"
)

//go:embed schema.cue
var schemaSource string

// Backend types.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

// DefaultDataDir is where the default file backend keeps records.
const DefaultDataDir = "stash-data"

// Config is the decoded configuration file.
type Config struct {
	Version    int               `yaml:"version"`
	Serializer string            `yaml:"serializer"`
	Backends   []BackendConfig   `yaml:"backends"`
	Sync       manager.SyncTable `yaml:"sync"`
	Log        LogConfig         `yaml:"log"`
}

// BackendConfig describes one entry of the backend priority list. Entry 0
// is the primary (writable) backend.
type BackendConfig struct {
	Type     string `yaml:"type"`
	Path     string `yaml:"path,omitempty"`
	Bucket   string `yaml:"bucket,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
	Region   string `yaml:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file,omitempty"`
	MaxSizeMB int    `yaml:"max_size_mb,omitempty"`
	MaxFiles  int    `yaml:"max_files,omitempty"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Serializer == "" {
		c.Serializer = "json"
	}
	if len(c.Backends) == 0 {
		c.Backends = []BackendConfig{{Type: BackendFile, Path: DefaultDataDir}}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxFiles == 0 {
		c.Log.MaxFiles = 5
	}
}

// Load reads the file at path. An empty path searches the default
// locations; when nothing is found the defaults are returned with an
// empty path.
func Load(path string) (*Config, string, error) {
	if path == "" {
		path = FindConfigPath()
		if path == "" {
			return Default(), "", nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, path, fmt.Errorf("%s: %w", path, err)
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, path, nil
}

// Parse validates and decodes a configuration document.
func Parse(data []byte) (*Config, error) {
	var raw any
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Validate checks a decoded YAML document against the #Config schema.
func Validate(raw any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Details: cueerrors.Details(err, nil), Err: err}
	}
	return nil
}

// ValidationError reports a schema violation.
type ValidationError struct {
	Details string
	Err     error
}

func (e *ValidationError) Error() string {
	return "invalid config: " + e.Details
}

func (e *ValidationError) Unwrap() error { return e.Err }

// resolvePaths makes relative backend and log paths relative to dir.
func (c *Config) resolvePaths(dir string) {
	for i := range c.Backends {
		b := &c.Backends[i]
		if (b.Type == BackendFile || b.Type == BackendSQLite) && b.Path != "" && !filepath.IsAbs(b.Path) {
			b.Path = filepath.Join(dir, b.Path)
		}
	}
	if c.Log.File != "" && !filepath.IsAbs(c.Log.File) {
		c.Log.File = filepath.Join(dir, c.Log.File)
	}
}
