// Package config loads the daemon and CLI configuration.
//
// A config file is YAML. Unknown keys are rejected. Every path left empty
// is derived from a base directory, and the result is checked against an
// embedded CUE schema before use.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/artprovider/internal/provider"
)

//go:embed schema.cue
var schemaCUE string

// DefaultAuthority is used when the config names none.
const DefaultAuthority = "local"

// Config is the resolved configuration.
type Config struct {
	Authority    string        `yaml:"authority" json:"authority"`
	Database     string        `yaml:"database" json:"database"`
	CacheDir     string        `yaml:"cache_dir" json:"cache_dir"`
	FilesDir     string        `yaml:"files_dir" json:"files_dir"`
	StateDir     string        `yaml:"state_dir" json:"state_dir"`
	Socket       string        `yaml:"socket" json:"socket"`
	Description  string        `yaml:"description" json:"description,omitempty"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" json:"fetch_timeout,omitempty"`
	Log          Log           `yaml:"log" json:"log"`
}

// Log configures the slog handler installed by the CLI.
type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// DefaultBaseDir returns the directory paths are derived from when neither
// the file nor a flag names one.
func DefaultBaseDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "artprovider")
}

// Default returns the configuration used without a config file.
func Default(base string) (Config, error) {
	var c Config
	c.applyDefaults(base)
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads the YAML file at path. A missing file is not an error when
// optional is set; the defaults are returned instead.
func Load(path, base string, optional bool) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return Default(base)
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	c, err := Decode(f, base)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Decode parses YAML from r, fills defaults from base and validates.
func Decode(r io.Reader, base string) (Config, error) {
	var c Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	c.applyDefaults(base)
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// applyDefaults fills every empty field. Relative paths are resolved
// against base.
func (c *Config) applyDefaults(base string) {
	if b, err := filepath.Abs(base); err == nil {
		base = b
	}
	if c.Authority == "" {
		c.Authority = DefaultAuthority
	}
	abs := func(p *string, def string) {
		if *p == "" {
			*p = def
		}
		if !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
	abs(&c.CacheDir, "cache")
	abs(&c.FilesDir, "files")
	abs(&c.StateDir, c.FilesDir)
	abs(&c.Database, filepath.Join(c.FilesDir, c.Authority+".db"))
	abs(&c.Socket, c.Authority+".sock")

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks c against the embedded schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	value := schema.Unify(ctx.Encode(c))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Provider converts c into a provider configuration.
func (c Config) Provider() provider.Config {
	return provider.Config{
		Authority:    c.Authority,
		Database:     c.Database,
		CacheDir:     c.CacheDir,
		FilesDir:     c.FilesDir,
		StateDir:     c.StateDir,
		Description:  c.Description,
		FetchTimeout: c.FetchTimeout,
	}
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}
