package arbor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultMaxDepth bounds element nesting when no MaxDepth is configured.
const DefaultMaxDepth = 512

// Config controls decoding and encoding. The zero value is not usable
// directly; start from DefaultConfig or LoadConfig.
type Config struct {
	// DenyUnknown makes every struct reject unknown elements and attributes,
	// as if each carried deny_unknown.
	DenyUnknown bool `yaml:"deny_unknown"`

	// Lenient forces lenient text handling regardless of the source.
	// When nil the source decides.
	Lenient *bool `yaml:"lenient,omitempty"`

	// MaxDepth bounds element nesting in sources built by NewCursor.
	MaxDepth int `yaml:"max_depth"`

	// PreserveWhitespace keeps whitespace-only text and untrimmed text in
	// the XML and HTML sources.
	PreserveWhitespace bool `yaml:"preserve_whitespace"`

	// Pretty enables indented output in the XML and HTML sinks.
	Pretty bool `yaml:"pretty"`

	// Indent is the per-level indentation used when Pretty is set.
	Indent string `yaml:"indent"`
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() *Config {
	return &Config{
		MaxDepth: DefaultMaxDepth,
		Indent:   "  ",
	}
}

// NewConfig applies opts to a default configuration.
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithDenyUnknown rejects unknown elements and attributes everywhere.
func WithDenyUnknown(deny bool) Option {
	return func(c *Config) { c.DenyUnknown = deny }
}

// WithLenient overrides the source's leniency.
func WithLenient(lenient bool) Option {
	return func(c *Config) { c.Lenient = &lenient }
}

// WithMaxDepth bounds element nesting.
func WithMaxDepth(depth int) Option {
	return func(c *Config) { c.MaxDepth = depth }
}

// WithPreserveWhitespace keeps whitespace text in XML and HTML sources.
func WithPreserveWhitespace(preserve bool) Option {
	return func(c *Config) { c.PreserveWhitespace = preserve }
}

// WithPretty enables indented output.
func WithPretty(pretty bool) Option {
	return func(c *Config) { c.Pretty = pretty }
}

// WithIndent sets the indentation unit and enables pretty output.
func WithIndent(indent string) Option {
	return func(c *Config) {
		c.Indent = indent
		c.Pretty = true
	}
}

// ParseConfig reads a YAML configuration document. Missing keys keep their defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	return cfg, nil
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return ParseConfig(data)
}
