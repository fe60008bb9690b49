package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvConfigPath names the environment variable holding an explicit config path.
const EnvConfigPath = "CLASP_CONFIG"

// Config holds all configuration options for clasp.
type Config struct {
	// File discovery
	Scan ScanConfig `koanf:"scan" toml:"scan" yaml:"scan" json:"scan"`

	// Pattern filtering and clustering
	Patterns PatternConfig `koanf:"patterns" toml:"patterns" yaml:"patterns" json:"patterns"`

	// Likelihood weights
	Scoring ScoringConfig `koanf:"scoring" toml:"scoring" yaml:"scoring" json:"scoring"`

	// Extraction strategies per templating dialect
	Extract ExtractConfig `koanf:"extract" toml:"extract" yaml:"extract" json:"extract"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache" yaml:"cache" json:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output" yaml:"output" json:"output"`
}

// ScanConfig controls which files are analyzed.
type ScanConfig struct {
	Globs       []string `koanf:"globs" toml:"globs" yaml:"globs" json:"globs"`
	IgnoreGlobs []string `koanf:"ignore_globs" toml:"ignore_globs" yaml:"ignore_globs" json:"ignore_globs"`
	Gitignore   bool     `koanf:"gitignore" toml:"gitignore" yaml:"gitignore" json:"gitignore"`
	MaxFileSize string   `koanf:"max_file_size" toml:"max_file_size" yaml:"max_file_size" json:"max_file_size"` // e.g. "1MB", empty = no limit
}

// PatternConfig controls aggregation and clustering.
type PatternConfig struct {
	SimilarityThreshold float64 `koanf:"similarity_threshold" toml:"similarity_threshold" yaml:"similarity_threshold" json:"similarity_threshold"`
	MinOccurrences      int     `koanf:"min_occurrences" toml:"min_occurrences" yaml:"min_occurrences" json:"min_occurrences"`
	MinVariants         int     `koanf:"min_variants" toml:"min_variants" yaml:"min_variants" json:"min_variants"`
}

// ScoringConfig holds the likelihood weights. Both contribute to the 0-100 scale.
type ScoringConfig struct {
	VariantWeight   float64 `koanf:"variant_weight" toml:"variant_weight" yaml:"variant_weight" json:"variant_weight"`
	FrequencyWeight float64 `koanf:"frequency_weight" toml:"frequency_weight" yaml:"frequency_weight" json:"frequency_weight"`
}

// ExtractConfig maps file extensions to named regular-expression strategies.
// Extensions are written without the leading dot.
type ExtractConfig struct {
	Strategies   map[string]string   `koanf:"strategies" toml:"strategies" yaml:"strategies" json:"strategies"`
	FileTypes    map[string][]string `koanf:"file_types" toml:"file_types" yaml:"file_types" json:"file_types"`
	MatchTimeout int                 `koanf:"match_timeout_ms" toml:"match_timeout_ms" yaml:"match_timeout_ms" json:"match_timeout_ms"`
}

// CacheConfig controls caching of per-file extraction results.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled" yaml:"enabled" json:"enabled"`
	Dir     string `koanf:"dir" toml:"dir" yaml:"dir" json:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl" yaml:"ttl" json:"ttl"` // TTL in hours
}

// OutputConfig controls the report channels.
type OutputConfig struct {
	Console ConsoleConfig `koanf:"console" toml:"console" yaml:"console" json:"console"`
	JSON    JSONConfig    `koanf:"json" toml:"json" yaml:"json" json:"json"`
	Color   bool          `koanf:"color" toml:"color" yaml:"color" json:"color"`
}

// ConsoleConfig controls the tabular preview.
type ConsoleConfig struct {
	Enabled bool `koanf:"enabled" toml:"enabled" yaml:"enabled" json:"enabled"`
	Top     int  `koanf:"top" toml:"top" yaml:"top" json:"top"`
}

// JSONConfig controls the JSON report file. An empty Path disables writing.
type JSONConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled" yaml:"enabled" json:"enabled"`
	Path    string `koanf:"path" toml:"path" yaml:"path" json:"path"`
}

// Defaults for the numeric settings. Sanitize falls back to these.
const (
	DefaultSimilarityThreshold = 0.75
	DefaultMinOccurrences      = 2
	DefaultMinVariants         = 1
	DefaultVariantWeight       = 60.0
	DefaultFrequencyWeight     = 40.0
	DefaultConsoleTop          = 20
	DefaultMatchTimeoutMs      = 1000
	DefaultCacheTTL            = 24
)

// arrayBody matches a bracketed list inside a double-quoted attribute. Quoted
// literals are consumed whole so arbitrary values like 'w-[10px]' do not end
// the list early.
const arrayBody = `(?<array>\[(?:[^\]'"` + "`" + `]|'[^']*'|` + "`[^`]*`" + `)*\])`

// DefaultStrategies are the built-in extraction patterns, keyed by dialect.
// A named group "array" switches a match onto the array-literal path.
func DefaultStrategies() map[string]string {
	return map[string]string{
		"html":    `(?<![\w:.-])class\s*=\s*(?:"([^"]*)"|'([^']*)')`,
		"jsx":     `\bclassName\s*=\s*(?:\{\s*` + "`([^`]*)`" + `\s*\}|\{\s*"([^"]*)"\s*\}|\{\s*'([^']*)'\s*\}|"([^"]*)"|'([^']*)')`,
		"helpers": `\b(?:clsx|classnames|cn|twMerge|cva)\(\s*(?:"([^"]*)"|'([^']*)'|` + "`([^`]*)`" + `)`,
		"vue":     `(?:v-bind)?:class\s*=\s*"(?:` + arrayBody + `|'([^']*)'|` + "`([^`]*)`" + `)"`,
		"svelte":  `(?<![\w:.-])class\s*=\s*\{\s*(?:` + "`([^`]*)`" + `|"([^"]*)"|'([^']*)')\s*\}`,
		"angular": `\[(?:ngClass|class)\]\s*=\s*"(?:` + arrayBody + `|'([^']*)')"`,
	}
}

// DefaultFileTypes maps extensions (without dot) to strategy names.
func DefaultFileTypes() map[string][]string {
	return map[string][]string{
		"html":   {"html", "angular"},
		"htm":    {"html", "angular"},
		"jsx":    {"jsx", "helpers"},
		"tsx":    {"jsx", "helpers"},
		"js":     {"jsx", "helpers"},
		"ts":     {"jsx", "helpers"},
		"vue":    {"html", "vue"},
		"svelte": {"html", "svelte"},
		"astro":  {"html", "jsx"},
	}
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Globs: []string{
				"**/*.{html,htm,jsx,tsx,js,ts,vue,svelte,astro}",
			},
			IgnoreGlobs: []string{
				"**/node_modules/**",
				"**/dist/**",
				"**/build/**",
				"**/.git/**",
				"**/.clasp/**",
				"**/*.min.js",
				"**/*.d.ts",
			},
			Gitignore:   true,
			MaxFileSize: "1MB",
		},
		Patterns: PatternConfig{
			SimilarityThreshold: DefaultSimilarityThreshold,
			MinOccurrences:      DefaultMinOccurrences,
			MinVariants:         DefaultMinVariants,
		},
		Scoring: ScoringConfig{
			VariantWeight:   DefaultVariantWeight,
			FrequencyWeight: DefaultFrequencyWeight,
		},
		Extract: ExtractConfig{
			Strategies:   DefaultStrategies(),
			FileTypes:    DefaultFileTypes(),
			MatchTimeout: DefaultMatchTimeoutMs,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".clasp/cache",
			TTL:     DefaultCacheTTL,
		},
		Output: OutputConfig{
			Console: ConsoleConfig{
				Enabled: true,
				Top:     DefaultConsoleTop,
			},
			JSON: JSONConfig{
				Enabled: true,
				Path:    "reports/class-patterns.json",
			},
			Color: true,
		},
	}
}

// numericKeys lists every key that must hold a number, with its kind.
var numericKeys = map[string]string{
	"patterns.similarity_threshold": "float",
	"patterns.min_occurrences":      "int",
	"patterns.min_variants":         "int",
	"scoring.variant_weight":        "float",
	"scoring.frequency_weight":      "float",
	"extract.match_timeout_ms":      "int",
	"cache.ttl":                     "int",
	"output.console.top":            "int",
}

// Load loads configuration from a file on top of the defaults.
// Non-numeric values for numeric keys are dropped and out-of-range values are
// reset to their defaults; each substitution is reported in the returned warnings.
func Load(path string) (*Config, []string, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return nil, nil, err
	}

	warnings := dropNonNumeric(k)

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, nil, err
	}

	warnings = append(warnings, cfg.Sanitize()...)
	return cfg, warnings, nil
}

// parserFor picks a parser from the file extension, defaulting to TOML.
func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return json.Parser()
	default:
		return toml.Parser()
	}
}

func dropNonNumeric(k *koanf.Koanf) []string {
	var warnings []string
	for key, kind := range numericKeys {
		if !k.Exists(key) {
			continue
		}
		if isNumeric(k.Get(key), kind) {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("%s: %v is not a valid %s, using default", key, k.Get(key), kind))
		k.Delete(key)
	}
	return warnings
}

func isNumeric(v any, kind string) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return kind == "float" || float32(int64(n)) == n
	case float64:
		return kind == "float" || float64(int64(n)) == n
	case string:
		if kind == "int" {
			_, err := strconv.Atoi(strings.TrimSpace(n))
			return err == nil
		}
		_, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return err == nil
	default:
		return false
	}
}

// Sanitize replaces out-of-range numeric settings with their defaults and
// returns one warning per substitution.
func (c *Config) Sanitize() []string {
	var warnings []string
	warn := func(key string, got, want any) {
		warnings = append(warnings, fmt.Sprintf("%s: %v is out of range, using default %v", key, got, want))
	}

	if t := c.Patterns.SimilarityThreshold; t < 0 || t > 1 {
		warn("patterns.similarity_threshold", t, DefaultSimilarityThreshold)
		c.Patterns.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if c.Patterns.MinOccurrences < 1 {
		warn("patterns.min_occurrences", c.Patterns.MinOccurrences, DefaultMinOccurrences)
		c.Patterns.MinOccurrences = DefaultMinOccurrences
	}
	if c.Patterns.MinVariants < 1 {
		warn("patterns.min_variants", c.Patterns.MinVariants, DefaultMinVariants)
		c.Patterns.MinVariants = DefaultMinVariants
	}
	if c.Scoring.VariantWeight < 0 || c.Scoring.VariantWeight > 100 {
		warn("scoring.variant_weight", c.Scoring.VariantWeight, DefaultVariantWeight)
		c.Scoring.VariantWeight = DefaultVariantWeight
	}
	if c.Scoring.FrequencyWeight < 0 || c.Scoring.FrequencyWeight > 100 {
		warn("scoring.frequency_weight", c.Scoring.FrequencyWeight, DefaultFrequencyWeight)
		c.Scoring.FrequencyWeight = DefaultFrequencyWeight
	}
	if c.Output.Console.Top < 0 {
		warn("output.console.top", c.Output.Console.Top, DefaultConsoleTop)
		c.Output.Console.Top = DefaultConsoleTop
	}
	if c.Extract.MatchTimeout <= 0 {
		warn("extract.match_timeout_ms", c.Extract.MatchTimeout, DefaultMatchTimeoutMs)
		c.Extract.MatchTimeout = DefaultMatchTimeoutMs
	}
	if c.Cache.TTL <= 0 {
		warn("cache.ttl", c.Cache.TTL, DefaultCacheTTL)
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Scan.MaxFileSize != "" {
		if _, err := humanize.ParseBytes(c.Scan.MaxFileSize); err != nil {
			warnings = append(warnings, fmt.Sprintf("scan.max_file_size: %q is not a size, analyzing files of any size", c.Scan.MaxFileSize))
			c.Scan.MaxFileSize = ""
		}
	}
	return warnings
}

// MaxFileSizeBytes returns the parsed size limit, or 0 for no limit.
func (c *Config) MaxFileSizeBytes() int64 {
	if c.Scan.MaxFileSize == "" {
		return 0
	}
	n, err := humanize.ParseBytes(c.Scan.MaxFileSize)
	if err != nil {
		return 0
	}
	return int64(n)
}

// Extensions returns the configured file extensions, without dots.
func (c *Config) Extensions() []string {
	exts := make([]string, 0, len(c.Extract.FileTypes))
	for ext := range c.Extract.FileTypes {
		exts = append(exts, ext)
	}
	return exts
}

// configNames are the standard config file names, in lookup order.
var configNames = []string{
	"clasp.toml",
	"clasp.yaml",
	"clasp.yml",
	"clasp.json",
	".clasp.toml",
	".clasp.yaml",
	".clasp.yml",
	".clasp.json",
}

// searchDirs are checked in order for the standard config names.
var searchDirs = []string{".", ".clasp"}

// LoadResult is the effective configuration plus where it came from.
type LoadResult struct {
	Config   *Config
	Source   string   // file path, empty for built-in defaults
	Warnings []string // values that were substituted by defaults
}

type loadOptions struct {
	path string
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

// WithPath loads an explicit file instead of searching the standard locations.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// ErrConfigNotFound is returned when an explicit config path does not exist.
var ErrConfigNotFound = errors.New("config file not found")

// LoadConfig loads the config from an explicit path, the CLASP_CONFIG
// environment variable, or the standard locations, in that order.
// Returns an error when the selected file cannot be loaded.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.path == "" {
		o.path = os.Getenv(EnvConfigPath)
	}

	path := o.path
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return &LoadResult{Config: DefaultConfig()}, nil
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}

	cfg, warnings, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return &LoadResult{Config: cfg, Source: path, Warnings: warnings}, nil
}

func findConfigFile() string {
	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault loads the config like LoadConfig but never fails: a missing or
// malformed file falls back to the defaults. Warnings are logged.
func LoadOrDefault(opts ...LoadOption) *LoadResult {
	result, err := LoadConfig(opts...)
	if err != nil {
		slog.Warn("using default configuration", "error", err)
		return &LoadResult{Config: DefaultConfig()}
	}
	for _, w := range result.Warnings {
		slog.Warn("config value replaced", "detail", w, "source", result.Source)
	}
	return result
}

// ErrUnknownStrategy is returned when a file type names a strategy that is not defined.
var ErrUnknownStrategy = errors.New("unknown extraction strategy")
