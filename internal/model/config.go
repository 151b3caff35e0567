package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the complete citelink configuration
type Config struct {
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Robots       RobotsConfig       `yaml:"robots" mapstructure:"robots"`
	Extract      ExtractConfig      `yaml:"extract" mapstructure:"extract"`
	Normalize    NormalizeConfig    `yaml:"normalize" mapstructure:"normalize"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// HTTPConfig controls document retrieval
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	InsecureTLS  bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
}

// CacheConfig controls the fetched-page cache. Pages stay in process memory
// unless Disk is set.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Disk      bool          `yaml:"disk" mapstructure:"disk"` // Also keep pages under Dir across runs
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig controls parallel fetching (extraction itself is sequential)
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig controls per-host request rates
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// RobotsConfig controls robots.txt compliance
type RobotsConfig struct {
	Respect bool `yaml:"respect" mapstructure:"respect"`
}

// ExtractConfig controls reference-section parsing
type ExtractConfig struct {
	MarkerText        string `yaml:"marker_text" mapstructure:"marker_text"`                 // Visible label of identifier links, e.g. "(PubMed)"
	Namespace         string `yaml:"namespace" mapstructure:"namespace"`                     // Prefix tag for identifiers, e.g. "PMID"
	AnchorID          string `yaml:"anchor_id" mapstructure:"anchor_id"`                     // Anchor marking the start of a sibling-paragraph reference block
	NamedAnchorPrefix string `yaml:"named_anchor_prefix" mapstructure:"named_anchor_prefix"` // Name prefix of per-citation anchors
}

// RolePolicy decides how declared role maps interact with positional inference
type RolePolicy string

const (
	RolePolicyStrict     RolePolicy = "strict"     // Declared map wins; incomplete records are skipped
	RolePolicyLenient    RolePolicy = "lenient"    // Declared map when complete, positional otherwise
	RolePolicyPositional RolePolicy = "positional" // Declared maps are ignored
)

// Valid reports whether the policy is one of the known values
func (p RolePolicy) Valid() bool {
	switch p {
	case RolePolicyStrict, RolePolicyLenient, RolePolicyPositional:
		return true
	}
	return false
}

// RoleSpec names the subject and object fields of one relationship category
type RoleSpec struct {
	Subject string `yaml:"subject" mapstructure:"subject"`
	Object  string `yaml:"object" mapstructure:"object"`
}

// NormalizeConfig controls relationship normalization
type NormalizeConfig struct {
	Suffix     string              `yaml:"suffix" mapstructure:"suffix"`
	RolePolicy RolePolicy          `yaml:"role_policy" mapstructure:"role_policy"`
	Roles      map[string]RoleSpec `yaml:"roles,omitempty" mapstructure:"roles"` // Category -> roles; merged over the built-in map
}

// OutputConfig controls table output
type OutputConfig struct {
	Dir           string `yaml:"dir" mapstructure:"dir"`
	ReferenceName string `yaml:"reference_name" mapstructure:"reference_name"`
	CombinedName  string `yaml:"combined_name" mapstructure:"combined_name"`
	ListSeparator string `yaml:"list_separator" mapstructure:"list_separator"`
	Verbose       bool   `yaml:"-" mapstructure:"-"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	cacheDir := filepath.Join(os.TempDir(), "citelink-cache")
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".citelink", "cache")
	}

	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "citelink/0.1 (+https://github.com/ppiankov/citelink)",
			MaxBodyBytes: 5_000_000,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Disk:      false,
			Dir:       cacheDir,
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         2,
		},
		Robots: RobotsConfig{
			Respect: true,
		},
		Extract: ExtractConfig{
			MarkerText:        "(PubMed)",
			Namespace:         "PMID",
			AnchorID:          "references",
			NamedAnchorPrefix: "reference",
		},
		Normalize: NormalizeConfig{
			Suffix:     "_relationships",
			RolePolicy: RolePolicyStrict,
		},
		Output: OutputConfig{
			Dir:           "output/tsv",
			ReferenceName: "references.tsv",
			CombinedName:  "associations.tsv",
			ListSeparator: "|",
		},
	}
}
