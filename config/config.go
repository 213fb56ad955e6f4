// Package config provides configuration structures for the tag search service.
// Values are layered defaults -> YAML file -> environment, see Load.
package config

import (
	"strings"
	"time"
)

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Cache     CacheConfig     `koanf:"cache"`
	Search    SearchConfig    `koanf:"search"`
	Groups    GroupsConfig    `koanf:"groups"`
	Recommend RecommendConfig `koanf:"recommend"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Port         string `koanf:"port"`
	Mode         string `koanf:"mode"` // gin mode: debug, release, test
	MaxBodyBytes int64  `koanf:"max_body_bytes"`
}

// DatabaseConfig configures the SQLite store
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// CacheConfig sizes the process-local caches.
type CacheConfig struct {
	TagIDsSize       int           `koanf:"tag_ids_size"`       // tag name -> id (LRU, no expiry)
	PostSetsSize     int           `koanf:"post_sets_size"`     // tag id -> post ids
	PostSetsTTL      time.Duration `koanf:"post_sets_ttl"`
	ResultsSize      int           `koanf:"results_size"`       // canonical search -> ordered ids
	ResultsTTL       time.Duration `koanf:"results_ttl"`
	MergedGroupsSize int           `koanf:"merged_groups_size"` // source filter -> merged groups
	MergedGroupsTTL  time.Duration `koanf:"merged_groups_ttl"`
}

// SearchConfig controls search pagination and wildcard limits
type SearchConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
	WildcardCap     int `koanf:"wildcard_cap"`
	MaxTerms        int `koanf:"max_terms"`
}

// GroupsConfig controls merged group listing
type GroupsConfig struct {
	PreviewSize     int `koanf:"preview_size"`
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// RecommendConfig controls the recommendation engine and pregeneration.
type RecommendConfig struct {
	DefaultLimit        int           `koanf:"default_limit"`
	MaxLimit            int           `koanf:"max_limit"`
	StoredLimit         int           `koanf:"stored_limit"` // rows persisted per post
	TTL                 time.Duration `koanf:"ttl"`
	Workers             int           `koanf:"workers"`
	ProgressFlushEvery  int           `koanf:"progress_flush_every"`
	PregenerateSchedule string        `koanf:"pregenerate_schedule"` // cron spec, empty disables
	StatsTTL            time.Duration `koanf:"stats_ttl"`
}

// RateLimitConfig configures the per-client sliding window limiter
type RateLimitConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Requests        int           `koanf:"requests"`
	Window          time.Duration `koanf:"window"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// LoggingConfig configures zerolog output
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values with defaults
func (c *Config) ApplyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 10 << 20
	}

	if c.Database.Path == "" {
		c.Database.Path = "./tagsearch_data/tagsearch.db"
	}

	if c.Cache.TagIDsSize == 0 {
		c.Cache.TagIDsSize = 10000
	}
	if c.Cache.PostSetsSize == 0 {
		c.Cache.PostSetsSize = 2000
	}
	if c.Cache.PostSetsTTL == 0 {
		c.Cache.PostSetsTTL = 5 * time.Minute
	}
	if c.Cache.ResultsSize == 0 {
		c.Cache.ResultsSize = 500
	}
	if c.Cache.ResultsTTL == 0 {
		c.Cache.ResultsTTL = time.Minute
	}
	if c.Cache.MergedGroupsSize == 0 {
		c.Cache.MergedGroupsSize = 32
	}
	if c.Cache.MergedGroupsTTL == 0 {
		c.Cache.MergedGroupsTTL = 5 * time.Minute
	}

	if c.Search.DefaultPageSize == 0 {
		c.Search.DefaultPageSize = 40
	}
	if c.Search.MaxPageSize == 0 {
		c.Search.MaxPageSize = 200
	}
	if c.Search.WildcardCap == 0 {
		c.Search.WildcardCap = 500
	}
	if c.Search.MaxTerms == 0 {
		c.Search.MaxTerms = 32
	}

	if c.Groups.PreviewSize == 0 {
		c.Groups.PreviewSize = 4
	}
	if c.Groups.DefaultPageSize == 0 {
		c.Groups.DefaultPageSize = 20
	}
	if c.Groups.MaxPageSize == 0 {
		c.Groups.MaxPageSize = 100
	}

	if c.Recommend.DefaultLimit == 0 {
		c.Recommend.DefaultLimit = 20
	}
	if c.Recommend.MaxLimit == 0 {
		c.Recommend.MaxLimit = 100
	}
	if c.Recommend.StoredLimit == 0 {
		c.Recommend.StoredLimit = c.Recommend.MaxLimit
	}
	if c.Recommend.TTL == 0 {
		c.Recommend.TTL = 24 * time.Hour
	}
	if c.Recommend.Workers == 0 {
		c.Recommend.Workers = 4
	}
	if c.Recommend.ProgressFlushEvery == 0 {
		c.Recommend.ProgressFlushEvery = 100
	}
	if c.Recommend.StatsTTL == 0 {
		c.Recommend.StatsTTL = 10 * time.Minute
	}

	if c.RateLimit.Requests == 0 {
		c.RateLimit.Requests = 120
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.RateLimit.CleanupInterval == 0 {
		c.RateLimit.CleanupInterval = 5 * time.Minute
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate returns a list of configuration problems; empty means valid.
func (c *Config) Validate() []string {
	var problems []string

	if strings.TrimSpace(c.Database.Path) == "" {
		problems = append(problems, "database.path cannot be empty")
	}

	problems = append(problems, checkPositive("cache.tag_ids_size", c.Cache.TagIDsSize)...)
	problems = append(problems, checkPositive("cache.post_sets_size", c.Cache.PostSetsSize)...)
	problems = append(problems, checkPositive("cache.results_size", c.Cache.ResultsSize)...)
	problems = append(problems, checkPositive("cache.merged_groups_size", c.Cache.MergedGroupsSize)...)
	problems = append(problems, checkPositive("search.wildcard_cap", c.Search.WildcardCap)...)
	problems = append(problems, checkPositive("recommend.workers", c.Recommend.Workers)...)
	problems = append(problems, checkPositive("groups.preview_size", c.Groups.PreviewSize)...)

	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		problems = append(problems, "search.default_page_size cannot exceed search.max_page_size")
	}
	if c.Groups.DefaultPageSize > c.Groups.MaxPageSize {
		problems = append(problems, "groups.default_page_size cannot exceed groups.max_page_size")
	}
	if c.Recommend.DefaultLimit > c.Recommend.MaxLimit {
		problems = append(problems, "recommend.default_limit cannot exceed recommend.max_limit")
	}
	if c.Recommend.StoredLimit < c.Recommend.MaxLimit {
		problems = append(problems, "recommend.stored_limit must be at least recommend.max_limit")
	}
	if c.RateLimit.Enabled && c.RateLimit.Requests <= 0 {
		problems = append(problems, "ratelimit.requests must be positive when rate limiting is enabled")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		problems = append(problems, "Invalid logging.format '"+c.Logging.Format+"' (must be 'json' or 'console')")
	}

	return problems
}

func checkPositive(name string, v int) []string {
	if v <= 0 {
		return []string{name + " must be positive"}
	}
	return nil
}
