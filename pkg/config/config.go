// Package config loads the folio server configuration from a JSON
// file with environment variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/foliolabs/folio/pkg/comments"
	"github.com/foliolabs/folio/pkg/index"
	"github.com/foliolabs/folio/pkg/ratelimit"
	"github.com/foliolabs/folio/pkg/search"
)

// Config holds the full folio configuration.
type Config struct {
	Server    ServerConfig     `json:"server"`
	Content   ContentConfig    `json:"content"`
	Search    search.Config    `json:"search"`
	Index     index.Config     `json:"index"`
	RateLimit ratelimit.Config `json:"rate_limit"`
	Comments  CommentsConfig   `json:"comments"`
	Logging   LoggingConfig    `json:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr string `json:"addr"`

	// SearchBackend selects "engine" (in-memory) or "index" (bleve)
	// for /api/search.
	SearchBackend string `json:"search_backend"`

	// AdminTokenHash is the bcrypt hash of the admin token guarding
	// moderation endpoints. Generate with `folio-admin hash-token`.
	// Empty disables the admin surface.
	AdminTokenHash string `json:"admin_token_hash"`

	// MaxBodyBytes caps POST request bodies.
	MaxBodyBytes int64 `json:"max_body_bytes"`

	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// ContentConfig locates the content collection.
type ContentConfig struct {
	Dir   string `json:"dir"`
	Watch bool   `json:"watch"`
}

// CommentsConfig controls the comment store. Disabled when no
// connection string is set.
type CommentsConfig struct {
	Enabled    bool                      `json:"enabled"`
	Store      comments.StoreConfig      `json:"store"`
	Moderation comments.ModerationConfig `json:"moderation"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text, json
	Output string `json:"output"` // console, or a file path
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:          ":8080",
			SearchBackend: "engine",
			MaxBodyBytes:  64 * 1024,
			ReadTimeout:   15 * time.Second,
			WriteTimeout:  15 * time.Second,
		},
		Content: ContentConfig{
			Dir:   "content",
			Watch: true,
		},
		Search:    search.DefaultConfig(),
		Index:     index.DefaultConfig(),
		RateLimit: ratelimit.DefaultConfig(),
		Comments: CommentsConfig{
			Moderation: comments.DefaultModerationConfig(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "console",
		},
	}
}

// Load reads the config file (defaults apply when path is empty or the
// file is absent), applies FOLIO_* environment overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides lets deployment environments override file values
// without editing the file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FOLIO_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("FOLIO_SEARCH_BACKEND"); v != "" {
		c.Server.SearchBackend = v
	}
	if v := os.Getenv("FOLIO_ADMIN_TOKEN_HASH"); v != "" {
		c.Server.AdminTokenHash = v
	}
	if v := os.Getenv("FOLIO_CONTENT_DIR"); v != "" {
		c.Content.Dir = v
	}
	if v := os.Getenv("FOLIO_CONTENT_WATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Content.Watch = b
		}
	}
	if v := os.Getenv("FOLIO_INDEX_PATH"); v != "" {
		c.Index.Path = v
	}
	if v := os.Getenv("FOLIO_DB_URL"); v != "" {
		c.Comments.Enabled = true
		c.Comments.Store.ConnectionString = v
	}
	if v := os.Getenv("FOLIO_MIGRATIONS_PATH"); v != "" {
		c.Comments.Store.MigrationsPath = v
	}
	if v := os.Getenv("FOLIO_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("FOLIO_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("FOLIO_LOG_OUTPUT"); v != "" {
		c.Logging.Output = v
	}
}

// Validate checks settings that would otherwise fail at an awkward
// moment much later.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	switch c.Server.SearchBackend {
	case "engine", "index":
	default:
		return fmt.Errorf("server.search_backend must be \"engine\" or \"index\", got %q", c.Server.SearchBackend)
	}
	if c.Content.Dir == "" {
		return fmt.Errorf("content.dir is required")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	if c.Comments.Enabled && c.Comments.Store.ConnectionString == "" {
		return fmt.Errorf("comments.store.connection_string is required when comments are enabled")
	}
	if c.Search.MinScore < 0 || c.Search.MinScore > 1 {
		return fmt.Errorf("search.min_score must be in [0, 1]")
	}
	return nil
}
