package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	vderrors "github.com/systmms/vaultdoor/internal/errors"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is probed when no --config flag is given
	DefaultConfigFile = "vaultdoor.yaml"

	// DefaultAPIToken is the well-known demo token used when none is
	// configured. Fine for local demos, not for anything reachable.
	DefaultAPIToken = "demo-token-123"

	// DefaultListen is the address the HTTP server binds by default
	DefaultListen = ":8000"

	// DefaultCacheCapacity bounds the façade's LRU cache
	DefaultCacheCapacity = 128
)

// Config holds the runtime configuration, built from defaults, an optional
// YAML file, VAULTDOOR_* environment variables, and CLI flags, in that order.
type Config struct {
	Listen      string      `yaml:"listen"`
	APIToken    string      `yaml:"api_token"`
	Docs        bool        `yaml:"docs"`
	Debug       bool        `yaml:"debug"`
	NoColor     bool        `yaml:"no_color"`
	CORSOrigins []string    `yaml:"cors_origins"`
	Cache       CacheConfig `yaml:"cache"`
	Store       StoreConfig `yaml:"store"`
}

// CacheConfig holds the façade cache settings
type CacheConfig struct {
	Capacity int `yaml:"capacity"`
}

// StoreConfig holds the backend type and its type-specific settings. The
// settings map carries whatever keys the chosen backend understands (url,
// region, project, dsn, ...).
type StoreConfig struct {
	Type     string                 `yaml:"type"`
	Settings map[string]interface{} `yaml:",inline"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Listen:      DefaultListen,
		Docs:        true,
		CORSOrigins: []string{"*"},
		Cache:       CacheConfig{Capacity: DefaultCacheCapacity},
		Store: StoreConfig{
			Type:     "azure.keyvault",
			Settings: map[string]interface{}{},
		},
	}
}

// Load builds the configuration. An explicit path must exist; otherwise
// DefaultConfigFile is merged only when present.
func Load(path string) (*Config, error) {
	return LoadWithOverrides(path, nil)
}

// LoadWithOverrides is Load with a hook that runs after the file and
// environment layers but before validation, so command line flags can
// win over both.
func LoadWithOverrides(path string, override func(*Config)) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, vderrors.ConfigError{
					Field:      "config",
					Value:      path,
					Message:    "configuration file not found",
					Suggestion: "Check the --config path, or omit it to run on defaults",
				}
			}
			return nil, vderrors.UserError{
				Message:    "Failed to read configuration file",
				Details:    err.Error(),
				Suggestion: "Check file permissions and path",
				Err:        err,
			}
		}
		if err := cfg.mergeYAML(data); err != nil {
			return nil, err
		}
	} else if data, err := os.ReadFile(DefaultConfigFile); err == nil {
		if err := cfg.mergeYAML(data); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if override != nil {
		override(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeYAML validates the document against the embedded schema and then
// unmarshals it over the current values
func (c *Config) mergeYAML(data []byte) error {
	if err := validateSchema(data); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return vderrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
		}
	}
	if c.Store.Settings == nil {
		c.Store.Settings = map[string]interface{}{}
	}
	return nil
}

// applyEnv overlays VAULTDOOR_* environment variables
func (c *Config) applyEnv() error {
	if v := os.Getenv("VAULTDOOR_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("VAULTDOOR_API_TOKEN"); v != "" {
		c.APIToken = v
	}
	if v := os.Getenv("VAULTDOOR_CACHE_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return vderrors.ConfigError{
				Field:      "VAULTDOOR_CACHE_CAPACITY",
				Value:      v,
				Message:    "cache capacity must be a positive integer",
				Suggestion: "Unset the variable to use the default of 128",
			}
		}
		c.Cache.Capacity = n
	}
	if v := os.Getenv("VAULTDOOR_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			c.Debug = debug
		}
	}
	if v := os.Getenv("VAULTDOOR_STORE_TYPE"); v != "" {
		c.Store.Type = v
	}
	if v := os.Getenv("VAULTDOOR_STORE_URL"); v != "" {
		if c.Store.Settings == nil {
			c.Store.Settings = map[string]interface{}{}
		}
		c.Store.Settings["url"] = v
	}
	return nil
}

// Validate enforces cross-field rules, including the per-type required
// store settings
func (c *Config) Validate() error {
	if c.Listen == "" {
		return vderrors.ConfigError{
			Field:      "listen",
			Message:    "listen address cannot be empty",
			Suggestion: "Use the host:port form, for example :8000",
		}
	}
	if c.Cache.Capacity <= 0 {
		return vderrors.ConfigError{
			Field:      "cache.capacity",
			Value:      c.Cache.Capacity,
			Message:    "cache capacity must be positive",
			Suggestion: "Remove the setting to use the default of 128",
		}
	}
	if c.Store.Type == "" {
		return vderrors.ConfigError{
			Field:      "store.type",
			Message:    "store type is required",
			Suggestion: "Set store.type (for example azure.keyvault, aws.secretsmanager, or memory)",
		}
	}

	switch c.Store.Type {
	case "azure.keyvault", "azure":
		if c.StoreSetting("url") == "" {
			return vderrors.ConfigError{
				Field:      "store.url",
				Message:    "url is required for Azure Key Vault",
				Suggestion: "Set store.url to https://<vault-name>.vault.azure.net, or use store.type: memory for a local demo",
			}
		}
	case "gcp.secretmanager", "gcp":
		if c.StoreSetting("project") == "" && gcpProjectFromEnv() == "" {
			return vderrors.ConfigError{
				Field:      "store.project",
				Message:    "project is required for GCP Secret Manager",
				Suggestion: "Set store.project or the GOOGLE_CLOUD_PROJECT environment variable",
			}
		}
	case "sql":
		if c.StoreSetting("dsn") == "" {
			return vderrors.ConfigError{
				Field:      "store.dsn",
				Message:    "dsn is required for the SQL store",
				Suggestion: "Set store.dsn to a postgres:// URL or a MySQL DSN",
			}
		}
	}

	return nil
}

// StoreSetting returns a string-typed store setting, or "" when absent
func (c *Config) StoreSetting(key string) string {
	if v, ok := c.Store.Settings[key].(string); ok {
		return v
	}
	return ""
}

// Token returns the bearer token to enforce, falling back to the demo token
func (c *Config) Token() string {
	if c.APIToken == "" {
		return DefaultAPIToken
	}
	return c.APIToken
}

// UsingDemoToken reports whether the insecure built-in token is in effect
func (c *Config) UsingDemoToken() bool {
	return c.APIToken == ""
}

// Summary renders a one-line description for startup logging. Secrets never
// appear in it.
func (c *Config) Summary() string {
	token := "configured"
	if c.UsingDemoToken() {
		token = "demo"
	}
	origins := strings.Join(c.CORSOrigins, ",")
	return fmt.Sprintf("listen=%s store=%s cache=%d token=%s cors=%s",
		c.Listen, c.Store.Type, c.Cache.Capacity, token, origins)
}

func gcpProjectFromEnv() string {
	for _, key := range []string{"GOOGLE_CLOUD_PROJECT", "GCLOUD_PROJECT", "GCP_PROJECT"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
