// Package config handles TOML configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Environment variables consulted when the upstream origin or key is not
// given on the command line or in the config file.
const (
	EnvAPIURL = "LANGGRAPH_API_URL"
	EnvAPIKey = "LANGSMITH_API_KEY"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/api-passthrough/config.toml",
	"configs/config.toml",
}

// reservedRoutes are served by the passthrough itself; the metrics path must not shadow them.
var reservedRoutes = []string{"/api", "/healthz", "/proxy/status"}

// Runtimes accepted for passthrough.runtime.
var validRuntimes = map[string]bool{
	"edge":              true,
	"nodejs":            true,
	"experimental-edge": true,
}

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config            string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host              string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port              int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	APIURL            string `kong:"name='api-url',help='Upstream API origin (overrides config; falls back to $LANGGRAPH_API_URL).'"`
	APIKey            string `kong:"name='api-key',help='Credential injected as x-api-key (overrides config; falls back to $LANGSMITH_API_KEY).'"`
	BaseRoute         string `kong:"help='Mount prefix stripped from the path after /api/ (overrides config).'"`
	LogLevel          string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
	DisableWarningLog bool   `kong:"help='Suppress the start-up notice about credential passthrough.'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Upstream    UpstreamConfig    `toml:"upstream"`
	Passthrough PassthroughConfig `toml:"passthrough"`
	Hooks       HooksConfig       `toml:"hooks"`
	Log         LogConfig         `toml:"log"`
	Metrics     MetricsConfig     `toml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string          `toml:"host"`
	Port         int             `toml:"port"` // 0 means "use default" (8000); TOML cannot distinguish 0 from unset
	BodyMaxBytes int64           `toml:"body_max_bytes"`
	RateLimit    RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// UpstreamConfig holds the upstream origin, its credential and connection settings.
type UpstreamConfig struct {
	APIURL string `toml:"api_url"`
	APIKey string `toml:"api_key"`
	// TimeoutSeconds bounds a whole upstream exchange, body included. 0 disables it.
	TimeoutSeconds  int `toml:"timeout_seconds"`
	IdleConnections int `toml:"idle_connections"`
}

// PassthroughConfig holds the routing knobs of the forwarder.
type PassthroughConfig struct {
	BaseRoute         string   `toml:"base_route"`
	Runtime           string   `toml:"runtime"`
	DisableWarningLog bool     `toml:"disable_warning_log"`
	ForwardHeaders    []string `toml:"forward_headers"`
}

// HooksConfig holds the declarative header and body hooks.
type HooksConfig struct {
	Headers HeaderHookConfig `toml:"headers"`
	Body    BodyHookConfig   `toml:"body"`
}

// HeaderHookConfig lists headers added to every outbound request.
// Values are expanded with ${ENV} references once at start-up.
type HeaderHookConfig struct {
	Set map[string]string `toml:"set"`
}

// BodyHookConfig lists fields merged into JSON object bodies.
type BodyHookConfig struct {
	Set       map[string]any `toml:"set"`
	MergeFile string         `toml:"merge_file"`
}

// Enabled reports whether any body merge source is configured.
func (b BodyHookConfig) Enabled() bool {
	return len(b.Set) > 0 || b.MergeFile != ""
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the TOML config file, applies CLI overrides and resolves the
// environment fallbacks for the upstream origin and key.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/api-passthrough/config.toml then configs/config.toml; finding none is
// not an error, since everything can come from flags and the environment.
func Load(cli *CLI) (*Config, error) {
	return load(cli, os.Getenv)
}

func load(cli *CLI, getenv func(string) string) (*Config, error) {
	var cfg Config

	path := cli.Config
	if path == "" {
		path = findConfig()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.filePath = path
	}

	cfg.applyCLI(cli)
	cfg.applyEnv(getenv)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.APIURL != "" {
		c.Upstream.APIURL = cli.APIURL
	}
	if cli.APIKey != "" {
		c.Upstream.APIKey = cli.APIKey
	}
	if cli.BaseRoute != "" {
		c.Passthrough.BaseRoute = cli.BaseRoute
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
	if cli.DisableWarningLog {
		c.Passthrough.DisableWarningLog = true
	}
}

// applyEnv fills the upstream origin and key from the environment when
// neither the CLI nor the file provided them.
func (c *Config) applyEnv(getenv func(string) string) {
	if c.Upstream.APIURL == "" {
		c.Upstream.APIURL = strings.TrimSpace(getenv(EnvAPIURL))
	}
	if c.Upstream.APIKey == "" {
		c.Upstream.APIKey = strings.TrimSpace(getenv(EnvAPIKey))
	}
}

func (c *Config) validate() error {
	if c.Upstream.APIURL == "" {
		return fmt.Errorf("upstream.api_url is required: pass --api-url, set it in the config file, or set %s", EnvAPIURL)
	}
	u, err := url.Parse(c.Upstream.APIURL)
	if err != nil {
		return fmt.Errorf("upstream.api_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("upstream.api_url must use http or https; got %q", c.Upstream.APIURL)
	}
	if u.Host == "" {
		return fmt.Errorf("upstream.api_url must include a host; got %q", c.Upstream.APIURL)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("upstream.api_url must not carry a query or fragment; got %q", c.Upstream.APIURL)
	}

	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Upstream.TimeoutSeconds < 0 {
		return fmt.Errorf("upstream.timeout_seconds must be non-negative; got %d", c.Upstream.TimeoutSeconds)
	}
	if c.Upstream.IdleConnections < 0 {
		return fmt.Errorf("upstream.idle_connections must be non-negative; got %d", c.Upstream.IdleConnections)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond)
	}

	if rt := c.Passthrough.Runtime; rt != "" && !validRuntimes[rt] {
		return fmt.Errorf("passthrough.runtime must be one of: edge, nodejs, experimental-edge; got %q", rt)
	}
	for _, name := range c.Passthrough.ForwardHeaders {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("passthrough.forward_headers must not contain empty names")
		}
	}
	for name := range c.Hooks.Headers.Set {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("hooks.headers.set must not contain empty header names")
		}
	}

	// Log fields.
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text", "":
		// valid
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Metrics path validation (only when metrics are enabled).
	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		for _, reserved := range reservedRoutes {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
	}

	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields (Port, BodyMaxBytes, etc.), zero means "unset" because TOML
// cannot distinguish between an explicit 0 and an omitted key. Setting port=0 in
// the config file therefore results in the default port (8000).
// Upstream.TimeoutSeconds is the exception: 0 keeps streamed responses unbounded.
func (c *Config) setDefaults() {
	c.Upstream.APIURL = strings.TrimRight(c.Upstream.APIURL, "/")

	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 10 * 1024 * 1024 // 10 MB
	}
	if c.Upstream.IdleConnections == 0 {
		c.Upstream.IdleConnections = 100
	}
	if c.Passthrough.Runtime == "" {
		c.Passthrough.Runtime = "edge"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FilePath returns the config file Load read, or empty when none was used.
func (c *Config) FilePath() string {
	return c.filePath
}

// WarnPermissions logs a warning if the config file is readable by group or others.
// The file may hold the upstream credential.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}

const noticeMessage = "forwarding requests with an injected API key is no longer the recommended way to authenticate against LangGraph servers; " +
	"implement custom authentication in the deployment instead, or set passthrough.disable_warning_log to silence this notice"

// LogNotice emits the one-time start-up notice unless it has been disabled.
func (c *Config) LogNotice(logger *slog.Logger) {
	if c.Passthrough.DisableWarningLog {
		return
	}
	logger.Info(noticeMessage,
		"python_docs", "https://langchain-ai.github.io/langgraph/how-tos/auth/custom_auth/",
		"typescript_docs", "https://langchain-ai.github.io/langgraphjs/how-tos/auth/custom_auth/",
	)
}
