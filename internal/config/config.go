package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultLogLevel          = "info"
	defaultLogFormat         = "line"
	defaultHTTPListen        = "0.0.0.0:9555"
	defaultHTTPPath          = "/metrics"
	defaultScrapeTimeout     = 10 * time.Second
	defaultSmartThingsURL    = "https://api.smartthings.com/v1"
	defaultSmartThingsTO     = 8 * time.Second
	defaultComponent         = "main"
	defaultDeviceName        = "Samsung Room A/C"
	defaultCatalogPath       = "device_metrics.json"
	defaultMetricPrefix      = "smartthings_ac_"
	defaultGRPCHealthListen  = "127.0.0.1:9556"
	defaultPprofListen       = "127.0.0.1:6060"
	maxScrapeTimeout         = 5 * time.Minute
	tokenEnvironmentVariable = "SMARTTHINGS_TOKEN"
)

// Duration wraps time.Duration for TOML parsing.
// Params: text duration string (e.g. "5s", "1m").
// Returns: parse error on invalid duration.
type Duration struct {
	time.Duration
}

// UnmarshalText parses TOML duration values.
// Params: text is raw duration bytes from TOML.
// Returns: error when value is not a valid Go duration.
func (d *Duration) UnmarshalText(text []byte) error {
	value := strings.TrimSpace(string(text))
	if value == "" {
		d.Duration = 0
		return nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value, err)
	}

	d.Duration = parsed
	return nil
}

// Config represents the root exporter configuration.
// Params: TOML document sections.
// Returns: validated runtime configuration.
type Config struct {
	Log         LogConfig         `toml:"log"`
	HTTP        HTTPConfig        `toml:"http"`
	SmartThings SmartThingsConfig `toml:"smartthings"`
	Catalog     CatalogConfig     `toml:"catalog"`
	SelfMetrics SelfMetricsConfig `toml:"self_metrics"`
	GRPCHealth  GRPCHealthConfig  `toml:"grpc_health"`
	Pprof       PprofConfig       `toml:"pprof"`
}

// LogConfig contains console/file logging configuration.
// Params: console and file sink options.
// Returns: logger sink settings.
type LogConfig struct {
	Console LogSinkConfig `toml:"console"`
	File    LogSinkConfig `toml:"file"`
}

// LogSinkConfig defines one logging sink.
// Params: sink options from TOML.
// Returns: sink setup.
type LogSinkConfig struct {
	Enabled bool   `toml:"enabled"`
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	Path    string `toml:"path"`
}

// HTTPConfig describes the scrape endpoint.
// Params: listen host:port, metrics path and per-scrape deadline.
// Returns: HTTP server settings.
type HTTPConfig struct {
	Listen        string   `toml:"listen"`
	Path          string   `toml:"path"`
	ScrapeTimeout Duration `toml:"scrape_timeout"`
}

// SmartThingsConfig describes the upstream API and the exported device.
type SmartThingsConfig struct {
	Token     string       `toml:"token"`
	BaseURL   string       `toml:"base_url"`
	Timeout   Duration     `toml:"timeout"`
	Component string       `toml:"component"`
	Refresh   bool         `toml:"refresh"`
	Device    DeviceConfig `toml:"device"`
}

// DeviceConfig holds '*' wildcard patterns; empty patterns match any device.
type DeviceConfig struct {
	ID    string `toml:"id"`
	Name  string `toml:"name"`
	Label string `toml:"label"`
}

// CatalogConfig points at the metric whitelist.
type CatalogConfig struct {
	Path   string `toml:"path"`
	Prefix string `toml:"prefix"`
}

// SelfMetricsConfig toggles exporter runtime metrics.
type SelfMetricsConfig struct {
	Enabled *bool `toml:"enabled"`
}

// GRPCHealthConfig defines the optional grpc.health.v1 endpoint.
type GRPCHealthConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// PprofConfig defines optional runtime pprof HTTP endpoint.
// Params: enabled flag and listen address in host:port format.
// Returns: pprof runtime settings.
type PprofConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// Overrides carries command-line values that win over the file.
// Params: empty fields leave the file value untouched.
// Returns: override set for Load.
type Overrides struct {
	Listen  string
	Token   string
	Catalog string
}

// Load reads, overrides, defaults and validates configuration for serving.
// Params: path to TOML config file or directory with *.toml files (empty means defaults only);
// overrides from command-line flags.
// Returns: validated config pointer or error; a missing SmartThings token is an error.
func Load(path string, overrides Overrides) (*Config, error) {
	cfg, err := Parse(path, overrides)
	if err != nil {
		return nil, err
	}
	if cfg.SmartThings.Token == "" {
		return nil, fmt.Errorf("smartthings.token is required (or set %s, or pass --token)", tokenEnvironmentVariable)
	}
	return cfg, nil
}

// Parse reads, overrides, defaults and validates configuration without requiring credentials.
// Params: path to TOML config file or directory (empty means defaults only); overrides from flags.
// Returns: validated config pointer or error.
func Parse(path string, overrides Overrides) (*Config, error) {
	var cfg Config

	if strings.TrimSpace(path) != "" {
		raw, err := readConfigSource(path)
		if err != nil {
			return nil, err
		}

		expanded := os.ExpandEnv(string(raw))
		if err := toml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("decode TOML %q: %w", path, err)
		}
	}

	cfg.applyOverrides(overrides)
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// readConfigSource reads one TOML file or concatenates *.toml files from directory.
// Params: path to config file or directory.
// Returns: raw TOML bytes or error.
func readConfigSource(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config %q: %w", path, err)
	}

	if !info.IsDir() {
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, fmt.Errorf("read config %q: %w", path, readErr)
		}
		return raw, nil
	}

	return readConfigDir(path)
}

// readConfigDir concatenates config snippets from one directory.
// Params: path to directory that contains *.toml files.
// Returns: concatenated TOML content or error.
func readConfigDir(path string) ([]byte, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read config dir %q: %w", path, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".toml") {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("read config dir %q: no *.toml files", path)
	}

	var builder strings.Builder
	for _, name := range files {
		filePath := filepath.Join(path, name)
		raw, readErr := os.ReadFile(filePath)
		if readErr != nil {
			return nil, fmt.Errorf("read config %q: %w", filePath, readErr)
		}
		builder.Write(raw)
		if len(raw) == 0 || raw[len(raw)-1] != '\n' {
			builder.WriteByte('\n')
		}
		builder.WriteByte('\n')
	}

	return []byte(builder.String()), nil
}

func (c *Config) applyOverrides(o Overrides) {
	if v := strings.TrimSpace(o.Listen); v != "" {
		c.HTTP.Listen = v
	}
	if v := strings.TrimSpace(o.Token); v != "" {
		c.SmartThings.Token = v
	}
	if v := strings.TrimSpace(o.Catalog); v != "" {
		c.Catalog.Path = v
	}
}

// applyDefaults fills defaults for optional configuration fields.
// Params: receiver config pointer.
// Returns: none.
func (c *Config) applyDefaults() {
	c.Log.Console.Level = lowerOrDefault(c.Log.Console.Level, defaultLogLevel)
	c.Log.Console.Format = lowerOrDefault(c.Log.Console.Format, defaultLogFormat)
	c.Log.File.Level = lowerOrDefault(c.Log.File.Level, defaultLogLevel)
	c.Log.File.Format = lowerOrDefault(c.Log.File.Format, "json")

	if !c.Log.Console.Enabled && !c.Log.File.Enabled {
		c.Log.Console.Enabled = true
	}

	c.HTTP.Listen = trimOrDefault(c.HTTP.Listen, defaultHTTPListen)
	c.HTTP.Path = trimOrDefault(c.HTTP.Path, defaultHTTPPath)
	if c.HTTP.ScrapeTimeout.Duration == 0 {
		c.HTTP.ScrapeTimeout.Duration = defaultScrapeTimeout
	}

	c.SmartThings.Token = strings.TrimSpace(c.SmartThings.Token)
	if c.SmartThings.Token == "" {
		c.SmartThings.Token = strings.TrimSpace(os.Getenv(tokenEnvironmentVariable))
	}
	c.SmartThings.BaseURL = strings.TrimRight(trimOrDefault(c.SmartThings.BaseURL, defaultSmartThingsURL), "/")
	if c.SmartThings.Timeout.Duration == 0 {
		c.SmartThings.Timeout.Duration = defaultSmartThingsTO
	}
	c.SmartThings.Component = trimOrDefault(c.SmartThings.Component, defaultComponent)
	if c.SmartThings.Device == (DeviceConfig{}) {
		c.SmartThings.Device.Name = defaultDeviceName
	}

	c.Catalog.Path = trimOrDefault(c.Catalog.Path, defaultCatalogPath)
	c.Catalog.Prefix = trimOrDefault(c.Catalog.Prefix, defaultMetricPrefix)

	if c.SelfMetrics.Enabled == nil {
		c.SelfMetrics.Enabled = boolPtr(true)
	}

	c.GRPCHealth.Listen = trimOrDefault(c.GRPCHealth.Listen, defaultGRPCHealthListen)
	c.Pprof.Listen = trimOrDefault(c.Pprof.Listen, defaultPprofListen)
}

// validate checks required fields and value constraints.
// Params: receiver config pointer.
// Returns: validation error for invalid or incomplete config.
func (c *Config) validate() error {
	if err := validateSink("log.console", c.Log.Console, false); err != nil {
		return err
	}
	if err := validateSink("log.file", c.Log.File, true); err != nil {
		return err
	}
	if err := validateHTTPConfig("http", c.HTTP); err != nil {
		return err
	}
	if err := validateSmartThingsConfig("smartthings", c.SmartThings); err != nil {
		return err
	}
	if err := validateMetricPrefix("catalog.prefix", c.Catalog.Prefix); err != nil {
		return err
	}
	if err := validateListener("grpc_health", c.GRPCHealth.Enabled, c.GRPCHealth.Listen); err != nil {
		return err
	}
	if err := validateListener("pprof", c.Pprof.Enabled, c.Pprof.Listen); err != nil {
		return err
	}

	return nil
}

// validateSink validates one logging sink configuration.
// Params: name is sink path for errors; sink is sink config; requirePath means path required when enabled.
// Returns: validation error or nil.
func validateSink(name string, sink LogSinkConfig, requirePath bool) error {
	if sink.Enabled && requirePath && strings.TrimSpace(sink.Path) == "" {
		return fmt.Errorf("%s.path is required when sink is enabled", name)
	}

	if err := validateLogLevel(sink.Level); err != nil {
		return fmt.Errorf("%s.level: %w", name, err)
	}
	if err := validateLogFormat(sink.Format); err != nil {
		return fmt.Errorf("%s.format: %w", name, err)
	}

	return nil
}

// validateLogLevel validates known log levels.
// Params: level is lower-case level name.
// Returns: error when level is unsupported.
func validateLogLevel(level string) error {
	switch strings.TrimSpace(strings.ToLower(level)) {
	case "info", "warn", "error", "panic", "debug":
		return nil
	default:
		return fmt.Errorf("unsupported value %q", level)
	}
}

// validateLogFormat validates supported sink formats.
// Params: format is lower-case format name.
// Returns: error when format is unsupported.
func validateLogFormat(format string) error {
	switch strings.TrimSpace(strings.ToLower(format)) {
	case "line", "json":
		return nil
	default:
		return fmt.Errorf("unsupported value %q", format)
	}
}

func validateHTTPConfig(path string, cfg HTTPConfig) error {
	if _, _, err := net.SplitHostPort(cfg.Listen); err != nil {
		return fmt.Errorf("%s.listen must be host:port: %w", path, err)
	}
	if !strings.HasPrefix(cfg.Path, "/") {
		return fmt.Errorf("%s.path must start with '/'", path)
	}
	if cfg.Path == "/" || cfg.Path == "/healthz" {
		return fmt.Errorf("%s.path %q collides with a built-in route", path, cfg.Path)
	}
	if cfg.ScrapeTimeout.Duration < 0 || cfg.ScrapeTimeout.Duration > maxScrapeTimeout {
		return fmt.Errorf("%s.scrape_timeout must be within (0, %s]", path, maxScrapeTimeout)
	}
	return nil
}

func validateSmartThingsConfig(path string, cfg SmartThingsConfig) error {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("%s.base_url: %w", path, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s.base_url must use http or https", path)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s.base_url must include a host", path)
	}
	if cfg.Timeout.Duration < 0 {
		return fmt.Errorf("%s.timeout must be >= 0", path)
	}
	return nil
}

// validateMetricPrefix checks the prefix keeps sample names within the Prometheus charset.
// Params: path is config key for errors; prefix is the configured value.
// Returns: validation error or nil.
func validateMetricPrefix(path string, prefix string) error {
	for i, r := range prefix {
		switch {
		case r == '_' || r == ':':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return fmt.Errorf("%s %q contains invalid character %q", path, prefix, r)
		}
	}
	return nil
}

// validateListener validates an optional host:port endpoint.
// Params: path is config path prefix; enabled toggles the check; listen is the endpoint.
// Returns: validation error for invalid listen endpoint.
func validateListener(path string, enabled bool, listen string) error {
	if !enabled {
		return nil
	}
	if strings.TrimSpace(listen) == "" {
		return fmt.Errorf("%s.listen cannot be empty when enabled", path)
	}
	if _, _, err := net.SplitHostPort(listen); err != nil {
		return fmt.Errorf("%s.listen must be host:port: %w", path, err)
	}
	return nil
}

// lowerOrDefault returns a trimmed lower-case value or default fallback.
// Params: value to normalize; fallback value when empty.
// Returns: normalized value.
func lowerOrDefault(value, fallback string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return fallback
	}
	return normalized
}

func trimOrDefault(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}

func boolPtr(value bool) *bool {
	copied := value
	return &copied
}
