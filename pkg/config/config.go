// Package config loads client settings from defaults, a YAML file, and
// EMS_API_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/CliForge/emsapi/pkg/auth"
	"github.com/CliForge/emsapi/pkg/auth/types"
	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix prefixes every environment override.
const DefaultEnvPrefix = "EMS_API"

// DefaultTimeout is long on purpose: some EMS queries take minutes.
const DefaultTimeout = 10 * time.Minute

// Config holds every setting the client consumes.
type Config struct {
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Username string `yaml:"username,omitempty" mapstructure:"username"`
	Password string `yaml:"password,omitempty" mapstructure:"password"`

	Trusted TrustedConfig `yaml:"trusted,omitempty" mapstructure:"trusted"`

	// RequireCallContext rejects calls that do not carry a CallContext.
	RequireCallContext bool `yaml:"require_call_context" mapstructure:"require_call_context"`
	// ThrowOnAuthFailure returns token rejections to the caller in addition
	// to notifying callbacks. Nil means true; see ThrowsAuthFailures.
	ThrowOnAuthFailure *bool `yaml:"throw_on_auth_failure" mapstructure:"throw_on_auth_failure"`
	// ThrowOnAPIFailure returns API failures to the caller in addition to
	// notifying callbacks. Nil means true; see ThrowsAPIFailures.
	ThrowOnAPIFailure *bool `yaml:"throw_on_api_failure" mapstructure:"throw_on_api_failure"`
	// CoalesceTokenRequests collapses concurrent token requests for the
	// same identity into one.
	CoalesceTokenRequests bool `yaml:"coalesce_token_requests" mapstructure:"coalesce_token_requests"`

	UserAgent string            `yaml:"user_agent,omitempty" mapstructure:"user_agent"`
	Headers   map[string]string `yaml:"headers,omitempty" mapstructure:"headers"`
	Timeout   time.Duration     `yaml:"timeout" mapstructure:"timeout"`

	Retry   RetryConfig         `yaml:"retry" mapstructure:"retry"`
	Storage types.StorageConfig `yaml:"storage" mapstructure:"storage"`
	Log     LogConfig           `yaml:"log" mapstructure:"log"`
}

// TrustedConfig holds the trusted client and its default identity.
type TrustedConfig struct {
	ClientID     string `yaml:"client_id,omitempty" mapstructure:"client_id"`
	ClientSecret string `yaml:"client_secret,omitempty" mapstructure:"client_secret"`
	Name         string `yaml:"name,omitempty" mapstructure:"name"`
	Value        string `yaml:"value,omitempty" mapstructure:"value"`
}

// RetryConfig bounds retries of transient failures.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries"`
	WaitMin    time.Duration `yaml:"wait_min" mapstructure:"wait_min"`
	WaitMax    time.Duration `yaml:"wait_max" mapstructure:"wait_max"`
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	return &Config{
		ThrowOnAuthFailure: Bool(true),
		ThrowOnAPIFailure:  Bool(true),
		Headers:            map[string]string{},
		Timeout:            DefaultTimeout,
		Retry: RetryConfig{
			MaxRetries: 3,
			WaitMin:    500 * time.Millisecond,
			WaitMax:    5 * time.Second,
		},
		Storage: types.StorageConfig{Type: types.StorageTypeMemory},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}

// ThrowsAuthFailures reports whether token rejections are returned to the
// caller. An unset value throws.
func (c *Config) ThrowsAuthFailures() bool {
	return c.ThrowOnAuthFailure == nil || *c.ThrowOnAuthFailure
}

// ThrowsAPIFailures reports whether API failures are returned to the
// caller. An unset value throws.
func (c *Config) ThrowsAPIFailures() bool {
	return c.ThrowOnAPIFailure == nil || *c.ThrowOnAPIFailure
}

// Credentials returns the authentication settings.
func (c *Config) Credentials() auth.Credentials {
	return auth.Credentials{
		Username:         c.Username,
		Password:         c.Password,
		ClientID:         c.Trusted.ClientID,
		ClientSecret:     c.Trusted.ClientSecret,
		TrustedAuthName:  c.Trusted.Name,
		TrustedAuthValue: c.Trusted.Value,
	}
}

// ResolveEnv replaces "$NAME" credential values with the named environment
// variable. A reference to an unset variable is a configuration error.
func (c *Config) ResolveEnv() error {
	fields := []struct {
		name  string
		value *string
	}{
		{"username", &c.Username},
		{"password", &c.Password},
		{"trusted.client_id", &c.Trusted.ClientID},
		{"trusted.client_secret", &c.Trusted.ClientSecret},
		{"trusted.name", &c.Trusted.Name},
		{"trusted.value", &c.Trusted.Value},
	}

	for _, f := range fields {
		if !strings.HasPrefix(*f.value, "$") {
			continue
		}
		envName := strings.TrimPrefix(*f.value, "$")
		resolved, ok := os.LookupEnv(envName)
		if !ok || resolved == "" {
			return &auth.ConfigurationError{Field: f.name, Message: fmt.Sprintf("environment variable %s is not set", envName)}
		}
		*f.value = resolved
	}
	return nil
}

// Loader reads configuration from a YAML file and the environment.
type Loader struct {
	appName    string
	envPrefix  string
	configFile string

	flags        *pflag.FlagSet
	flagBindings map[string]string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithConfigFile forces a config file path.
func WithConfigFile(path string) LoaderOption {
	return func(l *Loader) {
		l.configFile = path
	}
}

// WithEnvPrefix changes the environment variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithFlags lets command-line flags override config keys. bindings maps a
// config key such as "log.format" to a flag name. Only flags the user set
// take effect.
func WithFlags(fs *pflag.FlagSet, bindings map[string]string) LoaderOption {
	return func(l *Loader) {
		l.flags = fs
		l.flagBindings = bindings
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(appName string, opts ...LoaderOption) *Loader {
	l := &Loader{
		appName:   appName,
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ConfigPath returns the file Load reads: the explicit path, then
// {PREFIX}_CONFIG, then the XDG config directory.
func (l *Loader) ConfigPath() string {
	if l.configFile != "" {
		return l.configFile
	}
	if custom := os.Getenv(l.envPrefix + "_CONFIG"); custom != "" {
		return custom
	}
	return filepath.Join(xdg.ConfigHome, l.appName, "config.yaml")
}

// Load merges defaults, the config file (if present) and environment
// overrides, resolves "$VAR" references and validates the result.
func (l *Loader) Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(l.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())
	if err := l.bindFlags(v); err != nil {
		return nil, err
	}

	path := l.ConfigPath()
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if l.configFile != "" {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}

	if err := cfg.ResolveEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML with owner-only permissions.
func (l *Loader) Save(cfg *Config, path string) error {
	if path == "" {
		path = l.ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Exists reports whether the config file is present.
func (l *Loader) Exists() bool {
	_, err := os.Stat(l.ConfigPath())
	return !errors.Is(err, os.ErrNotExist)
}

func (l *Loader) bindFlags(v *viper.Viper) error {
	if l.flags == nil {
		return nil
	}
	for key, name := range l.flagBindings {
		flag := l.flags.Lookup(name)
		if flag == nil {
			return fmt.Errorf("no flag %q to bind to %s", name, key)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %q: %w", name, err)
		}
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("endpoint", d.Endpoint)
	v.SetDefault("username", d.Username)
	v.SetDefault("password", d.Password)
	v.SetDefault("trusted.client_id", d.Trusted.ClientID)
	v.SetDefault("trusted.client_secret", d.Trusted.ClientSecret)
	v.SetDefault("trusted.name", d.Trusted.Name)
	v.SetDefault("trusted.value", d.Trusted.Value)
	v.SetDefault("require_call_context", d.RequireCallContext)
	v.SetDefault("throw_on_auth_failure", d.ThrowsAuthFailures())
	v.SetDefault("throw_on_api_failure", d.ThrowsAPIFailures())
	v.SetDefault("coalesce_token_requests", d.CoalesceTokenRequests)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("headers", d.Headers)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("retry.max_retries", d.Retry.MaxRetries)
	v.SetDefault("retry.wait_min", d.Retry.WaitMin)
	v.SetDefault("retry.wait_max", d.Retry.WaitMax)
	v.SetDefault("storage.type", string(d.Storage.Type))
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.keyring_service", d.Storage.KeyringService)
	v.SetDefault("storage.keyring_user", d.Storage.KeyringUser)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}
