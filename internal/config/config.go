// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package config

import (
	"errors"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rolelink-dev/rolelink/internal/secrets"
	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

// EnvPrefix prefixes every environment override, e.g. ROLELINK_DISCORD_BOT_TOKEN.
const EnvPrefix = "ROLELINK"

// Config is the top-level rolelink configuration.
type Config struct {
	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`

	Discord    DiscordConfig    `mapstructure:"discord"`
	Networking NetworkingConfig `mapstructure:"networking"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Sync       SyncConfig       `mapstructure:"sync"`
}

// DiscordConfig holds the application credentials and REST endpoints.
type DiscordConfig struct {
	ClientID       string        `mapstructure:"client_id"`
	ClientSecret   string        `mapstructure:"client_secret"`
	BotToken       string        `mapstructure:"bot_token"`
	ApplicationID  string        `mapstructure:"application_id"`
	PlatformName   string        `mapstructure:"platform_name"`
	APIBaseURL     string        `mapstructure:"api_base_url"`
	AuthorizeURL   string        `mapstructure:"authorize_url"`
	TokenURL       string        `mapstructure:"token_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	WriteRPS       float64       `mapstructure:"write_rps"`
	WriteBurst     int           `mapstructure:"write_burst"`
}

// NetworkingConfig controls the OAuth front-end and JSON API listener.
type NetworkingConfig struct {
	Listen      string          `mapstructure:"listen"`
	BaseURL     string          `mapstructure:"base_url"`
	CORSOrigins []string        `mapstructure:"cors_origins"`
	APIToken    string          `mapstructure:"api_token"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig limits OAuth requests per client IP.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// StorageConfig selects the storage backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// SyncConfig controls membership event processing.
type SyncConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	NotifyUnlinked bool          `mapstructure:"notify_unlinked"`
}

// legacyEnv maps config keys to the unprefixed variable names older
// deployments set in their .env files.
var legacyEnv = map[string]string{
	"discord.client_id":      "CLIENT_ID",
	"discord.client_secret":  "CLIENT_SECRET",
	"discord.bot_token":      "BOT_TOKEN",
	"discord.application_id": "APP_ID",
	"networking.base_url":    "BASE_URL",
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("discord.platform_name", "Linked Roles App")
	v.SetDefault("discord.api_base_url", "https://discord.com/api/v10")
	v.SetDefault("discord.authorize_url", "https://discord.com/oauth2/authorize")
	v.SetDefault("discord.token_url", "https://discord.com/api/oauth2/token")
	v.SetDefault("discord.request_timeout", 10*time.Second)
	v.SetDefault("discord.write_rps", 5.0)
	v.SetDefault("discord.write_burst", 5)
	v.SetDefault("networking.listen", "127.0.0.1:3000")
	v.SetDefault("networking.rate_limit.requests_per_second", 2.0)
	v.SetDefault("networking.rate_limit.burst", 10)
	v.SetDefault("storage.backend", "file")
	v.SetDefault("sync.timeout", 15*time.Second)
	v.SetDefault("sync.notify_unlinked", true)
}

// BindEnv enables ROLELINK_ overrides and the legacy unprefixed names.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, envName(key), legacy); err != nil {
			return rlerr.Errorf(rlerr.CodeConfigLoadReadFailure, "binding env for %s: %w", key, err)
		}
	}
	return nil
}

// SearchPaths lists the directories searched for rolelink.yaml when no
// explicit path is given.
func SearchPaths() []string {
	paths := []string{"."}
	if dir, err := configDir(); err == nil {
		paths = append(paths, dir)
	}
	return append(paths, "/etc/rolelink")
}

// Load reads configuration from path, or from rolelink.yaml in
// SearchPaths when path is empty, applies environment overrides, resolves
// keyring:// references through store and validates the result. A missing
// file is not an error when searching. A nil store skips keyring resolution.
func Load(path string, store secrets.Store) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	if err := BindEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, rlerr.Errorf(rlerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("rolelink")
		v.SetConfigType("yaml")
		for _, dir := range SearchPaths() {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, rlerr.Errorf(rlerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
		}
	}

	warnPlaintextCredentials(v)

	cfg, err := decode(v, store)
	if err != nil {
		return nil, err
	}
	cfg.File = v.ConfigFileUsed()
	return cfg, nil
}

// warnPlaintextCredentials points at the keyring for credentials written
// literally into the config file. Environment values are not flagged.
func warnPlaintextCredentials(v *viper.Viper) {
	for _, c := range secrets.Credentials {
		if !v.InConfig(c.Key) {
			continue
		}
		if val := v.GetString(c.Key); val != "" && !secrets.IsKeyringURI(val) {
			slog.Warn("credential stored in plaintext config file",
				"key", c.Key,
				"path", v.ConfigFileUsed(),
				"hint", "rolelink secret set "+c.Key,
			)
		}
	}
}

func decode(v *viper.Viper, store secrets.Store) (*Config, error) {
	if store != nil {
		if err := secrets.ResolveViperSecrets(v, store); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, rlerr.Errorf(rlerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, rlerr.Errorf(rlerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Default store locations, relative to the working directory.
const (
	DefaultFileStorePath   = "storage.json"
	DefaultSQLiteStorePath = "rolelink.db"
)

// StoragePath is the configured store location, or the backend's default.
func (c *Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	if c.Storage.Backend == "sqlite" {
		return DefaultSQLiteStorePath
	}
	return DefaultFileStorePath
}

// SensitiveFile is a file whose contents grant access to Discord.
type SensitiveFile struct {
	Path string
	// Kind and Exposes name the file and what leaks with it.
	Kind    string
	Exposes string
}

// SensitiveFiles lists the config file that was read, if any, and the
// store holding every connected user's OAuth tokens.
func (c *Config) SensitiveFiles() []SensitiveFile {
	var files []SensitiveFile
	if c.File != "" {
		files = append(files, SensitiveFile{Path: c.File, Kind: "config", Exposes: "discord secrets"})
	}
	return append(files, SensitiveFile{Path: c.StoragePath(), Kind: "store", Exposes: "user oauth tokens"})
}

// RedirectURL is the OAuth callback registered with Discord.
func (c *Config) RedirectURL() string {
	return strings.TrimRight(c.Networking.BaseURL, "/") + "/callback"
}

// Validate checks the configuration for logical errors.
// It returns all validation errors found rather than stopping at the first.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateDiscord()...)
	errs = append(errs, c.validateNetworking()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateSync()...)

	return errs
}

func (c *Config) validateDiscord() []error {
	var errs []error

	required := []struct {
		key, value string
	}{
		{"discord.client_id", c.Discord.ClientID},
		{"discord.client_secret", c.Discord.ClientSecret},
		{"discord.bot_token", c.Discord.BotToken},
		{"discord.application_id", c.Discord.ApplicationID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, rlerr.Errorf(rlerr.CodeConfigValidateInvalidValue,
				"config: %s is required (env %s or %s)", r.key, envName(r.key), legacyEnv[r.key]))
		}
	}

	if c.Discord.PlatformName == "" {
		errs = append(errs, rlerr.Errorf(rlerr.CodeConfigValidateInvalidValue, "config: discord.platform_name must not be empty"))
	}

	for key, raw := range map[string]string{
		"discord.api_base_url":  c.Discord.APIBaseURL,
		"discord.authorize_url": c.Discord.AuthorizeURL,
		"discord.token_url":     c.Discord.TokenURL,
	} {
		if err := validateAbsoluteURL(raw); err != nil {
			errs = append(errs, rlerr.Errorf(rlerr.CodeConfigValidateInvalidValue, "config: %s: %w", key, err))
		}
	}

	if c.Discord.RequestTimeout <= 0 {
		errs = append(errs, rlerr.Errorf(rlerr.CodeConfigValidateInvalidValue,
			"config: discord.request_timeout must be greater than 0, got %s", c.Discord.RequestTimeout))
	}
	if c.Discord.WriteRPS < 0 {
		errs = append(errs, rlerr.Errorf(rlerr.CodeConfigValidateInvalidValue,
			"config: discord.write_rps must not be negative, got %g", c.Discord.WriteRPS))
	}
	if c.Discord.WriteRPS > 0 && c.Discord.WriteBurst <= 0 {
		errs = append(errs, rlerr.Errorf(rlerr.CodeConfigValidateInvalidValue,
			"config: discord.write_burst must be greater than 0 when write_rps is set, got %d", c.Discord.WriteBurst))
	}

	return errs
}

func (c *Config) validateNetworking() []error {
	var errs []error

	if c.Networking.BaseURL == "" {
		errs = append(errs, rlerr.Errorf(rlerr.CodeConfigValidateInvalidValue,
			"config: networking.base_url is required (env %s or %s)", envName("networking.base_url"), legacyEnv["networking.base_url"]))
	} else if err := validateAbsoluteURL(c.Networking.BaseURL); err != nil {
		errs = append(errs, rlerr.Errorf(rlerr.CodeConfigValidateInvalidValue, "config: networking.base_url: %w", err))
	}

	if c.Networking.Listen == "" {
		errs = append(errs, rlerr.Errorf(rlerr.CodeConfigValidateInvalidValue, "config: networking.listen must not be empty"))
	} else {
		_, portStr, err := net.SplitHostPort(c.Networking.Listen)
		if err != nil {
			errs = append(errs, rlerr.Errorf(rlerr.CodeConfigValidateInvalidValue,
				"config: networking.listen must be a valid host:port address, got %q: %w",
				c.Networking.Listen, err,
			))
		} else {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				errs = append(errs, rlerr.Errorf(rlerr.CodeConfigValidateInvalidValue,
					"config: networking.listen port must be a number, got %q", portStr))
			} else if port < 1 || port > 65535 {
				errs = append(errs, rlerr.Errorf(rlerr.CodeConfigValidateInvalidValue,
					"config: networking.listen port must be between 1 and 65535, got %d", port))
			}
		}
	}

	rl := c.Networking.RateLimit
	if rl.RequestsPerSecond < 0 {
		errs = append(errs, rlerr.Errorf(rlerr.CodeConfigValidateInvalidValue,
			"config: networking.rate_limit.requests_per_second must not be negative, got %g", rl.RequestsPerSecond))
	} else if rl.RequestsPerSecond > 0 && rl.Burst <= 0 {
		errs = append(errs, rlerr.Errorf(rlerr.CodeConfigValidateInvalidValue,
			"config: networking.rate_limit.burst must be greater than 0 when a rate is set, got %d", rl.Burst))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"file": true, "sqlite": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, rlerr.Errorf(rlerr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [file, sqlite], got %q",
			c.Storage.Backend,
		))
	}

	return errs
}

func (c *Config) validateSync() []error {
	if c.Sync.Timeout <= 0 {
		return []error{rlerr.Errorf(rlerr.CodeConfigValidateInvalidValue,
			"config: sync.timeout must be greater than 0, got %s", c.Sync.Timeout)}
	}
	return nil
}

func validateAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return rlerr.Errorf(rlerr.CodeConfigValidateInvalidValue, "%q is not an absolute http(s) url", raw)
	}
	return nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
