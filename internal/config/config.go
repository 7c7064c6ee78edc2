package config

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/sitesmith/internal/billing"
	"github.com/dshills/sitesmith/internal/config/loader"
	"github.com/dshills/sitesmith/internal/input/keymap"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SITESMITH_"

// Duration is a time.Duration written as a string ("10s", "24h").
type Duration time.Duration

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the complete application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server" envPrefix:"SERVER_"`
	Logging  LoggingConfig  `toml:"logging" envPrefix:"LOG_"`
	Database DatabaseConfig `toml:"database" envPrefix:"DATABASE_"`
	Storage  StorageConfig  `toml:"storage" envPrefix:"STORAGE_"`
	Auth     AuthConfig     `toml:"auth" envPrefix:"AUTH_"`
	AI       AIConfig       `toml:"ai" envPrefix:"AI_"`
	History  HistoryConfig  `toml:"history" envPrefix:"HISTORY_"`
	Sharing  SharingConfig  `toml:"sharing" envPrefix:"SHARING_"`
	Billing  BillingConfig  `toml:"billing" envPrefix:"BILLING_"`
	Keymap   KeymapConfig   `toml:"keymap"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string   `toml:"addr" env:"ADDR"`
	PublicURL       string   `toml:"public_url" env:"PUBLIC_URL"`
	ReadTimeout     Duration `toml:"read_timeout" env:"READ_TIMEOUT"`
	ShutdownTimeout Duration `toml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `toml:"level" env:"LEVEL"`
	Format string `toml:"format" env:"FORMAT"`
}

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DatabaseConfig selects the relational store.
type DatabaseConfig struct {
	Driver   string `toml:"driver" env:"DRIVER"`
	DSN      string `toml:"dsn" env:"DSN"`
	MaxConns int32  `toml:"max_conns" env:"MAX_CONNS"`
}

// StorageConfig configures the object store.
type StorageConfig struct {
	Root           string `toml:"root" env:"ROOT"`
	PublicBaseURL  string `toml:"public_base_url" env:"PUBLIC_BASE_URL"`
	MaxUploadBytes int64  `toml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
}

// AuthConfig configures session token verification.
type AuthConfig struct {
	Secret   string   `toml:"secret" env:"SECRET"`
	Issuer   string   `toml:"issuer" env:"ISSUER"`
	Audience string   `toml:"audience" env:"AUDIENCE"`
	TokenTTL Duration `toml:"token_ttl" env:"TOKEN_TTL"`
	Cookie   string   `toml:"cookie" env:"COOKIE"`
}

// AIConfig configures the reconstruction pipeline.
type AIConfig struct {
	APIKey         string   `toml:"api_key" env:"API_KEY"`
	BriefModel     string   `toml:"brief_model" env:"BRIEF_MODEL"`
	DesignModel    string   `toml:"design_model" env:"DESIGN_MODEL"`
	BlueprintModel string   `toml:"blueprint_model" env:"BLUEPRINT_MODEL"`
	FetchTimeout   Duration `toml:"fetch_timeout" env:"FETCH_TIMEOUT"`
	MaxPageBytes   int64    `toml:"max_page_bytes" env:"MAX_PAGE_BYTES"`
}

// HistoryConfig bounds workspace undo history.
type HistoryConfig struct {
	MaxEntries  int      `toml:"max_entries" env:"MAX_ENTRIES"`
	SaveTimeout Duration `toml:"save_timeout" env:"SAVE_TIMEOUT"`
}

// SharingConfig sets lifetimes for share links and invitations.
type SharingConfig struct {
	LinkTTL       Duration `toml:"link_ttl" env:"LINK_TTL"`
	InvitationTTL Duration `toml:"invitation_ttl" env:"INVITATION_TTL"`
}

// BillingConfig lists the credit packs for sale.
type BillingConfig struct {
	Locale string         `toml:"locale" env:"LOCALE"`
	Packs  []billing.Pack `toml:"packs"`
}

// KeymapConfig holds user shortcut overrides. Bindings from File come
// first; inline Bindings follow and win on conflicts.
type KeymapConfig struct {
	File     string           `toml:"file"`
	Bindings []keymap.Binding `toml:"bindings"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			PublicURL:       "http://localhost:8080",
			ReadTimeout:     Duration(15 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			Driver:   DriverSQLite,
			DSN:      "sitesmith.db",
			MaxConns: 10,
		},
		Storage: StorageConfig{
			Root:           "data/objects",
			PublicBaseURL:  "http://localhost:8080/objects",
			MaxUploadBytes: 10 << 20,
		},
		Auth: AuthConfig{
			Issuer:   "sitesmith",
			Audience: "sitesmith",
			TokenTTL: Duration(24 * time.Hour),
			Cookie:   "sb-access-token",
		},
		AI: AIConfig{
			BriefModel:     "gemini-2.5-flash",
			DesignModel:    "gemini-2.5-flash",
			BlueprintModel: "gemini-2.5-pro",
			FetchTimeout:   Duration(15 * time.Second),
			MaxPageBytes:   2 << 20,
		},
		History: HistoryConfig{
			MaxEntries:  200,
			SaveTimeout: Duration(10 * time.Second),
		},
		Sharing: SharingConfig{
			LinkTTL:       Duration(7 * 24 * time.Hour),
			InvitationTTL: Duration(3 * 24 * time.Hour),
		},
		Billing: BillingConfig{
			Locale: "en-US",
		},
	}
}

// loadOptions configures Load.
type loadOptions struct {
	fs      loader.FileSystem
	environ map[string]string
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithFS reads configuration files from fsys.
func WithFS(fsys loader.FileSystem) LoadOption {
	return func(o *loadOptions) {
		o.fs = fsys
	}
}

// WithEnviron replaces the process environment for overrides.
func WithEnviron(environ map[string]string) LoadOption {
	return func(o *loadOptions) {
		o.environ = environ
	}
}

// Load builds a validated configuration from defaults, the TOML file at
// path (skipped when empty or missing) and the environment.
func Load(path string, opts ...LoadOption) (*Config, error) {
	o := loadOptions{fs: loader.DefaultFS()}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := Default()
	if path != "" {
		raw, err := loader.NewTOMLLoaderWithFS(o.fs).Load(path)
		if err != nil {
			return nil, err
		}
		if raw != nil {
			if err := decode(raw, cfg); err != nil {
				return nil, fmt.Errorf("decoding %s: %w", path, err)
			}
		}
	}

	envOpts := env.Options{Prefix: EnvPrefix}
	if o.environ != nil {
		envOpts.Environment = o.environ
	}
	if err := env.ParseWithOptions(cfg, envOpts); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if len(cfg.Billing.Packs) == 0 {
		cfg.Billing.Packs = billing.DefaultPacks()
	}
	if cfg.Keymap.File != "" && path != "" && !filepath.IsAbs(cfg.Keymap.File) {
		cfg.Keymap.File = filepath.Join(filepath.Dir(path), cfg.Keymap.File)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode re-encodes the merged map and decodes it strictly over cfg.
func decode(raw map[string]any, cfg *Config) error {
	data, err := toml.Marshal(raw)
	if err != nil {
		return err
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	err = dec.Decode(cfg)

	var sme *toml.StrictMissingError
	if errors.As(err, &sme) {
		keys := make([]string, 0, len(sme.Errors))
		for _, e := range sme.Errors {
			keys = append(keys, strings.Join(e.Key(), "."))
		}
		return fmt.Errorf("unknown settings: %s", strings.Join(keys, ", "))
	}
	return err
}

// ValidationError describes one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks every section and returns all problems joined.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Server.Addr == "" {
		invalid("server.addr", "required")
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Logging.Level)) {
		invalid("logging.level", "unknown level %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		invalid("logging.format", "must be json or console, got %q", c.Logging.Format)
	}
	if c.Database.Driver != DriverSQLite && c.Database.Driver != DriverPostgres {
		invalid("database.driver", "must be %s or %s, got %q", DriverSQLite, DriverPostgres, c.Database.Driver)
	}
	if c.Database.DSN == "" {
		invalid("database.dsn", "required")
	}
	if c.Storage.Root == "" {
		invalid("storage.root", "required")
	}
	if c.Storage.MaxUploadBytes <= 0 {
		invalid("storage.max_upload_bytes", "must be positive")
	}
	if c.Auth.Secret != "" && len(c.Auth.Secret) < 16 {
		invalid("auth.secret", "must be at least 16 bytes")
	}
	if c.Auth.TokenTTL <= 0 {
		invalid("auth.token_ttl", "must be positive")
	}
	if c.History.MaxEntries < 0 {
		invalid("history.max_entries", "must not be negative")
	}
	if c.Sharing.LinkTTL <= 0 || c.Sharing.InvitationTTL <= 0 {
		invalid("sharing", "lifetimes must be positive")
	}
	if _, err := billing.NewCatalog(c.Billing.Packs); err != nil {
		invalid("billing.packs", "%v", err)
	}
	if len(c.Keymap.Bindings) > 0 {
		km := keymap.NewKeymap(keymap.UserKeymapName)
		km.Bindings = c.Keymap.Bindings
		if err := km.Validate(); err != nil {
			invalid("keymap.bindings", "%v", err)
		}
	}

	return errors.Join(errs...)
}

// UserBindings returns the keymap file's bindings followed by the inline ones.
func (c *Config) UserBindings() ([]keymap.Binding, error) {
	var bindings []keymap.Binding
	if c.Keymap.File != "" {
		km, err := keymap.LoadFile(c.Keymap.File)
		if err != nil {
			return nil, fmt.Errorf("keymap file %s: %w", c.Keymap.File, err)
		}
		bindings = append(bindings, km.Bindings...)
	}
	return append(bindings, c.Keymap.Bindings...), nil
}
