package config

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// identifierRegex restricts table names to plain SQL identifiers, optionally schema-qualified.
var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Load reads configuration from the environment, applies defaults and validates.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := populate(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// WithDatabaseURL returns a copy of c using url when it is non-empty.
// The command-line connection string takes precedence over the environment.
func (c Config) WithDatabaseURL(url string) *Config {
	if strings.TrimSpace(url) != "" {
		c.Database.URL = strings.TrimSpace(url)
	}
	return &c
}

// populate walks struct fields and fills them from their env tags.
func populate(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)

		if !fv.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := populate(fv); err != nil {
				return err
			}
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}

		value, ok := lookup(name, field.Tag.Get("envAlt"))
		if !ok {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", name)
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := assign(fv, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", name, value, err)
		}
	}

	return nil
}

// lookup returns the first non-empty value among the primary and alternate variables.
func lookup(primary, alt string) (string, bool) {
	if v := strings.TrimSpace(os.Getenv(primary)); v != "" {
		return v, true
	}
	if alt != "" {
		if v := strings.TrimSpace(os.Getenv(alt)); v != "" {
			return v, true
		}
	}
	return "", false
}

// assign parses value into field according to its kind.
func assign(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Database.URL) == "" {
		errs = append(errs, "DATABASE_URL must not be empty")
	}
	if c.Database.ConnectTimeout <= 0 {
		errs = append(errs, "DB_CONNECT_TIMEOUT must be positive")
	}

	if c.Import.BatchSize <= 0 {
		errs = append(errs, fmt.Sprintf("IMPORT_BATCH_SIZE (%d) must be positive", c.Import.BatchSize))
	}
	if !identifierRegex.MatchString(c.Import.Table) {
		errs = append(errs, fmt.Sprintf("IMPORT_TABLE (%q) must be a plain SQL identifier", c.Import.Table))
	}
	if c.Import.ErrorPreview < 0 {
		errs = append(errs, "IMPORT_ERROR_PREVIEW must be non-negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a log-safe summary. Credentials in the database URL are masked.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: {URL: %s, ConnectTimeout: %s}, Import: {BatchSize: %d, Table: %q, ErrorPreview: %d}, Logging: {Level: %q, Format: %q}}",
		MaskURL(c.Database.URL), c.Database.ConnectTimeout,
		c.Import.BatchSize, c.Import.Table, c.Import.ErrorPreview,
		c.Logging.Level, c.Logging.Format)
}

// credentialRegex matches the user:password@ section of a URL or DSN.
var credentialRegex = regexp.MustCompile(`([A-Za-z0-9+.-]+://)?[^/@:]*:[^@]*@`)

// MaskURL hides any user:password@ section of a connection string.
func MaskURL(url string) string {
	return credentialRegex.ReplaceAllStringFunc(url, func(m string) string {
		if i := strings.Index(m, "://"); i >= 0 {
			return m[:i+3] + "***@"
		}
		return "***@"
	})
}
