package config

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"github.com/martinsuchenak/nsotctl/internal/log"
)

var (
	ErrMissingURL         = errors.New("url is required")
	ErrInvalidAuthMethod  = errors.New("auth_method must be auth_token or auth_header")
	ErrMissingCredentials = errors.New("missing credentials")
)

const (
	AuthToken  = "auth_token"
	AuthHeader = "auth_header"

	DefaultAuthHeader = "X-NSoT-Email"
	DotfileName       = ".pynsotrc"
	dotfileSection    = "pynsot"
)

// Config holds the client configuration
type Config struct {
	URL           string
	AuthMethod    string
	Email         string
	SecretKey     string
	DefaultSite   string
	APIVersion    string
	DefaultDomain string
	AuthHeader    string
	DataDir       string
	ConfigFile    string // dotfile path, if one was read
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Command-line parameters (passed as opts)
// 2. Environment variables (NSOT_*)
// 3. Dotfile (opts.ConfigFile, else ~/.pynsotrc)
// 4. Default values
func Load(opts *Config) (*Config, error) {
	cfg := &Config{
		AuthMethod:    AuthToken,
		AuthHeader:    DefaultAuthHeader,
		DefaultDomain: "localhost",
		DataDir:       defaultDataDir(),
	}

	path := DefaultDotfilePath()
	if opts != nil && opts.ConfigFile != "" {
		path = opts.ConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := loadFromDotfile(cfg, path); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		cfg.ConfigFile = path
		checkPermissions(path)
	} else if opts != nil && opts.ConfigFile != "" {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	cfg.URL = coalesce(os.Getenv("NSOT_URL"), cfg.URL)
	cfg.AuthMethod = coalesce(os.Getenv("NSOT_AUTH_METHOD"), cfg.AuthMethod)
	cfg.Email = coalesce(os.Getenv("NSOT_EMAIL"), cfg.Email)
	cfg.SecretKey = coalesce(os.Getenv("NSOT_SECRET_KEY"), cfg.SecretKey)
	cfg.DefaultSite = coalesce(os.Getenv("NSOT_DEFAULT_SITE"), cfg.DefaultSite)
	cfg.APIVersion = coalesce(os.Getenv("NSOT_API_VERSION"), cfg.APIVersion)
	cfg.DefaultDomain = coalesce(os.Getenv("NSOT_DEFAULT_DOMAIN"), cfg.DefaultDomain)
	cfg.AuthHeader = coalesce(os.Getenv("NSOT_AUTH_HEADER"), cfg.AuthHeader)
	cfg.DataDir = coalesce(os.Getenv("NSOT_DATA_DIR"), cfg.DataDir)

	if opts != nil {
		cfg.URL = coalesce(opts.URL, cfg.URL)
		cfg.AuthMethod = coalesce(opts.AuthMethod, cfg.AuthMethod)
		cfg.Email = coalesce(opts.Email, cfg.Email)
		cfg.SecretKey = coalesce(opts.SecretKey, cfg.SecretKey)
		cfg.DefaultSite = coalesce(opts.DefaultSite, cfg.DefaultSite)
		cfg.APIVersion = coalesce(opts.APIVersion, cfg.APIVersion)
		cfg.DefaultDomain = coalesce(opts.DefaultDomain, cfg.DefaultDomain)
		cfg.AuthHeader = coalesce(opts.AuthHeader, cfg.AuthHeader)
		cfg.DataDir = coalesce(opts.DataDir, cfg.DataDir)
	}

	return cfg, nil
}

// Validate checks the fields the chosen auth method needs.
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrMissingURL
	}
	switch c.AuthMethod {
	case AuthToken:
		if c.Email == "" || c.SecretKey == "" {
			return fmt.Errorf("%w: auth_token needs email and secret_key", ErrMissingCredentials)
		}
	case AuthHeader:
		if c.AuthHeader == "" {
			return fmt.Errorf("%w: auth_header needs a header name", ErrMissingCredentials)
		}
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidAuthMethod, c.AuthMethod)
	}
	if c.DefaultSite != "" {
		if _, err := strconv.Atoi(c.DefaultSite); err != nil {
			return fmt.Errorf("default_site must be a numeric site ID, got %q", c.DefaultSite)
		}
	}
	return nil
}

// Site returns the default site ID, or zero when unset.
func (c *Config) Site() int {
	n, _ := strconv.Atoi(c.DefaultSite)
	return n
}

// HeaderEmail is the identity sent with auth_header: the configured email,
// or the current user at the default domain.
func (c *Config) HeaderEmail() string {
	if c.Email != "" {
		return c.Email
	}
	name := os.Getenv("USER")
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = u.Username
	}
	return name + "@" + c.DefaultDomain
}

// String returns a string representation of the config source
func (c *Config) String() string {
	if c.ConfigFile != "" {
		return fmt.Sprintf("dotfile (%s)", c.ConfigFile)
	}
	return "environment variables"
}

// DefaultDotfilePath returns ~/.pynsotrc.
func DefaultDotfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DotfileName
	}
	return filepath.Join(home, DotfileName)
}

func defaultDataDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(dir, "nsotctl")
}

func checkPermissions(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Mode().Perm()&0o077 != 0 {
		log.Warn("Dotfile is readable by other users, expected mode 0600", "path", path, "mode", fmt.Sprintf("%#o", info.Mode().Perm()))
	}
}

// coalesce returns the first non-empty string value
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
