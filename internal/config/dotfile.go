package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// loadFromDotfile reads the [pynsot] section of an ini-style dotfile.
func loadFromDotfile(cfg *Config, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	section := ""
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSpace(line[1 : len(line)-1])
			continue
		}
		if section != dotfileSection {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			key, value, ok = strings.Cut(line, ":")
		}
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "\"")

		switch key {
		case "url":
			cfg.URL = value
		case "auth_method":
			cfg.AuthMethod = value
		case "email":
			cfg.Email = value
		case "secret_key":
			cfg.SecretKey = value
		case "default_site":
			cfg.DefaultSite = value
		case "api_version":
			cfg.APIVersion = value
		case "default_domain":
			cfg.DefaultDomain = value
		case "auth_header":
			cfg.AuthHeader = value
		case "data_dir":
			cfg.DataDir = value
		}
	}

	return scanner.Err()
}

// WriteDotfile writes cfg to path with mode 0600. Empty fields are omitted.
func WriteDotfile(cfg *Config, path string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]\n", dotfileSection)
	write := func(key, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s = %s\n", key, value)
		}
	}
	write("url", cfg.URL)
	write("auth_method", cfg.AuthMethod)
	write("email", cfg.Email)
	if cfg.AuthMethod == AuthToken {
		write("secret_key", cfg.SecretKey)
	}
	if cfg.AuthMethod == AuthHeader {
		write("auth_header", cfg.AuthHeader)
		write("default_domain", cfg.DefaultDomain)
	}
	write("default_site", cfg.DefaultSite)
	write("api_version", cfg.APIVersion)

	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return err
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(path, 0o600)
}
