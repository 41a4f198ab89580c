package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by applyEnvOverrides.
const (
	EnvProxyBase = "PANDA_CORS_PROXY"
	EnvFactURL   = "PANDA_FACT_URL"
	EnvImageURL  = "PANDA_IMAGE_URL"
	EnvProtocol  = "PANDA_PROTOCOL"
	EnvTheme     = "PANDA_THEME"
)

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment. Variables that are already set are left alone. A missing file
// is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides checks environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := envTrim(EnvProxyBase); v != "" {
		cfg.Endpoints.ProxyBase = v
	}
	if v := envTrim(EnvFactURL); v != "" {
		cfg.Endpoints.FactURL = v
	}
	if v := envTrim(EnvImageURL); v != "" {
		cfg.Endpoints.ImageURL = v
	}
	if v := envTrim(EnvProtocol); v != "" {
		cfg.Image.Protocol = v
	}
	if v := envTrim(EnvTheme); v != "" {
		cfg.Theme.Name = v
	}
}

func envTrim(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}
