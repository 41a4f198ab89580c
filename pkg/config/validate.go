package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var validProtocols = map[string]bool{
	"auto": true, "halfblocks": true, "kitty": true,
	"iterm2": true, "sixel": true, "none": true,
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Validate reports every problem in cfg at once. A missing endpoint is named
// by both its TOML key and its environment variable so the operator can fix
// whichever source they use.
func (c *Config) Validate() error {
	var errs []error

	endpoints := []struct {
		key, env, value string
	}{
		{"endpoints.proxy_base", EnvProxyBase, c.Endpoints.ProxyBase},
		{"endpoints.fact_url", EnvFactURL, c.Endpoints.FactURL},
		{"endpoints.image_url", EnvImageURL, c.Endpoints.ImageURL},
	}
	for _, e := range endpoints {
		if strings.TrimSpace(e.value) == "" {
			errs = append(errs, fmt.Errorf("%s is not set (set it in config.toml or %s)", e.key, e.env))
			continue
		}
		if _, err := url.Parse(e.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.key, err))
		}
	}

	if c.Endpoints.ProxyBase != "" {
		if u, err := url.Parse(c.Endpoints.ProxyBase); err == nil && (u.Scheme == "" || u.Host == "") {
			errs = append(errs, fmt.Errorf("endpoints.proxy_base %q must be an absolute URL", c.Endpoints.ProxyBase))
		}
	}

	if !validProtocols[strings.ToLower(c.Image.Protocol)] {
		errs = append(errs, fmt.Errorf("image.protocol %q is not one of auto, halfblocks, kitty, iterm2, sixel, none", c.Image.Protocol))
	}
	if c.Image.Rows < 0 {
		errs = append(errs, fmt.Errorf("image.rows must not be negative, got %d", c.Image.Rows))
	}
	if !validLogLevels[strings.ToLower(c.General.LogLevel)] {
		errs = append(errs, fmt.Errorf("general.log_level %q is not one of debug, info, warn, error", c.General.LogLevel))
	}

	return errors.Join(errs...)
}
