// Package config provides TOML-based configuration for random-panda.
package config

// Config is the root configuration document.
type Config struct {
	General   GeneralConfig   `toml:"general"`
	Endpoints EndpointsConfig `toml:"endpoints"`
	Fetch     FetchConfig     `toml:"fetch"`
	Image     ImageConfig     `toml:"image"`
	Theme     ThemeConfig     `toml:"theme"`
}

// GeneralConfig holds process-wide settings.
type GeneralConfig struct {
	// LogLevel is "debug", "info", "warn" or "error".
	LogLevel string `toml:"log_level"`

	// LogFile receives every log record. In TUI mode it is the only sink.
	LogFile string `toml:"log_file"`

	// StateDir holds pid files written by the supervisor.
	StateDir string `toml:"state_dir"`
}

// EndpointsConfig names the three addresses every outbound call is built
// from: <ProxyBase>/<FactURL> and <ProxyBase>/<ImageURL>.
type EndpointsConfig struct {
	ProxyBase string `toml:"proxy_base"`
	FactURL   string `toml:"fact_url"`
	ImageURL  string `toml:"image_url"`
}

// FetchConfig tunes outbound requests.
type FetchConfig struct {
	// Timeout bounds each request. Zero means no timeout.
	Timeout Duration `toml:"timeout"`

	// LatestOnly drops completions that are older than the newest request a
	// widget has issued. When false, the last response to complete wins.
	LatestOnly bool `toml:"latest_only"`

	// UserAgent is sent with every request.
	UserAgent string `toml:"user_agent"`
}

// ImageConfig controls background picture rendering.
type ImageConfig struct {
	// Protocol forces a graphics protocol: "auto", "halfblocks", "kitty",
	// "iterm2", "sixel" or "none".
	Protocol string `toml:"protocol"`

	// Rows is the fixed height of the background region. Zero fills every
	// row below the fact widget.
	Rows int `toml:"rows"`

	// MaxCacheSizeMB bounds the rendered-frame cache.
	MaxCacheSizeMB int `toml:"max_cache_size_mb"`
}

// ThemeConfig selects the colour palette.
type ThemeConfig struct {
	Name string `toml:"name"`
}
