// Package config loads the comicpress configuration file.
//
// The file is TOML and every section is optional:
//
//	[defaults]
//	device = "kindle-pw3"
//	direction = "rtl"
//	contrast = "auto"
//	workers = 4
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//	ttl = "72h"
//	prefix = "manga:"
//
//	[tools]
//	kindlegen = "/opt/kindlegen/kindlegen"
//
//	[[device]]
//	id = "boox"
//	name = "Boox Note Air"
//	width = 1404
//	height = 1872
//	palette = 16
//	formats = ["epub", "cbz"]
//
// Values from the file sit between the built-in defaults and command-line
// flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/comicpress/pkg/cache"
	"github.com/matzehuels/comicpress/pkg/comic"
	"github.com/matzehuels/comicpress/pkg/device"
	"github.com/matzehuels/comicpress/pkg/errors"
)

// EnvPath overrides the config file location.
const EnvPath = "COMICPRESS_CONFIG"

const appName = "comicpress"

// Config is the parsed configuration file.
type Config struct {
	Defaults Defaults       `toml:"defaults"`
	Cache    Cache          `toml:"cache"`
	Tools    Tools          `toml:"tools"`
	Devices  []DeviceConfig `toml:"device"`
}

// Defaults are default values for convert flags.
type Defaults struct {
	Device     string `toml:"device"`
	Format     string `toml:"format"`
	Direction  string `toml:"direction"`
	Background string `toml:"background"`
	Resize     string `toml:"resize"`
	Split      string `toml:"split"`
	Contrast   string `toml:"contrast"`
	Author     string `toml:"author"`
	Workers    int    `toml:"workers"`
	DitherScan string `toml:"dither_scan"`
}

// Cache selects the prepared-page cache backend.
type Cache struct {
	Backend  string   `toml:"backend"`
	Dir      string   `toml:"dir"`
	RedisURL string   `toml:"redis_url"`
	TTL      Duration `toml:"ttl"`

	// Prefix scopes keys so several libraries can share one Redis.
	Prefix string `toml:"prefix"`
}

// Tools locates external programs.
type Tools struct {
	KindleGen string `toml:"kindlegen"`
}

// DeviceConfig declares an extra device profile.
type DeviceConfig struct {
	ID        string   `toml:"id"`
	Name      string   `toml:"name"`
	Width     int      `toml:"width"`
	Height    int      `toml:"height"`
	Palette   int      `toml:"palette"`
	PanelView bool     `toml:"panel_view"`
	Formats   []string `toml:"formats"`
}

// Duration is a time.Duration written as a Go duration string.
type Duration struct {
	time.Duration
}

// UnmarshalText parses strings such as "90m" or "24h".
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText writes the duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// =============================================================================
// Loading
// =============================================================================

// Path returns the config file location: $COMICPRESS_CONFIG, else
// $XDG_CONFIG_HOME/comicpress/config.toml, else ~/.config/comicpress/config.toml.
func Path() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Load reads the config file at path. A missing file yields an empty
// Config. Syntax errors and unknown keys are INVALID_INPUT errors.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config")
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidInput, "config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// LoadDefault loads the config file at Path.
func LoadDefault() (*Config, error) {
	path, err := Path()
	if err != nil {
		return &Config{}, nil
	}
	return Load(path)
}

// =============================================================================
// Conversions
// =============================================================================

// RegisterDevices adds the declared devices to reg.
func (c *Config) RegisterDevices(reg *device.Registry) error {
	for _, d := range c.Devices {
		p, err := d.Profile()
		if err != nil {
			return err
		}
		if err := reg.Register(p); err != nil {
			return err
		}
	}
	return nil
}

// Profile converts the declaration into a device profile.
func (d DeviceConfig) Profile() (device.Profile, error) {
	if d.ID == "" {
		return device.Profile{}, errors.New(errors.ErrCodeInvalidInput, "device declaration without id")
	}
	p := device.Profile{
		ID:        d.ID,
		Name:      d.Name,
		Width:     d.Width,
		Height:    d.Height,
		PanelView: d.PanelView,
	}
	if p.Name == "" {
		p.Name = d.ID
	}

	switch d.Palette {
	case 0:
	case 4:
		p.Palette = device.Palette4
	case 15:
		p.Palette = device.Palette15
	case 16:
		p.Palette = device.Palette16
	default:
		return device.Profile{}, errors.New(errors.ErrCodeInvalidInput, "device %q: palette must be 0, 4, 15 or 16, got %d", d.ID, d.Palette)
	}

	if len(d.Formats) == 0 {
		p.Formats = append([]comic.Format(nil), comic.AllFormats...)
	}
	for _, s := range d.Formats {
		f, err := comic.ParseFormat(s)
		if err != nil {
			return device.Profile{}, fmt.Errorf("device %q: %w", d.ID, err)
		}
		p.Formats = append(p.Formats, f)
	}

	if err := p.Validate(); err != nil {
		return device.Profile{}, err
	}
	return p, nil
}

// Keyer returns the cache keyer, scoped by the configured prefix.
func (c *Config) Keyer() cache.Keyer {
	keyer := cache.NewDefaultKeyer()
	if c.Cache.Prefix != "" {
		keyer = cache.NewScopedKeyer(keyer, c.Cache.Prefix)
	}
	return keyer
}

// CacheConfig returns the cache backend settings. defaultDir is used for
// the file backend when the config leaves dir unset.
func (c *Config) CacheConfig(defaultDir string) cache.Config {
	cfg := cache.Config{
		Backend:  c.Cache.Backend,
		Dir:      c.Cache.Dir,
		RedisURL: c.Cache.RedisURL,
		TTL:      c.Cache.TTL.Duration,
	}
	if cfg.Dir == "" {
		cfg.Dir = defaultDir
	}
	if cfg.TTL == 0 {
		cfg.TTL = cache.TTLPanel
	}
	if url := os.Getenv("COMICPRESS_REDIS_URL"); url != "" && cfg.RedisURL == "" {
		cfg.RedisURL = url
	}
	return cfg
}
