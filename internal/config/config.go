package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/docker/go-units"
	"gopkg.in/yaml.v3"
)

// DefaultBrowsers is the browser set offered when none is configured.
var DefaultBrowsers = []string{"ie6", "ie7", "ie8", "ie9", "ie10", "ie11"}

// DefaultVRAMSet is the allowed video memory sizes in MB.
var DefaultVRAMSet = []int{1, 2, 4, 8, 16, 32, 64, 128}

type Config struct {
	Listen             string            `yaml:"listen"`
	APIKey             string            `yaml:"api_key"`
	LogLevel           string            `yaml:"log_level"`
	EngineBinary       string            `yaml:"engine_binary"` // empty: autodetect on PATH
	ImageDir           string            `yaml:"image_dir"`
	Images             map[string]string `yaml:"images"` // browser -> explicit image path
	Browsers           []string          `yaml:"browsers"`
	VRAMSet            []int             `yaml:"vram_set"`
	DisplaySlots       int               `yaml:"display_slots"`
	Cores              int               `yaml:"cores"`
	MaxRAMMB           int               `yaml:"max_ram_mb"`
	OutputBuffer       string            `yaml:"output_buffer"` // human size, e.g. "64KB"
	GracePeriodSeconds int               `yaml:"grace_period_seconds"`
	SettleMs           int               `yaml:"settle_ms"`
	SimBootDelayMs     int               `yaml:"sim_boot_delay_ms"`
	DBPath             string            `yaml:"db_path"`
}

func Load(yamlPath string) (*Config, error) {
	cfg := &Config{
		Listen:             "127.0.0.1:8095",
		LogLevel:           "info",
		ImageDir:           "./images",
		Images:             make(map[string]string),
		Browsers:           append([]string(nil), DefaultBrowsers...),
		VRAMSet:            append([]int(nil), DefaultVRAMSet...),
		DisplaySlots:       10,
		Cores:              1,
		MaxRAMMB:           8192,
		OutputBuffer:       "64KB",
		GracePeriodSeconds: 5,
		SettleMs:           300,
		SimBootDelayMs:     150,
		DBPath:             "./browservm.db",
	}

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DisplaySlots <= 0 {
		return fmt.Errorf("display_slots must be positive, got %d", c.DisplaySlots)
	}
	if _, err := c.OutputBufferBytes(); err != nil {
		return err
	}
	return nil
}

// OutputBufferBytes parses the output_buffer size string.
func (c *Config) OutputBufferBytes() (int, error) {
	n, err := units.RAMInBytes(c.OutputBuffer)
	if err != nil {
		return 0, fmt.Errorf("invalid output_buffer %q: %w", c.OutputBuffer, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("output_buffer must be positive, got %q", c.OutputBuffer)
	}
	return int(n), nil
}

// BrowserAllowed reports whether the browser variant is configured.
func (c *Config) BrowserAllowed(browser string) bool {
	for _, b := range c.Browsers {
		if b == browser {
			return true
		}
	}
	return false
}

// VRAMAllowed reports whether the video memory size is in the configured set.
func (c *Config) VRAMAllowed(mb int) bool {
	for _, v := range c.VRAMSet {
		if v == mb {
			return true
		}
	}
	return false
}

// ResolveRAM maps the request value ("1".."12" in GB, or "unlimited") to MB.
// "unlimited" has no engine equivalent; it maps to the configured ceiling.
func (c *Config) ResolveRAM(ram string) (int, error) {
	if ram == "unlimited" {
		return c.MaxRAMMB, nil
	}
	n, err := strconv.Atoi(ram)
	if err != nil || n < 1 || n > 12 {
		return 0, fmt.Errorf("ram must be \"1\"..\"12\" or \"unlimited\", got %q", ram)
	}
	return n * 1024, nil
}

// VRAMChoices returns the allowed VRAM sizes sorted ascending, for error messages.
func (c *Config) VRAMChoices() []int {
	out := append([]int(nil), c.VRAMSet...)
	sort.Ints(out)
	return out
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BROWSERVM_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("BROWSERVM_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("BROWSERVM_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("BROWSERVM_ENGINE_BINARY"); v != "" {
		cfg.EngineBinary = v
	}
	if v := os.Getenv("BROWSERVM_IMAGE_DIR"); v != "" {
		cfg.ImageDir = v
	}
	if v := os.Getenv("BROWSERVM_BROWSERS"); v != "" {
		cfg.Browsers = strings.Split(v, ",")
	}
	if v := os.Getenv("BROWSERVM_DISPLAY_SLOTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DisplaySlots = n
		}
	}
	if v := os.Getenv("BROWSERVM_CORES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cores = n
		}
	}
	if v := os.Getenv("BROWSERVM_MAX_RAM_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRAMMB = n
		}
	}
	if v := os.Getenv("BROWSERVM_OUTPUT_BUFFER"); v != "" {
		cfg.OutputBuffer = v
	}
	if v := os.Getenv("BROWSERVM_GRACE_PERIOD_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GracePeriodSeconds = n
		}
	}
	if v := os.Getenv("BROWSERVM_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
}
