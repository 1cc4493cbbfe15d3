package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"stockwatch/internal/model"
)

type Config struct {
	Targets  []model.Target `yaml:"targets"`
	Browser  BrowserConfig  `yaml:"browser"`
	Pushover PushoverConfig `yaml:"pushover"`
	Email    EmailConfig    `yaml:"email"`
	Check    CheckConfig    `yaml:"check"`
	Limits   LimitsConfig   `yaml:"limits"`
	Log      LogConfig      `yaml:"log"`
	// StatusLogPath enables the append-only availability log. Empty means
	// disabled; the STATUS_LOG_PATH env var fills it when the file omits it.
	StatusLogPath string `yaml:"statusLogPath"`
}

type BrowserConfig struct {
	// Bin is the browser executable. Required on linux, auto-detected
	// elsewhere.
	Bin          string `yaml:"bin"`
	Headless     *bool  `yaml:"headless"`
	WindowWidth  int    `yaml:"windowWidth"`
	WindowHeight int    `yaml:"windowHeight"`
}

func (c BrowserConfig) HeadlessMode() bool {
	if c.Headless == nil {
		return true
	}
	return *c.Headless
}

func (c BrowserConfig) Width() int {
	if c.WindowWidth <= 0 {
		return 1920
	}
	return c.WindowWidth
}

func (c BrowserConfig) Height() int {
	if c.WindowHeight <= 0 {
		return 1080
	}
	return c.WindowHeight
}

type PushoverConfig struct {
	APIToken  string `yaml:"apiToken"`
	UserKey   string `yaml:"userKey"`
	Endpoint  string `yaml:"endpoint"`
	Title     string `yaml:"title"`
	TimeoutMs int    `yaml:"timeoutMs"`
}

func (c PushoverConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

type EmailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	AuthCode string `yaml:"authCode"`
}

type CheckConfig struct {
	WaitTimeoutMs int                `yaml:"waitTimeoutMs"`
	ScreenshotDir string             `yaml:"screenshotDir"`
	JitterMinMs   int                `yaml:"jitterMinMs"`
	JitterMaxMs   int                `yaml:"jitterMaxMs"`
	Markers       []model.MarkerRule `yaml:"markers"`
}

func (c CheckConfig) WaitTimeout() time.Duration {
	if c.WaitTimeoutMs <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.WaitTimeoutMs) * time.Millisecond
}

func (c CheckConfig) JitterMin() time.Duration {
	if c.JitterMinMs <= 0 {
		return 1 * time.Second
	}
	return time.Duration(c.JitterMinMs) * time.Millisecond
}

func (c CheckConfig) JitterMax() time.Duration {
	if c.JitterMaxMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.JitterMaxMs) * time.Millisecond
}

type LimitsConfig struct {
	// QPS paces page checks across targets within one run.
	QPS   float64 `yaml:"qps"`
	Burst int     `yaml:"burst"`
}

type LogConfig struct {
	Path string `yaml:"path"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Pushover.Endpoint == "" {
		c.Pushover.Endpoint = "https://api.pushover.net/1/messages.json"
	}
	if c.Pushover.Title == "" {
		c.Pushover.Title = "Stock Check"
	}
	if len(c.Check.Markers) == 0 {
		c.Check.Markers = model.DefaultMarkerRules()
	}
	if c.Check.ScreenshotDir == "" {
		c.Check.ScreenshotDir = "."
	}
	if c.Limits.QPS <= 0 {
		c.Limits.QPS = 0.5
	}
	if c.Limits.Burst <= 0 {
		c.Limits.Burst = 1
	}
	if c.Log.Path == "" {
		c.Log.Path = "./stock_check.log"
	}
	if c.StatusLogPath == "" {
		c.StatusLogPath = strings.TrimSpace(os.Getenv("STATUS_LOG_PATH"))
	}
}

func (c Config) validate() error {
	if len(c.Targets) == 0 {
		return errors.New("at least one target is required")
	}
	for i, t := range c.Targets {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("targets[%d].name is required", i)
		}
		if strings.TrimSpace(t.URL) == "" {
			return fmt.Errorf("targets[%d].url is required", i)
		}
	}
	if strings.TrimSpace(c.Pushover.APIToken) == "" {
		return errors.New("pushover.apiToken is required")
	}
	if strings.TrimSpace(c.Pushover.UserKey) == "" {
		return errors.New("pushover.userKey is required")
	}
	if runtime.GOOS == "linux" && strings.TrimSpace(c.Browser.Bin) == "" {
		return errors.New("browser.bin is required on linux")
	}
	for i, r := range c.Check.Markers {
		if strings.TrimSpace(r.Selector) == "" {
			return fmt.Errorf("check.markers[%d].selector is required", i)
		}
		if r.Marker == "" {
			return fmt.Errorf("check.markers[%d].marker is required", i)
		}
	}
	if c.Check.JitterMax() < c.Check.JitterMin() {
		return errors.New("check.jitterMaxMs must be >= check.jitterMinMs")
	}
	if c.Email.Enabled {
		if strings.TrimSpace(c.Email.Address) == "" {
			return errors.New("email.address is required when email is enabled")
		}
		if strings.TrimSpace(c.Email.AuthCode) == "" {
			return errors.New("email.authCode is required when email is enabled")
		}
	}
	return nil
}
