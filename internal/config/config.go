// Package config loads the playbook command's settings.
//
// Settings come from, in increasing precedence: built-in defaults, an
// optional YAML file, and PLAYBOOK_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cboone/playbook/ide"
	"github.com/cboone/playbook/internal/logging"
)

const (
	TargetDemo   = "demo"
	TargetChrome = "chrome"
)

const (
	EnvURL       = "PLAYBOOK_URL"
	EnvTarget    = "PLAYBOOK_TARGET"
	EnvResultsDB = "PLAYBOOK_RESULTS_DB"
	EnvLogLevel  = "PLAYBOOK_LOG_LEVEL"
)

// Config holds everything the run command needs to open a workbench and
// drive scripts against it.
type Config struct {
	// Target is "demo" for the in-process simulated IDE or "chrome" for a
	// browser pointed at URL.
	Target     string        `yaml:"target"`
	URL        string        `yaml:"url,omitempty"`
	Headless   bool          `yaml:"headless"`
	ChromePath string        `yaml:"chrome_path,omitempty"`
	Timeout    time.Duration `yaml:"timeout"`
	Poll       time.Duration `yaml:"poll"`
	ResultsDB  string        `yaml:"results_db,omitempty"`
	LogLevel   string        `yaml:"log_level"`

	// Selectors override the browser workbench's default CSS selectors.
	// Empty fields keep the default.
	Selectors ide.Selectors `yaml:"selectors,omitempty"`
}

func Default() Config {
	return Config{
		Target:   TargetDemo,
		Headless: true,
		Timeout:  10 * time.Second,
		Poll:     100 * time.Millisecond,
		LogLevel: logging.LevelWarn,
	}
}

// Load reads the file at path over the defaults, then applies environment
// overrides. An empty path skips the file. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvURL); ok {
		c.URL = v
	}
	if v, ok := os.LookupEnv(EnvTarget); ok {
		c.Target = v
	}
	if v, ok := os.LookupEnv(EnvResultsDB); ok {
		c.ResultsDB = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.LogLevel = v
	}
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	switch c.Target {
	case TargetDemo:
	case TargetChrome:
		if c.URL == "" {
			return fmt.Errorf("config: target %s needs a url (set url or %s)", TargetChrome, EnvURL)
		}
	default:
		return fmt.Errorf("config: unknown target %q (want %s or %s)", c.Target, TargetDemo, TargetChrome)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive, got %s", c.Timeout)
	}
	if c.Poll <= 0 || c.Poll > c.Timeout {
		return fmt.Errorf("config: poll must be positive and at most the timeout, got %s", c.Poll)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
