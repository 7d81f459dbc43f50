// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the collector needs to talk to one device and
// maintain one output file.
type Config struct {
	URL           string        `yaml:"url"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	Exclude       []Pattern     `yaml:"exclude"`
	LogPath       string        `yaml:"logpath"`
	JournalPath   string        `yaml:"journal_path"`
	Interval      time.Duration `yaml:"interval"`
	Schedule      string        `yaml:"schedule"`
	Timeout       time.Duration `yaml:"timeout"`
	TLSSkipVerify bool          `yaml:"tls_skip_verify"`
}

// Load reads a YAML settings file with env overrides. FRITZLOG_USERNAME
// and FRITZLOG_PASSWORD take precedence over the file so credentials can
// stay out of it entirely.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// Env overrides
	if v := os.Getenv("FRITZLOG_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("FRITZLOG_PASSWORD"); v != "" {
		cfg.Password = v
	}

	// Defaults
	if cfg.URL == "" {
		cfg.URL = "http://fritz.box"
	}
	if cfg.LogPath == "" {
		cfg.LogPath = "fritzlog.jsonl"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &cfg, nil
}

// Validate checks the fields required for a login. Called by commands
// that actually contact the device; Load itself stays permissive.
func (c *Config) Validate() error {
	if c.Username == "" || c.Password == "" {
		return errors.New("username and password are required (settings file or FRITZLOG_USERNAME/FRITZLOG_PASSWORD)")
	}
	return nil
}

// Pattern is one exclusion rule. A single substring matches on
// containment; a list of substrings matches only when every part is
// present. Matching is case-sensitive.
type Pattern []string

// UnmarshalYAML accepts either form:
//
//	exclude:
//	  - "Anmeldung des Benutzers"
//	  - ["WLAN", "Gastzugang"]
func (p *Pattern) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*p = Pattern{s}
		return nil
	case yaml.SequenceNode:
		var parts []string
		if err := value.Decode(&parts); err != nil {
			return err
		}
		*p = Pattern(parts)
		return nil
	default:
		return fmt.Errorf("line %d: exclude entry must be a string or a list of strings", value.Line)
	}
}

// Matches reports whether message contains every part of the pattern.
func (p Pattern) Matches(message string) bool {
	if len(p) == 0 {
		return false
	}
	for _, part := range p {
		if !strings.Contains(message, part) {
			return false
		}
	}
	return true
}
