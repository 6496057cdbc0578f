// Package config loads and saves the scenemcp configuration file.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultHost = "localhost"
	DefaultPort = 9999
)

// Duration is a time.Duration that round-trips through TOML as a string
// like "5s".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Host     string   `toml:"host,omitempty"`
	Port     int      `toml:"port,omitempty"`
	LogLevel string   `toml:"log_level,omitempty"`
	Client   Client   `toml:"client,omitempty"`
	Executor Executor `toml:"executor,omitempty"`
	Tools    Tools    `toml:"tools,omitempty"`
}

type Client struct {
	ConnectTimeout Duration `toml:"connect_timeout,omitempty"`
	RequestTimeout Duration `toml:"request_timeout,omitempty"`
}

type Executor struct {
	MaxLine     int      `toml:"max_line,omitempty"`
	Interpreter []string `toml:"interpreter,omitempty"`
}

type Tools struct {
	Allowed []string `toml:"allowed,omitempty"`
}

func Default() *Config {
	return &Config{
		Host:     DefaultHost,
		Port:     DefaultPort,
		LogLevel: "info",
		Client: Client{
			ConnectTimeout: Duration(5 * time.Second),
			RequestTimeout: Duration(30 * time.Second),
		},
		Executor: Executor{
			MaxLine:     1024 * 1024,
			Interpreter: []string{"python3", "-u", "-"},
		},
		Tools: Tools{
			Allowed: []string{"*"},
		},
	}
}

// Addr is the executor endpoint as host:port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "scenemcp")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".scenemcp")
	}
	return filepath.Join(home, ".config", "scenemcp")
}

func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the config file, filling defaults for anything unset. A missing
// file yields the defaults.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(Path())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

func Save(cfg *Config) error {
	if err := os.MkdirAll(Dir(), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.Create(Path())
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
