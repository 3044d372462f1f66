package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	apiURLEnvName         = "BINGO_API_URL"
	webAppURLEnvName      = "WEB_APP_URL"
	listenAddrEnvName     = "BINGO_LISTEN_ADDR"
	pollIntervalEnvName   = "BINGO_POLL_INTERVAL"
	requestTimeoutEnvName = "BINGO_REQUEST_TIMEOUT"
	allowedOriginsEnvName = "BINGO_ALLOWED_ORIGINS"
	logLevelEnvName       = "BINGO_LOG_LEVEL"
	betOptionsEnvName     = "BINGO_BET_OPTIONS"
)

type Config struct {
	APIURL         string        `yaml:"api_url"`
	ListenAddr     string        `yaml:"listen_addr"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	LogLevel       string        `yaml:"log_level"`
	BetOptions     []int64       `yaml:"bet_options"`
}

func Default() Config {
	return Config{
		ListenAddr:     ":8080",
		PollInterval:   5 * time.Second,
		RequestTimeout: 10 * time.Second,
		AllowedOrigins: []string{"*"},
		LogLevel:       "info",
		BetOptions:     []int64{10, 50, 100, 200},
	}
}

// Load reads an optional .env file, then an optional YAML file, then applies
// environment overrides. Missing files are not an error.
func Load(envPath, yamlPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}

	cfg := Default()
	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(apiURLEnvName); v != "" {
		c.APIURL = v
	} else if v := os.Getenv(webAppURLEnvName); v != "" && c.APIURL == "" {
		c.APIURL = strings.TrimRight(v, "/") + "/api"
	}
	if v := os.Getenv(listenAddrEnvName); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv(logLevelEnvName); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(allowedOriginsEnvName); v != "" {
		c.AllowedOrigins = splitList(v)
	}

	var err error
	if c.PollInterval, err = durationEnv(pollIntervalEnvName, c.PollInterval); err != nil {
		return err
	}
	if c.RequestTimeout, err = durationEnv(requestTimeoutEnvName, c.RequestTimeout); err != nil {
		return err
	}

	if v := os.Getenv(betOptionsEnvName); v != "" {
		var bets []int64
		for _, s := range splitList(v) {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", betOptionsEnvName, err)
			}
			bets = append(bets, n)
		}
		c.BetOptions = bets
	}
	return nil
}

func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("game service url not set: export %s or %s", apiURLEnvName, webAppURLEnvName)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if len(c.BetOptions) == 0 {
		return errors.New("at least one bet option is required")
	}
	for _, b := range c.BetOptions {
		if b <= 0 {
			return fmt.Errorf("invalid bet option %d", b)
		}
	}
	return nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
