package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var GlobalConfig *Config

// Config global configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Redis   RedisConfig   `yaml:"redis"`
	MySQL   MySQLConfig   `yaml:"mysql"`
	Logger  LoggerConfig  `yaml:"logger"`
	Reclaim ReclaimConfig `yaml:"reclaim"`
	Stream  StreamConfig  `yaml:"stream"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Port   int    `yaml:"port"`
	Mode   string `yaml:"mode"`    // debug, release
	APIKey string `yaml:"api_key"` // API key for worker stations and the sweep trigger (optional, if empty, auth is disabled)
}

// AuthConfig dashboard token configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"` // HMAC secret for dashboard tokens (optional, if empty, dashboard auth is disabled)
	Issuer    string `yaml:"issuer"`
}

// RedisConfig Redis configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MySQLConfig MySQL configuration
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`

	MaxOpenConns int  `yaml:"max_open_conns"`
	AutoMigrate  bool `yaml:"auto_migrate"` // create missing tables on startup
}

// DSN builds the go-sql-driver DSN.
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// LoggerConfig logger configuration
type LoggerConfig struct {
	Level  string           `yaml:"level"`  // debug, info, warn, error
	Output string           `yaml:"output"` // console, file, both
	File   LoggerFileConfig `yaml:"file"`
}

// LoggerFileConfig logger file configuration
type LoggerFileConfig struct {
	Path string `yaml:"path"`
}

// ReclaimConfig idle session reclamation configuration
type ReclaimConfig struct {
	Enabled  bool   `yaml:"enabled"`  // whether this replica schedules sweeps at all
	Interval int    `yaml:"interval"` // sweep interval (seconds) for the ticker trigger
	Trigger  string `yaml:"trigger"`  // ticker, asynq
	Cron     string `yaml:"cron"`     // cron spec for the asynq trigger
}

// StreamConfig dashboard streaming configuration
type StreamConfig struct {
	Channel      string `yaml:"channel"`       // Redis pub/sub channel carrying session change events
	ClientBuffer int    `yaml:"client_buffer"` // per-connection frame buffer before a slow client is dropped
	KeepAlive    int    `yaml:"keep_alive"`    // seconds between keep-alive writes on idle streams
}

const (
	ReclaimTriggerTicker = "ticker"
	ReclaimTriggerAsynq  = "asynq"
)

// Init initializes configuration
func Init() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := Load(configPath)
	if err != nil {
		return err
	}

	GlobalConfig = cfg
	return nil
}

// Load reads a config file and fills defaults, without touching GlobalConfig.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML config data and fills defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Output == "" {
		c.Logger.Output = "console"
	}
	if c.Reclaim.Interval <= 0 {
		c.Reclaim.Interval = 60
	}
	if c.Reclaim.Trigger == "" {
		c.Reclaim.Trigger = ReclaimTriggerTicker
	}
	if c.Reclaim.Cron == "" {
		c.Reclaim.Cron = "@every 1m"
	}
	if c.Stream.Channel == "" {
		c.Stream.Channel = "floorsync:sessions:changes"
	}
	if c.Stream.ClientBuffer <= 0 {
		c.Stream.ClientBuffer = 64
	}
	if c.Stream.KeepAlive <= 0 {
		c.Stream.KeepAlive = 15
	}
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	switch c.Reclaim.Trigger {
	case ReclaimTriggerTicker, ReclaimTriggerAsynq:
	default:
		return fmt.Errorf("invalid reclaim trigger %q (want %s or %s)", c.Reclaim.Trigger, ReclaimTriggerTicker, ReclaimTriggerAsynq)
	}
	if (c.Logger.Output == "file" || c.Logger.Output == "both") && c.Logger.File.Path == "" {
		return fmt.Errorf("logger output %q requires logger.file.path", c.Logger.Output)
	}
	return nil
}
