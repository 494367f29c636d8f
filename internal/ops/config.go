package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"main/internal/channel"
	"main/internal/session"
	"main/internal/transport"
	"main/pkg/conn"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Server    ServerConfig    `json:"server"`
	Account   AccountConfig   `json:"account"`
	Retry     RetryConfig     `json:"retry"`
	Heartbeat HeartbeatConfig `json:"heartbeat"`
	Recorder  RecorderConfig  `json:"recorder"`
	Cache     CacheConfig     `json:"cache"`
	Profiler  ProfilerConfig  `json:"profiler"`
}

// ServerConfig locates the event stream endpoint.
type ServerConfig struct {
	Host   string `json:"host"`
	Scheme string `json:"scheme"`
	Path   string `json:"path"`
}

// AccountConfig carries the identity used to open the socket.
type AccountConfig struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// RetryConfig defines the reconnect backoff.
type RetryConfig struct {
	InitialDelay string  `json:"initial_delay"`
	Multiplier   float64 `json:"multiplier"`
	MaxDelay     string  `json:"max_delay"`
	MaxRetries   int     `json:"max_retries"`
}

// HeartbeatConfig defines liveness timing.
type HeartbeatConfig struct {
	Interval       string `json:"interval"`
	ConnectTimeout string `json:"connect_timeout"`
}

// RecorderConfig enables the Postgres event recorder.
type RecorderConfig struct {
	Enabled   bool `json:"enabled"`
	QueueSize int  `json:"queue_size"`

	Postgres struct {
		Host     string `json:"host"`
		Port     int    `json:"port"`
		User     string `json:"user"`
		Password string `json:"password"`
		Database string `json:"database"`
		SSLMode  string `json:"ssl_mode"`
	} `json:"postgres"`
}

// CacheConfig enables the Redis latest-price cache.
type CacheConfig struct {
	Enabled bool   `json:"enabled"`
	TTL     string `json:"ttl"`

	Redis struct {
		Addr     string `json:"addr"`
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`
}

// ProfilerConfig enables the pyroscope profiler.
type ProfilerConfig struct {
	Enabled       bool   `json:"enabled"`
	ServerAddress string `json:"server_address"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Endpoint          transport.Endpoint
	Credentials       session.Credentials
	Retry             channel.Policy
	HeartbeatInterval time.Duration
	ConnectTimeout    time.Duration

	Recorder struct {
		Enabled   bool
		QueueSize int
		Postgres  conn.PostgresOption
	}

	Cache struct {
		Enabled  bool
		TTL      time.Duration
		Addr     string
		Password string
		DB       int
	}

	Profiler ProfilerConfig
}

// Load reads a JSON config file, applies env overrides and resolves it.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, fmt.Errorf("parse config: %w", err)
	}
	applyEnvOverrides(&cfg)
	return resolve(cfg)
}

// Env vars override file values so secrets stay out of the config file.
func applyEnvOverrides(cfg *FileConfig) {
	if v := os.Getenv("STREAM_ACCOUNT_ID"); v != "" {
		cfg.Account.ID = v
	}
	if v := os.Getenv("STREAM_TOKEN"); v != "" {
		cfg.Account.Token = v
	}

	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		cfg.Recorder.Postgres.Host = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Recorder.Postgres.Port = port
		}
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		cfg.Recorder.Postgres.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.Recorder.Postgres.Password = v
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		cfg.Recorder.Postgres.Database = v
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.Redis.Password = v
	}
}

func resolve(cfg FileConfig) (Loaded, error) {
	if cfg.Server.Host == "" {
		return Loaded{}, fmt.Errorf("server host is empty")
	}

	retry := channel.DefaultPolicy()
	if cfg.Retry.InitialDelay != "" {
		d, err := time.ParseDuration(cfg.Retry.InitialDelay)
		if err != nil {
			return Loaded{}, fmt.Errorf("invalid retry initial_delay: %w", err)
		}
		retry.InitialDelay = d
	}
	if cfg.Retry.MaxDelay != "" {
		d, err := time.ParseDuration(cfg.Retry.MaxDelay)
		if err != nil {
			return Loaded{}, fmt.Errorf("invalid retry max_delay: %w", err)
		}
		retry.MaxDelay = d
	}
	if cfg.Retry.Multiplier != 0 {
		if cfg.Retry.Multiplier <= 1 {
			return Loaded{}, fmt.Errorf("retry multiplier must be > 1")
		}
		retry.Multiplier = cfg.Retry.Multiplier
	}
	if cfg.Retry.MaxRetries != 0 {
		if cfg.Retry.MaxRetries < 0 {
			return Loaded{}, fmt.Errorf("retry max_retries must be >= 0")
		}
		retry.MaxRetries = cfg.Retry.MaxRetries
	}

	var loaded Loaded
	loaded.Endpoint = transport.Endpoint{
		Scheme:   cfg.Server.Scheme,
		Host:     cfg.Server.Host,
		BasePath: cfg.Server.Path,
	}
	loaded.Credentials = session.Credentials{
		AccountID: cfg.Account.ID,
		Token:     cfg.Account.Token,
	}
	loaded.Retry = retry

	if cfg.Heartbeat.Interval != "" {
		d, err := time.ParseDuration(cfg.Heartbeat.Interval)
		if err != nil {
			return Loaded{}, fmt.Errorf("invalid heartbeat interval: %w", err)
		}
		loaded.HeartbeatInterval = d
	}
	if cfg.Heartbeat.ConnectTimeout != "" {
		d, err := time.ParseDuration(cfg.Heartbeat.ConnectTimeout)
		if err != nil {
			return Loaded{}, fmt.Errorf("invalid heartbeat connect_timeout: %w", err)
		}
		loaded.ConnectTimeout = d
	}

	loaded.Recorder.Enabled = cfg.Recorder.Enabled
	loaded.Recorder.QueueSize = cfg.Recorder.QueueSize
	loaded.Recorder.Postgres = conn.PostgresOption{
		Host:     cfg.Recorder.Postgres.Host,
		Port:     cfg.Recorder.Postgres.Port,
		User:     cfg.Recorder.Postgres.User,
		Password: cfg.Recorder.Postgres.Password,
		Database: cfg.Recorder.Postgres.Database,
		SSLMode:  cfg.Recorder.Postgres.SSLMode,
	}

	loaded.Cache.Enabled = cfg.Cache.Enabled
	loaded.Cache.Addr = cfg.Cache.Redis.Addr
	loaded.Cache.Password = cfg.Cache.Redis.Password
	loaded.Cache.DB = cfg.Cache.Redis.DB
	loaded.Cache.TTL = time.Minute
	if cfg.Cache.TTL != "" {
		d, err := time.ParseDuration(cfg.Cache.TTL)
		if err != nil {
			return Loaded{}, fmt.Errorf("invalid cache ttl: %w", err)
		}
		loaded.Cache.TTL = d
	}
	if loaded.Cache.Enabled && loaded.Cache.Addr == "" {
		return Loaded{}, fmt.Errorf("cache enabled without redis addr")
	}

	loaded.Profiler = cfg.Profiler

	return loaded, nil
}
