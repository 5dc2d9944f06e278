package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Backend struct {
		Type         string        `yaml:"type"`
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RiskTopic    string   `yaml:"risk_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Groundlink struct {
		WebSocketURL   string        `yaml:"websocket_url"`
		APIKey         string        `yaml:"api_key"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"groundlink"`
	Sampler struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"sampler"`
	Detector struct {
		Threshold      float64            `yaml:"threshold"`
		EventThreshold float64            `yaml:"event_threshold"`
		Overrides      map[string]float64 `yaml:"overrides"`
	} `yaml:"detector"`
	Models struct {
		ServiceURL string        `yaml:"service_url"`
		Timeout    time.Duration `yaml:"timeout"`
		Registry   map[string]struct {
			Classification string `yaml:"classification"`
			Detection      string `yaml:"detection"`
			TimeSeries     string `yaml:"timeseries"`
		} `yaml:"registry"`
		CacheTTL struct {
			Classification time.Duration `yaml:"classification"`
			Detection      time.Duration `yaml:"detection"`
			Forecast       time.Duration `yaml:"forecast"`
		} `yaml:"cache_ttl"`
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"models"`
	Forecast struct {
		DefaultSteps int           `yaml:"default_steps"`
		DefaultStep  time.Duration `yaml:"default_step"`
	} `yaml:"forecast"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("GROUNDLINK_API_KEY"); v != "" {
		c.Groundlink.APIKey = v
	}
	if v := os.Getenv("GROUNDLINK_URL"); v != "" {
		c.Groundlink.WebSocketURL = v
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("MODEL_SERVICE_URL"); v != "" {
		c.Models.ServiceURL = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backend.Type == "" {
		return fmt.Errorf("backend.type is required")
	}
	if c.Backend.Type != "kafka" && c.Backend.Type != "clickhouse" {
		return fmt.Errorf("backend.type must be 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if c.Groundlink.WebSocketURL == "" {
		return fmt.Errorf("groundlink.websocket_url is required")
	}
	if c.Sampler.Interval < 0 {
		return fmt.Errorf("sampler.interval must not be negative")
	}
	if c.Detector.Threshold < 0 || c.Detector.EventThreshold < 0 {
		return fmt.Errorf("detector thresholds must not be negative")
	}
	for name := range c.Models.Registry {
		if !isKnownInstrument(name) {
			return fmt.Errorf("models.registry: unknown instrument '%s'", name)
		}
	}
	for name := range c.Detector.Overrides {
		if !isKnownInstrument(name) {
			return fmt.Errorf("detector.overrides: unknown instrument '%s'", name)
		}
	}
	return nil
}

// SamplerInterval returns the configured tick interval or the 5s default.
func (c *Config) SamplerInterval() time.Duration {
	if c.Sampler.Interval > 0 {
		return c.Sampler.Interval
	}
	return 5 * time.Second
}

// ForecastDefaults returns the default horizon (24 steps of 1m unless set).
func (c *Config) ForecastDefaults() (int, time.Duration) {
	steps := c.Forecast.DefaultSteps
	if steps <= 0 {
		steps = 24
	}
	step := c.Forecast.DefaultStep
	if step <= 0 {
		step = time.Minute
	}
	return steps, step
}

func isKnownInstrument(name string) bool {
	switch name {
	case "STEP", "SUIT", "PAPA", "MAG", "SoLEXS", "SWISS":
		return true
	default:
		return false
	}
}
