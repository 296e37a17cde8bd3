package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	xutil "AstroOverlay/pkg/util"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Index is one entry of the market index catalog.
type Index struct {
	Name   string `yaml:"name"`
	Symbol string `yaml:"symbol"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		MaxUploadBytes  int64         `yaml:"max_upload_bytes" default:"10485760"`
		CORSOrigins     []string      `yaml:"cors_origins"`
		RateLimit       struct {
			Capacity float64 `yaml:"capacity" default:"10"`
			PerSec   float64 `yaml:"per_sec" default:"2"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Market struct {
		BaseURL       string        `yaml:"base_url" default:"https://query1.finance.yahoo.com"`
		Timeout       time.Duration `yaml:"timeout" default:"30s"`
		Proxy         string        `yaml:"proxy"`
		UserAgent     string        `yaml:"user_agent" default:"Mozilla/5.0"`
		DefaultSymbol string        `yaml:"default_symbol" default:"^NSEI"`
		Catalog       []Index       `yaml:"catalog"`
	} `yaml:"market"`
	Planetary struct {
		DefaultFile string   `yaml:"default_file"`
		Bodies      []string `yaml:"bodies"`
		DateColumn  string   `yaml:"date_column" default:"date"`
		DateLayouts []string `yaml:"date_layouts"`
		Duplicates  string   `yaml:"duplicates" default:"reject"`
	} `yaml:"planetary"`
	Range struct {
		Anchor string `yaml:"anchor" default:"2018-01-08"`
	} `yaml:"range"`
	Cache struct {
		Backend string        `yaml:"backend" default:"memory"`
		TTL     time.Duration `yaml:"ttl" default:"15m"`
	} `yaml:"cache"`
	Datasets struct {
		Backend string        `yaml:"backend" default:"memory"`
		TTL     time.Duration `yaml:"ttl" default:"24h"`
		MaxSize int           `yaml:"max_size" default:"200"`
	} `yaml:"datasets"`
	Redis struct {
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"astro"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"astro.overlay.events"`
		RequiredAcks int           `yaml:"required_acks" default:"1"`
		Compression  string        `yaml:"compression" default:"snappy"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
		Async        bool          `yaml:"async"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"astro"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		UseHTTP      bool          `yaml:"use_http"`
		AsyncInsert  bool          `yaml:"async_insert"`
		MaxExecTime  time.Duration `yaml:"max_execution_time" default:"30s"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"clickhouse"`
	Warmup struct {
		Enabled bool   `yaml:"enabled"`
		Cron    string `yaml:"cron" default:"0 30 18 * * 1-5"`
	} `yaml:"warmup"`
}

// DefaultBodies are the planetary columns tracked when none are configured.
var DefaultBodies = []string{"venus", "mercury", "sun", "saturn", "mars", "rahu"}

// DefaultCatalog is the index catalog used when none is configured.
var DefaultCatalog = []Index{
	{Name: "NIFTY 50", Symbol: "^NSEI"},
	{Name: "NIFTY BANK", Symbol: "^NSEBANK"},
	{Name: "SENSEX", Symbol: "^BSESN"},
	{Name: "NIFTY IT", Symbol: "^CNXIT"},
	{Name: "S&P 500", Symbol: "^GSPC"},
	{Name: "Dow Jones", Symbol: "^DJI"},
	{Name: "NASDAQ Composite", Symbol: "^IXIC"},
}

// Default returns a config populated only from defaults.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(err)
	}
	c.fillLists()
	return &c
}

// fillLists supplies list defaults, which struct tags cannot express.
func (c *Config) fillLists() {
	if len(c.Market.Catalog) == 0 {
		c.Market.Catalog = append([]Index(nil), DefaultCatalog...)
	}
	if len(c.Planetary.Bodies) == 0 {
		c.Planetary.Bodies = append([]string(nil), DefaultBodies...)
	}
	if c.Server.CORSOrigins == nil {
		c.Server.CORSOrigins = []string{"*"}
	}
	if len(c.Planetary.DateLayouts) == 0 {
		c.Planetary.DateLayouts = []string{"2-1-2006", "2/1/2006", "2006-01-02"}
	}
}

// Load reads and parses a YAML configuration file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Defaults first so explicit zero values in YAML (e.g. enabled: false) survive.
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if len(b) > 0 {
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	c.fillLists()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads .env (if present), then the YAML file, then applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = xutil.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Market.Proxy = v
	}
	if v := os.Getenv("PLANETARY_FILE"); v != "" {
		c.Planetary.DefaultFile = v
	}
	if v := os.Getenv("DEFAULT_SYMBOL"); v != "" {
		c.Market.DefaultSymbol = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Redis.Host = host
		if ok {
			c.Redis.Port = xutil.ParseIntDefault(port, c.Redis.Port)
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if _, err := time.Parse("2006-01-02", c.Range.Anchor); err != nil {
		return fmt.Errorf("range.anchor must be YYYY-MM-DD: %w", err)
	}
	if c.Market.DefaultSymbol == "" {
		return fmt.Errorf("market.default_symbol is required")
	}
	if len(c.Planetary.Bodies) == 0 {
		return fmt.Errorf("planetary.bodies cannot be empty")
	}
	if c.Planetary.Duplicates != "reject" && c.Planetary.Duplicates != "keep_last" {
		return fmt.Errorf("planetary.duplicates must be 'reject' or 'keep_last', got '%s'", c.Planetary.Duplicates)
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache.backend must be 'memory' or 'redis', got '%s'", c.Cache.Backend)
	}
	switch c.Datasets.Backend {
	case "memory", "redis", "layered":
	default:
		return fmt.Errorf("datasets.backend must be 'memory', 'redis' or 'layered', got '%s'", c.Datasets.Backend)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Warmup.Enabled && c.Warmup.Cron == "" {
		return fmt.Errorf("warmup.cron is required when warmup is enabled")
	}
	return nil
}

// Catalog returns the configured index catalog.
func (c *Config) Catalog() []Index { return c.Market.Catalog }
