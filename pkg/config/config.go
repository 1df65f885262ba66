package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ChartCrime/pkg/util"
)

// ErrMissingAPIKey is returned when a command needs the data API and no key is configured.
var ErrMissingAPIKey = errors.New("FRED_API_KEY environment variable not set")

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stderr"`
	} `yaml:"log"`
	Fred struct {
		APIKey             string        `yaml:"api_key"`
		BaseURL            string        `yaml:"base_url" default:"https://api.stlouisfed.org/fred" validate:"url"`
		MinRequestInterval time.Duration `yaml:"min_request_interval" default:"1s" validate:"gte=0"`
		MaxRetries         int           `yaml:"max_retries" default:"6" validate:"gte=1"`
		MaxBackoff         time.Duration `yaml:"max_backoff" default:"60s" validate:"gt=0"`
		Timeout            time.Duration `yaml:"timeout" default:"30s" validate:"gt=0"`
		BreakerFailures    int           `yaml:"breaker_failures" default:"3" validate:"gte=1"`
		BreakerCooldown    time.Duration `yaml:"breaker_cooldown" default:"10s" validate:"gt=0"`
	} `yaml:"fred"`
	Analysis struct {
		BenchmarkID       string  `yaml:"benchmark_id" default:"SP500" validate:"required"`
		WindowDays        int     `yaml:"window_days" default:"60" validate:"gte=1"`
		MinOverlapRatio   float64 `yaml:"min_overlap_ratio" default:"0.95" validate:"gte=0,lte=1"`
		MinSamples        int     `yaml:"min_samples" default:"10" validate:"gte=2"`
		ExcludeCategoryID int     `yaml:"exclude_category_id" default:"32255" validate:"gte=0"`
	} `yaml:"analysis"`
	Exclusion struct {
		// Empty lists fall back to the built-in denylists.
		IDs      []string `yaml:"ids"`
		Keywords []string `yaml:"keywords"`
	} `yaml:"exclusion"`
	Curation struct {
		MinAligned   int     `yaml:"min_aligned" default:"20" validate:"gte=0"`
		FunnyMinAbsR float64 `yaml:"funny_min_abs_r" default:"0.15" validate:"gte=0,lte=1"`
		FinMinAbsR   float64 `yaml:"financial_min_abs_r" default:"0.10" validate:"gte=0,lte=1"`
		OtherMinAbsR float64 `yaml:"other_min_abs_r" default:"0.30" validate:"gte=0,lte=1"`
		BofACap      int     `yaml:"bofa_cap" default:"5" validate:"gte=0"`
		VolCap       int     `yaml:"volatility_cap" default:"3" validate:"gte=0"`
	} `yaml:"curation"`
	Discovery struct {
		Mode             string `yaml:"mode" default:"fast" validate:"oneof=fast full-tree"`
		RecentWindowDays int    `yaml:"recent_window_days" default:"2" validate:"gte=1"`
		RootCategoryID   int    `yaml:"root_category_id" default:"0" validate:"gte=0"`
		SkipCategoryIDs  []int  `yaml:"skip_category_ids" default:"[32255,32356,33913]"`
	} `yaml:"discovery"`
	Storage struct {
		Dir          string `yaml:"dir" default:"." validate:"required"`
		CatalogFile  string `yaml:"catalog_file" default:"all_daily_series.json" validate:"required"`
		ResultsFile  string `yaml:"results_file" default:"strict_correlations.json" validate:"required"`
		RotationFile string `yaml:"rotation_file" default:"strict_curated.json" validate:"required"`
		DetailFile   string `yaml:"detail_file" default:"curated_detail.json" validate:"required"`
	} `yaml:"storage"`
	Cache struct {
		Backend string        `yaml:"backend" default:"memory" validate:"oneof=none memory redis layered"`
		TTL     time.Duration `yaml:"ttl" default:"6h"`
		MaxSize int           `yaml:"max_size" default:"5000" validate:"gte=1"`
		Redis   struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"chartcrime"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	ClickHouse struct {
		Enabled     bool          `yaml:"enabled"`
		Host        string        `yaml:"host" default:"localhost"`
		Port        int           `yaml:"port" default:"9000"`
		Database    string        `yaml:"database" default:"chartcrime"`
		User        string        `yaml:"user" default:"default"`
		Password    string        `yaml:"password"`
		UseHTTP     bool          `yaml:"use_http"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"chartcrime.rotation"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"kafka"`
	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Schedule struct {
		Cron       string `yaml:"cron" default:"0 30 22 * * *"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
}

var validate = validator.New()

// Load reads a YAML configuration file on top of the defaults.
// An empty path yields the defaults alone.
func Load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A .env file in the working directory is honored when present.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FRED_API_KEY"); v != "" {
		c.Fred.APIKey = v
	}
	if v := os.Getenv("FRED_MIN_REQUEST_INTERVAL_S"); v != "" {
		secs := util.ParseFloatDefault(v, c.Fred.MinRequestInterval.Seconds())
		c.Fred.MinRequestInterval = time.Duration(secs * float64(time.Second))
	}
	if v := os.Getenv("FRED_MAX_RETRIES"); v != "" {
		c.Fred.MaxRetries = util.ParseIntDefault(v, c.Fred.MaxRetries)
	}
	if v := os.Getenv("FRED_MAX_BACKOFF_S"); v != "" {
		secs := util.ParseFloatDefault(v, c.Fred.MaxBackoff.Seconds())
		c.Fred.MaxBackoff = time.Duration(secs * float64(time.Second))
	}
	if v := os.Getenv("FRED_RECENT_WINDOW_DAYS"); v != "" {
		c.Discovery.RecentWindowDays = util.ParseIntDefault(v, c.Discovery.RecentWindowDays)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitCSV(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CHARTCRIME_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}

// RequireAPIKey fails when the data API credential is absent.
func (c *Config) RequireAPIKey() error {
	if c.Fred.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}
