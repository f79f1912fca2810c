package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string        `yaml:"environment" default:"development"`
	Server      ServerConfig  `yaml:"server"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Logging     LoggingConfig `yaml:"logging"`
	Kafka       KafkaConfig   `yaml:"kafka"`
	ClickHouse  ClickHouse    `yaml:"clickhouse"`
	Cache       CacheConfig   `yaml:"cache"`
	Candles     CandlesConfig `yaml:"candles"`
	Binance     BinanceConfig `yaml:"binance"`
	Scoring     ScoringConfig `yaml:"scoring"`
	Forbidden   Forbidden     `yaml:"forbidden"`
	Journal     JournalConfig `yaml:"journal"`
	Ingest      IngestConfig  `yaml:"ingest"`
}

type ServerConfig struct {
	Enabled         bool          `yaml:"enabled" default:"true"`
	Port            int           `yaml:"port" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	RateLimit       int           `yaml:"rate_limit" default:"50"` // requests per second per client, 0 disables
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"json"`
	Output string `yaml:"output" default:"stdout"`
	// CollectorTopic enables error-log aggregation to Kafka when set.
	CollectorTopic    string        `yaml:"collector_topic"`
	CollectorInterval time.Duration `yaml:"collector_interval" default:"30s"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled" default:"true"`
	Brokers      []string `yaml:"brokers" default:"[\"localhost:9092\"]"`
	InTopic      string   `yaml:"in_topic" default:"trade.raw"`
	OutTopic     string   `yaml:"out_topic" default:"trade.score"`
	RequiredAcks int      `yaml:"required_acks" default:"-1"`
	Compression  string   `yaml:"compression" default:"gzip"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		Linger       time.Duration `yaml:"linger" default:"10ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID     string        `yaml:"group_id" default:"tradescore_scorer_group"`
		StartOffset string        `yaml:"start_offset" default:"earliest"`
		Workers     int           `yaml:"workers" default:"1"`
		BufferSize  int           `yaml:"buffer_size" default:"10"`
		RetryMax    int           `yaml:"retry_max" default:"0"`
		BackoffMin  time.Duration `yaml:"backoff_min" default:"50ms"`
		BackoffMax  time.Duration `yaml:"backoff_max" default:"2s"`
		DLQTopic    string        `yaml:"dlq_topic"`
		MinBytes    int           `yaml:"min_bytes" default:"1"`
		MaxBytes    int           `yaml:"max_bytes" default:"10000000"`
		MaxWait     time.Duration `yaml:"max_wait" default:"500ms"`
	} `yaml:"consumer"`
}

type ClickHouse struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"tradescore"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert" default:"true"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	CandleTable      string        `yaml:"candle_table" default:"candles"`
	TradeTable       string        `yaml:"trade_table" default:"trade_scores"`
}

type CacheConfig struct {
	Enabled    bool          `yaml:"enabled" default:"true"`
	TTL        time.Duration `yaml:"ttl" default:"30s"`
	MaxEntries int           `yaml:"max_entries" default:"1024"`
	Redis      struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

type CandlesConfig struct {
	// Provider is one of clickhouse, binance, stream, synthetic.
	Provider     string        `yaml:"provider" default:"binance"`
	Timeframe    string        `yaml:"timeframe" default:"5m"`
	Lookback     int           `yaml:"lookback" default:"100"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" default:"5s"`
	StreamBuffer int           `yaml:"stream_buffer" default:"500"`
}

type BinanceConfig struct {
	RestURL        string        `yaml:"rest_url" default:"https://api.binance.com"`
	WebSocketURL   string        `yaml:"websocket_url" default:"wss://stream.binance.com:9443/stream"`
	Symbols        []string      `yaml:"symbols" default:"[\"BTCUSDT\",\"ETHUSDT\"]"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
	PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	RequestTimeout time.Duration `yaml:"request_timeout" default:"10s"`
}

type ScoringConfig struct {
	DefaultStrategy string        `yaml:"default_strategy" default:"BreakoutStrategy"`
	AccountEquity   float64       `yaml:"account_equity"`
	HistoryLimit    int           `yaml:"history_limit" default:"200"`
	HistoryWindow   time.Duration `yaml:"history_window" default:"168h"`
	PublishScores   bool          `yaml:"publish_scores" default:"true"`
	IncludeDetails  bool          `yaml:"include_details" default:"true"`
}

type Forbidden struct {
	MaxPositionRatio float64       `yaml:"max_position_ratio" default:"0.1"`
	RevengeWindow    time.Duration `yaml:"revenge_window" default:"30m"`
	MaxDailyTrades   int           `yaml:"max_daily_trades" default:"10"`
	ChaseThreshold   float64       `yaml:"chase_threshold" default:"0.05"`
	ChaseLookback    int           `yaml:"chase_lookback" default:"5"`
}

type JournalConfig struct {
	// Store is clickhouse or memory.
	Store     string `yaml:"store" default:"memory"`
	MemoryCap int    `yaml:"memory_cap" default:"10000"`
}

type IngestConfig struct {
	PerPairInterval time.Duration `yaml:"per_pair_interval" default:"0s"`
	BufferSize      int           `yaml:"buffer_size" default:"1000"`
}

// Default returns a config with every default tag applied.
func Default() *Config {
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return c
}

// Load reads a YAML file on top of the defaults. An empty path yields the defaults.
// Defaults go first so that an explicit false or 0 in the file is kept.
func Load(path string) (*Config, error) {
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML, applies environment overrides, then validates.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v := getenv(key); v != "" {
			*dst = splitList(v)
		}
	}

	str("ENVIRONMENT", &c.Environment)
	list("KAFKA_BROKERS", &c.Kafka.Brokers)
	str("KAFKA_IN_TOPIC", &c.Kafka.InTopic)
	str("KAFKA_OUT_TOPIC", &c.Kafka.OutTopic)
	str("KAFKA_GROUP_ID", &c.Kafka.Consumer.GroupID)
	str("CLICKHOUSE_HOST", &c.ClickHouse.Host)
	str("CLICKHOUSE_PASSWORD", &c.ClickHouse.Password)
	str("REDIS_ADDR", &c.Cache.Redis.Addr)
	str("REDIS_PASSWORD", &c.Cache.Redis.Password)
	str("CANDLE_PROVIDER", &c.Candles.Provider)
	str("JOURNAL_STORE", &c.Journal.Store)
	str("LOG_LEVEL", &c.Logging.Level)
	list("SYMBOLS", &c.Binance.Symbols)

	if v := getenv("HTTP_PORT"); v != "" {
		if port, err := cast.ToIntE(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := getenv("ACCOUNT_EQUITY"); v != "" {
		if eq, err := cast.ToFloat64E(v); err == nil {
			c.Scoring.AccountEquity = eq
		}
	}
	if v := getenv("KAFKA_ENABLED"); v != "" {
		if on, err := cast.ToBoolE(v); err == nil {
			c.Kafka.Enabled = on
		}
	}
	if v := getenv("CLICKHOUSE_ENABLED"); v != "" {
		if on, err := cast.ToBoolE(v); err == nil {
			c.ClickHouse.Enabled = on
		}
	}
	if v := getenv("REDIS_ENABLED"); v != "" {
		if on, err := cast.ToBoolE(v); err == nil {
			c.Cache.Redis.Enabled = on
		}
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty")
		}
		if c.Kafka.InTopic == "" || c.Kafka.OutTopic == "" {
			return fmt.Errorf("kafka.in_topic and kafka.out_topic are required")
		}
		if c.Kafka.InTopic == c.Kafka.OutTopic {
			return fmt.Errorf("kafka.in_topic and kafka.out_topic must differ, got %q", c.Kafka.InTopic)
		}
		if c.Kafka.Consumer.GroupID == "" {
			return fmt.Errorf("kafka.consumer.group_id is required")
		}
		if c.Kafka.Consumer.Workers < 1 {
			return fmt.Errorf("kafka.consumer.workers must be at least 1")
		}
	}
	switch c.Candles.Provider {
	case "binance", "stream", "synthetic":
	case "clickhouse":
		if !c.ClickHouse.Enabled {
			return fmt.Errorf("candles.provider 'clickhouse' requires clickhouse.enabled")
		}
	default:
		return fmt.Errorf("candles.provider must be one of clickhouse, binance, stream, synthetic, got '%s'", c.Candles.Provider)
	}
	if c.Candles.Lookback < 1 {
		return fmt.Errorf("candles.lookback must be positive")
	}
	switch c.Journal.Store {
	case "memory":
	case "clickhouse":
		if !c.ClickHouse.Enabled {
			return fmt.Errorf("journal.store 'clickhouse' requires clickhouse.enabled")
		}
	default:
		return fmt.Errorf("journal.store must be 'clickhouse' or 'memory', got '%s'", c.Journal.Store)
	}
	if c.Candles.Provider == "stream" && len(c.Binance.Symbols) == 0 {
		return fmt.Errorf("binance.symbols cannot be empty for the stream provider")
	}
	if c.Scoring.AccountEquity < 0 {
		return fmt.Errorf("scoring.account_equity cannot be negative")
	}
	return nil
}
