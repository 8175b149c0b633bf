package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Proximity ProximityConfig `mapstructure:"proximity"`
	Persist   PersistConfig   `mapstructure:"persist"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Rooms     RoomsConfig     `mapstructure:"rooms"`
}

type ServerConfig struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`
	Secret     string        `mapstructure:"secret"`

	// "kick" evicts a session whose queue is full, "drop" discards the frame.
	Backpressure string `mapstructure:"backpressure"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type AuthConfig struct {
	// jwt: bearer tokens signed with JWTSecret. store: the credential is a
	// user id that must exist in the database.
	Mode      string `mapstructure:"mode"`
	JWTSecret string `mapstructure:"jwt_secret"`
	// Admins may call the broadcast and geofence management endpoints.
	Admins []string `mapstructure:"admins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

type ProximityConfig struct {
	ThresholdMeters  float64       `mapstructure:"threshold_meters"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
	PairStaleness    time.Duration `mapstructure:"pair_staleness"`
	HistoryInterval  time.Duration `mapstructure:"history_interval"`
	HistoryRetention time.Duration `mapstructure:"history_retention"`
	HistoryLimit     int           `mapstructure:"history_limit"`
}

type PersistConfig struct {
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type ChatConfig struct {
	RatePerSecond  float64 `mapstructure:"rate_per_second"`
	Burst          int     `mapstructure:"burst"`
	RecentMessages int     `mapstructure:"recent_messages"`
	MaxLength      int     `mapstructure:"max_length"`
}

type RoomsConfig struct {
	LookupTimeout time.Duration `mapstructure:"lookup_timeout"`
	Rejoin        bool          `mapstructure:"rejoin"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.static_path", "./web")
	v.SetDefault("server.read_limit", 32768)
	v.SetDefault("server.ping_period", "54s")
	v.SetDefault("server.pong_wait", "60s")
	v.SetDefault("server.write_wait", "10s")
	v.SetDefault("server.send_buffer", 64)
	v.SetDefault("server.secret", "change-me")
	v.SetDefault("server.backpressure", "kick")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)

	v.SetDefault("auth.mode", "store")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "nearby.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.prefix", "nearby:")
	v.SetDefault("redis.ttl", "1m")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "nearby.events")

	v.SetDefault("proximity.threshold_meters", 100)
	v.SetDefault("proximity.sweep_interval", "30s")
	v.SetDefault("proximity.pair_staleness", "5m")
	v.SetDefault("proximity.history_interval", "1h")
	v.SetDefault("proximity.history_retention", "2h")
	v.SetDefault("proximity.history_limit", 100)

	v.SetDefault("persist.workers", 2)
	v.SetDefault("persist.queue_size", 1024)
	v.SetDefault("persist.timeout", "5s")

	v.SetDefault("chat.rate_per_second", 5)
	v.SetDefault("chat.burst", 10)
	v.SetDefault("chat.recent_messages", 50)
	v.SetDefault("chat.max_length", 2000)

	v.SetDefault("rooms.lookup_timeout", "3s")
	v.SetDefault("rooms.rejoin", true)
}

var envBindings = map[string]string{
	"server.port":     "PORT",
	"server.secret":   "SESSION_SECRET",
	"database.driver": "DATABASE_DRIVER",
	"database.dsn":    "DATABASE_DSN",
	"auth.jwt_secret": "JWT_SECRET",
	"redis.address":   "REDIS_ADDRESS",
	"redis.password":  "REDIS_PASSWORD",
	"kafka.brokers":   "KAFKA_BROKERS",
	"log.level":       "LOG_LEVEL",
}

func Load() (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err == nil {
		log.Info().Str("module", "config").Msg("loaded .env")
	}

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile reads fileName on top of the defaults. A missing file is not an error.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Server.Mode).Int("port", cfg.Server.Port).
		Str("db", cfg.Database.Driver).Str("auth", cfg.Auth.Mode).Msg("config ready")
	return &cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Auth.Mode) {
	case "store":
	case "jwt":
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret is required in jwt mode")
		}
	default:
		return fmt.Errorf("unknown auth.mode %q", c.Auth.Mode)
	}
	switch c.Server.Backpressure {
	case "kick", "drop":
	default:
		return fmt.Errorf("unknown server.backpressure %q", c.Server.Backpressure)
	}
	if c.Proximity.ThresholdMeters <= 0 {
		return fmt.Errorf("proximity.threshold_meters must be positive")
	}
	return nil
}
