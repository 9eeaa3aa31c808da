// internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jason-s-yu/guandan/internal/database"
	"github.com/jason-s-yu/guandan/internal/game"
	"github.com/jason-s-yu/guandan/internal/room"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override, e.g. GUANDAN_GAME_TURN_SECONDS.
const EnvPrefix = "GUANDAN"

type Config struct {
	Port            int    `mapstructure:"port"`
	LogLevel        string `mapstructure:"log_level"`
	TokenExpireTime string `mapstructure:"token_expire_time"`
	NoDB            bool   `mapstructure:"no_db"`
	NoRedis         bool   `mapstructure:"no_redis"`

	Postgres PostgresConf `mapstructure:"postgres"`
	Redis    RedisConf    `mapstructure:"redis"`
	Game     GameConf     `mapstructure:"game"`
}

type PostgresConf struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Database string `mapstructure:"database"`
}

type RedisConf struct {
	Addr   string        `mapstructure:"addr"`
	DB     int           `mapstructure:"db"`
	LogTTL time.Duration `mapstructure:"log_ttl"`
}

type GameConf struct {
	ThinkingSeconds  int           `mapstructure:"thinking_seconds"`
	TurnSeconds      int           `mapstructure:"turn_seconds"`
	TimeUnit         time.Duration `mapstructure:"time_unit"`
	RoomLogCapacity  int           `mapstructure:"room_log_capacity"`
	PracticeHandSize int           `mapstructure:"practice_hand_size"`
}

// legacyEnv maps config keys to the unprefixed variable names older
// deployments set in their .env files.
var legacyEnv = map[string]string{
	"port":              "PORT",
	"log_level":         "LOG_LEVEL",
	"token_expire_time": "TOKEN_EXPIRE_TIME",
	"postgres.user":     "POSTGRES_USER",
	"postgres.password": "POSTGRES_PASSWORD",
	"postgres.host":     "PG_HOST",
	"postgres.port":     "PG_PORT",
	"postgres.database": "PG_DATABASE",
	"redis.addr":        "REDIS_ADDR",
	"redis.db":          "REDIS_DB",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("token_expire_time", "72h")
	v.SetDefault("no_db", false)
	v.SetDefault("no_redis", false)

	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.database", "guandan")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.log_ttl", "24h")

	timing := game.DefaultTimingRules()
	v.SetDefault("game.thinking_seconds", timing.ThinkingUnits)
	v.SetDefault("game.turn_seconds", timing.TurnUnits)
	v.SetDefault("game.time_unit", timing.TimeUnit.String())
	v.SetDefault("game.room_log_capacity", 100)
	v.SetDefault("game.practice_hand_size", 13)
}

// Load reads defaults, then the optional file at path, then the environment.
// Later sources win.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigType(strings.TrimPrefix(filepath.Ext(path), "."))
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	out := &Config{}
	if err := v.Unmarshal(out); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Timing converts the game section into timer rules.
func (c *Config) Timing() game.TimingRules {
	return game.TimingRules{
		ThinkingUnits: c.Game.ThinkingSeconds,
		TurnUnits:     c.Game.TurnSeconds,
		TimeUnit:      c.Game.TimeUnit,
	}
}

func (c *Config) RoomConfig() room.Config {
	return room.Config{
		Timing:           c.Timing(),
		LogCapacity:      c.Game.RoomLogCapacity,
		PracticeHandSize: c.Game.PracticeHandSize,
	}
}

func (c *Config) PostgresOptions() database.Options {
	return database.Options{
		User:     c.Postgres.User,
		Password: c.Postgres.Password,
		Host:     c.Postgres.Host,
		Port:     c.Postgres.Port,
		Database: c.Postgres.Database,
	}
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if err := c.Timing().Validate(); err != nil {
		return err
	}
	if c.Game.RoomLogCapacity <= 0 {
		return fmt.Errorf("room log capacity must be positive, got %d", c.Game.RoomLogCapacity)
	}
	if c.Game.PracticeHandSize < 0 || c.Game.PracticeHandSize > 27 {
		return fmt.Errorf("practice hand size out of range: %d", c.Game.PracticeHandSize)
	}
	return nil
}
