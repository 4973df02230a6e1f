package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config представляет структуру конфигурации для приложения.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Sweeper  SweeperConfig  `mapstructure:"sweeper"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AppConfig конфигурация HTTP сервера
type AppConfig struct {
	Port            string        `mapstructure:"port"`
	Env             string        `mapstructure:"env"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig конфигурация базы данных.
// Пустой DSN означает хранение в памяти.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	MigrateOnStart  bool          `mapstructure:"migrate_on_start"`
}

// RedisConfig конфигурация кеша каталога
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	PlanTTL  time.Duration `mapstructure:"plan_ttl"`
}

// KafkaConfig конфигурация публикации событий
type KafkaConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Brokers      []string `mapstructure:"brokers"`
	EnsureTopics bool     `mapstructure:"ensure_topics"`
}

// GRPCConfig конфигурация gRPC сервера
type GRPCConfig struct {
	Port string `mapstructure:"port"`
}

// AuthConfig конфигурация JWT
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// SweeperConfig конфигурация фоновой проверки истечения подписок.
// Interval 0 отключает фоновый запуск.
type SweeperConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// LoggingConfig конфигурация логгера
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// IsProduction сообщает, запущено ли приложение в production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.read_timeout", 10*time.Second)
	v.SetDefault("app.write_timeout", 10*time.Second)
	v.SetDefault("app.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)
	v.SetDefault("database.migrate_on_start", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.plan_ttl", 15*time.Minute)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.ensure_topics", true)

	v.SetDefault("grpc.port", "50051")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("sweeper.interval", time.Minute)
	v.SetDefault("logging.level", "info")
}

// LoadConfig загружает конфигурацию из .env, config.yml и переменных окружения.
// Файлы необязательны: переменные окружения (APP_PORT, DATABASE_DSN, ...) имеют приоритет.
func LoadConfig(envPath string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" && envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: failed to load %s: %w", envPath, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // Чтение переменных окружения

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	var verrs domain.ValidationErrors
	if c.App.Port == "" {
		verrs.Add("app.port", "is required")
	}
	if c.IsProduction() && c.Auth.JWTSecret == "" {
		verrs.Add("auth.jwt_secret", "is required in production")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		verrs.Add("kafka.brokers", "is required when kafka is enabled")
	}
	if c.Sweeper.Interval < 0 {
		verrs.Add("sweeper.interval", "must not be negative")
	}
	if verrs.HasErrors() {
		return fmt.Errorf("config: %w", verrs)
	}
	return nil
}
