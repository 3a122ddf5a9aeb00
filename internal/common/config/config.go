package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug  bool `env:"DEBUG" envDefault:"false"`
	Pretty bool `env:"LOG_PRETTY" envDefault:"false"`

	Server struct {
		Port         int           `env:"PORT" envDefault:"8080"`
		Origin       string        `env:"ORIGIN" envDefault:"http://localhost:3000"`
		ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	}

	Postgres struct {
		Host            string        `env:"POSTGRES_HOST" envDefault:"localhost"`
		Port            int           `env:"POSTGRES_PORT" envDefault:"5432"`
		User            string        `env:"POSTGRES_USER" envDefault:"postgres"`
		Password        string        `env:"POSTGRES_PASSWORD" envDefault:""`
		Database        string        `env:"POSTGRES_DB" envDefault:"loyalty"`
		SSLMode         string        `env:"POSTGRES_SSLMODE" envDefault:"disable"`
		MaxOpenConns    int           `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"25"`
		MaxIdleConns    int           `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"10"`
		ConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME" envDefault:"30m"`
		RunMigrations   bool          `env:"RUN_MIGRATIONS" envDefault:"false"`
	}

	Redis struct {
		Host           string        `env:"REDIS_HOST" envDefault:""`
		Port           int           `env:"REDIS_PORT" envDefault:"6379"`
		Password       string        `env:"REDIS_PASSWORD" envDefault:""`
		DB             int           `env:"REDIS_DB" envDefault:"0"`
		LeaderboardTTL time.Duration `env:"REDIS_LEADERBOARD_TTL" envDefault:"15s"`
		AnalyticsTTL   time.Duration `env:"REDIS_ANALYTICS_TTL" envDefault:"60s"`
	}

	Telegram struct {
		BotToken    string        `env:"BOT_TOKEN,required"`
		AdminIDs    []string      `env:"ADMIN_IDS" envSeparator:","`
		ChannelID   string        `env:"CHANNEL_ID" envDefault:""`
		InitDataTTL time.Duration `env:"INIT_DATA_TTL" envDefault:"24h"`
		APIBaseURL  string        `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
	}

	Ledger struct {
		Timezone string `env:"LEDGER_TIMEZONE" envDefault:"Asia/Kolkata"`
	}

	Rewards struct {
		Welcome  int64 `env:"REWARD_WELCOME" envDefault:"1000"`
		Wallet   int64 `env:"REWARD_WALLET" envDefault:"1000"`
		Channel  int64 `env:"REWARD_CHANNEL" envDefault:"500"`
		Referral int64 `env:"REWARD_REFERRAL" envDefault:"500"`
	}

	TonProof struct {
		Domain     string        `env:"TONPROOF_DOMAIN" envDefault:""`
		PayloadTTL time.Duration `env:"TONPROOF_PAYLOAD_TTL" envDefault:"5m"`
	}

	Kafka struct {
		Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
		Topic   string   `env:"KAFKA_TOPIC" envDefault:"points.awarded"`
	}

	Workers struct {
		Stream         string        `env:"RECONCILE_STREAM" envDefault:"ledger:reward-retries"`
		DeadStream     string        `env:"RECONCILE_DEAD_STREAM" envDefault:"ledger:reward-dead"`
		Group          string        `env:"RECONCILE_GROUP" envDefault:"ledger_reconcilers"`
		Consumer       string        `env:"RECONCILE_CONSUMER" envDefault:"reconciler_1"`
		MaxAttempts    int           `env:"RECONCILE_MAX_ATTEMPTS" envDefault:"5"`
		ReclaimIdle    time.Duration `env:"RECONCILE_RECLAIM_IDLE" envDefault:"2m"`
		ReclaimEvery   time.Duration `env:"RECONCILE_RECLAIM_EVERY" envDefault:"1m"`
		WarmCacheEvery time.Duration `env:"LEADERBOARD_WARM_EVERY" envDefault:"30s"`
	}

	RateLimit struct {
		RPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"2"`
		Burst int     `env:"RATE_LIMIT_BURST" envDefault:"5"`
	}
}

// Load reads .env when present and parses the environment.
func Load() (*Config, error) {
	// A missing .env is normal in production where variables are injected.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadPostgres parses only the Postgres section, for tools that do not need
// the bot token.
func LoadPostgres() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(&cfg.Postgres); err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	return cfg, nil
}

// PostgresDSN builds a lib/pq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host, c.Postgres.Port, c.Postgres.User, c.Postgres.Password, c.Postgres.Database, c.Postgres.SSLMode)
}

// PostgresURL builds the URL form required by golang-migrate.
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Postgres.User, c.Postgres.Password, c.Postgres.Host, c.Postgres.Port, c.Postgres.Database, c.Postgres.SSLMode)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// AdminIDs parses ADMIN_IDS, skipping malformed entries.
func (c *Config) AdminIDs() []int64 {
	ids := make([]int64, 0, len(c.Telegram.AdminIDs))
	for _, raw := range c.Telegram.AdminIDs {
		if id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
