// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"payflow/pkg/db"
)

// AppConfig holds all application-wide configuration.
type AppConfig struct {
	Server ServerConfig `mapstructure:"server"`
	DB     db.Config    `mapstructure:"postgres"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Kafka  KafkaConfig  `mapstructure:"kafka"`
	Ledger LedgerConfig `mapstructure:"ledger"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	LedgerTopic string   `mapstructure:"ledger_topic"`
}

// LedgerConfig holds the business parameters of the ledger core.
type LedgerConfig struct {
	// DailyInterestRate is the fixed system-wide simple interest rate
	// per whole elapsed day, e.g. "0.0001" for 0.01%.
	DailyInterestRate decimal.Decimal `mapstructure:"-"`
	// WelcomeBonus is credited exactly once when an account is created.
	WelcomeBonus decimal.Decimal `mapstructure:"-"`
	// SystemCounterparty is the payment ID interest and bonus credits
	// are recorded against.
	SystemCounterparty string `mapstructure:"system_counterparty"`
	// PaymentIDSuffix is the domain part of derived payment IDs.
	PaymentIDSuffix string `mapstructure:"payment_id_suffix"`
	// ReviewAfterSeconds is how long a PENDING transfer may sit before
	// the reconciler settles it.
	ReviewAfterSeconds int `mapstructure:"review_after_seconds"`
	// OutboxMaxRetries caps delivery attempts before an outbox message
	// is marked failed.
	OutboxMaxRetries int `mapstructure:"outbox_max_retries"`

	// Raw decimal fields; viper cannot unmarshal into decimal.Decimal
	// directly, so these are parsed in LoadConfig.
	DailyInterestRateStr string `mapstructure:"daily_interest_rate"`
	WelcomeBonusStr      string `mapstructure:"welcome_bonus"`
}

// LoadConfig loads configuration from the given YAML file, with
// environment variables (prefix PAYFLOW_, dots replaced by
// underscores) taking precedence over file values.
func LoadConfig(configPath string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("PAYFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is tolerated: defaults plus environment
		// variables are a complete configuration for local runs. With
		// an explicit SetConfigFile path viper reports a plain
		// fs.ErrNotExist rather than ConfigFileNotFoundError, so both
		// are accepted here.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	rate, err := decimal.NewFromString(cfg.Ledger.DailyInterestRateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger.daily_interest_rate: %w", err)
	}
	bonus, err := decimal.NewFromString(cfg.Ledger.WelcomeBonusStr)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger.welcome_bonus: %w", err)
	}
	cfg.Ledger.DailyInterestRate = rate
	cfg.Ledger.WelcomeBonus = bonus

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "user")
	v.SetDefault("postgres.password", "password")
	v.SetDefault("postgres.dbname", "payflowdb")
	v.SetDefault("postgres.sslmode", "disable")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.ledger_topic", "payflow.ledger.events")

	v.SetDefault("ledger.daily_interest_rate", "0.0001")
	v.SetDefault("ledger.welcome_bonus", "30")
	v.SetDefault("ledger.system_counterparty", "bank@payflow")
	v.SetDefault("ledger.payment_id_suffix", "payflow")
	v.SetDefault("ledger.review_after_seconds", 300)
	v.SetDefault("ledger.outbox_max_retries", 5)
}
