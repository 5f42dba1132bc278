package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"UD_daily_rewards/internal/model"
	"UD_daily_rewards/internal/repository"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

const (
	storeDriverPostgres = "postgres"
	storeDriverMemory   = "memory"
)

type Config struct {
	Database repository.Config `yaml:"database"`
	Server   ServerConfig      `yaml:"server"`
	Store    StoreConfig       `yaml:"store"`

	TelegramAuth TelegramAuthConfig `yaml:"telegramAuth"`

	Rewards    model.Rewards    `yaml:"rewards"`
	DailyLogin DailyLoginConfig `yaml:"dailyLogin"`
	VipPass    VipPassConfig    `yaml:"vipPass"`

	LogLevel string `yaml:"logLevel"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
}

type TelegramAuthConfig struct {
	TelegramBotToken string `yaml:"telegramBotToken"`
	DebugMode        bool   `yaml:"debugMode"`
}

type DailyLoginConfig struct {
	RetentionDays int `yaml:"retentionDays"`
}

type VipPassConfig struct {
	DurationDays int `yaml:"durationDays"`
	PriceStars   int `yaml:"priceStars"`
}

func setDefaults(v *viper.Viper) {
	defaults := model.DefaultRewards()

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "daily_rewards")
	v.SetDefault("database.maxTxAttempts", repository.DefaultMaxTxAttempts)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8888")

	v.SetDefault("store.driver", storeDriverPostgres)

	v.SetDefault("telegramAuth.telegramBotToken", "")
	v.SetDefault("telegramAuth.debugMode", false)

	v.SetDefault("rewards.normal.coins", defaults.Normal.Coins)
	v.SetDefault("rewards.normal.gems", defaults.Normal.Gems)
	v.SetDefault("rewards.vip.coins", defaults.Vip.Coins)
	v.SetDefault("rewards.vip.gems", defaults.Vip.Gems)

	v.SetDefault("dailyLogin.retentionDays", 0)

	v.SetDefault("vipPass.durationDays", 30)
	v.SetDefault("vipPass.priceStars", 100)

	v.SetDefault("logLevel", "info")
}

// LoadConfig reads config.yaml from the working directory, letting APP_*
// variables (optionally from a .env file) override any key. A missing
// config file is not an error.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.AddConfigPath(configPath)
	v.SetConfigType(configFormat)

	v.AutomaticEnv()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case storeDriverPostgres, storeDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	for name, r := range map[string]model.Reward{"normal": c.Rewards.Normal, "vip": c.Rewards.Vip} {
		if r.Coins < 0 || r.Gems < 0 {
			return fmt.Errorf("rewards.%s must not be negative", name)
		}
	}

	if c.DailyLogin.RetentionDays < 0 {
		return errors.New("dailyLogin.retentionDays must not be negative")
	}

	if c.TelegramAuth.TelegramBotToken == "" && !c.TelegramAuth.DebugMode {
		return errors.New("telegramAuth.telegramBotToken is required unless debugMode is set")
	}

	return nil
}
