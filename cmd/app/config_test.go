package main

import (
	"testing"

	"UD_daily_rewards/internal/model"
	"UD_daily_rewards/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsAndEnv(t *testing.T) {
	t.Setenv("APP_STORE_DRIVER", "memory")
	t.Setenv("APP_TELEGRAMAUTH_DEBUGMODE", "true")
	t.Setenv("APP_REWARDS_VIP_COINS", "500")
	t.Setenv("APP_DAILYLOGIN_RETENTIONDAYS", "30")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, storeDriverMemory, cfg.Store.Driver)
	assert.True(t, cfg.TelegramAuth.DebugMode)
	assert.Equal(t, int64(500), cfg.Rewards.Vip.Coins)
	assert.Equal(t, int64(15), cfg.Rewards.Vip.Gems)
	assert.Equal(t, model.DefaultRewards().Normal, cfg.Rewards.Normal)
	assert.Equal(t, 30, cfg.DailyLogin.RetentionDays)
	assert.Equal(t, repository.DefaultMaxTxAttempts, cfg.Database.MaxTxAttempts)
	assert.Equal(t, "8888", cfg.Server.Port)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Store:        StoreConfig{Driver: storeDriverPostgres},
			TelegramAuth: TelegramAuthConfig{TelegramBotToken: "123:abc"},
			Rewards:      model.DefaultRewards(),
		}
	}

	tests := []struct {
		name      string
		mutate    func(c *Config)
		expectErr bool
	}{
		{name: "Valid", mutate: func(c *Config) {}},
		{name: "Unknown driver", mutate: func(c *Config) { c.Store.Driver = "redis" }, expectErr: true},
		{name: "Negative reward", mutate: func(c *Config) { c.Rewards.Vip.Gems = -1 }, expectErr: true},
		{name: "Negative retention", mutate: func(c *Config) { c.DailyLogin.RetentionDays = -1 }, expectErr: true},
		{name: "No token outside debug", mutate: func(c *Config) { c.TelegramAuth.TelegramBotToken = "" }, expectErr: true},
		{name: "No token in debug", mutate: func(c *Config) {
			c.TelegramAuth.TelegramBotToken = ""
			c.TelegramAuth.DebugMode = true
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
