package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/souravmenon1999/hitbtc-gateway/internal/types"
)

// Config holds the application configuration.
type Config struct {
	HitBTC HitBTCConfig `mapstructure:"hitbtc"`
	Log    LogConfig    `mapstructure:"log"`
}

// HitBTCConfig holds venue connectivity settings.
type HitBTCConfig struct {
	MarketWSURL  string `mapstructure:"market_ws_url"`
	TradeWSURL   string `mapstructure:"trade_ws_url"`
	TradingWSURL string `mapstructure:"trading_ws_url"`
	RestURL      string `mapstructure:"rest_url"`
	APIKey       string `mapstructure:"api_key"`
	APISecret    string `mapstructure:"api_secret"`

	// Trading pair to resolve against the venue's symbol table.
	BaseCurrency  string `mapstructure:"base_currency"`
	QuoteCurrency string `mapstructure:"quote_currency"`

	BalancePollInterval time.Duration `mapstructure:"balance_poll_interval"`
	TradeBackfillCount  int           `mapstructure:"trade_backfill_count"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads configuration from a yaml file.
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("hitbtc.balance_poll_interval", 15*time.Second)
	viper.SetDefault("hitbtc.trade_backfill_count", 100)
	viper.SetDefault("log.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		return nil, types.TradingError{
			Code:    types.ErrConfigLoading,
			Message: "failed to read config file",
			Wrapped: err,
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, types.TradingError{
			Code:    types.ErrConfigLoading,
			Message: "failed to unmarshal config",
			Wrapped: err,
		}
	}

	return &cfg, nil
}
