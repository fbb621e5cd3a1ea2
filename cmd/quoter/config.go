package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL      string
	BlockNumber uint64
	LogLevel    string

	Pool        string
	TokenIn     string
	TokenOut    string
	AmountIn    string
	PriceLimit  string
	DecimalsIn  uint8
	DecimalsOut uint8

	Pools  []string
	Tokens []string

	Factories []string
	TokenA    string
	TokenB    string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("QUOTER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("quoter")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:      v.GetString("rpc"),
		BlockNumber: v.GetUint64("block"),
		LogLevel:    v.GetString("log-level"),
		Pool:        v.GetString("pool"),
		TokenIn:     v.GetString("token-in"),
		TokenOut:    v.GetString("token-out"),
		AmountIn:    v.GetString("amount-in"),
		PriceLimit:  v.GetString("price-limit"),
		DecimalsIn:  uint8(v.GetUint("decimals-in")),
		DecimalsOut: uint8(v.GetUint("decimals-out")),
		Pools:       v.GetStringSlice("pools"),
		Tokens:      v.GetStringSlice("tokens"),
		Factories:   v.GetStringSlice("factory"),
		TokenA:      v.GetString("token-a"),
		TokenB:      v.GetString("token-b"),
	}

	return cfg, nil
}
