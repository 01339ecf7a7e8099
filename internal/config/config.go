// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"raffle/internal/models"
)

// Config is the full process configuration.
type Config struct {
	Port    int  `env:"RAFFLE_PORT" envDefault:"8080"`
	Verbose bool `env:"RAFFLE_VERBOSE" envDefault:"false"`

	EntranceFee uint64        `env:"RAFFLE_ENTRANCE_FEE" envDefault:"100"`
	Interval    time.Duration `env:"RAFFLE_INTERVAL" envDefault:"30s"`

	KeeperSchedule string        `env:"RAFFLE_KEEPER_SCHEDULE" envDefault:"*/10 * * * * *"`
	OracleDelay    time.Duration `env:"RAFFLE_ORACLE_DELAY" envDefault:"2s"`

	SubscriptionID       uint64 `env:"RAFFLE_VRF_SUBSCRIPTION_ID" envDefault:"0"`
	GasLane              string `env:"RAFFLE_VRF_GAS_LANE"`
	RequestConfirmations uint16 `env:"RAFFLE_VRF_REQUEST_CONFIRMATIONS" envDefault:"3"`
	CallbackGasLimit     uint32 `env:"RAFFLE_VRF_CALLBACK_GAS_LIMIT" envDefault:"500000"`
	NumWords             uint32 `env:"RAFFLE_VRF_NUM_WORDS" envDefault:"1"`
}

// Load parses the RAFFLE_* environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Raffle returns the immutable engine configuration.
func (c Config) Raffle() models.Config {
	return models.Config{
		EntranceFee:          c.EntranceFee,
		Interval:             c.Interval,
		SubscriptionID:       c.SubscriptionID,
		GasLane:              c.GasLane,
		RequestConfirmations: c.RequestConfirmations,
		CallbackGasLimit:     c.CallbackGasLimit,
		NumWords:             c.NumWords,
	}
}
