package configs

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

type PoolServiceConfig struct {
	App      App
	DB       DB
	Logger   Logger
	Pool     Pool
	Settings ProposalSettings
}

func LoadPoolServiceConfig() (PoolServiceConfig, error) {
	var config PoolServiceConfig

	if err := env.Parse(&config); err != nil {
		return PoolServiceConfig{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

type ProposalSweepServiceConfig struct {
	App      App
	DB       DB
	Logger   Logger
	Notifier Notifier
}

func LoadProposalSweepServiceConfig() (ProposalSweepServiceConfig, error) {
	var config ProposalSweepServiceConfig

	if err := env.Parse(&config); err != nil {
		return ProposalSweepServiceConfig{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}
