package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"merchant-sim/internal/domain/entities"
	domainerrors "merchant-sim/internal/domain/errors"
)

const defaultSaleInterval = 30 * time.Second

// Roster is the YAML document listing every simulated merchant
type Roster struct {
	Merchants []RosterEntry `yaml:"merchants"`
}

// RosterEntry is one merchant's raw roster record
type RosterEntry struct {
	MerchantID       string   `yaml:"merchant_id"`
	EstateID         string   `yaml:"estate_id"`
	DeviceID         string   `yaml:"device_id"`
	Name             string   `yaml:"name"`
	ClientID         string   `yaml:"client_id"`
	ClientSecret     string   `yaml:"client_secret"`
	SaleInterval     string   `yaml:"sale_interval"`
	FailureRate      float64  `yaml:"failure_rate"`
	DepositThreshold float64  `yaml:"deposit_threshold"`
	DepositAmount    float64  `yaml:"deposit_amount"`
	OpeningTime      string   `yaml:"opening_time"`
	ClosingTime      string   `yaml:"closing_time"`
	Enabled          bool     `yaml:"enabled"`
	RequiresEndOfDay bool     `yaml:"requires_end_of_day"`
	Contracts        []string `yaml:"contracts"`
}

// LoadRoster reads and validates the merchant roster file
func LoadRoster(path string) ([]entities.MerchantConfig, error) {
	var roster Roster
	if err := cleanenv.ReadConfig(path, &roster); err != nil {
		return nil, fmt.Errorf("failed to read roster %s: %w", path, err)
	}
	if len(roster.Merchants) == 0 {
		return nil, fmt.Errorf("%w: roster %s lists no merchants", domainerrors.ErrInvalidConfig, path)
	}

	seen := make(map[string]bool, len(roster.Merchants))
	configs := make([]entities.MerchantConfig, 0, len(roster.Merchants))
	for _, entry := range roster.Merchants {
		cfg, err := entry.toConfig()
		if err != nil {
			return nil, err
		}
		if seen[cfg.MerchantID] {
			return nil, fmt.Errorf("%w: duplicate merchant id %s", domainerrors.ErrInvalidConfig, cfg.MerchantID)
		}
		seen[cfg.MerchantID] = true
		configs = append(configs, cfg)
	}
	return configs, nil
}

func (e RosterEntry) toConfig() (entities.MerchantConfig, error) {
	if e.MerchantID == "" {
		return entities.MerchantConfig{}, fmt.Errorf("%w: roster entry missing merchant_id", domainerrors.ErrInvalidConfig)
	}

	opening, err := entities.ParseTimeOfDay(e.OpeningTime)
	if err != nil {
		return entities.MerchantConfig{}, fmt.Errorf("%w: merchant %s opening_time: %v", domainerrors.ErrInvalidConfig, e.MerchantID, err)
	}
	closing, err := entities.ParseTimeOfDay(e.ClosingTime)
	if err != nil {
		return entities.MerchantConfig{}, fmt.Errorf("%w: merchant %s closing_time: %v", domainerrors.ErrInvalidConfig, e.MerchantID, err)
	}

	interval := defaultSaleInterval
	if e.SaleInterval != "" {
		interval, err = time.ParseDuration(e.SaleInterval)
		if err != nil {
			return entities.MerchantConfig{}, fmt.Errorf("%w: merchant %s sale_interval: %v", domainerrors.ErrInvalidConfig, e.MerchantID, err)
		}
		if interval <= 0 {
			interval = defaultSaleInterval
		}
	}

	failureRate := e.FailureRate
	if failureRate < 0 {
		failureRate = 0
	}
	if failureRate > 1 {
		failureRate = 1
	}

	return entities.MerchantConfig{
		MerchantID:       e.MerchantID,
		EstateID:         e.EstateID,
		DeviceID:         e.DeviceID,
		Name:             e.Name,
		ClientID:         e.ClientID,
		ClientSecret:     e.ClientSecret,
		SaleInterval:     interval,
		FailureRate:      failureRate,
		DepositThreshold: e.DepositThreshold,
		DepositAmount:    e.DepositAmount,
		OpeningTime:      opening,
		ClosingTime:      closing,
		Enabled:          e.Enabled,
		RequiresEndOfDay: e.RequiresEndOfDay,
		ContractIDs:      e.Contracts,
	}, nil
}
