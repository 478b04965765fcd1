package config

import "errors"

var (
	ErrReadingConfigFile   = errors.New("failed to read config file")
	ErrUnmarshallingConfig = errors.New("failed to unmarshal config")
	ErrConfigFileMissing   = errors.New("config file not found")
	ErrEmptyStoreAddresses = errors.New("store addresses list cannot be empty")
	ErrInvalidWindowSize   = errors.New("analysis windowSize must be positive")
	ErrInvalidRowCap       = errors.New("analysis rowCap must be positive")
	ErrMissingGapThreshold = errors.New("analysis gapThreshold must be set to a positive duration")
	ErrEmptyVehicleID      = errors.New("run vehicleID cannot be empty")
	ErrEmptyPublisherTopic = errors.New("publisher topic cannot be empty when brokers are configured")
	ErrInvalidLogFormat    = errors.New("log format must be console or json")
)
