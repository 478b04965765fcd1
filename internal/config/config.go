package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultWindowSize   = 30 * time.Minute
	defaultRowCap       = 100000
	defaultIndexPattern = "telemetry-*"
	defaultTimeField    = "timestamp"
	defaultVehicleField = "vehicle_id"
	defaultLogLevel     = "info"
	defaultLogFormat    = "console"
	defaultLogFile      = false
	defaultLogDirectory = "log"
	defaultLogFilename  = "fleetscan.log"
	defaultLogMaxSizeMB = 100
	defaultLogMaxBackup = 3
	defaultLogMaxAge    = 7
	defaultLogCompress  = false

	// Environment variable prefix
	envPrefix = "FLEETSCAN"
)

type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Run       RunConfig       `mapstructure:"run"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Log       LogConfig       `mapstructure:"log"`
}

// StoreConfig describes the Elasticsearch cluster holding the telemetry.
type StoreConfig struct {
	Addresses    []string `mapstructure:"addresses"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	IndexPattern string   `mapstructure:"indexPattern"`
	TimeField    string   `mapstructure:"timeField"`
	VehicleField string   `mapstructure:"vehicleField"`
}

// AnalysisConfig holds the knobs of the windowed coverage analysis.
// GapThreshold has no default on purpose: the acceptable inter-sample
// period is a property of the recording platform and must be supplied.
type AnalysisConfig struct {
	WindowSize             time.Duration `mapstructure:"windowSize"`
	RowCap                 int           `mapstructure:"rowCap"`
	GapThreshold           time.Duration `mapstructure:"gapThreshold"`
	CarryGapsAcrossWindows bool          `mapstructure:"carryGapsAcrossWindows"`
}

// RunConfig identifies what to analyze: one vehicle over one wall-clock
// range expressed in a named IANA timezone. All values are validated and
// localized to UTC before any query is issued.
type RunConfig struct {
	VehicleID      string `mapstructure:"vehicleID"`
	StartDate      string `mapstructure:"startDate"`
	StartTime      string `mapstructure:"startTime"`
	EndDate        string `mapstructure:"endDate"`
	EndTime        string `mapstructure:"endTime"`
	Timezone       string `mapstructure:"timezone"`
	ChannelMapFile string `mapstructure:"channelMapFile"`
	OutputCSV      string `mapstructure:"outputCSV"`
	Aggregate      bool   `mapstructure:"aggregate"`
}

// PublisherConfig configures the optional Kafka result publisher.
// Publishing is disabled when Brokers is empty.
type PublisherConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LogConfig struct {
	Level              string `mapstructure:"level"`
	Format             string `mapstructure:"format"`
	FileLoggingEnabled bool   `mapstructure:"fileLoggingEnabled"`
	Directory          string `mapstructure:"directory"`
	Filename           string `mapstructure:"filename"`
	MaxSize            int    `mapstructure:"maxSize"`    // Max size in MB
	MaxBackups         int    `mapstructure:"maxBackups"` // Max backup files
	MaxAge             int    `mapstructure:"maxAge"`     // Max days to retain
	Compress           bool   `mapstructure:"compress"`
}

// Load initializes viper, reads config, applies defaults, and unmarshals.
// It does not validate: run parameters may still be overridden by
// command-line flags, so callers invoke Validate once all overrides are in.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	configureViper(v, configPath)
	setDefaults(v)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmarshallingConfig, err)
	}

	return &cfg, nil
}

// configureViper sets up the viper instance for file and environment variables.
func configureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// AutomaticEnv only resolves keys viper already knows about, so keys
	// without a default or file entry (notably analysis.gapThreshold) are
	// bound explicitly to make env-only operation work.
	for _, key := range envBoundKeys {
		_ = v.BindEnv(key)
	}
}

// envBoundKeys lists every configuration key that may be supplied purely
// through a FLEETSCAN_* environment variable.
var envBoundKeys = []string{
	"store.addresses",
	"store.username",
	"store.password",
	"store.indexPattern",
	"store.timeField",
	"store.vehicleField",
	"analysis.windowSize",
	"analysis.rowCap",
	"analysis.gapThreshold",
	"analysis.carryGapsAcrossWindows",
	"run.vehicleID",
	"run.startDate",
	"run.startTime",
	"run.endDate",
	"run.endTime",
	"run.timezone",
	"run.channelMapFile",
	"run.outputCSV",
	"run.aggregate",
	"publisher.brokers",
	"publisher.topic",
	"log.level",
	"log.format",
	"log.fileLoggingEnabled",
	"log.directory",
	"log.filename",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.indexPattern", defaultIndexPattern)
	v.SetDefault("store.timeField", defaultTimeField)
	v.SetDefault("store.vehicleField", defaultVehicleField)
	v.SetDefault("analysis.windowSize", defaultWindowSize)
	v.SetDefault("analysis.rowCap", defaultRowCap)
	v.SetDefault("analysis.carryGapsAcrossWindows", false)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.format", defaultLogFormat)
	v.SetDefault("log.fileLoggingEnabled", defaultLogFile)
	v.SetDefault("log.directory", defaultLogDirectory)
	v.SetDefault("log.filename", defaultLogFilename)
	v.SetDefault("log.maxSize", defaultLogMaxSizeMB)
	v.SetDefault("log.maxBackups", defaultLogMaxBackup)
	v.SetDefault("log.maxAge", defaultLogMaxAge)
	v.SetDefault("log.compress", defaultLogCompress)
}

// readConfigFile attempts to read the configuration file specified in viper.
func readConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return ErrConfigFileMissing
		}
		return fmt.Errorf("%w: %w", ErrReadingConfigFile, err)
	}
	return nil
}

// Validate checks the configuration after any command-line overrides have
// been applied, so it is exported rather than private to Load.
func Validate(cfg *Config) error {
	if len(cfg.Store.Addresses) == 0 {
		return ErrEmptyStoreAddresses
	}
	if cfg.Analysis.WindowSize <= 0 {
		return ErrInvalidWindowSize
	}
	if cfg.Analysis.RowCap <= 0 {
		return ErrInvalidRowCap
	}
	if cfg.Analysis.GapThreshold <= 0 {
		return ErrMissingGapThreshold
	}
	if cfg.Run.VehicleID == "" {
		return ErrEmptyVehicleID
	}
	if len(cfg.Publisher.Brokers) > 0 && cfg.Publisher.Topic == "" {
		return ErrEmptyPublisherTopic
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, cfg.Log.Format)
	}
	return nil
}
