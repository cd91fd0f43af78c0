package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config represents the plugin daemon configuration
type Config struct {
	Plugin     PluginConfig     `mapstructure:"plugin"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// PluginConfig contains the ledger session settings
type PluginConfig struct {
	Prefix    string          `mapstructure:"prefix" validate:"required"`
	Account   string          `mapstructure:"account" validate:"required,url"`
	Username  string          `mapstructure:"username"`
	Password  string          `mapstructure:"password" validate:"required"`
	Connector string          `mapstructure:"connector" validate:"omitempty,url"`
	Autofund  *AutofundConfig `mapstructure:"autofund"`
}

// AutofundConfig contains the debug auto-funding settings. Leave unset in
// production.
type AutofundConfig struct {
	Connector     string `mapstructure:"connector" validate:"omitempty,url"`
	AdminUsername string `mapstructure:"admin_username" validate:"required"`
	AdminPassword string `mapstructure:"admin_password" validate:"required"`
	Balance       string `mapstructure:"balance"`
}

// MonitoringConfig contains health/metrics endpoint settings
type MonitoringConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.host", "0.0.0.0")
	viper.SetDefault("monitoring.port", 9090)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")
}

func validate(config *Config) error {
	return validator.New().Struct(config)
}
