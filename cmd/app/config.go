package main

import (
	"fmt"
	"strings"

	"rewards_backend/internal/imagestore"
	"rewards_backend/internal/repository"

	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

type Config struct {
	Database repository.Config `yaml:"database"`
	Server   ServerConfig      `yaml:"server"`

	Auth    AuthConfig        `yaml:"auth"`
	Rewards RewardsConfig     `yaml:"rewards"`
	Storage imagestore.Config `yaml:"storage"`

	MigrationsDir string `yaml:"migrationsDir"`
	LogLevel      string `yaml:"logLevel"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type AuthConfig struct {
	DebugMode bool `yaml:"debugMode"`
}

type RewardsConfig struct {
	ExchangeRate float64 `yaml:"exchangeRate"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(configName)
	viper.AddConfigPath(configPath)
	viper.SetConfigType(configFormat)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
