// Package config provides configuration management for the virtustack
// simulator.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/virtustack/virtustack/internal/scheduler"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Scheduler scheduler.Config `mapstructure:"scheduler"`
	Sim       SimConfig        `mapstructure:"sim"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	CORS      CORSConfig       `mapstructure:"cors"`
}

// ServerConfig holds the observation HTTP server configuration.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// Address returns the server address string.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SimConfig describes the synthetic topology and workload the simulator
// drives when run from the command line.
type SimConfig struct {
	// Seed feeds every pseudo-random stream; runs with equal seeds are
	// identical.
	Seed int64 `mapstructure:"seed"`

	HostCount      int   `mapstructure:"host_count"`
	HostCores      int   `mapstructure:"host_cores"`
	HostMemory     int64 `mapstructure:"host_memory"`
	ServerCount    int   `mapstructure:"server_count"`
	MaxServerCores int   `mapstructure:"max_server_cores"`
	MaxServerMem   int64 `mapstructure:"max_server_memory"`

	// SubmitWindow is the virtual time span over which submissions arrive.
	SubmitWindow int64 `mapstructure:"submit_window"`

	// MaxRuntime bounds the random workload duration of each server.
	MaxRuntime int64 `mapstructure:"max_runtime"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS configuration for the observation server.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("VIRTUSTACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Scheduler.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scheduler config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)

	// Scheduler
	v.SetDefault("scheduler.placement_strategy", "first-fit")
	v.SetDefault("scheduler.scheduling_quantum", 60)

	// Simulation
	v.SetDefault("sim.seed", 1)
	v.SetDefault("sim.host_count", 4)
	v.SetDefault("sim.host_cores", 16)
	v.SetDefault("sim.host_memory", 65536)
	v.SetDefault("sim.server_count", 32)
	v.SetDefault("sim.max_server_cores", 4)
	v.SetDefault("sim.max_server_memory", 8192)
	v.SetDefault("sim.submit_window", 600)
	v.SetDefault("sim.max_runtime", 3600)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// CORS
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "OPTIONS"})
}
