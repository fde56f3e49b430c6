// Package config loads application settings from an app.env file or the
// environment, with environment variables taking precedence.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting the server needs at startup. The fleet
// capacity default and the completion-delay policy are configuration, not
// literals, so they can be tuned per deployment.
type Config struct {
	ServerPort   string `mapstructure:"SERVER_PORT"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	JWTSecret    string `mapstructure:"JWT_SECRET"`
	ClientOrigin string `mapstructure:"CLIENT_ORIGIN"`

	GoogleMapsAPIKey string `mapstructure:"GOOGLE_MAPS_API_KEY"`
	DepotAddress     string `mapstructure:"DEPOT_ADDRESS"`

	// FleetCapacityLbs is the weight capacity assumed for vehicles whose row
	// does not carry an explicit capacity.
	FleetCapacityLbs float64 `mapstructure:"FLEET_CAPACITY_LBS"`

	// CompletionDelayScale is the fraction of a route's total ETA the
	// completion timer actually waits before reconciling the batch.
	CompletionDelayScale float64 `mapstructure:"COMPLETION_DELAY_SCALE"`
	// CompletionMinDelay floors the completion timer so short routes still
	// get a strictly positive, observable in-transit window.
	CompletionMinDelay time.Duration `mapstructure:"COMPLETION_MIN_DELAY"`

	AWSRegion string `mapstructure:"AWS_REGION"`
	EmailFrom string `mapstructure:"EMAIL_FROM"`
}

// LoadConfig reads configuration from app.env in the given directory, if
// present, then overlays environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("CLIENT_ORIGIN", "http://localhost:5173")
	v.SetDefault("DEPOT_ADDRESS", "")
	v.SetDefault("FLEET_CAPACITY_LBS", 200.0)
	v.SetDefault("COMPLETION_DELAY_SCALE", 0.1)
	v.SetDefault("COMPLETION_MIN_DELAY", 30*time.Second)
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("EMAIL_FROM", "dispatch@example.com")

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; everything can come from the environment.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read %s/app.env: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if cfg.CompletionDelayScale <= 0 {
		return nil, fmt.Errorf("config: COMPLETION_DELAY_SCALE must be positive, got %v", cfg.CompletionDelayScale)
	}
	if cfg.CompletionMinDelay <= 0 {
		return nil, fmt.Errorf("config: COMPLETION_MIN_DELAY must be positive, got %v", cfg.CompletionMinDelay)
	}
	if cfg.FleetCapacityLbs <= 0 {
		return nil, fmt.Errorf("config: FLEET_CAPACITY_LBS must be positive, got %v", cfg.FleetCapacityLbs)
	}
	return cfg, nil
}
