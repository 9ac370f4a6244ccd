// Package config loads daemon configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all tunables. Defaults match the original trackside
// installation (two lanes, five lights, 1–4 s randomized hold).
type Config struct {
	Addr     string `env:"RACECTL_ADDR" envDefault:":8000"`
	Debug    bool   `env:"RACECTL_DEBUG" envDefault:"false"`
	ClientID string `env:"RACECTL_MQTT_CLIENT_ID" envDefault:"racectl"`

	BrokerURL   string `env:"RACECTL_BROKER_URL" envDefault:"tcp://localhost:1883"`
	StartTopic  string `env:"RACECTL_TOPIC_START" envDefault:"carrera/race/start"`
	Track1Topic string `env:"RACECTL_TOPIC_TRACK1" envDefault:"sensor/schiene_1"`
	Track2Topic string `env:"RACECTL_TOPIC_TRACK2" envDefault:"sensor/schiene_2"`

	Lights        int           `env:"RACECTL_LIGHTS" envDefault:"5"`
	LightInterval time.Duration `env:"RACECTL_LIGHT_INTERVAL" envDefault:"1s"`
	HoldMin       time.Duration `env:"RACECTL_HOLD_MIN" envDefault:"1s"`
	HoldMax       time.Duration `env:"RACECTL_HOLD_MAX" envDefault:"4s"`

	// MinLap rejects a second trigger of the same gate arriving within an
	// implausibly short interval. 0 disables the guard.
	MinLap time.Duration `env:"RACECTL_MIN_LAP" envDefault:"0s"`
}

// Load parses configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Lights < 1 {
		return Config{}, fmt.Errorf("RACECTL_LIGHTS must be at least 1, got %d", cfg.Lights)
	}
	if cfg.HoldMax < cfg.HoldMin {
		return Config{}, fmt.Errorf("RACECTL_HOLD_MAX (%s) is below RACECTL_HOLD_MIN (%s)", cfg.HoldMax, cfg.HoldMin)
	}
	return cfg, nil
}

// SensorTopics maps each finish-gate topic to its track id.
func (c Config) SensorTopics() map[string]int {
	return map[string]int{
		c.Track1Topic: 1,
		c.Track2Topic: 2,
	}
}
