package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Broker BrokerConfig `yaml:"broker"`
	API    APIConfig    `yaml:"api"`
	User   UserConfig   `yaml:"user"`
	Relay  RelayConfig  `yaml:"relay"`
}

type BrokerConfig struct {
	// URL is the websocket endpoint the STOMP session runs over.
	URL string `yaml:"url"`
}

type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

type UserConfig struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

type RelayConfig struct {
	Listen string `yaml:"listen"`
}

// Default points everything at a locally running relay.
func Default() Config {
	return Config{
		Broker: BrokerConfig{URL: "ws://127.0.0.1:3000/ws"},
		API:    APIConfig{BaseURL: "http://127.0.0.1:3000"},
		User:   UserConfig{ID: 1, Name: "dev"},
		Relay:  RelayConfig{Listen: "127.0.0.1:3000"},
	}
}

// Load reads path over the defaults. A missing file is not an error; the
// defaults stand.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
