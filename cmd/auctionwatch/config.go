package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config drives one watcher instance. Values come from an optional yaml
// file, with environment variables taking precedence.
type Config struct {
	API struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"api"`
	Viewer struct {
		ID         string `yaml:"id"`
		Credential string `yaml:"credential"`
	} `yaml:"viewer"`
	MetricsAddr string `yaml:"metrics_addr"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	var config Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.API.BaseURL = getEnv("REBAY_API_URL", defaultString(config.API.BaseURL, "http://localhost:8080"))
	config.Viewer.ID = getEnv("REBAY_VIEWER_ID", config.Viewer.ID)
	config.Viewer.Credential = getEnv("REBAY_CREDENTIAL", config.Viewer.Credential)
	config.MetricsAddr = getEnv("METRICS_ADDR", defaultString(config.MetricsAddr, ":9190"))

	return &config, nil
}

func defaultString(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
