package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

const DefaultIDMappingURL = "http://mac.citi.sinica.edu.tw/ikala/id_mapping.txt"

type Config struct {
	DataDir      string `json:"data_dir"       yaml:"data_dir"`
	IDMappingURL string `json:"id_mapping_url" yaml:"id_mapping_url"`
}

func (cfg *Config) validate() error {
	if cfg.DataDir == "" {
		return errors.New("data dir is empty")
	}

	if cfg.IDMappingURL == "" {
		cfg.IDMappingURL = DefaultIDMappingURL
	}
	if _, err := url.Parse(cfg.IDMappingURL); nil != err {
		return fmt.Errorf("ID mapping URL is invalid: %v", err)
	}

	return nil
}

func FromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if nil != err {
		return nil, fmt.Errorf("failed to read config file %q: %v", filePath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); nil != err {
		return nil, fmt.Errorf("failed to unmarshal config file %q: %v", filePath, err)
	}

	if err := cfg.validate(); nil != err {
		return nil, fmt.Errorf("validation failed: %v", err)
	}

	return &cfg, nil
}

func FromString(data string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(data), &cfg); nil != err {
		return nil, fmt.Errorf("failed to unmarshal config: %v", err)
	}

	if err := cfg.validate(); nil != err {
		return nil, fmt.Errorf("validation failed: %v", err)
	}

	return &cfg, nil
}
