package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSteps     = 100
	DefaultEnsemble  = 5
	DefaultBatchSize = 1
)

// Config describes one ensemble run as loaded from a YAML file.
type Config struct {
	Model  string             `yaml:"model"`
	Params map[string]float64 `yaml:"params"`
	Steps  int                `yaml:"steps"`

	Ensemble  int      `yaml:"ensemble"`
	Seeds     []uint32 `yaml:"seeds"`
	Parallel  bool     `yaml:"parallel"`
	BatchSize int      `yaml:"batch_size"`
	Workers   int      `yaml:"workers"`

	CollectEvery int  `yaml:"collect_every"`
	SkipInitial  bool `yaml:"skip_initial"`

	Output string `yaml:"output"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:     "walkers",
		Steps:     DefaultSteps,
		Ensemble:  DefaultEnsemble,
		BatchSize: DefaultBatchSize,
	}
}

// Load reads a config file over the defaults. Decoding is strict: an
// unrecognized key is an error, so a misspelled option fails loudly instead
// of being silently dropped.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
