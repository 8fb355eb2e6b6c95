package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// IndexConfig is the on-disk YAML configuration for an indexdb store.
type IndexConfig struct {
	APIVersion string     `yaml:"apiVersion"`
	Kind       string     `yaml:"kind"`
	Metadata   Metadata   `yaml:"metadata"`
	Spec       StoreSpec  `yaml:"spec"`
}

// Metadata names the configuration document, mirroring the teacher's
// resource-manifest shape.
type Metadata struct {
	Name string `yaml:"name"`
}

// StoreSpec holds the tunables the KV Store Adapter and Artifact
// Repository need at open time.
type StoreSpec struct {
	// StorePath is the directory that will contain v<FORMAT_VERSION>/.
	StorePath string `yaml:"storePath"`

	// InitialMapSize is the starting map size in bytes. Defaults to
	// 64 MiB when zero.
	InitialMapSize int64 `yaml:"initialMapSize,omitempty"`

	// MaxDBs bounds the number of named sub-databases the environment
	// will open; the schema currently defines 13.
	MaxDBs int `yaml:"maxDBs,omitempty"`

	// MaxMapGrowths caps the number of times increase_map_size may
	// double the map before giving up (default 6, per spec §4.6).
	MaxMapGrowths int `yaml:"maxMapGrowths,omitempty"`

	// ExplicitOutputMode switches the Artifact Repository into
	// explicit-output visibility (§4.6, §4.8).
	ExplicitOutputMode bool `yaml:"explicitOutputMode,omitempty"`

	LogLevel      string `yaml:"logLevel,omitempty"`
	LogJSONOutput bool   `yaml:"logJSONOutput,omitempty"`
}

const (
	defaultInitialMapSize = 64 << 20 // 64 MiB
	defaultMaxDBs         = 13
	defaultMaxMapGrowths  = 6
)

// Load reads and parses an IndexConfig document from path, applying
// defaults for any zero-valued tunable.
func Load(path string) (*IndexConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg IndexConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if cfg.Spec.StorePath == "" {
		return nil, fmt.Errorf("config %s: spec.storePath is required", path)
	}

	return &cfg, nil
}

func (c *IndexConfig) applyDefaults() {
	if c.Spec.InitialMapSize == 0 {
		c.Spec.InitialMapSize = defaultInitialMapSize
	}
	if c.Spec.MaxDBs == 0 {
		c.Spec.MaxDBs = defaultMaxDBs
	}
	if c.Spec.MaxMapGrowths == 0 {
		c.Spec.MaxMapGrowths = defaultMaxMapGrowths
	}
	if c.Spec.LogLevel == "" {
		c.Spec.LogLevel = "info"
	}
}
