// Package config reads the optional pgshp.yaml project file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/vvka-141/pgshp/pkg/pgshp"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// AuthConfig holds cloud authentication settings. The Azure client secret
// is never read from the file.
type AuthConfig struct {
	Method         string `yaml:"method,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
}

type ProjectConfig struct {
	DatabaseURL   string            `yaml:"database_url"`
	State         *string           `yaml:"state"`
	BoundaryType  string            `yaml:"boundary_type"`
	BoundariesDir string            `yaml:"boundaries_dir"`
	TableName     string            `yaml:"table_name"`
	CitiesTable   string            `yaml:"cities_table"`
	TileURL       string            `yaml:"tile_url"`
	Timeout       string            `yaml:"timeout"`
	Auth          AuthConfig        `yaml:"auth"`
	StateNames    map[string]string `yaml:"state_names"`
}

const ConfigFileName = "pgshp.yaml"

// DefaultPath returns the config file location inside dir.
func DefaultPath(dir string) string {
	return filepath.Join(dir, ConfigFileName)
}

// Load reads the config file at path. A relative boundaries_dir is
// resolved against the directory holding the file.
func Load(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w: %w", path, pgshp.ErrInvalidConfig, err)
	}
	if cfg.BoundariesDir != "" && !filepath.IsAbs(cfg.BoundariesDir) {
		cfg.BoundariesDir = filepath.Join(filepath.Dir(path), cfg.BoundariesDir)
	}
	return &cfg, nil
}
