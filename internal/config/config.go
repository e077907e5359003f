package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models goalline.yml.
type Config struct {
	Tenant struct {
		ID    string `yaml:"id"`
		Actor string `yaml:"actor"`
	} `yaml:"tenant"`
	Server struct {
		Addr      string `yaml:"addr"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"server"`
	Weights    map[string]Weight `yaml:"weights"`
	Priorities []string          `yaml:"priorities"`
}

// Weight is one effort-weight catalog entry tasks can reference.
type Weight struct {
	Label string `yaml:"label"`
	Value int    `yaml:"value"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; run gl init first", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Tenant.ID == "" {
		return fmt.Errorf("config.tenant.id is required")
	}
	if c.Tenant.Actor == "" {
		return fmt.Errorf("config.tenant.actor is required")
	}
	for id, w := range c.Weights {
		if id == "" {
			return fmt.Errorf("config.weights contains an empty id")
		}
		if w.Value < 0 {
			return fmt.Errorf("weight %s has negative value", id)
		}
	}
	for _, p := range c.Priorities {
		if p == "" {
			return fmt.Errorf("config.priorities contains an empty entry")
		}
	}
	return nil
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "goalline.yml")
}

// GenerateDefault returns default config YAML for a tenant.
func GenerateDefault(tenantID, actorID string) string {
	return fmt.Sprintf(defaultTemplate, tenantID, actorID)
}

const defaultTemplate = `tenant:
  id: %s
  actor: %s

server:
  addr: :8080

weights:
  xs:
    label: "Extra small"
    value: 1
  s:
    label: "Small"
    value: 2
  m:
    label: "Medium"
    value: 3
  l:
    label: "Large"
    value: 5
  xl:
    label: "Extra large"
    value: 8

priorities:
  - Low
  - Medium
  - High
  - Urgent
`
