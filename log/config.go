package log

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes the content of the optional log config file.
type Config struct {
	// default level for the logger (zap level values)
	DefaultLevel string `yaml:"defaultLevel"`
	// zapfilter rules, for example "debug:api.*,db.* info:*"
	Filters string `yaml:"filters"`
}

// LoadConfig reads the log configuration from a yaml file.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read log config %s: %w", filename, err)
	}
	ret := &Config{}
	if err := yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("could not parse log config %s: %w", filename, err)
	}
	return ret, nil
}
