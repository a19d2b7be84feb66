package simdb

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Configuration holds the optional settings cmd/simdb reads before processing
// a directive transcript.
type Configuration struct {
	// LogLevel is one of DEBUG, INFO, WARN, ERROR. Overridden by -log-level.
	// A DEBUG, WARN or ERROR value takes precedence over the SIMDB_LOG_LEVEL
	// environment variable.
	LogLevel string `json:"logLevel" yaml:"logLevel"`
	// DefaultScript is used when the CLI is invoked with no file argument.
	DefaultScript string `json:"defaultScript" yaml:"defaultScript"`
}

// LoadConfiguration reads a JSON or YAML configuration file, selecting the
// decoder by file extension (.yml/.yaml -> YAML, everything else -> JSON).
func LoadConfiguration(filename string) (Configuration, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Configuration{}, err
	}

	var c Configuration
	if strings.HasSuffix(filename, ".yml") || strings.HasSuffix(filename, ".yaml") {
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Configuration{}, fmt.Errorf("parsing yaml config %q: %w", filename, err)
		}
		return c, nil
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return Configuration{}, fmt.Errorf("parsing json config %q: %w", filename, err)
	}
	return c, nil
}
