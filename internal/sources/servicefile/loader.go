package servicefile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of the gateway's services.yaml
type Loader struct {
	filePath string
}

// NewLoader creates a new service file loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads and parses the services file
func (l *Loader) Load() (ServicesFile, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return ServicesFile{}, fmt.Errorf("failed to read services file: %w", err)
	}

	var file ServicesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return ServicesFile{}, fmt.Errorf("failed to parse services yaml: %w", err)
	}

	return file, nil
}
