package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"newsreel/internal/config"
	"newsreel/internal/services"
)

type definitionFile struct {
	Steps []config.StepDefinition `toml:"steps" yaml:"steps"`
}

// LoadDefinition reads a standalone pipeline file. The format follows the
// extension: .yaml/.yml or .toml.
func LoadDefinition(path string) ([]config.StepDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "load pipeline", "read "+path, err)
	}

	var file definitionFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&file)
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&file)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "", "load pipeline",
			fmt.Sprintf("unsupported pipeline format %q (use .yaml, .yml or .toml)", ext), nil)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "load pipeline", "parse "+path, err)
	}

	config.NormalizeSteps(file.Steps)
	if err := config.ValidateSteps(file.Steps); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "load pipeline", path, err)
	}
	return file.Steps, nil
}

// Definitions returns the configured steps, preferring an external definition
// file over inline steps.
func Definitions(cfg *config.Config) ([]config.StepDefinition, error) {
	if path := strings.TrimSpace(cfg.Pipeline.Definition); path != "" {
		return LoadDefinition(path)
	}
	return cfg.Pipeline.Steps, nil
}
