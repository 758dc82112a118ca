package core

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jo-hoe/layerbatch/internal/batch"
	"github.com/jo-hoe/layerbatch/internal/export"
)

// ActionConfig configures a single procedure or constraint by its
// registry name. Any keys besides name and enabled are passed to the
// action as parameters.
type ActionConfig struct {
	Name    string         `yaml:"name"`
	Enabled *bool          `yaml:"enabled"`
	Params  map[string]any `yaml:",inline"`
}

// IsEnabled reports whether the action should run. Actions without an
// explicit enabled key are enabled.
func (c ActionConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Database holds the database connection configuration.
type Database struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
}

// Redis holds the progress tracking configuration. An empty address
// disables progress tracking.
type Redis struct {
	Address string `yaml:"address"`
}

// Output holds the export settings shared by all runs. Empty fields
// fall back to the batch defaults.
type Output struct {
	Directory       string `yaml:"directory"`
	FileExtension   string `yaml:"fileExtension"`
	FilenamePattern string `yaml:"filenamePattern"`
	OverwriteMode   string `yaml:"overwriteMode"`
	ExportMode      string `yaml:"exportMode"`
}

// Pipeline is the subset of the configuration that callers may override
// for a single run.
type Pipeline struct {
	Output      Output         `yaml:"output"`
	Procedures  []ActionConfig `yaml:"procedures"`
	Constraints []ActionConfig `yaml:"constraints"`
}

// ServiceConfig is the root configuration of the service.
type ServiceConfig struct {
	Port        int            `yaml:"port"`
	Database    Database       `yaml:"database"`
	Redis       Redis          `yaml:"redis"`
	Output      Output         `yaml:"output"`
	Procedures  []ActionConfig `yaml:"procedures"`
	Constraints []ActionConfig `yaml:"constraints"`
}

// LoadConfig loads configuration from the specified YAML file.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML
	var config ServiceConfig
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validateConfig(config *ServiceConfig) error {
	if err := validateActions("procedure", config.Procedures); err != nil {
		return fmt.Errorf("invalid procedure configuration: %w", err)
	}
	if err := validateActions("constraint", config.Constraints); err != nil {
		return fmt.Errorf("invalid constraint configuration: %w", err)
	}
	if err := validateOutput(config.Output); err != nil {
		return fmt.Errorf("invalid output configuration: %w", err)
	}
	return nil
}

// validateActions ensures all action configurations have required fields.
func validateActions(kind string, actions []ActionConfig) error {
	seenNames := make(map[string]bool)

	for i, action := range actions {
		// Validate name is not empty
		if action.Name == "" {
			return fmt.Errorf("%s at index %d has empty name", kind, i)
		}

		// Validate name is unique
		if seenNames[action.Name] {
			return fmt.Errorf("duplicate %s name: %s", kind, action.Name)
		}
		seenNames[action.Name] = true
	}

	return nil
}

func validateOutput(output Output) error {
	if output.OverwriteMode != "" {
		if _, err := export.ParseOverwriteMode(output.OverwriteMode); err != nil {
			return err
		}
	}
	if output.ExportMode != "" {
		if _, err := batch.ParseExportMode(output.ExportMode); err != nil {
			return err
		}
	}
	return nil
}

// ParsePipeline parses and validates a per-run pipeline override.
func ParsePipeline(data []byte) (*Pipeline, error) {
	var pipeline Pipeline
	if err := yaml.Unmarshal(data, &pipeline); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline: %w", err)
	}

	if err := validateActions("procedure", pipeline.Procedures); err != nil {
		return nil, fmt.Errorf("invalid procedure configuration: %w", err)
	}
	if err := validateActions("constraint", pipeline.Constraints); err != nil {
		return nil, fmt.Errorf("invalid constraint configuration: %w", err)
	}
	if err := validateOutput(pipeline.Output); err != nil {
		return nil, fmt.Errorf("invalid output configuration: %w", err)
	}

	return &pipeline, nil
}

// WithPipeline returns a copy of the configuration with the non-empty
// parts of the pipeline applied. A nil pipeline returns the
// configuration unchanged.
func (c *ServiceConfig) WithPipeline(pipeline *Pipeline) *ServiceConfig {
	if pipeline == nil {
		return c
	}

	merged := *c
	if pipeline.Procedures != nil {
		merged.Procedures = pipeline.Procedures
	}
	if pipeline.Constraints != nil {
		merged.Constraints = pipeline.Constraints
	}
	if pipeline.Output.Directory != "" {
		merged.Output.Directory = pipeline.Output.Directory
	}
	if pipeline.Output.FileExtension != "" {
		merged.Output.FileExtension = pipeline.Output.FileExtension
	}
	if pipeline.Output.FilenamePattern != "" {
		merged.Output.FilenamePattern = pipeline.Output.FilenamePattern
	}
	if pipeline.Output.OverwriteMode != "" {
		merged.Output.OverwriteMode = pipeline.Output.OverwriteMode
	}
	if pipeline.Output.ExportMode != "" {
		merged.Output.ExportMode = pipeline.Output.ExportMode
	}
	return &merged
}
