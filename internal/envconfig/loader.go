package envconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir       = ".config/envswitch"
	projectConfigDir    = ".envswitch"
	definitionsFileName = "environments.yaml"
)

// Definitions is the on-disk shape of an environments file: the list of
// known environments plus an optional default selection by name.
type Definitions struct {
	Default      string        `yaml:"default,omitempty" json:"default,omitempty"`
	Environments []Environment `yaml:"environments" json:"environments"`
}

// DefaultEnvironment resolves the named default, if any.
func (d Definitions) DefaultEnvironment() (Environment, bool) {
	if d.Default == "" {
		return Environment{}, false
	}
	for _, e := range d.Environments {
		if e.Name == d.Default {
			return e, true
		}
	}
	return Environment{}, false
}

// LoadDefinitions loads environment definitions by layering the user file
// (~/.config/envswitch/environments.yaml) under the project file
// (./.envswitch/environments.yaml). Both files are optional; environments in
// the project file replace same-named user entries.
func LoadDefinitions() (Definitions, error) {
	var defs Definitions

	userPath, err := getUserDefinitionsPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not determine user definitions path: %v\n", err)
	} else {
		if _, err := os.Stat(userPath); !os.IsNotExist(err) {
			userDefs, err := loadDefinitionsFromFile(userPath)
			if err != nil {
				return Definitions{}, fmt.Errorf("error loading user definitions from %s: %w", userPath, err)
			}
			defs = mergeDefinitions(defs, userDefs)
		}
	}

	projectPath, err := getProjectDefinitionsPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not determine project definitions path: %v\n", err)
	} else {
		if _, err := os.Stat(projectPath); !os.IsNotExist(err) {
			projectDefs, err := loadDefinitionsFromFile(projectPath)
			if err != nil {
				return Definitions{}, fmt.Errorf("error loading project definitions from %s: %w", projectPath, err)
			}
			defs = mergeDefinitions(defs, projectDefs)
		}
	}

	for _, e := range defs.Environments {
		if err := e.Validate(); err != nil {
			return Definitions{}, err
		}
	}

	return defs, nil
}

var getUserDefinitionsPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, definitionsFileName), nil
}

var getProjectDefinitionsPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, definitionsFileName), nil
}

// loadDefinitionsFromFile reads, schema-validates and decodes one
// environments file.
func loadDefinitionsFromFile(filePath string) (Definitions, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return Definitions{}, err
	}
	if err := validateDefinitionsYAML(data); err != nil {
		return Definitions{}, fmt.Errorf("invalid definitions file: %w", err)
	}
	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return Definitions{}, err
	}
	return defs, nil
}

// mergeDefinitions merges 'overlay' into 'base'. Environments are keyed by
// name with the overlay winning; the original ordering is preserved, with
// overlay-only environments appended.
func mergeDefinitions(base, overlay Definitions) Definitions {
	merged := Definitions{Default: base.Default}
	if overlay.Default != "" {
		merged.Default = overlay.Default
	}

	index := make(map[string]int, len(base.Environments))
	for _, e := range base.Environments {
		index[e.Name] = len(merged.Environments)
		merged.Environments = append(merged.Environments, e)
	}
	for _, e := range overlay.Environments {
		if i, exists := index[e.Name]; exists {
			merged.Environments[i] = e
			continue
		}
		index[e.Name] = len(merged.Environments)
		merged.Environments = append(merged.Environments, e)
	}

	return merged
}

// GetUserConfigDir returns the user configuration directory path.
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
