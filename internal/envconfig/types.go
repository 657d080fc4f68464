package envconfig

import (
	"encoding/json"
	"fmt"

	"envswitch/pkg/logging"
)

// StorageMode controls whether a selection of this environment (and any
// captured credentials) is written to the persistent store or held only in
// memory for the lifetime of the process.
type StorageMode string

const (
	// StoragePermanent persists the selection and credentials across restarts.
	StoragePermanent StorageMode = "permanent"
	// StorageTemporary keeps the selection and credentials in memory only.
	StorageTemporary StorageMode = "temporary"
)

// Valid reports whether m is a known storage mode.
func (m StorageMode) Valid() bool {
	return m == StoragePermanent || m == StorageTemporary
}

// CredentialField declares one credential input for an environment, e.g. an
// API key or a password. It is pure data; per-field validation callbacks are
// registered separately in internal/validate.
type CredentialField struct {
	Key      string `json:"key" yaml:"key"`
	Label    string `json:"label" yaml:"label"`
	Hint     string `json:"hint,omitempty" yaml:"hint,omitempty"`
	Password bool   `json:"password,omitempty" yaml:"password,omitempty"`
	Required bool   `json:"required" yaml:"required"`
	Default  string `json:"default,omitempty" yaml:"default,omitempty"`
}

// credentialFieldAlias mirrors CredentialField with a pointer Required so the
// decoder can distinguish "absent" from "false". Required defaults to true.
type credentialFieldAlias struct {
	Key      string `json:"key" yaml:"key"`
	Label    string `json:"label" yaml:"label"`
	Hint     string `json:"hint,omitempty" yaml:"hint,omitempty"`
	Password bool   `json:"password,omitempty" yaml:"password,omitempty"`
	Required *bool  `json:"required" yaml:"required"`
	Default  string `json:"default,omitempty" yaml:"default,omitempty"`
}

func (f *CredentialField) fromAlias(a credentialFieldAlias) {
	f.Key = a.Key
	f.Label = a.Label
	f.Hint = a.Hint
	f.Password = a.Password
	f.Required = a.Required == nil || *a.Required
	f.Default = a.Default
}

// UnmarshalJSON decodes a credential field, defaulting Required to true when
// the key is absent.
func (f *CredentialField) UnmarshalJSON(data []byte) error {
	var a credentialFieldAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	f.fromAlias(a)
	return nil
}

// UnmarshalYAML decodes a credential field from YAML with the same defaults
// as the JSON codec.
func (f *CredentialField) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var a credentialFieldAlias
	if err := unmarshal(&a); err != nil {
		return err
	}
	f.fromAlias(a)
	return nil
}

// Environment describes one named backend target (dev, staging, prod, ...).
// Two environments are considered the same iff their names match; every other
// field is display or connection metadata.
type Environment struct {
	Name                string            `json:"name" yaml:"name"`
	DisplayName         string            `json:"displayName" yaml:"displayName"`
	BaseURL             string            `json:"baseUrl" yaml:"baseUrl"`
	Extras              map[string]any    `json:"extras,omitempty" yaml:"extras,omitempty"`
	RequiresCredentials bool              `json:"requiresCredentials,omitempty" yaml:"requiresCredentials,omitempty"`
	CredentialFields    []CredentialField `json:"credentialFields,omitempty" yaml:"credentialFields,omitempty"`
	Storage             StorageMode       `json:"storage,omitempty" yaml:"storage,omitempty"`
}

// environmentAlias avoids recursing into the custom unmarshalers.
type environmentAlias struct {
	Name                string            `json:"name" yaml:"name"`
	DisplayName         string            `json:"displayName" yaml:"displayName"`
	BaseURL             string            `json:"baseUrl" yaml:"baseUrl"`
	Extras              map[string]any    `json:"extras,omitempty" yaml:"extras,omitempty"`
	RequiresCredentials bool              `json:"requiresCredentials,omitempty" yaml:"requiresCredentials,omitempty"`
	CredentialFields    []CredentialField `json:"credentialFields,omitempty" yaml:"credentialFields,omitempty"`
	Storage             StorageMode       `json:"storage,omitempty" yaml:"storage,omitempty"`
}

func (e *Environment) fromAlias(a environmentAlias) {
	e.Name = a.Name
	e.DisplayName = a.DisplayName
	e.BaseURL = a.BaseURL
	e.Extras = a.Extras
	e.RequiresCredentials = a.RequiresCredentials
	e.CredentialFields = a.CredentialFields
	e.Storage = a.Storage
	if e.Storage == "" {
		e.Storage = StoragePermanent
	} else if !e.Storage.Valid() {
		logging.Warn("EnvConfig", "Unknown storage mode %q for environment %q, treating as permanent", e.Storage, e.Name)
		e.Storage = StoragePermanent
	}
}

// UnmarshalJSON decodes an environment, defaulting the storage mode to
// permanent when absent or unknown.
func (e *Environment) UnmarshalJSON(data []byte) error {
	var a environmentAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	e.fromAlias(a)
	return nil
}

// UnmarshalYAML decodes an environment from YAML with the same defaults as
// the JSON codec.
func (e *Environment) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var a environmentAlias
	if err := unmarshal(&a); err != nil {
		return err
	}
	e.fromAlias(a)
	return nil
}

// Equal reports whether e and other name the same environment. Identity is
// the name alone; display fields, extras and credential fields do not
// participate.
func (e Environment) Equal(other Environment) bool {
	return e.Name == other.Name
}

// Clone returns a deep copy of e. Mutating the copy's Extras or
// CredentialFields does not affect the original.
func (e Environment) Clone() Environment {
	c := e
	if e.Extras != nil {
		c.Extras = make(map[string]any, len(e.Extras))
		for k, v := range e.Extras {
			c.Extras[k] = v
		}
	}
	if e.CredentialFields != nil {
		c.CredentialFields = make([]CredentialField, len(e.CredentialFields))
		copy(c.CredentialFields, e.CredentialFields)
	}
	return c
}

// Validate checks the structural requirements of a single environment.
func (e Environment) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("environment name is required")
	}
	if e.DisplayName == "" {
		return fmt.Errorf("environment %q: displayName is required", e.Name)
	}
	if e.BaseURL == "" {
		return fmt.Errorf("environment %q: baseUrl is required", e.Name)
	}
	seen := make(map[string]struct{}, len(e.CredentialFields))
	for i, f := range e.CredentialFields {
		if f.Key == "" {
			return fmt.Errorf("environment %q: credential field %d: key is required", e.Name, i)
		}
		if _, dup := seen[f.Key]; dup {
			return fmt.Errorf("environment %q: duplicate credential field key %q", e.Name, f.Key)
		}
		seen[f.Key] = struct{}{}
	}
	return nil
}

// Label returns the human-facing label for the environment, falling back to
// the name when no display name is set.
func (e Environment) Label() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.Name
}
