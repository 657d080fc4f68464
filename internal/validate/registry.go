// Package validate keeps credential validation callbacks out of the
// serializable descriptor types. UI surfaces register callbacks here at
// composition time, keyed by environment (and optionally field), and run them
// before handing credentials to the manager.
package validate

import (
	"context"
	"fmt"
	"sync"

	"envswitch/internal/envconfig"
)

// Func validates a complete credential map for one environment. A nil error
// means accepted; the error message is shown to the user verbatim.
type Func func(ctx context.Context, credentials map[string]string) error

// FieldFunc validates a single field value.
type FieldFunc func(ctx context.Context, value string) error

type fieldKey struct {
	env   string
	field string
}

// Registry maps environments to validation callbacks. The zero value is not
// usable; create one with NewRegistry.
type Registry struct {
	mu     sync.RWMutex
	envs   map[string]Func
	fields map[fieldKey]FieldFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		envs:   make(map[string]Func),
		fields: make(map[fieldKey]FieldFunc),
	}
}

// Register installs the environment-level validator for envName, replacing
// any previous one.
func (r *Registry) Register(envName string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs[envName] = fn
}

// RegisterField installs a per-field validator.
func (r *Registry) RegisterField(envName, fieldKeyName string, fn FieldFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields[fieldKey{env: envName, field: fieldKeyName}] = fn
}

// Validate runs the environment-level validator for envName, if registered.
func (r *Registry) Validate(ctx context.Context, envName string, credentials map[string]string) error {
	r.mu.RLock()
	fn := r.envs[envName]
	r.mu.RUnlock()

	if fn == nil {
		return nil
	}
	return fn(ctx, credentials)
}

// ValidateField runs the per-field validator, if registered.
func (r *Registry) ValidateField(ctx context.Context, envName, fieldKeyName, value string) error {
	r.mu.RLock()
	fn := r.fields[fieldKey{env: envName, field: fieldKeyName}]
	r.mu.RUnlock()

	if fn == nil {
		return nil
	}
	return fn(ctx, value)
}

// CheckRequired verifies that every required credential field of env has a
// non-empty value in credentials. It is the structural check every surface
// applies before the registered callbacks run.
func CheckRequired(env envconfig.Environment, credentials map[string]string) error {
	for _, f := range env.CredentialFields {
		if !f.Required {
			continue
		}
		if credentials[f.Key] == "" {
			label := f.Label
			if label == "" {
				label = f.Key
			}
			return fmt.Errorf("%s is required", label)
		}
	}
	return nil
}
