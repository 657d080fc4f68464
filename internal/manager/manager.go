// Package manager holds the runtime state of the environment switcher: the
// set of known environments, the current selection, and the per-environment
// credential cache, all backed by a key-value store.
//
// The composition root creates a Manager and hands it to the surfaces that
// need it (CLI commands, the TUI, the MCP tool server).
package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"envswitch/internal/envconfig"
	"envswitch/internal/store"
	"envswitch/pkg/logging"
)

const logSubsystem = "EnvManager"

// Storage keys. The credential blob key is suffixed with the environment
// name; the selected-environment key holds the raw name.
const (
	selectedEnvKey       = "env_switcher_selected_env"
	credentialsKeyPrefix = "env_switcher_credentials_"
)

func credentialsKey(envName string) string {
	return credentialsKeyPrefix + envName
}

// Snapshot is the consistent view of manager state handed to observers after
// each mutation.
type Snapshot struct {
	Current        envconfig.Environment
	HasCurrent     bool
	Environments   []envconfig.Environment
	HasCredentials map[string]bool
}

// Observer receives a state snapshot after every mutation.
type Observer func(Snapshot)

// Manager coordinates environment selection and credential capture over a
// key-value store. All methods are safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	store   store.Store
	persist bool

	initialized  bool
	environments []envconfig.Environment
	current      envconfig.Environment
	hasCurrent   bool
	credentials  map[string]map[string]string

	observerMu     sync.Mutex
	observers      map[int]Observer
	nextObserverID int
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithoutPersistence keeps all state in memory for the process lifetime:
// the saved selection is neither read nor written, and credentials never
// reach the store.
func WithoutPersistence() Option {
	return func(m *Manager) { m.persist = false }
}

// New creates a manager over the given store. Persistence is enabled unless
// WithoutPersistence is supplied.
func New(st store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:       st,
		persist:     true,
		credentials: make(map[string]map[string]string),
		observers:   make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize installs the environment list and resolves the starting
// selection: a persisted name that matches a known environment wins,
// then the explicit default, then the first list entry. Credential blobs for
// credential-bearing environments are loaded from the store; a blob that
// fails to decode is logged and skipped without aborting the rest.
//
// Initialize is idempotent: a second call logs and returns nil without
// touching state. Exactly one observer notification is emitted on success.
func (m *Manager) Initialize(ctx context.Context, environments []envconfig.Environment, defaultEnv *envconfig.Environment) error {
	if len(environments) == 0 {
		return ErrNoEnvironments
	}

	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		logging.Warn(logSubsystem, "Initialize called twice, ignoring")
		return nil
	}

	seen := make(map[string]struct{}, len(environments))
	envs := make([]envconfig.Environment, 0, len(environments))
	for _, e := range environments {
		if _, dup := seen[e.Name]; dup {
			m.mu.Unlock()
			return fmt.Errorf("%w: %q", ErrDuplicateEnvironment, e.Name)
		}
		seen[e.Name] = struct{}{}
		envs = append(envs, e.Clone())
	}
	m.environments = envs

	current, err := m.resolveInitialSelection(ctx, defaultEnv)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.current = current
	m.hasCurrent = true

	if m.persist {
		m.loadCredentials(ctx)
	}

	m.initialized = true
	logging.Info(logSubsystem, "Initialized with %d environments, current=%q", len(envs), current.Name)
	m.mu.Unlock()

	m.notify()
	return nil
}

// resolveInitialSelection picks the starting environment. Caller holds the
// write lock.
func (m *Manager) resolveInitialSelection(ctx context.Context, defaultEnv *envconfig.Environment) (envconfig.Environment, error) {
	if m.persist {
		saved, err := m.store.Get(ctx, selectedEnvKey)
		switch {
		case err == nil:
			if env, ok := m.lookup(saved); ok {
				logging.Debug(logSubsystem, "Restoring saved environment %q", saved)
				return env, nil
			}
			logging.Warn(logSubsystem, "Saved environment %q is no longer defined, falling back", saved)
		case !errors.Is(err, store.ErrKeyNotFound):
			return envconfig.Environment{}, fmt.Errorf("read saved environment: %w", err)
		}
	}

	if defaultEnv != nil {
		if env, ok := m.lookup(defaultEnv.Name); ok {
			return env, nil
		}
		logging.Warn(logSubsystem, "Default environment %q is not in the environment list, using first entry", defaultEnv.Name)
	}
	return m.environments[0], nil
}

// loadCredentials populates the in-memory credential cache from the store for
// every credential-bearing environment. Caller holds the write lock.
func (m *Manager) loadCredentials(ctx context.Context) {
	for _, env := range m.environments {
		if !env.RequiresCredentials {
			continue
		}
		blob, err := m.store.Get(ctx, credentialsKey(env.Name))
		if err != nil {
			if !errors.Is(err, store.ErrKeyNotFound) {
				logging.Warn(logSubsystem, "Could not read credentials for %q: %v", env.Name, err)
			}
			continue
		}
		var creds map[string]string
		if err := json.Unmarshal([]byte(blob), &creds); err != nil {
			logging.Warn(logSubsystem, "Stored credentials for %q are not valid JSON, skipping: %v", env.Name, err)
			continue
		}
		if len(creds) > 0 {
			m.credentials[env.Name] = creds
		}
	}
}

// Switch makes the named environment current, optionally capturing a
// credential map for it. Credentials and the selection are persisted only
// when persistence is enabled and the target's storage mode is permanent.
//
// Persistence happens before the in-memory commit: if a store write fails the
// previous environment stays current and the error is returned. Exactly one
// observer notification is emitted on success.
func (m *Manager) Switch(ctx context.Context, name string, credentials map[string]string) error {
	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return ErrNotInitialized
	}

	target, ok := m.lookup(name)
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownEnvironment, name)
	}

	durable := m.persist && target.Storage != envconfig.StorageTemporary

	if len(credentials) > 0 && durable {
		blob, err := json.Marshal(credentials)
		if err != nil {
			m.mu.Unlock()
			return fmt.Errorf("encode credentials for %q: %w", name, err)
		}
		if err := m.store.Set(ctx, credentialsKey(name), string(blob)); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("persist credentials for %q: %w", name, err)
		}
	}

	if durable {
		if err := m.store.Set(ctx, selectedEnvKey, name); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("persist environment selection: %w", err)
		}
	}

	if len(credentials) > 0 {
		m.credentials[name] = cloneCredentials(credentials)
	}
	m.current = target
	m.hasCurrent = true
	logging.Info(logSubsystem, "Switched to environment %q (durable=%t)", name, durable)
	m.mu.Unlock()

	m.notify()
	return nil
}

// Reset switches back to the given environment, discarding nothing else.
func (m *Manager) Reset(ctx context.Context, name string) error {
	return m.Switch(ctx, name, nil)
}

// ClearCredentials removes both the persisted blob and the cached credentials
// for one environment. It is idempotent.
func (m *Manager) ClearCredentials(ctx context.Context, name string) error {
	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return ErrNotInitialized
	}
	if m.persist {
		if err := m.store.Delete(ctx, credentialsKey(name)); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("delete credentials for %q: %w", name, err)
		}
	}
	delete(m.credentials, name)
	m.mu.Unlock()

	m.notify()
	return nil
}

// ClearAllCredentials removes persisted and cached credentials for every
// known environment.
func (m *Manager) ClearAllCredentials(ctx context.Context) error {
	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return ErrNotInitialized
	}
	if m.persist {
		for _, env := range m.environments {
			if err := m.store.Delete(ctx, credentialsKey(env.Name)); err != nil {
				m.mu.Unlock()
				return fmt.Errorf("delete credentials for %q: %w", env.Name, err)
			}
		}
	}
	m.credentials = make(map[string]map[string]string)
	m.mu.Unlock()

	m.notify()
	return nil
}

// ClearSaved removes only the persisted selected-environment key. The
// in-memory selection is untouched; the next Initialize against the same
// store falls back to the default resolution order.
func (m *Manager) ClearSaved(ctx context.Context) error {
	if !m.persist {
		return nil
	}
	if err := m.store.Delete(ctx, selectedEnvKey); err != nil {
		return fmt.Errorf("delete saved environment selection: %w", err)
	}
	logging.Debug(logSubsystem, "Cleared saved environment selection")
	return nil
}

// Initialized reports whether Initialize has completed.
func (m *Manager) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// Current returns the active environment, if any.
func (m *Manager) Current() (envconfig.Environment, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.hasCurrent {
		return envconfig.Environment{}, false
	}
	return m.current.Clone(), true
}

// Environments returns the known environment list in definition order.
func (m *Manager) Environments() []envconfig.Environment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	envs := make([]envconfig.Environment, 0, len(m.environments))
	for _, e := range m.environments {
		envs = append(envs, e.Clone())
	}
	return envs
}

// Lookup resolves a known environment by name.
func (m *Manager) Lookup(name string) (envconfig.Environment, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	env, ok := m.lookup(name)
	if !ok {
		return envconfig.Environment{}, false
	}
	return env.Clone(), true
}

// lookup finds an environment by name. Caller holds at least a read lock.
func (m *Manager) lookup(name string) (envconfig.Environment, bool) {
	for _, e := range m.environments {
		if e.Name == name {
			return e, true
		}
	}
	return envconfig.Environment{}, false
}

// ExtraString returns the typed extras value of the current environment.
func (m *Manager) ExtraString(key string) (string, bool) {
	env, ok := m.Current()
	if !ok {
		return "", false
	}
	return env.ExtraString(key)
}

// ExtraInt returns the typed extras value of the current environment.
func (m *Manager) ExtraInt(key string) (int, bool) {
	env, ok := m.Current()
	if !ok {
		return 0, false
	}
	return env.ExtraInt(key)
}

// ExtraBool returns the typed extras value of the current environment.
func (m *Manager) ExtraBool(key string) (bool, bool) {
	env, ok := m.Current()
	if !ok {
		return false, false
	}
	return env.ExtraBool(key)
}

// Credentials returns a copy of the cached credential map for the named
// environment, defaulting to the current one. Nil when nothing is cached.
func (m *Manager) Credentials(envName ...string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name, ok := m.resolveName(envName)
	if !ok {
		return nil
	}
	creds, ok := m.credentials[name]
	if !ok {
		return nil
	}
	return cloneCredentials(creds)
}

// Credential returns one cached credential value by key, defaulting to the
// current environment.
func (m *Manager) Credential(key string, envName ...string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name, ok := m.resolveName(envName)
	if !ok {
		return "", false
	}
	creds, ok := m.credentials[name]
	if !ok {
		return "", false
	}
	v, ok := creds[key]
	return v, ok
}

// HasCredentials reports whether a non-empty credential map is cached for the
// named environment.
func (m *Manager) HasCredentials(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.credentials[name]) > 0
}

// resolveName picks the explicit environment name or falls back to the
// current selection. Caller holds at least a read lock.
func (m *Manager) resolveName(envName []string) (string, bool) {
	if len(envName) > 0 && envName[0] != "" {
		return envName[0], true
	}
	if !m.hasCurrent {
		return "", false
	}
	return m.current.Name, true
}

// Subscribe registers an observer called synchronously after every mutation.
// The returned cancel function removes the observer.
func (m *Manager) Subscribe(obs Observer) func() {
	m.observerMu.Lock()
	defer m.observerMu.Unlock()

	id := m.nextObserverID
	m.nextObserverID++
	m.observers[id] = obs

	return func() {
		m.observerMu.Lock()
		defer m.observerMu.Unlock()
		delete(m.observers, id)
	}
}

// Snapshot returns a consistent view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		HasCurrent:     m.hasCurrent,
		HasCredentials: make(map[string]bool, len(m.environments)),
	}
	if m.hasCurrent {
		snap.Current = m.current.Clone()
	}
	for _, e := range m.environments {
		snap.Environments = append(snap.Environments, e.Clone())
		snap.HasCredentials[e.Name] = len(m.credentials[e.Name]) > 0
	}
	return snap
}

// notify fans the current snapshot out to all observers. Called without the
// state lock held so observers may query the manager.
func (m *Manager) notify() {
	snap := m.Snapshot()

	m.observerMu.Lock()
	observers := make([]Observer, 0, len(m.observers))
	for _, obs := range m.observers {
		observers = append(observers, obs)
	}
	m.observerMu.Unlock()

	for _, obs := range observers {
		obs(snap)
	}
}

func cloneCredentials(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
