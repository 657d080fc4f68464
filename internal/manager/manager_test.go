package manager

import (
	"context"
	"errors"
	"testing"

	"envswitch/internal/envconfig"
	"envswitch/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnvironments() []envconfig.Environment {
	return []envconfig.Environment{
		{
			Name:        "dev",
			DisplayName: "Development",
			BaseURL:     "https://dev.example.com",
			Extras:      map[string]any{"logLevel": "debug", "timeoutSeconds": float64(5)},
			Storage:     envconfig.StoragePermanent,
		},
		{
			Name:                "staging",
			DisplayName:         "Staging",
			BaseURL:             "https://staging.example.com",
			Extras:              map[string]any{"logLevel": "info"},
			RequiresCredentials: true,
			CredentialFields: []envconfig.CredentialField{
				{Key: "api_key", Label: "API Key", Required: true, Password: true},
				{Key: "tenant", Label: "Tenant", Required: false},
			},
			Storage: envconfig.StoragePermanent,
		},
		{
			Name:                "prod",
			DisplayName:         "Production",
			BaseURL:             "https://prod.example.com",
			RequiresCredentials: true,
			CredentialFields: []envconfig.CredentialField{
				{Key: "api_key", Label: "API Key", Required: true, Password: true},
			},
			Storage: envconfig.StorageTemporary,
		},
	}
}

func envByName(t *testing.T, name string) *envconfig.Environment {
	t.Helper()
	for _, e := range testEnvironments() {
		if e.Name == name {
			return &e
		}
	}
	t.Fatalf("unknown test environment %q", name)
	return nil
}

func TestInitializeEmptyList(t *testing.T) {
	m := New(store.NewMemoryStore())
	err := m.Initialize(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNoEnvironments)
	assert.False(t, m.Initialized())
}

func TestInitializeDuplicateNames(t *testing.T) {
	envs := testEnvironments()
	envs = append(envs, envconfig.Environment{Name: "dev", DisplayName: "Dev again", BaseURL: "https://dup.example.com"})

	m := New(store.NewMemoryStore())
	err := m.Initialize(context.Background(), envs, nil)
	assert.ErrorIs(t, err, ErrDuplicateEnvironment)
	assert.False(t, m.Initialized())
}

func TestInitializeSelectionPriority(t *testing.T) {
	ctx := context.Background()

	t.Run("first entry when nothing else applies", func(t *testing.T) {
		m := New(store.NewMemoryStore())
		require.NoError(t, m.Initialize(ctx, testEnvironments(), nil))

		current, ok := m.Current()
		require.True(t, ok)
		assert.Equal(t, "dev", current.Name)
	})

	t.Run("explicit default beats first entry", func(t *testing.T) {
		m := New(store.NewMemoryStore())
		require.NoError(t, m.Initialize(ctx, testEnvironments(), envByName(t, "staging")))

		current, ok := m.Current()
		require.True(t, ok)
		assert.Equal(t, "staging", current.Name)
	})

	t.Run("saved selection beats explicit default", func(t *testing.T) {
		st := store.NewMemoryStore()
		require.NoError(t, st.Set(ctx, "env_switcher_selected_env", "prod"))

		m := New(st)
		require.NoError(t, m.Initialize(ctx, testEnvironments(), envByName(t, "staging")))

		current, ok := m.Current()
		require.True(t, ok)
		assert.Equal(t, "prod", current.Name)
	})

	t.Run("saved selection for unknown environment falls back to default", func(t *testing.T) {
		st := store.NewMemoryStore()
		require.NoError(t, st.Set(ctx, "env_switcher_selected_env", "retired"))

		m := New(st)
		require.NoError(t, m.Initialize(ctx, testEnvironments(), envByName(t, "staging")))

		current, ok := m.Current()
		require.True(t, ok)
		assert.Equal(t, "staging", current.Name)
	})

	t.Run("persistence disabled ignores saved selection", func(t *testing.T) {
		st := store.NewMemoryStore()
		require.NoError(t, st.Set(ctx, "env_switcher_selected_env", "prod"))

		m := New(st, WithoutPersistence())
		require.NoError(t, m.Initialize(ctx, testEnvironments(), nil))

		current, ok := m.Current()
		require.True(t, ok)
		assert.Equal(t, "dev", current.Name)
	})
}

func TestInitializeTwiceIsNoOp(t *testing.T) {
	ctx := context.Background()
	m := New(store.NewMemoryStore())
	require.NoError(t, m.Initialize(ctx, testEnvironments(), nil))
	require.NoError(t, m.Switch(ctx, "staging", nil))

	// Second call must not reset the selection or fail.
	require.NoError(t, m.Initialize(ctx, testEnvironments(), envByName(t, "prod")))

	current, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "staging", current.Name)
}

func TestSwitchUnknownEnvironment(t *testing.T) {
	ctx := context.Background()
	m := New(store.NewMemoryStore())
	require.NoError(t, m.Initialize(ctx, testEnvironments(), nil))

	err := m.Switch(ctx, "nope", nil)
	assert.ErrorIs(t, err, ErrUnknownEnvironment)

	current, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "dev", current.Name, "failed switch must not change the selection")
}

func TestSwitchBeforeInitialize(t *testing.T) {
	m := New(store.NewMemoryStore())
	err := m.Switch(context.Background(), "dev", nil)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestSwitchPersistsAcrossRestart(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	creds := map[string]string{"api_key": "s3cret", "tenant": "acme"}

	m := New(st)
	require.NoError(t, m.Initialize(ctx, testEnvironments(), nil))
	require.NoError(t, m.Switch(ctx, "staging", creds))

	// A fresh manager over the same store simulates an app restart.
	restarted := New(st)
	require.NoError(t, restarted.Initialize(ctx, testEnvironments(), nil))

	current, ok := restarted.Current()
	require.True(t, ok)
	assert.Equal(t, "staging", current.Name)
	assert.Equal(t, creds, restarted.Credentials("staging"))
}

func TestSwitchWithoutPersistence(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	creds := map[string]string{"api_key": "s3cret"}

	m := New(st, WithoutPersistence())
	require.NoError(t, m.Initialize(ctx, testEnvironments(), nil))
	require.NoError(t, m.Switch(ctx, "staging", creds))

	// Nothing reaches the store...
	keys, err := st.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	// ...but the in-process cache still serves the credentials.
	assert.Equal(t, creds, m.Credentials("staging"))
	current, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "staging", current.Name)
}

func TestSwitchTemporaryEnvironmentNeverPersists(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	m := New(st)
	require.NoError(t, m.Initialize(ctx, testEnvironments(), nil))
	require.NoError(t, m.Switch(ctx, "prod", map[string]string{"api_key": "topsecret"}))

	keys, err := st.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys, "temporary-mode environments must not write durable state")

	assert.Equal(t, "topsecret", mustCredential(t, m, "api_key"))
}

func mustCredential(t *testing.T, m *Manager, key string) string {
	t.Helper()
	v, ok := m.Credential(key)
	require.True(t, ok)
	return v
}

func TestExtrasFollowCurrentEnvironment(t *testing.T) {
	ctx := context.Background()
	m := New(store.NewMemoryStore())
	require.NoError(t, m.Initialize(ctx, testEnvironments(), nil))

	level, ok := m.ExtraString("logLevel")
	require.True(t, ok)
	assert.Equal(t, "debug", level)

	timeout, ok := m.ExtraInt("timeoutSeconds")
	require.True(t, ok)
	assert.Equal(t, 5, timeout)

	require.NoError(t, m.Switch(ctx, "staging", nil))

	level, ok = m.ExtraString("logLevel")
	require.True(t, ok)
	assert.Equal(t, "info", level)

	_, ok = m.ExtraInt("timeoutSeconds")
	assert.False(t, ok, "staging has no timeoutSeconds extra")

	_, ok = m.ExtraString("missing")
	assert.False(t, ok)
}

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	m := New(store.NewMemoryStore())

	var notifications []Snapshot
	cancel := m.Subscribe(func(s Snapshot) { notifications = append(notifications, s) })

	require.NoError(t, m.Initialize(ctx, testEnvironments(), nil))
	require.Len(t, notifications, 1, "initialize notifies exactly once")
	assert.Equal(t, "dev", notifications[0].Current.Name)

	require.NoError(t, m.Switch(ctx, "staging", map[string]string{"api_key": "k"}))
	require.Len(t, notifications, 2, "each switch notifies exactly once")
	assert.Equal(t, "staging", notifications[1].Current.Name)
	assert.True(t, notifications[1].HasCredentials["staging"])

	err := m.Switch(ctx, "nope", nil)
	require.Error(t, err)
	assert.Len(t, notifications, 2, "failed switch must not notify")

	cancel()
	require.NoError(t, m.Switch(ctx, "dev", nil))
	assert.Len(t, notifications, 2, "cancelled observers stop receiving")
}

func TestClearSaved(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	m := New(st)
	require.NoError(t, m.Initialize(ctx, testEnvironments(), nil))
	require.NoError(t, m.Switch(ctx, "staging", map[string]string{"api_key": "k"}))

	require.NoError(t, m.ClearSaved(ctx))

	// Only the selection key is gone; credential blobs survive.
	_, err := st.Get(ctx, "env_switcher_selected_env")
	assert.ErrorIs(t, err, store.ErrKeyNotFound)
	_, err = st.Get(ctx, "env_switcher_credentials_staging")
	assert.NoError(t, err)

	// The in-memory selection is untouched until the next initialization.
	current, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "staging", current.Name)

	restarted := New(st)
	require.NoError(t, restarted.Initialize(ctx, testEnvironments(), nil))
	current, ok = restarted.Current()
	require.True(t, ok)
	assert.Equal(t, "dev", current.Name, "restart after ClearSaved falls back to the first entry")
}

func TestClearCredentials(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	m := New(st)
	require.NoError(t, m.Initialize(ctx, testEnvironments(), nil))
	require.NoError(t, m.Switch(ctx, "staging", map[string]string{"api_key": "k"}))
	require.True(t, m.HasCredentials("staging"))

	require.NoError(t, m.ClearCredentials(ctx, "staging"))
	assert.False(t, m.HasCredentials("staging"))
	_, err := st.Get(ctx, "env_switcher_credentials_staging")
	assert.ErrorIs(t, err, store.ErrKeyNotFound)

	// Idempotent.
	require.NoError(t, m.ClearCredentials(ctx, "staging"))
}

func TestClearAllCredentials(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	m := New(st)
	require.NoError(t, m.Initialize(ctx, testEnvironments(), nil))
	require.NoError(t, m.Switch(ctx, "staging", map[string]string{"api_key": "k1"}))
	require.NoError(t, m.Switch(ctx, "prod", map[string]string{"api_key": "k2"}))

	require.NoError(t, m.ClearAllCredentials(ctx))
	assert.False(t, m.HasCredentials("staging"))
	assert.False(t, m.HasCredentials("prod"))
	assert.Nil(t, m.Credentials("staging"))
}

func TestCredentialLookupDefaultsToCurrent(t *testing.T) {
	ctx := context.Background()
	m := New(store.NewMemoryStore())
	require.NoError(t, m.Initialize(ctx, testEnvironments(), nil))
	require.NoError(t, m.Switch(ctx, "staging", map[string]string{"api_key": "k", "tenant": "acme"}))

	v, ok := m.Credential("tenant")
	require.True(t, ok)
	assert.Equal(t, "acme", v)

	v, ok = m.Credential("api_key", "staging")
	require.True(t, ok)
	assert.Equal(t, "k", v)

	_, ok = m.Credential("api_key", "dev")
	assert.False(t, ok)
}

func TestInitializeSkipsCorruptCredentialBlob(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(ctx, "env_switcher_credentials_staging", "{not json"))
	require.NoError(t, st.Set(ctx, "env_switcher_credentials_prod", `{"api_key":"ok"}`))

	m := New(st)
	require.NoError(t, m.Initialize(ctx, testEnvironments(), nil), "a corrupt blob must not abort initialization")

	assert.False(t, m.HasCredentials("staging"))
	assert.True(t, m.HasCredentials("prod"), "other environments load normally")
}

// failingStore wraps a Store and fails every write.
type failingStore struct {
	store.Store
}

var errBoom = errors.New("disk full")

func (f *failingStore) Set(ctx context.Context, key, value string) error {
	return errBoom
}

func TestSwitchPersistFailureLeavesStateIntact(t *testing.T) {
	ctx := context.Background()
	m := New(&failingStore{Store: store.NewMemoryStore()})
	require.NoError(t, m.Initialize(ctx, testEnvironments(), nil))

	var notified int
	m.Subscribe(func(Snapshot) { notified++ })

	err := m.Switch(ctx, "staging", map[string]string{"api_key": "k"})
	require.ErrorIs(t, err, errBoom)

	current, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "dev", current.Name, "a failed write must not commit the switch")
	assert.False(t, m.HasCredentials("staging"))
	assert.Zero(t, notified)
}

func TestResetSwitchesWithoutCredentials(t *testing.T) {
	ctx := context.Background()
	m := New(store.NewMemoryStore())
	require.NoError(t, m.Initialize(ctx, testEnvironments(), nil))
	require.NoError(t, m.Switch(ctx, "staging", map[string]string{"api_key": "k"}))

	require.NoError(t, m.Reset(ctx, "dev"))

	current, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "dev", current.Name)
	assert.True(t, m.HasCredentials("staging"), "reset leaves credential cache alone")
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/state.json"
	creds := map[string]string{"api_key": "k"}

	m := New(store.NewFileStore(path))
	require.NoError(t, m.Initialize(ctx, testEnvironments(), nil))
	require.NoError(t, m.Switch(ctx, "staging", creds))

	restarted := New(store.NewFileStore(path))
	require.NoError(t, restarted.Initialize(ctx, testEnvironments(), nil))

	current, ok := restarted.Current()
	require.True(t, ok)
	assert.Equal(t, "staging", current.Name)
	assert.Equal(t, creds, restarted.Credentials("staging"))
}
