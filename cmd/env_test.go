package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"envswitch/internal/envconfig"
)

// withTestDefinitions swaps in a fixed set of environment definitions and a
// throwaway state file, restoring everything when the test ends.
func withTestDefinitions(t *testing.T) {
	t.Helper()

	origLoad := loadDefinitions
	origStateFile := stateFile
	origNoPersist := noPersist
	origOutput := envOutputFormat

	loadDefinitions = func() (envconfig.Definitions, error) {
		return envconfig.Definitions{
			Default: "staging",
			Environments: []envconfig.Environment{
				{
					Name:        "dev",
					DisplayName: "Development",
					BaseURL:     "https://dev.example.com",
					Storage:     envconfig.StoragePermanent,
				},
				{
					Name:        "staging",
					DisplayName: "Staging",
					BaseURL:     "https://staging.example.com",
					Storage:     envconfig.StoragePermanent,
					Extras:      map[string]any{"region": "eu-west-1"},
				},
				{
					Name:                "prod",
					DisplayName:         "Production",
					BaseURL:             "https://api.example.com",
					Storage:             envconfig.StoragePermanent,
					RequiresCredentials: true,
					CredentialFields: []envconfig.CredentialField{
						{Key: "apiKey", Label: "API key", Required: true},
					},
				},
			},
		}, nil
	}
	stateFile = filepath.Join(t.TempDir(), "state.json")
	noPersist = false

	t.Cleanup(func() {
		loadDefinitions = origLoad
		stateFile = origStateFile
		noPersist = origNoPersist
		envOutputFormat = origOutput
		currentCopyURL = false
		useCredentials = nil
		credsClearAll = false
		credsReveal = false
	})
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	rootCmd.SetArgs(nil)
	return buf.String(), err
}

func TestEnvListTable(t *testing.T) {
	withTestDefinitions(t)

	out, err := executeCommand(t, "env", "list")
	require.NoError(t, err)

	assert.Contains(t, out, "dev")
	assert.Contains(t, out, "staging")
	assert.Contains(t, out, "prod")
	assert.Contains(t, out, "https://api.example.com")
	// prod requires credentials and has none cached yet
	assert.Contains(t, out, "required")
}

func TestEnvListJSON(t *testing.T) {
	withTestDefinitions(t)

	out, err := executeCommand(t, "env", "list", "-o", "json")
	require.NoError(t, err)

	var rows []environmentRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 3)

	byName := make(map[string]environmentRow)
	for _, r := range rows {
		byName[r.Name] = r
	}
	assert.True(t, byName["staging"].Current, "default environment should be current")
	assert.False(t, byName["dev"].Current)
	assert.True(t, byName["prod"].RequiresCredentials)
	assert.False(t, byName["prod"].HasCredentials)
}

func TestEnvCurrentDefault(t *testing.T) {
	withTestDefinitions(t)

	out, err := executeCommand(t, "env", "current")
	require.NoError(t, err)
	assert.Contains(t, out, "staging")
	assert.Contains(t, out, "https://staging.example.com")
}

func TestEnvUsePersistsSelection(t *testing.T) {
	withTestDefinitions(t)

	out, err := executeCommand(t, "env", "use", "dev")
	require.NoError(t, err)
	assert.Contains(t, out, "Switched to dev")

	// A fresh invocation against the same state file restores the choice.
	out, err = executeCommand(t, "env", "current")
	require.NoError(t, err)
	assert.Contains(t, out, "dev")
}

func TestEnvUseUnknown(t *testing.T) {
	withTestDefinitions(t)

	_, err := executeCommand(t, "env", "use", "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestEnvUseWithCredentials(t *testing.T) {
	withTestDefinitions(t)

	out, err := executeCommand(t, "env", "use", "prod", "--credential", "apiKey=sk-12345678")
	require.NoError(t, err)
	assert.Contains(t, out, "Switched to prod")

	out, err = executeCommand(t, "env", "list", "-o", "json")
	require.NoError(t, err)
	var rows []environmentRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	for _, r := range rows {
		if r.Name == "prod" {
			assert.True(t, r.HasCredentials)
			assert.True(t, r.Current)
		}
	}
}

func TestEnvUseRejectsEmptyRequiredCredential(t *testing.T) {
	withTestDefinitions(t)

	_, err := executeCommand(t, "env", "use", "prod", "--credential", "apiKey=")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apiKey")
}

func TestEnvUseMalformedCredential(t *testing.T) {
	withTestDefinitions(t)

	_, err := executeCommand(t, "env", "use", "prod", "--credential", "no-equals-sign")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key=value")
}

func TestEnvShow(t *testing.T) {
	withTestDefinitions(t)

	out, err := executeCommand(t, "env", "show", "prod")
	require.NoError(t, err)
	assert.Contains(t, out, "Production")
	assert.Contains(t, out, "https://api.example.com")
	assert.Contains(t, out, "apiKey")

	_, err = executeCommand(t, "env", "show", "missing")
	require.Error(t, err)
}

func TestClearSavedRestoresDefault(t *testing.T) {
	withTestDefinitions(t)

	_, err := executeCommand(t, "env", "use", "dev")
	require.NoError(t, err)

	out, err := executeCommand(t, "clear-saved")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared saved environment selection")

	out, err = executeCommand(t, "env", "current")
	require.NoError(t, err)
	assert.Contains(t, out, "staging")
}
