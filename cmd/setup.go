package cmd

import (
	"context"
	"fmt"

	"envswitch/internal/envconfig"
	"envswitch/internal/manager"
	"envswitch/internal/store"
)

// For mocking in tests
var loadDefinitions = envconfig.LoadDefinitions

// newManager loads the environment definitions, opens the state store and
// returns an initialized manager. Every subcommand goes through here so they
// all share the same composition.
func newManager(ctx context.Context) (*manager.Manager, error) {
	defs, err := loadDefinitions()
	if err != nil {
		return nil, err
	}
	if len(defs.Environments) == 0 {
		return nil, fmt.Errorf("no environments defined; create %s or %s",
			"~/.config/envswitch/environments.yaml", "./.envswitch/environments.yaml")
	}

	st, err := openStore()
	if err != nil {
		return nil, err
	}

	var opts []manager.Option
	if noPersist {
		opts = append(opts, manager.WithoutPersistence())
	}
	mgr := manager.New(st, opts...)

	var defaultEnv *envconfig.Environment
	if env, ok := defs.DefaultEnvironment(); ok {
		defaultEnv = &env
	}

	if err := mgr.Initialize(ctx, defs.Environments, defaultEnv); err != nil {
		return nil, err
	}
	return mgr, nil
}

func openStore() (store.Store, error) {
	if noPersist {
		return store.NewMemoryStore(), nil
	}
	path := stateFile
	if path == "" {
		var err error
		path, err = store.DefaultStatePath()
		if err != nil {
			return nil, fmt.Errorf("determine state file path: %w", err)
		}
	}
	return store.NewFileStore(path), nil
}
