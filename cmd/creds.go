package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"envswitch/pkg/logging"
)

var (
	credsClearAll bool
	credsReveal   bool
)

func newCredsCmd() *cobra.Command {
	credsCmd := &cobra.Command{
		Use:   "creds",
		Short: "Manage cached credentials",
	}

	setCmd := &cobra.Command{
		Use:   "set <environment> <key=value> [key=value ...]",
		Short: "Store credentials for an environment",
		Long: `Store credentials for an environment. If the environment is the current
one it is re-applied with the new credentials; otherwise the credentials are
cached for the next switch.`,
		Args: cobra.MinimumNArgs(2),
		RunE: runCredsSet,
	}

	clearCmd := &cobra.Command{
		Use:   "clear [environment]",
		Short: "Remove cached credentials",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCredsClear,
	}
	clearCmd.Flags().BoolVar(&credsClearAll, "all", false, "clear credentials for every environment")

	showCmd := &cobra.Command{
		Use:   "show <environment>",
		Short: "Show cached credentials (masked by default)",
		Args:  cobra.ExactArgs(1),
		RunE:  runCredsShow,
	}
	showCmd.Flags().BoolVar(&credsReveal, "reveal", false, "print credential values in the clear")

	credsCmd.AddCommand(setCmd)
	credsCmd.AddCommand(clearCmd)
	credsCmd.AddCommand(showCmd)

	return credsCmd
}

func runCredsSet(cmd *cobra.Command, args []string) error {
	logging.InitForCLI(logLevel(), os.Stderr)
	mgr, err := newManager(cmd.Context())
	if err != nil {
		return err
	}

	name := args[0]
	credentials, err := parseKeyValuePairs(args[1:])
	if err != nil {
		return err
	}
	if _, ok := mgr.Lookup(name); !ok {
		return fmt.Errorf("unknown environment %q", name)
	}

	// Switching to the named environment both applies and caches the
	// credentials. When it is already current this is a re-apply.
	if err := mgr.Switch(cmd.Context(), name, credentials); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Stored %d credential(s) for %s\n", len(credentials), name)
	return nil
}

func runCredsClear(cmd *cobra.Command, args []string) error {
	logging.InitForCLI(logLevel(), os.Stderr)
	mgr, err := newManager(cmd.Context())
	if err != nil {
		return err
	}

	if credsClearAll {
		if err := mgr.ClearAllCredentials(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Cleared credentials for all environments")
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("specify an environment or --all")
	}
	name := args[0]
	if _, ok := mgr.Lookup(name); !ok {
		return fmt.Errorf("unknown environment %q", name)
	}
	if err := mgr.ClearCredentials(cmd.Context(), name); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared credentials for %s\n", name)
	return nil
}

func runCredsShow(cmd *cobra.Command, args []string) error {
	logging.InitForCLI(logLevel(), os.Stderr)
	mgr, err := newManager(cmd.Context())
	if err != nil {
		return err
	}

	name := args[0]
	if _, ok := mgr.Lookup(name); !ok {
		return fmt.Errorf("unknown environment %q", name)
	}

	credentials := mgr.Credentials(name)
	if len(credentials) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No credentials cached for %s\n", name)
		return nil
	}

	keys := make([]string, 0, len(credentials))
	for k := range credentials {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		value := credentials[k]
		if !credsReveal {
			value = maskValue(value)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, value)
	}
	return nil
}

// maskValue keeps the last four characters visible for short sanity checks.
func maskValue(v string) string {
	if len(v) <= 4 {
		return strings.Repeat("*", len(v))
	}
	return strings.Repeat("*", len(v)-4) + v[len(v)-4:]
}

func parseKeyValuePairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid credential %q, expected key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}
