package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"envswitch/internal/envconfig"
	"envswitch/internal/manager"
	"envswitch/pkg/logging"
)

var (
	envOutputFormat string
	currentCopyURL  bool
	useCredentials  []string
)

// environmentRow is the common serialization of an environment for the
// list/current/show commands.
type environmentRow struct {
	Name                string `json:"name" yaml:"name"`
	DisplayName         string `json:"displayName" yaml:"displayName"`
	BaseURL             string `json:"baseUrl" yaml:"baseUrl"`
	Storage             string `json:"storage" yaml:"storage"`
	RequiresCredentials bool   `json:"requiresCredentials" yaml:"requiresCredentials"`
	HasCredentials      bool   `json:"hasCredentials" yaml:"hasCredentials"`
	Current             bool   `json:"current" yaml:"current"`
}

func newEnvCmd() *cobra.Command {
	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Inspect and switch environments",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all defined environments",
		RunE:  runEnvList,
	}

	currentCmd := &cobra.Command{
		Use:   "current",
		Short: "Show the currently selected environment",
		RunE:  runEnvCurrent,
	}
	currentCmd.Flags().BoolVar(&currentCopyURL, "copy", false, "copy the base URL to the clipboard")

	useCmd := &cobra.Command{
		Use:   "use <environment>",
		Short: "Switch to a named environment",
		Long: `Switch to a named environment and persist the selection (unless the
environment is temporary or --no-persist is set). Credentials can be supplied
inline with repeated --credential key=value flags.`,
		Args: cobra.ExactArgs(1),
		RunE: runEnvUse,
	}
	useCmd.Flags().StringArrayVar(&useCredentials, "credential", nil, "credential as key=value (repeatable)")

	showCmd := &cobra.Command{
		Use:   "show <environment>",
		Short: "Show one environment in detail",
		Args:  cobra.ExactArgs(1),
		RunE:  runEnvShow,
	}

	envCmd.AddCommand(listCmd)
	envCmd.AddCommand(currentCmd)
	envCmd.AddCommand(useCmd)
	envCmd.AddCommand(showCmd)

	envCmd.PersistentFlags().StringVarP(&envOutputFormat, "output", "o", "table", "Output format (table, json, yaml)")

	return envCmd
}

func environmentRows(mgr *manager.Manager) []environmentRow {
	snap := mgr.Snapshot()
	rows := make([]environmentRow, 0, len(snap.Environments))
	for _, env := range snap.Environments {
		rows = append(rows, environmentRow{
			Name:                env.Name,
			DisplayName:         env.DisplayName,
			BaseURL:             env.BaseURL,
			Storage:             string(env.Storage),
			RequiresCredentials: env.RequiresCredentials,
			HasCredentials:      snap.HasCredentials[env.Name],
			Current:             snap.HasCurrent && env.Name == snap.Current.Name,
		})
	}
	return rows
}

func runEnvList(cmd *cobra.Command, args []string) error {
	logging.InitForCLI(logLevel(), os.Stderr)
	mgr, err := newManager(cmd.Context())
	if err != nil {
		return err
	}

	rows := environmentRows(mgr)
	switch envOutputFormat {
	case "json":
		return printJSON(cmd, rows)
	case "yaml":
		return printYAML(cmd, rows)
	case "table":
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, " \tNAME\tDISPLAY NAME\tBASE URL\tSTORAGE\tCREDENTIALS")
		for _, r := range rows {
			marker := " "
			if r.Current {
				marker = "*"
			}
			creds := "-"
			if r.RequiresCredentials {
				if r.HasCredentials {
					creds = "cached"
				} else {
					creds = "required"
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", marker, r.Name, r.DisplayName, r.BaseURL, r.Storage, creds)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown output format %q", envOutputFormat)
	}
}

func runEnvCurrent(cmd *cobra.Command, args []string) error {
	logging.InitForCLI(logLevel(), os.Stderr)
	mgr, err := newManager(cmd.Context())
	if err != nil {
		return err
	}

	env, ok := mgr.Current()
	if !ok {
		return fmt.Errorf("no environment selected")
	}

	if currentCopyURL {
		if err := clipboard.WriteAll(env.BaseURL); err != nil {
			return fmt.Errorf("copy base URL to clipboard: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Copied %s to clipboard\n", env.BaseURL)
		return nil
	}

	row := environmentRow{
		Name:                env.Name,
		DisplayName:         env.DisplayName,
		BaseURL:             env.BaseURL,
		Storage:             string(env.Storage),
		RequiresCredentials: env.RequiresCredentials,
		HasCredentials:      mgr.HasCredentials(env.Name),
		Current:             true,
	}
	switch envOutputFormat {
	case "json":
		return printJSON(cmd, row)
	case "yaml":
		return printYAML(cmd, row)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", env.Name, env.DisplayName)
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", env.BaseURL)
		return nil
	}
}

func runEnvUse(cmd *cobra.Command, args []string) error {
	logging.InitForCLI(logLevel(), os.Stderr)
	mgr, err := newManager(cmd.Context())
	if err != nil {
		return err
	}

	name := args[0]
	credentials, err := parseKeyValuePairs(useCredentials)
	if err != nil {
		return err
	}

	env, ok := mgr.Lookup(name)
	if ok && env.RequiresCredentials && len(credentials) > 0 {
		if err := checkRequiredCredentials(env, credentials, mgr); err != nil {
			return err
		}
	}

	if err := mgr.Switch(cmd.Context(), name, credentials); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Switched to %s\n", name)
	return nil
}

// checkRequiredCredentials verifies that inline credentials plus anything
// already cached cover every required field, so a half-supplied credential
// set fails before the switch instead of after.
func checkRequiredCredentials(env envconfig.Environment, supplied map[string]string, mgr *manager.Manager) error {
	combined := make(map[string]string)
	for k, v := range mgr.Credentials(env.Name) {
		combined[k] = v
	}
	for k, v := range supplied {
		combined[k] = v
	}
	for _, f := range env.CredentialFields {
		if f.Required && combined[f.Key] == "" {
			return fmt.Errorf("environment %q requires credential %q", env.Name, f.Key)
		}
	}
	return nil
}

func runEnvShow(cmd *cobra.Command, args []string) error {
	logging.InitForCLI(logLevel(), os.Stderr)
	mgr, err := newManager(cmd.Context())
	if err != nil {
		return err
	}

	env, ok := mgr.Lookup(args[0])
	if !ok {
		return fmt.Errorf("unknown environment %q", args[0])
	}

	switch envOutputFormat {
	case "json":
		return printJSON(cmd, env)
	case "yaml":
		return printYAML(cmd, env)
	default:
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Name:         %s\n", env.Name)
		fmt.Fprintf(out, "Display name: %s\n", env.DisplayName)
		fmt.Fprintf(out, "Base URL:     %s\n", env.BaseURL)
		fmt.Fprintf(out, "Storage:      %s\n", env.Storage)
		if len(env.Extras) > 0 {
			fmt.Fprintln(out, "Extras:")
			for k, v := range env.Extras {
				fmt.Fprintf(out, "  %s: %v\n", k, v)
			}
		}
		if env.RequiresCredentials {
			fmt.Fprintln(out, "Credential fields:")
			for _, f := range env.CredentialFields {
				required := ""
				if f.Required {
					required = " (required)"
				}
				fmt.Fprintf(out, "  %s%s\n", f.Key, required)
			}
		}
		return nil
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func printYAML(cmd *cobra.Command, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}
