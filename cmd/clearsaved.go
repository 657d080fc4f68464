package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"envswitch/pkg/logging"
)

func newClearSavedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-saved",
		Short: "Forget the persisted environment selection",
		Long: `Remove the persisted environment selection from the state file. The
current in-memory selection is unaffected; the next run starts from the
default environment again.`,
		RunE: runClearSaved,
	}
}

func runClearSaved(cmd *cobra.Command, args []string) error {
	logging.InitForCLI(logLevel(), os.Stderr)
	mgr, err := newManager(cmd.Context())
	if err != nil {
		return err
	}

	if err := mgr.ClearSaved(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Cleared saved environment selection")
	return nil
}
