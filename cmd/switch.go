package cmd

import (
	"github.com/spf13/cobra"

	"envswitch/internal/tui"
	"envswitch/internal/validate"
	"envswitch/pkg/logging"
)

func newSwitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch",
		Short: "Open the interactive environment switcher",
		Long: `Open the interactive environment switcher. Press 's' three times in
quick succession to unlock the selector, pick an environment, and fill in
credentials when the environment requires them.`,
		RunE: runSwitch,
	}
}

func runSwitch(cmd *cobra.Command, args []string) error {
	// Stream log output would corrupt the alternate screen; route entries
	// into the program's activity pane instead.
	logCh := logging.InitForTUI(logLevel())
	defer logging.CloseTUIChannel()

	mgr, err := newManager(cmd.Context())
	if err != nil {
		return err
	}

	return tui.Run(mgr, validate.NewRegistry(), logCh)
}
