package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"envswitch/pkg/logging"
)

var (
	stateFile string
	noPersist bool
	verbose   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "envswitch",
	Short: "Switch between named backend environments at runtime",
	Long: `envswitch manages a set of named backend environments (dev, staging,
prod, ...) defined in environments.yaml, remembers the selected one across
restarts, and captures per-environment credentials where an environment
declares them. It can be driven from the command line, from an interactive
TUI, or over MCP by agent clients.`,
	// SilenceUsage prevents printing the usage message on errors we handle
	// ourselves (unknown environments, validation failures, ...)
	SilenceUsage: true,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "envswitch version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func logLevel() logging.LogLevel {
	if verbose {
		return logging.LevelDebug
	}
	return logging.LevelInfo
}

func init() {
	rootCmd.PersistentFlags().StringVar(&stateFile, "state-file", "", "path to the state file (default ~/.config/envswitch/state.json)")
	rootCmd.PersistentFlags().BoolVar(&noPersist, "no-persist", false, "keep selection and credentials in memory only")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newEnvCmd())
	rootCmd.AddCommand(newCredsCmd())
	rootCmd.AddCommand(newClearSavedCmd())
	rootCmd.AddCommand(newSwitchCmd())
	rootCmd.AddCommand(newMCPServerCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
