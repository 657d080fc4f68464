package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"envswitch/internal/mcptools"
	"envswitch/pkg/logging"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcpserver",
		Short: "Run the environment switcher as an MCP server over stdio",
		Long: `Run the environment switcher as an MCP server over stdio. Exposes tools
for listing, inspecting, and switching environments so MCP clients can drive
the switcher programmatically. Stdout carries the protocol; logs go to
stderr.`,
		RunE: runMCPServer,
	}
}

func runMCPServer(cmd *cobra.Command, args []string) error {
	logging.InitForCLI(logLevel(), os.Stderr)

	mgr, err := newManager(cmd.Context())
	if err != nil {
		return err
	}

	logging.Info("MCPServer", "Starting MCP server on stdio")
	return mcptools.ServeStdio(mgr, rootCmd.Version)
}
