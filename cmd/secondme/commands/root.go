// ABOUTME: Root CLI command with global flags and subcommand registration
// ABOUTME: Serves the engine, speaks MCP, and manages cloud backup
package commands

import (
	"github.com/spf13/cobra"
)

// Global flags shared by all subcommands
var (
	verbose bool
	quiet   bool
	format  string
)

const banner = `
███████╗███████╗ ██████╗ ██████╗ ███╗   ██╗██████╗ ███╗   ███╗███████╗
██╔════╝██╔════╝██╔════╝██╔═══██╗████╗  ██║██╔══██╗████╗ ████║██╔════╝
███████╗█████╗  ██║     ██║   ██║██╔██╗ ██║██║  ██║██╔████╔██║█████╗
╚════██║██╔══╝  ██║     ██║   ██║██║╚██╗██║██║  ██║██║╚██╔╝██║██╔══╝
███████║███████╗╚██████╗╚██████╔╝██║ ╚████║██████╔╝██║ ╚═╝ ██║███████╗
╚══════╝╚══════╝ ╚═════╝ ╚═════╝ ╚═╝  ╚═══╝╚═════╝ ╚═╝     ╚═╝╚══════╝
`

// NewRootCmd creates the root command with all subcommands
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secondme",
		Short: "Personal conversational assistant with long-term memory",
		Long: banner + `
SecondMe is a retrieval-augmented conversation engine. It keeps a
personal memory archive, retrieves relevant memories into each turn,
captures flowmos in the reflection topic, and extracts new memories
from conversations after they go quiet.

Run 'secondme serve' to start the HTTP API, or 'secondme mcp' to
expose the archive to LLM agents over stdio.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().StringVar(&format, "format", "auto", "Output format (auto, json, text)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewSyncCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
