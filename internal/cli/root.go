package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vishwas-11/nodecall/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "nodecall",
	Short:   "Two-party video rooms with screen sharing and chat over WebRTC",
	Long:    `NodeCall connects two participants in a named room for a direct peer-to-peer audio/video call, with optional screen sharing and a best-effort text chat. Media flows peer to peer; the relay server only carries signaling.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString("error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
