// clipscout: clipboard change monitoring over a local socket.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.clipscout.dev/clipscout/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "clipscout",
		Short: "Clipboard change monitoring over a local socket",
		Long: `clipscout watches the system clipboard (and the X11 PRIMARY selection
where one exists), deduplicates and filters what it sees, and reports changes
to a manager process over a local socket. The manager can push settings and
clipboard contents back.

Run "clipscout serve" as the manager, then "clipscout monitor" per display.
Use "clipscout send/status" as CLI tools against a running manager.

Config file search order (first found wins):
  /etc/clipscout/clipscout.toml
  $HOME/.config/clipscout/clipscout.toml
  path supplied via --config

All flags can be set via CLIPSCOUT_<FLAG> env vars or config-file keys.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newMonitorCmd(),
		newServeCmd(),
		newSendCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("clipscout %s\n", Version)
		},
	}
}

// resolveLogging sets up the global slog logger after flags are parsed.
func resolveLogging(interactive bool, formatStr, levelStr string) {
	format := logging.ParseFormat(formatStr)
	level := logging.ParseLevel(levelStr)
	if levelStr == "" {
		if interactive {
			level = logging.ParseLevel("debug")
		} else {
			level = logging.ParseLevel("info")
		}
	}
	logging.Setup(format, level)
}
