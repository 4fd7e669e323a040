package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.clipscout.dev/clipscout/internal/board"
	"go.clipscout.dev/clipscout/internal/bundle"
	"go.clipscout.dev/clipscout/internal/crypto"
	"go.clipscout.dev/clipscout/internal/ipc"
	"go.clipscout.dev/clipscout/internal/monitor"
	"go.clipscout.dev/clipscout/internal/selection"
	"go.clipscout.dev/clipscout/internal/wire"
)

func newMonitorCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Watch the clipboard and report changes to the manager",
		Long: `Connects to the manager socket and watches the platform clipboard
(and the X11 PRIMARY selection where one exists). Filtered, deduplicated
changes are reported to the manager; the manager pushes settings and
clipboard contents back over the same connection.

The initial connect has a 2 second timeout; the monitor exits with status 1
when no manager is reachable or when the connection later fails.

Config file search order:
  /etc/clipscout/clipscout.toml
  $HOME/.config/clipscout/clipscout.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → CLIPSCOUT_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runMonitor(v) },
	}

	f := cmd.Flags()
	f.String("socket", "", "manager socket path (default: auto-discovered)")
	f.String("token", "", "shared secret (must match the manager; empty = plaintext)")
	f.String("formats", "", "MIME types to track, separated by ';', ',' or whitespace (empty = all)")
	f.String("source", defaultSource(), "name for this monitor in manager output")
	f.Bool("check-clipboard", true, "report clipboard changes")
	f.Bool("check-selection", false, "report selection changes (X11 only)")
	f.Bool("sync-clipboard-to-selection", false, "mirror clipboard changes into the selection (X11 only)")
	f.Bool("sync-selection-to-clipboard", false, "mirror selection changes into the clipboard (X11 only)")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runMonitor(v *viper.Viper) error {
	setupLogging(v)

	socket := v.GetString("socket")
	token := v.GetString("token")
	source := v.GetString("source")

	var key *[32]byte
	if token != "" {
		var err error
		key, err = crypto.DeriveKey(token)
		if err != nil {
			return fmt.Errorf("key derivation: %w", err)
		}
	}

	if socket == "" {
		socket = ipc.SocketPath()
	}
	conn, err := ipc.Dial(socket)
	if err != nil {
		return fmt.Errorf("connect manager: %w", err)
	}
	ch := wire.New(conn, key)
	defer ch.Close()

	b := board.New()
	defer b.Close()

	guard := selection.New()
	defer guard.Close()

	cfg := monitor.Config{
		Formats:                  bundle.ParseFormats(v.GetString("formats")),
		CheckClipboard:           v.GetBool("check-clipboard"),
		CheckSelection:           v.GetBool("check-selection"),
		SyncClipboardToSelection: v.GetBool("sync-clipboard-to-selection"),
		SyncSelectionToClipboard: v.GetBool("sync-selection-to-clipboard"),
	}

	slog.Info("clipscout monitor starting",
		"version", Version,
		"source", source,
		"socket", socket,
		"encrypted", key != nil,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := monitor.New(b, guard, ch, source, cfg, monitor.Options{})
	if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("monitor stopped")
	return nil
}
