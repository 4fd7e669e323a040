package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/soheilhy/cmux"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.clipscout.dev/clipscout/internal/crypto"
	"go.clipscout.dev/clipscout/internal/hub"
	"go.clipscout.dev/clipscout/internal/ipc"
	"go.clipscout.dev/clipscout/internal/message"
)

// defaultTCPAddr is where serve exposes the TCP listener (monitor protocol
// and HTTP status multiplexed) unless told otherwise.
const defaultTCPAddr = "127.0.0.1:7632"

func newServeCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the clipboard manager hub",
		Long: `Starts the clipscout manager. Monitors connect over the local socket
(or TCP), receive an initial settings push, and report clipboard changes;
every report is fanned out to all other monitors, so displays stay in sync.

The TCP listener also answers plain HTTP on the same port:
  GET /status   connected monitors and latest bundle metadata (JSON)
  GET /healthz  liveness

The settings flags below are pushed to every connecting monitor.

Config file search order:
  /etc/clipscout/clipscout.toml
  $HOME/.config/clipscout/clipscout.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → CLIPSCOUT_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runServe(v) },
	}

	f := cmd.Flags()
	f.String("socket", "", "local socket path (default: auto-discovered)")
	f.String("addr", defaultTCPAddr, "TCP listen address for remote monitors + HTTP status (empty = disabled)")
	f.String("token", "", "shared secret (empty = plaintext frames)")
	f.String("formats", "", "MIME types monitors should track (pushed as settings)")
	f.Bool("check-clipboard", true, "monitors report clipboard changes")
	f.Bool("check-selection", false, "monitors report selection changes (X11 only)")
	f.Bool("sync-clipboard-to-selection", false, "monitors mirror clipboard into selection (X11 only)")
	f.Bool("sync-selection-to-clipboard", false, "monitors mirror selection into clipboard (X11 only)")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runServe(v *viper.Viper) error {
	setupLogging(v)

	socket := v.GetString("socket")
	addr := v.GetString("addr")
	token := v.GetString("token")

	var key *[32]byte
	if token != "" {
		var err error
		key, err = crypto.DeriveKey(token)
		if err != nil {
			return fmt.Errorf("key derivation: %w", err)
		}
	}

	base := message.Settings{
		Formats:                  message.Str(v.GetString("formats")),
		CheckClipboard:           message.Bool(v.GetBool("check-clipboard")),
		CheckSelection:           message.Bool(v.GetBool("check-selection")),
		SyncClipboardToSelection: message.Bool(v.GetBool("sync-clipboard-to-selection")),
		SyncSelectionToClipboard: message.Bool(v.GetBool("sync-selection-to-clipboard")),
	}

	if socket == "" {
		socket = ipc.SocketPath()
	}

	slog.Info("clipscout manager starting",
		"version", Version,
		"socket", socket,
		"addr", addr,
		"encrypted", key != nil,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := hub.New(base)

	unixLn, err := ipc.Listen(socket)
	if err != nil {
		return fmt.Errorf("listen %s: %w", socket, err)
	}

	errCh := make(chan error, 2)
	go func() { errCh <- h.Serve(ctx, unixLn, key) }()

	if addr != "" {
		tcpLn, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		go func() { errCh <- serveTCP(ctx, tcpLn, h, key) }()
	}

	select {
	case <-ctx.Done():
		slog.Info("manager stopping")
		return nil
	case err := <-errCh:
		return err
	}
}

// serveTCP multiplexes HTTP status requests and monitor connections on one
// listener: anything that looks like HTTP/1 goes to the status handler, the
// rest is treated as the frame protocol.
func serveTCP(ctx context.Context, ln net.Listener, h *hub.Hub, key *[32]byte) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	m := cmux.New(ln)
	httpLn := m.Match(cmux.HTTP1Fast())
	wireLn := m.Match(cmux.Any())

	go func() {
		srv := &http.Server{Handler: h.HTTPHandler()}
		_ = srv.Serve(httpLn)
	}()
	go func() { _ = h.Serve(ctx, wireLn, key) }()

	if err := m.Serve(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("tcp mux: %w", err)
	}
	return nil
}
