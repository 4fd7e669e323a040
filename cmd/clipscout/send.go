package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.clipscout.dev/clipscout/internal/bundle"
	"go.clipscout.dev/clipscout/internal/crypto"
	"go.clipscout.dev/clipscout/internal/ipc"
	"go.clipscout.dev/clipscout/internal/message"
	"go.clipscout.dev/clipscout/internal/wire"
)

func newSendCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Push stdin into the clipscout clipboard (like pbcopy)",
		Long: `Reads stdin and pushes it into a running manager. The manager forwards
it to every connected monitor, which applies it to the local clipboard.

The local socket is tried first; --addr falls back to TCP.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runSend(v) },
	}

	f := cmd.Flags()
	f.String("socket", "", "manager socket path (default: auto-discovered)")
	f.String("addr", defaultTCPAddr, "manager TCP address (used if no local socket)")
	f.String("token", "", "shared secret")
	f.String("mime", "text/plain", "MIME type of the data being sent")
	f.String("source", defaultSource(), "source identifier")
	addConfigFlag(cmd)

	return cmd
}

func runSend(v *viper.Viper) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	token := v.GetString("token")
	var key *[32]byte
	if token != "" {
		key, err = crypto.DeriveKey(token)
		if err != nil {
			return fmt.Errorf("key derivation: %w", err)
		}
	}

	msg := message.NewReport(v.GetString("source"), bundle.Bundle{
		{MIME: v.GetString("mime"), Data: data},
	})
	payload, err := msg.Encode()
	if err != nil {
		return err
	}

	socket := v.GetString("socket")
	var conn net.Conn
	if ipc.IsRunning(socket) {
		conn, err = ipc.Dial(socket)
	} else {
		conn, err = net.DialTimeout("tcp", v.GetString("addr"), 5*time.Second)
	}
	if err != nil {
		return fmt.Errorf("connect manager: %w", err)
	}
	defer conn.Close()

	return wire.New(conn, key).WriteFrame(payload)
}
