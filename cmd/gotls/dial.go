package main

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quorumlabs/gotls/pkg/tlsclient"
)

// netConnStream adapts a net.Conn to tlsclient.ByteStream for the
// ciphertext side. Window always reports a fixed 1 MiB (net.Conn.Write
// blocks on its own), so this adapter never applies TLS-level backpressure beyond what the
// kernel socket buffer already does.
type netConnStream struct {
	conn net.Conn
}

func (n *netConnStream) Window() int { return 1 << 20 }

func (n *netConnStream) Deliver(b []byte) error {
	_, err := n.conn.Write(b)
	return err
}

func (n *netConnStream) Close(reason error) error {
	return n.conn.Close()
}

func newDialCmd(logger *zap.Logger) *cobra.Command {
	var addr string
	var serverName string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "dial",
		Short: "Open a TLS connection to a host and report the negotiated session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDial(logger, addr, serverName, timeout)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "host:port to connect to (required)")
	cmd.Flags().StringVar(&serverName, "server-name", "", "SNI / certificate host name (defaults to the host in --addr)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "handshake timeout")
	_ = cmd.MarkFlagRequired("addr")

	return cmd
}

func runDial(logger *zap.Logger, addr, serverName string, timeout time.Duration) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("gotls: parsing --addr: %w", err)
	}
	if serverName == "" {
		serverName = host
	}

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return fmt.Errorf("gotls: dialing %s: %w", addr, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	below := &netConnStream{conn: conn}
	plaintext, err := tlsclient.AddTLS(below, serverName, tlsclient.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("gotls: starting handshake: %w", err)
	}

	buf := make([]byte, 4096)
	for plaintext.Window() == 0 {
		n, err := conn.Read(buf)
		if err != nil {
			return fmt.Errorf("gotls: handshake read: %w", err)
		}
		if err := plaintext.DeliverCiphertext(buf[:n]); err != nil {
			return fmt.Errorf("gotls: processing handshake bytes: %w", err)
		}
	}

	logger.Info("TLS handshake complete", zap.String("server_name", serverName))
	return plaintext.Close(nil)
}
