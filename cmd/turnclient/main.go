// Command turnclient demonstrates the client package against a real
// STUN/TURN server: it allocates a relay, installs a permission for a
// peer, sends it one datagram, and waits for the peer to echo it back.
package main

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gortc/turnc/client"
)

var rootCmd = &cobra.Command{
	Use: "turnclient",
	Run: func(cmd *cobra.Command, args []string) {
		logCfg := zap.NewDevelopmentConfig()
		logCfg.DisableCaller = true
		logCfg.DisableStacktrace = true
		logger, err := logCfg.Build()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		server, err := net.ResolveUDPAddr("udp", viper.GetString("server"))
		if err != nil {
			logger.Fatal("failed to resolve server", zap.Error(err))
		}
		peer, err := net.ResolveUDPAddr("udp", viper.GetString("peer.addr"))
		if err != nil {
			logger.Fatal("failed to resolve peer", zap.Error(err))
		}

		s, err := client.NewSession(client.Config{
			Server:   server,
			Username: viper.GetString("username"),
			Secret:   viper.GetString("secret"),
			Timeout:  viper.GetDuration("timeout"),
		}, logger)
		if err != nil {
			logger.Fatal("failed to start session", zap.Error(err))
		}
		defer s.Close()

		relayed, err := s.Allocate()
		if err != nil {
			if cerr, ok := err.(*client.Error); ok && cerr.Kind == client.KindUnauthorized {
				relayed, err = s.Allocate()
			}
			if err != nil {
				logger.Fatal("failed to allocate", zap.Error(err))
			}
		}
		logger.Info("allocated", zap.Stringer("relayed", relayAddrStringer{relayed}))

		peerAddr := client.Addr{IP: peer.IP, Port: peer.Port}
		if err := s.CreatePermission([]net.IP{peer.IP}); err != nil {
			logger.Fatal("failed to create permission", zap.Error(err))
		}

		echo := make(chan []byte, 1)
		s.Subscribe(peer.IP, receiveFunc(func(_ client.Addr, data []byte) {
			echo <- append([]byte(nil), data...)
		}))

		if err := s.Send(peerAddr, []byte("Hello world!")); err != nil {
			logger.Fatal("failed to send", zap.Error(err))
		}
		logger.Info("sent indication")

		select {
		case data := <-echo:
			logger.Info("received echo", zap.ByteString("data", data))
		case <-time.After(5 * time.Second):
			logger.Fatal("timed out waiting for echo")
		}
	},
}

// receiveFunc adapts a plain function to client.Subscriber.
type receiveFunc func(peer client.Addr, data []byte)

func (f receiveFunc) Receive(peer client.Addr, data []byte) { f(peer, data) }

type relayAddrStringer struct{ a client.Addr }

func (r relayAddrStringer) String() string {
	return fmt.Sprintf("%s:%d", r.a.IP, r.a.Port)
}

func init() {
	f := rootCmd.Flags()
	f.StringP("server", "s", "localhost:3478", "server addr")
	f.String("peer.addr", "0.0.0.0:40002", "peer addr")
	f.String("username", "", "long-term credential username")
	f.String("secret", "", "long-term credential secret")
	f.Duration("timeout", client.DefaultTimeout, "per-transaction timeout")

	viper.BindPFlag("server", f.Lookup("server"))
	viper.BindPFlag("peer.addr", f.Lookup("peer.addr"))
	viper.BindPFlag("username", f.Lookup("username"))
	viper.BindPFlag("secret", f.Lookup("secret"))
	viper.BindPFlag("timeout", f.Lookup("timeout"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
