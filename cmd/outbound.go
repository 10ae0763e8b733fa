package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/esl/protocol"
	"github.com/luma/esl/storage"
	"github.com/luma/esl/transport"
)

var (
	outboundAddr string
	maxSessions  int
	outboundApp  string
	outboundArgs string
)

func init() {
	flags := OutboundCmd.Flags()

	flags.StringVarP(&outboundAddr, "listen", "l", "0.0.0.0:8040", "The address the switch connects to")
	flags.IntVar(&maxSessions, "max-sessions", transport.DefaultMaxSessions, "The most calls served at once")
	flags.StringVar(&outboundApp, "app", "park", "The application to run on every call")
	flags.StringVar(&outboundArgs, "args", "", "Arguments for --app")
}

var OutboundCmd = &cobra.Command{
	Use:   "outbound",
	Short: "Serve calls the switch hands over with the socket application",
	Long: `Serve calls the switch hands over with the socket application

Every call is connected, the chosen application is executed on it and its
events are logged until it hangs up.

Usage
	esl outbound --listen 0.0.0.0:8040 --app playback --args /tmp/hello.wav
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		conf, log, err := loadConfig(ctx, cmd)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		if cmd.Flags().Changed("listen") {
			conf.OutboundAddr = outboundAddr
		}
		if cmd.Flags().Changed("max-sessions") {
			conf.MaxSessions = maxSessions
		}

		listenHost, listenPort, err := splitHostPort(conf.OutboundAddr)
		if err != nil {
			return err
		}

		store := storage.NewInmemoryStore(log.Named("store"))
		defer store.Close()

		server := transport.NewServer(transport.Options{
			Host:          listenHost,
			Port:          listenPort,
			Reuseport:     true,
			MaxSessions:   conf.MaxSessions,
			Connect:       true,
			Handler:       runApplication(outboundApp, outboundArgs, store, log.Named("session")),
			Store:         store,
			ClientOptions: clientOptions(conf, log.Named("client")),
			Log:           log.Named("transport"),
		})

		if err := server.Start(ctx); err != nil {
			return err
		}

		log.Info("Listening for outbound sessions", zap.Stringer("addr", server.Addr()))

		<-ctx.Done()
		stop()
		log.Info("Shutting down, press Ctrl+C again to force")

		return server.Close()
	},
}

// runApplication executes app on each call and tracks its events until the
// channel hangs up.
func runApplication(app, appArgs string, store storage.Store, log *zap.Logger) transport.SessionHandler {
	return func(ctx context.Context, s *transport.Session) error {
		log := log.With(zap.String("uuid", s.UUID()))

		if err := s.Client.MyEvents(ctx, protocol.FormatPlain, ""); err != nil {
			return err
		}

		if err := s.Client.Linger(ctx, 0); err != nil {
			return err
		}

		if _, err := s.Client.Execute(ctx, app, appArgs, ""); err != nil {
			return fmt.Errorf("failed to execute %s: %w", app, err)
		}

		for {
			ev, err := s.Events.Recv(ctx)
			switch {
			case errors.Is(err, protocol.ErrQueueFull):
				continue
			case errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
				return nil
			case err != nil:
				return err
			}

			log.Debug("Session event", zap.String("event", ev.Name()))

			if err := store.Apply(ctx, ev); err != nil {
				log.Warn("Failed to track event", zap.Error(err))
			}

			if ev.Is(protocol.EventChannelHangupComplete) {
				log.Info("Channel hung up", zap.String("cause", ev.Header("Hangup-Cause")))
				return s.Client.Exit(ctx)
			}
		}
	}
}

func splitHostPort(addr string) (string, int, error) {
	h, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid address %q: %w", addr, err)
	}

	n, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in %q: %w", addr, err)
	}

	return h, n, nil
}
