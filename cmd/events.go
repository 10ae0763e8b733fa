package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/esl/protocol"
	"github.com/luma/esl/storage"
)

var (
	eventFormat string
	jsonOutput  bool
	track       bool
)

func init() {
	flags := EventsCmd.Flags()

	flags.StringVarP(&eventFormat, "format", "f", "plain", "The wire format to subscribe with: plain, json or xml")
	flags.BoolVar(&jsonOutput, "json", false, "Print events as json objects, one per line")
	flags.BoolVar(&track, "track", false, "Track channels and print a line whenever one changes")
}

var EventsCmd = &cobra.Command{
	Use:   "events [EVENT...]",
	Short: "Subscribe to events and print them",
	Long: `Subscribe to events and print them, every event when none are named

Usage
	esl events CHANNEL_CREATE CHANNEL_HANGUP
	esl events --track
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		format, ok := protocol.ParseEventFormat(eventFormat)
		if !ok {
			return fmt.Errorf("unknown event format %q", eventFormat)
		}

		kinds := make([]protocol.EventKind, 0, len(args))
		for _, arg := range args {
			kind, ok := protocol.ParseEventKind(arg)
			if !ok {
				return fmt.Errorf("unknown event %q", arg)
			}
			kinds = append(kinds, kind)
		}

		conf, log, err := loadConfig(ctx, cmd)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		c, events, err := dial(ctx, conf, log)
		if err != nil {
			return err
		}
		defer c.Disconnect()

		if err := c.SubscribeEvents(ctx, format, kinds...); err != nil {
			return err
		}

		var store storage.Store
		if track {
			store = storage.NewInmemoryStore(log.Named("store"))
			defer store.Close()

			go printUpdates(cmd.OutOrStdout(), store.ListenToUpdates())
		}

		out := json.NewEncoder(cmd.OutOrStdout())

		for {
			ev, err := events.Recv(ctx)
			switch {
			case errors.Is(err, protocol.ErrQueueFull):
				log.Warn("Events were dropped", zap.Uint64("dropped", events.Dropped()))
				continue
			case errors.Is(err, io.EOF):
				log.Info("Connection closed", zap.Stringer("status", c.Status()))
				return c.Status().Err
			case errors.Is(err, context.Canceled):
				return nil
			case err != nil:
				return err
			}

			if store != nil {
				if err := store.Apply(ctx, ev); err != nil {
					log.Warn("Failed to track event", zap.Error(err))
				}
				continue
			}

			if jsonOutput {
				if err := out.Encode(ev); err != nil {
					return err
				}
				continue
			}

			fmt.Fprintln(cmd.OutOrStdout(), ev.ToPlain())
		}
	},
}

func printUpdates(w io.Writer, updates <-chan *storage.Update) {
	for update := range updates {
		if update.Removed {
			fmt.Fprintf(w, "- %s\n", update.UUID)
			continue
		}

		fmt.Fprintf(w, "* %s %s\n", update.UUID, update.Value)
	}
}
