package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/esl/client"
	"github.com/luma/esl/protocol"
)

var (
	background bool
	jobTimeout time.Duration
)

func init() {
	flags := APICmd.Flags()

	flags.BoolVarP(&background, "bg", "b", false, "Run with bgapi and wait for the job result")
	flags.DurationVar(&jobTimeout, "job-timeout", 30*time.Second, "How long to wait for a background job")
}

var APICmd = &cobra.Command{
	Use:   "api COMMAND [ARGS...]",
	Short: "Run an api command and print its output",
	Long: `Run an api command and print its output

Usage
	esl api status
	esl api --bg originate user/1000 &park
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

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

		command := strings.Join(args, " ")

		if !background {
			resp, err := c.API(ctx, command)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), resp.Body)
			return nil
		}

		result, err := runJob(ctx, c, events, command, log)
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), result)
		return nil
	},
}

// runJob starts command with bgapi and waits for its BACKGROUND_JOB event.
func runJob(ctx context.Context, c *client.Client, events *client.EventStream, command string, log *zap.Logger) (string, error) {
	if err := c.SubscribeEvents(ctx, protocol.FormatPlain, protocol.EventBackgroundJob); err != nil {
		return "", err
	}

	jobUUID, _, err := c.BgAPIJob(ctx, command)
	if err != nil {
		return "", err
	}

	log.Debug("Waiting for job", zap.String("jobUUID", jobUUID))

	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	for {
		ev, err := events.Recv(ctx)
		switch {
		case errors.Is(err, protocol.ErrQueueFull):
			continue
		case errors.Is(err, io.EOF):
			return "", fmt.Errorf("connection closed waiting for job %s: %v", jobUUID, c.Status())
		case err != nil:
			return "", fmt.Errorf("waiting for job %s: %w", jobUUID, err)
		}

		if ev.Is(protocol.EventBackgroundJob) && ev.JobUUID() == jobUUID {
			return ev.Body, nil
		}
	}
}
