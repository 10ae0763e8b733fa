package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/esl/client"
	"github.com/luma/esl/cmd/gen"
	"github.com/luma/esl/internal/env"
)

var (
	// The switch's inbound event socket
	host string
	port int

	password string

	// user switches authentication to userauth
	user string

	logLevel       string
	commandTimeout time.Duration
)

var RootCmd = &cobra.Command{
	Use:   "esl",
	Short: "A FreeSWITCH event socket client",
	Long: `A FreeSWITCH event socket client

Configuration is read from ESL_* environment variables and .env.local,
flags override both.`,
	SilenceUsage: true,
}

func init() {
	flags := RootCmd.PersistentFlags()

	flags.StringVarP(&host, "host", "a", "127.0.0.1", "The switch's event socket host")
	flags.IntVarP(&port, "port", "p", 8021, "The switch's event socket port")
	flags.StringVar(&password, "password", "ClueCon", "The event socket password")
	flags.StringVarP(&user, "user", "u", "", "Authenticate as user@domain instead of with the socket password")
	flags.StringVar(&logLevel, "log-level", "info", "The log level")
	flags.DurationVar(&commandTimeout, "command-timeout", client.DefaultCommandTimeout, "How long to wait for a command reply")

	RootCmd.AddCommand(APICmd, EventsCmd, OutboundCmd, ServeCmd, VersionCmd, gen.RootCmd)
}

// Execute runs the root command, exiting non-zero on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the environment then applies any flags set explicitly.
func loadConfig(ctx context.Context, cmd *cobra.Command) (*env.Config, *zap.Logger, error) {
	conf, err := env.LoadConfig(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		conf.Host = host
	}
	if flags.Changed("port") {
		conf.Port = port
	}
	if flags.Changed("password") {
		conf.Password = password
	}
	if flags.Changed("user") {
		conf.User = user
	}
	if flags.Changed("log-level") {
		conf.LogLevel = logLevel
	}
	if flags.Changed("command-timeout") {
		conf.CommandTimeout = commandTimeout
	}

	log, err := env.MakeLogger(conf.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	return conf, log, nil
}

func clientOptions(conf *env.Config, log *zap.Logger) []client.Option {
	return []client.Option{
		client.WithLogger(log),
		client.WithCommandTimeout(conf.CommandTimeout),
		client.WithLivenessTimeout(conf.LivenessTimeout),
		client.WithEventQueueSize(conf.EventQueue),
	}
}

// dial connects to the inbound socket, with userauth when a user is set.
func dial(ctx context.Context, conf *env.Config, log *zap.Logger) (*client.Client, *client.EventStream, error) {
	opts := clientOptions(conf, log.Named("client"))

	if conf.User != "" {
		return client.ConnectUser(ctx, conf.Host, conf.Port, conf.User, conf.Password, opts...)
	}

	return client.Connect(ctx, conf.Host, conf.Port, conf.Password, opts...)
}
