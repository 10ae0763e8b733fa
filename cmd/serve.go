package cmd

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/esl/client"
	"github.com/luma/esl/protocol"
	"github.com/luma/esl/storage"
)

var httpAddr string

func init() {
	flags := ServeCmd.Flags()

	flags.StringVar(&httpAddr, "http-addr", "0.0.0.0:7362", "The address to listen for HTTP requests on")
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Bridge the event socket to HTTP",
	Long: `Bridge the event socket to HTTP

Keeps one inbound connection open, tracks live channels from its events and
serves api commands and channel state over HTTP.

Usage
	esl serve --http-addr 0.0.0.0:7362
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer signalStop()

		conf, log, err := loadConfig(ctx, cmd)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		if cmd.Flags().Changed("http-addr") {
			conf.HTTPAddr = httpAddr
		}

		fileLimit, err := setFileLimit()
		if err != nil {
			return err
		}

		log.Info("Set file limit", zap.Uint64("fileLimit", fileLimit))

		c, events, err := dial(ctx, conf, log)
		if err != nil {
			return err
		}
		defer c.Disconnect()

		if err := c.SubscribeEvents(ctx, protocol.FormatJSON, trackedEvents...); err != nil {
			return err
		}

		store := storage.NewInmemoryStore(log.Named("store"))
		defer store.Close()

		go trackChannels(ctx, events, store, log.Named("tracker"))

		router := setupRouter(conf.DebugHTTP, log)
		registerRoutes(router, c, events, store)

		s := &http.Server{
			Addr:    conf.HTTPAddr,
			Handler: router,
		}

		// Initializing the server in a goroutine so that
		// it won't block the graceful shutdown handling below
		go func() {
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Http server errored", zap.Error(err))
			}
		}()

		log.Info("Listening",
			zap.String("switch", conf.Host),
			zap.Int("port", conf.Port),
			zap.String("httpAddr", conf.HTTPAddr))

		// Wait for the interrupt signal or the switch to go away.
		select {
		case <-ctx.Done():
		case <-c.Done():
			log.Error("Lost the event socket", zap.Stringer("status", c.Status()))
		}

		// Restore default behavior on the interrupt signal and notify user of shutdown.
		signalStop()
		log.Info("Shutting down gracefully, press Ctrl+C again to force")

		// The context is used to inform the server it has 5 seconds to finish
		// the request it is currently handling
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.SetKeepAlivesEnabled(false)

		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Error("Http server forced to shutdown", zap.Error(err))
		}

		log.Info("Exiting")
		return c.Status().Err
	},
}

var trackedEvents = []protocol.EventKind{
	protocol.EventChannelCreate,
	protocol.EventChannelAnswer,
	protocol.EventChannelBridge,
	protocol.EventChannelUnbridge,
	protocol.EventChannelHold,
	protocol.EventChannelUnhold,
	protocol.EventChannelCallstate,
	protocol.EventChannelDestroy,
}

func trackChannels(ctx context.Context, events *client.EventStream, store storage.Store, log *zap.Logger) {
	for {
		ev, err := events.Recv(ctx)
		switch {
		case errors.Is(err, protocol.ErrQueueFull):
			log.Warn("Channel events were dropped, tracked state may be stale",
				zap.Uint64("dropped", events.Dropped()))
			continue
		case err != nil:
			if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
				log.Error("Stopped tracking channels", zap.Error(err))
			}
			return
		}

		if err := store.Apply(ctx, ev); err != nil {
			log.Warn("Failed to track event", zap.String("event", ev.Name()), zap.Error(err))
		}
	}
}

func setupRouter(debugHTTP bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debugHTTP {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Logs all requests, like a combined access and error log, in UTC
	// RFC3339 time.
	r.Use(ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/ping"},
	}))

	// Logs all panic to error log
	//   - stack means whether output the stack info.
	r.Use(ginzap.RecoveryWithZap(log, true))

	return r
}

func setFileLimit() (uint64, error) {
	var rLimit syscall.Rlimit

	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	rLimit.Cur = rLimit.Max
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	return rLimit.Cur, nil
}
