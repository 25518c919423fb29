package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Fludizz/WeatherDuino/internal/app"
	"github.com/Fludizz/WeatherDuino/internal/config"
	"github.com/Fludizz/WeatherDuino/internal/logging"
)

const appName = "udplistener"

// Default version is "dev" if not set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(config.New()).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd(vp *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Receive WeatherDuino UDP datagrams and forward the measurements",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(vp)
			if err != nil {
				fmt.Fprintf(os.Stderr, "config error: %v\n", err)
				return err
			}

			slog.SetDefault(logging.New(cfg, version, appName))
			slog.Info("starting",
				"app", appName,
				"version", version,
				"env", cfg.AppEnv,
				"log_level", cfg.LogLevel.String(),
			)

			if err := app.Run(cmd.Context(), cfg); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("run failed", "err", err)
				return err
			}

			slog.Info("shutting down")
			return nil
		},
	}

	f := cmd.Flags()
	f.Int(config.KeyPort, config.DefaultPort, "UDP port to listen on")
	f.BoolP(config.KeyVerbose, "v", false, "log at debug level, including every received frame")
	f.String(config.KeyLogOutput, "", "append measurements to this file")
	f.String(config.KeySQLOutput, "", "insert measurements into this sqlite database")
	f.String(config.KeyCarbon, "", "forward measurements to a carbon pickle receiver (host:port)")
	f.String(config.KeyMQTT, "", "publish measurements to an MQTT broker (host:port)")
	f.String(config.KeyNATS, "", "publish measurements to a NATS server (url)")
	f.String(config.KeyRedis, "", "keep the latest reading per probe in redis (host:port)")
	f.String(config.KeyFilter, "", "only accept frames from this device (01:02:03 or 010203)")
	f.String(config.KeyVersions, "1,2", "accepted protocol versions")
	f.String(config.KeyNames, "", "TOML file mapping probe indexes to names")
	f.String(config.KeyMetricsAddr, "", "serve /metrics and /healthz on this address")
	f.Bool(config.KeyContinueOnSinkError, false, "log and drop measurements the output fails on instead of exiting")

	if err := vp.BindPFlags(f); err != nil {
		panic(err)
	}
	return cmd
}
