package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/Fludizz/WeatherDuino/internal/config"
	"github.com/Fludizz/WeatherDuino/internal/db"
	"github.com/Fludizz/WeatherDuino/internal/httpapi"
	"github.com/Fludizz/WeatherDuino/internal/listener"
	"github.com/Fludizz/WeatherDuino/internal/metrics"
	"github.com/Fludizz/WeatherDuino/internal/mqtt"
	"github.com/Fludizz/WeatherDuino/internal/probes"
	"github.com/Fludizz/WeatherDuino/internal/protocol"
	"github.com/Fludizz/WeatherDuino/internal/sink"
)

const (
	dialTimeout     = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Run serves until ctx is cancelled or a component fails. Any setup failure
// (names file, sink, socket) is returned before the listener starts.
func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"listenAddr", cfg.ListenAddr(),
		"output", cfg.Output.String(),
		"target", cfg.Target,
		"versions", cfg.Versions,
		"filter", filterString(cfg.Filter),
		"names", cfg.NamesPath,
		"metricsAddr", cfg.MetricsAddr,
		"continueOnSinkError", cfg.ContinueOnSinkError,
	)

	names, err := loadNames(cfg.NamesPath)
	if err != nil {
		return err
	}

	out, err := newSink(ctx, cfg, names, os.Stdout, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			slog.Error("sink close", "sink", out.Name(), "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	l, err := listener.Listen(ctx, cfg.ListenAddr(), listener.Options{
		Validator:           protocol.Validator{Versions: cfg.Versions, Filter: cfg.Filter},
		Sink:                out,
		Metrics:             metrics.New(reg),
		Logger:              slog.Default(),
		ContinueOnSinkError: cfg.ContinueOnSinkError,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return l.Serve(gctx) })

	if cfg.MetricsAddr != "" {
		srv := httpapi.NewServer(cfg.MetricsAddr, httpapi.NewMux(reg, l))
		g.Go(func() error {
			slog.Info("http listening", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			slog.Info("http shutting down")
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func loadNames(path string) (*probes.Names, error) {
	if path == "" {
		return nil, nil
	}
	names, err := probes.Load(path)
	if err != nil {
		return nil, err
	}
	slog.Info("probe names loaded", "path", path, "entries", names.Len())
	return names, nil
}

// newSink builds the single configured output. Failing to open or reach the
// target is a setup error.
func newSink(ctx context.Context, cfg config.Config, names *probes.Names, stdout io.Writer, logger *slog.Logger) (sink.Sink, error) {
	switch cfg.Output {
	case config.OutputConsole:
		return sink.NewConsole(stdout, names), nil

	case config.OutputLogFile:
		return sink.OpenLogFile(cfg.Target, names)

	case config.OutputSQL:
		conn, created, err := db.Open(cfg.Target, db.Options{
			TraceSQL: cfg.LogLevel <= slog.LevelDebug,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		t, err := sink.NewTable(ctx, conn, created, names)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		logger.Info("sqlite ready", "path", cfg.Target, "created", created)
		return t, nil

	case config.OutputCarbon:
		return sink.DialCarbon(ctx, cfg.Target, names)

	case config.OutputMQTT:
		pub := mqtt.NewPublisher(mqtt.Options{
			Broker: cfg.Target,
			QoS:    1,
			Logger: logger,
		})
		connectCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()
		if err := pub.Connect(connectCtx); err != nil {
			pub.Disconnect()
			return nil, fmt.Errorf("mqtt %s: %w", cfg.Target, err)
		}
		return sink.NewMQTT(pub, "", names), nil

	case config.OutputNATS:
		return sink.DialNATS(cfg.Target, names, logger)

	case config.OutputRedis:
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()
		return sink.DialRedis(dialCtx, cfg.Target, names)

	default:
		return nil, fmt.Errorf("unknown output %s", cfg.Output)
	}
}

func filterString(f *protocol.DeviceID) string {
	if f == nil {
		return ""
	}
	return f.String()
}
