// Package listener runs the receive, decode and dispatch loop for station
// datagrams.
package listener

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/Fludizz/WeatherDuino/internal/metrics"
	"github.com/Fludizz/WeatherDuino/internal/protocol"
	"github.com/Fludizz/WeatherDuino/internal/sink"
)

// maxDatagram fits 255 probes of the largest record layout.
const maxDatagram = 2048

type State int32

const (
	Idle State = iota
	Listening
	Decoding
	Dispatching
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Decoding:
		return "decoding"
	case Dispatching:
		return "dispatching"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type Options struct {
	Validator protocol.Validator
	Sink      sink.Sink
	Metrics   *metrics.Metrics
	Logger    *slog.Logger

	// ContinueOnSinkError logs and drops a measurement the sink failed on
	// instead of stopping the loop.
	ContinueOnSinkError bool
}

type Listener struct {
	conn  net.PacketConn
	opts  Options
	log   *slog.Logger
	state atomic.Int32
}

// Listen binds a UDP socket on addr, e.g. ":65001".
func Listen(ctx context.Context, addr string, opts Options) (*Listener, error) {
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("udp listen %s: %w", addr, err)
	}
	return New(conn, opts), nil
}

func New(conn net.PacketConn, opts Options) *Listener {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}
	return &Listener{conn: conn, opts: opts, log: opts.Logger}
}

func (l *Listener) Addr() net.Addr { return l.conn.LocalAddr() }

func (l *Listener) State() State { return State(l.state.Load()) }

// Listening reports whether Serve is running.
func (l *Listener) Listening() bool {
	s := l.State()
	return s != Idle && s != Closed
}

func (l *Listener) setState(s State) { l.state.Store(int32(s)) }

// Serve reads datagrams until ctx is cancelled (returns nil) or a sink fails
// under the default policy (returns the *sink.Error). The socket is closed
// when Serve returns.
func (l *Listener) Serve(ctx context.Context) error {
	l.setState(Listening)
	defer l.setState(Closed)
	defer func() { _ = l.conn.Close() }()

	stop := context.AfterFunc(ctx, func() { _ = l.conn.Close() })
	defer stop()

	l.log.Info("udp listening", "addr", l.conn.LocalAddr().String(), "sink", l.opts.Sink.Name())

	buf := make([]byte, maxDatagram)
	for {
		n, from, err := l.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				l.log.Info("udp listener stopped")
				return nil
			}
			return fmt.Errorf("udp read: %w", err)
		}

		l.opts.Metrics.FramesReceived.Inc()
		if l.log.Enabled(ctx, slog.LevelDebug) {
			l.log.Debug("frame received", "from", from.String(), "size", n, "data", hex.EncodeToString(buf[:n]))
		}

		if err := l.HandleFrame(ctx, buf[:n]); err != nil {
			return err
		}
	}
}

// HandleFrame validates, decodes and dispatches one datagram. Rejected frames
// are counted and dropped; only sink failures are returned.
func (l *Listener) HandleFrame(ctx context.Context, frame []byte) error {
	l.setState(Decoding)
	defer l.setState(Listening)

	h, seq, err := l.opts.Validator.Parse(frame)
	if err != nil {
		reason := metrics.Reason(err)
		l.opts.Metrics.FramesRejected.WithLabelValues(reason).Inc()
		l.log.Debug("frame rejected", "reason", reason, "error", err)
		return nil
	}

	l.setState(Dispatching)
	name := l.opts.Sink.Name()
	for m := range seq {
		if err := l.opts.Sink.Accept(ctx, m); err != nil {
			l.opts.Metrics.SinkErrors.WithLabelValues(name).Inc()
			if !l.opts.ContinueOnSinkError {
				return err
			}
			l.log.Error("sink failed, measurement dropped",
				"sink", name,
				"device", m.Device.String(),
				"probe", m.Probe,
				"error", err,
			)
			continue
		}
		l.opts.Metrics.MeasurementsDispatched.WithLabelValues(name).Inc()
	}

	l.log.Debug("frame dispatched", "device", h.Device.String(), "version", h.Version, "probes", h.Probes)
	return nil
}
