package sink

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Fludizz/WeatherDuino/internal/probes"
	"github.com/Fludizz/WeatherDuino/internal/protocol"
)

// LogFile appends one timestamped line per measurement. The file is only
// ever appended to.
type LogFile struct {
	f     *os.File
	w     *bufio.Writer
	names *probes.Names
	now   func() time.Time
}

func OpenLogFile(path string, names *probes.Names) (*LogFile, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open logfile: %w", err)
	}
	return &LogFile{
		f:     f,
		w:     bufio.NewWriter(f),
		names: names,
		now:   time.Now,
	}, nil
}

func (l *LogFile) Name() string { return "logfile" }

func (l *LogFile) Accept(_ context.Context, m protocol.Measurement) error {
	fields := readingText(m, "=")
	if len(fields) == 0 {
		return nil
	}
	line := fmt.Sprintf("%s %s probe %s %s\n",
		l.now().Format(time.RFC3339),
		m.Device,
		l.names.Resolve(m.Device, m.Probe),
		strings.Join(fields, " "),
	)
	if _, err := l.w.WriteString(line); err != nil {
		return wrap(l.Name(), err)
	}
	return wrap(l.Name(), l.w.Flush())
}

func (l *LogFile) Close() error {
	flushErr := l.w.Flush()
	if err := l.f.Close(); err != nil {
		return err
	}
	return flushErr
}
