package sink

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/Fludizz/WeatherDuino/internal/probes"
	"github.com/Fludizz/WeatherDuino/internal/protocol"
)

//go:embed sql/create-measurements.sql
var createMeasurementsSQL string

//go:embed sql/insert-measurement.sql
var insertMeasurementSQL string

// Table inserts one row per measurement into the measurements table.
type Table struct {
	db    *sql.DB
	names *probes.Names
	now   func() time.Time
}

// NewTable wraps conn. The schema is only created when create is set, which
// the caller derives from whether the database file already existed.
func NewTable(ctx context.Context, conn *sql.DB, create bool, names *probes.Names) (*Table, error) {
	if create {
		if _, err := conn.ExecContext(ctx, createMeasurementsSQL); err != nil {
			return nil, fmt.Errorf("create measurements table: %w", err)
		}
	}
	return &Table{db: conn, names: names, now: time.Now}, nil
}

func (t *Table) Name() string { return "sqlite" }

func (t *Table) Accept(ctx context.Context, m protocol.Measurement) error {
	if !m.AnyValid() {
		return nil
	}

	var temp, hum any
	if m.Temperature.Valid() {
		temp = m.Temperature.Celsius()
	}
	if m.HumidityValid() {
		hum = int64(m.Humidity)
	}

	_, err := t.db.ExecContext(ctx, insertMeasurementSQL,
		t.now().UTC().Format(time.RFC3339Nano),
		m.Device.String(),
		t.names.Resolve(m.Device, m.Probe),
		temp,
		hum,
	)
	if err != nil {
		return wrap(t.Name(), fmt.Errorf("insert measurement: %w", err))
	}
	return nil
}

func (t *Table) Close() error {
	return t.db.Close()
}
