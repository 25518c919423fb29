// Package db opens the sqlite store used by the table sink.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

type Options struct {
	// TraceSQL logs every statement at debug level through Logger.
	TraceSQL bool
	Logger   *slog.Logger
}

// Open opens (creating if needed) the sqlite file at path. created reports
// whether the file did not exist before the call.
func Open(path string, opts Options) (conn *sql.DB, created bool, err error) {
	file := strings.TrimPrefix(path, "file:")
	if i := strings.IndexByte(file, '?'); i >= 0 {
		file = file[:i]
	}
	if _, statErr := os.Stat(file); errors.Is(statErr, fs.ErrNotExist) {
		created = true
	} else if statErr != nil {
		return nil, false, fmt.Errorf("stat %s: %w", file, statErr)
	}

	dsn, err := buildDSN(path)
	if err != nil {
		return nil, false, err
	}

	if opts.TraceSQL {
		conn = sql.OpenDB(NewTraceConnector(dsn, opts.Logger))
	} else {
		conn, err = sql.Open(driverName, dsn)
		if err != nil {
			return nil, false, fmt.Errorf("db open: %w", err)
		}
	}

	// One writer; the listener never inserts concurrently.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, false, fmt.Errorf("db ping: %w", err)
	}
	return conn, created, nil
}

func buildDSN(path string) (string, error) {
	if !strings.HasPrefix(path, "file:") {
		dir := filepath.Dir(path)
		if dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
	}

	params := []string{
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
