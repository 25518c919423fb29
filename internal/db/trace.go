package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// traceConnector opens sqlite3 connections whose statements log their SQL
// and arguments before executing.
type traceConnector struct {
	dsn    string
	logger *slog.Logger
}

type traceConn struct {
	driver.Conn
	logger *slog.Logger
}

type traceStmt struct {
	driver.Stmt
	query  string
	logger *slog.Logger
}

// NewTraceConnector returns a connector for sql.OpenDB. A nil logger uses
// slog.Default().
func NewTraceConnector(dsn string, logger *slog.Logger) driver.Connector {
	if logger == nil {
		logger = slog.Default()
	}
	return &traceConnector{dsn: dsn, logger: logger}
}

func (c *traceConnector) Connect(_ context.Context) (driver.Conn, error) {
	conn, err := (&sqlite3.SQLiteDriver{}).Open(c.dsn)
	if err != nil {
		return nil, err
	}
	return &traceConn{Conn: conn, logger: c.logger}, nil
}

func (c *traceConnector) Driver() driver.Driver { return traceDriver{} }

type traceDriver struct{}

func (traceDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("sqlite3-trace: open through sql.OpenDB(NewTraceConnector(...))")
}

func (c *traceConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *traceConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	var (
		stmt driver.Stmt
		err  error
	)
	if p, ok := c.Conn.(driver.ConnPrepareContext); ok {
		stmt, err = p.PrepareContext(ctx, query)
	} else {
		stmt, err = c.Conn.Prepare(query)
	}
	if err != nil {
		return nil, err
	}
	return &traceStmt{Stmt: stmt, query: query, logger: c.logger}, nil
}

func (c *traceConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if b, ok := c.Conn.(driver.ConnBeginTx); ok {
		return b.BeginTx(ctx, opts)
	}
	//nolint:staticcheck // SA1019 fallback for conns without BeginTx
	return c.Conn.Begin()
}

func (s *traceStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	s.log(ctx, "exec", args)
	if e, ok := s.Stmt.(driver.StmtExecContext); ok {
		return e.ExecContext(ctx, args)
	}
	//nolint:staticcheck // SA1019 fallback for stmts without ExecContext
	return s.Stmt.Exec(values(args))
}

func (s *traceStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	s.log(ctx, "query", args)
	if q, ok := s.Stmt.(driver.StmtQueryContext); ok {
		return q.QueryContext(ctx, args)
	}
	//nolint:staticcheck // SA1019 fallback for stmts without QueryContext
	return s.Stmt.Query(values(args))
}

func (s *traceStmt) log(ctx context.Context, op string, args []driver.NamedValue) {
	printable := make([]string, len(args))
	for i, a := range args {
		v := "NULL"
		if a.Value != nil {
			v = fmt.Sprint(a.Value)
		}
		if a.Name != "" {
			v = a.Name + "=" + v
		}
		printable[i] = v
	}
	s.logger.DebugContext(ctx, "sql", "op", op, "sql", s.query, "args", printable)
}

func values(args []driver.NamedValue) []driver.Value {
	out := make([]driver.Value, len(args))
	for i := range args {
		out[i] = args[i].Value
	}
	return out
}
