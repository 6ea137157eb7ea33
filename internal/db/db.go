package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL flavour of the backing store.
type Dialect string

// Supported dialects.
const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// driverName maps a dialect to its registered database/sql driver.
func (d Dialect) driverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

// Rebind rewrites ? placeholders into the dialect's positional form.
func (d Dialect) Rebind(query string) string {
	if d != Postgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// ParseDialect accepts a driver or dialect name.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", name)
}

// Querier is the subset of database/sql shared by *DB and *Tx.
// All store functions take a Querier so they run inside or outside a
// transaction unchanged.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a connection pool with its dialect.
type DB struct {
	sql     *sql.DB
	dialect Dialect
}

// Open opens the database, applies pending migrations and configures the
// pool. SQLite is limited to a single connection, which serializes every
// transaction against the file.
func Open(ctx context.Context, dialect Dialect, dsn string) (*DB, error) {
	if dialect == SQLite {
		dsn = sqliteDSN(dsn)
	}

	conn, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := Migrate(ctx, conn, dialect); err != nil {
		conn.Close()
		return nil, err
	}

	if dialect == SQLite {
		conn.SetMaxOpenConns(1)
	}

	return &DB{sql: conn, dialect: dialect}, nil
}

// sqliteDSN turns a file path into a DSN carrying the connection pragmas,
// so every pooled connection gets them.
func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	pragmas := []string{
		"journal_mode(WAL)",
		"busy_timeout(5000)",
		"foreign_keys(1)",
		"synchronous(NORMAL)",
	}
	var b strings.Builder
	b.WriteString("file:")
	b.WriteString(path)
	for i, p := range pragmas {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString("_pragma=")
		b.WriteString(p)
	}
	return b.String()
}

// Dialect returns the database dialect.
func (d *DB) Dialect() Dialect { return d.dialect }

// Close closes the pool.
func (d *DB) Close() error { return d.sql.Close() }

// PingContext verifies the connection is alive.
func (d *DB) PingContext(ctx context.Context) error { return d.sql.PingContext(ctx) }

// ExecContext runs a statement outside a transaction.
func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.sql.ExecContext(ctx, d.dialect.Rebind(query), args...)
}

// QueryContext runs a query outside a transaction.
func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.sql.QueryContext(ctx, d.dialect.Rebind(query), args...)
}

// QueryRowContext runs a single-row query outside a transaction.
func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.sql.QueryRowContext(ctx, d.dialect.Rebind(query), args...)
}

// Tx is a transaction bound to a dialect.
type Tx struct {
	tx      *sql.Tx
	dialect Dialect
}

// ExecContext runs a statement inside the transaction.
func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.dialect.Rebind(query), args...)
}

// QueryContext runs a query inside the transaction.
func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.dialect.Rebind(query), args...)
}

// QueryRowContext runs a single-row query inside the transaction.
func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.dialect.Rebind(query), args...)
}

// InTx runs fn in a transaction. The transaction commits only when fn
// returns nil; any error, or a panic, rolls every statement back.
//
// fn must use the Querier it is given. On SQLite the pool holds a single
// connection, so touching d from inside fn would block forever.
func (d *DB) InTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx, dialect: d.dialect}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
