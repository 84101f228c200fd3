package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// driverName maps a dialect onto its registered database/sql driver.
func (d Dialect) driverName() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	case DialectMySQL:
		return "mysql"
	}
	return "sqlite"
}

// DB wraps the report database connection.
type DB struct {
	conn    *sql.DB
	dialect Dialect
	path    string // sqlite file, empty for server databases
}

// Open connects to the database described by cfg and applies migrations.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	dialect := cfg.Driver
	if dialect == "" {
		dialect = DialectSQLite
	}
	if dialect == DialectSQLite && cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn, err := cfg.DataSourceName()
	if err != nil {
		return nil, err
	}
	conn, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// SQLite only supports one writer, a single connection prevents SQLITE_BUSY
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	db := &DB{conn: conn, dialect: dialect}
	if dialect == DialectSQLite {
		db.path = cfg.Path
	}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Wrap adopts an already open connection without migrating it.
func Wrap(conn *sql.DB, dialect Dialect) *DB {
	return &DB{conn: conn, dialect: dialect}
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Dialect returns the SQL dialect in use.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Path returns the SQLite file path, or "" for server databases.
func (db *DB) Path() string {
	return db.path
}

// rebind rewrites ? placeholders into the dialect's bind syntax.
func (db *DB) rebind(query string) string {
	if db.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) migrate(ctx context.Context) error {
	for _, m := range migrations(db.dialect) {
		if _, err := db.conn.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %s: %w", firstLine(m), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

func migrations(d Dialect) []string {
	switch d {
	case DialectPostgres:
		return []string{
			`CREATE TABLE IF NOT EXISTS reports (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				tree_json TEXT NOT NULL DEFAULT '{}',
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				last_saved_at TIMESTAMPTZ
			)`,
			`CREATE TABLE IF NOT EXISTS report_versions (
				seq BIGSERIAL PRIMARY KEY,
				id TEXT NOT NULL UNIQUE,
				report_id TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
				label TEXT NOT NULL DEFAULT '',
				tree_json TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_report_versions_report ON report_versions(report_id, seq)`,
			`CREATE TABLE IF NOT EXISTS app_settings (
				name TEXT PRIMARY KEY,
				value TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS mcp_approvals (
				id TEXT PRIMARY KEY,
				tool TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'pending',
				metadata TEXT NOT NULL DEFAULT '{}',
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
		}
	case DialectMySQL:
		return []string{
			`CREATE TABLE IF NOT EXISTS reports (
				id VARCHAR(64) PRIMARY KEY,
				title VARCHAR(512) NOT NULL,
				tree_json LONGTEXT NOT NULL,
				created_at DATETIME(6) NOT NULL,
				updated_at DATETIME(6) NOT NULL,
				last_saved_at DATETIME(6) NULL
			) CHARACTER SET utf8mb4`,
			`CREATE TABLE IF NOT EXISTS report_versions (
				seq BIGINT AUTO_INCREMENT PRIMARY KEY,
				id VARCHAR(64) NOT NULL UNIQUE,
				report_id VARCHAR(64) NOT NULL,
				label VARCHAR(512) NOT NULL DEFAULT '',
				tree_json LONGTEXT NOT NULL,
				created_at DATETIME(6) NOT NULL,
				INDEX idx_report_versions_report (report_id, seq),
				FOREIGN KEY (report_id) REFERENCES reports(id) ON DELETE CASCADE
			) CHARACTER SET utf8mb4`,
			`CREATE TABLE IF NOT EXISTS app_settings (
				name VARCHAR(255) PRIMARY KEY,
				value TEXT NOT NULL
			) CHARACTER SET utf8mb4`,
			`CREATE TABLE IF NOT EXISTS mcp_approvals (
				id VARCHAR(64) PRIMARY KEY,
				tool VARCHAR(128) NOT NULL,
				description TEXT NOT NULL,
				status VARCHAR(16) NOT NULL DEFAULT 'pending',
				metadata TEXT NOT NULL,
				created_at DATETIME(6) NOT NULL
			) CHARACTER SET utf8mb4`,
		}
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			tree_json TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_saved_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS report_versions (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			report_id TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
			label TEXT NOT NULL DEFAULT '',
			tree_json TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_report_versions_report ON report_versions(report_id, seq)`,
		`CREATE TABLE IF NOT EXISTS app_settings (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS mcp_approvals (
			id TEXT PRIMARY KEY,
			tool TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}
}
