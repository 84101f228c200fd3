package storage

import "fmt"

// Config selects and addresses the SQL backend. DSN, when set, is used
// as is; otherwise it is built from the other fields.
type Config struct {
	Driver   Dialect
	DSN      string
	Path     string // sqlite file
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// buildSQLiteDSN returns the modernc.org/sqlite DSN for path with WAL
// journaling and a busy timeout.
func buildSQLiteDSN(path string) string {
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

// buildPostgresDSN constructs a Postgres connection string.
func buildPostgresDSN(c Config) string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, port, c.User, c.Password, c.Database, sslMode,
	)
}

// buildMySQLDSN constructs a MySQL DSN.
func buildMySQLDSN(c Config) string {
	port := c.Port
	if port == 0 {
		port = 3306
	}
	// Format: user:password@tcp(host:port)/dbname?parseTime=true
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.User, c.Password, c.Host, port, c.Database,
	)
	if c.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}

// DataSourceName returns the driver DSN for c.
func (c Config) DataSourceName() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	switch c.Driver {
	case DialectSQLite, "":
		if c.Path == "" {
			return "", fmt.Errorf("sqlite: no database path")
		}
		return buildSQLiteDSN(c.Path), nil
	case DialectPostgres:
		return buildPostgresDSN(c), nil
	case DialectMySQL:
		return buildMySQLDSN(c), nil
	}
	return "", fmt.Errorf("unsupported storage driver %q", c.Driver)
}
