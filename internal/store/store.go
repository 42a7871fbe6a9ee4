package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	// Postgres driver for server deployments.
	_ "github.com/lib/pq"
	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store holds the database handle and provides access to repositories.
type Store struct {
	db      *sql.DB
	driver  *entsql.Driver
	dialect string
	seq     *sequenceCounter
}

// Open creates a new Store connected to the database at dsn using driver
// ("sqlite" or "postgres"). SQLite connections get the recommended pragmas.
// The schema is migrated before Open returns.
func Open(driver, dsn string) (*Store, error) {
	var dialectName string
	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		dialectName = dialect.SQLite
		dsn = withPragmas(dsn)
	case DriverPostgres:
		dialectName = dialect.Postgres
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	drv := entsql.OpenDB(dialectName, db)
	if err := migrate(context.Background(), drv); err != nil {
		db.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite has a single writer. One connection keeps read-modify-write
		// transactions from failing with SQLITE_BUSY under concurrent requests.
		db.SetMaxOpenConns(1)
	}

	seq, err := newSequenceCounter(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init sequence: %w", err)
	}

	return &Store{db: db, driver: drv, dialect: dialectName, seq: seq}, nil
}

// migrate creates or updates the tables declared in schema.go.
func migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("new migrate: %w", err)
	}
	return m.Create(ctx, tables...)
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the ent dialect name of the open database.
func (s *Store) Dialect() string {
	return s.dialect
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.driver.Close()
}

// ProgressRepo returns a ProgressRepo backed by this store.
func (s *Store) ProgressRepo() ProgressRepo {
	return &progressRepo{db: s.db, dialect: s.dialect}
}

// AuditRepo returns an AuditRepo backed by this store.
func (s *Store) AuditRepo() AuditRepo {
	return &auditRepo{db: s.db, dialect: s.dialect, seq: s.seq}
}

// sqlitePragmas are applied to every SQLite connection through the DSN so
// that pooled connections all see the same settings.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"foreign_keys(1)",
	"synchronous(NORMAL)",
}

// withPragmas appends the SQLite pragmas to dsn as _pragma parameters.
func withPragmas(dsn string) string {
	params := make([]string, 0, len(sqlitePragmas))
	for _, p := range sqlitePragmas {
		params = append(params, "_pragma="+url.QueryEscape(p))
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// DefaultDBPath resolves the database file path in priority order:
// 1. LEARNTRACK_DB environment variable
// 2. $XDG_DATA_HOME/learntrack/learntrack.db
// 3. ~/.local/share/learntrack/learntrack.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("LEARNTRACK_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "learntrack", "learntrack.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
