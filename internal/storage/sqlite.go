package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store on an embedded sqlite file. It is the durable
// local store of the storefront; there is no server behind it and no
// cross-process coordination beyond last-writer-wins.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the kv database at path and applies
// pending migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite tolerates one writer; the storefront is one process.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) runMigrations() error {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not load migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}
	return nil
}

func (s *SQLiteStore) Get(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		// A read fault is indistinguishable from a corrupted entry for
		// callers; treat the key as absent.
		log.Printf("storage get %q failed: %v", key, err)
		return "", false
	}
	return value, true
}

func (s *SQLiteStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("storage set %q failed: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Remove(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("storage remove %q failed: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) KeysWithPrefix(prefix string) ([]string, error) {
	// Compare the leading substring directly; a range scan's upper bound
	// misses keys whose byte after the prefix is 0xff.
	rows, err := s.db.Query(
		`SELECT key FROM kv WHERE substr(key, 1, length(?)) = ? ORDER BY key`,
		prefix, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("storage keys %q failed: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("storage keys %q failed: %w", prefix, err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// EstimateSize reports file usage from sqlite pragmas. Best-effort: the
// total is the engine's page ceiling, not a quota the storefront enforces.
func (s *SQLiteStore) EstimateSize() (Usage, error) {
	var pageCount, pageSize, maxPageCount int64
	if err := s.db.QueryRow(`PRAGMA page_count`).Scan(&pageCount); err != nil {
		return Usage{}, ErrSizeUnsupported
	}
	if err := s.db.QueryRow(`PRAGMA page_size`).Scan(&pageSize); err != nil {
		return Usage{}, ErrSizeUnsupported
	}
	if err := s.db.QueryRow(`PRAGMA max_page_count`).Scan(&maxPageCount); err != nil {
		return Usage{}, ErrSizeUnsupported
	}
	return Usage{Used: pageCount * pageSize, Total: maxPageCount * pageSize}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
