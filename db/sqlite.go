package db

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Store is the only component that talks to the posts database.
// A single Store is shared by all request handlers.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// pragmas are applied by the driver to every connection it opens, so a
// connection replaced by database/sql gets them too.
const pragmas = "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"

// Open opens or creates the SQLite database file at path.
//
// The pool is limited to one connection, so writes are serialized by
// database/sql and SQLite never sees two writers from this process.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	log.Printf("Database %s opened successfully.", path)
	return &Store{db: conn, now: time.Now}, nil
}

func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + pragmas
	}
	return path + "?" + pragmas
}

// Ping checks that the database is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database connection. Calling it again returns nil.
// The Store must not be used afterwards.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction, rolling back if fn or the commit fails.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("rollback failed: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}
