package sqlite

import (
	"context"

	"github.com/egtann/east"
	"github.com/egtann/east/internal/sqlstore"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	_ "github.com/mattn/go-sqlite3"
)

var dialect = sqlstore.Dialect{
	CreateMeta: `CREATE TABLE IF NOT EXISTS %s (
		name TEXT PRIMARY KEY NOT NULL,
		createdat TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	InsertMeta: `INSERT INTO %s (name) VALUES (?) ON CONFLICT(name) DO NOTHING`,
}

type DB struct {
	filepath string

	// Embed the ledger store. Its sqlx DB is nil until Open
	*sqlstore.Store
}

func New(dbFile string, codec *east.Codec, opts ...sqlstore.Opt) *DB {
	return &DB{
		filepath: dbFile,
		Store:    sqlstore.New(nil, codec, dialect, opts...),
	}
}

// Open connects to the database file, creating it if needed, and ensures the
// ledger table exists.
func (db *DB) Open(ctx context.Context) error {
	conn, err := sqlx.Open("sqlite3", db.filepath)
	if err != nil {
		return errors.Wrap(err, "open db connection")
	}
	// A single connection keeps in-memory databases consistent
	conn.SetMaxOpenConns(1)
	if err = conn.PingContext(ctx); err != nil {
		conn.Close()
		return errors.Wrap(err, "ping")
	}
	db.Store.DB = conn
	if err = db.CreateMetaIfNotExists(ctx); err != nil {
		conn.Close()
		return err
	}
	return nil
}
