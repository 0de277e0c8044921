package postgres

import (
	"context"
	"fmt"

	"github.com/egtann/east"
	"github.com/egtann/east/internal/sqlstore"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	_ "github.com/lib/pq"
)

var dialect = sqlstore.Dialect{
	CreateMeta: `CREATE TABLE IF NOT EXISTS %s (
		name TEXT PRIMARY KEY,
		createdat TIMESTAMP NOT NULL DEFAULT (now() AT TIME ZONE 'utc')
	)`,
	InsertMeta: `INSERT INTO %s (name) VALUES (?) ON CONFLICT (name) DO NOTHING`,
}

type DB struct {
	connURL string

	// Embed the ledger store. Its sqlx DB is nil until Open
	*sqlstore.Store
}

func New(
	codec *east.Codec,
	user, pass, host, dbName string,
	port int,
	sslKey, sslCert, sslCA string,
	opts ...sqlstore.Opt,
) *DB {
	// The trailing space is important
	url := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s ",
		host, port, user, quote(pass), dbName)
	if sslKey == "" {
		url += "sslmode=disable"
	} else {
		url += fmt.Sprintf(
			"sslmode=verify-full sslkey=%s sslcert=%s sslrootcert=%s",
			sslKey, sslCert, sslCA)
	}
	return &DB{
		connURL: url,
		Store:   sqlstore.New(nil, codec, dialect, opts...),
	}
}

func (db *DB) Open(ctx context.Context) error {
	conn, err := sqlx.Open("postgres", db.connURL)
	if err != nil {
		return errors.Wrap(err, "open db connection")
	}
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

// quote escapes a connection string value so passwords may contain spaces
// and quotes.
func quote(s string) string {
	out := []byte{'\''}
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' || s[i] == '\\' {
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(append(out, '\''))
}
