package mysql

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/egtann/east"
	"github.com/egtann/east/internal/sqlstore"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// tlsKey names the TLS config registered with the driver.
const tlsKey = "east"

var dialect = sqlstore.Dialect{
	CreateMeta: `CREATE TABLE IF NOT EXISTS %s (
		name VARCHAR(255) PRIMARY KEY,
		createdat DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
	)`,
	InsertMeta: `INSERT INTO %s (name) VALUES (?) ON DUPLICATE KEY UPDATE name=name`,
}

type DB struct {
	connURL   string
	tlsConfig *tls.Config

	// Embed the ledger store. Its sqlx DB is nil until Open
	*sqlstore.Store
}

func New(
	codec *east.Codec,
	user, pass, host, dbName string,
	port int,
	sslKey, sslCert, sslCA, sslServerName string,
	opts ...sqlstore.Opt,
) (*DB, error) {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = pass
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", host, port)
	cfg.DBName = dbName
	cfg.ParseTime = true

	db := &DB{Store: sqlstore.New(nil, codec, dialect, opts...)}
	if sslKey != "" {
		var err error
		db.tlsConfig, err = east.NewTLSConfig(sslKey, sslCert, sslCA,
			sslServerName)
		if err != nil {
			return nil, errors.Wrap(err, "new tls config")
		}
		cfg.TLSConfig = tlsKey
	}
	db.connURL = cfg.FormatDSN()
	return db, nil
}

func (db *DB) Open(ctx context.Context) error {
	if db.tlsConfig != nil {
		err := mysql.RegisterTLSConfig(tlsKey, db.tlsConfig)
		if err != nil {
			return errors.Wrap(err, "register tls config")
		}
	}
	conn, err := sqlx.Open("mysql", db.connURL)
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
