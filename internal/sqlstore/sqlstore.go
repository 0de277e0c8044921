// Package sqlstore implements east.Adapter on top of any database/sql driver.
// Migration definitions are SQL files read from the codec's directory, and
// executed names are kept in a ledger table inside the target database.
package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/egtann/east"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// DefaultTable is the ledger table used unless WithTable is given.
const DefaultTable = "meta"

// Dialect holds the backend-specific ledger queries. Each query contains a
// single %s for the table name and uses ? placeholders, which are rebound
// for the driver.
type Dialect struct {
	CreateMeta string
	InsertMeta string
}

type Store struct {
	codec    *east.Codec
	dialect  Dialect
	table    string
	template string
	log      *slog.Logger

	// Embed the sqlx DB struct
	*sqlx.DB
}

var _ east.Adapter = &Store{}

type Opt func(*Store)

func WithTable(table string) Opt {
	return func(s *Store) {
		if table != "" {
			s.table = table
		}
	}
}

// WithTemplate sets the file used to scaffold new migrations.
func WithTemplate(pth string) Opt {
	return func(s *Store) {
		s.template = pth
	}
}

func WithLogger(log *slog.Logger) Opt {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

func New(db *sqlx.DB, codec *east.Codec, dialect Dialect, opts ...Opt) *Store {
	s := &Store{
		codec:   codec,
		dialect: dialect,
		table:   DefaultTable,
		log:     slog.Default(),
		DB:      db,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateMetaIfNotExists creates the ledger table so the migration state can
// be stored in the db itself.
func (s *Store) CreateMetaIfNotExists(ctx context.Context) error {
	q := fmt.Sprintf(s.dialect.CreateMeta, s.table)
	if _, err := s.ExecContext(ctx, q); err != nil {
		return errors.Wrap(err, "create meta table")
	}
	return nil
}

func (s *Store) ListDefinitions(ctx context.Context) ([]string, error) {
	return east.ReadDir(s.codec)
}

func (s *Store) Load(ctx context.Context, name string) (east.Unit, error) {
	pth := s.codec.PathFor(name)
	fi, err := os.Open(pth)
	if err != nil {
		return nil, errors.Wrap(err, "open definition")
	}
	defer fi.Close()
	m, err := east.ParseSQL(name, fi)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", pth)
	}
	s.log.Debug("loaded migration",
		"name", name,
		"up", len(m.Up),
		"down", len(m.Down),
		"md5", m.Checksum)
	return &unit{store: s, m: m}, nil
}

func (s *Store) MarkExecuted(ctx context.Context, name string) error {
	q := s.Rebind(fmt.Sprintf(s.dialect.InsertMeta, s.table))
	if _, err := s.ExecContext(ctx, q, name); err != nil {
		return errors.Wrap(err, "insert meta")
	}
	return nil
}

func (s *Store) UnmarkExecuted(ctx context.Context, name string) error {
	q := s.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE name=?`, s.table))
	if _, err := s.ExecContext(ctx, q, name); err != nil {
		return errors.Wrap(err, "delete meta")
	}
	return nil
}

func (s *Store) ListExecuted(ctx context.Context) (east.NameSet, error) {
	names := []string{}
	q := fmt.Sprintf(`SELECT name FROM %s`, s.table)
	if err := s.SelectContext(ctx, &names, q); err != nil {
		return nil, errors.Wrap(err, "get migrations")
	}
	return east.NewNameSet(names...), nil
}

func (s *Store) TemplatePath() string { return s.template }

// unit runs the statements of one SQL definition inside a transaction.
type unit struct {
	store *Store
	m     *east.SQLMigration
}

func (u *unit) Name() string { return u.m.Name }

func (u *unit) Up(ctx context.Context) error {
	return u.exec(ctx, east.Apply)
}

func (u *unit) Down(ctx context.Context) error {
	return u.exec(ctx, east.Revert)
}

func (u *unit) exec(ctx context.Context, dir east.Direction) (err error) {
	cmds, err := u.m.Statements(dir)
	if err != nil {
		return err
	}
	tx, err := u.store.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = errors.Wrap(tx.Commit(), "commit")
	}()
	for i, cmd := range cmds {
		if _, err = tx.ExecContext(ctx, cmd); err != nil {
			u.store.log.Debug("failed on", "name", u.m.Name, "statement", cmd)
			return errors.Wrapf(err, "statement %d", i+1)
		}
	}
	return nil
}
