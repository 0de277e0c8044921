package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/egtann/east"
	"github.com/egtann/east/internal/config"
	"github.com/egtann/east/internal/sqlstore"
	"github.com/egtann/east/mysql"
	"github.com/egtann/east/postgres"
	"github.com/egtann/east/sqlite"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// store is an adapter that holds a connection.
type store interface {
	east.Adapter
	Open(ctx context.Context) error
	Close() error
}

// app carries the state shared by every command. It is filled in by the
// root command before any subcommand runs.
type app struct {
	in     *os.File
	out    io.Writer
	errOut io.Writer

	// sandbox enables pledge and unveil on OpenBSD.
	sandbox bool

	flags  globalFlags
	cfg    *config.File
	log    *slog.Logger
	codec  *east.Codec
	store  store
	opened bool
}

type globalFlags struct {
	config   string
	adapter  string
	dir      string
	template string
	table    string
	logLevel string

	db            string
	user          string
	host          string
	port          int
	pass          string
	sslKey        string
	sslCert       string
	sslCA         string
	sslServerName string
}

func (f *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.config, "config", "", "config file to use (default .east.toml or $"+config.EnvPath+")")
	fs.StringVar(&f.adapter, "adapter", "", "which db adapter to use ("+strings.Join(config.Adapters, ", ")+")")
	fs.StringVar(&f.dir, "dir", "", "dir where migrations are stored")
	fs.StringVar(&f.template, "template", "", "template used to create migrations")
	fs.StringVar(&f.table, "table", "", "ledger table name")
	fs.StringVar(&f.logLevel, "log-level", "WARN", "log level (DEBUG, INFO, WARN, ERROR)")

	fs.StringVar(&f.db, "db", "", "database name, or database file for sqlite")
	fs.StringVarP(&f.user, "user", "u", "", "database user")
	fs.StringVarP(&f.host, "host", "H", "", "database host")
	fs.IntVarP(&f.port, "port", "p", 0, "database port")
	fs.StringVar(&f.pass, "pass", "", "password (optional flag, if not provided it will be requested)")
	fs.StringVar(&f.sslKey, "ssl-key", "", "path to client key pem")
	fs.StringVar(&f.sslCert, "ssl-cert", "", "path to client cert pem")
	fs.StringVar(&f.sslCA, "ssl-ca", "", "path to server ca pem")
	fs.StringVar(&f.sslServerName, "ssl-server", "", "server name for ssl")
}

// apply overrides config values with the flags the user set.
func (f *globalFlags) apply(fs *pflag.FlagSet, c *config.File) {
	set := func(name string, dst *string, v string) {
		if fs.Changed(name) {
			*dst = v
		}
	}
	set("adapter", &c.Adapter, f.adapter)
	set("dir", &c.Dir, f.dir)
	set("template", &c.Template, f.template)
	set("table", &c.Table, f.table)
	set("user", &c.DB.User, f.user)
	set("host", &c.DB.Host, f.host)
	set("pass", &c.DB.Pass, f.pass)
	set("ssl-key", &c.DB.SSLKey, f.sslKey)
	set("ssl-cert", &c.DB.SSLCert, f.sslCert)
	set("ssl-ca", &c.DB.SSLCA, f.sslCA)
	set("ssl-server", &c.DB.SSLServer, f.sslServerName)
	if fs.Changed("db") {
		if c.Adapter == "sqlite" {
			c.DB.Path = f.db
		} else {
			c.DB.Name = f.db
		}
	}
	if fs.Changed("port") {
		c.DB.Port = f.port
	}
	if c.DB.Port == 0 {
		c.DB.Port = c.DefaultPort()
	}
}

// setup loads the configuration, initializes logging and builds the adapter.
// It does not connect.
func (a *app) setup(cmd *cobra.Command) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.flags.logLevel)); err != nil {
		return errors.Wrap(err, "log level")
	}
	a.log = newLogger(a.errOut, level)
	slog.SetDefault(a.log)

	cfg, err := config.Load(a.flags.config)
	if err != nil {
		return err
	}
	a.flags.apply(cmd.Flags(), cfg)
	if err = cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.log.Debug("loaded config",
		"path", cfg.Path(),
		"adapter", cfg.Adapter,
		"dir", cfg.Dir)

	a.codec = east.NewCodec(cfg.Dir, east.WithExtension(cfg.Extension))

	if a.sandbox {
		if err = east.Unveil(a.unveilPaths()); err != nil {
			return errors.Wrap(err, "unveil")
		}
		if err = east.Pledge(); err != nil {
			return errors.Wrap(err, "pledge")
		}
	}

	a.store, err = a.newStore()
	if err != nil {
		return err
	}
	return nil
}

func (a *app) newStore() (store, error) {
	c := a.cfg
	opts := []sqlstore.Opt{
		sqlstore.WithTable(c.Table),
		sqlstore.WithTemplate(c.Template),
		sqlstore.WithLogger(a.log),
	}
	switch c.Adapter {
	case "sqlite":
		return sqlite.New(c.DB.Path, a.codec, opts...), nil
	case "mysql":
		db, err := mysql.New(a.codec, c.DB.User, c.DB.Pass, c.DB.Host,
			c.DB.Name, c.DB.Port, c.DB.SSLKey, c.DB.SSLCert, c.DB.SSLCA,
			c.DB.SSLServer, opts...)
		if err != nil {
			return nil, errors.Wrap(err, "new mysql")
		}
		return db, nil
	case "postgres":
		return postgres.New(a.codec, c.DB.User, c.DB.Pass, c.DB.Host,
			c.DB.Name, c.DB.Port, c.DB.SSLKey, c.DB.SSLCert, c.DB.SSLCA,
			opts...), nil
	default:
		return nil, fmt.Errorf("unknown db type: %s", c.Adapter)
	}
}

// open connects the adapter, requesting the database password first when a
// network adapter has none configured.
func (a *app) open(ctx context.Context) error {
	if a.opened {
		return nil
	}
	if a.cfg.Adapter != "sqlite" && a.cfg.DB.Pass == "" {
		pass, err := a.readPassword()
		if err != nil {
			return err
		}
		a.cfg.DB.Pass = pass
		if a.store, err = a.newStore(); err != nil {
			return err
		}
	}
	if err := a.store.Open(ctx); err != nil {
		return errors.Wrap(err, "open")
	}
	a.opened = true
	return nil
}

func (a *app) readPassword() (string, error) {
	if a.in == nil || !term.IsTerminal(int(a.in.Fd())) {
		return "", errors.New("database password required. specify using the --pass flag or the config file")
	}
	fmt.Fprintf(a.errOut, "%s database password: ", a.cfg.DB.Name)
	password, err := term.ReadPassword(int(a.in.Fd()))
	fmt.Fprintln(a.errOut)
	if err != nil {
		return "", errors.Wrap(err, "read pass")
	}
	return string(password), nil
}

func (a *app) close() error {
	if !a.opened {
		return nil
	}
	a.opened = false
	return a.store.Close()
}

// withStore opens the adapter, runs fn and closes the adapter again.
func (a *app) withStore(ctx context.Context, fn func() error) (err error) {
	if err = a.open(ctx); err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close")
		}
	}()
	return fn()
}

func (a *app) printer() east.Logger {
	return east.StdLogger{W: a.out}
}

func (a *app) resolver() *east.Resolver {
	return east.NewResolver(a.store, east.WithResolverLogger(a.log))
}

func (a *app) unveilPaths() map[string]string {
	c := a.cfg
	paths := map[string]string{
		c.Dir:        "rwc",
		c.Template:   "r",
		c.DB.SSLKey:  "r",
		c.DB.SSLCert: "r",
		c.DB.SSLCA:   "r",
	}
	if c.Adapter == "sqlite" {
		// sqlite creates journal files next to the database
		paths[filepath.Dir(c.DB.Path)] = "rwc"
	} else {
		paths["/etc/resolv.conf"] = "r"
		paths["/etc/hosts"] = "r"
	}
	return paths
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	noColor := true
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		noColor = false
		w = colorable.NewColorable(f)
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		NoColor:    noColor,
		TimeFormat: "2006-01-02 15:04:05.000",
	}))
}

// splitNames turns comma-separated arguments into migration names. Paths and
// file extensions are stripped. No arguments yields nil.
func splitNames(c *east.Codec, args []string) []string {
	if len(args) == 0 {
		return nil
	}
	names := []string{}
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if part = strings.TrimSpace(part); part != "" {
				names = append(names, c.NameFromPath(part))
			}
		}
	}
	return names
}
