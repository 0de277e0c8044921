// Package config loads the optional east configuration file.
package config

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultPath is looked up in the working directory when no path is
	// given.
	DefaultPath = ".east.toml"

	// EnvPath overrides DefaultPath.
	EnvPath = "EAST_CONFIG"

	// UserPath is searched for in the XDG config directories when
	// DefaultPath does not exist.
	UserPath = "east/config.toml"
)

// Adapters lists the supported storage adapters.
var Adapters = []string{"sqlite", "mysql", "postgres"}

type Error struct {
	Opt string
	Err error
}

func (e *Error) Error() string {
	if e.Opt == "" {
		return "config: " + e.Err.Error()
	}
	return "config: " + e.Opt + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// File is the full structure of the configuration file.
type File struct {
	Adapter   string   `toml:"adapter" comment:"Storage adapter: sqlite, mysql or postgres (default: sqlite)"`
	Dir       string   `toml:"dir" comment:"Directory where migrations are stored (default: 'migrations')"`
	Template  string   `toml:"template,commented" comment:"Template used by 'create' (default: built-in template)"`
	Extension string   `toml:"extension,commented" comment:"Migration file extension (default: '.sql')"`
	Table     string   `toml:"table,commented" comment:"Ledger table name (default: 'meta')"`
	DB        DBConfig `toml:"db"`

	path string
}

// DBConfig holds connection settings. Path is used by sqlite only.
//
//nolint:tagliatelle
type DBConfig struct {
	Path      string `toml:"path,commented" comment:"sqlite database file (default: 'east.db')"`
	Name      string `toml:"name,commented"`
	User      string `toml:"user,commented"`
	Pass      string `toml:"pass,commented" comment:"Prompted for when empty"`
	Host      string `toml:"host,commented"`
	Port      int    `toml:"port,commented"`
	SSLKey    string `toml:"ssl_key,commented"`
	SSLCert   string `toml:"ssl_cert,commented"`
	SSLCA     string `toml:"ssl_ca,commented"`
	SSLServer string `toml:"ssl_server,commented"`
}

// Default returns the configuration used when no file exists.
func Default() *File {
	return &File{
		Adapter: "sqlite",
		Dir:     "migrations",
		DB: DBConfig{
			Path: "east.db",
			User: "root",
			Host: "127.0.0.1",
		},
	}
}

// Load reads the config from path, falling back to EnvPath, DefaultPath and
// finally UserPath in the XDG config directories. A missing file is only an
// error when it was named explicitly. The result is not validated, since
// flags may still override it.
func Load(path string) (*File, error) {
	explicit := path != "" || os.Getenv(EnvPath) != ""
	configPath := cmp.Or(path, os.Getenv(EnvPath), DefaultPath)

	c, err := parse(configPath)
	if err == nil {
		c.path = configPath
		return c, nil
	}
	if explicit || !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	userPath, err := xdg.SearchConfigFile(UserPath)
	if err != nil {
		return Default(), nil
	}
	c, err = parse(userPath)
	if err != nil {
		return nil, err
	}
	c.path = userPath
	return c, nil
}

// Path reports the file the config was loaded from, if any.
func (c *File) Path() string { return c.path }

// DefaultPort reports the conventional port for the configured adapter.
func (c *File) DefaultPort() int {
	switch c.Adapter {
	case "mysql":
		return 3306
	case "postgres":
		return 5432
	default:
		return 0
	}
}

// Validate checks the values that cannot be fixed up by defaults.
func (c *File) Validate() error {
	if c == nil {
		return &Error{Err: errors.New("cannot validate a nil config")}
	}
	if !slices.Contains(Adapters, c.Adapter) {
		return &Error{Opt: "adapter", Err: fmt.Errorf("unknown adapter %q (want %s)",
			c.Adapter, strings.Join(Adapters, ", "))}
	}
	if c.Dir == "" {
		return &Error{Opt: "dir", Err: errors.New("cannot be empty")}
	}
	if c.Extension != "" && !strings.HasPrefix(c.Extension, ".") {
		return &Error{Opt: "extension", Err: errors.New("must start with a dot")}
	}
	if c.DB.Port < 0 || c.DB.Port > 65535 {
		return &Error{Opt: "db.port", Err: errors.New("out of range")}
	}
	switch c.Adapter {
	case "sqlite":
		if c.DB.Path == "" {
			return &Error{Opt: "db.path", Err: errors.New("required by the sqlite adapter")}
		}
	default:
		if c.DB.Name == "" {
			return &Error{Opt: "db.name", Err: errors.New("database name cannot be empty")}
		}
	}
	return nil
}

func parse(path string) (*File, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	c := Default()
	if err := toml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("config: parse file: %w", err)
	}
	return c, nil
}
