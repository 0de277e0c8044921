package east

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultExtension is appended to migration names to build definition file
// paths.
const DefaultExtension = ".sql"

// ErrEmptyLabel is returned by Generate when a label has no usable characters.
var ErrEmptyLabel = errors.New("label cannot be empty")

var (
	regexName   = regexp.MustCompile(`^(\d+)_(.+)$`)
	regexUnsafe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

// Codec encodes and decodes migration names of the form
// <epoch-millis>_<label> and maps them to definition files in a directory.
type Codec struct {
	dir string
	ext string
	now func() time.Time
}

type CodecOpt func(*Codec)

// WithExtension sets the definition file extension, including the dot.
func WithExtension(ext string) CodecOpt {
	return func(c *Codec) {
		if ext != "" {
			c.ext = ext
		}
	}
}

// WithClock replaces the time source used by Generate.
func WithClock(now func() time.Time) CodecOpt {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCodec(dir string, opts ...CodecOpt) *Codec {
	c := &Codec{
		dir: dir,
		ext: DefaultExtension,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dir reports the migrations directory.
func (c *Codec) Dir() string { return c.dir }

// Ext reports the definition file extension.
func (c *Codec) Ext() string { return c.ext }

// Generate builds a new migration name from the current time and label. Two
// names generated within the same millisecond for the same label collide;
// callers create migrations at human-scale intervals.
func (c *Codec) Generate(label string) (string, error) {
	label = regexUnsafe.ReplaceAllString(strings.TrimSpace(label), "_")
	label = strings.Trim(label, "_")
	if label == "" {
		return "", ErrEmptyLabel
	}
	return fmt.Sprintf("%d_%s", c.now().UnixMilli(), label), nil
}

// PathFor maps a name to its definition file.
func (c *Codec) PathFor(name string) string {
	return filepath.Join(c.dir, name+c.ext)
}

// NameFromPath accepts a bare name, a name with the extension, or a path and
// returns the bare name.
func (c *Codec) NameFromPath(pth string) string {
	_, base := filepath.Split(strings.TrimSpace(pth))
	return strings.TrimSuffix(base, c.ext)
}

// ParseName decodes the creation time and label from a name.
func ParseName(name string) (time.Time, string, error) {
	m := regexName.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, "", fmt.Errorf("malformed migration name %q", name)
	}
	ms, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return time.Time{}, "", errors.Wrapf(err, "parse timestamp in %s", name)
	}
	return time.UnixMilli(ms), m[2], nil
}

// SortNames orders names chronologically by their numeric prefix, falling back
// to the full name for equal prefixes. For prefixes of equal width this is the
// same as lexical order.
func SortNames(names []string) error {
	keys := make(map[string]uint64, len(names))
	for _, name := range names {
		m := regexName.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("malformed migration name %q", name)
		}
		n, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			return errors.Wrapf(err, "parse uint in %s", name)
		}
		keys[name] = n
	}
	sort.SliceStable(names, func(i, j int) bool {
		ki, kj := keys[names[i]], keys[names[j]]
		if ki != kj {
			return ki < kj
		}
		return names[i] < names[j]
	})
	return nil
}
