package east

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Adapter is implemented by every storage backend. It lists and loads
// migration definitions and persists the set of executed names.
type Adapter interface {
	ListDefinitions(ctx context.Context) ([]string, error)
	Load(ctx context.Context, name string) (Unit, error)

	MarkExecuted(ctx context.Context, name string) error
	UnmarkExecuted(ctx context.Context, name string) error
	ListExecuted(ctx context.Context) (NameSet, error)

	// TemplatePath is used to scaffold new migrations. An empty path selects
	// DefaultTemplate.
	TemplatePath() string
}

// Unit is a loaded migration with an up and a down action.
type Unit interface {
	Name() string
	Up(ctx context.Context) error
	Down(ctx context.Context) error
}

// NameSet is a set of migration names.
type NameSet map[string]struct{}

func NewNameSet(names ...string) NameSet {
	s := make(NameSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// ReadDir collects migration names from the definition files in dir. Hidden
// files, directories and files without the codec's extension are skipped.
// The result is sorted with SortNames.
func ReadDir(c *Codec) ([]string, error) {
	tmp, err := os.ReadDir(c.Dir())
	if err != nil {
		return nil, errors.Wrap(err, "read dir")
	}
	names := []string{}
	for _, fi := range tmp {
		// Skip directories and hidden files
		if fi.IsDir() || strings.HasPrefix(fi.Name(), ".") {
			continue
		}
		if !strings.HasSuffix(fi.Name(), c.Ext()) {
			continue
		}
		names = append(names, strings.TrimSuffix(fi.Name(), c.Ext()))
	}
	if err = SortNames(names); err != nil {
		return nil, errors.Wrap(err, "sort")
	}
	return names, nil
}
