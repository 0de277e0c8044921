package east

import (
	"context"
	"sort"

	"github.com/pkg/errors"
)

// Baseline records every migration up to and including upTo as executed
// without running it. This enables you to start tracking an existing
// database. It returns the names that were newly marked.
func (r *Resolver) Baseline(ctx context.Context, upTo string) ([]string, error) {
	universe, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	index := -1
	for i, name := range universe {
		if name == upTo {
			index = i
			break
		}
	}
	if index == -1 {
		return nil, &UnknownMigrationError{Names: []string{upTo}}
	}
	executed, err := r.adapter.ListExecuted(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list executed")
	}
	marked := []string{}
	for _, name := range universe[:index+1] {
		if executed.Has(name) {
			continue
		}
		if err = r.adapter.MarkExecuted(ctx, name); err != nil {
			return marked, &LedgerWriteError{Name: name, Direction: Apply, Err: err}
		}
		marked = append(marked, name)
	}
	r.log.Debug("baselined migrations", "upto", upTo, "marked", len(marked))
	return marked, nil
}

// Missing reports executed names whose definitions are no longer in the
// universe, in lexical order.
func (r *Resolver) Missing(ctx context.Context) ([]string, error) {
	universe, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	executed, err := r.adapter.ListExecuted(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list executed")
	}
	known := NewNameSet(universe...)
	missing := []string{}
	for name := range executed {
		if !known.Has(name) {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing, nil
}
