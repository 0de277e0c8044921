package east

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
)

// Status selects which migrations FilterStatus reports.
type Status string

const (
	StatusNew      Status = "new"
	StatusExecuted Status = "executed"
	StatusAll      Status = "all"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusNew, StatusExecuted, StatusAll:
		return st, nil
	default:
		return "", fmt.Errorf("unknown status %q (want new, executed or all)", s)
	}
}

// Partition splits a set of names into those not yet executed and those
// already executed. Both keep ascending order.
type Partition struct {
	New      []string
	Executed []string
}

// Resolver computes which migrations a command targets.
type Resolver struct {
	adapter Adapter
	log     *slog.Logger
}

type ResolverOpt func(*Resolver)

func WithResolverLogger(log *slog.Logger) ResolverOpt {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

func NewResolver(adapter Adapter, opts ...ResolverOpt) *Resolver {
	r := &Resolver{
		adapter: adapter,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ListAll returns the universe of known migration names in ascending order.
func (r *Resolver) ListAll(ctx context.Context) ([]string, error) {
	names, err := r.adapter.ListDefinitions(ctx)
	if err != nil {
		return nil, &StoreUnreadableError{Err: err}
	}
	names = append([]string(nil), names...)
	if err = SortNames(names); err != nil {
		return nil, &StoreUnreadableError{Err: err}
	}
	r.log.Debug("listed migrations", "count", len(names))
	return names, nil
}

// Select validates the requested names against the universe and returns them
// in universe order with duplicates removed. A nil request selects the whole
// universe. Every unknown name is reported in a single UnknownMigrationError.
func (r *Resolver) Select(ctx context.Context, requested []string) ([]string, error) {
	universe, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return restrict(universe, requested)
}

// Partition splits the requested names, or the whole universe when requested
// is nil, into new and executed names.
func (r *Resolver) Partition(ctx context.Context, requested []string) (Partition, error) {
	names, err := r.Select(ctx, requested)
	if err != nil {
		return Partition{}, err
	}
	executed, err := r.adapter.ListExecuted(ctx)
	if err != nil {
		return Partition{}, errors.Wrap(err, "list executed")
	}
	p := split(names, executed)
	r.log.Debug("partitioned migrations",
		"new", len(p.New),
		"executed", len(p.Executed))
	return p, nil
}

// FilterStatus lists the universe filtered by execution status. Executed
// names that are no longer in the universe are not reported.
func (r *Resolver) FilterStatus(ctx context.Context, status Status) ([]string, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}
	if status == StatusAll {
		return r.ListAll(ctx)
	}
	p, err := r.Partition(ctx, nil)
	if err != nil {
		return nil, err
	}
	if status == StatusExecuted {
		return p.Executed, nil
	}
	return p.New, nil
}

func restrict(universe, requested []string) ([]string, error) {
	if requested == nil {
		return universe, nil
	}
	known := NewNameSet(universe...)
	want := NewNameSet()
	var unknown []string
	for _, name := range requested {
		if want.Has(name) {
			continue
		}
		want[name] = struct{}{}
		if !known.Has(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, &UnknownMigrationError{Names: unknown}
	}
	names := make([]string, 0, len(want))
	for _, name := range universe {
		if want.Has(name) {
			names = append(names, name)
		}
	}
	return names, nil
}

func split(names []string, executed NameSet) Partition {
	p := Partition{
		New:      []string{},
		Executed: []string{},
	}
	for _, name := range names {
		if executed.Has(name) {
			p.Executed = append(p.Executed, name)
		} else {
			p.New = append(p.New, name)
		}
	}
	return p
}
