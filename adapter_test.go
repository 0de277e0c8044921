package east

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
)

// memAdapter is an in-memory Adapter recording every call it receives.
type memAdapter struct {
	defs     []string
	executed NameSet
	calls    []string

	listErr   error
	loadErr   map[string]error
	upErr     map[string]error
	downErr   map[string]error
	markErr   map[string]error
	unmarkErr map[string]error
	template  string
}

var _ Adapter = &memAdapter{}

func newMemAdapter(defs ...string) *memAdapter {
	return &memAdapter{
		defs:      defs,
		executed:  NewNameSet(),
		loadErr:   map[string]error{},
		upErr:     map[string]error{},
		downErr:   map[string]error{},
		markErr:   map[string]error{},
		unmarkErr: map[string]error{},
	}
}

func (m *memAdapter) ListDefinitions(context.Context) ([]string, error) {
	m.calls = append(m.calls, "list")
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]string(nil), m.defs...), nil
}

func (m *memAdapter) Load(_ context.Context, name string) (Unit, error) {
	m.calls = append(m.calls, "load:"+name)
	if err := m.loadErr[name]; err != nil {
		return nil, err
	}
	for _, d := range m.defs {
		if d == name {
			return &memUnit{name: name, a: m}, nil
		}
	}
	return nil, fmt.Errorf("no definition for %s", name)
}

func (m *memAdapter) MarkExecuted(_ context.Context, name string) error {
	m.calls = append(m.calls, "mark:"+name)
	if err := m.markErr[name]; err != nil {
		return err
	}
	m.executed[name] = struct{}{}
	return nil
}

func (m *memAdapter) UnmarkExecuted(_ context.Context, name string) error {
	m.calls = append(m.calls, "unmark:"+name)
	if err := m.unmarkErr[name]; err != nil {
		return err
	}
	delete(m.executed, name)
	return nil
}

func (m *memAdapter) ListExecuted(context.Context) (NameSet, error) {
	m.calls = append(m.calls, "executed")
	s := NewNameSet()
	for n := range m.executed {
		s[n] = struct{}{}
	}
	return s, nil
}

func (m *memAdapter) TemplatePath() string { return m.template }

// mutations reports the ledger writes in the order they happened.
func (m *memAdapter) mutations() []string {
	out := []string{}
	for _, c := range m.calls {
		if strings.HasPrefix(c, "mark:") || strings.HasPrefix(c, "unmark:") {
			out = append(out, c)
		}
	}
	return out
}

func (m *memAdapter) executedNames() []string {
	names := make([]string, 0, len(m.executed))
	for n := range m.executed {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type memUnit struct {
	name string
	a    *memAdapter
}

func (u *memUnit) Name() string { return u.name }

func (u *memUnit) Up(context.Context) error {
	u.a.calls = append(u.a.calls, "up:"+u.name)
	return u.a.upErr[u.name]
}

func (u *memUnit) Down(context.Context) error {
	u.a.calls = append(u.a.calls, "down:"+u.name)
	return u.a.downErr[u.name]
}

func check(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
