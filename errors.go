package east

import (
	"errors"
	"fmt"
	"strings"
)

// StoreUnreadableError is returned when the universe of migration names
// cannot be listed.
type StoreUnreadableError struct {
	Err error
}

func (e *StoreUnreadableError) Error() string {
	return "migrations store unreadable: " + e.Err.Error()
}

func (e *StoreUnreadableError) Unwrap() error { return e.Err }

// UnknownMigrationError lists every requested name that is absent from the
// universe.
type UnknownMigrationError struct {
	Names []string
}

func (e *UnknownMigrationError) Error() string {
	quoted := make([]string, 0, len(e.Names))
	for _, n := range e.Names {
		quoted = append(quoted, "`"+n+"`")
	}
	if len(quoted) == 1 {
		return "unknown migration " + quoted[0]
	}
	return "unknown migrations " + strings.Join(quoted, ", ")
}

// LoadError reports a definition that could not be read or is malformed.
type LoadError struct {
	Name string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s", e.Name, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ExecutionError reports a failure raised by a unit's own up or down action.
type ExecutionError struct {
	Name      string
	Direction Direction
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Direction, e.Name, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// LedgerWriteError reports that the ledger could not be updated. When Applied
// is true the unit's action has already run against the store, so the
// physical and recorded states disagree until an operator reconciles them.
type LedgerWriteError struct {
	Name      string
	Direction Direction
	Applied   bool
	Err       error
}

func (e *LedgerWriteError) Error() string {
	var b strings.Builder
	switch {
	case e.Applied && e.Direction == Apply:
		fmt.Fprintf(&b, "%s was applied but could not be marked as executed", e.Name)
	case e.Applied:
		fmt.Fprintf(&b, "%s was reverted but could not be unmarked as executed", e.Name)
	case e.Direction == Apply:
		fmt.Fprintf(&b, "mark %s", e.Name)
	default:
		fmt.Fprintf(&b, "unmark %s", e.Name)
	}
	fmt.Fprintf(&b, ": %s", e.Err)
	if e.Applied {
		b.WriteString(" (the ledger must be reconciled manually)")
	}
	return b.String()
}

func (e *LedgerWriteError) Unwrap() error { return e.Err }

// RunError identifies the unit that stopped a run and its 0-based position in
// the requested sequence. Every unit before Position completed and is
// recorded in the ledger.
type RunError struct {
	Name     string
	Position int
	Err      error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("migration %s (position %d) failed: %s", e.Name,
		e.Position, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

func joinErrors(errs []error) error { return errors.Join(errs...) }
