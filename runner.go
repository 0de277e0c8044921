package east

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
)

type Direction int

const (
	Apply Direction = iota
	Revert
)

func (d Direction) String() string {
	if d == Revert {
		return "revert"
	}
	return "apply"
}

// State is the lifecycle of a single run.
type State int

const (
	Idle State = iota
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

type EventKind int

const (
	EventStarted EventKind = iota
	EventFinished
	EventFailed
)

// Event is emitted before and after each unit of a run. Err is set on
// EventFailed only.
type Event struct {
	Kind      EventKind
	Direction Direction
	Name      string
	Position  int
	Total     int
	Err       error
}

// Result describes a finished run. Processed holds the names that completed,
// in order.
type Result struct {
	State     State
	Direction Direction
	Processed []string
}

// Runner executes migrations one at a time against an adapter.
type Runner struct {
	adapter  Adapter
	progress func(Event)
	log      *slog.Logger
}

type RunnerOpt func(*Runner)

// WithProgress registers a callback receiving an event before each unit and
// an EventFinished or EventFailed after it.
func WithProgress(fn func(Event)) RunnerOpt {
	return func(r *Runner) {
		if fn != nil {
			r.progress = fn
		}
	}
}

func WithRunnerLogger(log *slog.Logger) RunnerOpt {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

func NewRunner(adapter Adapter, opts ...RunnerOpt) *Runner {
	r := &Runner{
		adapter:  adapter,
		progress: func(Event) {},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run applies or reverts names strictly in the given order. Unit N+1 is not
// loaded until unit N and its ledger write have completed. The first failure
// stops the run and is returned as a *RunError; every name in
// Result.Processed is already recorded in the ledger.
func (r *Runner) Run(
	ctx context.Context,
	names []string,
	dir Direction,
) (Result, error) {
	res := Result{State: Running, Direction: dir, Processed: []string{}}
	if len(names) == 0 {
		res.State = Completed
		return res, nil
	}
	for i, name := range names {
		ev := Event{
			Kind:      EventStarted,
			Direction: dir,
			Name:      name,
			Position:  i,
			Total:     len(names),
		}
		r.progress(ev)
		if err := r.runOne(ctx, name, dir); err != nil {
			r.log.Debug("run stopped",
				"name", name,
				"position", i,
				"direction", dir.String(),
				"error", err)
			ev.Kind = EventFailed
			ev.Err = err
			r.progress(ev)
			res.State = Failed
			return res, &RunError{Name: name, Position: i, Err: err}
		}
		res.Processed = append(res.Processed, name)
		ev.Kind = EventFinished
		r.progress(ev)
	}
	res.State = Completed
	return res, nil
}

func (r *Runner) runOne(ctx context.Context, name string, dir Direction) error {
	if err := ctx.Err(); err != nil {
		return &ExecutionError{Name: name, Direction: dir, Err: err}
	}
	r.log.Debug("loading migration", "name", name)
	unit, err := r.adapter.Load(ctx, name)
	if err != nil {
		return &LoadError{Name: name, Err: err}
	}
	if dir == Apply {
		err = unit.Up(ctx)
	} else {
		err = unit.Down(ctx)
	}
	if err != nil {
		return &ExecutionError{Name: name, Direction: dir, Err: err}
	}
	if dir == Apply {
		err = r.adapter.MarkExecuted(ctx, name)
	} else {
		err = r.adapter.UnmarkExecuted(ctx, name)
	}
	if err != nil {
		return &LedgerWriteError{
			Name:      name,
			Direction: dir,
			Applied:   true,
			Err:       err,
		}
	}
	return nil
}

// Unmark removes names from the ledger without running their down actions.
// Each name is attempted regardless of failures on the others and all
// failures are returned together. Result.Processed holds the names that were
// unmarked.
func (r *Runner) Unmark(ctx context.Context, names []string) (Result, error) {
	res := Result{State: Running, Direction: Revert, Processed: []string{}}
	var errs []error
	for i, name := range names {
		ev := Event{
			Kind:      EventStarted,
			Direction: Revert,
			Name:      name,
			Position:  i,
			Total:     len(names),
		}
		r.progress(ev)
		if err := r.adapter.UnmarkExecuted(ctx, name); err != nil {
			werr := &LedgerWriteError{
				Name:      name,
				Direction: Revert,
				Err:       err,
			}
			errs = append(errs, werr)
			ev.Kind = EventFailed
			ev.Err = werr
			r.progress(ev)
			continue
		}
		res.Processed = append(res.Processed, name)
		ev.Kind = EventFinished
		r.progress(ev)
	}
	if len(errs) > 0 {
		res.State = Failed
		return res, errors.WithMessage(joinErrors(errs), "unmark")
	}
	res.State = Completed
	return res, nil
}
