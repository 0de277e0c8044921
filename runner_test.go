package east

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRunApplyInOrder(t *testing.T) {
	t.Parallel()
	a := newMemAdapter("1000_x", "2000_y", "3000_z")
	var events []Event
	r := NewRunner(a, WithProgress(func(ev Event) { events = append(events, ev) }))

	res, err := r.Run(context.Background(), []string{"1000_x", "2000_y", "3000_z"}, Apply)
	check(t, err)
	if res.State != Completed {
		t.Fatalf("state = %s", res.State)
	}
	wantCalls := []string{
		"load:1000_x", "up:1000_x", "mark:1000_x",
		"load:2000_y", "up:2000_y", "mark:2000_y",
		"load:3000_z", "up:3000_z", "mark:3000_z",
	}
	if diff := cmp.Diff(wantCalls, a.calls); diff != "" {
		t.Fatalf("calls (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1000_x", "2000_y", "3000_z"}, res.Processed); diff != "" {
		t.Fatalf("processed (-want +got):\n%s", diff)
	}
	wantEvents := []Event{
		{Kind: EventStarted, Name: "1000_x", Position: 0, Total: 3},
		{Kind: EventFinished, Name: "1000_x", Position: 0, Total: 3},
		{Kind: EventStarted, Name: "2000_y", Position: 1, Total: 3},
		{Kind: EventFinished, Name: "2000_y", Position: 1, Total: 3},
		{Kind: EventStarted, Name: "3000_z", Position: 2, Total: 3},
		{Kind: EventFinished, Name: "3000_z", Position: 2, Total: 3},
	}
	if diff := cmp.Diff(wantEvents, events); diff != "" {
		t.Fatalf("events (-want +got):\n%s", diff)
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	t.Parallel()
	a := newMemAdapter("1000_x", "2000_y", "3000_z")
	cause := errors.New("syntax error")
	a.upErr["2000_y"] = cause

	res, err := NewRunner(a).Run(context.Background(),
		[]string{"1000_x", "2000_y", "3000_z"}, Apply)
	if res.State != Failed {
		t.Fatalf("state = %s", res.State)
	}
	var rerr *RunError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RunError, got %v", err)
	}
	if rerr.Name != "2000_y" || rerr.Position != 1 {
		t.Fatalf("failure at %s/%d, want 2000_y/1", rerr.Name, rerr.Position)
	}
	var eerr *ExecutionError
	if !errors.As(err, &eerr) || !errors.Is(err, cause) {
		t.Fatalf("expected ExecutionError wrapping the cause, got %v", err)
	}
	if diff := cmp.Diff([]string{"1000_x"}, a.executedNames()); diff != "" {
		t.Fatalf("ledger (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1000_x"}, res.Processed); diff != "" {
		t.Fatalf("processed (-want +got):\n%s", diff)
	}
	for _, c := range a.calls {
		if c == "load:3000_z" {
			t.Fatal("unit after the failure was loaded")
		}
	}
}

func TestRunEmitsFailedEvent(t *testing.T) {
	t.Parallel()
	a := newMemAdapter("1000_x", "2000_y", "3000_z")
	cause := errors.New("syntax error")
	a.upErr["2000_y"] = cause
	var events []Event
	r := NewRunner(a, WithProgress(func(ev Event) { events = append(events, ev) }))

	_, err := r.Run(context.Background(), []string{"1000_x", "2000_y", "3000_z"}, Apply)
	if err == nil {
		t.Fatal("expected error")
	}
	var kinds []EventKind
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	want := []EventKind{EventStarted, EventFinished, EventStarted, EventFailed}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Fatalf("kinds (-want +got):\n%s", diff)
	}
	last := events[len(events)-1]
	if last.Name != "2000_y" || last.Position != 1 || !errors.Is(last.Err, cause) {
		t.Fatalf("unexpected failed event %+v", last)
	}
	for _, ev := range events[:len(events)-1] {
		if ev.Err != nil {
			t.Fatalf("unexpected error on %+v", ev)
		}
	}
}

func TestUnmarkEmitsFailedEvent(t *testing.T) {
	t.Parallel()
	a := newMemAdapter("1000_x", "2000_y")
	a.executed = NewNameSet("1000_x", "2000_y")
	a.unmarkErr["1000_x"] = errors.New("read only")
	var failed []string
	r := NewRunner(a, WithProgress(func(ev Event) {
		if ev.Kind == EventFailed {
			failed = append(failed, ev.Name)
		}
	}))

	_, err := r.Unmark(context.Background(), []string{"1000_x", "2000_y"})
	if err == nil {
		t.Fatal("expected error")
	}
	if diff := cmp.Diff([]string{"1000_x"}, failed); diff != "" {
		t.Fatalf("failed (-want +got):\n%s", diff)
	}
}

func TestRunLoadError(t *testing.T) {
	t.Parallel()
	a := newMemAdapter("1000_x", "2000_y")
	a.loadErr["1000_x"] = errors.New("malformed")

	_, err := NewRunner(a).Run(context.Background(), []string{"1000_x", "2000_y"}, Apply)
	var lerr *LoadError
	if !errors.As(err, &lerr) || lerr.Name != "1000_x" {
		t.Fatalf("expected LoadError for 1000_x, got %v", err)
	}
	if diff := cmp.Diff([]string{"load:1000_x"}, a.calls); diff != "" {
		t.Fatalf("calls (-want +got):\n%s", diff)
	}
}

func TestRunLedgerWriteError(t *testing.T) {
	t.Parallel()
	a := newMemAdapter("1000_x", "2000_y")
	a.markErr["1000_x"] = errors.New("connection reset")

	res, err := NewRunner(a).Run(context.Background(), []string{"1000_x", "2000_y"}, Apply)
	var werr *LedgerWriteError
	if !errors.As(err, &werr) {
		t.Fatalf("expected LedgerWriteError, got %v", err)
	}
	if !werr.Applied || werr.Name != "1000_x" {
		t.Fatalf("unexpected ledger error %+v", werr)
	}
	want := "migration 1000_x (position 0) failed: 1000_x was applied but could " +
		"not be marked as executed: connection reset (the ledger must be " +
		"reconciled manually)"
	if err.Error() != want {
		t.Fatalf("message:\n%s\nwant:\n%s", err, want)
	}
	if res.State != Failed || len(res.Processed) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	for _, c := range a.calls {
		if c == "load:2000_y" {
			t.Fatal("run continued after the ledger failure")
		}
	}
}

func TestRunEmpty(t *testing.T) {
	t.Parallel()
	a := newMemAdapter("1000_x")
	called := false
	r := NewRunner(a, WithProgress(func(Event) { called = true }))
	for _, names := range [][]string{nil, {}} {
		res, err := r.Run(context.Background(), names, Apply)
		check(t, err)
		if res.State != Completed || len(res.Processed) != 0 {
			t.Fatalf("unexpected result %+v", res)
		}
	}
	if len(a.calls) != 0 || called {
		t.Fatalf("empty run touched the adapter: %v", a.calls)
	}
}

func TestRunRevert(t *testing.T) {
	t.Parallel()
	a := newMemAdapter("1000_x", "2000_y", "3000_z")
	a.executed = NewNameSet("1000_x", "2000_y", "3000_z")
	a.downErr["2000_y"] = errors.New("cannot drop")

	res, err := NewRunner(a).Run(context.Background(),
		[]string{"3000_z", "2000_y", "1000_x"}, Revert)
	var rerr *RunError
	if !errors.As(err, &rerr) || rerr.Name != "2000_y" || rerr.Position != 1 {
		t.Fatalf("expected failure at 2000_y/1, got %v", err)
	}
	wantCalls := []string{
		"load:3000_z", "down:3000_z", "unmark:3000_z",
		"load:2000_y", "down:2000_y",
	}
	if diff := cmp.Diff(wantCalls, a.calls); diff != "" {
		t.Fatalf("calls (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1000_x", "2000_y"}, a.executedNames()); diff != "" {
		t.Fatalf("ledger (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"3000_z"}, res.Processed); diff != "" {
		t.Fatalf("processed (-want +got):\n%s", diff)
	}
}

func TestRunCanceled(t *testing.T) {
	t.Parallel()
	a := newMemAdapter("1000_x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(a).Run(ctx, []string{"1000_x"}, Apply)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(a.calls) != 0 {
		t.Fatalf("canceled run touched the adapter: %v", a.calls)
	}
}

func TestUnmarkAttemptsEveryName(t *testing.T) {
	t.Parallel()
	a := newMemAdapter("1000_x", "2000_y", "3000_z")
	a.executed = NewNameSet("1000_x", "2000_y", "3000_z")
	a.unmarkErr["1000_x"] = errors.New("locked")

	res, err := NewRunner(a).Unmark(context.Background(),
		[]string{"1000_x", "2000_y", "3000_z"})
	var werr *LedgerWriteError
	if !errors.As(err, &werr) || werr.Name != "1000_x" || werr.Applied {
		t.Fatalf("expected LedgerWriteError for 1000_x, got %v", err)
	}
	wantCalls := []string{"unmark:1000_x", "unmark:2000_y", "unmark:3000_z"}
	if diff := cmp.Diff(wantCalls, a.calls); diff != "" {
		t.Fatalf("calls (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1000_x"}, a.executedNames()); diff != "" {
		t.Fatalf("ledger (-want +got):\n%s", diff)
	}
	if res.State != Failed {
		t.Fatalf("state = %s", res.State)
	}
	if diff := cmp.Diff([]string{"2000_y", "3000_z"}, res.Processed); diff != "" {
		t.Fatalf("processed (-want +got):\n%s", diff)
	}
}

func TestProgressPrinter(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	p := ProgressPrinter(StdLogger{W: &buf})
	p(Event{Kind: EventStarted, Name: "1000_x"})
	p(Event{Kind: EventFinished, Name: "1000_x"})
	p(Event{Kind: EventStarted, Direction: Revert, Name: "1000_x"})
	p(Event{Kind: EventFinished, Direction: Revert, Name: "1000_x"})
	p(Event{Kind: EventStarted, Name: "2000_y"})
	p(Event{Kind: EventFailed, Name: "2000_y", Err: errors.New("boom")})
	p(Event{Kind: EventStarted, Direction: Revert, Name: "2000_y"})
	p(Event{Kind: EventFailed, Direction: Revert, Name: "2000_y", Err: errors.New("boom")})
	want := "process 1000_x\nmigration successfully done\n" +
		"rollback 1000_x\nmigration successfully rolled back\n" +
		"process 2000_y\nmigration failed\n" +
		"rollback 2000_y\nrollback failed\n"
	if buf.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}
