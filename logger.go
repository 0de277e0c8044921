package east

import (
	"fmt"
	"io"
	"os"
)

// Logger receives operator-facing status output.
type Logger interface {
	Printf(string, ...interface{})
	Println(...interface{})
}

// StdLogger is a helper type that simply prints using fmt to W, or to stdout
// when W is nil. Unless you want to structure output or redirect it in some
// way, this is probably what you want to use with ProgressPrinter.
type StdLogger struct {
	W io.Writer
}

func (l StdLogger) Printf(s string, vs ...interface{}) {
	fmt.Fprintf(l.writer(), s, vs...)
}

func (l StdLogger) Println(vs ...interface{}) {
	fmt.Fprintln(l.writer(), vs...)
}

func (l StdLogger) writer() io.Writer {
	if l.W == nil {
		return os.Stdout
	}
	return l.W
}

// ProgressPrinter reports run progress to l, one line per event.
func ProgressPrinter(l Logger) func(Event) {
	return func(ev Event) {
		switch {
		case ev.Kind == EventStarted && ev.Direction == Apply:
			l.Println("process " + ev.Name)
		case ev.Kind == EventStarted:
			l.Println("rollback " + ev.Name)
		case ev.Kind == EventFailed && ev.Direction == Apply:
			l.Println("migration failed")
		case ev.Kind == EventFailed:
			l.Println("rollback failed")
		case ev.Direction == Apply:
			l.Println("migration successfully done")
		default:
			l.Println("migration successfully rolled back")
		}
	}
}
