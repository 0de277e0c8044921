package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM)
	defer stop()

	a := &app{
		in:      os.Stdin,
		out:     os.Stdout,
		errOut:  os.Stderr,
		sandbox: true,
	}
	return newRootCmd(a).ExecuteContext(ctx)
}
