package main

import (
	"context"
	"slices"
	"strings"

	"github.com/egtann/east"
	"github.com/spf13/cobra"
)

type rollbackOptions struct {
	unmarkOnly bool
}

func newRollbackCmd(a *app) *cobra.Command {
	o := &rollbackOptions{}
	cmd := &cobra.Command{
		Use:   "rollback <migrations>",
		Short: "Roll back the selected migrations",
		Long: `Roll back the selected migrations, newest first, running each down section
and stopping at the first failure. Names may be given as separate arguments
or separated by commas.

With --unmark-only the migrations are only removed from the ledger; their
down sections are not run and every name is attempted even if another fails.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func() error {
				names := splitNames(a.codec, args)
				if o.unmarkOnly {
					return o.unmark(cmd.Context(), a, names)
				}
				return o.run(cmd.Context(), a, names)
			})
		},
	}
	cmd.Flags().BoolVar(&o.unmarkOnly, "unmark-only", false,
		"only unmark the migrations as executed, without running them")
	return cmd
}

func (o *rollbackOptions) run(ctx context.Context, a *app, names []string) error {
	p := a.printer()
	part, err := a.resolver().Partition(ctx, names)
	if err != nil {
		return err
	}
	for _, name := range part.New {
		p.Println("skip `" + name + "` because it`s not executed")
	}
	target := slices.Clone(part.Executed)
	slices.Reverse(target)
	if len(target) == 0 {
		p.Println("nothing to rollback")
		return nil
	}

	p.Printf("target migrations:\n\t%s\n", strings.Join(target, "\n\t"))
	runner := east.NewRunner(a.store,
		east.WithProgress(east.ProgressPrinter(p)),
		east.WithRunnerLogger(a.log))
	_, err = runner.Run(ctx, target, east.Revert)
	return err
}

func (o *rollbackOptions) unmark(ctx context.Context, a *app, names []string) error {
	p := a.printer()
	target, err := a.resolver().Select(ctx, names)
	if err != nil {
		return err
	}
	p.Printf("target migrations:\n\t%s\n", strings.Join(target, "\n\t"))
	runner := east.NewRunner(a.store,
		east.WithProgress(func(ev east.Event) {
			if ev.Kind == east.EventFinished {
				p.Println("migration `" + ev.Name + "` unmarked as executed")
			}
		}),
		east.WithRunnerLogger(a.log))
	_, err = runner.Unmark(ctx, target)
	return err
}
