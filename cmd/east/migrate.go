package main

import (
	"context"
	"strings"

	"github.com/egtann/east"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type migrateOptions struct {
	force bool
	dry   bool
	skip  string
}

func newMigrateCmd(a *app) *cobra.Command {
	o := &migrateOptions{}
	cmd := &cobra.Command{
		Use:   "migrate [migrations]",
		Short: "Run all new or the selected migrations",
		Long: `Run all new migrations, or only the selected ones. Names may be given as
separate arguments or separated by commas. Already executed migrations are
skipped unless --force is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.dry && o.skip != "" {
				return errors.New("cannot skip ahead with dry mode")
			}
			return a.withStore(cmd.Context(), func() error {
				return o.run(cmd.Context(), a, splitNames(a.codec, args))
			})
		},
	}
	cmd.Flags().BoolVarP(&o.force, "force", "f", false,
		"force to execute already executed migrations")
	cmd.Flags().BoolVarP(&o.dry, "dry", "d", false,
		"print the migrations that would run without running them")
	cmd.Flags().StringVar(&o.skip, "skip", "",
		"mark migrations up to this name (inclusive) as executed without running them")
	return cmd
}

func (o *migrateOptions) run(ctx context.Context, a *app, names []string) error {
	p := a.printer()
	r := a.resolver()

	missing, err := r.Missing(ctx)
	if err != nil {
		return err
	}
	for _, name := range missing {
		a.log.Warn("missing already-run migration", "name", name)
	}

	// Unknown names must fail before the baseline touches the ledger
	if names != nil {
		if _, err = r.Select(ctx, names); err != nil {
			return err
		}
	}

	if o.skip != "" {
		marked, err := r.Baseline(ctx, a.codec.NameFromPath(o.skip))
		if err != nil {
			return errors.Wrap(err, "skip ahead")
		}
		for _, name := range marked {
			p.Println("marked `" + name + "` as executed")
		}
		p.Println("skipped ahead")
	}

	var target []string
	switch {
	case names == nil:
		part, err := r.Partition(ctx, nil)
		if err != nil {
			return err
		}
		target = part.New
	case o.force:
		target, err = r.Select(ctx, names)
		if err != nil {
			return err
		}
	default:
		part, err := r.Partition(ctx, names)
		if err != nil {
			return err
		}
		for _, name := range part.Executed {
			p.Println("skip `" + name + "` because it`s already executed")
		}
		target = part.New
	}

	if len(target) == 0 {
		p.Println("nothing to migrate")
		return nil
	}
	if o.dry {
		for _, name := range target {
			p.Println("would migrate", name)
		}
		return nil
	}

	p.Printf("target migrations:\n\t%s\n", strings.Join(target, "\n\t"))
	runner := east.NewRunner(a.store,
		east.WithProgress(east.ProgressPrinter(p)),
		east.WithRunnerLogger(a.log))
	_, err = runner.Run(ctx, target, east.Apply)
	return err
}
