package main

import (
	"context"
	"time"

	"github.com/egtann/east"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type listOptions struct {
	status string
	long   bool
}

func newListCmd(a *app) *cobra.Command {
	o := &listOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := east.ParseStatus(o.status)
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func() error {
				if o.long {
					return o.table(cmd.Context(), a, st)
				}
				names, err := a.resolver().FilterStatus(cmd.Context(), st)
				if err != nil {
					return err
				}
				p := a.printer()
				p.Printf("%s migrations:\n", st)
				for _, name := range names {
					p.Printf("\t%s\n", name)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&o.status, "status", "s", string(east.StatusNew),
		"which migrations to list (new, executed or all)")
	cmd.Flags().BoolVarP(&o.long, "long", "l", false,
		"print a table with the creation time and status of each migration")
	return cmd
}

// table prints the migrations matching st with their creation time and
// status.
func (o *listOptions) table(ctx context.Context, a *app, st east.Status) error {
	r := a.resolver()
	names, err := r.FilterStatus(ctx, st)
	if err != nil {
		return err
	}
	p, err := r.Partition(ctx, nil)
	if err != nil {
		return err
	}
	executed := east.NewNameSet(p.Executed...)

	data := make([][]string, 0, len(names))
	for _, name := range names {
		created, _, err := east.ParseName(name)
		if err != nil {
			return err
		}
		status := string(east.StatusNew)
		if executed.Has(name) {
			status = string(east.StatusExecuted)
		}
		data = append(data, []string{
			name,
			created.UTC().Format(time.DateTime),
			status,
		})
	}
	err = renderTable([]string{"Name", "Created", "Status"}, data, a.out)
	return errors.Wrap(err, "render table")
}
