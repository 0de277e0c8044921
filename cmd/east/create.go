package main

import (
	"github.com/egtann/east"
	"github.com/spf13/cobra"
)

func newCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create <label>",
		Short: "Create a migration from the template",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			pth, err := east.Create(a.codec, a.store, args[0])
			if err != nil {
				return err
			}
			a.printer().Println("New migration created:", pth)
			return nil
		},
	}
}
