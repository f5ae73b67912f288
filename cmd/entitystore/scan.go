package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List the entities found in the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, shutdown, err := a.startService(cmd.Context(), nil)
			if err != nil {
				return err
			}
			for _, id := range svc.IDs() {
				key, ok := svc.Locate(id)
				if !ok {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", id, key)
			}
			return shutdown()
		},
	}
}
