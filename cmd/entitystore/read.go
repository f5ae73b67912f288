package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newReadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read <key>",
		Short: "Decode a stored record and print it as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, shutdown, err := a.startService(cmd.Context(), nil)
			if err != nil {
				return err
			}
			v, readErr := svc.Read(cmd.Context(), args[0])
			if err := shutdown(); err != nil && readErr == nil {
				return err
			}
			if readErr != nil {
				return readErr
			}
			out, err := yaml.Marshal(v)
			if err != nil {
				return fmt.Errorf("render %s: %w", args[0], err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
