package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"entitystore/pkg/entity"
)

type writeFlags struct {
	name        string
	id          int
	description string
	entries     []string
}

func newWriteCmd(a *app) *cobra.Command {
	f := &writeFlags{}
	cmd := &cobra.Command{
		Use:   "write <key>",
		Short: "Store a form at key and wait for the worker to finish",
		Example: `  entitystore write settings.xml --name settings --id 1 \
    --entry threads=4 --entry mode=fast`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := f.form()
			if err != nil {
				return err
			}
			svc, shutdown, err := a.startService(cmd.Context(), nil)
			if err != nil {
				return err
			}
			writeErr := svc.WriteAndWait(cmd.Context(), form, args[0])
			if err := shutdown(); err != nil && writeErr == nil {
				return err
			}
			if writeErr != nil {
				return writeErr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&f.name, "name", "", "form name")
	cmd.Flags().IntVar(&f.id, "id", 0, "form id")
	cmd.Flags().StringVar(&f.description, "description", "", "form description")
	cmd.Flags().StringArrayVar(&f.entries, "entry", nil, "entry as name=value, repeatable")
	return cmd
}

func (f *writeFlags) form() (*entity.Form, error) {
	form := &entity.Form{Name: f.name, ID: f.id, Description: f.description}
	for _, raw := range f.entries {
		name, value, ok := strings.Cut(raw, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("entry %q must look like name=value", raw)
		}
		form.Entries = append(form.Entries, entity.Entry{Name: name, Value: value})
	}
	if err := entity.Validate(form); err != nil {
		return nil, err
	}
	return form, nil
}
