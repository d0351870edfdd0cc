package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/daakiya/internal/restfile"
	"github.com/unkn0wn-root/daakiya/internal/vars"
)

func newVarsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vars",
		Short: "Edit variable files (json, yaml or .env)",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list <file>",
			Short: "Print the variables in file order",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				env, err := vars.LoadFile(args[0])
				if err != nil {
					return err
				}
				for _, kv := range env {
					line := kv.Key + "=" + kv.Value
					if !kv.Enabled {
						line += "  # disabled"
					}
					fmt.Fprintln(a.out, line)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <file> <key=value>...",
			Short: "Add or update variables, creating the file if needed",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(_ *cobra.Command, args []string) error {
				assignments, err := vars.ParseAssignments(args[1:])
				if err != nil {
					return err
				}
				env, err := loadOrEmpty(args[0])
				if err != nil {
					return err
				}
				for _, kv := range assignments {
					env = vars.Set(env, kv.Key, kv.Value)
				}
				return vars.SaveFile(args[0], env)
			},
		},
		&cobra.Command{
			Use:   "unset <file> <key>...",
			Short: "Remove variables by key",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(_ *cobra.Command, args []string) error {
				env, err := vars.LoadFile(args[0])
				if err != nil {
					return err
				}
				return vars.SaveFile(args[0], vars.Unset(env, args[1:]...))
			},
		},
	)
	return cmd
}

func loadOrEmpty(path string) ([]restfile.KeyValue, error) {
	env, err := vars.LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []restfile.KeyValue{}, nil
	}
	return env, err
}
