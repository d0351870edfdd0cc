package main

import (
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/daakiya/internal/config"
	"github.com/unkn0wn-root/daakiya/internal/errdef"
	"github.com/unkn0wn-root/daakiya/internal/history"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change persistent settings",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective settings as TOML",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				data, err := toml.Marshal(a.settings)
				if err != nil {
					return errdef.Wrap(errdef.CodeConfig, err, "encode settings")
				}
				_, err = a.out.Write(data)
				return err
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the settings and history file locations",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				_, handle, err := config.LoadSettings()
				if err != nil {
					return err
				}
				store := history.NewStore(a.settings.HistoryPath(), a.settings.HistoryLimit)
				fmt.Fprintf(a.out, "settings  %s\n", handle.Path)
				fmt.Fprintf(a.out, "history   %s\n", store.Path())
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Persist one setting",
			Long: heredoc.Docf(`
				Persist one setting to the settings file. An empty value resets it.

				Keys: %s
			`, strings.Join(config.Keys(), ", ")),
			Args: cobra.ExactArgs(2),
			RunE: func(_ *cobra.Command, args []string) error {
				settings, handle, err := config.LoadSettings()
				if err != nil {
					return err
				}
				if err := settings.Set(args[0], args[1]); err != nil {
					return err
				}
				if err := config.SaveSettings(settings, handle); err != nil {
					return err
				}
				_, err = fmt.Fprintf(a.out, "%s = %q\n", args[0], strings.TrimSpace(args[1]))
				return err
			},
		},
	)
	return cmd
}
