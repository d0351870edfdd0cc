package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aymanbagabas/go-udiff"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/daakiya/internal/errdef"
	"github.com/unkn0wn-root/daakiya/internal/history"
)

const shortIDLen = 8

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded executions and imports",
	}
	cmd.AddCommand(
		newHistoryListCmd(a),
		newHistoryShowCmd(a),
		newHistoryRmCmd(a),
		newHistoryClearCmd(a),
		newHistoryDiffCmd(a),
	)
	return cmd
}

func newHistoryListCmd(a *app) *cobra.Command {
	var (
		request string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			store, err := a.history()
			if err != nil {
				return err
			}
			entries := store.ByRequest(request)
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			p := newPalette(a.out, a.getenv)
			for _, e := range entries {
				fmt.Fprintf(
					a.out,
					"%-8s  %s  %-6s  %s  %s\n",
					shortID(e.ID),
					e.Timestamp.Local().Format(time.DateTime),
					e.Source,
					p.status(e),
					fitLabel(e.Label()),
				)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&request, "request", "", "Only entries whose request name or URL matches")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many entries")
	return cmd
}

func newHistoryShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one entry as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			entry, err := a.lookup(args[0])
			if err != nil {
				return err
			}
			return a.printJSON(entry)
		},
	}
}

func newHistoryRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>...",
		Short: "Delete entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := a.history()
			if err != nil {
				return err
			}
			for _, id := range args {
				entry, ok := store.Get(id)
				if !ok {
					return errdef.New(errdef.CodeHistory, "no history entry %q", id)
				}
				if _, err := store.Delete(entry.ID); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "removed %s\n", entry.ID)
			}
			return nil
		},
	}
}

func newHistoryClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every entry",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			store, err := a.history()
			if err != nil {
				return err
			}
			return store.Clear()
		},
	}
}

func newHistoryDiffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <id> <id>",
		Short: "Show a unified diff of two recorded responses",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			left, err := a.responseText(args[0])
			if err != nil {
				return err
			}
			right, err := a.responseText(args[1])
			if err != nil {
				return err
			}
			diff := udiff.Unified("a/"+args[0], "b/"+args[1], left, right)
			if diff == "" {
				_, err = fmt.Fprintln(a.out, "responses are identical")
				return err
			}
			_, err = fmt.Fprint(a.out, newPalette(a.out, a.getenv).diff(diff))
			return err
		},
	}
}

func (a *app) lookup(id string) (history.Entry, error) {
	store, err := a.history()
	if err != nil {
		return history.Entry{}, err
	}
	entry, ok := store.Get(id)
	if !ok {
		return history.Entry{}, errdef.New(errdef.CodeHistory, "no history entry %q", id)
	}
	return entry, nil
}

// responseText renders a response without the timing field, which always differs.
func (a *app) responseText(id string) (string, error) {
	entry, err := a.lookup(id)
	if err != nil {
		return "", err
	}
	if entry.Response == nil {
		return "", errdef.New(errdef.CodeHistory, "entry %s has no response", entry.ID)
	}
	resp := *entry.Response
	resp.Time = 0
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

func statusLabel(e history.Entry) string {
	switch {
	case e.Response == nil:
		return "-"
	case e.Response.Failed():
		return "failed"
	default:
		return strconv.Itoa(e.Response.Status)
	}
}
