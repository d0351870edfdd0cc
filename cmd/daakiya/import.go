package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/daakiya/internal/collection"
	"github.com/unkn0wn-root/daakiya/internal/history"
	"github.com/unkn0wn-root/daakiya/internal/restfile"
	"github.com/unkn0wn-root/daakiya/internal/restwriter"
)

type importOptions struct {
	save  bool
	out   string
	force bool
}

func newImportCmd(a *app) *cobra.Command {
	o := &importOptions{}
	cmd := &cobra.Command{
		Use:   "import <collection.json>",
		Short: "Import a test collection as template requests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, a, o, args[0])
		},
	}
	f := cmd.Flags()
	f.BoolVar(&o.save, "save", false, "Record every imported request in history")
	f.StringVarP(&o.out, "out", "o", "", "Write the request document to this file")
	f.BoolVarP(&o.force, "force", "f", false, "Overwrite --out if it exists")
	return cmd
}

func runImport(cmd *cobra.Command, a *app, o *importOptions, path string) error {
	col, err := collection.LoadFile(path)
	if err != nil {
		return err
	}
	doc := &restfile.Document{
		Comment:  col.Description,
		Requests: collection.Requests(col, nil),
	}

	if o.save {
		store, err := a.history()
		if err != nil {
			return err
		}
		entries := make([]history.Entry, 0, len(doc.Requests))
		for _, req := range doc.Requests {
			entries = append(entries, history.NewEntry(history.SourceImport, req, nil, nil))
		}
		if err := store.Append(entries...); err != nil {
			return err
		}
	}

	if o.out != "" {
		opts := restwriter.Options{OverwriteExisting: o.force}
		if err := restwriter.WriteDocument(cmd.Context(), doc, o.out, opts); err != nil {
			return err
		}
		_, err := fmt.Fprintf(a.out, "imported %d request(s) from %q to %s\n", len(doc.Requests), col.Name, o.out)
		return err
	}

	data, err := restwriter.Render(doc, restwriter.Options{})
	if err != nil {
		return err
	}
	_, err = a.out.Write(data)
	return err
}
