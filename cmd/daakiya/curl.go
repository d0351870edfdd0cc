package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/daakiya/internal/curl/importer"
	"github.com/unkn0wn-root/daakiya/internal/errdef"
	"github.com/unkn0wn-root/daakiya/internal/restwriter"
)

type curlOptions struct {
	fromClipboard bool
	out           string
	force         bool
}

func newCurlCmd(a *app) *cobra.Command {
	o := &curlOptions{}
	cmd := &cobra.Command{
		Use:   "curl [command]",
		Short: "Convert curl commands into template requests",
		Long: heredoc.Doc(`
			Convert one or more curl commands into a request document.

			The command text is read from the arguments, the clipboard (--clipboard)
			or stdin. Without --out the document is printed.
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCurl(cmd, a, o, args)
		},
	}
	f := cmd.Flags()
	f.SetInterspersed(false)
	f.BoolVar(&o.fromClipboard, "clipboard", false, "Read the curl command from the clipboard")
	f.StringVarP(&o.out, "out", "o", "", "Write the request document to this file")
	f.BoolVarP(&o.force, "force", "f", false, "Overwrite --out if it exists")
	return cmd
}

func runCurl(cmd *cobra.Command, a *app, o *curlOptions, args []string) error {
	src, err := o.source(a, args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(src) == "" {
		return errdef.New(errdef.CodeParse, "no curl command provided (pass it, pipe it or use --clipboard)")
	}

	if o.out != "" {
		svc := importer.Service{Writer: importer.NewFileWriter()}
		doc, warn, err := svc.Import(cmd.Context(), src, o.out, restwriter.Options{
			OverwriteExisting: o.force,
			HeaderComment:     fmt.Sprintf("Generated by daakiya %s", version),
		})
		a.warn(warn)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(a.out, "wrote %d request(s) to %s\n", len(doc.Requests), o.out)
		return err
	}

	doc, warn := importer.BuildDocument(src)
	a.warn(warn)
	if len(doc.Requests) == 0 {
		return errdef.New(errdef.CodeParse, "no curl command found")
	}
	data, err := restwriter.Render(doc, restwriter.Options{})
	if err != nil {
		return err
	}
	_, err = a.out.Write(data)
	return err
}

func (o *curlOptions) source(a *app, args []string) (string, error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case o.fromClipboard:
		text, err := a.readClipboard()
		if err != nil {
			return "", errdef.Wrap(errdef.CodeUnknown, err, "read clipboard")
		}
		return text, nil
	default:
		data, err := io.ReadAll(a.in)
		if err != nil {
			return "", errdef.Wrap(errdef.CodeFilesystem, err, "read stdin")
		}
		return string(data), nil
	}
}
