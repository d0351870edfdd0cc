package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/unkn0wn-root/daakiya/internal/curl"
	"github.com/unkn0wn-root/daakiya/internal/errdef"
	"github.com/unkn0wn-root/daakiya/internal/history"
	"github.com/unkn0wn-root/daakiya/internal/nettrace"
	"github.com/unkn0wn-root/daakiya/internal/restfile"
	"github.com/unkn0wn-root/daakiya/internal/vars"
)

type sendOptions struct {
	requestFile string
	name        string
	curlText    string
	url         string
	method      string
	headers     []string
	params      []string
	data        string
	varFiles    []string
	assignments []string
	query       string
	noHistory   bool
	showRequest bool
	timings     bool
	budget      string
}

func newSendCmd(a *app) *cobra.Command {
	o := &sendOptions{}
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Resolve and execute one request",
		Long: heredoc.Doc(`
			Resolve one template request against the variables and execute it.

			Exactly one source is used: --request (a saved document), --curl, or --url.
			Variables are looked up in order: --var, --vars files, the settings
			variables_file, then the document's own variables. The first match wins.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSend(cmd, a, o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.requestFile, "request", "r", "", "Saved request document (JSON)")
	f.StringVarP(&o.name, "name", "n", "", "Request ID or name inside --request")
	f.StringVar(&o.curlText, "curl", "", "curl command to execute")
	f.StringVarP(&o.url, "url", "u", "", "Request URL template")
	f.StringVarP(&o.method, "method", "X", "GET", "HTTP method used with --url")
	f.StringArrayVarP(&o.headers, "header", "H", nil, "Header 'Name: value', repeatable")
	f.StringArrayVarP(&o.params, "param", "p", nil, "Query parameter key=value, repeatable")
	f.StringVarP(&o.data, "data", "d", "", "Request body template")
	f.StringArrayVar(&o.varFiles, "vars", nil, "Variables file (json, yaml or .env), repeatable")
	f.StringArrayVarP(&o.assignments, "var", "e", nil, "Variable key=value, repeatable")
	f.StringVarP(&o.query, "query", "q", "", "Print only this gjson path of a JSON body")
	f.BoolVar(&o.noHistory, "no-history", false, "Do not record the execution")
	f.BoolVar(&o.showRequest, "show-request", false, "Print the resolved request with the response")
	f.BoolVar(&o.timings, "timings", false, "Print the phase timeline to stderr")
	f.StringVar(&o.budget, "budget", "", "Latency budget, e.g. 500ms or total=1s,ttfb=200ms")
	return cmd
}

func runSend(cmd *cobra.Command, a *app, o *sendOptions) error {
	req, docVars, err := o.buildRequest(a)
	if err != nil {
		return err
	}
	env, err := o.environment(a, docVars)
	if err != nil {
		return err
	}
	budget, err := nettrace.ParseBudget(o.budget)
	if err != nil {
		return errdef.Wrap(errdef.CodeConfig, err, "invalid --budget")
	}

	out := a.client(budget).SendTraced(cmd.Context(), req, env)
	resolved, resp := out.Resolved, out.Response
	a.warn(resolved.Warnings)
	if o.timings {
		printTimeline(a.errOut, out.Timeline)
	}
	for _, b := range nettrace.EvaluateBudget(out.Timeline, budget) {
		a.warn([]string{fmt.Sprintf(
			"budget exceeded: %s took %s, limit %s (over by %s)",
			b.Kind, b.Actual.Round(time.Millisecond), b.Limit, b.Over.Round(time.Millisecond),
		)})
	}

	if !o.noHistory {
		if err := recordSend(a, req, resolved, resp); err != nil {
			log.Printf("history write error: %v", err)
		}
	}

	if err := o.print(a, resolved, resp); err != nil {
		return err
	}
	if resp.Failed() {
		kind := restfile.FailureUnknown
		if resp.Failure != nil {
			kind = resp.Failure.Kind
		}
		return errdef.New(errdef.CodeHTTP, "request failed (%s): %s", kind, resp.Body.Text())
	}
	return nil
}

func printTimeline(w io.Writer, tl *nettrace.Timeline) {
	if tl == nil {
		fmt.Fprintln(w, "timings: none (request was not sent)")
		return
	}
	fmt.Fprintln(w, "timings:")
	for _, phase := range tl.Phases {
		line := fmt.Sprintf("  %-16s %10s", phase.Kind, phase.Duration.Round(time.Microsecond))
		if phase.Meta.Addr != "" {
			line += "  " + phase.Meta.Addr
		}
		if phase.Meta.Reused {
			line += "  (reused)"
		}
		if phase.Err != "" {
			line += "  error: " + phase.Err
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "  %-16s %10s\n", nettrace.PhaseTotal, tl.Duration.Round(time.Microsecond))
}

func recordSend(a *app, req restfile.Request, resolved restfile.ResolvedRequest, resp restfile.Response) error {
	store, err := a.history()
	if err != nil {
		return err
	}
	return store.Append(history.NewEntry(history.SourceSend, req, &resolved, &resp))
}

func (o *sendOptions) print(a *app, resolved restfile.ResolvedRequest, resp restfile.Response) error {
	if o.query != "" {
		if !resp.Body.IsJSON() {
			return errdef.New(errdef.CodeParse, "--query needs a JSON response body")
		}
		data, err := json.Marshal(resp.Body)
		if err != nil {
			return err
		}
		result := gjson.GetBytes(data, o.query)
		if !result.Exists() {
			return errdef.New(errdef.CodeParse, "no value at %q", o.query)
		}
		_, err = fmt.Fprintln(a.out, result.String())
		return err
	}
	if o.showRequest {
		return a.printJSON(struct {
			Request  restfile.ResolvedRequest `json:"request"`
			Response restfile.Response        `json:"response"`
		}{resolved, resp})
	}
	return a.printJSON(resp)
}

func (o *sendOptions) buildRequest(a *app) (restfile.Request, []restfile.Variable, error) {
	sources := 0
	for _, s := range []string{o.requestFile, o.curlText, o.url} {
		if strings.TrimSpace(s) != "" {
			sources++
		}
	}
	if sources != 1 {
		return restfile.Request{}, nil, errors.New("choose exactly one of --request, --curl or --url")
	}

	switch {
	case o.requestFile != "":
		return o.fromDocument()
	case o.curlText != "":
		res := curl.ParseCommandInfo(o.curlText)
		a.warn(res.Warnings)
		if res.Request.URL == "" {
			return restfile.Request{}, nil, errdef.New(errdef.CodeParse, "curl command has no URL")
		}
		req := res.Request
		req.ID = restfile.NewID()
		return req, nil, nil
	default:
		req, err := o.fromFlags()
		return req, nil, err
	}
}

func (o *sendOptions) fromDocument() (restfile.Request, []restfile.Variable, error) {
	data, err := os.ReadFile(o.requestFile)
	if err != nil {
		return restfile.Request{}, nil, errdef.Wrap(errdef.CodeFilesystem, err, "read %s", o.requestFile)
	}
	doc, err := restfile.DecodeRequests(data)
	if err != nil {
		return restfile.Request{}, nil, errdef.Wrap(errdef.CodeParse, err, "decode %s", o.requestFile)
	}

	if o.name != "" {
		req, ok := doc.Find(o.name)
		if !ok {
			return restfile.Request{}, nil, errdef.New(errdef.CodeParse, "no request %q in %s", o.name, o.requestFile)
		}
		return req, doc.Variables, nil
	}
	switch len(doc.Requests) {
	case 0:
		return restfile.Request{}, nil, errdef.New(errdef.CodeParse, "%s holds no requests", o.requestFile)
	case 1:
		return doc.Requests[0], doc.Variables, nil
	}
	names := make([]string, 0, len(doc.Requests))
	for _, req := range doc.Requests {
		names = append(names, fmt.Sprintf("%q", req.Name))
	}
	return restfile.Request{}, nil, errdef.New(
		errdef.CodeParse,
		"%s holds %d requests; pick one with --name: %s",
		o.requestFile,
		len(doc.Requests),
		strings.Join(names, ", "),
	)
}

func (o *sendOptions) fromFlags() (restfile.Request, error) {
	req := restfile.NewRequest()
	req.URL = strings.TrimSpace(o.url)
	req.Method, _ = restfile.ParseMethod(o.method)
	if req.Method == "" {
		req.Method = restfile.MethodGet
	}
	req.Body = o.data

	for _, raw := range o.headers {
		name, value, ok := strings.Cut(raw, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return restfile.Request{}, errdef.New(errdef.CodeParse, "invalid header %q (want 'Name: value')", raw)
		}
		req.Headers = append(req.Headers, restfile.NewKeyValue(name, strings.TrimSpace(value)))
	}
	params, err := vars.ParseAssignments(o.params)
	if err != nil {
		return restfile.Request{}, err
	}
	req.Params = append(req.Params, params...)
	return req, nil
}

func (o *sendOptions) environment(a *app, docVars []restfile.Variable) ([]restfile.KeyValue, error) {
	env, err := vars.ParseAssignments(o.assignments)
	if err != nil {
		return nil, err
	}
	files := append([]string{}, o.varFiles...)
	if a.settings.VariablesFile != "" {
		files = append(files, a.settings.VariablesFile)
	}
	for _, path := range files {
		loaded, err := vars.LoadFile(path)
		if err != nil {
			return nil, err
		}
		env = vars.Merge(env, loaded)
	}
	return vars.Merge(env, docVars), nil
}
