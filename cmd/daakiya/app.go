package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/daakiya/internal/config"
	"github.com/unkn0wn-root/daakiya/internal/history"
	"github.com/unkn0wn-root/daakiya/internal/httpclient"
	"github.com/unkn0wn-root/daakiya/internal/nettrace"
	"github.com/unkn0wn-root/daakiya/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

// app carries the process-wide state shared by every subcommand.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	getenv        func(string) string
	readClipboard func() (string, error)

	settings  config.Settings
	telemetry telemetry.Instrumenter

	timeout      time.Duration
	insecure     bool
	follow       bool
	proxyURL     string
	historyPath  string
	otelEndpoint string
	otelInsecure bool
	otelService  string
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{
		in:            in,
		out:           out,
		errOut:        errOut,
		getenv:        os.Getenv,
		readClipboard: clipboard.ReadAll,
		settings:      config.DefaultSettings(),
		telemetry:     telemetry.Noop(),
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "daakiya",
		Short: "Resolve and execute HTTP request templates",
		Long: heredoc.Doc(`
			daakiya resolves request templates against variables and executes them.

			Requests come from saved JSON documents, pasted curl commands, test
			collections or flags. Every execution is recorded in a local history.
		`),
		Example: heredoc.Doc(`
			daakiya send --url 'https://api.test/users/{{id}}' --var id=7
			daakiya curl "curl -X POST https://api.test -d '{}'" --out api.json
			daakiya send --request api.json --name '1 POST https://api.test'
			daakiya import collection.json --save
			daakiya history diff <id> <id>
		`),
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			a.teardown()
			return nil
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.DurationVar(&a.timeout, "timeout", config.DefaultTimeout, "Request timeout")
	flags.BoolVar(&a.insecure, "insecure", false, "Skip TLS certificate verification")
	flags.BoolVar(&a.follow, "follow", true, "Follow redirects")
	flags.StringVar(&a.proxyURL, "proxy", "", "HTTP proxy URL")
	flags.StringVar(&a.historyPath, "history", "", "Path to the history file")
	flags.StringVar(&a.otelEndpoint, "trace-otel-endpoint", "", "OTLP gRPC collector endpoint")
	flags.BoolVar(&a.otelInsecure, "trace-otel-insecure", false, "Disable TLS for the OTLP exporter")
	flags.StringVar(&a.otelService, "trace-otel-service", "", "Service name reported with spans")

	root.AddCommand(
		newSendCmd(a),
		newCurlCmd(a),
		newImportCmd(a),
		newHistoryCmd(a),
		newVarsCmd(a),
		newConfigCmd(a),
	)
	return root
}

// setup loads settings, lets explicit flags win over them and starts tracing.
func (a *app) setup(cmd *cobra.Command) error {
	settings, _, err := config.LoadSettings()
	if err != nil {
		log.Printf("settings load error: %v", err)
		settings = config.DefaultSettings()
	}

	flags := cmd.Flags()
	if flags.Changed("timeout") {
		settings.Timeout = config.Duration{Duration: a.timeout}
	}
	if flags.Changed("insecure") {
		settings.Insecure = a.insecure
	}
	if flags.Changed("follow") {
		follow := a.follow
		settings.FollowRedirects = &follow
	}
	if flags.Changed("proxy") {
		settings.Proxy = strings.TrimSpace(a.proxyURL)
	}
	if flags.Changed("history") {
		settings.HistoryFile = strings.TrimSpace(a.historyPath)
	}
	a.settings = settings

	telemetryCfg := telemetry.ConfigFromEnv(a.getenv)
	if flags.Changed("trace-otel-endpoint") {
		telemetryCfg.Endpoint = strings.TrimSpace(a.otelEndpoint)
	}
	if flags.Changed("trace-otel-insecure") {
		telemetryCfg.Insecure = a.otelInsecure
	}
	if flags.Changed("trace-otel-service") {
		telemetryCfg.ServiceName = strings.TrimSpace(a.otelService)
	}
	telemetryCfg.Version = version

	provider, err := telemetry.New(telemetryCfg)
	if err != nil {
		if telemetryCfg.Enabled() {
			log.Printf("telemetry init error: %v", err)
		}
		provider = telemetry.Noop()
	}
	a.telemetry = provider
	return nil
}

func (a *app) teardown() {
	if a.telemetry == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.telemetry.Shutdown(ctx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
}

func (a *app) clientOptions(budget nettrace.Budget) httpclient.Options {
	opts := httpclient.DefaultOptions()
	opts.Budget = budget
	opts.Timeout = a.settings.Timeout.Duration
	opts.FollowRedirects = a.settings.Follow()
	opts.InsecureSkipVerify = a.settings.Insecure
	opts.ProxyURL = a.settings.Proxy
	return opts
}

func (a *app) client(budget nettrace.Budget) *httpclient.Client {
	c := httpclient.NewClient(a.clientOptions(budget))
	c.SetTelemetry(a.telemetry)
	return c
}

func (a *app) history() (*history.Store, error) {
	store := history.NewStore(a.settings.HistoryPath(), a.settings.HistoryLimit)
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (a *app) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(data))
	return err
}

func (a *app) warn(lines []string) {
	for _, line := range lines {
		fmt.Fprintf(a.errOut, "warning: %s\n", line)
	}
}
