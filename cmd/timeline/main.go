package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/crimson-sun/timeline/internal/config"
	"github.com/crimson-sun/timeline/internal/logging"
	"github.com/crimson-sun/timeline/internal/model"
	"github.com/crimson-sun/timeline/internal/output"
	"github.com/crimson-sun/timeline/internal/output/async"
	"github.com/crimson-sun/timeline/internal/output/file"
	"github.com/crimson-sun/timeline/internal/output/multi"
	"github.com/crimson-sun/timeline/internal/output/stdout"
	"github.com/crimson-sun/timeline/internal/output/text"
	"github.com/crimson-sun/timeline/internal/output/webhook"
	"github.com/crimson-sun/timeline/internal/pipeline"
	"github.com/crimson-sun/timeline/internal/server"
	"github.com/crimson-sun/timeline/internal/session"
	"github.com/crimson-sun/timeline/internal/source"
	"github.com/crimson-sun/timeline/internal/timefmt"
	"github.com/crimson-sun/timeline/internal/tui"
)

const usage = `usage: timeline [command] [flags] [source]

commands:
  serve     HTTP viewer with live reload (default)
  tui       interactive terminal timeline
  print     write the filtered timeline as text or NDJSON
  prompts   print every user message
  share     print the shareable URL fragment

source is a file path, "-" for stdin, or an http(s) URL.
`

var commands = map[string]func(context.Context, *env) error{
	"serve":   runServe,
	"tui":     runTUI,
	"print":   runPrint,
	"prompts": runPrompts,
	"share":   runShare,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// env is the resolved state shared by every command.
type env struct {
	cfg    config.Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	base   string // share: prefix printed before the fragment
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	name := "serve"
	if len(args) > 0 {
		if _, ok := commands[args[0]]; ok {
			name, args = args[0], args[1:]
		}
	}

	e := &env{cfg: config.Load(), stdin: stdin, stdout: stdout, stderr: stderr}
	fs := e.flags(name)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() > 0 {
		e.cfg.Source.Location = fs.Arg(0)
	}
	if err := e.cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "timeline: invalid configuration:\n%v\n", err)
		return 2
	}

	ndjson := name == "print" && e.cfg.Output.Format == config.FormatJSON
	logging.Init(stderr, logging.UseJSON(e.cfg.Log.Format, ndjson), logging.ParseLevel(e.cfg.Log.Level))

	if err := commands[name](ctx, e); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "timeline %s: %v\n", name, err)
		return 1
	}
	return 0
}

// flags registers the flags of command name. Flag defaults come from the
// environment, so a flag given on the command line overrides it.
func (e *env) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("timeline "+name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.Usage = func() {
		fmt.Fprint(e.stderr, usage)
		fmt.Fprintf(e.stderr, "\nflags of %s:\n", name)
		fs.PrintDefaults()
	}

	c := &e.cfg
	fs.StringVar(&c.View.TZ, "tz", c.View.TZ, "timezone mode: local or utc")
	fs.StringVar(&c.View.Query, "q", c.View.Query, "search query")
	fs.StringVar(&c.View.Type, "type", c.View.Type, "event type, or all")
	fs.BoolVar(&c.View.HideTool, "hide", c.View.HideTool, "hide turn boundaries and truncation events")
	fs.DurationVar(&c.Source.FetchTimeout, "fetch-timeout", c.Source.FetchTimeout, "timeout for URL sources")
	fs.IntVar(&c.Source.FetchRetries, "fetch-retries", c.Source.FetchRetries, "retries for URL sources")
	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "log level: debug, info, warn or error")
	fs.StringVar(&c.Log.Format, "log-format", c.Log.Format, "log format: auto, text or json")

	switch name {
	case "serve":
		fs.StringVar(&c.Server.Addr, "addr", c.Server.Addr, "listen address")
		fs.BoolVar(&c.Source.Watch, "watch", c.Source.Watch, "reload when the source file changes")
	case "tui":
		fs.BoolVar(&c.Source.Watch, "watch", c.Source.Watch, "reload when the source file changes")
	case "print":
		fs.BoolVar(&c.Source.Watch, "watch", c.Source.Watch, "keep printing after every change of the source file")
		fs.StringVar(&c.Output.Format, "output", c.Output.Format, "output: text, json or file")
		fs.StringVar(&c.Output.Path, "output-path", c.Output.Path, "file path when output is file")
		fs.BoolVar(&c.Output.Pretty, "pretty", c.Output.Pretty, "indent NDJSON written to stdout")
		fs.StringVar(&c.Output.Verbosity, "verbosity", c.Output.Verbosity, "minimal or standard")
		fs.StringVar(&c.Output.WebhookURL, "webhook", c.Output.WebhookURL, "also POST entries to this URL")
	case "share":
		fs.StringVar(&e.base, "base", "", "viewer URL printed before the fragment")
	}
	return fs
}

func (e *env) resolve(location string) (source.Source, error) {
	return source.Resolve(location, source.Options{
		Stdin:        e.stdin,
		FetchTimeout: e.cfg.Source.FetchTimeout,
		FetchRetries: e.cfg.Source.FetchRetries,
	})
}

func (e *env) controller() *session.Controller {
	mode, _ := timefmt.ParseMode(e.cfg.View.TZ)
	typ := e.cfg.View.Type
	if typ == "" {
		typ = model.TypeAll
	}
	return session.New(
		session.WithTZ(mode),
		session.WithFilters(model.FilterState{Query: e.cfg.View.Query, Type: typ, HideToolDetails: e.cfg.View.HideTool}),
	)
}

// source resolves the configured location, which is required.
func (e *env) source() (source.Source, error) {
	if e.cfg.Source.Location == "" {
		return nil, errors.New("no source given (pass a path, - or URL, or set TIMELINE_SOURCE)")
	}
	return e.resolve(e.cfg.Source.Location)
}

// load loads src into ctrl. Only errors fail the command; a file without
// events is reported and kept going.
func load(ctx context.Context, ctrl *session.Controller, src source.Source) error {
	st, err := ctrl.Load(ctx, src)
	if err != nil {
		return err
	}
	if st.Level == session.LevelWarn {
		slog.Warn(st.Message, "source", src.Name())
	}
	return nil
}

// watch reloads src in the background when it is a file and watching is on.
func (e *env) watch(ctx context.Context, p *pipeline.Pipeline) {
	if !e.cfg.Source.Watch {
		return
	}
	go func() {
		if err := p.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("watch stopped", "error", err)
		}
	}()
}

func runServe(ctx context.Context, e *env) error {
	ctrl := e.controller()
	srv := server.New(ctrl,
		server.WithMaxBody(e.cfg.Server.MaxBody),
		server.WithShutdownTimeout(e.cfg.Server.ShutdownTimeout),
		server.WithResolver(func(location string) (source.Source, error) {
			if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
				return nil, fmt.Errorf("only http and https URLs can be loaded, got %q", location)
			}
			return e.resolve(location)
		}),
	)

	if e.cfg.Source.Location != "" {
		src, err := e.source()
		if err != nil {
			return err
		}
		// the viewer stays up so another file can be loaded
		_ = load(ctx, ctrl, src)
		e.watch(ctx, pipeline.New(src, ctrl, nil))
	}

	fmt.Fprintf(e.stderr, "timeline: viewer on http://%s\n", e.cfg.Server.Addr)
	return srv.ListenAndServe(ctx, e.cfg.Server.Addr)
}

func runTUI(ctx context.Context, e *env) error {
	src, err := e.source()
	if err != nil {
		return err
	}
	ctrl := e.controller()
	if err := load(ctx, ctrl, src); err != nil {
		return err
	}
	e.watch(ctx, pipeline.New(src, ctrl, nil))

	// stdin already carried the session, so keys come from the terminal
	input := tea.WithInput(e.stdin)
	if e.cfg.Source.Location == "-" {
		input = tea.WithInputTTY()
	}
	return tui.Run(ctx, ctrl, input, tea.WithOutput(e.stdout))
}

func runPrint(ctx context.Context, e *env) error {
	src, err := e.source()
	if err != nil {
		return err
	}
	out, err := e.output(src.Name())
	if err != nil {
		return err
	}

	p := pipeline.New(src, e.controller(), out)
	defer p.Close()

	if err := p.Run(ctx); err != nil {
		return err
	}
	if !e.cfg.Source.Watch {
		return nil
	}
	return p.Watch(ctx)
}

// output builds the print destination, fanned out to the webhook when one
// is configured.
func (e *env) output(sourceName string) (output.Output, error) {
	verbosity, err := output.ParseVerbosity(e.cfg.Output.Verbosity)
	if err != nil {
		return nil, err
	}

	var primary output.Output
	switch e.cfg.Output.Format {
	case config.FormatJSON:
		primary = stdout.New(e.stdout, verbosity, e.cfg.Output.Pretty)
	case config.FormatFile:
		var opts []file.Option
		if e.cfg.Output.MaxSize > 0 {
			opts = append(opts, file.WithMaxSize(e.cfg.Output.MaxSize))
		}
		f, err := file.New(e.cfg.Output.Path, verbosity, opts...)
		if err != nil {
			return nil, err
		}
		primary = f
	default:
		primary = text.New(e.stdout)
	}

	if e.cfg.Output.WebhookURL == "" {
		return primary, nil
	}
	hook := async.New(webhook.New(e.cfg.Output.WebhookURL, webhook.WithSource(sourceName)),
		async.WithBufferSize(e.cfg.Output.WebhookBuf),
		async.WithDropOnFull(),
	)
	return multi.New(primary, hook), nil
}

func runPrompts(ctx context.Context, e *env) error {
	src, err := e.source()
	if err != nil {
		return err
	}
	ctrl := e.controller()
	if err := load(ctx, ctrl, src); err != nil {
		return err
	}
	prompts, err := ctrl.Prompts()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(e.stdout, prompts)
	return err
}

func runShare(ctx context.Context, e *env) error {
	src, err := e.source()
	if err != nil {
		return err
	}
	ctrl := e.controller()
	if err := load(ctx, ctrl, src); err != nil {
		return err
	}
	frag, err := ctrl.ShareFragment()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.stdout, "%s#%s\n", e.base, frag)
	return err
}
