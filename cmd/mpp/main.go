// Command mpp renders mustache templates with section helpers and scope
// jumps, checks them, watches them, serves a live preview, or runs a REPL.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sambeau/mustachepp"
	"github.com/sambeau/mustachepp/config"
	perrors "github.com/sambeau/mustachepp/pkg/errors"
	"github.com/sambeau/mustachepp/pkg/expr"
	"github.com/sambeau/mustachepp/pkg/helpers"
	"github.com/sambeau/mustachepp/pkg/loader"
	"github.com/sambeau/mustachepp/pkg/repl"
	"github.com/sambeau/mustachepp/pkg/rewrite"
	"github.com/sambeau/mustachepp/pkg/watch"
	"github.com/sambeau/mustachepp/server"
)

// Version is set at build time via -ldflags
var Version = "0.1.0-dev"

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv); err != nil {
		var te *perrors.TemplateError
		if errors.As(err, &te) {
			fmt.Fprintln(os.Stderr, te.PrettyString())
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// run is the main entry point, designed for testability (Mat Ryer pattern)
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) error {
	if len(args) > 0 && args[0] == "serve" {
		return runServe(ctx, args[1:], stdout, stderr, getenv)
	}

	flags := flag.NewFlagSet("mpp", flag.ContinueOnError)
	flags.SetOutput(stderr)

	var (
		configPath  = flags.String("config", "", "Path to config file")
		inline      = flags.String("e", "", "Render this template text")
		dataPath    string
		partialsDir string
		outputPath  = flags.String("o", "", "Write output to a file")
		strict      = flags.Bool("strict", false, "Missing variables and partials are errors")
		check       = flags.Bool("check", false, "Check templates without rendering")
		watchMode   = flags.Bool("watch", false, "Re-render when files change")
		showVersion = flags.Bool("version", false, "Show version")
		showHelp    = flags.Bool("help", false, "Show help")
	)
	flags.StringVar(&dataPath, "d", "", "View data file (YAML or JSON)")
	flags.StringVar(&dataPath, "data", "", "View data file (YAML or JSON)")
	flags.StringVar(&partialsDir, "p", "", "Directory of partials")
	flags.StringVar(&partialsDir, "partials", "", "Directory of partials")

	if err := flags.Parse(args); err != nil {
		return err
	}

	if *showHelp {
		printUsage(stdout)
		return nil
	}
	if *showVersion {
		fmt.Fprintf(stdout, "mpp version %s\n", Version)
		return nil
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configPath, getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *strict {
		cfg.Strict = true
	}
	if partialsDir != "" {
		cfg.Partials = partialsDir
	}

	engine, closeLog, err := newEngine(cfg, stdout, stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	files := flags.Args()

	if *check {
		return runCheck(engine, files, *inline, cfg.Extensions, stdout)
	}

	job := &renderJob{
		engine:   engine,
		inline:   *inline,
		dataPath: dataPath,
		partials: cfg.Partials,
		exts:     cfg.Extensions,
		output:   *outputPath,
		stdout:   stdout,
	}

	switch {
	case len(files) > 1:
		return fmt.Errorf("expected one template, got %d", len(files))
	case len(files) == 1:
		job.template = files[0]
	case *inline == "":
		if f, ok := stdin.(*os.File); ok && isTerminal(f) {
			r := repl.New(engine, stdout)
			if dataPath != "" {
				view, err := loader.LoadData(dataPath)
				if err != nil {
					return err
				}
				r.SetView(view)
			}
			partials, err := loader.LoadPartials(cfg.Partials, cfg.Extensions)
			if err != nil {
				return err
			}
			r.SetPartials(partials)
			repl.Start(r, Version)
			return nil
		}
		text, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("reading template: %w", err)
		}
		job.inline = string(text)
	}

	if err := job.render(); err != nil {
		if !*watchMode {
			return err
		}
		fmt.Fprintln(stderr, describe(err))
	}
	if !*watchMode {
		return nil
	}
	return job.watch(ctx, cfg.Watch.Debounce, stderr)
}

// newEngine builds an engine from the configuration. Engine logging is
// only enabled at debug level.
func newEngine(cfg *config.Config, stdout, stderr io.Writer) (*mustachepp.Engine, func(), error) {
	logger := mustachepp.NullLogger()
	closeLog := func() {}
	if cfg.Logging.Level == "debug" {
		switch cfg.Logging.Output {
		case "", "stderr":
			logger = mustachepp.WriterLogger(stderr)
		case "stdout":
			logger = mustachepp.WriterLogger(stdout)
		default:
			f, err := os.OpenFile(cfg.Logging.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
			if err != nil {
				return nil, nil, fmt.Errorf("opening log file: %w", err)
			}
			logger = mustachepp.WriterLogger(f)
			closeLog = func() { f.Close() }
		}
	}

	tags := cfg.Tags()
	engine := mustachepp.New(
		mustachepp.WithLogger(logger),
		mustachepp.WithStrict(cfg.Strict),
		mustachepp.WithTags(tags.Open(), tags.Close()),
	)
	for _, name := range cfg.Helpers {
		h, ok := helpers.Optional(name, cfg.Locale)
		if !ok {
			closeLog()
			return nil, nil, fmt.Errorf("unknown helper %q", name)
		}
		engine.RegisterHelper(name, h)
	}
	return engine, closeLog, nil
}

// renderJob renders one template with its data and partials.
type renderJob struct {
	engine   *mustachepp.Engine
	template string
	inline   string
	dataPath string
	partials string
	exts     []string
	output   string
	stdout   io.Writer
}

func (j *renderJob) render() error {
	text := j.inline
	if j.template != "" {
		var err error
		if text, err = loader.ReadTemplate(j.template); err != nil {
			return err
		}
	}
	view, err := loader.LoadData(j.dataPath)
	if err != nil {
		return err
	}
	partials, err := loader.LoadPartials(j.partials, j.exts)
	if err != nil {
		return err
	}

	out, err := j.engine.Render(text, view, partials)
	if err != nil {
		var te *perrors.TemplateError
		if j.template != "" && errors.As(err, &te) && te.File == "" {
			return te.WithFile(j.template)
		}
		return err
	}

	if j.output != "" {
		if err := os.WriteFile(j.output, []byte(out), 0644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		return nil
	}
	_, err = io.WriteString(j.stdout, out)
	return err
}

// watch re-renders whenever the template, data or partials change, until
// ctx is done. Render errors are reported and watching goes on.
func (j *renderJob) watch(ctx context.Context, debounce time.Duration, stderr io.Writer) error {
	if j.template == "" && j.dataPath == "" && j.partials == "" {
		return fmt.Errorf("--watch needs a template, data or partials file")
	}

	w, err := watch.New(debounce, j.exts, func([]string) {
		if err := j.render(); err != nil {
			fmt.Fprintln(stderr, describe(err))
		}
	}, stderr, stderr)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(j.template, j.dataPath, j.partials); err != nil {
		return err
	}
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runCheck compiles every template and validates the conditions of its if
// and unless sections.
func runCheck(engine *mustachepp.Engine, files []string, inline string, exts []string, stdout io.Writer) error {
	type source struct{ name, text string }
	var sources []source

	if inline != "" {
		sources = append(sources, source{"-e", inline})
	}
	for _, f := range files {
		paths := []string{f}
		if info, err := os.Stat(f); err == nil && info.IsDir() {
			var err error
			if paths, err = loader.Templates(f, exts); err != nil {
				return err
			}
		}
		for _, p := range paths {
			text, err := loader.ReadTemplate(p)
			if err != nil {
				return err
			}
			sources = append(sources, source{p, text})
		}
	}
	if len(sources) == 0 {
		return fmt.Errorf("nothing to check")
	}

	failed := 0
	for _, s := range sources {
		if err := checkTemplate(engine, s.text); err != nil {
			failed++
			var te *perrors.TemplateError
			if errors.As(err, &te) {
				err = te.WithFile(s.name)
			}
			fmt.Fprintf(stdout, "FAIL %s\n%s\n", s.name, describe(err))
			continue
		}
		fmt.Fprintf(stdout, "ok   %s\n", s.name)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d templates failed", failed, len(sources))
	}
	return nil
}

func checkTemplate(engine *mustachepp.Engine, text string) error {
	if _, err := engine.Compile(text); err != nil {
		return err
	}
	for _, section := range rewrite.Args(text, engine.Tags()) {
		if section[0] != "if" && section[0] != "unless" {
			continue
		}
		if err := expr.Validate(section[1]); err != nil {
			return err
		}
	}
	return nil
}

func describe(err error) string {
	var te *perrors.TemplateError
	if errors.As(err, &te) {
		return te.PrettyString()
	}
	return err.Error()
}

// isTerminal reports whether f is an interactive terminal.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func runServe(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("mpp serve", flag.ContinueOnError)
	flags.SetOutput(stderr)

	var (
		configPath = flags.String("config", "", "Path to config file")
		host       = flags.String("host", "", "Override listen host")
		port       = flags.Int("port", 0, "Override listen port")
		dataPath   = flags.String("data", "", "View data file (YAML or JSON)")
		noReload   = flags.Bool("no-reload", false, "Disable live reload")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configPath, getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if *host != "" {
		cfg.Serve.Host = *host
	}
	if *port != 0 {
		cfg.Serve.Port = *port
	}
	if *dataPath != "" {
		cfg.Serve.Data = *dataPath
	}
	if *noReload {
		cfg.Serve.Reload = false
	}
	if flags.NArg() > 0 {
		cfg.Serve.Root = flags.Arg(0)
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	engine, closeLog, err := newEngine(cfg, stdout, stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	srv, err := server.New(cfg, engine, stdout, stderr)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	return srv.Run(ctx)
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `mpp - mustache templates with section helpers

Usage:
  mpp [options] [template]    Render a template (stdin if none, REPL on a terminal)
  mpp --check [paths...]      Check templates and conditions without rendering
  mpp serve [options] [root]  Serve a live preview of a template directory

Options:
  --config PATH      Path to config file (default: auto-detect)
  -d, --data FILE    View data file (YAML or JSON)
  -p, --partials DIR Directory of partials
  -e TEXT            Render TEXT instead of a template file
  -o FILE            Write output to FILE
  --strict           Missing variables and partials are errors
  --check            Check templates without rendering
  --watch            Re-render when the template, data or partials change
  --version          Show version
  --help             Show this help

Serve options:
  --host HOST        Override listen host
  --port PORT        Override listen port
  --data FILE        View data file
  --no-reload        Disable live reload

Config Resolution:
  1. --config flag
  2. MUSTACHEPP_CONFIG environment variable
  3. ./mustachepp.yaml
  4. ~/.config/mustachepp/mustachepp.yaml

Examples:
  mpp -d data.yaml page.mustache        Render a page
  mpp -e '{{#each items}}{{.}} {{/each}}' -d data.yaml
  mpp --watch -d data.yaml -o out.html page.mustache
  mpp --check templates/
  mpp serve --port 3000 templates/

`)
}
