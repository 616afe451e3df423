// Package repl is an interactive prompt for trying templates against a view.
package repl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"github.com/sambeau/mustachepp"
	perrors "github.com/sambeau/mustachepp/pkg/errors"
	"github.com/sambeau/mustachepp/pkg/loader"
	"github.com/sambeau/mustachepp/pkg/mustache"
)

const PROMPT = ">> "
const CONTINUATION_PROMPT = ".. "

const LOGO = `
█▀▄▀█ █▀█ █▀█
█░▀░█ █▀▀ █▀▀ `

var commands = []string{":help", ":data", ":set", ":view", ":partials", ":partial", ":helpers", ":eval", ":clear"}

// REPL holds the view and partials that input is rendered against.
type REPL struct {
	engine   *mustachepp.Engine
	out      io.Writer
	view     any
	partials map[string]string
}

// New returns a REPL that renders with engine and writes to out.
func New(engine *mustachepp.Engine, out io.Writer) *REPL {
	return &REPL{engine: engine, out: out, partials: map[string]string{}}
}

// SetView replaces the view.
func (r *REPL) SetView(v any) { r.view = v }

// SetPartials replaces the partials.
func (r *REPL) SetPartials(p map[string]string) {
	r.partials = map[string]string{}
	for name, text := range p {
		r.partials[name] = text
	}
}

// Start runs the REPL with line editing, history, and tab completion
func Start(r *REPL, version string) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(r.Complete)

	historyFile := filepath.Join(os.TempDir(), ".mpp_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintf(r.out, "%s", LOGO)
	fmt.Fprintln(r.out, "v", version)
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Type a template to render it, 'exit' or Ctrl+D to quit")
	fmt.Fprintln(r.out, "Type ':help' for REPL commands")
	fmt.Fprintln(r.out, "")

	var inputBuffer strings.Builder
	for {
		prompt := PROMPT
		if inputBuffer.Len() > 0 {
			prompt = CONTINUATION_PROMPT
		}
		input, err := line.Prompt(prompt)
		if err != nil {
			if err == liner.ErrPromptAborted {
				if inputBuffer.Len() > 0 {
					fmt.Fprintln(r.out, "^C (cleared)")
				} else {
					fmt.Fprintln(r.out, "^C")
				}
				inputBuffer.Reset()
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(r.out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(r.out, "Error reading input: %v\n", err)
			continue
		}

		if inputBuffer.Len() > 0 {
			inputBuffer.WriteString("\n")
		}
		inputBuffer.WriteString(input)

		full := inputBuffer.String()
		if !strings.HasPrefix(strings.TrimSpace(full), ":") && needsMoreInput(full, r.engine.Tags()) {
			continue
		}
		inputBuffer.Reset()

		if strings.TrimSpace(full) != "" {
			line.AppendHistory(full)
		}
		if r.Execute(full) {
			fmt.Fprintln(r.out, "Goodbye!")
			return
		}
	}
}

// Execute runs a command or renders a template, writing the result. It
// reports true when the input asks to quit.
func (r *REPL) Execute(input string) bool {
	trimmed := strings.TrimSpace(input)
	switch {
	case trimmed == "":
		return false
	case trimmed == "exit" || trimmed == "quit":
		return true
	case strings.HasPrefix(trimmed, ":"):
		r.command(trimmed)
		return false
	}

	out, err := r.engine.Render(input, r.view, r.partials)
	if err != nil {
		printError(r.out, err)
		return false
	}
	io.WriteString(r.out, out)
	if !strings.HasSuffix(out, "\n") {
		io.WriteString(r.out, "\n")
	}
	return false
}

// command handles REPL meta-commands that start with ':'
func (r *REPL) command(input string) {
	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(r.out, "REPL Commands:")
		fmt.Fprintln(r.out, "  :help, :h, :?          Show this help")
		fmt.Fprintln(r.out, "  :data <file>           Load the view from a YAML or JSON file")
		fmt.Fprintln(r.out, "  :set <yaml>            Set the view inline, e.g. :set {name: Ann}")
		fmt.Fprintln(r.out, "  :view                  Show the view")
		fmt.Fprintln(r.out, "  :partials <dir>        Load partials from a directory")
		fmt.Fprintln(r.out, "  :partial <name> <text> Define a partial")
		fmt.Fprintln(r.out, "  :helpers               List section helpers")
		fmt.Fprintln(r.out, "  :eval <expression>     Evaluate a condition against the view")
		fmt.Fprintln(r.out, "  :clear                 Clear the view and partials")
		fmt.Fprintln(r.out, "  exit, quit             Exit the REPL")

	case ":data":
		v, err := loader.LoadData(arg)
		if err != nil {
			printError(r.out, err)
			return
		}
		r.view = v
		fmt.Fprintf(r.out, "Loaded %s\n", arg)

	case ":set":
		v, err := loader.DecodeData([]byte(arg))
		if err != nil {
			fmt.Fprintf(r.out, "Invalid view: %v\n", err)
			return
		}
		r.view = v
		fmt.Fprintln(r.out, "OK")

	case ":view":
		if r.view == nil {
			fmt.Fprintln(r.out, "(no view)")
			return
		}
		fmt.Fprintln(r.out, mustache.Stringify(r.view))

	case ":partials":
		if arg == "" {
			names := make([]string, 0, len(r.partials))
			for name := range r.partials {
				names = append(names, name)
			}
			sort.Strings(names)
			if len(names) == 0 {
				fmt.Fprintln(r.out, "(no partials)")
			}
			for _, name := range names {
				fmt.Fprintf(r.out, "  %s\n", name)
			}
			return
		}
		p, err := loader.LoadPartials(arg, []string{"mustache", "html", "tpl"})
		if err != nil {
			printError(r.out, err)
			return
		}
		for name, text := range p {
			r.partials[name] = text
		}
		fmt.Fprintf(r.out, "Loaded %d partials\n", len(p))

	case ":partial":
		name, text, ok := strings.Cut(arg, " ")
		if !ok || name == "" {
			fmt.Fprintln(r.out, "Usage: :partial <name> <text>")
			return
		}
		r.partials[name] = text
		fmt.Fprintln(r.out, "OK")

	case ":helpers":
		for _, name := range r.engine.Helpers().Names() {
			fmt.Fprintf(r.out, "  %s\n", name)
		}

	case ":eval":
		ok, err := r.engine.Helpers().Evaluator.Evaluate(r.engine.Core().NewContext(r.view), arg)
		if err != nil {
			printError(r.out, err)
			return
		}
		fmt.Fprintln(r.out, ok)

	case ":clear":
		r.view = nil
		r.partials = map[string]string{}
		fmt.Fprintln(r.out, "Cleared")

	default:
		fmt.Fprintf(r.out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}

// sectionOpen matches the start of a section tag, for completing helper
// names.
var sectionOpen = regexp.MustCompile(`[#^/]([_$\-0-9A-Za-z.]*)$`)

// Complete returns whole-line completions for line: REPL commands at the
// start of a line and helper names after a section opener.
func (r *REPL) Complete(line string) []string {
	if strings.HasPrefix(line, ":") && !strings.Contains(line, " ") {
		var matches []string
		for _, c := range commands {
			if strings.HasPrefix(c, line) {
				matches = append(matches, c)
			}
		}
		return matches
	}

	open := r.engine.Tags().Open()
	i := strings.LastIndex(line, open)
	if i < 0 {
		return nil
	}
	m := sectionOpen.FindStringSubmatch(line[i+len(open):])
	if m == nil {
		return nil
	}
	prefix := line[:len(line)-len(m[1])]

	var matches []string
	for _, name := range r.engine.Helpers().Names() {
		if strings.HasPrefix(name, m[1]) {
			matches = append(matches, prefix+name)
		}
	}
	return matches
}

// needsMoreInput reports whether input has sections that are not yet
// closed, so the prompt should continue on the next line.
func needsMoreInput(input string, tags mustache.Tags) bool {
	open := regexp.QuoteMeta(tags.Open())
	re := regexp.MustCompile(open + `\s*([#^/])`)
	depth := 0
	for _, m := range re.FindAllStringSubmatch(input, -1) {
		if m[1] == "/" {
			depth--
		} else {
			depth++
		}
	}
	return depth > 0
}

func printError(out io.Writer, err error) {
	var te *perrors.TemplateError
	if errors.As(err, &te) {
		io.WriteString(out, te.PrettyString())
		io.WriteString(out, "\n")
		return
	}
	fmt.Fprintf(out, "Error: %v\n", err)
}
