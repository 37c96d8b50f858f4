// Package cli implements the git-log-html command line.
package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	gitloghtml "github.com/dhamidi/git-log-html"
	"github.com/dhamidi/git-log-html/internal/gitlog"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// Name prefixes every diagnostic line.
const Name = "git-log-html"

// Version is the git-log-html version.
var Version = [...]int{1, 0, 0}

var (
	helpOut io.Writer = os.Stderr
	stdout  io.Writer = os.Stdout
	stdin   io.Reader = os.Stdin
	diagOut io.Writer = os.Stderr
)

const desc = `Converts the colorized output of git log, or of any other command, to HTML.

With no file, the history of the repository in --cwd is converted.
With -, standard input is read. Several files are converted independently
and written one after the other.
`

type app struct {
	fs       *flag.FlagSet
	help     bool
	verbose  bool
	version  bool
	length   int
	strict   bool
	balance  bool
	charset  string
	palette  string
	document bool
	title    string
	cwd      string
}

func (a *app) init(n string) {
	a.fs = flag.NewFlagSet(n, flag.ContinueOnError)
	a.fs.SetOutput(helpOut)
	a.fs.BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output")
	a.fs.BoolVarP(&a.help, "help", "h", false, "Prints help")
	a.fs.BoolVar(&a.version, "version", false, "Prints the version")
	a.fs.IntVarP(&a.length, "length", "n", gitloghtml.SequenceLength, "maximum bytes of an escape sequence, including the final 'm'")
	a.fs.BoolVar(&a.strict, "strict", false, "fail on the first malformed sequence or undefined code")
	a.fs.BoolVar(&a.balance, "balance", false, "drop unmatched resets and close the spans left open")
	a.fs.StringVar(&a.charset, "charset", "", "IANA name of a single byte charset to decode the input from, e.g. IBM437")
	a.fs.StringVar(&a.palette, "palette", "cga", "colors of the --document stylesheet, cga or xterm")
	a.fs.BoolVar(&a.document, "document", false, "write a complete HTML page with a stylesheet")
	a.fs.StringVar(&a.title, "title", "git log", "title of the --document page")
	a.fs.StringVarP(&a.cwd, "cwd", "C", ".", "directory of the repository when no file is given")
	a.fs.Usage = func() {
		fmt.Fprintf(helpOut, "Usage of %s:\n\n%s\n", n, desc)
		a.fs.PrintDefaults()
	}
}

// Main implements git-log-html executable.
func Main(ctx context.Context, args []string) error {
	a := app{}
	a.init(Name)
	if len(args) > 0 {
		args = args[1:]
	}
	if err := a.fs.Parse(args); err != nil {
		return err
	}
	if a.help {
		a.fs.Usage()
		return flag.ErrHelp
	}
	if a.version {
		_, err := fmt.Fprintf(stdout, "%s v%d.%d.%d\n", Name, Version[0], Version[1], Version[2])
		return err
	}
	if !a.verbose {
		log.SetOutput(io.Discard)
	}
	cm, err := lookupCharset(a.charset)
	if err != nil {
		return err
	}
	pal, err := parsePalette(a.palette)
	if err != nil {
		return err
	}
	files := a.fs.Args()
	if len(files) == 0 {
		files = []string{""}
	}
	if err := checkShared(files); err != nil {
		return err
	}
	if len(files) == 1 && !a.document {
		return a.stream(ctx, files[0], cm)
	}
	fragments, err := a.convertAll(ctx, files, cm)
	if err != nil {
		return err
	}
	if a.document {
		return gitloghtml.Document(stdout, a.title, pal, fragments...)
	}
	for _, f := range fragments {
		if err := gitloghtml.Pre(stdout, f); err != nil {
			return err
		}
	}
	return nil
}

// stream converts a single input straight to the output.
func (a *app) stream(ctx context.Context, name string, cm *charmap.Charmap) error {
	if _, err := io.WriteString(stdout, "<pre>"); err != nil {
		return err
	}
	if err := a.convert(ctx, name, cm, stdout, diagnostics(diagOut, Name)); err != nil {
		return err
	}
	_, err := io.WriteString(stdout, "</pre>")
	return err
}

// convertAll converts every input concurrently, each with its own
// Converter. Results and diagnostics keep the order of the inputs.
func (a *app) convertAll(ctx context.Context, names []string, cm *charmap.Charmap) ([][]byte, error) {
	outs := make([]bytes.Buffer, len(names))
	diags := make([]bytes.Buffer, len(names))
	var eg errgroup.Group
	for i, name := range names {
		eg.Go(func() error {
			prefix := Name
			if len(names) > 1 {
				prefix += ": " + displayName(name)
			}
			return a.convert(ctx, name, cm, &outs[i], diagnostics(&diags[i], prefix))
		})
	}
	err := eg.Wait()
	for i := range diags {
		if _, werr := diags[i].WriteTo(diagOut); werr != nil && err == nil {
			err = werr
		}
	}
	if err != nil {
		return nil, err
	}
	fragments := make([][]byte, len(outs))
	for i := range outs {
		fragments[i] = outs[i].Bytes()
	}
	return fragments, nil
}

// convert opens the named input and converts it to w.
func (a *app) convert(ctx context.Context, name string, cm *charmap.Charmap, w io.Writer, diag *log.Logger) error {
	r, err := open(ctx, name, a.cwd)
	if err != nil {
		return err
	}
	c := gitloghtml.NewConverter(a.length, a.strict, cm)
	c.SetDiagnostics(diag)
	c.SetBalance(a.balance)
	err = c.Convert(r, w)
	if cerr := r.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%s: %w", displayName(name), err)
	}
	s := c.Stats()
	log.Printf("%s: %d spans, %d resets, %d entities, %d malformed sequences, %d undefined codes",
		displayName(name), s.Sequences, s.Resets, s.Encoded, s.Malformed, s.Unresolved)
	return nil
}

// open returns the input named on the command line: the git history for
// the empty name, standard input for "-", or a file.
func open(ctx context.Context, name, cwd string) (io.ReadCloser, error) {
	switch name {
	case "":
		return gitlog.Open(ctx, cwd)
	case "-":
		return io.NopCloser(&ctxReader{ctx: ctx, r: stdin}), nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("fopen: %w", err)
	}
	return struct {
		io.Reader
		io.Closer
	}{&ctxReader{ctx: ctx, r: f}, f}, nil
}

// ctxReader stops reading once ctx is canceled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

var errShared = errors.New("can only be converted once")

// checkShared rejects standard input or the git history named twice: a
// stream is converted by a single Converter from start to end.
func checkShared(names []string) error {
	seen := map[string]bool{}
	for _, name := range names {
		if name != "" && name != "-" {
			continue
		}
		if seen[name] {
			return fmt.Errorf("%s: %w", displayName(name), errShared)
		}
		seen[name] = true
	}
	return nil
}

func displayName(name string) string {
	switch name {
	case "":
		return "git log"
	case "-":
		return "stdin"
	}
	return name
}

// diagnostics returns the logger of the malformed sequences and undefined
// codes. The prefix is highlighted when w is a terminal.
func diagnostics(w io.Writer, prefix string) *log.Logger {
	if f, ok := w.(*os.File); ok && os.Getenv("TERM") != "dumb" && isatty.IsTerminal(f.Fd()) {
		return log.New(colorable.NewColorable(f), "\x1b[33;1m"+prefix+"\x1b[0m: ", 0)
	}
	return log.New(w, prefix+": ", 0)
}

func lookupCharset(name string) (*charmap.Charmap, error) {
	if name == "" {
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("--charset %q: %w", name, err)
	}
	cm, ok := enc.(*charmap.Charmap)
	if !ok {
		return nil, fmt.Errorf("--charset %q: %w", name, errNotSingleByte)
	}
	return cm, nil
}

var errNotSingleByte = errors.New("not a single byte charset")

func parsePalette(name string) (gitloghtml.Palette, error) {
	switch strings.ToLower(name) {
	case "cga":
		return gitloghtml.CGA16, nil
	case "xterm":
		return gitloghtml.Xterm16, nil
	}
	return 0, fmt.Errorf("--palette %q: must be cga or xterm", name)
}
