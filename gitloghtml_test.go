package gitloghtml_test

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"testing"

	gitloghtml "github.com/dhamidi/git-log-html"
	"github.com/nalgeon/be"
	"golang.org/x/text/encoding/charmap"
)

func ExampleString() {
	const ansi = "\x1b[1;34mabc1234\x1b[m - \x1b[1;32m(2 days ago)\x1b[m <a@b>"
	s, _ := gitloghtml.String(strings.NewReader(ansi))
	fmt.Printf("%q", s)
	// Output: "<span class=\" bold foreground-4\">abc1234</span> - <span class=\" bold foreground-2\">(2 days ago)</span> &lt;a@b&gt;"
}

func ExampleBytes() {
	const ansi = "\x1b[31mred\x1b[m & \x1b[42mgreen\x1b[m"
	p, _ := gitloghtml.Bytes(strings.NewReader(ansi))
	fmt.Printf("%q", p)
	// Output: "<span class=\" foreground-1\">red</span> &amp; <span class=\" background-2\">green</span>"
}

func ExampleWriteTo() {
	const ansi = "\x1b[1mHI\x1b[m"
	input := strings.NewReader(ansi)
	var b bytes.Buffer
	output := bufio.NewWriter(&b)
	cnt, _ := gitloghtml.WriteTo(input, output)
	output.Flush()
	fmt.Printf("%d bytes written\n%q", cnt, b.String())
	// Output: 29 bytes written
	// "<span class=\" bold\">HI</span>"
}

func ExampleConverter_Convert() {
	const ansi = "\x1b[99;1mbold\x1b[m"
	c := gitloghtml.NewConverter(0, false, nil)
	c.SetDiagnostics(log.New(os.Stdout, "git-log-html: ", 0))
	var b bytes.Buffer
	_ = c.Convert(strings.NewReader(ansi), &b)
	fmt.Println(b.String())
	// Output: git-log-html: undefined SGR 99
	// <span class=" bold">bold</span>
}

// convert runs a default Converter and returns the HTML and the diagnostics.
func convert(t *testing.T, c *gitloghtml.Converter, ansi string) (string, string) {
	t.Helper()
	var out, diag bytes.Buffer
	c.SetDiagnostics(log.New(&diag, "git-log-html: ", 0))
	err := c.Convert(strings.NewReader(ansi), &out)
	be.Err(t, err, nil)
	return out.String(), diag.String()
}

func TestConvert(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		ansi string
		html string
		diag string
	}{
		{"plain", "commit abc\nAuthor: me\n", "commit abc\nAuthor: me\n", ""},
		{"empty", "", "", ""},
		{"entities", `&"<>'`, "&amp;&quot;&lt;&gt;&#39;", ""},
		{"utf-8", "héllo <wörld>", "héllo &lt;wörld&gt;", ""},
		{"reset", "\x1b[1mhello\x1b[m", `<span class=" bold">hello</span>`, ""},
		{"multiple codes", "\x1b[1;31m", `<span class=" bold foreground-1">`, ""},
		{"duplicates", "\x1b[1;1m", `<span class=" bold bold">`, ""},
		{"multiple classes", "\x1b[23m", `<span class=" no-italic no-fraktur">`, ""},
		{"background", "\x1b[47;49m", `<span class=" background-7 default-background">`, ""},
		{"unknown code", "\x1b[99;1m", `<span class=" bold">`, "git-log-html: undefined SGR 99\n"},
		{"zero", "\x1b[0m", `<span class="">`, "git-log-html: undefined SGR 0\n"},
		{"empty token", "\x1b[;1m", `<span class=" bold">`, "git-log-html: undefined SGR 0\n"},
		{"separator only", "\x1b[;m", `<span class="">`, "git-log-html: undefined SGR 0\ngit-log-html: undefined SGR 0\n"},
		{"reserved", "\x1b[26m", `<span class="">`, "git-log-html: undefined SGR 26\n"},
		{"xterm colors", "\x1b[38;5;93m", `<span class="">`,
			"git-log-html: undefined SGR 38\ngit-log-html: undefined SGR 5\ngit-log-html: undefined SGR 93\n"},
		{"non numeric", "\x1b[1xm", `<span class=" bold">`, ""},
		{"no escaping inside a sequence", "\x1b[<&m", `<span class="">`, "git-log-html: undefined SGR 0\n"},
		{
			"truncated",
			"\x1b[1;2;3;4;5;6;7;8;9;10;11",
			"7;8;9;10;11",
			"git-log-html: ignoring unfinished command sequence: 1;2;3;4;5;6;\n",
		},
		{
			"truncated continues",
			"\x1b[123456789012m<",
			"m&lt;",
			"git-log-html: ignoring unfinished command sequence: 123456789012\n",
		},
		{"longest sequence", "\x1b[1;2;3;4;31m", `<span class=" bold faint italic single-underline foreground-1">`, ""},
		{"end of stream", "a\x1b[1;3", "a", "git-log-html: ignoring unfinished command sequence: 1;3\n"},
		{"end after CSI", "a\x1b[", "a", "git-log-html: ignoring unfinished command sequence: \n"},
		{"bare ESC", "a\x1bb", "a\x1bb", ""},
		{"trailing ESC", "a\x1b", "a\x1b", ""},
		{"ESC ESC [", "\x1b\x1b[1m", "\x1b" + `<span class=" bold">`, ""},
		{"other sequence", "\x1b]0;<t>\a", "\x1b]0;&lt;t&gt;\a", ""},
		{"unmatched reset", "\x1b[mx", "</span>x", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			html, diag := convert(t, gitloghtml.NewConverter(0, false, nil), tt.ansi)
			be.Equal(t, html, tt.html)
			be.Equal(t, diag, tt.diag)
		})
	}
}

func TestConvert_length(t *testing.T) {
	t.Parallel()
	c := gitloghtml.NewConverter(4, false, nil)
	html, diag := convert(t, c, "\x1b[1;31mx\x1b[1;3mx")
	be.Equal(t, html, `mx<span class=" bold italic">x`)
	be.Equal(t, diag, "git-log-html: ignoring unfinished command sequence: 1;31\n")
	be.Equal(t, c.Stats(), gitloghtml.Stats{Sequences: 1, Malformed: 1})
}

func TestConvert_stats(t *testing.T) {
	t.Parallel()
	c := gitloghtml.NewConverter(0, false, nil)
	_, _ = convert(t, c, "\x1b[1;99m<a>\x1b[m\x1b[1;2;3;4;5;6;7")
	be.Equal(t, c.Stats(), gitloghtml.Stats{
		Sequences:  1,
		Resets:     1,
		Malformed:  1,
		Unresolved: 1,
		Encoded:    2,
	})
	// counters restart with each conversion
	_, _ = convert(t, c, "plain")
	be.Equal(t, c.Stats(), gitloghtml.Stats{})
}

func TestConvert_strict(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	c := gitloghtml.NewConverter(0, true, nil)
	err := c.Convert(strings.NewReader("ab\x1b[1;2;3;4;5;6;7mcd"), &out)
	be.Err(t, err, gitloghtml.ErrUnfinished)
	be.Equal(t, out.String(), "ab")

	out.Reset()
	err = c.Convert(strings.NewReader("\x1b[1;99mx"), &out)
	be.Err(t, err, gitloghtml.ErrUndefinedSGR)
	be.Equal(t, err.Error(), "undefined SGR 99")
	be.Equal(t, out.String(), `<span class=" bold">`)

	out.Reset()
	err = c.Convert(strings.NewReader("\x1b[1mx\x1b[m"), &out)
	be.Err(t, err, nil)
	be.Equal(t, out.String(), `<span class=" bold">x</span>`)
}

func TestConvert_balance(t *testing.T) {
	t.Parallel()
	c := gitloghtml.NewConverter(0, false, nil)
	c.SetBalance(true)
	html, diag := convert(t, c, "\x1b[mx\x1b[1my\x1b[31mz")
	be.Equal(t, html, `x<span class=" bold">y<span class=" foreground-1">z</span></span>`)
	be.Equal(t, diag, "git-log-html: ignoring reset without an open span\n")
	be.Equal(t, c.Stats().Resets, 2)

	html, diag = convert(t, c, "\x1b[1mx\x1b[my\x1b[m")
	be.Equal(t, html, `<span class=" bold">x</span>y`)
	be.Equal(t, diag, "git-log-html: ignoring reset without an open span\n")

	c = gitloghtml.NewConverter(0, true, nil)
	c.SetBalance(true)
	err := c.Convert(strings.NewReader("\x1b[m"), &bytes.Buffer{})
	be.Err(t, err, gitloghtml.ErrUnbalanced)
}

func TestConvert_charset(t *testing.T) {
	t.Parallel()
	const ansi = "\x1b[34;47m\xae<\xaf\x1b[m"
	buf, err := gitloghtml.Buffer(strings.NewReader(ansi), 0, false, charmap.CodePage437)
	be.Err(t, err, nil)
	be.Equal(t, buf.String(), `<span class=" foreground-4 background-7">«&lt;»</span>`)

	buf, err = gitloghtml.Buffer(strings.NewReader(ansi), 0, false, charmap.ISO8859_1)
	be.Err(t, err, nil)
	be.Equal(t, buf.String(), `<span class=" foreground-4 background-7">®&lt;¯</span>`)

	// raw bytes are copied without a charset
	buf, err = gitloghtml.Buffer(strings.NewReader(ansi), 0, false, nil)
	be.Err(t, err, nil)
	be.Equal(t, buf.String(), "<span class=\" foreground-4 background-7\">\xae&lt;\xaf</span>")
}

func TestConvert_errors(t *testing.T) {
	t.Parallel()
	c := gitloghtml.NewConverter(0, false, nil)
	be.Err(t, c.Convert(nil, &bytes.Buffer{}), gitloghtml.ErrReader)
	_, err := gitloghtml.String(nil)
	be.Err(t, err, gitloghtml.ErrReader)

	err = c.Convert(strings.NewReader("text"), failWriter{})
	be.Err(t, err, errWrite)

	err = c.Convert(failReader{}, &bytes.Buffer{})
	be.Err(t, err, errRead)
}

func TestConvert_lines(t *testing.T) {
	t.Parallel()
	var w recordWriter
	c := gitloghtml.NewConverter(0, false, nil)
	err := c.Convert(strings.NewReader("\x1b[1ma\x1b[m\n<b>\nc"), &w)
	be.Err(t, err, nil)
	be.Equal(t, w.writes, []string{
		"<span class=\" bold\">a</span>\n",
		"&lt;b&gt;\n",
		"c",
	})
}

func TestPlainRoundTrip(t *testing.T) {
	t.Parallel()
	var b strings.Builder
	for i := range 256 {
		switch byte(i) {
		case gitloghtml.ESC, '&', '"', '<', '>', '\'':
			continue
		}
		b.WriteByte(byte(i))
	}
	in := strings.Repeat(b.String(), 20)
	s, err := gitloghtml.String(strings.NewReader(in))
	be.Err(t, err, nil)
	be.Equal(t, s, in)
	// a second pass changes nothing
	s, err = gitloghtml.String(strings.NewReader(s))
	be.Err(t, err, nil)
	be.Equal(t, s, in)
}

func TestResolve(t *testing.T) {
	t.Parallel()
	tests := []struct {
		token string
		class string
		err   string
	}{
		{"1", "bold", ""},
		{"31", "foreground-1", ""},
		{" 31", "foreground-1", ""},
		{"+4", "single-underline", ""},
		{"1x", "bold", ""},
		{"01", "bold", ""},
		{"23", "no-italic no-fraktur", ""},
		{"49", "default-background", ""},
		{"", "", "undefined SGR 0"},
		{"x", "", "undefined SGR 0"},
		{"-1", "", "undefined SGR -1"},
		{"26", "", "undefined SGR 26"},
		{"38", "", "undefined SGR 38"},
		{"48", "", "undefined SGR 48"},
		{"50", "", "undefined SGR 50"},
		{"99999999999999999999", "", "undefined SGR 16777216"},
	}
	for _, tt := range tests {
		class, err := gitloghtml.Resolve(tt.token)
		be.Equal(t, class, tt.class)
		if tt.err == "" {
			be.Err(t, err, nil)
			continue
		}
		be.Err(t, err, gitloghtml.ErrUndefinedSGR)
		be.Equal(t, err.Error(), tt.err)
	}
}

func TestClass(t *testing.T) {
	t.Parallel()
	for _, code := range []int{-1, 0, gitloghtml.Reserved, gitloghtml.SetFG, gitloghtml.SetBG, gitloghtml.ClassesCount} {
		_, ok := gitloghtml.Class(code)
		be.Equal(t, ok, false)
	}
	defined := 0
	for code := range gitloghtml.ClassesCount {
		if _, ok := gitloghtml.Class(code); ok {
			defined++
		}
	}
	be.Equal(t, defined, gitloghtml.ClassesCount-4)
}

func TestEntity(t *testing.T) {
	t.Parallel()
	want := map[byte]string{'&': "&amp;", '"': "&quot;", '<': "&lt;", '>': "&gt;", '\'': "&#39;"}
	for i := range 256 {
		s, ok := gitloghtml.Entity(byte(i))
		w, special := want[byte(i)]
		be.Equal(t, ok, special)
		be.Equal(t, s, w)
	}
}

var (
	errWrite = errors.New("write failed")
	errRead  = errors.New("read failed")
)

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errWrite }

type failReader struct{}

func (failReader) Read([]byte) (int, error) { return 0, errRead }

// recordWriter keeps every Write separately.
type recordWriter struct {
	writes []string
}

func (w *recordWriter) Write(p []byte) (int, error) {
	w.writes = append(w.writes, string(p))
	return len(p), nil
}
