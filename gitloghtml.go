// Package gitloghtml converts text containing ANSI SGR (Select Graphic Rendition)
// escape sequences, such as the colorized output of git log, into HTML markup.
//
// Each SGR sequence becomes a <span> with one CSS class per code and the bare
// reset sequence ESC[m becomes </span>. Every other byte is HTML encoded.
// No other escape sequences are interpreted. Output is flushed at the end of
// every line, so a reader of a pipe sees whole lines as they are converted.
//
// Stylesheets written for the older C git-log-html need two changes:
// the background codes 40 to 47 use the classes background-0 to background-7
// where it used foreground-0 to foreground-7, and an apostrophe is
// encoded as &#39; where it was &quot;.
package gitloghtml

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var (
	ErrReader       = errors.New("reader is nil")
	ErrUnfinished   = errors.New("ignoring unfinished command sequence")
	ErrUndefinedSGR = errors.New("undefined SGR")
	ErrByteRange    = errors.New("byte out of range")
	ErrUnbalanced   = errors.New("ignoring reset without an open span")
)

const (
	ESC = 0x1b // ESC is the escape control character code
	CSI = '['  // CSI follows ESC to introduce a control sequence
	SGR = 'm'  // SGR is the final byte of a select graphic rendition sequence
	Sep = ';'  // Sep separates the codes of a sequence

	// SequenceLength is the default number of bytes, including the final 'm',
	// read after ESC [ before a sequence is discarded as unfinished.
	SequenceLength = 12
)

const (
	openSpan  = `<span class="`
	openClose = `">`
	closeSpan = `</span>`
)

// Stats counts what happened during the last conversion.
type Stats struct {
	Sequences  int // Sequences is the number of <span> tags opened
	Resets     int // Resets is the number of </span> tags written
	Malformed  int // Malformed is the number of unfinished sequences discarded
	Unresolved int // Unresolved is the number of codes that produced no class
	Encoded    int // Encoded is the number of bytes replaced by an entity
}

// Converter holds the settings and state of a conversion.
// A Converter must not be used by more than one goroutine at a time.
type Converter struct {
	charset *charmap.Charmap
	length  int
	strict  bool
	balance bool
	diag    *log.Logger
	depth   int
	stats   Stats
	err     error // first diagnostic, returned in strict mode
	out     *bufio.Writer
}

// NewConverter creates a Converter.
//
// Length is the maximum number of bytes read after ESC [ while looking for
// the final 'm', including that byte. If length <= 0, [SequenceLength] is used.
//
// Strict stops the conversion at the first malformed sequence or undefined
// code, and returns it as an error. Otherwise these are only reported to the
// diagnostics logger.
//
// Charset decodes the literal bytes 0x80 and above into UTF-8, for example
// [charmap.CodePage437] for DOS text. A nil charset or [charmap.XUserDefined]
// copies the bytes unchanged, which is correct for UTF-8 input.
func NewConverter(length int, strict bool, charset *charmap.Charmap) *Converter {
	if length <= 0 {
		length = SequenceLength
	}
	if charset == nil {
		charset = charmap.XUserDefined
	}
	return &Converter{
		charset: charset,
		length:  length,
		strict:  strict,
		diag:    log.New(io.Discard, "", 0),
	}
}

// SetDiagnostics sets the logger that receives one line per malformed
// sequence or undefined code. A nil logger discards them.
func (c *Converter) SetDiagnostics(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	c.diag = l
}

// SetBalance toggles the tracking of open spans.
// When on, a reset with no open span writes nothing and any span still
// open at the end of the input is closed.
// When off, every reset writes </span> and the balance of the output
// depends on the input.
func (c *Converter) SetBalance(on bool) {
	c.balance = on
}

// Stats returns the counters of the last conversion.
func (c *Converter) Stats() Stats {
	return c.stats
}

// Convert reads r until the end and writes the HTML fragment to w.
// Read and write failures are returned immediately. In strict mode the
// first diagnostic is also returned.
func (c *Converter) Convert(r io.Reader, w io.Writer) error {
	if r == nil {
		return ErrReader
	}
	if w == nil {
		w = io.Discard
	}
	c.depth, c.stats, c.err = 0, Stats{}, nil
	c.out = bufio.NewWriter(w)
	defer func() { c.out = nil }()
	if err := c.scan(bufio.NewReader(r)); err != nil {
		// whatever was converted so far is still delivered
		_ = c.out.Flush()
		return err
	}
	if c.balance {
		for ; c.depth > 0; c.depth-- {
			if _, err := c.out.WriteString(closeSpan); err != nil {
				return fmt.Errorf("convert close span: %w", err)
			}
			c.stats.Resets++
		}
	}
	if err := c.out.Flush(); err != nil {
		return fmt.Errorf("convert flush: %w", err)
	}
	return nil
}

// scan is the byte loop that routes ESC [ to the sequence parser and
// everything else to the encoder.
func (c *Converter) scan(br *bufio.Reader) error {
	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("scan byte reader: %w", err)
		}
		if b != ESC {
			if err := c.encode(int(b)); err != nil {
				return err
			}
			continue
		}
		next, err := br.Peek(1)
		if err != nil && err != io.EOF {
			return fmt.Errorf("scan peek: %w", err)
		}
		if len(next) == 0 || next[0] != CSI {
			// lone ESC, or the start of a sequence that is not SGR
			if err := c.out.WriteByte(ESC); err != nil {
				return fmt.Errorf("scan write: %w", err)
			}
			continue
		}
		if _, err := br.Discard(1); err != nil {
			return fmt.Errorf("scan discard: %w", err)
		}
		if err := c.sequence(br); err != nil {
			return err
		}
		if c.strict && c.err != nil {
			return c.err
		}
	}
}

// sequence consumes the bytes that follow ESC [ up to and including the
// final 'm', and writes the matching tag.
func (c *Converter) sequence(br *bufio.Reader) error {
	buf := make([]byte, 0, c.length)
	terminated := false
	for len(buf) < c.length {
		b, err := br.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("sequence reader: %w", err)
		}
		buf = append(buf, b)
		if b == SGR {
			terminated = true
			break
		}
	}
	if !terminated {
		c.stats.Malformed++
		c.warn(fmt.Errorf("%w: %s", ErrUnfinished, buf))
		return nil
	}
	body := buf[:len(buf)-1]
	if len(body) == 0 {
		return c.reset()
	}
	if _, err := c.out.WriteString(openSpan); err != nil {
		return fmt.Errorf("sequence write: %w", err)
	}
	for _, tok := range strings.Split(string(body), string(Sep)) {
		class, err := Resolve(tok)
		if err != nil {
			c.stats.Unresolved++
			c.warn(err)
			continue
		}
		if _, err := c.out.WriteString(" " + class); err != nil {
			return fmt.Errorf("sequence write: %w", err)
		}
	}
	if _, err := c.out.WriteString(openClose); err != nil {
		return fmt.Errorf("sequence write: %w", err)
	}
	c.stats.Sequences++
	c.depth++
	return nil
}

func (c *Converter) reset() error {
	if c.balance && c.depth == 0 {
		c.warn(ErrUnbalanced)
		return nil
	}
	if _, err := c.out.WriteString(closeSpan); err != nil {
		return fmt.Errorf("reset write: %w", err)
	}
	c.stats.Resets++
	if c.depth > 0 {
		c.depth--
	}
	return nil
}

// encode writes a literal byte, or its entity when it has one.
// The value is an int so that anything outside a byte is caught.
func (c *Converter) encode(b int) error {
	if b < 0 || b > 0xff {
		c.warn(fmt.Errorf("%w: %d", ErrByteRange, b))
		return nil
	}
	if s, ok := Entity(byte(b)); ok {
		c.stats.Encoded++
		if _, err := c.out.WriteString(s); err != nil {
			return fmt.Errorf("encode write: %w", err)
		}
		return nil
	}
	if b >= utf8.RuneSelf && c.charset != charmap.XUserDefined {
		if _, err := c.out.WriteRune(c.charset.DecodeByte(byte(b))); err != nil {
			return fmt.Errorf("encode write: %w", err)
		}
		return nil
	}
	if err := c.out.WriteByte(byte(b)); err != nil {
		return fmt.Errorf("encode write: %w", err)
	}
	if b == '\n' {
		if err := c.out.Flush(); err != nil {
			return fmt.Errorf("encode flush: %w", err)
		}
	}
	return nil
}

// warn reports a recoverable problem and keeps the first one for strict mode.
func (c *Converter) warn(err error) {
	if c.err == nil {
		c.err = err
	}
	c.diag.Print(err)
}

// Buffer creates a new Buffer containing the HTML fragment of the ANSI
// encoded text found in the Reader.
//
// The other arguments are used by the [NewConverter] which documents their purpose.
func Buffer(r io.Reader, length int, strict bool, charset *charmap.Charmap) (*bytes.Buffer, error) {
	if r == nil {
		return nil, ErrReader
	}
	var b bytes.Buffer
	if err := NewConverter(length, strict, charset).Convert(r, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Bytes returns the HTML fragment of the ANSI encoded text found in the Reader.
// It uses the default sequence length and copies literal bytes unchanged.
func Bytes(r io.Reader) ([]byte, error) {
	buf, err := Buffer(r, SequenceLength, false, nil)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// String returns the HTML fragment of the ANSI encoded text found in the Reader.
// It uses the default sequence length and copies literal bytes unchanged.
func String(r io.Reader) (string, error) {
	buf, err := Buffer(r, SequenceLength, false, nil)
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteTo writes to w the HTML fragment of the ANSI encoded text found in the Reader.
//
// The return int64 is the number of bytes written.
func WriteTo(r io.Reader, w io.Writer) (int64, error) {
	buf, err := Buffer(r, SequenceLength, false, nil)
	if err != nil {
		return 0, err
	}
	i, err := buf.WriteTo(w)
	if err != nil {
		return 0, fmt.Errorf("buffer write to: %w", err)
	}
	return i, nil
}
