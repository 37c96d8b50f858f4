package gitloghtml

import (
	"fmt"
	"html/template"
	"io"
	"slices"
	"strings"
)

// Palette sets the ANSI 3-bit color codes to a colorset of RGB values.
// The ANSI standard never formalized color values and it was left to the system to determine.
// Wikipedia has a [useful table] of the common palettes.
//
// [useful table]: https://en.wikipedia.org/wiki/ANSI_escape_code#3-bit_and_4-bit
type Palette uint

const (
	CGA16   Palette = iota // Color Graphics Adapter colorset defined by IBM for the PC in 1981
	Xterm16                // Xterm terminal emulator program for the X Window System colorset from the mid-1980s
)

// Colors returns the sixteen colors of the palette, the eight normal
// colors followed by their bright variants.
func (p Palette) Colors() [16]Color {
	if p == Xterm16 {
		return Xterm()
	}
	return CGA()
}

// Color code represented as hexadecimal numeric value.
// These are often 6 digit values RRGGBB (red, green, blue),
// however, certain values can be shortened to 3 digit values.
//
// For example, the code of CGA red "aa0000" (red: aa, green: 00, blue: 00) can shortened to "a00".
type Color string

const (
	CBlack    Color = "000"    // black
	CRed      Color = "a00"    // red
	CGreen    Color = "0a0"    // green
	CBrown    Color = "a50"    // yellow
	CBlue     Color = "00a"    // blue
	CMagenta  Color = "a0a"    // magenta
	CCyan     Color = "0aa"    // cyan
	CGray     Color = "aaa"    // white
	CDarkGray Color = "555"    // bright black
	CLRed     Color = "f55"    // bright red
	CLGreen   Color = "5f5"    // bright green
	CYellow   Color = "ff5"    // bright yellow
	CLBlue    Color = "55f"    // bright blue
	CLMagenta Color = "f5f"    // bright magenta
	CLCyan    Color = "5ff"    // bright cyan
	CWhite    Color = "fff"    // bright white
	XBlack    Color = "000"    // black
	XMarron   Color = "800000" // red
	XGreen    Color = "008000" // green
	XOlive    Color = "808000" // yellow
	XNavy     Color = "000080" // blue
	XPurple   Color = "800080" // magenta
	XTeal     Color = "008080" // cyan
	XSilver   Color = "c0c0c0" // white
	XGray     Color = "808080" // bright black
	XRed      Color = "f00"    // bright red
	XLime     Color = "0f0"    // bright green
	XYellow   Color = "ff0"    // bright yellow
	XBlue     Color = "00f"    // bright blue
	XFuchsia  Color = "f5f"    // bright magenta
	XAqua     Color = "0ff"    // bright cyan
	XWhite    Color = "fff"    // bright white
)

// BG returns the CSS background-color property and color value.
func (c Color) BG() string {
	if c == "" {
		return ""
	}
	return "background-color:#" + string(c) + ";"
}

// FG returns the CSS color property and color value.
func (c Color) FG() string {
	if c == "" {
		return ""
	}
	return "color:#" + string(c) + ";"
}

func CGA() [16]Color {
	return [16]Color{
		CBlack, CRed, CGreen, CBrown, CBlue, CMagenta, CCyan, CGray,
		CDarkGray, CLRed, CLGreen, CYellow, CLBlue, CLMagenta, CLCyan, CWhite,
	}
}

func Xterm() [16]Color {
	return [16]Color{
		XBlack, XMarron, XGreen, XOlive, XNavy, XPurple, XTeal, XSilver,
		XGray, XRed, XLime, XYellow, XBlue, XFuchsia, XAqua, XWhite,
	}
}

// Bright takes a normal color of the palette and swaps it for its lighter variant.
// For example, CBlack (black) returns CDarkGray (bright black) with the CGA16 palette.
// Colors that are not one of the eight normal colors of the palette return a blank string.
func Bright(c Color, p Palette) Color {
	colors := p.Colors()
	match := slices.Index(colors[:8], c)
	if match < 0 {
		return ""
	}
	return colors[match+8]
}

// declarations holds the CSS of every class named in the SGR table,
// except for the colors which depend on the palette.
var declarations = map[string]string{
	"bold":               "font-weight:bold;",
	"faint":              "opacity:0.6;",
	"italic":             "font-style:italic;",
	"single-underline":   "text-decoration:underline;",
	"blink-slow":         "animation:blink 1.5s step-end infinite;",
	"blink-rapid":        "animation:blink 0.5s step-end infinite;",
	"image-negative":     "filter:invert(100%);",
	"conceal":            "visibility:hidden;",
	"crossed-out":        "text-decoration:line-through;",
	"default-font":       "font-family:monospace;",
	"fraktur":            "font-family:fantasy;",
	"double-underline":   "text-decoration:underline double;",
	"normal-colour":      "font-weight:normal;opacity:1;",
	"no-italic":          "font-style:normal;",
	"no-fraktur":         "font-family:monospace;",
	"no-underline":       "text-decoration:none;",
	"no-blink":           "animation:none;",
	"image-positive":     "filter:none;",
	"no-conceal":         "visibility:visible;",
	"no-crossed-out":     "text-decoration:none;",
	"default-foreground": "color:inherit;",
	"default-background": "background-color:inherit;",
}

// Stylesheet returns the CSS rules for every class that the SGR table
// can produce, using the colors of the palette. A bold foreground uses the
// bright variant of its color, like most terminals do.
func Stylesheet(p Palette) string {
	colors := p.Colors()
	var b strings.Builder
	fmt.Fprintf(&b, "pre{%s%s}\n", colors[7].FG(), colors[0].BG())
	b.WriteString("@keyframes blink{50%{visibility:hidden;}}\n")
	seen := map[string]bool{}
	for code := range ClassesCount {
		s, ok := Class(code)
		if !ok {
			continue
		}
		for _, name := range strings.Fields(s) {
			if seen[name] {
				continue
			}
			seen[name] = true
			decl := declarations[name]
			switch {
			case FG1st <= code && code <= FGEnd:
				decl = colors[code-FG1st].FG()
			case BG1st <= code && code <= BGEnd:
				decl = colors[code-BG1st].BG()
			case strings.HasPrefix(name, "alternate-font-"):
				decl = "font-family:serif;"
			}
			fmt.Fprintf(&b, ".%s{%s}\n", name, decl)
		}
	}
	for i := range FGEnd - FG1st + 1 {
		name := classes[FG1st+i]
		fmt.Fprintf(&b, ".bold.%[1]s,.bold .%[1]s{%s}\n", name, Bright(colors[i], p).FG())
	}
	return b.String()
}

var (
	preTmpl = template.Must(template.New("pre").Parse(`<pre>{{ . }}</pre>`))
	docTmpl = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{ .Title }}</title>
<style>
{{ .Style }}</style>
</head>
<body>
{{ range .Fragments }}<pre>{{ . }}</pre>
{{ end }}</body>
</html>
`))
)

// Pre writes the HTML fragment to w wrapped in a <pre> element.
// The fragment is trusted and is not escaped again.
func Pre(w io.Writer, fragment []byte) error {
	if w == nil {
		w = io.Discard
	}
	if err := preTmpl.Execute(w, template.HTML(fragment)); err != nil { //nolint:gosec
		return fmt.Errorf("pre template execute: %w", err)
	}
	return nil
}

// Document writes to w a standalone HTML page with the stylesheet of the
// palette and each fragment in its own <pre> element.
// The title is escaped, the fragments are trusted.
func Document(w io.Writer, title string, p Palette, fragments ...[]byte) error {
	if w == nil {
		w = io.Discard
	}
	data := struct {
		Title     string
		Style     template.CSS
		Fragments []template.HTML
	}{
		Title: title,
		Style: template.CSS(Stylesheet(p)), //nolint:gosec
	}
	for _, f := range fragments {
		data.Fragments = append(data.Fragments, template.HTML(f)) //nolint:gosec
	}
	if err := docTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("document template execute: %w", err)
	}
	return nil
}
