package gitloghtml

import (
	"fmt"
)

const (
	Bold         = 1
	Reserved     = 26 // Reserved is not defined by ECMA-48
	FG1st        = 30
	FGEnd        = 37
	SetFG        = 38 // SetFG is xterm 256 and true color, which are not supported
	DefaultFG    = 39
	BG1st        = 40
	BGEnd        = 47
	SetBG        = 48 // SetBG is xterm 256 and true color, which are not supported
	DefaultBG    = 49
	ClassesCount = 50 // ClassesCount is the size of the SGR to CSS class table
)

// classes maps SGR codes to CSS class names. An empty entry has no class.
// Some entries hold more than one space separated class.
var classes = [ClassesCount]string{
	1:  "bold",
	2:  "faint",
	3:  "italic",
	4:  "single-underline",
	5:  "blink-slow",
	6:  "blink-rapid",
	7:  "image-negative",
	8:  "conceal",
	9:  "crossed-out",
	10: "default-font",
	11: "alternate-font-1",
	12: "alternate-font-2",
	13: "alternate-font-3",
	14: "alternate-font-4",
	15: "alternate-font-5",
	16: "alternate-font-6",
	17: "alternate-font-7",
	18: "alternate-font-8",
	19: "alternate-font-9",
	20: "fraktur",
	21: "double-underline",
	22: "normal-colour",
	23: "no-italic no-fraktur",
	24: "no-underline",
	25: "no-blink",
	27: "image-positive",
	28: "no-conceal",
	29: "no-crossed-out",
	30: "foreground-0",
	31: "foreground-1",
	32: "foreground-2",
	33: "foreground-3",
	34: "foreground-4",
	35: "foreground-5",
	36: "foreground-6",
	37: "foreground-7",
	39: "default-foreground",
	40: "background-0",
	41: "background-1",
	42: "background-2",
	43: "background-3",
	44: "background-4",
	45: "background-5",
	46: "background-6",
	47: "background-7",
	49: "default-background",
}

// entities are the replacements for the bytes that are unsafe in HTML text
// and attribute values.
var entities = [256]string{
	'&':  "&amp;",
	'"':  "&quot;",
	'<':  "&lt;",
	'>':  "&gt;",
	'\'': "&#39;",
}

// Class returns the CSS class string of the SGR code.
// It returns false for codes outside the table and for the codes
// without a class, which are 0, [Reserved], [SetFG] and [SetBG].
func Class(code int) (string, bool) {
	if code < Bold || code >= ClassesCount {
		return "", false
	}
	s := classes[code]
	return s, s != ""
}

// Entity returns the HTML entity that replaces b, if there is one.
func Entity(b byte) (string, bool) {
	s := entities[b]
	return s, s != ""
}

// Resolve returns the CSS class string for a single code of an SGR sequence.
//
// The token is read the way C's atoi does: leading spaces, an optional sign
// and then as many digits as there are. Anything else stops the number, so
// "1x" is 1 and both "" and "x" are 0.
func Resolve(token string) (string, error) {
	code := atoi(token)
	s, ok := Class(code)
	if !ok {
		return "", fmt.Errorf("%w %d", ErrUndefinedSGR, code)
	}
	return s, nil
}

// atoi parses the leading decimal number of s, ignoring the rest.
// Values too large for a code saturate rather than wrap.
func atoi(s string) int {
	const limit = 1 << 24
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	n := 0
	for ; i < len(s) && '0' <= s[i] && s[i] <= '9'; i++ {
		n = min(n*10+int(s[i]-'0'), limit) //nolint:mnd
	}
	if neg {
		return -n
	}
	return n
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
