package command

import (
	"strings"

	"github.com/spf13/cast"
)

// Delimiters reserved by the encoding. Arguments that need to carry them
// must be pre-escaped by the caller.
const (
	mnemonicSep = "|"
	argTerm     = ";"
)

// Encode produces the wire form of a command: the resolved mnemonic, '|',
// then every argument terminated by ';' (including the last).
func Encode(mnemonic string, args ...string) []byte {
	var b strings.Builder
	b.WriteString(Resolve(mnemonic))
	b.WriteString(mnemonicSep)
	for _, arg := range args {
		b.WriteString(arg)
		b.WriteString(argTerm)
	}
	return []byte(b.String())
}

// EncodeValues is Encode for non-string arguments; each value is rendered
// with cast.ToString, so numbers and bools encode the way the typed
// accessors on Args read them back.
func EncodeValues(mnemonic string, args ...interface{}) []byte {
	rendered := make([]string, len(args))
	for i, a := range args {
		rendered[i] = cast.ToString(a)
	}
	return Encode(mnemonic, rendered...)
}

// Decode parses a command payload. It never fails: text without a '|' is a
// bare mnemonic with no arguments, and adversarial input yields a possibly
// empty argument vector. Every well-formed argument ends in ';', so only
// the single empty segment the last terminator produces is discarded —
// arguments that are themselves empty strings survive the round trip.
func Decode(data []byte) (mnemonic string, args Args) {
	text := string(data)
	head, tail, found := strings.Cut(text, mnemonicSep)
	if !found {
		return text, nil
	}
	if tail == "" {
		return head, nil
	}

	parts := strings.Split(tail, argTerm)
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	if len(parts) == 0 {
		return head, nil
	}
	return head, Args(parts)
}

// Args is a positional argument vector with typed accessors, the way the
// original exposes its string-typed state maps.
type Args []string

// Get returns argument i, or def when i is out of range.
func (a Args) Get(i int, def string) string {
	if i < 0 || i >= len(a) {
		return def
	}
	return a[i]
}

// Int returns argument i as an int, or def when missing or unparseable.
func (a Args) Int(i int, def int) int {
	if i < 0 || i >= len(a) {
		return def
	}
	v, err := cast.ToIntE(a[i])
	if err != nil {
		return def
	}
	return v
}

// Float64 returns argument i as a float64, or def when missing or unparseable.
func (a Args) Float64(i int, def float64) float64 {
	if i < 0 || i >= len(a) {
		return def
	}
	v, err := cast.ToFloat64E(a[i])
	if err != nil {
		return def
	}
	return v
}

// Bool returns argument i as a bool, or def when missing or unparseable.
func (a Args) Bool(i int, def bool) bool {
	if i < 0 || i >= len(a) {
		return def
	}
	v, err := cast.ToBoolE(a[i])
	if err != nil {
		return def
	}
	return v
}
