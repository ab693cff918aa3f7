// Package command implements the canonical payload encoding the transport
// is designed around: a two-character mnemonic, a '|' separator, and
// semicolon-terminated positional arguments.
package command

import "fmt"

// registry maps symbolic names to two-character mnemonic codes. It is
// process-wide mutable state with no internal locking: populate it during
// initialization, before a second goroutine touches any endpoint. There is
// no deregistration.
var registry = make(map[string]string)

// Register binds a symbolic name to a two-character code. Codes of any
// other length are rejected.
func Register(name, code string) error {
	if len(code) != 2 {
		return fmt.Errorf("mnemonic code must be exactly 2 characters, got %q", code)
	}
	registry[name] = code
	return nil
}

// Resolve returns the code registered for name, or name itself when it was
// never registered.
func Resolve(name string) string {
	if code, ok := registry[name]; ok {
		return code
	}
	return name
}
