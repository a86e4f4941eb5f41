// Package linkerr defines the errors reported by a link registry.
//
// Every failure carries a Kind which callers switch on, plus context
// (operation, handle, byte count) for logs. Lower level causes such as
// framing.ErrOverflow remain reachable through errors.Is.
package linkerr
