// Package anchorerr defines the typed error taxonomy shared by every layer
// of Anchor, so the daemon can map any failure to a wire response without
// string-sniffing error text.
package anchorerr

import "fmt"

// Kind is one of the closed set of error categories the system recognizes.
type Kind string

const (
	UnsupportedLanguage Kind = "unsupported_language"
	ParserInit          Kind = "parser_init"
	TreeSitterParse     Kind = "tree_sitter_parse_failed"
	IO                  Kind = "io"
	PatternNotFound     Kind = "pattern_not_found"
	InvalidInput        Kind = "invalid_input"
	Blocked             Kind = "blocked"
	LockPoisoned        Kind = "lock_poisoned"
)

// Error is a typed, wrapped error carrying a Kind for wire-protocol mapping
// and a cause for Go-native unwrapping (errors.Is / errors.As).
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error around an existing cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return "", false
	}
	return e.Kind, true
}
