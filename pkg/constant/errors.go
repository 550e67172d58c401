package constant

import "errors"

// Configuration-class errors (spec §7): reported once, the run aborts
// gracefully rather than panicking.
var (
	ErrUnsupportedInterval = errors.New("constant: interval has no storage code")
	ErrUnknownExchange     = errors.New("constant: unknown exchange in vt_symbol")
)
