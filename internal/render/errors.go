package render

import "errors"

var (
	errInvalidDateValue    = errors.New("filter requires a date value")
	errUnsafeShellArgument = errors.New("shell argument contains a disallowed metacharacter")
)
