package resolver

import "errors"

// ErrResolve indicates a candidate script could not be parsed or read.
var ErrResolve = errors.New("resolving migration candidate")

// ErrDuplicateVersion indicates two resolved migrations share a version.
var ErrDuplicateVersion = errors.New("duplicate migration version")

// ErrPlaceholderUnresolved indicates a script references a placeholder with
// no configured value.
var ErrPlaceholderUnresolved = errors.New("unresolved placeholder")
