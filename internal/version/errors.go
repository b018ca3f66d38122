package version

import "errors"

// ErrInvalidVersion indicates a version string could not be parsed.
var ErrInvalidVersion = errors.New("invalid version string")
