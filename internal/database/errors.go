package database

import "errors"

// ErrInvalidDatabaseURL indicates the provided database URL could not be parsed.
var ErrInvalidDatabaseURL = errors.New("invalid database URL")

// ErrConnectionFailed indicates a connection to the database could not be established.
var ErrConnectionFailed = errors.New("database connection failed")

// ErrUnsupportedProduct indicates the connected database product has no
// matching Adapter implementation.
var ErrUnsupportedProduct = errors.New("unsupported database product")
