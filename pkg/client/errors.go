package client

import "errors"

// ErrInvalidConfig wraps configuration range and shape violations.
// These fail synchronously at construction and never trigger a network
// call.
var ErrInvalidConfig = errors.New("invalid client configuration")
