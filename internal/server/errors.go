// Package server declares the sentinel errors shared across the relay core.
package server

import "github.com/cockroachdb/errors"

// ErrAlreadyRegistered is returned by Registry.Register when a connection
// announces an identity after one is already bound.
var ErrAlreadyRegistered = errors.New("connection already has a bound identity")
