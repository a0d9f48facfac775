package session

import "errors"

// ErrSessionNotFound is returned by Get/Initialize/Touch for an unknown or
// already-expired session id.
var ErrSessionNotFound = errors.New("session not found")

// ErrStatelessSessionIDChanges is returned by JWT.Initialize: a stateless
// token's id is a function of its claims, so initializing it produces a
// new id rather than mutating the existing one. Callers on a stateless
// backend should use JWT.InitializeToken instead.
var ErrStatelessSessionIDChanges = errors.New("stateless session initialize returns a new id; use InitializeToken")
