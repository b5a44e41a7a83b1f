package models

import "errors"

// ErrValidation is returned if a request is malformed, e.g. contains no file
var ErrValidation = errors.New("invalid request")

// ErrUnauthorized is returned if an action is attempted by a user who does not own the session
var ErrUnauthorized = errors.New("not the owner of this session")

// ErrNotFound is returned if a session id is unknown
var ErrNotFound = errors.New("session not found")

// ErrInvalidTransition is returned if the requested status change is not allowed
var ErrInvalidTransition = errors.New("invalid status transition")
