package core

import "errors"

var (
	ErrStoreUnavailable  = errors.New("history store unavailable")
	ErrUsernameTaken     = errors.New("username taken")
	ErrNotRegistered     = errors.New("connection not registered")
	ErrAlreadyRegistered = errors.New("connection already registered")
	ErrConnectionClosed  = errors.New("connection closed")
	ErrEmptyMessage      = errors.New("empty message")
)
