package model

import "errors"

var (
	ErrAuthenticationRequired = errors.New("no authenticated user")
	ErrNotAuthorized          = errors.New("user is not authorized for this event")
	ErrInvalidState           = errors.New("operation contradicts current membership state")
	ErrInvalidInput           = errors.New("invalid input")
	ErrStoreFailure           = errors.New("event store failure")
	ErrEventDoesNotExist      = errors.New("event do not exist")
)
