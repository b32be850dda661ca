package domain

import "errors"

var (
	ErrStreamNotFound       = errors.New("stream not found")
	ErrStreamExists         = errors.New("stream already exists")
	ErrInvalidCounterBucket = errors.New("invalid counter bucket")
	ErrWriteNotApplied      = errors.New("write acknowledged but not applied")
	ErrMissingCredential    = errors.New("elevated service credential not configured")
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrNotAdmin             = errors.New("caller is not an administrator")
)
