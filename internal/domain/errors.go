package domain

import "errors"

var (
	ErrAuth             = errors.New("provider authentication failed")
	ErrUnauthorized     = errors.New("provider rejected the access token")
	ErrFetch            = errors.New("provider request failed")
	ErrFileIO           = errors.New("temporary file error")
	ErrEntryNotFound    = errors.New("entry not found in current results")
	ErrNoSession        = errors.New("no active session")
	ErrNoPrevPage       = errors.New("already on the first page")
	ErrNoNextPage       = errors.New("already on the last page")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrInvalidCommand   = errors.New("invalid command")
)
