package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrSourceTimeout     = errors.New("source fetch timed out")
	ErrRefreshInProgress = errors.New("refresh already in progress")
)
