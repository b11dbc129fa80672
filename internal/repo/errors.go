package repo

import "errors"

var (
	ErrAlertNotFound = errors.New("alert not found")
	// ErrAlertInactive is returned when an operation needs an active alert.
	ErrAlertInactive = errors.New("alert is not active")
	// ErrStorage wraps every failure of the underlying store.
	ErrStorage = errors.New("alert storage failure")
)
