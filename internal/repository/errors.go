package repository

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInventoryExhausted = errors.New("no slots available")
	ErrInventoryOverflow  = errors.New("available slots would exceed total")
)
