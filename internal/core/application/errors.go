package application

import "errors"

var (
	// ErrNoCurrentTick ...
	ErrNoCurrentTick = errors.New("no current tick is known yet")
	// ErrNoAddressSelected ...
	ErrNoAddressSelected = errors.New("no address is currently selected")
	// ErrInvalidAmount ...
	ErrInvalidAmount = errors.New("amount must be strictly positive")
)
