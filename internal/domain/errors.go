package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrRateLimited       = errors.New("rate limited")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrQuoteUnavailable  = errors.New("quote unavailable")
	ErrMarketUnavailable = errors.New("market unavailable")
	ErrNoAdapter         = errors.New("no adapter for exchange")
	ErrCircuitOpen       = errors.New("exchange circuit open")
	ErrLockHeld          = errors.New("lock already held")
)

// AdapterError is a failure surfaced by an exchange adapter.
type AdapterError struct {
	Exchange Exchange
	Op       string
	Err      error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Exchange, e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }
