package payment

import (
	"errors"
	"strings"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrInvalidPlan     = errors.New("invalid plan or billing period combination")
	ErrSessionNotFound = errors.New("invalid payment session ID")
	ErrPaymentProvider = errors.New("payment provider error")
	ErrInvalidWebhook  = errors.New("invalid webhook payload or signature")
	ErrLedgerWrite     = errors.New("payment ledger write failed")
)

type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type ProviderErrorKind int

const (
	// ProviderRejected covers invalid requests, card and API errors.
	ProviderRejected ProviderErrorKind = iota
	// ProviderMisconfigured covers authentication and permission failures.
	ProviderMisconfigured
	// ProviderUnavailable covers connectivity failures and timeouts.
	ProviderUnavailable
)

// ProviderError is a failure reported by, or on the way to, the payment
// provider. Message is safe to show to the caller.
type ProviderError struct {
	Kind    ProviderErrorKind
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return "payment provider error: " + e.Message + ": " + e.Err.Error()
	}
	return "payment provider error: " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool {
	return target == ErrPaymentProvider
}
