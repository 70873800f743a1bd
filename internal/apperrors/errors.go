package apperrors

import (
	"errors"
)

var (
	ErrAccountNotFound = errors.New("account not found")

	ErrInsufficientFunds = errors.New("insufficient credits")

	ErrPackageNotFound   = errors.New("credit package not found or inactive")
	ErrCodeInvalidOrUsed = errors.New("activation code invalid or already used")
	ErrCodeExists        = errors.New("activation code already exists")

	// Returned when a Credit/Debit carries an idempotency key that was
	// already recorded for the user. Callers treat it as "already applied".
	ErrDuplicateOperation = errors.New("operation with this idempotency key already applied")
)
