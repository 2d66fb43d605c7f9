package domain

import "errors"

var (
	// ErrAccountNotFound indicates the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrTransactionNotFound indicates the transaction does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrPaymentMethodNotFound indicates the payment method does not exist.
	ErrPaymentMethodNotFound = errors.New("payment method not found")
	// ErrSameAccount indicates source and destination are the same account.
	ErrSameAccount = errors.New("source and destination accounts must be different")
	// ErrInvalidAmount indicates a non-positive amount or one with more
	// precision than the ledger's two-decimal unit.
	ErrInvalidAmount = errors.New("amount must be positive with at most two decimal places")
	// ErrEmailExists indicates the email is already taken by another account.
	ErrEmailExists = errors.New("account with this email already exists")
	// ErrTokenExists indicates the payment token is already registered.
	ErrTokenExists = errors.New("payment method with this token already exists")
)
