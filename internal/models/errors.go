package models

import "errors"

var (
	// ErrInsufficientInventory: fewer free tickets than requested. Nothing was reserved.
	ErrInsufficientInventory = errors.New("insufficient inventory")
	// ErrEmptyPurchase: settlement found no reserved items. No sale was created.
	ErrEmptyPurchase = errors.New("nothing to purchase")
	ErrValidation    = errors.New("validation failure")
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	// ErrInvalidTransition: the payment already left the pending state.
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrConflict          = errors.New("conflict")
	// ErrAmountMismatch: the carts changed after the payment was submitted.
	ErrAmountMismatch = errors.New("payment amount does not match carts")
	// ErrBusy: another cart operation for the same user holds the lock.
	ErrBusy = errors.New("operation in progress")
)
