package domain

import "errors"

// Errors returned by the ledger, the reward rules and the stores. Handlers match them with errors.Is.
var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrNotFound             = errors.New("record not found")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrOutOfStock           = errors.New("out of stock")
	ErrAlreadyClaimedToday  = errors.New("already claimed today")
	ErrAlreadyClaimed       = errors.New("already claimed")
	ErrTaskAlreadyCompleted = errors.New("task already completed")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrStorageConflict      = errors.New("storage conflict")
	ErrDuplicateOperation   = errors.New("operation already processed")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidReferralCode  = errors.New("invalid referral code")
	ErrInvalidState         = errors.New("invalid state transition")
)
