package domain

import "errors"

// Domain rule violations. Services translate these into apperror values.
var (
	ErrParticipantNotFound      = errors.New("participant not found")
	ErrWalletNotFundable        = errors.New("wallet is not accepting funds")
	ErrParticipantFunded        = errors.New("participant already funded")
	ErrDuplicateTransaction     = errors.New("transaction already applied")
	ErrNonPositiveAmount        = errors.New("amount must be positive")
	ErrFundingNotFound          = errors.New("unconfirmed funding not found")
	ErrPayoutNotFound           = errors.New("unconfirmed payout not found")
	ErrSettlementStarted        = errors.New("settlement already started")
	ErrOperationInProgress      = errors.New("operation already in progress")
	ErrTransferUnresolved       = errors.New("an earlier transfer awaits reconciliation")
	ErrIntentNotFound           = errors.New("transfer intent not found")
	ErrUnmappedStatus           = errors.New("status has no bookkeeping mapping")
	ErrNoParticipants           = errors.New("roulette needs at least one participant")
	ErrSelectionNotReproducible = errors.New("selection could not be derived from seed")
)
