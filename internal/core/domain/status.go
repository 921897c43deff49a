package domain

import (
	"errors"
	"fmt"
)

// SplitMode selects how a bill is settled.
type SplitMode string

const (
	SplitModeFair  SplitMode = "fair"
	SplitModeSpend SplitMode = "spend"
	SplitModeDegen SplitMode = "degen"
)

// Valid reports whether m is a known mode.
func (m SplitMode) Valid() bool {
	switch m {
	case SplitModeFair, SplitModeSpend, SplitModeDegen:
		return true
	}
	return false
}

// IsDegen reports whether m settles through the roulette.
func (m SplitMode) IsDegen() bool {
	return m == SplitModeDegen
}

// WalletStatus is the lifecycle state of an escrow wallet.
type WalletStatus string

const (
	WalletStatusActive            WalletStatus = "active"
	WalletStatusLocked            WalletStatus = "locked"
	WalletStatusCompleted         WalletStatus = "completed"
	WalletStatusCancelled         WalletStatus = "cancelled"
	WalletStatusSpinningCompleted WalletStatus = "spinning_completed"
	WalletStatusClosed            WalletStatus = "closed"
)

// AllWalletStatuses lists every wallet status.
func AllWalletStatuses() []WalletStatus {
	return []WalletStatus{
		WalletStatusActive,
		WalletStatusLocked,
		WalletStatusCompleted,
		WalletStatusCancelled,
		WalletStatusSpinningCompleted,
		WalletStatusClosed,
	}
}

var walletTransitions = map[WalletStatus][]WalletStatus{
	WalletStatusActive:            {WalletStatusLocked, WalletStatusCompleted, WalletStatusSpinningCompleted, WalletStatusCancelled},
	WalletStatusLocked:            {WalletStatusCompleted, WalletStatusSpinningCompleted, WalletStatusCancelled},
	WalletStatusSpinningCompleted: {WalletStatusCompleted, WalletStatusClosed, WalletStatusCancelled},
}

// IsTerminal returns true if no further participant mutation is allowed.
func (s WalletStatus) IsTerminal() bool {
	return s == WalletStatusCompleted || s == WalletStatusCancelled || s == WalletStatusClosed
}

// CanTransitionTo reports whether s -> next is a legal wallet transition.
func (s WalletStatus) CanTransitionTo(next WalletStatus) bool {
	for _, allowed := range walletTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParticipantStatus is the funding state of one participant.
type ParticipantStatus string

const (
	ParticipantStatusPending ParticipantStatus = "pending"
	ParticipantStatusLocked  ParticipantStatus = "locked"
	ParticipantStatusPaid    ParticipantStatus = "paid"
	ParticipantStatusFailed  ParticipantStatus = "failed"
)

// AllParticipantStatuses lists every participant status.
func AllParticipantStatuses() []ParticipantStatus {
	return []ParticipantStatus{
		ParticipantStatusPending,
		ParticipantStatusLocked,
		ParticipantStatusPaid,
		ParticipantStatusFailed,
	}
}

var participantTransitions = map[ParticipantStatus][]ParticipantStatus{
	ParticipantStatusPending: {ParticipantStatusLocked, ParticipantStatusPaid, ParticipantStatusFailed},
	ParticipantStatusLocked:  {ParticipantStatusPaid},
	ParticipantStatusFailed:  {ParticipantStatusPending},
}

// CanTransitionTo reports whether s -> next is a legal participant transition.
func (s ParticipantStatus) CanTransitionTo(next ParticipantStatus) bool {
	for _, allowed := range participantTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ErrInvalidTransition is matched by every TransitionError.
var ErrInvalidTransition = errors.New("invalid status transition")

// TransitionError describes a rejected status change.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s: %v", e.Entity, e.From, e.To, ErrInvalidTransition)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
