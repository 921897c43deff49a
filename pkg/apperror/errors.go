package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error into one of the escrow error families.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindStateConflict     Kind = "state_conflict"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindLedgerExecution   Kind = "ledger_execution"
	KindConfirmation      Kind = "confirmation"
	KindSync              Kind = "sync"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindRateLimited       Kind = "rate_limited"
	KindInternal          Kind = "internal"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	Kind       Kind   `json:"-"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(kind Kind, code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Kind:       kind,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(kind Kind, code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Kind:       kind,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// KindOf returns the Kind of the first AppError in err's chain,
// or KindInternal when there is none.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// ---- Validation (VAL) ----

// Validation returns a generic validation error.
func Validation(message string) *AppError {
	return New(KindValidation, "VAL_001", message, http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New(KindValidation, "VAL_002", "Amount must be greater than zero", http.StatusBadRequest)
}

func ErrOwedMismatch(message string) *AppError {
	return New(KindValidation, "VAL_003", message, http.StatusBadRequest)
}

func ErrInvalidAddress(address string) *AppError {
	return New(KindValidation, "VAL_004", fmt.Sprintf("Invalid ledger address %q", address), http.StatusBadRequest)
}

// ---- Not found (NF) ----

func ErrNotFound(entity string) *AppError {
	return New(KindNotFound, "NF_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- State conflicts (STATE) ----

// StateConflict returns a generic state-conflict error.
func StateConflict(message string) *AppError {
	return New(KindStateConflict, "STATE_001", message, http.StatusConflict)
}

func ErrWalletExistsForBill(walletID string) *AppError {
	return New(KindStateConflict, "STATE_002", fmt.Sprintf("An escrow wallet already exists for this bill: %s", walletID), http.StatusConflict)
}

func ErrInvalidWalletState(status string) *AppError {
	return New(KindStateConflict, "STATE_003", fmt.Sprintf("Operation not allowed while wallet is %s", status), http.StatusConflict)
}

func ErrParticipantAlreadyFunded() *AppError {
	return New(KindStateConflict, "STATE_004", "Participant has already funded their share", http.StatusConflict)
}

func ErrAlreadyPaidOut() *AppError {
	return New(KindStateConflict, "STATE_005", "Payout has already been made", http.StatusConflict)
}

func ErrRouletteAlreadySpun() *AppError {
	return New(KindStateConflict, "STATE_006", "Roulette has already been spun for this wallet", http.StatusConflict)
}

func ErrParticipantsNotLocked() *AppError {
	return New(KindStateConflict, "STATE_007", "All participants must have locked funds before the roulette can spin", http.StatusConflict)
}

func ErrWrongMode(mode string) *AppError {
	return New(KindStateConflict, "STATE_008", fmt.Sprintf("Operation not supported in %s mode", mode), http.StatusConflict)
}

func ErrOperationInProgress(op string) *AppError {
	return New(KindStateConflict, "STATE_009", fmt.Sprintf("Another %s is already in progress", op), http.StatusConflict)
}

func ErrConcurrentModification(err error) *AppError {
	return Wrap(KindStateConflict, "STATE_010", "Wallet was modified concurrently, retry the request", http.StatusConflict, err)
}

func ErrTransferUnresolved() *AppError {
	return New(KindStateConflict, "STATE_011", "An earlier transfer on this wallet is awaiting reconciliation", http.StatusConflict)
}

// ---- Funds (FUND) ----

func ErrInsufficientFunds() *AppError {
	return New(KindInsufficientFunds, "FUND_001", "Insufficient balance for transfer", http.StatusPaymentRequired)
}

func ErrEscrowNotFunded() *AppError {
	return New(KindInsufficientFunds, "FUND_002", "Escrow wallet is not fully funded", http.StatusPaymentRequired)
}

// ---- Ledger execution (LEDGER) ----

func ErrLedgerExecution(err error) *AppError {
	return Wrap(KindLedgerExecution, "LEDGER_001", "Ledger transfer could not be executed", http.StatusBadGateway, err)
}

func ErrCustodyUnavailable(err error) *AppError {
	return Wrap(KindLedgerExecution, "LEDGER_002", "Signing key is unavailable", http.StatusBadGateway, err)
}

// ---- Confirmation (CONFIRM) ----

func ErrTransactionFailed(ref string) *AppError {
	return New(KindConfirmation, "CONFIRM_001", fmt.Sprintf("Transaction %s failed on the ledger", ref), http.StatusUnprocessableEntity)
}

func ErrAwaitingConfirmation() *AppError {
	return New(KindConfirmation, "CONFIRM_002", "Funding transactions are still awaiting ledger confirmation", http.StatusConflict)
}

// ---- Synchronization (SYNC) ----

func ErrSyncFailed(err error) *AppError {
	return Wrap(KindSync, "SYNC_001", "Bookkeeping store synchronization failed", http.StatusServiceUnavailable, err)
}

// ---- Authentication and authorization (AUTH) ----

func ErrInvalidToken() *AppError {
	return New(KindUnauthorized, "AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden(message string) *AppError {
	return New(KindForbidden, "AUTH_002", message, http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(KindRateLimited, "RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(KindInternal, "SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap(KindInternal, "SYS_002", "Encryption service failure", http.StatusInternalServerError, err)
}

func ErrCreationRolledBack(err error) *AppError {
	return Wrap(KindInternal, "SYS_003", "Escrow creation failed and was rolled back", http.StatusServiceUnavailable, err)
}

func ErrPayoutNotRecorded(ref string, err error) *AppError {
	return Wrap(KindInternal, "SYS_004", fmt.Sprintf("Transfer %s succeeded but could not be recorded; it is held for reconciliation", ref), http.StatusInternalServerError, err)
}
