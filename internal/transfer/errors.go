package transfer

import "errors"

// Inline errors shown on the amount screen. The text is user-facing.
var (
	ErrEstimateGas     = errors.New("Failed to estimate gas")
	ErrInsufficientGas = errors.New("Insufficient gas balance")
	ErrSendFailed      = errors.New("Failed to send transaction")
	ErrRequestRejected = errors.New("Request rejected or failed")
	ErrMaxBalance      = errors.New("MAX_BALANCE_ERROR")
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidAddress = errors.New("invalid recipient address")
	ErrInvalidState   = errors.New("operation not allowed in current step")
	ErrSendDisabled   = errors.New("send is not available")
	ErrNoToken        = errors.New("no token selected")
	ErrNoAccount      = errors.New("no account to send from")
)
