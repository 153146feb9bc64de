package store

import (
	"context"
	"errors"

	"glyph-wallet-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound          = errors.New("not found")
	ErrIncompletePair    = errors.New("token and nonce must be stored together")
	ErrDuplicateTransfer = errors.New("duplicate transfer")
)

// SessionStore persists the DirectProvider credential pair. Implementations
// write and clear both keys atomically; Load never returns a token without
// its nonce.
type SessionStore interface {
	Load(ctx context.Context) (models.Credentials, bool, error)
	Save(ctx context.Context, creds models.Credentials) error
	Clear(ctx context.Context) error
}

// TransferStore keeps the local activity history of submitted transfers.
type TransferStore interface {
	RecordTransfer(ctx context.Context, activity models.TransferActivity) error
	UpdateTransferStatus(ctx context.Context, hash string, status models.TransferStatus, explorerUrl string) error
	GetTransfer(ctx context.Context, hash string) (*models.TransferActivity, error)
	ListTransfers(ctx context.Context, from string, limit, offset int) ([]models.TransferActivity, error)
}
