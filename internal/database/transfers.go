package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"glyph-wallet-go/internal/models"
	"glyph-wallet-go/internal/store"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

func (s *Service) RecordTransfer(ctx context.Context, activity models.TransferActivity) error {
	if activity.Id == "" {
		activity.Id = uuid.New().String()
	}
	now := time.Now().UTC()
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = now
	}

	zap.L().Info("Recording transfer",
		zap.String("hash", activity.Hash),
		zap.String("from", activity.From),
		zap.String("to", activity.To),
		zap.String("token", activity.Token),
		zap.String("amount_wei", activity.AmountWei))

	_, err := s.db.ExecContext(ctx, queryInsertTransfer,
		activity.Id,
		strings.ToLower(activity.Hash),
		activity.ChainId,
		strings.ToLower(activity.From),
		strings.ToLower(activity.To),
		activity.Token,
		activity.AmountWei,
		string(activity.Status),
		activity.ExplorerUrl,
		activity.CreatedAt,
		now,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return store.ErrDuplicateTransfer
		}
		return fmt.Errorf("unable to insert transfer: %w", err)
	}
	return nil
}

func (s *Service) UpdateTransferStatus(ctx context.Context, hash string, status models.TransferStatus, explorerUrl string) error {
	res, err := s.db.ExecContext(ctx, queryUpdateTransferStatus,
		string(status), explorerUrl, explorerUrl, time.Now().UTC(), strings.ToLower(hash))
	if err != nil {
		return fmt.Errorf("unable to update transfer status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to read affected rows: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	zap.L().Info("Transfer status updated",
		zap.String("hash", hash),
		zap.String("status", string(status)))
	return nil
}

func (s *Service) GetTransfer(ctx context.Context, hash string) (*models.TransferActivity, error) {
	row := s.db.QueryRowContext(ctx, queryGetTransfer, strings.ToLower(hash))
	activity, err := scanTransfer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("unable to get transfer: %w", err)
	}
	return activity, nil
}

func (s *Service) ListTransfers(ctx context.Context, from string, limit, offset int) ([]models.TransferActivity, error) {
	if limit <= 0 {
		limit = 50
	}
	from = strings.ToLower(from)

	rows, err := s.db.QueryContext(ctx, queryListTransfers, from, from, limit, offset)
	if err != nil {
		zap.L().Error("Failed to query transfers", zap.String("from", from), zap.Error(err))
		return nil, fmt.Errorf("unable to query transfers: %w", err)
	}
	defer closeRows(rows)

	transfers := []models.TransferActivity{}
	for rows.Next() {
		activity, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan transfer row: %w", err)
		}
		transfers = append(transfers, *activity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transfer rows: %w", err)
	}
	return transfers, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row rowScanner) (*models.TransferActivity, error) {
	var activity models.TransferActivity
	var status string
	err := row.Scan(
		&activity.Id,
		&activity.Hash,
		&activity.ChainId,
		&activity.From,
		&activity.To,
		&activity.Token,
		&activity.AmountWei,
		&status,
		&activity.ExplorerUrl,
		&activity.CreatedAt,
		&activity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	activity.Status = models.TransferStatus(status)
	return &activity, nil
}
