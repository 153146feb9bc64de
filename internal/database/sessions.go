package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"glyph-wallet-go/internal/models"
	"glyph-wallet-go/internal/store"

	"go.uber.org/zap"
)

// Load returns the persisted credential pair. A token found without its
// nonce (or the reverse) is treated as absent.
func (s *Service) Load(ctx context.Context) (models.Credentials, bool, error) {
	token, err := s.getSessionValue(ctx, sessionTokenKey)
	if err != nil {
		return models.Credentials{}, false, err
	}
	nonce, err := s.getSessionValue(ctx, sessionNonceKey)
	if err != nil {
		return models.Credentials{}, false, err
	}

	creds := models.Credentials{Token: token, Nonce: nonce}
	if !creds.Valid() {
		if token != "" || nonce != "" {
			zap.L().Warn("Discarding incomplete persisted session pair")
		}
		return models.Credentials{}, false, nil
	}
	return creds, true, nil
}

// Save writes both keys in one transaction.
func (s *Service) Save(ctx context.Context, creds models.Credentials) error {
	if !creds.Valid() {
		return store.ErrIncompletePair
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin session transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			zap.L().Warn("Failed to rollback session transaction", zap.Error(err))
		}
	}()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, queryUpsertSessionValue, sessionTokenKey, creds.Token, now); err != nil {
		return fmt.Errorf("unable to store session token: %w", err)
	}
	if _, err := tx.ExecContext(ctx, queryUpsertSessionValue, sessionNonceKey, creds.Nonce, now); err != nil {
		return fmt.Errorf("unable to store session nonce: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("unable to commit session: %w", err)
	}
	return nil
}

// Clear removes both keys together.
func (s *Service) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, queryDeleteSessionValues, sessionTokenKey, sessionNonceKey); err != nil {
		return fmt.Errorf("unable to clear session: %w", err)
	}
	return nil
}

func (s *Service) getSessionValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, queryGetSessionValue, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("unable to read session key %s: %w", key, err)
	}
	return value, nil
}
