package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"glyph-wallet-go/internal/models"
)

var ErrUnauthenticated = errors.New("api client is not authenticated")

type balancesResponse struct {
	Tokens []models.TokenBalance `json:"tokens"`
}

type registerTransactionRequest struct {
	ChainId uint64 `json:"chainId"`
}

func (c *Client) GetUser(ctx context.Context) (*models.UserProfile, error) {
	if !c.Authenticated() {
		return nil, ErrUnauthenticated
	}
	var user models.UserProfile
	if err := c.Do(ctx, http.MethodGet, "/api/widget/user", nil, &user); err != nil {
		return nil, fmt.Errorf("unable to fetch user: %w", err)
	}
	return &user, nil
}

func (c *Client) GetBalances(ctx context.Context) (models.BalancesSnapshot, error) {
	if !c.Authenticated() {
		return nil, ErrUnauthenticated
	}
	var resp balancesResponse
	if err := c.Do(ctx, http.MethodGet, "/api/widget/balances", nil, &resp); err != nil {
		return nil, fmt.Errorf("unable to fetch balances: %w", err)
	}
	snapshot := models.BalancesSnapshot(resp.Tokens)
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// RegisterTransaction starts server-side tracking of a submitted hash.
func (c *Client) RegisterTransaction(ctx context.Context, hash string, chainId uint64) error {
	if !c.Authenticated() {
		return ErrUnauthenticated
	}
	body := registerTransactionRequest{ChainId: chainId}
	if err := c.Do(ctx, http.MethodPost, "/api/widget/transactions/"+url.PathEscape(hash), body, nil); err != nil {
		return fmt.Errorf("unable to register transaction: %w", err)
	}
	return nil
}

func (c *Client) GetTransaction(ctx context.Context, hash string) (*models.TransferRecord, error) {
	if !c.Authenticated() {
		return nil, ErrUnauthenticated
	}
	var record models.TransferRecord
	if err := c.Do(ctx, http.MethodGet, "/api/widget/transactions/"+url.PathEscape(hash), nil, &record); err != nil {
		return nil, fmt.Errorf("unable to fetch transaction status: %w", err)
	}
	return &record, nil
}
