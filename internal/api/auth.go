package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// AuthMessage is the one-time challenge issued for an address
type AuthMessage struct {
	Message string `json:"message"`
	Nonce   string `json:"nonce"`
}

type verifyRequest struct {
	Signature string `json:"signature"`
	Nonce     string `json:"nonce"`
}

type verifyResponse struct {
	Token string `json:"token"`
}

// GetAuthMessage fetches the challenge the wallet must sign.
func (c *Client) GetAuthMessage(ctx context.Context, address string) (*AuthMessage, error) {
	var msg AuthMessage
	if err := c.Do(ctx, http.MethodGet, "/api/widget/auth/message/"+url.PathEscape(address), nil, &msg); err != nil {
		return nil, fmt.Errorf("unable to fetch auth message: %w", err)
	}
	if msg.Message == "" || msg.Nonce == "" {
		return nil, errors.New("auth message response missing message or nonce")
	}
	return &msg, nil
}

// VerifyAuth exchanges a signed challenge for a bearer token.
func (c *Client) VerifyAuth(ctx context.Context, address, signature, nonce string) (string, error) {
	var resp verifyResponse
	body := verifyRequest{Signature: signature, Nonce: nonce}
	if err := c.Do(ctx, http.MethodPost, "/api/widget/auth/verify/"+url.PathEscape(address), body, &resp); err != nil {
		return "", fmt.Errorf("unable to verify signature: %w", err)
	}
	if resp.Token == "" {
		return "", errors.New("verify response missing token")
	}
	return resp.Token, nil
}
