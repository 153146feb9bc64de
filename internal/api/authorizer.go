package api

import (
	"context"
	"errors"
	"net/http"
)

const (
	HeaderEvmAddress = "x-evm-address"
	HeaderGlyphNonce = "x-glyph-nonce"
)

// TokenSource yields a bearer token for one request.
type TokenSource func(ctx context.Context) (string, error)

// BearerAuthorizer attaches a bearer token plus fixed headers.
type BearerAuthorizer struct {
	Token   TokenSource
	Headers map[string]string
}

// StaticBearer binds a fixed token, as used once a challenge has been verified.
func StaticBearer(token string, headers map[string]string) *BearerAuthorizer {
	return &BearerAuthorizer{
		Token:   func(context.Context) (string, error) { return token, nil },
		Headers: headers,
	}
}

func (a *BearerAuthorizer) Authorize(ctx context.Context, req *http.Request) error {
	if a.Token == nil {
		return errors.New("no token source")
	}
	token, err := a.Token(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return errors.New("empty bearer token")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	for k, v := range a.Headers {
		req.Header.Set(k, v)
	}
	return nil
}
