package auth

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"glyph-wallet-go/internal/api"
	"glyph-wallet-go/internal/models"
	"glyph-wallet-go/internal/provider"
)

// Loading is the inert strategy installed while the selected one is built.
type Loading struct{}

var _ Strategy = Loading{}

func (Loading) Kind() models.StrategyKind { return models.StrategyLoading }

func (Loading) Session() models.Session {
	return models.PendingSession(models.StrategyLoading)
}

func (Loading) Login(context.Context) error { return ErrNotReady }

func (Loading) Logout(context.Context) error { return ErrNotReady }

func (Loading) SignMessage(context.Context, string) (string, error) {
	return "", ErrNotReady
}

func (Loading) SendTransaction(context.Context, provider.TransactionRequest) (common.Hash, error) {
	return common.Hash{}, ErrNotReady
}

func (Loading) Client() *api.Client { return nil }

func (Loading) Subscribe(func(models.Session)) func() { return func() {} }

func (Loading) Close() {}
