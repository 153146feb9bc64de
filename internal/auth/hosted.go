package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"glyph-wallet-go/internal/api"
	"glyph-wallet-go/internal/models"
	"glyph-wallet-go/internal/provider"
)

// CrossAppAccount is a wallet linked from another tenant app of the hosted
// provider.
type CrossAppAccount struct {
	ProviderAppId   string
	EmbeddedWallets []string
}

// HostedUser is the hosted provider's view of the signed-in user
type HostedUser struct {
	Id               string
	CrossAppAccounts []CrossAppAccount
	EmbeddedWallets  []string
}

// HostedState is a snapshot of the hosted SDK
type HostedState struct {
	Ready         bool
	Authenticated bool
	User          *HostedUser
}

// HostedSDK is the hosted-custody provider as seen by the widget.
type HostedSDK interface {
	State() HostedState
	// AccessToken returns a fresh bearer token. It is called per request.
	AccessToken(ctx context.Context) (string, error)
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	SignMessage(ctx context.Context, message string) (string, error)
	SendTransaction(ctx context.Context, chainId uint64, tx provider.TransactionRequest) (common.Hash, error)
	CrossAppSignMessage(ctx context.Context, address common.Address, message string) (string, error)
	CrossAppSendTransaction(ctx context.Context, address common.Address, chainId uint64, tx provider.TransactionRequest) (common.Hash, error)
	// Subscribe registers fn to run after every SDK state change.
	Subscribe(fn func()) (unsubscribe func())
}

// Resolution is the account a hosted session acts as.
type Resolution struct {
	Address      common.Address
	UsesCrossapp bool
}

// ResolveAccount picks the session account: a cross-app wallet from another
// app first, then one from our own app, then the embedded wallet. When a
// tier has several candidates the first one wins.
func ResolveAccount(user *HostedUser, ownAppId string) (Resolution, error) {
	if user == nil {
		return Resolution{}, ErrNoAccount
	}

	var thirdParty, own []string
	for _, account := range user.CrossAppAccounts {
		if account.ProviderAppId == ownAppId {
			own = append(own, account.EmbeddedWallets...)
		} else {
			thirdParty = append(thirdParty, account.EmbeddedWallets...)
		}
	}

	tiers := []struct {
		name     string
		crossapp bool
		wallets  []string
	}{
		{name: "third_party_cross_app", crossapp: true, wallets: thirdParty},
		{name: "own_cross_app", crossapp: true, wallets: own},
		{name: "embedded", crossapp: false, wallets: user.EmbeddedWallets},
	}

	for _, tier := range tiers {
		candidates := validAddresses(tier.wallets)
		if len(candidates) == 0 {
			continue
		}
		if len(candidates) > 1 {
			zap.L().Warn("Multiple accounts of the same kind linked, using the first",
				zap.String("kind", tier.name),
				zap.String("user_id", user.Id),
				zap.Int("count", len(candidates)))
		}
		return Resolution{Address: candidates[0], UsesCrossapp: tier.crossapp}, nil
	}

	return Resolution{}, ErrNoAccount
}

func validAddresses(values []string) []common.Address {
	addresses := make([]common.Address, 0, len(values))
	for _, value := range values {
		address, err := models.ParseAddress(value)
		if err != nil {
			zap.L().Warn("Skipping malformed linked wallet", zap.String("address", value), zap.Error(err))
			continue
		}
		addresses = append(addresses, address)
	}
	return addresses
}

// HostedCustody derives its session from a hosted-custody SDK.
type HostedCustody struct {
	sdk     HostedSDK
	base    *api.Client
	appId   string
	chainId uint64

	mu           sync.RWMutex
	session      models.Session
	client       *api.Client
	usesCrossapp bool

	subs        listeners
	unsubscribe func()
}

var _ Strategy = (*HostedCustody)(nil)

// NewHostedCustody derives the initial session and follows SDK changes.
func NewHostedCustody(sdk HostedSDK, base *api.Client, appId string, chainId uint64) *HostedCustody {
	h := &HostedCustody{
		sdk:     sdk,
		base:    base,
		appId:   appId,
		chainId: chainId,
		session: models.PendingSession(models.StrategyHostedCustody),
	}
	if err := h.Sync(); err != nil {
		zap.L().Error("Unable to establish hosted session", zap.Error(err))
	}
	h.unsubscribe = sdk.Subscribe(func() {
		if err := h.Sync(); err != nil {
			zap.L().Error("Unable to establish hosted session", zap.Error(err))
		}
	})
	return h
}

func (h *HostedCustody) Kind() models.StrategyKind { return models.StrategyHostedCustody }

// Sync re-derives the session from the SDK state. Re-running it on an
// unchanged state has no observable effect.
func (h *HostedCustody) Sync() error {
	state := h.sdk.State()

	if !state.Ready {
		h.update(models.PendingSession(models.StrategyHostedCustody), false, false, nil)
		return nil
	}

	if !state.Authenticated {
		h.update(models.AnonymousSession(models.StrategyHostedCustody, nil), true, false, nil)
		return nil
	}

	resolution, err := ResolveAccount(state.User, h.appId)
	if err != nil {
		h.update(models.AnonymousSession(models.StrategyHostedCustody, nil), true, false, nil)
		return fmt.Errorf("failed to resolve hosted account: %w", err)
	}

	session, err := models.AuthenticatedSession(models.StrategyHostedCustody, resolution.Address, "")
	if err != nil {
		return err
	}
	h.update(session, true, resolution.UsesCrossapp, func() *api.Client {
		return h.base.WithAuthorizer(&api.BearerAuthorizer{
			Token:   h.sdk.AccessToken,
			Headers: map[string]string{api.HeaderEvmAddress: session.AddressHex()},
		})
	})
	return nil
}

// update installs a new session. touchClient is false while the SDK is not
// ready so the previous client is left alone.
func (h *HostedCustody) update(session models.Session, touchClient, usesCrossapp bool, build func() *api.Client) {
	h.mu.Lock()
	changed := !h.session.Equal(session) || h.usesCrossapp != usesCrossapp
	if touchClient && (h.client != nil) != (build != nil) {
		changed = true
	}
	if !changed {
		h.mu.Unlock()
		return
	}

	h.session = session
	h.usesCrossapp = usesCrossapp
	if touchClient {
		h.client = nil
		if build != nil {
			h.client = build()
		}
	}
	h.mu.Unlock()

	zap.L().Debug("Hosted session changed",
		zap.Bool("ready", session.Ready()),
		zap.Bool("authenticated", session.Authenticated()),
		zap.String("address", session.AddressHex()),
		zap.Bool("uses_crossapp", usesCrossapp))

	h.subs.emit(session)
}

func (h *HostedCustody) Session() models.Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.session
}

func (h *HostedCustody) Client() *api.Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.session.Authenticated() {
		return nil
	}
	return h.client
}

// UsesCrossapp reports whether sign and send go through the cross-app path.
func (h *HostedCustody) UsesCrossapp() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.usesCrossapp
}

func (h *HostedCustody) Login(ctx context.Context) error {
	if err := h.sdk.Login(ctx); err != nil {
		return fmt.Errorf("hosted login failed: %w", err)
	}
	return h.Sync()
}

func (h *HostedCustody) Logout(ctx context.Context) error {
	err := h.sdk.Logout(ctx)
	if syncErr := h.Sync(); err == nil {
		err = syncErr
	}
	if err != nil {
		return fmt.Errorf("hosted logout failed: %w", err)
	}
	return nil
}

func (h *HostedCustody) account() (common.Address, bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.session.Ready() {
		return common.Address{}, false, ErrNotReady
	}
	address, ok := h.session.Address()
	if !h.session.Authenticated() || !ok {
		return common.Address{}, false, ErrNotAuthenticated
	}
	return address, h.usesCrossapp, nil
}

func (h *HostedCustody) SignMessage(ctx context.Context, message string) (string, error) {
	address, crossapp, err := h.account()
	if err != nil {
		return "", err
	}
	if crossapp {
		return h.sdk.CrossAppSignMessage(ctx, address, message)
	}
	return h.sdk.SignMessage(ctx, message)
}

// SendTransaction always targets the configured chain.
func (h *HostedCustody) SendTransaction(ctx context.Context, tx provider.TransactionRequest) (common.Hash, error) {
	address, crossapp, err := h.account()
	if err != nil {
		return common.Hash{}, err
	}
	tx.ChainID = h.chainId
	if crossapp {
		return h.sdk.CrossAppSendTransaction(ctx, address, h.chainId, tx)
	}
	return h.sdk.SendTransaction(ctx, h.chainId, tx)
}

func (h *HostedCustody) Subscribe(fn func(models.Session)) func() {
	return h.subs.add(fn)
}

func (h *HostedCustody) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
}
