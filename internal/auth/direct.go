package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"glyph-wallet-go/internal/api"
	"glyph-wallet-go/internal/models"
	"glyph-wallet-go/internal/provider"
	"glyph-wallet-go/internal/store"
)

// DirectProvider authenticates a connected wallet through the widget
// challenge/verify endpoints and persists the resulting token and nonce.
type DirectProvider struct {
	wallet provider.Wallet
	base   *api.Client
	store  store.SessionStore

	loading atomic.Bool

	mu        sync.RWMutex
	creds     models.Credentials
	client    *api.Client
	clientKey string

	subs        listeners
	unsubscribe func()
}

var _ Strategy = (*DirectProvider)(nil)

// NewDirectProvider restores persisted credentials and starts following the
// wallet connection.
func NewDirectProvider(ctx context.Context, wallet provider.Wallet, base *api.Client, sessions store.SessionStore) *DirectProvider {
	d := &DirectProvider{
		wallet: wallet,
		base:   base,
		store:  sessions,
	}

	creds, ok, err := sessions.Load(ctx)
	switch {
	case err != nil:
		zap.L().Warn("Unable to restore session credentials", zap.Error(err))
	case ok:
		d.creds = creds
		zap.L().Debug("Restored session credentials")
	}

	d.rebuild()
	d.unsubscribe = wallet.Subscribe(d.onConnectionChange)
	return d
}

func (d *DirectProvider) Kind() models.StrategyKind { return models.StrategyDirectProvider }

// onConnectionChange handles connection events raised anywhere in the host.
// A disconnect clears the session but never disconnects the wallet again.
func (d *DirectProvider) onConnectionChange(state provider.ConnectionState) {
	if !state.Connected {
		if err := d.clear(context.Background(), false); err != nil {
			zap.L().Warn("Unable to clear session after disconnect", zap.Error(err))
		}
		return
	}
	if d.rebuild() {
		d.subs.emit(d.Session())
	}
}

func (d *DirectProvider) Session() models.Session {
	if d.loading.Load() {
		return models.PendingSession(models.StrategyDirectProvider)
	}

	address, ok := d.wallet.Address()
	connected := d.wallet.IsConnected() && ok

	d.mu.RLock()
	token := d.creds.Token
	d.mu.RUnlock()

	if connected && token != "" {
		session, err := models.AuthenticatedSession(models.StrategyDirectProvider, address, token)
		if err == nil {
			return session
		}
	}
	if connected {
		return models.AnonymousSession(models.StrategyDirectProvider, &address)
	}
	return models.AnonymousSession(models.StrategyDirectProvider, nil)
}

// rebuild replaces the API client when the token, nonce or address changed.
// It reports whether anything changed.
func (d *DirectProvider) rebuild() bool {
	address, ok := d.wallet.Address()
	connected := d.wallet.IsConnected() && ok

	d.mu.Lock()
	defer d.mu.Unlock()

	if !connected || !d.creds.Valid() {
		changed := d.client != nil
		d.client = nil
		d.clientKey = ""
		return changed
	}

	addressHex := models.NormalizeAddress(address)
	key := d.creds.Token + "|" + d.creds.Nonce + "|" + addressHex
	if key == d.clientKey && d.client != nil {
		return false
	}

	d.client = d.base.WithAuthorizer(api.StaticBearer(d.creds.Token, map[string]string{
		api.HeaderEvmAddress: addressHex,
		api.HeaderGlyphNonce: d.creds.Nonce,
	}))
	d.clientKey = key
	return true
}

func (d *DirectProvider) Client() *api.Client {
	if !d.Session().Authenticated() {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.client
}

// Loading reports whether a login is in flight.
func (d *DirectProvider) Loading() bool { return d.loading.Load() }

// Login runs the challenge/response exchange for the connected wallet. Any
// failure leaves the session unauthenticated and is not retried.
func (d *DirectProvider) Login(ctx context.Context) error {
	address, ok := d.wallet.Address()
	if !d.wallet.IsConnected() || !ok {
		return ErrNotConnected
	}
	if !d.loading.CAS(false, true) {
		return fmt.Errorf("login already in progress")
	}
	d.subs.emit(d.Session())

	err := d.authenticate(ctx, address)

	d.loading.Store(false)
	if err != nil {
		if clearErr := d.reset(ctx); clearErr != nil {
			zap.L().Warn("Unable to clear session credentials", zap.Error(clearErr))
		}
		d.subs.emit(d.Session())
		return err
	}

	d.rebuild()
	d.subs.emit(d.Session())
	return nil
}

func (d *DirectProvider) authenticate(ctx context.Context, address common.Address) error {
	addressHex := models.NormalizeAddress(address)

	challenge, err := d.base.GetAuthMessage(ctx, addressHex)
	if err != nil {
		return fmt.Errorf("failed to fetch auth message: %w", err)
	}

	signature, err := d.wallet.SignMessage(ctx, challenge.Message)
	if err != nil {
		return fmt.Errorf("failed to sign auth message: %w", err)
	}

	token, err := d.base.VerifyAuth(ctx, addressHex, signature, challenge.Nonce)
	if err != nil {
		return fmt.Errorf("failed to verify signature: %w", err)
	}

	creds := models.Credentials{Token: token, Nonce: challenge.Nonce}
	if err := d.store.Save(ctx, creds); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	d.mu.Lock()
	d.creds = creds
	d.mu.Unlock()

	zap.L().Info("Wallet authenticated", zap.String("address", addressHex))
	return nil
}

// Logout clears the session and disconnects the wallet.
func (d *DirectProvider) Logout(ctx context.Context) error {
	return d.clear(ctx, true)
}

func (d *DirectProvider) clear(ctx context.Context, disconnect bool) error {
	err := d.reset(ctx)
	d.subs.emit(d.Session())

	if disconnect && d.wallet.IsConnected() {
		if dErr := d.wallet.Disconnect(ctx); dErr != nil && err == nil {
			err = fmt.Errorf("failed to disconnect wallet: %w", dErr)
		}
	}
	return err
}

// reset drops the credentials and client, in memory and in the store.
func (d *DirectProvider) reset(ctx context.Context) error {
	d.mu.Lock()
	d.creds = models.Credentials{}
	d.client = nil
	d.clientKey = ""
	d.mu.Unlock()

	if err := d.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session store: %w", err)
	}
	return nil
}

func (d *DirectProvider) SignMessage(ctx context.Context, message string) (string, error) {
	if !d.wallet.IsConnected() {
		return "", ErrNotConnected
	}
	return d.wallet.SignMessage(ctx, message)
}

func (d *DirectProvider) SendTransaction(ctx context.Context, tx provider.TransactionRequest) (common.Hash, error) {
	if !d.wallet.IsConnected() {
		return common.Hash{}, ErrNotConnected
	}
	return d.wallet.SendTransaction(ctx, tx)
}

func (d *DirectProvider) Subscribe(fn func(models.Session)) func() {
	return d.subs.add(fn)
}

func (d *DirectProvider) Close() {
	if d.unsubscribe != nil {
		d.unsubscribe()
	}
}
