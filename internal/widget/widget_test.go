package widget

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"glyph-wallet-go/internal/api"
	"glyph-wallet-go/internal/auth"
	"glyph-wallet-go/internal/chain"
	"glyph-wallet-go/internal/models"
	"glyph-wallet-go/internal/provider"
	"glyph-wallet-go/internal/store"
	"glyph-wallet-go/internal/transfer"
)

var errNoNode = errors.New("no node")

type offlineChain struct{}

func (offlineChain) FeeParams(context.Context) (chain.FeeParams, error) {
	return chain.FeeParams{}, errNoNode
}

func (offlineChain) EstimateNativeTransfer(context.Context, common.Address, common.Address, *big.Int) (uint64, error) {
	return 0, errNoNode
}

func (offlineChain) EstimateTokenTransfer(context.Context, common.Address, common.Address, common.Address, *big.Int) (uint64, error) {
	return 0, errNoNode
}

func (offlineChain) SimulateTokenTransfer(context.Context, common.Address, common.Address, common.Address, *big.Int) (*chain.TokenTransferCall, error) {
	return nil, errNoNode
}

func newWidgetServer(t *testing.T, address string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/widget/auth/message/"+address, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"message": "Sign in with nonce 7", "nonce": "7"})
	})
	mux.HandleFunc("/api/widget/auth/verify/"+address, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		signer, err := provider.RecoverAddress("Sign in with nonce 7", body["signature"])
		require.NoError(t, err)
		require.Equal(t, address, strings.ToLower(signer.Hex()))
		json.NewEncoder(w).Encode(map[string]string{"token": "jwt"})
	})
	mux.HandleFunc("/api/widget/user", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "7", r.Header.Get(api.HeaderGlyphNonce))
		json.NewEncoder(w).Encode(models.UserProfile{Name: "ape", EvmWallet: address})
	})
	mux.HandleFunc("/api/widget/balances", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tokens":[{"symbol":"APE","decimals":18,"native":true,"valueInWei":"2000000000000000000","amount":"3.1"}]}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestWidget(t *testing.T) (*Widget, *provider.LocalWallet, store.SessionStore) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())
	server := newWidgetServer(t, address)

	wallet := provider.NewLocalWallet(key, nil, 33139)
	wallet.Connect()
	sessions := store.NewMemorySessionStore()
	base := api.NewClient(server.URL, server.Client())

	manager := auth.NewManager(func(ctx context.Context, kind models.StrategyKind) (auth.Strategy, error) {
		require.Equal(t, models.StrategyDirectProvider, kind)
		return auth.NewDirectProvider(ctx, wallet, base, sessions), nil
	})
	require.NoError(t, manager.Select(context.Background(), models.StrategyDirectProvider))

	w := New(manager, offlineChain{}, transfer.Options{ChainId: 33139})
	t.Cleanup(w.Close)
	return w, wallet, sessions
}

func TestLoginPrimesCaches(t *testing.T) {
	w, _, sessions := newTestWidget(t)
	ctx := context.Background()

	require.True(t, w.Ready())
	require.False(t, w.Authenticated())
	require.Nil(t, w.User())
	require.ErrorIs(t, w.Prime(ctx), auth.ErrNotAuthenticated)

	require.NoError(t, w.Login(ctx))
	require.True(t, w.Authenticated())
	require.Equal(t, "ape", w.User().Name)
	require.Len(t, w.Balances(), 1)

	creds, ok, err := sessions.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "7", creds.Nonce)

	sig, err := w.SignMessage(ctx, "hello")
	require.NoError(t, err)
	recovered, err := provider.RecoverAddress("hello", sig)
	require.NoError(t, err)
	require.Equal(t, w.Session().AddressHex(), strings.ToLower(recovered.Hex()))

	require.NoError(t, w.Logout(ctx))
	require.False(t, w.Authenticated())
	require.Nil(t, w.User())
	require.Nil(t, w.Balances())
}

func TestExternalDisconnectClearsCaches(t *testing.T) {
	w, wallet, _ := newTestWidget(t)
	ctx := context.Background()
	require.NoError(t, w.Login(ctx))
	require.NotNil(t, w.User())

	require.NoError(t, wallet.Disconnect(ctx))
	require.False(t, w.Authenticated())
	require.Nil(t, w.User())
	require.Nil(t, w.Balances())

	_, err := w.RefreshUser(ctx, false)
	require.ErrorIs(t, err, api.ErrUnauthenticated)
}

func TestSendFundsUsesSessionBalances(t *testing.T) {
	w, _, _ := newTestWidget(t)
	require.NoError(t, w.Login(context.Background()))

	var changes atomic.Int32
	p := w.NewSendFunds(transfer.Options{OnChange: func(transfer.State) { changes.Inc() }})
	defer p.Close()

	require.NoError(t, p.EnterAddress("0x2222222222222222222222222222222222222222"))
	state := p.State()
	require.Equal(t, transfer.StepEnterAmount, state.Step)
	require.Equal(t, "APE", state.Token.Symbol)
	require.NoError(t, p.ToggleMax())
	require.Equal(t, "2", p.State().Input)
	require.Positive(t, changes.Load())

	require.Eventually(t, func() bool { return p.State().Err != nil }, time.Second, 5*time.Millisecond)
	require.Equal(t, "Failed to estimate gas", p.State().ErrorMessage())
	require.False(t, p.State().CanSend())
}
