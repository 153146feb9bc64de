package provider

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
)

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

type stubBackend struct {
	nonce    uint64
	gas      uint64
	sent     []*types.Transaction
	estimate int
}

func (s *stubBackend) HeaderByNumber(_ context.Context, _ *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1), BaseFee: big.NewInt(1000)}, nil
}

func (s *stubBackend) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	return big.NewInt(1000), nil
}

func (s *stubBackend) SuggestGasTipCap(_ context.Context) (*big.Int, error) {
	return big.NewInt(10), nil
}

func (s *stubBackend) EstimateGas(_ context.Context, _ ethereum.CallMsg) (uint64, error) {
	s.estimate++
	return s.gas, nil
}

func (s *stubBackend) CallContract(_ context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	return nil, nil
}

func (s *stubBackend) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) {
	return s.nonce, nil
}

func (s *stubBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	s.sent = append(s.sent, tx)
	return nil
}

func (s *stubBackend) BalanceAt(_ context.Context, _ common.Address, _ *big.Int) (*big.Int, error) {
	return new(big.Int), nil
}

func TestSignPersonalRecovers(t *testing.T) {
	key, err := crypto.HexToECDSA(testKey)
	require.NoError(t, err)

	sig, err := SignPersonal(key, "Sign in to Glyph\nnonce: abc")
	require.NoError(t, err)

	raw, err := hexutil.Decode(sig)
	require.NoError(t, err)
	require.Len(t, raw, 65)
	require.Contains(t, []byte{27, 28}, raw[64])

	recovered, err := RecoverAddress("Sign in to Glyph\nnonce: abc", sig)
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), recovered)

	other, err := RecoverAddress("a different message", sig)
	require.NoError(t, err)
	require.NotEqual(t, recovered, other)
}

func TestRecoverAddressRejectsMalformed(t *testing.T) {
	_, err := RecoverAddress("msg", "0x1234")
	require.Error(t, err)

	_, err = RecoverAddress("msg", "not hex")
	require.Error(t, err)
}

func TestLocalWalletRequiresConnection(t *testing.T) {
	wallet, err := NewLocalWalletFromHex("0x"+testKey, &stubBackend{}, 33139)
	require.NoError(t, err)

	_, ok := wallet.Address()
	require.False(t, ok)

	_, err = wallet.SignMessage(context.Background(), "hello")
	require.ErrorIs(t, err, ErrNotConnected)

	_, err = wallet.SendTransaction(context.Background(), TransactionRequest{})
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestLocalWalletSendTransaction(t *testing.T) {
	backend := &stubBackend{nonce: 7, gas: 21000}
	wallet, err := NewLocalWalletFromHex(testKey, backend, 33139)
	require.NoError(t, err)
	wallet.Connect()

	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	hash, err := wallet.SendTransaction(context.Background(), TransactionRequest{
		To:                   to,
		Value:                big.NewInt(5),
		MaxFeePerGas:         big.NewInt(2000),
		MaxPriorityFeePerGas: big.NewInt(3),
	})
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)

	tx := backend.sent[0]
	require.Equal(t, hash, tx.Hash())
	require.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	require.Equal(t, uint64(7), tx.Nonce())
	require.Equal(t, uint64(21000), tx.Gas())
	require.Equal(t, int64(2000), tx.GasFeeCap().Int64())
	require.Equal(t, int64(3), tx.GasTipCap().Int64())
	require.Equal(t, to, *tx.To())

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(33139)), tx)
	require.NoError(t, err)
	address, _ := wallet.Address()
	require.Equal(t, address, from)
}

func TestLocalWalletFillsFeesAndGas(t *testing.T) {
	backend := &stubBackend{gas: 60000}
	wallet, err := NewLocalWalletFromHex(testKey, backend, 33139)
	require.NoError(t, err)
	wallet.Connect()

	_, err = wallet.SendTransaction(context.Background(), TransactionRequest{
		To:   common.HexToAddress("0x3333333333333333333333333333333333333333"),
		Data: []byte{0xa9, 0x05, 0x9c, 0xbb},
	})
	require.NoError(t, err)
	require.Equal(t, 1, backend.estimate)

	tx := backend.sent[0]
	require.Equal(t, uint64(60000), tx.Gas())
	require.Equal(t, int64(1210), tx.GasFeeCap().Int64())
	require.Equal(t, int64(10), tx.GasTipCap().Int64())
}

func TestLocalWalletRejectsOtherChain(t *testing.T) {
	wallet, err := NewLocalWalletFromHex(testKey, &stubBackend{}, 33139)
	require.NoError(t, err)
	wallet.Connect()

	_, err = wallet.SendTransaction(context.Background(), TransactionRequest{ChainID: 1})
	require.ErrorIs(t, err, ErrWrongChain)
}

func TestLocalWalletDisconnectNotifiesOnce(t *testing.T) {
	wallet, err := NewLocalWalletFromHex(testKey, &stubBackend{}, 33139)
	require.NoError(t, err)

	var events []ConnectionState
	unsubscribe := wallet.Subscribe(func(state ConnectionState) {
		events = append(events, state)
	})

	wallet.Connect()
	require.NoError(t, wallet.Disconnect(context.Background()))
	require.NoError(t, wallet.Disconnect(context.Background()))

	require.Len(t, events, 2)
	require.True(t, events[0].Connected)
	require.False(t, events[1].Connected)

	unsubscribe()
	wallet.Connect()
	require.Len(t, events, 2)
}

type ethService struct {
	account common.Address
	lastTx  rpcTransaction
}

func (s *ethService) RequestAccounts() []common.Address {
	return []common.Address{s.account}
}

func (s *ethService) ChainId() hexutil.Uint64 {
	return hexutil.Uint64(33139)
}

func (s *ethService) SendTransaction(tx rpcTransaction) (common.Hash, error) {
	s.lastTx = tx
	return common.HexToHash("0xabc"), nil
}

type rejectedError struct{}

func (rejectedError) Error() string  { return "User rejected the request." }
func (rejectedError) ErrorCode() int { return userRejectedCode }

type personalService struct {
	reject bool
}

func (s *personalService) Sign(data hexutil.Bytes, _ common.Address) (hexutil.Bytes, error) {
	if s.reject {
		return nil, rejectedError{}
	}
	return append([]byte("signed:"), data...), nil
}

func newRPCWallet(t *testing.T, personal *personalService) (*RPCWallet, *ethService) {
	t.Helper()

	eth := &ethService{account: common.HexToAddress("0x4444444444444444444444444444444444444444")}
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", eth))
	require.NoError(t, server.RegisterName("personal", personal))
	t.Cleanup(server.Stop)

	wallet := NewRPCWallet(rpc.DialInProc(server))
	t.Cleanup(wallet.Close)
	return wallet, eth
}

func TestRPCWalletFlow(t *testing.T) {
	wallet, eth := newRPCWallet(t, &personalService{})
	ctx := context.Background()

	require.NoError(t, wallet.Connect(ctx))
	address, ok := wallet.Address()
	require.True(t, ok)
	require.Equal(t, eth.account, address)
	require.Equal(t, uint64(33139), wallet.ChainID())

	sig, err := wallet.SignMessage(ctx, "hi")
	require.NoError(t, err)
	require.Equal(t, hexutil.Encode([]byte("signed:hi")), sig)

	hash, err := wallet.SendTransaction(ctx, TransactionRequest{
		To:           common.HexToAddress("0x5555555555555555555555555555555555555555"),
		Value:        big.NewInt(42),
		MaxFeePerGas: big.NewInt(100),
	})
	require.NoError(t, err)
	require.Equal(t, common.HexToHash("0xabc"), hash)
	require.Equal(t, eth.account, eth.lastTx.From)
	require.Equal(t, int64(42), eth.lastTx.Value.ToInt().Int64())
	require.Nil(t, eth.lastTx.Gas)
}

func TestRPCWalletUserRejection(t *testing.T) {
	wallet, _ := newRPCWallet(t, &personalService{reject: true})
	ctx := context.Background()
	require.NoError(t, wallet.Connect(ctx))

	_, err := wallet.SignMessage(ctx, "hi")
	require.True(t, errors.Is(err, ErrUserRejected))
}
