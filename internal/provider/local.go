package provider

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"glyph-wallet-go/internal/chain"
)

// LocalWallet signs with an in-process key and submits through an RPC node.
type LocalWallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	backend chain.Backend
	chainId uint64

	mu        sync.RWMutex
	connected bool
	events    notifier
}

var _ Wallet = (*LocalWallet)(nil)

func NewLocalWallet(key *ecdsa.PrivateKey, backend chain.Backend, chainId uint64) *LocalWallet {
	return &LocalWallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		backend: backend,
		chainId: chainId,
	}
}

// NewLocalWalletFromHex parses a hex private key, with or without 0x.
func NewLocalWalletFromHex(hexKey string, backend chain.Backend, chainId uint64) (*LocalWallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewLocalWallet(key, backend, chainId), nil
}

// Connect marks the wallet connected and notifies subscribers.
func (w *LocalWallet) Connect() {
	w.mu.Lock()
	w.connected = true
	w.mu.Unlock()
	w.events.notify(ConnectionState{Connected: true, Address: w.address, ChainID: w.chainId})
}

func (w *LocalWallet) Address() (common.Address, bool) {
	if !w.IsConnected() {
		return common.Address{}, false
	}
	return w.address, true
}

func (w *LocalWallet) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

func (w *LocalWallet) ChainID() uint64 { return w.chainId }

func (w *LocalWallet) SignMessage(_ context.Context, message string) (string, error) {
	if !w.IsConnected() {
		return "", ErrNotConnected
	}
	return SignPersonal(w.key, message)
}

func (w *LocalWallet) SendTransaction(ctx context.Context, req TransactionRequest) (common.Hash, error) {
	if !w.IsConnected() {
		return common.Hash{}, ErrNotConnected
	}
	if req.ChainID != 0 && req.ChainID != w.chainId {
		return common.Hash{}, fmt.Errorf("%w: wallet on %d, request for %d", ErrWrongChain, w.chainId, req.ChainID)
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := w.backend.PendingNonceAt(ctx, w.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gas := req.Gas
	if gas == 0 {
		to := req.To
		gas, err = w.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:  w.address,
			To:    &to,
			Value: value,
			Data:  req.Data,
		})
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
		}
	}

	maxFee, tip := req.MaxFeePerGas, req.MaxPriorityFeePerGas
	if maxFee == nil || tip == nil {
		fees, err := chain.SuggestFees(ctx, w.backend)
		if err != nil {
			return common.Hash{}, err
		}
		if maxFee == nil {
			maxFee = fees.MaxFeePerGas
		}
		if tip == nil {
			tip = fees.MaxPriorityFeePerGas
		}
	}

	to := req.To
	chainId := new(big.Int).SetUint64(w.chainId)
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainId,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: maxFee,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      req.Data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainId), w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	zap.L().Debug("Transaction submitted",
		zap.String("hash", signed.Hash().Hex()),
		zap.String("to", strings.ToLower(to.Hex())),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gas))

	return signed.Hash(), nil
}

func (w *LocalWallet) Disconnect(_ context.Context) error {
	w.mu.Lock()
	wasConnected := w.connected
	w.connected = false
	w.mu.Unlock()

	if wasConnected {
		w.events.notify(ConnectionState{Connected: false, ChainID: w.chainId})
	}
	return nil
}

func (w *LocalWallet) Subscribe(fn func(ConnectionState)) func() {
	return w.events.subscribe(fn)
}
