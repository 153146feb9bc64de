package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// EIP-1193 user rejection code
const userRejectedCode = 4001

// RPCWallet forwards account requests to an EIP-1193 compatible JSON-RPC
// endpoint, such as a wallet bridge exposed by the host.
type RPCWallet struct {
	client *rpc.Client

	mu        sync.RWMutex
	connected bool
	address   common.Address
	chainId   uint64
	events    notifier
}

var _ Wallet = (*RPCWallet)(nil)

func NewRPCWallet(client *rpc.Client) *RPCWallet {
	return &RPCWallet{client: client}
}

func DialRPCWallet(ctx context.Context, url string) (*RPCWallet, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial wallet endpoint: %w", err)
	}
	return NewRPCWallet(client), nil
}

// Connect requests the accounts and chain of the endpoint.
func (w *RPCWallet) Connect(ctx context.Context) error {
	var accounts []common.Address
	if err := w.client.CallContext(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return wrapRPCError("eth_requestAccounts", err)
	}
	if len(accounts) == 0 {
		return errors.New("wallet endpoint returned no accounts")
	}

	var chainId hexutil.Uint64
	if err := w.client.CallContext(ctx, &chainId, "eth_chainId"); err != nil {
		return wrapRPCError("eth_chainId", err)
	}

	w.mu.Lock()
	w.connected = true
	w.address = accounts[0]
	w.chainId = uint64(chainId)
	state := ConnectionState{Connected: true, Address: w.address, ChainID: w.chainId}
	w.mu.Unlock()

	zap.L().Info("Wallet connected",
		zap.String("address", strings.ToLower(state.Address.Hex())),
		zap.Uint64("chain_id", state.ChainID))

	w.events.notify(state)
	return nil
}

func (w *RPCWallet) Address() (common.Address, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.connected {
		return common.Address{}, false
	}
	return w.address, true
}

func (w *RPCWallet) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

func (w *RPCWallet) ChainID() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.chainId
}

func (w *RPCWallet) SignMessage(ctx context.Context, message string) (string, error) {
	address, ok := w.Address()
	if !ok {
		return "", ErrNotConnected
	}

	var signature hexutil.Bytes
	err := w.client.CallContext(ctx, &signature, "personal_sign",
		hexutil.Encode([]byte(message)), address)
	if err != nil {
		return "", wrapRPCError("personal_sign", err)
	}
	return hexutil.Encode(signature), nil
}

type rpcTransaction struct {
	From                 common.Address  `json:"from"`
	To                   common.Address  `json:"to"`
	Value                *hexutil.Big    `json:"value,omitempty"`
	Data                 hexutil.Bytes   `json:"data,omitempty"`
	Gas                  *hexutil.Uint64 `json:"gas,omitempty"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas,omitempty"`
	ChainID              *hexutil.Big    `json:"chainId,omitempty"`
}

func (w *RPCWallet) SendTransaction(ctx context.Context, req TransactionRequest) (common.Hash, error) {
	address, ok := w.Address()
	if !ok {
		return common.Hash{}, ErrNotConnected
	}
	if chainId := w.ChainID(); req.ChainID != 0 && req.ChainID != chainId {
		return common.Hash{}, fmt.Errorf("%w: wallet on %d, request for %d", ErrWrongChain, chainId, req.ChainID)
	}

	payload := rpcTransaction{
		From:                 address,
		To:                   req.To,
		Value:                (*hexutil.Big)(req.Value),
		Data:                 req.Data,
		MaxFeePerGas:         (*hexutil.Big)(req.MaxFeePerGas),
		MaxPriorityFeePerGas: (*hexutil.Big)(req.MaxPriorityFeePerGas),
	}
	if req.Gas != 0 {
		gas := hexutil.Uint64(req.Gas)
		payload.Gas = &gas
	}

	var hash common.Hash
	if err := w.client.CallContext(ctx, &hash, "eth_sendTransaction", payload); err != nil {
		return common.Hash{}, wrapRPCError("eth_sendTransaction", err)
	}
	return hash, nil
}

// Disconnect drops the local connection state. The endpoint itself stays
// dialed so the wallet can reconnect.
func (w *RPCWallet) Disconnect(_ context.Context) error {
	w.mu.Lock()
	wasConnected := w.connected
	w.connected = false
	w.address = common.Address{}
	chainId := w.chainId
	w.mu.Unlock()

	if wasConnected {
		w.events.notify(ConnectionState{Connected: false, ChainID: chainId})
	}
	return nil
}

func (w *RPCWallet) Subscribe(fn func(ConnectionState)) func() {
	return w.events.subscribe(fn)
}

func (w *RPCWallet) Close() {
	w.client.Close()
}

func wrapRPCError(method string, err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == userRejectedCode {
		return fmt.Errorf("%s: %w", method, ErrUserRejected)
	}
	return fmt.Errorf("%s failed: %w", method, err)
}
