package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Backend is the subset of an EVM node the widget needs. *ethclient.Client
// satisfies it.
type Backend interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

var _ Backend = (*ethclient.Client)(nil)

// FeeParams are EIP-1559 fee caps in wei
type FeeParams struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// GasCost is the worst-case fee for the given gas units.
func (f FeeParams) GasCost(gasUnits uint64) *big.Int {
	if f.MaxFeePerGas == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(f.MaxFeePerGas, new(big.Int).SetUint64(gasUnits))
}

// Base fee headroom applied on top of the latest block, 120%.
var (
	baseFeeMultiplierNum = big.NewInt(12)
	baseFeeMultiplierDen = big.NewInt(10)
)

// SuggestFees derives EIP-1559 caps from the latest header. Chains without a
// base fee fall back to the legacy gas price for both caps.
func SuggestFees(ctx context.Context, backend Backend) (FeeParams, error) {
	head, err := backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return FeeParams{}, fmt.Errorf("failed to get latest header: %w", err)
	}

	if head.BaseFee == nil {
		gasPrice, err := backend.SuggestGasPrice(ctx)
		if err != nil {
			return FeeParams{}, fmt.Errorf("failed to get gas price: %w", err)
		}
		return FeeParams{MaxFeePerGas: gasPrice, MaxPriorityFeePerGas: new(big.Int).Set(gasPrice)}, nil
	}

	tip, err := backend.SuggestGasTipCap(ctx)
	if err != nil {
		return FeeParams{}, fmt.Errorf("failed to get gas tip cap: %w", err)
	}

	maxFee := new(big.Int).Mul(head.BaseFee, baseFeeMultiplierNum)
	maxFee.Quo(maxFee, baseFeeMultiplierDen)
	maxFee.Add(maxFee, tip)

	return FeeParams{MaxFeePerGas: maxFee, MaxPriorityFeePerGas: tip}, nil
}

// Client performs the fee, estimation and simulation calls of a transfer
type Client struct {
	backend Backend
	chainId uint64
}

func NewClient(backend Backend, chainId uint64) *Client {
	return &Client{backend: backend, chainId: chainId}
}

// Dial connects to an RPC node and checks it serves the expected chain.
func Dial(ctx context.Context, rpcURL string, chainId uint64) (*Client, *ethclient.Client, error) {
	if rpcURL == "" {
		return nil, nil, errors.New("rpc url is required")
	}
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to rpc node: %w", err)
	}

	remoteId, err := ec.ChainID(ctx)
	if err != nil {
		ec.Close()
		return nil, nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	if remoteId.Uint64() != chainId {
		ec.Close()
		return nil, nil, fmt.Errorf("rpc node serves chain %s, expected %d", remoteId.String(), chainId)
	}

	zap.L().Info("EVM chain initialized",
		zap.String("rpc", rpcURL),
		zap.Uint64("chain_id", chainId))

	return NewClient(ec, chainId), ec, nil
}

func (c *Client) ChainId() uint64 { return c.chainId }

func (c *Client) Backend() Backend { return c.backend }

func (c *Client) FeeParams(ctx context.Context) (FeeParams, error) {
	return SuggestFees(ctx, c.backend)
}

// EstimateNativeTransfer estimates gas units for a plain value transfer.
func (c *Client) EstimateNativeTransfer(ctx context.Context, from, to common.Address, value *big.Int) (uint64, error) {
	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: value,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to estimate native transfer gas: %w", err)
	}
	return gas, nil
}

// EstimateTokenTransfer estimates gas units for an ERC-20 transfer call.
func (c *Client) EstimateTokenTransfer(ctx context.Context, from, token, to common.Address, amount *big.Int) (uint64, error) {
	data, err := PackTransfer(to, amount)
	if err != nil {
		return 0, err
	}
	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &token,
		Data: data,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to estimate token transfer gas: %w", err)
	}
	return gas, nil
}

// TokenTransferCall is a simulated ERC-20 transfer ready for submission. Gas
// is left for the wallet to compute.
type TokenTransferCall struct {
	Token common.Address
	Data  []byte
	Fees  FeeParams
}

// SimulateTokenTransfer dry-runs transfer(to, amount) from the sender and
// returns the calldata with fresh fee parameters.
func (c *Client) SimulateTokenTransfer(ctx context.Context, from, token, to common.Address, amount *big.Int) (*TokenTransferCall, error) {
	data, err := PackTransfer(to, amount)
	if err != nil {
		return nil, err
	}

	result, err := c.backend.CallContract(ctx, ethereum.CallMsg{
		From: from,
		To:   &token,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("transfer simulation reverted: %w", err)
	}
	ok, err := UnpackTransferResult(result)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("transfer simulation returned false")
	}

	fees, err := c.FeeParams(ctx)
	if err != nil {
		return nil, err
	}

	return &TokenTransferCall{Token: token, Data: data, Fees: fees}, nil
}

// NativeBalance reads the account balance at the latest block.
func (c *Client) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := c.backend.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get native balance: %w", err)
	}
	return balance, nil
}
