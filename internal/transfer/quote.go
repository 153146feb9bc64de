package transfer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"glyph-wallet-go/internal/chain"
	"glyph-wallet-go/internal/models"
	"glyph-wallet-go/internal/units"
)

const currencyDecimals = 2

// Chain is the node access a transfer needs. *chain.Client satisfies it.
type Chain interface {
	FeeParams(ctx context.Context) (chain.FeeParams, error)
	EstimateNativeTransfer(ctx context.Context, from, to common.Address, value *big.Int) (uint64, error)
	EstimateTokenTransfer(ctx context.Context, from, token, to common.Address, amount *big.Int) (uint64, error)
	SimulateTokenTransfer(ctx context.Context, from, token, to common.Address, amount *big.Int) (*chain.TokenTransferCall, error)
}

var _ Chain = (*chain.Client)(nil)

// QuoteRequest holds every input of a quote.
type QuoteRequest struct {
	From   common.Address
	To     common.Address
	Token  models.TokenBalance
	Native models.TokenBalance
	Amount decimal.Decimal
	Input  string
	Max    bool
}

// Quoter turns a request into a SendFundQuote using live fee data.
type Quoter struct {
	chain Chain
}

func NewQuoter(c Chain) *Quoter {
	return &Quoter{chain: c}
}

// Quote estimates fees and the amount the recipient receives. A native max
// send pays gas out of the balance being emptied; a token send needs the
// native balance to cover gas alone.
func (q *Quoter) Quote(ctx context.Context, req QuoteRequest) (*models.SendFundQuote, error) {
	tokenWei, _, err := tokenBalance(req.Token)
	if err != nil {
		return nil, err
	}
	nativeWei, _, err := tokenBalance(req.Native)
	if err != nil {
		return nil, err
	}

	amountWei := tokenWei
	if !req.Max {
		amountWei, err = units.ToSmallestUnit(req.Amount, req.Token.Decimals)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
	}

	fees, err := q.chain.FeeParams(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEstimateGas, err)
	}

	var gasUnits uint64
	if req.Token.Native {
		gasUnits, err = q.chain.EstimateNativeTransfer(ctx, req.From, req.To, amountWei)
	} else {
		var token common.Address
		token, err = models.ParseAddress(req.Token.Address)
		if err == nil {
			gasUnits, err = q.chain.EstimateTokenTransfer(ctx, req.From, token, req.To, amountWei)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEstimateGas, err)
	}

	gasCost := fees.GasCost(gasUnits)

	var receivable *big.Int
	switch {
	case req.Token.Native && req.Max:
		receivable = new(big.Int).Sub(tokenWei, gasCost)
		if receivable.Sign() <= 0 {
			return nil, ErrInsufficientGas
		}
	case req.Token.Native:
		if new(big.Int).Add(amountWei, gasCost).Cmp(nativeWei) > 0 {
			return nil, ErrInsufficientGas
		}
		receivable = new(big.Int).Set(amountWei)
	default:
		if nativeWei.Cmp(gasCost) < 0 {
			return nil, ErrInsufficientGas
		}
		receivable = new(big.Int).Set(amountWei)
	}

	inToken := units.FromSmallestUnit(receivable, req.Token.Decimals)
	feesInNative := units.FromSmallestUnit(gasCost, req.Native.Decimals)

	return &models.SendFundQuote{
		TokenAddress:               req.Token.Address,
		ReceivableAmount:           receivable,
		ReceivableAmountInToken:    units.Display(inToken, displayDecimals(req.Token)),
		ReceivableAmountInCurrency: inToken.Mul(req.Token.RateInCurrency).Round(currencyDecimals),
		EstimatedFeesAmount:        feesInNative,
		EstimatedFeesInCurrency:    feesInNative.Mul(req.Native.RateInCurrency).Round(currencyDecimals),
		Currency:                   req.Token.Currency,
		InAmount:                   req.Input,
		ReceiverAddress:            req.To,
		MaxPriorityFeePerGas:       fees.MaxPriorityFeePerGas,
		MaxFeePerGas:               fees.MaxFeePerGas,
		GasLimit:                   gasUnits,
	}, nil
}

func displayDecimals(token models.TokenBalance) int32 {
	if token.DisplayDecimals > 0 {
		return token.DisplayDecimals
	}
	return token.Decimals
}
