package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ERC-20 ABI for the calls a transfer needs
const erc20ABIJson = `[
	{
		"constant": true,
		"inputs": [{"name": "_owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "balance", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "_to", "type": "address"},
			{"name": "_value", "type": "uint256"}
		],
		"name": "transfer",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	}
]`

var erc20ABI = mustParseABI(erc20ABIJson)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid erc20 abi: %v", err))
	}
	return parsed
}

// PackTransfer encodes transfer(to, amount).
func PackTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid transfer amount")
	}
	data, err := erc20ABI.Pack("transfer", to, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack transfer: %w", err)
	}
	return data, nil
}

// UnpackTransferResult decodes the bool returned by transfer. Tokens that
// return nothing are treated as successful.
func UnpackTransferResult(result []byte) (bool, error) {
	if len(result) == 0 {
		return true, nil
	}
	values, err := erc20ABI.Unpack("transfer", result)
	if err != nil {
		return false, fmt.Errorf("failed to unpack transfer result: %w", err)
	}
	if len(values) != 1 {
		return false, fmt.Errorf("unexpected transfer result length %d", len(values))
	}
	ok, isBool := values[0].(bool)
	if !isBool {
		return false, fmt.Errorf("unexpected transfer result type %T", values[0])
	}
	return ok, nil
}
