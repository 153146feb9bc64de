/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// UserProfile represents the cached user-facing identity
type UserProfile struct {
	Name            string `json:"name"`
	Picture         string `json:"picture"`
	EvmWallet       string `json:"evm_wallet"`
	HasProfile      bool   `json:"hasProfile"`
	ProfileComplete bool   `json:"profileCompleted"`
}

// TokenBalance represents one entry of a balances snapshot
type TokenBalance struct {
	Address         string          `json:"address"`
	Symbol          string          `json:"symbol"`
	Name            string          `json:"name"`
	Decimals        int32           `json:"decimals"`
	DisplayDecimals int32           `json:"displayDecimals"`
	Amount          decimal.Decimal `json:"amount"` // fiat value
	Value           string          `json:"value"`  // native units
	ValueInWei      string          `json:"valueInWei"`
	RateInCurrency  decimal.Decimal `json:"rateInCurrency"`
	Currency        string          `json:"currency"`
	Native          bool            `json:"native"`
	Hide            bool            `json:"hide"`
	PriceChangePct  decimal.Decimal `json:"priceChangePct"`
}

// Wei returns the exact smallest-unit balance.
func (t TokenBalance) Wei() (*big.Int, error) {
	if t.ValueInWei == "" {
		return new(big.Int), nil
	}
	wei, ok := new(big.Int).SetString(t.ValueInWei, 10)
	if !ok {
		return nil, fmt.Errorf("invalid valueInWei %q for %s", t.ValueInWei, t.Symbol)
	}
	return wei, nil
}

// BalancesSnapshot is an ordered token list with at most one native entry
type BalancesSnapshot []TokenBalance

// Native returns the gas currency entry.
func (s BalancesSnapshot) Native() (TokenBalance, bool) {
	for _, t := range s {
		if t.Native {
			return t, true
		}
	}
	return TokenBalance{}, false
}

// ByAddress finds a token by contract address, case-insensitively.
func (s BalancesSnapshot) ByAddress(address string) (TokenBalance, bool) {
	for _, t := range s {
		if strings.EqualFold(t.Address, address) {
			return t, true
		}
	}
	return TokenBalance{}, false
}

// BySymbol finds the first token with the given symbol.
func (s BalancesSnapshot) BySymbol(symbol string) (TokenBalance, bool) {
	for _, t := range s {
		if t.Symbol == symbol {
			return t, true
		}
	}
	return TokenBalance{}, false
}

// Validate enforces the single native entry invariant.
func (s BalancesSnapshot) Validate() error {
	natives := 0
	for _, t := range s {
		if t.Native {
			natives++
		}
	}
	if natives > 1 {
		return fmt.Errorf("snapshot has %d native entries", natives)
	}
	return nil
}
