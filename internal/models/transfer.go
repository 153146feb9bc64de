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
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// SendFundQuote is the recomputed estimate of a transfer. On-chain values are
// integers in the smallest unit; the rest are display values.
type SendFundQuote struct {
	TokenAddress               string          `json:"tokenAddress"`
	ReceivableAmount           *big.Int        `json:"receivable_amount"`
	ReceivableAmountInToken    decimal.Decimal `json:"receivable_amount_in_token"`
	ReceivableAmountInCurrency decimal.Decimal `json:"receivable_amount_in_currency"`
	EstimatedFeesAmount        decimal.Decimal `json:"estimated_fees_amount"`
	EstimatedFeesInCurrency    decimal.Decimal `json:"estimated_fees_amount_in_currency"`
	Currency                   string          `json:"currency"`
	InAmount                   string          `json:"in_amount"`
	ReceiverAddress            common.Address  `json:"receiver_address"`
	MaxPriorityFeePerGas       *big.Int        `json:"maxPriorityFeePerGas"`
	MaxFeePerGas               *big.Int        `json:"maxFeePerGas"`
	GasLimit                   uint64          `json:"gasLimit"`
}

// TransferStatus is the server-side tracking status of a submitted transfer
type TransferStatus string

const (
	TransferPending TransferStatus = "PENDING"
	TransferSuccess TransferStatus = "SUCCESS"
	TransferFailed  TransferStatus = "FAILED"
)

// Terminal reports whether polling can stop.
func (s TransferStatus) Terminal() bool {
	return s != TransferPending && s != ""
}

// TransferRecord is the status endpoint payload
type TransferRecord struct {
	Status            TransferStatus `json:"status"`
	BlockExplorerUrl  string         `json:"blockExplorerUrl,omitempty"`
	BlockExplorerName string         `json:"blockExplorerName,omitempty"`
}

// TransferActivity is the locally kept history entry of a submitted transfer
type TransferActivity struct {
	Id          string         `db:"id"`
	Hash        string         `db:"hash"`
	ChainId     uint64         `db:"chain_id"`
	From        string         `db:"from_address"`
	To          string         `db:"to_address"`
	Token       string         `db:"token_symbol"`
	AmountWei   string         `db:"amount_wei"`
	Status      TransferStatus `db:"status"`
	ExplorerUrl string         `db:"explorer_url"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}
