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

package provider

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrNotConnected = errors.New("wallet is not connected")
	ErrWrongChain   = errors.New("transaction targets a different chain")
	ErrUserRejected = errors.New("request rejected by wallet")
)

// ConnectionState is emitted to subscribers whenever the wallet connects,
// disconnects or switches account.
type ConnectionState struct {
	Connected bool
	Address   common.Address
	ChainID   uint64
}

// TransactionRequest is an EIP-1559 transfer. Zero Gas and nil fee caps are
// filled in by the wallet.
type TransactionRequest struct {
	To                   common.Address
	Value                *big.Int
	Data                 []byte
	Gas                  uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	ChainID              uint64
}

// Wallet is the capability set of a connected EVM account
type Wallet interface {
	Address() (common.Address, bool)
	IsConnected() bool
	ChainID() uint64
	SignMessage(ctx context.Context, message string) (string, error)
	SendTransaction(ctx context.Context, tx TransactionRequest) (common.Hash, error)
	Disconnect(ctx context.Context) error
	Subscribe(fn func(ConnectionState)) (unsubscribe func())
}

type notifier struct {
	mu     sync.Mutex
	nextId int
	subs   map[int]func(ConnectionState)
}

func (n *notifier) subscribe(fn func(ConnectionState)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]func(ConnectionState))
	}
	id := n.nextId
	n.nextId++
	n.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

// notify runs subscribers outside the lock so they may call back into the wallet.
func (n *notifier) notify(state ConnectionState) {
	n.mu.Lock()
	fns := make([]func(ConnectionState), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
