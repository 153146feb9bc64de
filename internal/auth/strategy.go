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

package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"glyph-wallet-go/internal/api"
	"glyph-wallet-go/internal/models"
	"glyph-wallet-go/internal/provider"
)

var (
	ErrNoAccount        = errors.New("no account could be resolved for the session")
	ErrNotConnected     = errors.New("wallet is not connected")
	ErrNotAuthenticated = errors.New("session is not authenticated")
	ErrNotReady         = errors.New("session is not ready")
	ErrUnknownStrategy  = errors.New("unknown strategy")
)

// Strategy establishes a session against one identity backend and exposes
// the capability set bound to it.
type Strategy interface {
	Kind() models.StrategyKind
	Session() models.Session
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	SignMessage(ctx context.Context, message string) (string, error)
	SendTransaction(ctx context.Context, tx provider.TransactionRequest) (common.Hash, error)
	// Client is the authenticated API client, nil unless authenticated.
	Client() *api.Client
	Subscribe(fn func(models.Session)) (unsubscribe func())
	Close()
}

// listeners fans session changes out to subscribers
type listeners struct {
	mu     sync.Mutex
	nextId int
	fns    map[int]func(models.Session)
}

func (l *listeners) add(fn func(models.Session)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(models.Session))
	}
	id := l.nextId
	l.nextId++
	l.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

func (l *listeners) emit(session models.Session) {
	l.mu.Lock()
	fns := make([]func(models.Session), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(session)
	}
}
