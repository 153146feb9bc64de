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

package widget

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"glyph-wallet-go/internal/auth"
	"glyph-wallet-go/internal/cache"
	"glyph-wallet-go/internal/models"
	"glyph-wallet-go/internal/provider"
	"glyph-wallet-go/internal/transfer"
)

// Widget is the surface a host application embeds: session state, cached
// profile and balances, signing, and the send flow.
type Widget struct {
	auth  *auth.Manager
	data  *cache.SessionData
	chain transfer.Chain
	opts  transfer.Options

	unsubscribe func()
}

func New(manager *auth.Manager, c transfer.Chain, opts transfer.Options) *Widget {
	w := &Widget{
		auth:  manager,
		data:  cache.NewSessionData(manager),
		chain: c,
		opts:  opts,
	}
	// caches never outlive the session they were loaded for
	w.unsubscribe = manager.Subscribe(func(session models.Session) {
		if session.Ready() && !session.Authenticated() {
			w.data.Clear()
		}
	})
	return w
}

func (w *Widget) Session() models.Session { return w.auth.Session() }

func (w *Widget) Ready() bool { return w.auth.Session().Ready() }

func (w *Widget) Authenticated() bool { return w.auth.Session().Authenticated() }

func (w *Widget) User() *models.UserProfile { return w.data.User() }

func (w *Widget) Balances() models.BalancesSnapshot { return w.data.Balances() }

// Login authenticates and loads the profile and balances in parallel.
func (w *Widget) Login(ctx context.Context) error {
	if err := w.auth.Login(ctx); err != nil {
		return err
	}
	if err := w.Prime(ctx); err != nil {
		zap.L().Warn("Unable to load session data after login", zap.Error(err))
	}
	return nil
}

// Prime force-refreshes both caches concurrently.
func (w *Widget) Prime(ctx context.Context) error {
	if !w.Authenticated() {
		return auth.ErrNotAuthenticated
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := w.data.RefreshUser(gctx, true)
		return err
	})
	g.Go(func() error {
		_, err := w.data.RefreshBalances(gctx, true, nil)
		return err
	})
	return g.Wait()
}

// Logout ends the session and drops cached data.
func (w *Widget) Logout(ctx context.Context) error {
	err := w.auth.Logout(ctx)
	w.data.Clear()
	if err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	return nil
}

func (w *Widget) SignMessage(ctx context.Context, message string) (string, error) {
	return w.auth.SignMessage(ctx, message)
}

func (w *Widget) SendTransaction(ctx context.Context, tx provider.TransactionRequest) (common.Hash, error) {
	return w.auth.SendTransaction(ctx, tx)
}

func (w *Widget) RefreshUser(ctx context.Context, force bool) (*models.UserProfile, error) {
	return w.data.RefreshUser(ctx, force)
}

func (w *Widget) RefreshBalances(ctx context.Context, force bool, callbacks cache.DeltaCallbacks) (models.BalancesSnapshot, error) {
	return w.data.RefreshBalances(ctx, force, callbacks)
}

// NewSendFunds starts a send flow bound to the current session. Host
// callbacks set in opts override the widget defaults.
func (w *Widget) NewSendFunds(opts transfer.Options) *transfer.Pipeline {
	merged := w.opts
	if opts.OnChange != nil {
		merged.OnChange = opts.OnChange
	}
	if opts.OnPollError != nil {
		merged.OnPollError = opts.OnPollError
	}
	if opts.OnFinish != nil {
		merged.OnFinish = opts.OnFinish
	}
	if opts.OnViewActivity != nil {
		merged.OnViewActivity = opts.OnViewActivity
	}
	return transfer.New(w.chain, w.auth, w.data, merged)
}

func (w *Widget) Close() {
	if w.unsubscribe != nil {
		w.unsubscribe()
	}
	w.auth.Close()
}
