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

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"glyph-wallet-go/internal/api"
	"glyph-wallet-go/internal/models"
)

const (
	userKey     = "user"
	balancesKey = "balances"
)

// ErrSessionChanged is returned when the cache was cleared while a fetch
// was in flight; the fetched data is discarded.
var ErrSessionChanged = errors.New("session changed during refresh")

// ClientSource yields the authenticated API client of the active session.
type ClientSource interface {
	Client() *api.Client
}

// DeltaCallbacks maps a token symbol to a handler receiving the signed
// change of its fiat amount.
type DeltaCallbacks map[string]func(delta decimal.Decimal)

// SessionData caches the user profile and balances of the active session.
// Each cache has at most one fetch in flight; later callers share its result.
type SessionData struct {
	source ClientSource

	userFlight     singleflight.Group
	balancesFlight singleflight.Group

	mu         sync.RWMutex
	user       *models.UserProfile
	balances   models.BalancesSnapshot
	generation uint64

	// flights are numbered at start; a flight older than the last applied
	// write of its cache is superseded and never overwrites it
	userSeq, userApplied         uint64
	balancesSeq, balancesApplied uint64
}

func NewSessionData(source ClientSource) *SessionData {
	return &SessionData{source: source}
}

func (s *SessionData) client() (*api.Client, error) {
	client := s.source.Client()
	if client == nil {
		return nil, api.ErrUnauthenticated
	}
	return client, nil
}

func (s *SessionData) currentGeneration() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *SessionData) nextSeq(counter *uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	*counter++
	return *counter
}

// RefreshUser reloads the profile. Without force an in-flight fetch is
// awaited instead of issuing another. On failure the cached profile stays.
// A flight that lands after a newer one returns the newer profile.
func (s *SessionData) RefreshUser(ctx context.Context, force bool) (*models.UserProfile, error) {
	if force {
		s.userFlight.Forget(userKey)
	}
	generation := s.currentGeneration()

	v, err, _ := s.userFlight.Do(userKey, func() (interface{}, error) {
		seq := s.nextSeq(&s.userSeq)
		client, err := s.client()
		if err != nil {
			return nil, err
		}
		user, err := client.GetUser(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.generation != generation {
			return nil, ErrSessionChanged
		}
		if seq < s.userApplied && s.user != nil {
			zap.L().Debug("Dropping superseded user fetch", zap.Uint64("seq", seq))
			return s.user, nil
		}
		s.userApplied = seq
		s.user = user
		return user, nil
	})
	if err != nil {
		zap.L().Debug("User refresh failed", zap.Error(err))
		return nil, fmt.Errorf("unable to refresh user: %w", err)
	}

	user := *v.(*models.UserProfile)
	return &user, nil
}

type balancesResult struct {
	previous   models.BalancesSnapshot
	next       models.BalancesSnapshot
	superseded bool
}

// RefreshBalances reloads the balances snapshot with the same sharing rule
// as RefreshUser. Callbacks receive new minus old amount for every symbol
// present in both snapshots.
func (s *SessionData) RefreshBalances(ctx context.Context, force bool, callbacks DeltaCallbacks) (models.BalancesSnapshot, error) {
	if force {
		s.balancesFlight.Forget(balancesKey)
	}
	generation := s.currentGeneration()

	ran := false
	v, err, _ := s.balancesFlight.Do(balancesKey, func() (interface{}, error) {
		ran = true
		seq := s.nextSeq(&s.balancesSeq)
		client, err := s.client()
		if err != nil {
			return nil, err
		}
		next, err := client.GetBalances(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.RLock()
		previous, stale := s.balances, s.generation != generation
		superseded := seq < s.balancesApplied
		s.mu.RUnlock()
		if stale {
			return nil, ErrSessionChanged
		}
		if superseded {
			return s.supersededBalances(seq), nil
		}

		// Handlers run before the snapshot is replaced and outside the lock.
		notifyDeltas(previous, next, callbacks)

		s.mu.Lock()
		if s.generation != generation {
			s.mu.Unlock()
			return nil, ErrSessionChanged
		}
		if seq < s.balancesApplied {
			s.mu.Unlock()
			return s.supersededBalances(seq), nil
		}
		s.balancesApplied = seq
		s.balances = next
		s.mu.Unlock()
		return balancesResult{previous: previous, next: next}, nil
	})
	if err != nil {
		zap.L().Debug("Balances refresh failed", zap.Error(err))
		return nil, fmt.Errorf("unable to refresh balances: %w", err)
	}

	result := v.(balancesResult)
	if !ran && !result.superseded {
		notifyDeltas(result.previous, result.next, callbacks)
	}
	return copySnapshot(result.next), nil
}

// supersededBalances answers a flight that lost to a newer one with the
// snapshot that newer flight applied.
func (s *SessionData) supersededBalances(seq uint64) balancesResult {
	zap.L().Debug("Dropping superseded balances fetch", zap.Uint64("seq", seq))
	s.mu.RLock()
	defer s.mu.RUnlock()
	return balancesResult{next: s.balances, superseded: true}
}

func notifyDeltas(previous, next models.BalancesSnapshot, callbacks DeltaCallbacks) {
	if len(callbacks) == 0 || len(previous) == 0 {
		return
	}

	old := make(map[string]decimal.Decimal, len(previous))
	for _, token := range previous {
		if _, seen := old[token.Symbol]; !seen {
			old[token.Symbol] = token.Amount
		}
	}

	notified := make(map[string]bool, len(next))
	for _, token := range next {
		if notified[token.Symbol] {
			continue
		}
		before, ok := old[token.Symbol]
		if !ok {
			continue
		}
		notified[token.Symbol] = true
		if fn := callbacks[token.Symbol]; fn != nil {
			fn(token.Amount.Sub(before))
		}
	}
}

// User returns a copy of the cached profile, nil before the first refresh.
func (s *SessionData) User() *models.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	user := *s.user
	return &user
}

// Balances returns a copy of the cached snapshot.
func (s *SessionData) Balances() models.BalancesSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySnapshot(s.balances)
}

func (s *SessionData) Native() (models.TokenBalance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances.Native()
}

// Token looks up a token by contract address.
func (s *SessionData) Token(address string) (models.TokenBalance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances.ByAddress(address)
}

// Clear empties both caches. Fetches already in flight are discarded.
func (s *SessionData) Clear() {
	s.mu.Lock()
	s.user = nil
	s.balances = nil
	s.generation++
	s.mu.Unlock()

	s.userFlight.Forget(userKey)
	s.balancesFlight.Forget(balancesKey)
}

func copySnapshot(snapshot models.BalancesSnapshot) models.BalancesSnapshot {
	if snapshot == nil {
		return nil
	}
	out := make(models.BalancesSnapshot, len(snapshot))
	copy(out, snapshot)
	return out
}
