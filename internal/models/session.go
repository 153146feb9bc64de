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
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// StrategyKind names the backend an authenticated session is established against
type StrategyKind string

const (
	StrategyLoading        StrategyKind = "loading"
	StrategyHostedCustody  StrategyKind = "hosted"
	StrategyDirectProvider StrategyKind = "direct"
)

// ParseStrategyKind maps a configuration value to a selectable strategy kind
func ParseStrategyKind(value string) (StrategyKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "hosted", "hosted-custody", "privy":
		return StrategyHostedCustody, nil
	case "direct", "direct-provider", "eip1193", "wallet":
		return StrategyDirectProvider, nil
	default:
		return "", fmt.Errorf("unknown strategy %q", value)
	}
}

var errAuthenticatedWithoutAddress = errors.New("authenticated session requires an address")

// Session is the normalized descriptor of one (possibly pending) identity.
// Fields are unexported so an authenticated session without an address
// cannot be built outside the constructors below.
type Session struct {
	kind          StrategyKind
	ready         bool
	authenticated bool
	address       *common.Address
	authToken     string
}

// PendingSession is a session still being established.
func PendingSession(kind StrategyKind) Session {
	return Session{kind: kind}
}

// AnonymousSession is ready but not authenticated. A connected wallet address
// may be known before the challenge completes.
func AnonymousSession(kind StrategyKind, address *common.Address) Session {
	s := Session{kind: kind, ready: true}
	if address != nil {
		addr := *address
		s.address = &addr
	}
	return s
}

// AuthenticatedSession builds a ready, authenticated session.
func AuthenticatedSession(kind StrategyKind, address common.Address, authToken string) (Session, error) {
	if address == (common.Address{}) {
		return Session{}, errAuthenticatedWithoutAddress
	}
	if kind == StrategyDirectProvider && authToken == "" {
		return Session{}, errors.New("direct provider session requires an auth token")
	}
	return Session{
		kind:          kind,
		ready:         true,
		authenticated: true,
		address:       &address,
		authToken:     authToken,
	}, nil
}

func (s Session) Kind() StrategyKind { return s.kind }

func (s Session) Ready() bool { return s.ready }

// Authenticated is only meaningful once Ready reports true.
func (s Session) Authenticated() bool { return s.ready && s.authenticated }

// Address returns the session account, if any.
func (s Session) Address() (common.Address, bool) {
	if s.address == nil {
		return common.Address{}, false
	}
	return *s.address, true
}

// AddressHex returns the lowercase 0x-prefixed account or an empty string.
func (s Session) AddressHex() string {
	if s.address == nil {
		return ""
	}
	return NormalizeAddress(*s.address)
}

func (s Session) AuthToken() string { return s.authToken }

// Equal reports whether two sessions describe the same observable state.
func (s Session) Equal(other Session) bool {
	return s.kind == other.kind &&
		s.ready == other.ready &&
		s.authenticated == other.authenticated &&
		s.AddressHex() == other.AddressHex() &&
		s.authToken == other.authToken
}

// NormalizeAddress renders an address in the lowercase form used on the wire.
func NormalizeAddress(address common.Address) string {
	return strings.ToLower(address.Hex())
}

// ParseAddress validates and parses a 0x-prefixed 20 byte hex address.
func ParseAddress(value string) (common.Address, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "0x") && !strings.HasPrefix(value, "0X") {
		return common.Address{}, fmt.Errorf("address %q must be 0x-prefixed", value)
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid address %q", value)
	}
	return common.HexToAddress(value), nil
}

// Credentials is the persisted DirectProvider auth pair. A token is never
// valid without its nonce.
type Credentials struct {
	Token string
	Nonce string
}

// Valid reports whether both halves of the pair are present.
func (c Credentials) Valid() bool {
	return c.Token != "" && c.Nonce != ""
}
