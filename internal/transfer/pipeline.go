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

package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"glyph-wallet-go/internal/api"
	"glyph-wallet-go/internal/cache"
	"glyph-wallet-go/internal/models"
	"glyph-wallet-go/internal/provider"
	"glyph-wallet-go/internal/store"
)

// Step is a screen of the send flow
type Step string

const (
	StepEnterAddress Step = "ENTER_ADDRESS"
	StepEnterAmount  Step = "ENTER_AMOUNT"
	StepWait         Step = "WAIT"
	StepEnd          Step = "END"
)

const (
	DefaultQuoteInterval      = 5 * time.Second
	DefaultDebounce           = 500 * time.Millisecond
	DefaultStatusPollInterval = 10 * time.Second
)

// Sender is the session capability a transfer is submitted through.
type Sender interface {
	Session() models.Session
	SendTransaction(ctx context.Context, tx provider.TransactionRequest) (common.Hash, error)
	Client() *api.Client
}

// Balances is the cached balances view the flow reads and refreshes.
type Balances interface {
	Balances() models.BalancesSnapshot
	RefreshBalances(ctx context.Context, force bool, callbacks cache.DeltaCallbacks) (models.BalancesSnapshot, error)
}

type Options struct {
	ChainId            uint64
	QuoteInterval      time.Duration
	Debounce           time.Duration
	StatusPollInterval time.Duration
	// ExplorerURL is used to build a link when the server omits one.
	ExplorerURL  string
	ExplorerName string
	// Activity records submitted transfers when set.
	Activity store.TransferStore

	OnChange       func(State)
	OnPollError    func(error)
	OnFinish       func()
	OnViewActivity func()
}

func (o Options) withDefaults() Options {
	if o.QuoteInterval <= 0 {
		o.QuoteInterval = DefaultQuoteInterval
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.StatusPollInterval <= 0 {
		o.StatusPollInterval = DefaultStatusPollInterval
	}
	return o
}

// State is a snapshot of the flow for rendering.
type State struct {
	Step         Step
	Recipient    string
	Token        *models.TokenBalance
	Input        string
	Max          bool
	MaxBalance   bool
	Quote        *models.SendFundQuote
	Err          error
	Hash         string
	Status       models.TransferStatus
	ExplorerUrl  string
	ExplorerName string
}

// ErrorMessage is the inline message for Err.
func (s State) ErrorMessage() string {
	if s.Err == nil {
		return ""
	}
	for _, known := range []error{ErrEstimateGas, ErrInsufficientGas, ErrSendFailed, ErrRequestRejected, ErrMaxBalance} {
		if errors.Is(s.Err, known) {
			return known.Error()
		}
	}
	return s.Err.Error()
}

// CanSend reports whether the confirm action is enabled.
func (s State) CanSend() bool {
	return s.Step == StepEnterAmount && s.Quote != nil && s.Err == nil && !s.MaxBalance && s.Input != ""
}

// Pipeline runs one send: address entry, amount entry with a live quote,
// submission, then status polling until the transfer settles.
type Pipeline struct {
	quoter   *Quoter
	chain    Chain
	sender   Sender
	balances Balances
	opts     Options

	signing atomic.Bool

	mu         sync.Mutex
	step       Step
	recipient  *common.Address
	token      *models.TokenBalance
	input      string
	debounced  string
	max        bool
	maxBalance bool
	quote      *models.SendFundQuote
	err        error
	blocked    bool // last quote failed; wait for new inputs
	version    uint64
	hash       common.Hash
	record     *models.TransferRecord

	debounceTimer *time.Timer
	kick          chan struct{}
	quoteLoop     *loop
	pollLoop      *loop
	done          chan struct{}
	closed        bool
}

func New(c Chain, sender Sender, balances Balances, opts Options) *Pipeline {
	return &Pipeline{
		quoter:   NewQuoter(c),
		chain:    c,
		sender:   sender,
		balances: balances,
		opts:     opts.withDefaults(),
		step:     StepEnterAddress,
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// State returns the current snapshot.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

func (p *Pipeline) stateLocked() State {
	s := State{
		Step:       p.step,
		Input:      p.input,
		Max:        p.max,
		MaxBalance: p.maxBalance,
		Err:        p.err,
	}
	if p.recipient != nil {
		s.Recipient = models.NormalizeAddress(*p.recipient)
	}
	if p.token != nil {
		token := *p.token
		s.Token = &token
	}
	if p.quote != nil {
		quote := *p.quote
		s.Quote = &quote
	}
	if p.hash != (common.Hash{}) {
		s.Hash = p.hash.Hex()
	}
	if p.record != nil {
		s.Status = p.record.Status
		s.ExplorerUrl = p.record.BlockExplorerUrl
		s.ExplorerName = p.record.BlockExplorerName
	}
	return s
}

// Done is closed once the flow reaches StepEnd.
func (p *Pipeline) Done() <-chan struct{} { return p.done }

func (p *Pipeline) notify() {
	if p.opts.OnChange == nil {
		return
	}
	p.opts.OnChange(p.State())
}

// invalidateLocked discards the quote and any pending recomputation. Every
// input change goes through here before a new quote can be computed.
func (p *Pipeline) invalidateLocked() {
	p.version++
	p.quote = nil
	p.blocked = false
	if p.err != nil && !errors.Is(p.err, ErrMaxBalance) {
		p.err = nil
	}
	if p.debounceTimer != nil {
		p.debounceTimer.Stop()
		p.debounceTimer = nil
	}
}

// EnterAddress validates the recipient and moves to amount entry. The
// native token is selected when nothing is selected yet.
func (p *Pipeline) EnterAddress(value string) error {
	recipient, err := models.ParseAddress(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	p.mu.Lock()
	if p.step != StepEnterAddress && p.step != StepEnterAmount {
		p.mu.Unlock()
		return ErrInvalidState
	}
	p.invalidateLocked()
	p.recipient = &recipient
	if p.token == nil {
		if native, ok := p.balances.Balances().Native(); ok {
			p.token = &native
		}
	}
	p.step = StepEnterAmount
	if p.quoteLoop == nil && !p.closed {
		p.quoteLoop = startLoop(p.opts.QuoteInterval, p.kick, p.quoteTick)
	}
	pending := p.debounced != ""
	p.mu.Unlock()

	if pending {
		p.trigger()
	}
	p.notify()
	return nil
}

// Back returns from amount entry to address entry.
func (p *Pipeline) Back() error {
	p.mu.Lock()
	if p.step != StepEnterAmount {
		p.mu.Unlock()
		return ErrInvalidState
	}
	p.invalidateLocked()
	p.step = StepEnterAddress
	quoteLoop := p.quoteLoop
	p.quoteLoop = nil
	p.mu.Unlock()

	quoteLoop.stop()
	p.notify()
	return nil
}

// SelectToken switches the asset by contract address; an empty address
// selects the native token. The amount is reset.
func (p *Pipeline) SelectToken(address string) error {
	snapshot := p.balances.Balances()

	var (
		token models.TokenBalance
		ok    bool
	)
	if address == "" {
		token, ok = snapshot.Native()
	} else {
		token, ok = snapshot.ByAddress(address)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoToken, address)
	}

	p.mu.Lock()
	if p.step != StepEnterAddress && p.step != StepEnterAmount {
		p.mu.Unlock()
		return ErrInvalidState
	}
	p.invalidateLocked()
	p.token = &token
	p.input, p.debounced = "", ""
	p.max, p.maxBalance = false, false
	p.err = nil
	p.mu.Unlock()

	p.notify()
	return nil
}

// SetAmount applies a keystroke-level input. Input over the balance is
// rejected once with ErrMaxBalance; a second attempt is accepted so the
// field cannot lock up, and the flag clears once the input fits again.
func (p *Pipeline) SetAmount(input string) error {
	value, err := NormalizeAmount(input)
	if err != nil {
		return err
	}
	amount, err := ParseAmount(value)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if p.step != StepEnterAmount {
		p.mu.Unlock()
		return ErrInvalidState
	}
	if p.token == nil {
		p.mu.Unlock()
		return ErrNoToken
	}
	if fractionDigits(value) > int(p.token.Decimals) {
		p.mu.Unlock()
		return fmt.Errorf("%w: more than %d decimals", ErrInvalidAmount, p.token.Decimals)
	}
	_, balance, err := tokenBalance(*p.token)
	if err != nil {
		p.mu.Unlock()
		return err
	}

	if amount.GreaterThan(balance) {
		if !p.maxBalance {
			p.maxBalance = true
			p.err = ErrMaxBalance
			p.mu.Unlock()
			p.notify()
			return ErrMaxBalance
		}
	} else if p.maxBalance {
		p.maxBalance = false
		p.err = nil
	}

	p.invalidateLocked()
	p.input = value
	p.max = false
	version := p.version
	p.debounceTimer = time.AfterFunc(p.opts.Debounce, func() {
		p.mu.Lock()
		if p.version != version {
			p.mu.Unlock()
			return
		}
		p.debounced = value
		p.debounceTimer = nil
		p.version++
		p.mu.Unlock()
		p.trigger()
	})
	p.mu.Unlock()

	p.notify()
	return nil
}

// ToggleMax fills the input with the full balance and requests a quote right
// away. Pressing it again clears the input.
func (p *Pipeline) ToggleMax() error {
	p.mu.Lock()
	if p.step != StepEnterAmount {
		p.mu.Unlock()
		return ErrInvalidState
	}
	if p.token == nil {
		p.mu.Unlock()
		return ErrNoToken
	}

	p.invalidateLocked()
	p.maxBalance = false
	p.err = nil
	if p.max {
		p.max = false
		p.input, p.debounced = "", ""
		p.mu.Unlock()
		p.notify()
		return nil
	}

	_, balance, err := tokenBalance(*p.token)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.max = true
	p.input = balance.String()
	p.debounced = p.input
	p.mu.Unlock()

	p.trigger()
	p.notify()
	return nil
}

func (p *Pipeline) trigger() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

func (p *Pipeline) quoteTick(ctx context.Context) bool {
	if err := p.RefreshQuote(ctx); err != nil {
		zap.L().Debug("Quote refresh failed", zap.Error(err))
	}
	return true
}

// RefreshQuote runs one quote cycle. It does nothing unless recipient,
// token and a non-zero settled amount are present, no signature is pending,
// the balance flag is clear and the last cycle did not fail on the same
// inputs. Results for inputs that changed meanwhile are dropped.
func (p *Pipeline) RefreshQuote(ctx context.Context) error {
	p.mu.Lock()
	if p.step != StepEnterAmount || p.recipient == nil || p.token == nil ||
		p.signing.Load() || p.maxBalance || p.blocked {
		p.mu.Unlock()
		return nil
	}
	// the input is still settling
	if p.debounced != p.input {
		p.mu.Unlock()
		return nil
	}
	amount, err := ParseAmount(p.debounced)
	if err != nil || !amount.IsPositive() {
		p.mu.Unlock()
		return nil
	}

	from, ok := p.sender.Session().Address()
	if !ok {
		p.mu.Unlock()
		return ErrNoAccount
	}
	native, ok := p.balances.Balances().Native()
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("%w: no native balance", ErrInsufficientGas)
	}

	req := QuoteRequest{
		From:   from,
		To:     *p.recipient,
		Token:  *p.token,
		Native: native,
		Amount: amount,
		Input:  p.debounced,
		Max:    p.max,
	}
	version := p.version
	p.mu.Unlock()

	quote, err := p.quoter.Quote(ctx, req)

	p.mu.Lock()
	if p.version != version || p.step != StepEnterAmount {
		p.mu.Unlock()
		return nil
	}
	if err != nil {
		p.quote = nil
		p.err = err
		p.blocked = true
	} else {
		p.quote = quote
		p.err = nil
	}
	p.mu.Unlock()

	p.notify()
	return err
}

// Send submits the quoted transfer and starts tracking it. Failures keep
// the flow on amount entry with an inline error.
func (p *Pipeline) Send(ctx context.Context) error {
	p.mu.Lock()
	state := p.stateLocked()
	if !state.CanSend() || p.recipient == nil || p.token == nil || p.quote.InAmount != p.input {
		p.mu.Unlock()
		return ErrSendDisabled
	}
	amount, err := ParseAmount(p.input)
	if err != nil || !amount.IsPositive() {
		p.mu.Unlock()
		return ErrSendDisabled
	}
	tokenWei, _, err := tokenBalance(*p.token)
	if err != nil || p.quote.ReceivableAmount.Cmp(tokenWei) > 0 {
		p.mu.Unlock()
		return ErrSendDisabled
	}
	if !p.signing.CAS(false, true) {
		p.mu.Unlock()
		return ErrSendDisabled
	}
	defer p.signing.Store(false)

	quote := *p.quote
	recipient := *p.recipient
	token := *p.token
	p.mu.Unlock()

	hash, err := p.submit(ctx, quote, recipient, token)
	if err != nil {
		return p.failSend(ErrRequestRejected, err)
	}

	client := p.sender.Client()
	if client == nil {
		return p.failSend(ErrSendFailed, api.ErrUnauthenticated)
	}
	if err := client.RegisterTransaction(ctx, hash.Hex(), p.opts.ChainId); err != nil {
		return p.failSend(ErrSendFailed, err)
	}

	zap.L().Info("Transfer submitted",
		zap.String("hash", hash.Hex()),
		zap.String("token", token.Symbol),
		zap.String("to", models.NormalizeAddress(recipient)),
		zap.String("amount_wei", quote.ReceivableAmount.String()))

	p.recordActivity(ctx, hash, recipient, token, quote)

	p.mu.Lock()
	p.invalidateLocked()
	p.step = StepWait
	p.hash = hash
	p.record = &models.TransferRecord{Status: models.TransferPending}
	quoteLoop := p.quoteLoop
	p.quoteLoop = nil
	if !p.closed {
		p.pollLoop = startLoop(p.opts.StatusPollInterval, nil, p.pollTick)
	}
	p.mu.Unlock()

	quoteLoop.stop()
	p.notify()
	return nil
}

func (p *Pipeline) submit(ctx context.Context, quote models.SendFundQuote, recipient common.Address, token models.TokenBalance) (common.Hash, error) {
	if token.Native {
		return p.sender.SendTransaction(ctx, provider.TransactionRequest{
			To:                   recipient,
			Value:                quote.ReceivableAmount,
			MaxFeePerGas:         quote.MaxFeePerGas,
			MaxPriorityFeePerGas: quote.MaxPriorityFeePerGas,
			ChainID:              p.opts.ChainId,
		})
	}

	from, ok := p.sender.Session().Address()
	if !ok {
		return common.Hash{}, ErrNoAccount
	}
	contract, err := models.ParseAddress(token.Address)
	if err != nil {
		return common.Hash{}, err
	}
	call, err := p.chain.SimulateTokenTransfer(ctx, from, contract, recipient, quote.ReceivableAmount)
	if err != nil {
		return common.Hash{}, err
	}

	// gas is left unset so the wallet computes it
	return p.sender.SendTransaction(ctx, provider.TransactionRequest{
		To:                   call.Token,
		Data:                 call.Data,
		MaxFeePerGas:         call.Fees.MaxFeePerGas,
		MaxPriorityFeePerGas: call.Fees.MaxPriorityFeePerGas,
		ChainID:              p.opts.ChainId,
	})
}

func (p *Pipeline) failSend(kind, cause error) error {
	zap.L().Warn("Transfer failed", zap.String("reason", kind.Error()), zap.Error(cause))
	err := fmt.Errorf("%w: %v", kind, cause)

	p.mu.Lock()
	p.err = err
	p.blocked = true
	p.mu.Unlock()

	p.notify()
	return err
}

func (p *Pipeline) recordActivity(ctx context.Context, hash common.Hash, recipient common.Address, token models.TokenBalance, quote models.SendFundQuote) {
	if p.opts.Activity == nil {
		return
	}
	from, _ := p.sender.Session().Address()
	err := p.opts.Activity.RecordTransfer(ctx, models.TransferActivity{
		Hash:      hash.Hex(),
		ChainId:   p.opts.ChainId,
		From:      models.NormalizeAddress(from),
		To:        models.NormalizeAddress(recipient),
		Token:     token.Symbol,
		AmountWei: quote.ReceivableAmount.String(),
		Status:    models.TransferPending,
	})
	if err != nil {
		zap.L().Warn("Unable to record transfer activity", zap.String("hash", hash.Hex()), zap.Error(err))
	}
}

// pollTick checks the transfer status once and reports whether polling
// should continue. Failures are reported and retried on the next tick.
func (p *Pipeline) pollTick(ctx context.Context) bool {
	p.mu.Lock()
	if p.step != StepWait {
		p.mu.Unlock()
		return false
	}
	hash := p.hash
	p.mu.Unlock()

	record, err := p.fetchStatus(ctx, hash)
	if err != nil {
		zap.L().Warn("Transfer status poll failed", zap.String("hash", hash.Hex()), zap.Error(err))
		if p.opts.OnPollError != nil {
			p.opts.OnPollError(err)
		}
		return true
	}
	if !record.Status.Terminal() {
		return true
	}

	if record.BlockExplorerUrl == "" && p.opts.ExplorerURL != "" {
		record.BlockExplorerUrl = strings.TrimSuffix(p.opts.ExplorerURL, "/") + "/tx/" + hash.Hex()
		if record.BlockExplorerName == "" {
			record.BlockExplorerName = p.opts.ExplorerName
		}
	}

	if _, err := p.balances.RefreshBalances(ctx, true, nil); err != nil {
		zap.L().Warn("Balance refresh after transfer failed", zap.Error(err))
	}

	if p.opts.Activity != nil {
		if err := p.opts.Activity.UpdateTransferStatus(ctx, hash.Hex(), record.Status, record.BlockExplorerUrl); err != nil {
			zap.L().Warn("Unable to update transfer activity", zap.String("hash", hash.Hex()), zap.Error(err))
		}
	}

	p.mu.Lock()
	if p.step != StepWait {
		p.mu.Unlock()
		return false
	}
	p.step = StepEnd
	p.record = record
	p.pollLoop = nil
	close(p.done)
	p.mu.Unlock()

	zap.L().Info("Transfer settled", zap.String("hash", hash.Hex()), zap.String("status", string(record.Status)))
	p.notify()
	return false
}

func (p *Pipeline) fetchStatus(ctx context.Context, hash common.Hash) (*models.TransferRecord, error) {
	client := p.sender.Client()
	if client == nil {
		return nil, api.ErrUnauthenticated
	}
	return client.GetTransaction(ctx, hash.Hex())
}

// Finish forces a balance refresh and hands control back to the host.
func (p *Pipeline) Finish(ctx context.Context) error {
	return p.exit(ctx, true, p.opts.OnFinish)
}

// ViewActivity refreshes balances without forcing and opens the activity view.
func (p *Pipeline) ViewActivity(ctx context.Context) error {
	return p.exit(ctx, false, p.opts.OnViewActivity)
}

func (p *Pipeline) exit(ctx context.Context, force bool, callback func()) error {
	if p.State().Step != StepEnd {
		return ErrInvalidState
	}
	_, err := p.balances.RefreshBalances(ctx, force, nil)
	if err != nil {
		zap.L().Warn("Balance refresh failed", zap.Error(err))
	}
	if callback != nil {
		callback()
	}
	return err
}

// Close stops background work. It is safe to call more than once.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	if p.debounceTimer != nil {
		p.debounceTimer.Stop()
		p.debounceTimer = nil
	}
	quoteLoop, pollLoop := p.quoteLoop, p.pollLoop
	p.quoteLoop, p.pollLoop = nil, nil
	p.mu.Unlock()

	quoteLoop.stop()
	pollLoop.stop()
}
