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

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"glyph-wallet-go/internal/common"
	"glyph-wallet-go/internal/config"
	"glyph-wallet-go/internal/models"
	"glyph-wallet-go/internal/transfer"

	"go.uber.org/zap"
)

type sendRequest struct {
	to      string
	amount  string
	token   string
	max     bool
	yes     bool
	timeout time.Duration
}

func parseAndValidateFlags() (*sendRequest, error) {
	toFlag := flag.String("to", "", "Recipient address (required)")
	amountFlag := flag.String("amount", "", "Amount to send, in token units")
	tokenFlag := flag.String("token", "", "Token symbol or contract address (default: native token)")
	maxFlag := flag.Bool("max", false, "Send the full balance")
	yesFlag := flag.Bool("yes", false, "Skip the confirmation prompt")
	timeoutFlag := flag.Duration("timeout", 10*time.Minute, "Give up waiting for the transfer after this long")
	flag.Parse()

	if *toFlag == "" {
		return nil, errors.New("--to is required")
	}
	if *amountFlag == "" && !*maxFlag {
		return nil, errors.New("one of --amount or --max is required")
	}
	if *amountFlag != "" && *maxFlag {
		return nil, errors.New("--amount and --max are mutually exclusive")
	}

	return &sendRequest{
		to:      *toFlag,
		amount:  *amountFlag,
		token:   *tokenFlag,
		max:     *maxFlag,
		yes:     *yesFlag,
		timeout: *timeoutFlag,
	}, nil
}

// resolveToken maps a symbol or address to the contract address the flow
// selects by. An empty result selects the native token.
func resolveToken(snapshot models.BalancesSnapshot, value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if token, ok := snapshot.ByAddress(value); ok {
		return tokenAddress(token), nil
	}
	if token, ok := snapshot.BySymbol(strings.ToUpper(value)); ok {
		return tokenAddress(token), nil
	}
	return "", fmt.Errorf("token %s not found in balances", value)
}

func tokenAddress(token models.TokenBalance) string {
	if token.Native {
		return ""
	}
	return token.Address
}

// waitFor blocks until cond holds for a reported state or ctx ends.
func waitFor(ctx context.Context, changes <-chan transfer.State, cond func(transfer.State) bool) (transfer.State, error) {
	for {
		select {
		case <-ctx.Done():
			return transfer.State{}, ctx.Err()
		case state := <-changes:
			if cond(state) {
				return state, nil
			}
		}
	}
}

func printQuoteSummary(state transfer.State, chainName, nativeSymbol string) {
	quote := state.Quote
	common.PrintHeader("SEND FUNDS", common.DefaultWidth)
	fmt.Printf("Chain:             %s\n", chainName)
	fmt.Printf("Recipient:         %s\n", state.Recipient)
	fmt.Printf("Token:             %s\n", state.Token.Symbol)
	fmt.Printf("Amount:            %s %s\n", quote.ReceivableAmountInToken.String(), state.Token.Symbol)
	fmt.Printf("Value:             %s\n", common.FormatFiat(quote.ReceivableAmountInCurrency, quote.Currency))
	fmt.Printf("Estimated fees:    %s %s (%s)\n",
		quote.EstimatedFeesAmount.String(), nativeSymbol, common.FormatFiat(quote.EstimatedFeesInCurrency, quote.Currency))
	fmt.Printf("Gas limit:         %d\n", quote.GasLimit)
	common.PrintSeparator("=", common.DefaultWidth)
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req, err := parseAndValidateFlags()
	if err != nil {
		zap.L().Fatal("Invalid flags", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	zap.L().Info("Initializing services")
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	w := services.Widget
	if !w.Authenticated() {
		zap.L().Fatal("No authenticated session, run login first")
	}

	snapshot, err := w.RefreshBalances(ctx, true, nil)
	if err != nil {
		zap.L().Fatal("Failed to fetch balances", zap.Error(err))
	}
	token, err := resolveToken(snapshot, req.token)
	if err != nil {
		zap.L().Fatal("Invalid token", zap.Error(err))
	}

	changes := make(chan transfer.State, 32)
	pipeline := w.NewSendFunds(transfer.Options{
		OnChange: func(state transfer.State) {
			select {
			case changes <- state:
			default:
			}
		},
		OnPollError: func(err error) {
			fmt.Printf("Status check failed, retrying: %v\n", err)
		},
	})
	defer pipeline.Close()

	if err := pipeline.EnterAddress(req.to); err != nil {
		zap.L().Fatal("Invalid recipient", zap.String("to", req.to), zap.Error(err))
	}
	if err := pipeline.SelectToken(token); err != nil {
		zap.L().Fatal("Unable to select token", zap.Error(err))
	}
	if req.max {
		err = pipeline.ToggleMax()
	} else {
		err = pipeline.SetAmount(req.amount)
	}
	if err != nil {
		zap.L().Fatal("Invalid amount", zap.String("amount", req.amount), zap.Error(err))
	}

	quoteCtx, cancelQuote := context.WithTimeout(ctx, time.Minute)
	state, err := waitFor(quoteCtx, changes, func(s transfer.State) bool {
		return s.Quote != nil || s.Err != nil
	})
	cancelQuote()
	if err != nil {
		zap.L().Fatal("No quote received", zap.Error(err))
	}
	if state.Err != nil {
		fmt.Printf("\n❌ %s\n", state.ErrorMessage())
		zap.L().Fatal("Quote failed", zap.Error(state.Err))
	}

	printQuoteSummary(state, services.ChainInfo.Name, services.ChainInfo.NativeSymbol)
	if !req.yes && !confirm("Send this transfer?") {
		fmt.Println("Cancelled")
		return
	}

	fmt.Println("🔄 Waiting for signature...")
	if err := pipeline.Send(ctx); err != nil {
		fmt.Printf("\n❌ %s\n", pipeline.State().ErrorMessage())
		zap.L().Fatal("Send failed", zap.Error(err))
	}
	sent := pipeline.State()
	fmt.Printf("✅ Submitted %s\n", sent.Hash)

	waitCtx, cancelWait := context.WithTimeout(ctx, req.timeout)
	defer cancelWait()
	select {
	case <-pipeline.Done():
	case <-waitCtx.Done():
		fmt.Printf("Transfer still pending after %s, check activity later\n", req.timeout)
		return
	}

	final := pipeline.State()
	common.PrintHeader("TRANSFER "+string(final.Status), common.DefaultWidth)
	fmt.Printf("Hash:     %s\n", final.Hash)
	if final.ExplorerUrl != "" {
		fmt.Printf("Explorer: %s (%s)\n", final.ExplorerUrl, final.ExplorerName)
	}
	common.PrintSeparator("=", common.DefaultWidth)

	if err := pipeline.Finish(ctx); err != nil {
		zap.L().Warn("Balance refresh after transfer failed", zap.Error(err))
	}

	zap.L().Info("Send completed",
		zap.String("hash", final.Hash),
		zap.String("status", string(final.Status)))
}
