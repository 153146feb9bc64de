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
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"glyph-wallet-go/internal/cache"
	"glyph-wallet-go/internal/common"
	"glyph-wallet-go/internal/config"
	"glyph-wallet-go/internal/models"
	"glyph-wallet-go/internal/units"
	"glyph-wallet-go/internal/widget"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type balanceStats struct {
	totalTokens  int
	hiddenTokens int
	totalValue   decimal.Decimal
	currency     string
}

func printBalance(token models.TokenBalance, isLast bool) {
	symbol := common.BoxPrefix(isLast)
	amount := decimal.Zero
	if wei, err := token.Wei(); err == nil {
		amount = units.FromSmallestUnit(wei, token.Decimals)
	}
	kind := "token"
	if token.Native {
		kind = "native"
	}

	fmt.Printf("%s %-10s: %24s  %14s (%s, %s)\n",
		symbol,
		token.Symbol,
		units.Display(amount, token.DisplayDecimals).String(),
		common.FormatFiat(token.Amount, token.Currency),
		kind,
		common.ShortHash(token.Address))
}

func printBalances(session models.Session, snapshot models.BalancesSnapshot) balanceStats {
	stats := balanceStats{totalValue: decimal.Zero}

	visible := make(models.BalancesSnapshot, 0, len(snapshot))
	for _, token := range snapshot {
		stats.totalTokens++
		if token.Hide {
			stats.hiddenTokens++
			continue
		}
		visible = append(visible, token)
		stats.totalValue = stats.totalValue.Add(token.Amount)
		if stats.currency == "" {
			stats.currency = token.Currency
		}
	}

	fmt.Printf("\n┌─ Account: %s\n", session.AddressHex())
	fmt.Printf("│  Strategy: %s\n", session.Kind())
	fmt.Printf("│  Tokens: %d\n", len(visible))
	common.PrintBoxSeparator(78)
	for i, token := range visible {
		printBalance(token, i == len(visible)-1)
	}

	return stats
}

// watch refreshes balances on an interval and prints per-symbol changes.
func watch(ctx context.Context, w *widget.Widget, interval time.Duration, symbols []string) {
	callbacks := make(cache.DeltaCallbacks, len(symbols))
	for _, symbol := range symbols {
		symbol := symbol
		callbacks[symbol] = func(delta decimal.Decimal) {
			if delta.IsZero() {
				return
			}
			fmt.Printf("%s %s changed by %s\n", time.Now().Format("15:04:05"), symbol, delta.StringFixed(2))
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RefreshBalances(ctx, false, callbacks); err != nil {
				zap.L().Warn("Balance refresh failed", zap.Error(err))
			}
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	watchFlag := flag.Duration("watch", 0, "Keep refreshing at this interval and print fiat changes (optional)")
	flag.Parse()

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	w := services.Widget
	if !w.Authenticated() {
		logger.Fatal("No authenticated session, run login first")
	}

	snapshot, err := w.RefreshBalances(ctx, true, nil)
	if err != nil {
		logger.Fatal("Failed to fetch balances", zap.Error(err))
	}

	common.PrintHeader("BALANCE REPORT: "+services.ChainInfo.Name, common.DefaultWidth)
	stats := printBalances(w.Session(), snapshot)

	summary := fmt.Sprintf("SUMMARY: %d tokens (%d hidden), total %s",
		stats.totalTokens, stats.hiddenTokens, common.FormatFiat(stats.totalValue, stats.currency))
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("tokens", stats.totalTokens),
		zap.Int("hidden", stats.hiddenTokens))

	if *watchFlag > 0 {
		symbols := make([]string, 0, len(snapshot))
		for _, token := range snapshot {
			symbols = append(symbols, token.Symbol)
		}
		watch(ctx, w, *watchFlag, symbols)
	}
}
