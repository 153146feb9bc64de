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

	"glyph-wallet-go/internal/common"
	"glyph-wallet-go/internal/config"
	"glyph-wallet-go/internal/models"

	"go.uber.org/zap"
)

func printSession(session models.Session, user *models.UserProfile) {
	common.PrintHeader("GLYPH SESSION", common.DefaultWidth)
	fmt.Printf("Strategy:      %s\n", session.Kind())
	fmt.Printf("Ready:         %t\n", session.Ready())
	fmt.Printf("Authenticated: %t\n", session.Authenticated())
	fmt.Printf("Address:       %s\n", common.ShortHash(session.AddressHex()))
	if user != nil {
		fmt.Printf("Name:          %s\n", user.Name)
		fmt.Printf("Profile:       %t (complete: %t)\n", user.HasProfile, user.ProfileComplete)
	}
	common.PrintSeparator("=", common.DefaultWidth)
}

func main() {
	ctx := context.Background()

	logoutFlag := flag.Bool("logout", false, "Clear the persisted session and disconnect the wallet")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	w := services.Widget

	if *logoutFlag {
		if err := w.Logout(ctx); err != nil {
			zap.L().Fatal("Logout failed", zap.Error(err))
		}
		fmt.Println("Logged out")
		return
	}

	if w.Authenticated() {
		zap.L().Info("Restored persisted session", zap.String("address", w.Session().AddressHex()))
		if err := w.Prime(ctx); err != nil {
			zap.L().Warn("Failed to refresh session data", zap.Error(err))
		}
	} else {
		zap.L().Info("Signing in", zap.String("strategy", string(w.Session().Kind())))
		if err := w.Login(ctx); err != nil {
			zap.L().Fatal("Login failed", zap.Error(err))
		}
	}

	printSession(w.Session(), w.User())
}
