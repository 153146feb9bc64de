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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"glyph-wallet-go/internal/models"
)

const (
	defaultApiBaseURL = "https://useglyph.io"
	defaultChainId    = 33139 // ApeChain
)

func Load() (*models.Config, error) {
	apiTimeout, err := getEnvDuration("GLYPH_HTTP_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	strategy, err := models.ParseStrategyKind(getEnvString("GLYPH_STRATEGY", "direct"))
	if err != nil {
		return nil, fmt.Errorf("invalid GLYPH_STRATEGY: %w", err)
	}

	chainId, err := getEnvUint("GLYPH_CHAIN_ID", defaultChainId)
	if err != nil {
		return nil, err
	}

	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	quoteInterval, err := getEnvDuration("QUOTE_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}

	quoteDebounce, err := getEnvDuration("QUOTE_DEBOUNCE", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}

	statusPollInterval, err := getEnvDuration("STATUS_POLL_INTERVAL", 10*time.Second)
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Api: models.ApiConfig{
			BaseURL: getEnvString("GLYPH_API_BASE_URL", defaultApiBaseURL),
			Timeout: apiTimeout,
		},
		Auth: models.AuthConfig{
			Strategy: strategy,
			AppId:    getEnvString("GLYPH_APP_ID", ""),
		},
		Chain: models.ChainConfig{
			ChainId:    chainId,
			RpcURL:     getEnvString("GLYPH_RPC_URL", ""),
			ChainsFile: getEnvString("GLYPH_CHAINS_FILE", "chains.yaml"),
		},
		Database: models.DatabaseConfig{
			Path:            getEnvString("SESSION_DB_PATH", "glyph-session.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 4),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: connMaxLifetime,
			PingTimeout:     pingTimeout,
		},
		Transfer: models.TransferConfig{
			QuoteInterval:      quoteInterval,
			QuoteDebounce:      quoteDebounce,
			StatusPollInterval: statusPollInterval,
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvUint(key string, defaultValue uint64) (uint64, error) {
	if value := os.Getenv(key); value != "" {
		uintValue, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid unsigned integer for %s: %q (%w)", key, value, err)
		}
		return uintValue, nil
	}
	return defaultValue, nil
}
