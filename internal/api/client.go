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

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

const (
	headerRequestId = "x-request-id"
	maxErrorBody    = 64 * 1024
)

// Error is a non-2xx answer from the widget API
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("widget api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("widget api returned status %d: %s", e.StatusCode, e.Message)
}

// Authorizer decorates outgoing requests with credentials. It runs on every
// call so per-call token sources are never cached.
type Authorizer interface {
	Authorize(ctx context.Context, req *http.Request) error
}

// Client is the widget API fetcher. An unauthenticated Client can reach the
// public auth endpoints only; authenticated capability bundles are derived
// with WithAuthorizer.
type Client struct {
	baseURL    string
	httpClient *http.Client
	auth       Authorizer
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// WithAuthorizer returns a new Client sharing the transport but bound to auth.
func (c *Client) WithAuthorizer(auth Authorizer) *Client {
	return &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		auth:       auth,
	}
}

// Authenticated reports whether the client carries credentials.
func (c *Client) Authenticated() bool {
	return c != nil && c.auth != nil
}

func (c *Client) BaseURL() string { return c.baseURL }

// NewHttpClient builds the shared transport used by every Client.
func NewHttpClient(timeout time.Duration) (*http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, fmt.Errorf("unable to configure http2 transport: %w", err)
	}

	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

// Do performs one JSON round trip. body and out may be nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("unable to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("unable to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestId := uuid.New().String()
	req.Header.Set(headerRequestId, requestId)

	if c.auth != nil {
		if err := c.auth.Authorize(ctx, req); err != nil {
			return fmt.Errorf("unable to authorize request: %w", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		zap.L().Debug("Widget API request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestId),
			zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &Error{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
		zap.L().Debug("Widget API returned error",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestId),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message))
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("unable to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// errorMessage extracts the server message from the usual error shapes.
func errorMessage(raw []byte) string {
	if !gjson.ValidBytes(raw) {
		return strings.TrimSpace(string(raw))
	}
	for _, path := range []string{"error.message", "error", "message"} {
		if v := gjson.GetBytes(raw, path); v.Exists() && v.Type == gjson.String {
			return v.String()
		}
	}
	return ""
}
