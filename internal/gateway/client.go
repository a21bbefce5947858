// Copyright 2025 The StarkEx DA Committee Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang/glog"
)

func loadCertPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gateway: reading server certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("gateway: no certificates found in %s", path)
	}
	return pool, nil
}

// RetryCount is the bounded retry budget for gateway requests, matching
// the reference implementation's HttpRetryPolicy(retry_count=9) — 9
// retries beyond the initial attempt, 10 attempts total.
const RetryCount = 9

// retryableStatus mirrors HttpRetryPolicy's retry_error_codes.
func retryableStatus(code int) bool {
	return code == http.StatusBadGateway || code == http.StatusServiceUnavailable || code == http.StatusGatewayTimeout
}

// TooManyAttempts is returned for every failed request, matching the
// reference implementation's TooManyAttempts: both when the retry budget
// is exhausted and when a non-retryable status or request error ends the
// attempts early. Attempts records how many requests were made.
type TooManyAttempts struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TooManyAttempts) Error() string {
	return fmt.Sprintf("gateway: failed to contact %s after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *TooManyAttempts) Unwrap() error { return e.Err }

// Client is the availability-gateway HTTP client: base-URL joining, a
// bounded-retry policy (a fixed 1-second backoff between attempts), and
// optional mutual TLS.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a Client. timeout bounds each individual HTTP
// attempt. If certificatesPath is non-empty, mutual TLS is configured
// from "<certificatesPath>/{user.crt,user.key,server.crt}".
func NewClient(baseURL string, timeout time.Duration, certificatesPath string) (*Client, error) {
	transport := &http.Transport{}
	if certificatesPath != "" {
		tlsConfig, err := mutualTLSConfig(certificatesPath)
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = tlsConfig
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Transport: transport, Timeout: timeout},
	}, nil
}

func mutualTLSConfig(certificatesPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(
		filepath.Join(certificatesPath, "user.crt"),
		filepath.Join(certificatesPath, "user.key"),
	)
	if err != nil {
		return nil, fmt.Errorf("gateway: loading client certificate: %w", err)
	}
	pool, err := loadCertPool(filepath.Join(certificatesPath, "server.crt"))
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// retryBackoff waits a fixed 1 second between attempts, bounded to
// RetryCount retries.
func retryBackoff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), RetryCount)
}

// linearBackoff returns attempt+1 seconds on each call, matching
// timeout_gen(i) = i + 1 exactly rather than approximating it with
// exponential growth.
type linearBackoff struct {
	attempt int
}

func (l *linearBackoff) NextBackOff() time.Duration {
	l.attempt++
	return time.Duration(l.attempt) * time.Second
}

func (l *linearBackoff) Reset() { l.attempt = 0 }

func (c *Client) send(ctx context.Context, method, uri string, body []byte) (string, error) {
	u, err := url.JoinPath(c.baseURL, uri)
	if err != nil {
		return "", fmt.Errorf("gateway: joining URL: %w", err)
	}

	var result string
	attempts := 0
	err = backoff.Retry(func() error {
		attempts++
		req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			glog.Warningf("gateway: attempt %d to %s failed: %v", attempts, u, err)
			return err
		}
		defer resp.Body.Close()
		text, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			if retryableStatus(resp.StatusCode) {
				glog.Warningf("gateway: attempt %d to %s got retryable status %d", attempts, u, resp.StatusCode)
				return fmt.Errorf("gateway: status %d: %s", resp.StatusCode, string(text))
			}
			return backoff.Permanent(fmt.Errorf("gateway: status %d: %s", resp.StatusCode, string(text)))
		}
		result = string(text)
		return nil
	}, retryBackoff())
	if err != nil {
		return "", &TooManyAttempts{URL: u, Attempts: attempts, Err: err}
	}
	return result, nil
}

// OrderTreeHeight fetches the order tree's configured height.
func (c *Client) OrderTreeHeight(ctx context.Context) (int, error) {
	text, err := c.send(ctx, http.MethodGet, "/availability_gateway/order_tree_height", nil)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(text)
}

// GetBatchData fetches the state update for batchID. A nil StateUpdate
// return means the batch is not yet available.
func (c *Client) GetBatchData(ctx context.Context, batchID int64, validateRollup *bool) (*StateUpdate, error) {
	uri := fmt.Sprintf("/availability_gateway/get_batch_data?batch_id=%d", batchID)
	if validateRollup != nil {
		uri += fmt.Sprintf("&validate_rollup=%t", *validateRollup)
	}
	text, err := c.send(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	var resp batchDataResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, fmt.Errorf("gateway: decoding batch data response: %w", err)
	}
	return resp.Update, nil
}

// SendSignature POSTs an approval for batchID. The gateway is required
// to answer with the literal text "signature accepted".
func (c *Client) SendSignature(ctx context.Context, batchID int64, sig, memberKey, claimHash string) error {
	payload, err := json.Marshal(struct {
		BatchID   int64  `json:"batch_id"`
		Signature string `json:"signature"`
		MemberKey string `json:"member_key"`
		ClaimHash string `json:"claim_hash"`
	}{BatchID: batchID, Signature: sig, MemberKey: memberKey, ClaimHash: claimHash})
	if err != nil {
		return err
	}
	text, err := c.send(ctx, http.MethodPost, "/availability_gateway/approve_new_roots", payload)
	if err != nil {
		return err
	}
	if text != "signature accepted" {
		return fmt.Errorf("gateway: unexpected response to signature submission: %q", text)
	}
	return nil
}

// IsAlive probes the gateway's health endpoint.
func (c *Client) IsAlive(ctx context.Context) error {
	_, err := c.send(ctx, http.MethodGet, "/availability_gateway/is_alive", nil)
	return err
}
