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
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(srv.URL, 2*time.Second, "")
	require.NoError(t, err)
	return c
}

func TestGetBatchDataReturnsNilWhenNotReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"update": null}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	update, err := c.GetBatchData(context.Background(), 0, nil)
	require.NoError(t, err)
	require.Nil(t, update)
}

func TestGetBatchDataParsesUpdate(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"update": {"prev_batch_id": -1, "vaults": {}, "vault_root": "00"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	validateRollup := true
	update, err := c.GetBatchData(context.Background(), 3, &validateRollup)
	require.NoError(t, err)
	require.NotNil(t, update)
	require.Equal(t, int64(-1), update.PrevBatchID)
	require.Contains(t, gotQuery, "batch_id=3")
	require.Contains(t, gotQuery, "validate_rollup=true")
}

func TestSendSignatureRejectsUnexpectedResponseText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("nope"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.SendSignature(context.Background(), 0, "sig", "member", "claim")
	require.Error(t, err)
}

func TestSendSignatureAcceptsExactConfirmationText(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = gotBody
		w.Write([]byte("signature accepted"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	require.NoError(t, c.SendSignature(context.Background(), 0, "sig", "member", "claim"))
}

func TestSendPermanentErrorStatusIsNotRetried(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad request"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.IsAlive(context.Background())
	require.Error(t, err)
	require.Equal(t, 1, attempts)
}

func TestOrderTreeHeightParsesPlainInteger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("251"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	height, err := c.OrderTreeHeight(context.Background())
	require.NoError(t, err)
	require.Equal(t, 251, height)
}
