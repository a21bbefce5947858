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

package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/config"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/hasher"
)

func TestBuildStoreRejectsMissingRedisAddr(t *testing.T) {
	cfg := &config.Config{FactStorageCacheSize: 16}
	_, err := buildStore(cfg)
	require.Error(t, err)
}

func TestBuildStoreAssemblesCachedBucketedStore(t *testing.T) {
	cfg := &config.Config{
		FactStorageCacheSize: 16,
		Redis: config.RedisConfig{
			Addr:      "127.0.0.1:0",
			IndexBits: 4,
			KeyPrefix: "env:",
		},
	}
	store, err := buildStore(cfg)
	require.NoError(t, err)
	require.NotNil(t, store)
}

func TestBuildHasherReturnsSHA256Hasher(t *testing.T) {
	require.Equal(t, hasher.SHA256Hasher{}, buildHasher())
}
