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
	"fmt"

	"github.com/go-redis/redis"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/cache"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/config"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/factstore"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/factstore/bucketed"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/hasher"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/merkle"
)

// buildStore assembles the production fact store: a bucketed Redis store
// wrapped in the bounded LRU read-through cache.
func buildStore(cfg *config.Config) (factstore.Store, error) {
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("committee: redis.addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	backing := bucketed.New(client, cfg.Redis.IndexBits, cfg.Redis.KeyPrefix)
	return cache.New(backing, cfg.FactStorageCacheSize)
}

// buildHasher returns the committee's configured Hasher. See
// internal/hasher for why this is a stand-in rather than the on-chain
// Pedersen hash.
func buildHasher() merkle.Hasher {
	return hasher.SHA256Hasher{}
}
