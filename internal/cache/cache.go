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

// Package cache implements the bounded, read-through fact-cache of
// spec §4.2: an LRU layer in front of a factstore.Store. On a hit the
// backing store is never contacted; on a miss the value is fetched and
// inserted. Writes go through to the backing store and are also cached.
package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/factstore"
)

// FactCache wraps a factstore.Store with a capacity-bounded LRU. It holds
// byte blobs only; decoding facts is the caller's responsibility. The
// underlying LRU is safe for concurrent use by multiple tasks, though
// operations across distinct keys are not linearized with each other.
type FactCache struct {
	backing factstore.Store
	lru     *lru.Cache[string, []byte]
}

// New returns a FactCache of the given capacity over backing.
func New(backing factstore.Store, capacity int) (*FactCache, error) {
	c, err := lru.New[string, []byte](capacity)
	if err != nil {
		return nil, err
	}
	return &FactCache{backing: backing, lru: c}, nil
}

func (c *FactCache) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	if v, ok := c.lru.Get(string(key)); ok {
		return v, true, nil
	}
	v, ok, err := c.backing.Get(ctx, key)
	if err != nil || !ok {
		return v, ok, err
	}
	c.lru.Add(string(key), v)
	return v, true, nil
}

func (c *FactCache) Set(ctx context.Context, key, value []byte) error {
	if err := c.backing.Set(ctx, key, value); err != nil {
		return err
	}
	c.lru.Add(string(key), value)
	return nil
}

func (c *FactCache) SetIfAbsent(ctx context.Context, key, value []byte) (bool, error) {
	written, err := c.backing.SetIfAbsent(ctx, key, value)
	if err != nil {
		return false, err
	}
	if written {
		c.lru.Add(string(key), value)
	}
	return written, nil
}

func (c *FactCache) Delete(ctx context.Context, key []byte) (bool, error) {
	existed, err := c.backing.Delete(ctx, key)
	if err != nil {
		return false, err
	}
	c.lru.Remove(string(key))
	return existed, nil
}

// Len reports the number of entries currently cached.
func (c *FactCache) Len() int {
	return c.lru.Len()
}

var _ factstore.Store = (*FactCache)(nil)
