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

// Package bucketed implements the production factstore.Store: large key
// populations are collapsed by hashing the key into B index bits, and all
// members of a bucket are stored as fields of a single Redis hash record
// (chosen so the average bucket holds roughly 10 KB). This keeps the
// number of top-level Redis keys low without sacrificing point lookups.
package bucketed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/factstore"
)

// RetryCount is the bounded retry budget for transport failures.
const RetryCount = 10

// retryBackoff is the fixed 1-second backoff between attempts.
func retryBackoff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), RetryCount)
}

// Store is a Redis-hash-bucketed factstore.Store.
type Store struct {
	client    *redis.Client
	indexBits uint
	keyPrefix string
}

// New returns a bucketed Store backed by the given Redis client. indexBits
// controls the number of top-level bucket keys (2^indexBits); keyPrefix
// namespaces all bucket keys this instance creates (e.g. per-environment
// isolation on a shared Redis).
func New(client *redis.Client, indexBits uint, keyPrefix string) *Store {
	return &Store{client: client, indexBits: indexBits, keyPrefix: keyPrefix}
}

// bucketKey hashes key into the configured number of index bits and
// returns the Redis hash key for the bucket it belongs to.
func (s *Store) bucketKey(key []byte) string {
	sum := sha256.Sum256(key)
	var idx uint64
	if s.indexBits > 0 {
		full := binary.BigEndian.Uint64(sum[:8])
		idx = full >> (64 - s.indexBits)
	}
	return fmt.Sprintf("%sbucket:%d", s.keyPrefix, idx)
}

func fieldName(key []byte) string {
	return string(key)
}

func (s *Store) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	var value []byte
	var ok bool
	err := backoff.Retry(func() error {
		v, err := s.client.HGet(s.bucketKey(key), fieldName(key)).Result()
		if err == redis.Nil {
			ok = false
			return nil
		}
		if err != nil {
			return s.classify(err)
		}
		value, ok = []byte(v), true
		return nil
	}, retryBackoff())
	if err != nil {
		return nil, false, err
	}
	return value, ok, nil
}

func (s *Store) Set(ctx context.Context, key, value []byte) error {
	if len(value) > maxRecordBytes {
		return factstore.ErrRecordTooBig
	}
	return backoff.Retry(func() error {
		if err := s.client.HSet(s.bucketKey(key), fieldName(key), value).Err(); err != nil {
			return s.classify(err)
		}
		return nil
	}, retryBackoff())
}

func (s *Store) SetIfAbsent(ctx context.Context, key, value []byte) (bool, error) {
	if len(value) > maxRecordBytes {
		return false, factstore.ErrRecordTooBig
	}
	var written bool
	err := backoff.Retry(func() error {
		w, err := s.client.HSetNX(s.bucketKey(key), fieldName(key), value).Result()
		if err != nil {
			return s.classify(err)
		}
		written = w
		return nil
	}, retryBackoff())
	return written, err
}

func (s *Store) Delete(ctx context.Context, key []byte) (bool, error) {
	var existed bool
	err := backoff.Retry(func() error {
		n, err := s.client.HDel(s.bucketKey(key), fieldName(key)).Result()
		if err != nil {
			return s.classify(err)
		}
		existed = n > 0
		return nil
	}, retryBackoff())
	return existed, err
}

// maxRecordBytes bounds a single field's value; exceeding it is a fatal,
// non-retryable ErrRecordTooBig.
const maxRecordBytes = 1 << 20

// classify marks transport-layer errors as retryable by returning them
// as-is (backoff.Retry retries any non-permanent error); a future
// distinction between permanent Redis errors (e.g. auth failures) and
// transient ones (timeouts, connection resets) can wrap the former in
// backoff.Permanent.
func (s *Store) classify(err error) error {
	return err
}
