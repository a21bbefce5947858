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

// Package factstore defines the content-addressed key-value contract the
// commitment engine is built over, and two implementations: an in-memory
// map for tests, and a Redis-hash-bucketed store for production use.
package factstore

import (
	"context"
	"errors"
	"strconv"
)

// ErrRecordTooBig is returned when a single record would exceed the
// backing store's maximum record size. It is always fatal — callers must
// not retry it.
var ErrRecordTooBig = errors.New("factstore: record too big")

// Store is the fact store contract: a content-addressed, append-only
// mapping from key to bytes. A miss is not an error.
type Store interface {
	// Get returns the value for key, or ok=false if it is absent.
	Get(ctx context.Context, key []byte) (value []byte, ok bool, err error)

	// Set idempotently overwrites the value for key.
	Set(ctx context.Context, key, value []byte) error

	// SetIfAbsent writes value for key only if no value is currently
	// present, returning true iff the write happened.
	SetIfAbsent(ctx context.Context, key, value []byte) (written bool, err error)

	// Delete removes key, returning true iff it was present.
	Delete(ctx context.Context, key []byte) (existed bool, err error)
}

// GetInt reads an integer stored as a decimal string.
func GetInt(ctx context.Context, s Store, key []byte) (int64, bool, error) {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	n, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// SetInt stores an integer as a decimal string.
func SetInt(ctx context.Context, s Store, key []byte, v int64) error {
	return s.Set(ctx, key, []byte(strconv.FormatInt(v, 10)))
}
