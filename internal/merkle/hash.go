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

// Package merkle implements the committee's immutable, fact-addressed
// Merkle tree: empty-tree construction, batched updates sharing a single
// rebuild pass, sub-tree navigation and the bounded-parallel traversal
// driver that backs dumping and leaf lookups.
package merkle

import (
	"encoding/hex"
	"fmt"
)

// HashSize is the fixed width of every fact hash in the tree.
const HashSize = 32

// Hash is the fixed-width opaque identifier produced by a Hasher. All
// inner nodes and leaves are addressed by their hash.
type Hash [HashSize]byte

// Bytes returns the hash as a freshly allocated byte slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// Hex returns the lowercase hex encoding of the hash, without a "0x" prefix.
func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) String() string {
	return h.Hex()
}

// IsZero reports whether every byte of the hash is zero.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// HashFromBytes builds a Hash from a byte slice of exactly HashSize bytes.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, fmt.Errorf("merkle: expected %d-byte hash, got %d", HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// HashFromHex decodes a hex string (no "0x" prefix) into a Hash.
func HashFromHex(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("merkle: invalid hex hash %q: %w", s, err)
	}
	return HashFromBytes(b)
}

// Hasher is the collision-resistant 2-ary field hash the tree is built
// over. It is supplied by the caller — the committee never chooses or
// hard-codes a concrete hash primitive.
type Hasher interface {
	// Hash combines two byte strings into a single 32-byte digest. It is
	// used both for arbitrary leaf preimages (e.g. stark_key || token) and
	// for combining two child hashes into a parent node hash.
	Hash(left, right []byte) Hash
}
