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

package merkle

import (
	"context"
	"fmt"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/factstore"
)

// nodeFactPrefix namespaces every inner-node fact in the store.
const nodeFactPrefix = "merkle_node"

// MerkleNodeFact is an inner node: a pair of child hashes. It is
// serialized as the straight concatenation of the two, and hashed by
// combining them through the tree's Hasher.
type MerkleNodeFact struct {
	Left  Hash
	Right Hash
}

// Serialize returns the 64-byte left||right encoding.
func (f MerkleNodeFact) Serialize() []byte {
	out := make([]byte, 0, 2*HashSize)
	out = append(out, f.Left[:]...)
	out = append(out, f.Right[:]...)
	return out
}

// DeserializeNodeFact parses the 64-byte left||right encoding.
func DeserializeNodeFact(data []byte) (MerkleNodeFact, error) {
	if len(data) != 2*HashSize {
		return MerkleNodeFact{}, fmt.Errorf("merkle: node fact must be %d bytes, got %d", 2*HashSize, len(data))
	}
	var f MerkleNodeFact
	copy(f.Left[:], data[:HashSize])
	copy(f.Right[:], data[HashSize:])
	return f, nil
}

func (f MerkleNodeFact) hash(h Hasher) Hash {
	return h.Hash(f.Left[:], f.Right[:])
}

func nodeFactKey(h Hash) []byte {
	return []byte(nodeFactPrefix + ":" + h.Hex())
}

// FactsDict memoizes inner-node facts visited during a single traversal,
// so that callers can replay the traversal verifiably without re-reading
// the store, and so a shared prefix is only ever read once.
type FactsDict map[Hash]MerkleNodeFact

// readNodeFact dereferences a non-leaf node, consulting facts first.
func readNodeFact(ctx context.Context, store factstore.Store, h Hash, facts FactsDict) (MerkleNodeFact, error) {
	if facts != nil {
		if f, ok := facts[h]; ok {
			return f, nil
		}
	}
	raw, ok, err := store.Get(ctx, nodeFactKey(h))
	if err != nil {
		return MerkleNodeFact{}, fmt.Errorf("merkle: reading node fact %s: %w", h, err)
	}
	if !ok {
		return MerkleNodeFact{}, fmt.Errorf("merkle: missing node fact %s", h)
	}
	f, err := DeserializeNodeFact(raw)
	if err != nil {
		return MerkleNodeFact{}, err
	}
	if facts != nil {
		facts[h] = f
	}
	return f, nil
}

// writeNodeFact computes the fact's hash, stores it, and returns the
// hash. It also populates facts, if supplied, to memoize the write for
// the remainder of the traversal.
func writeNodeFact(ctx context.Context, store factstore.Store, hasher Hasher, f MerkleNodeFact, facts FactsDict) (Hash, error) {
	h := f.hash(hasher)
	if err := store.Set(ctx, nodeFactKey(h), f.Serialize()); err != nil {
		return Hash{}, fmt.Errorf("merkle: writing node fact %s: %w", h, err)
	}
	if facts != nil {
		facts[h] = f
	}
	return h, nil
}
