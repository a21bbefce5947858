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
)

// LeafFact is a serializable domain object living at height 0 of a tree:
// a vault, an order, or a position. Implementations must satisfy
// Deserialize(Serialize(x)) == x, and collision resistance of Hash is
// assumed to imply equality of the underlying leaves.
type LeafFact interface {
	// IsEmpty reports whether this leaf equals its type's canonical zero
	// value.
	IsEmpty() bool

	// Serialize returns the canonical byte encoding stored under the fact
	// store, keyed by this leaf's Hash.
	Serialize() []byte

	// Hash returns this leaf's fact hash under the given hasher.
	Hash(h Hasher) Hash

	// Prefix is the fact-store key namespace this leaf type is persisted
	// under (e.g. "vault", "order", "position").
	Prefix() string
}

// LeafDeserializer reconstructs a LeafFact of a specific type from its
// serialized bytes. Every LeafFact implementation supplies one of these
// alongside a constructor for its empty value.
type LeafDeserializer func(data []byte) (LeafFact, error)

// leafKey returns the fact-store key a leaf is persisted under:
// "<prefix>:<hash>".
func leafKey(prefix string, h Hash) []byte {
	return []byte(prefix + ":" + h.Hex())
}

// ReadLeaf fetches and deserializes the leaf fact stored under root,
// namespaced by prefix. Dump tooling uses this to resolve a leaf node
// reached during a Traverse into its concrete domain value.
func ReadLeaf(ctx context.Context, ffc *FFC, prefix string, root Hash, deserialize LeafDeserializer) (LeafFact, error) {
	raw, ok, err := ffc.Store.Get(ctx, leafKey(prefix, root))
	if err != nil {
		return nil, fmt.Errorf("merkle: reading leaf fact %s: %w", root, err)
	}
	if !ok {
		return nil, fmt.Errorf("merkle: missing leaf fact %s", root)
	}
	return deserialize(raw)
}
