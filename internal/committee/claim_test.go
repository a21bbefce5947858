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

package committee

import (
	"crypto/sha256"
	"testing"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/merkle"
)

type sha256Hasher struct{}

func (sha256Hasher) Hash(left, right []byte) merkle.Hash {
	h := sha256.New()
	h.Write(left)
	h.Write(right)
	var out merkle.Hash
	copy(out[:], h.Sum(nil))
	return out
}

func TestClaimHashDeterministic(t *testing.T) {
	objects := []ObjectInfo{
		{Name: "vault", Leaf: VaultLeafKind, TreeHeight: 31},
		{Name: "order", Leaf: OrderLeafKind, TreeHeight: 64},
	}
	info := BatchInfo{
		MerkleRoots:    map[string]merkle.Hash{"vault": {1}, "order": {2}},
		SequenceNumber: 7,
	}
	h1, err := ClaimHash(sha256Hasher{}, objects, info)
	if err != nil {
		t.Fatalf("ClaimHash: %v", err)
	}
	h2, err := ClaimHash(sha256Hasher{}, objects, info)
	if err != nil {
		t.Fatalf("ClaimHash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("ClaimHash is not deterministic: %s != %s", h1, h2)
	}
}

func TestClaimHashChangesWithSequenceNumber(t *testing.T) {
	objects := []ObjectInfo{
		{Name: "vault", Leaf: VaultLeafKind, TreeHeight: 31},
		{Name: "order", Leaf: OrderLeafKind, TreeHeight: 64},
	}
	roots := map[string]merkle.Hash{"vault": {1}, "order": {2}}
	h1, err := ClaimHash(sha256Hasher{}, objects, BatchInfo{MerkleRoots: roots, SequenceNumber: 1})
	if err != nil {
		t.Fatalf("ClaimHash: %v", err)
	}
	h2, err := ClaimHash(sha256Hasher{}, objects, BatchInfo{MerkleRoots: roots, SequenceNumber: 2})
	if err != nil {
		t.Fatalf("ClaimHash: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("ClaimHash did not change with the sequence number")
	}
}

func TestClaimHashIgnoresRollupVault(t *testing.T) {
	base := []ObjectInfo{
		{Name: "vault", Leaf: VaultLeafKind, TreeHeight: 31},
		{Name: "order", Leaf: OrderLeafKind, TreeHeight: 64},
	}
	withRollup := append(append([]ObjectInfo{}, base...), ObjectInfo{Name: "rollup_vault", Leaf: VaultLeafKind, TreeHeight: 31})
	roots := map[string]merkle.Hash{"vault": {1}, "order": {2}, "rollup_vault": {3}}
	info := BatchInfo{MerkleRoots: roots, SequenceNumber: 1}

	h1, err := ClaimHash(sha256Hasher{}, base, info)
	if err != nil {
		t.Fatalf("ClaimHash: %v", err)
	}
	h2, err := ClaimHash(sha256Hasher{}, withRollup, info)
	if err != nil {
		t.Fatalf("ClaimHash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("rollup_vault's presence in the registry should not affect the claim hash")
	}

	// Changing only rollup_vault's root must also leave the claim hash
	// unchanged, since it is never read into the preimage.
	rootsChanged := map[string]merkle.Hash{"vault": {1}, "order": {2}, "rollup_vault": {9}}
	h3, err := ClaimHash(sha256Hasher{}, withRollup, BatchInfo{MerkleRoots: rootsChanged, SequenceNumber: 1})
	if err != nil {
		t.Fatalf("ClaimHash: %v", err)
	}
	if h1 != h3 {
		t.Fatalf("changing rollup_vault's root should not change the claim hash")
	}
}

func TestClaimHashRejectsAmbiguousVaultsObject(t *testing.T) {
	objects := []ObjectInfo{
		{Name: "vault", Leaf: VaultLeafKind},
		{Name: "position", Leaf: PositionLeafKind},
		{Name: "order", Leaf: OrderLeafKind},
	}
	info := BatchInfo{MerkleRoots: map[string]merkle.Hash{"vault": {1}, "position": {2}, "order": {3}}}
	if _, err := ClaimHash(sha256Hasher{}, objects, info); err == nil {
		t.Fatalf("expected an error when both vault and position are configured")
	}
}

func TestClaimHashRejectsMissingVaultsObject(t *testing.T) {
	objects := []ObjectInfo{{Name: "order", Leaf: OrderLeafKind}}
	info := BatchInfo{MerkleRoots: map[string]merkle.Hash{"order": {1}}}
	if _, err := ClaimHash(sha256Hasher{}, objects, info); err == nil {
		t.Fatalf("expected an error when neither vault nor position is configured")
	}
}

func TestClaimHashRejectsMissingRootInBatchInfo(t *testing.T) {
	objects := []ObjectInfo{
		{Name: "vault", Leaf: VaultLeafKind},
		{Name: "order", Leaf: OrderLeafKind},
	}
	info := BatchInfo{MerkleRoots: map[string]merkle.Hash{"vault": {1}}} // missing "order"
	if _, err := ClaimHash(sha256Hasher{}, objects, info); err == nil {
		t.Fatalf("expected an error for a batch info missing the order root")
	}
}
