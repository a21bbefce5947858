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

package merkle_test

import (
	"context"
	"crypto/sha256"
	"testing"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/factstore"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/merkle"
)

// stubHasher is a deterministic, non-cryptographic Hasher used so tests
// don't depend on internal/hasher (which internal/merkle must not import).
type stubHasher struct{}

func (stubHasher) Hash(left, right []byte) merkle.Hash {
	h := sha256.New()
	h.Write(left)
	h.Write(right)
	var out merkle.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// stubLeaf is a minimal LeafFact: an 8-byte big-endian counter.
type stubLeaf struct{ v uint64 }

func (s stubLeaf) IsEmpty() bool    { return s.v == 0 }
func (s stubLeaf) Prefix() string   { return "stub" }
func (s stubLeaf) Serialize() []byte {
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[7-i] = byte(s.v >> uint(8*i))
	}
	return out
}
func (s stubLeaf) Hash(h merkle.Hasher) merkle.Hash {
	return h.Hash(s.Serialize(), nil)
}

func deserializeStub(data []byte) (merkle.LeafFact, error) {
	var v uint64
	for _, b := range data {
		v = v<<8 | uint64(b)
	}
	return stubLeaf{v: v}, nil
}

func newFFC() *merkle.FFC {
	return &merkle.FFC{Store: factstore.NewMemStore(), Hasher: stubHasher{}}
}

func TestEmptyTreeIsStableAcrossHeights(t *testing.T) {
	ctx := context.Background()
	ffc1 := newFFC()
	t1, err := merkle.EmptyTree(ctx, ffc1, 4, stubLeaf{})
	if err != nil {
		t.Fatalf("EmptyTree: %v", err)
	}
	ffc2 := newFFC()
	t2, err := merkle.EmptyTree(ctx, ffc2, 4, stubLeaf{})
	if err != nil {
		t.Fatalf("EmptyTree: %v", err)
	}
	if t1.Root != t2.Root {
		t.Fatalf("empty tree root is not deterministic: %s != %s", t1.Root, t2.Root)
	}
}

func TestEmptyTreeRootsMatchesEmptyTree(t *testing.T) {
	ctx := context.Background()
	ffc := newFFC()
	const height = 5
	tree, err := merkle.EmptyTree(ctx, ffc, height, stubLeaf{})
	if err != nil {
		t.Fatalf("EmptyTree: %v", err)
	}
	roots := merkle.EmptyTreeRoots(height, stubLeaf{}, stubHasher{})
	if len(roots) != height+1 {
		t.Fatalf("expected %d roots, got %d", height+1, len(roots))
	}
	if roots[height] != tree.Root {
		t.Fatalf("EmptyTreeRoots[height] = %s, want %s", roots[height], tree.Root)
	}
}

func TestUpdateSingleLeafRoundTrip(t *testing.T) {
	ctx := context.Background()
	ffc := newFFC()
	const height = 8
	empty, err := merkle.EmptyTree(ctx, ffc, height, stubLeaf{})
	if err != nil {
		t.Fatalf("EmptyTree: %v", err)
	}

	updated, err := empty.Update(ctx, ffc, []merkle.Modification{{Index: 42, Leaf: stubLeaf{v: 7}}}, nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Root == empty.Root {
		t.Fatalf("root did not change after a non-empty update")
	}

	leaves, err := updated.GetLeaves(ctx, ffc, []int64{42}, "stub", deserializeStub, nil)
	if err != nil {
		t.Fatalf("GetLeaves: %v", err)
	}
	got, ok := leaves[42].(stubLeaf)
	if !ok || got.v != 7 {
		t.Fatalf("GetLeaves[42] = %#v, want stubLeaf{7}", leaves[42])
	}
}

func TestUpdateIsANoOpWhenReapplyingTheSameLeaf(t *testing.T) {
	ctx := context.Background()
	ffc := newFFC()
	empty, err := merkle.EmptyTree(ctx, ffc, 6, stubLeaf{})
	if err != nil {
		t.Fatalf("EmptyTree: %v", err)
	}
	once, err := empty.Update(ctx, ffc, []merkle.Modification{{Index: 3, Leaf: stubLeaf{v: 9}}}, nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	twice, err := once.Update(ctx, ffc, []merkle.Modification{{Index: 3, Leaf: stubLeaf{v: 9}}}, nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if once.Root != twice.Root {
		t.Fatalf("re-applying an identical leaf changed the root: %s != %s", once.Root, twice.Root)
	}
}

func TestUpdateWithNoModificationsIsIdentity(t *testing.T) {
	ctx := context.Background()
	ffc := newFFC()
	empty, err := merkle.EmptyTree(ctx, ffc, 6, stubLeaf{})
	if err != nil {
		t.Fatalf("EmptyTree: %v", err)
	}
	same, err := empty.Update(ctx, ffc, nil, nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if same.Root != empty.Root {
		t.Fatalf("no-op update changed the root: %s != %s", same.Root, empty.Root)
	}
}

func TestUpdateLastWriteWinsWithinOneBatch(t *testing.T) {
	ctx := context.Background()
	ffc := newFFC()
	empty, err := merkle.EmptyTree(ctx, ffc, 6, stubLeaf{})
	if err != nil {
		t.Fatalf("EmptyTree: %v", err)
	}
	updated, err := empty.Update(ctx, ffc, []merkle.Modification{
		{Index: 1, Leaf: stubLeaf{v: 1}},
		{Index: 1, Leaf: stubLeaf{v: 2}},
	}, nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	leaves, err := updated.GetLeaves(ctx, ffc, []int64{1}, "stub", deserializeStub, nil)
	if err != nil {
		t.Fatalf("GetLeaves: %v", err)
	}
	if got := leaves[1].(stubLeaf).v; got != 2 {
		t.Fatalf("last write did not win: got %d, want 2", got)
	}
}

func TestUpdateIsDeterministicRegardlessOfBatchOrder(t *testing.T) {
	ctx := context.Background()
	mods := []merkle.Modification{
		{Index: 10, Leaf: stubLeaf{v: 1}},
		{Index: 20, Leaf: stubLeaf{v: 2}},
		{Index: 30, Leaf: stubLeaf{v: 3}},
	}
	reversed := []merkle.Modification{mods[2], mods[1], mods[0]}

	ffc1 := newFFC()
	empty1, _ := merkle.EmptyTree(ctx, ffc1, 10, stubLeaf{})
	tree1, err := empty1.Update(ctx, ffc1, mods, nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	ffc2 := newFFC()
	empty2, _ := merkle.EmptyTree(ctx, ffc2, 10, stubLeaf{})
	tree2, err := empty2.Update(ctx, ffc2, reversed, nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if tree1.Root != tree2.Root {
		t.Fatalf("root depends on modification order: %s != %s", tree1.Root, tree2.Root)
	}
}

func TestUpdateRejectsOutOfRangeIndex(t *testing.T) {
	ctx := context.Background()
	ffc := newFFC()
	empty, err := merkle.EmptyTree(ctx, ffc, 4, stubLeaf{})
	if err != nil {
		t.Fatalf("EmptyTree: %v", err)
	}
	_, err = empty.Update(ctx, ffc, []merkle.Modification{{Index: 1 << 4, Leaf: stubLeaf{v: 1}}}, nil)
	if err == nil {
		t.Fatalf("expected an error for an out-of-range index")
	}
}

func TestGetNodeMatchesGetChildren(t *testing.T) {
	ctx := context.Background()
	ffc := newFFC()
	empty, err := merkle.EmptyTree(ctx, ffc, 3, stubLeaf{})
	if err != nil {
		t.Fatalf("EmptyTree: %v", err)
	}
	updated, err := empty.Update(ctx, ffc, []merkle.Modification{{Index: 5, Leaf: stubLeaf{v: 5}}}, nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	left, right, err := updated.GetChildren(ctx, ffc, nil)
	if err != nil {
		t.Fatalf("GetChildren: %v", err)
	}
	viaIndex2, err := updated.GetNode(ctx, ffc, 2)
	if err != nil {
		t.Fatalf("GetNode(2): %v", err)
	}
	viaIndex3, err := updated.GetNode(ctx, ffc, 3)
	if err != nil {
		t.Fatalf("GetNode(3): %v", err)
	}
	if left.Root != viaIndex2.Root || right.Root != viaIndex3.Root {
		t.Fatalf("GetNode disagrees with GetChildren")
	}
}

func TestEmptyTreeRejectsNegativeHeight(t *testing.T) {
	ctx := context.Background()
	ffc := newFFC()
	if _, err := merkle.EmptyTree(ctx, ffc, -1, stubLeaf{}); err == nil {
		t.Fatalf("expected an error for a negative height")
	}
}
