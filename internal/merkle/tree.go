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
	"math/bits"

	"golang.org/x/sync/semaphore"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/factstore"
)

// DefaultWorkers is the traversal driver's default bound on in-flight
// concurrent subtree evaluations, used when a Tree's FFC does not
// override it.
const DefaultWorkers = 16

// FFC ("fact fetching context") bundles the fact store and hasher every
// tree operation needs, the way the source's FactFetchingContext(storage,
// hash_func) does. NWorkers bounds the traversal driver's concurrency;
// zero means DefaultWorkers.
type FFC struct {
	Store    factstore.Store
	Hasher   Hasher
	NWorkers int
}

func (f *FFC) workers() int {
	if f.NWorkers > 0 {
		return f.NWorkers
	}
	return DefaultWorkers
}

// Tree is an immutable reference (root hash, height) into the fact store.
// Every mutating operation returns a new Tree; the fact store is
// append-only, so historic trees remain navigable.
//
// Leaf indices are plain int64s even though Height can run up to 251 (the
// order/position tree's topology): real indices (vault ids, order ids)
// always fit comfortably in 63 bits, and every bit of the index above
// that is implicitly zero, i.e. every such leaf lives in the tree's
// leftmost, overwhelmingly empty region. Splitting by testing one index
// bit at a time (rather than by computing 2^height bounds) makes that
// safe: no computation here ever needs a width wider than int64.
type Tree struct {
	Root   Hash
	Height int
}

// Modification is a single (leaf_index, new_leaf) pair to apply in a
// batched Update.
type Modification struct {
	Index int64
	Leaf  LeafFact
}

// indexBit returns the bit of index at zero-based bit position pos
// (pos == 0 is the least-significant bit). index is always non-negative,
// so shifting by >= 64 correctly yields 0 per the Go language spec,
// rather than overflowing or wrapping.
func indexBit(index int64, pos int) int64 {
	if pos >= 64 {
		return 0
	}
	return (index >> uint(pos)) & 1
}

// indexInRange reports whether index is a valid leaf position in a tree
// of the given height, without ever computing 2^height directly.
func indexInRange(index int64, height int) bool {
	if index < 0 {
		return false
	}
	if height >= 63 {
		return true
	}
	return index < (int64(1) << uint(height))
}

// EmptyTree writes the leaf fact under its domain-specific key, then
// walks upward height times, each step synthesizing an inner node whose
// two children are the previous root.
func EmptyTree(ctx context.Context, ffc *FFC, height int, leaf LeafFact) (Tree, error) {
	if height < 0 {
		return Tree{}, fmt.Errorf("merkle: negative tree height %d", height)
	}
	leafHash := leaf.Hash(ffc.Hasher)
	if err := ffc.Store.Set(ctx, leafKey(leaf.Prefix(), leafHash), leaf.Serialize()); err != nil {
		return Tree{}, fmt.Errorf("merkle: writing empty leaf fact: %w", err)
	}

	root := leafHash
	for i := 0; i < height; i++ {
		fact := MerkleNodeFact{Left: root, Right: root}
		h, err := writeNodeFact(ctx, ffc.Store, ffc.Hasher, fact, nil)
		if err != nil {
			return Tree{}, err
		}
		root = h
	}
	return Tree{Root: root, Height: height}, nil
}

// EmptyTreeRoots is the pure (no store access) sequence E[0..maxHeight]
// used to prune empty subtrees during traversal: E[0] is the empty
// leaf's hash, E[h] = Hasher(E[h-1], E[h-1]).
func EmptyTreeRoots(maxHeight int, emptyLeaf LeafFact, hasher Hasher) []Hash {
	roots := make([]Hash, 0, maxHeight+1)
	roots = append(roots, emptyLeaf.Hash(hasher))
	for i := 0; i < maxHeight; i++ {
		roots = append(roots, hasher.Hash(roots[len(roots)-1][:], roots[len(roots)-1][:]))
	}
	return roots
}

// GetChildren returns the two subtrees of t. Precondition: t.Height > 0.
func (t Tree) GetChildren(ctx context.Context, ffc *FFC, facts FactsDict) (left, right Tree, err error) {
	if t.Height <= 0 {
		return Tree{}, Tree{}, fmt.Errorf("merkle: GetChildren called on a leaf (height 0)")
	}
	fact, err := readNodeFact(ctx, ffc.Store, t.Root, facts)
	if err != nil {
		return Tree{}, Tree{}, err
	}
	return Tree{Root: fact.Left, Height: t.Height - 1}, Tree{Root: fact.Right, Height: t.Height - 1}, nil
}

// GetNode returns the node at the given 1-indexed binary-tree-in-array
// position: 1 is self, 2/3 are children, and so on. The bits of index
// after the leading 1 drive left/right descent.
func (t Tree) GetNode(ctx context.Context, ffc *FFC, index uint64) (Tree, error) {
	if index == 0 {
		return Tree{}, fmt.Errorf("merkle: node index must be >= 1")
	}
	depth := bits.Len64(index) - 1
	node := t
	for d := depth - 1; d >= 0; d-- {
		dir := (index >> uint(d)) & 1
		left, right, err := node.GetChildren(ctx, ffc, nil)
		if err != nil {
			return Tree{}, err
		}
		if dir == 0 {
			node = left
		} else {
			node = right
		}
	}
	return node, nil
}

// splitByBit partitions idxs by the value of their bit at position
// node.Height-1 (0 = left subtree, 1 = right subtree).
func splitByBit(node Tree, idxs []int64) (leftIdxs, rightIdxs []int64) {
	bitPos := node.Height - 1
	for _, i := range idxs {
		if indexBit(i, bitPos) == 0 {
			leftIdxs = append(leftIdxs, i)
		} else {
			rightIdxs = append(rightIdxs, i)
		}
	}
	return leftIdxs, rightIdxs
}

// GetLeaves returns, for each requested leaf index, the deserialized leaf
// fact stored there. prefix and deserialize must match the concrete
// LeafFact type stored in this tree. Descents sharing a prefix are
// walked once; facts, if non-nil, records every inner node visited.
func (t Tree) GetLeaves(ctx context.Context, ffc *FFC, indices []int64, prefix string, deserialize LeafDeserializer, facts FactsDict) (map[int64]LeafFact, error) {
	if facts == nil {
		facts = make(FactsDict)
	}
	result := make(map[int64]LeafFact, len(indices))
	var walk func(node Tree, idxs []int64) error
	walk = func(node Tree, idxs []int64) error {
		if len(idxs) == 0 {
			return nil
		}
		if node.Height == 0 {
			if len(idxs) != 1 {
				return fmt.Errorf("merkle: internal error resolving leaf range")
			}
			index := idxs[0]
			raw, ok, err := ffc.Store.Get(ctx, leafKey(prefix, node.Root))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("merkle: missing leaf fact %s at index %d", node.Root, index)
			}
			leaf, err := deserialize(raw)
			if err != nil {
				return err
			}
			result[index] = leaf
			return nil
		}
		left, right, err := node.GetChildren(ctx, ffc, facts)
		if err != nil {
			return err
		}
		leftIdxs, rightIdxs := splitByBit(node, idxs)
		if len(leftIdxs) > 0 {
			if err := walk(left, leftIdxs); err != nil {
				return err
			}
		}
		if len(rightIdxs) > 0 {
			if err := walk(right, rightIdxs); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(t, indices); err != nil {
		return nil, err
	}
	return result, nil
}

// Update rebuilds the minimal set of dirty nodes covering modifications
// in a single traversal, writes every new fact, and returns the new
// root. No fact is written before the whole plan has been evaluated, and
// on any failure no new root is returned and the original Tree remains
// valid; a store error during the final write pass can leave some of the
// new facts already written.
func (t Tree) Update(ctx context.Context, ffc *FFC, modifications []Modification, facts FactsDict) (Tree, error) {
	dedup := make(map[int64]LeafFact, len(modifications))
	order := make([]int64, 0, len(modifications))
	for _, m := range modifications {
		if !indexInRange(m.Index, t.Height) {
			return Tree{}, fmt.Errorf("merkle: modification index %d out of range for height %d", m.Index, t.Height)
		}
		if _, seen := dedup[m.Index]; !seen {
			order = append(order, m.Index)
		}
		// A later modification at the same index wins.
		dedup[m.Index] = m.Leaf
	}

	plan, err := planUpdate(ctx, ffc, t, order, dedup, facts)
	if err != nil {
		return Tree{}, err
	}

	ws := newWriteSet()
	sem := semaphore.NewWeighted(int64(ffc.workers()))
	newRoot, err := evaluate(ctx, plan.Root, ffc.Hasher, ws, sem)
	if err != nil {
		return Tree{}, err
	}

	if err := ws.flush(ctx, ffc.Store, facts); err != nil {
		return Tree{}, err
	}

	return Tree{Root: newRoot, Height: t.Height}, nil
}

// planUpdate walks the existing tree down to the dirty frontier, building
// a calculation tree whose leaves are either ConstantCalculation (a
// subtree untouched by this batch) or LeafFactCalculation (a modified
// leaf). A subtree with no modifications is never descended into; its
// current root hash is simply carried forward.
func planUpdate(ctx context.Context, ffc *FFC, node Tree, idxs []int64, mods map[int64]LeafFact, facts FactsDict) (treeCalculation, error) {
	if len(idxs) == 0 {
		return treeCalculation{Root: ConstantCalculation{Value: node.Root}, Height: node.Height}, nil
	}
	if node.Height == 0 {
		if len(idxs) != 1 {
			return treeCalculation{}, fmt.Errorf("merkle: internal error planning leaf update")
		}
		return treeCalculation{Root: LeafFactCalculation{Fact: mods[idxs[0]]}, Height: 0}, nil
	}

	left, right, err := node.GetChildren(ctx, ffc, facts)
	if err != nil {
		return treeCalculation{}, err
	}
	leftIdxs, rightIdxs := splitByBit(node, idxs)

	leftCalc, err := planUpdate(ctx, ffc, left, leftIdxs, mods, facts)
	if err != nil {
		return treeCalculation{}, err
	}
	rightCalc, err := planUpdate(ctx, ffc, right, rightIdxs, mods, facts)
	if err != nil {
		return treeCalculation{}, err
	}
	return Combine(leftCalc, rightCalc)
}
