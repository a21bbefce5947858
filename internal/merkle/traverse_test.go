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
	"sync"
	"testing"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/merkle"
)

type recordingVisitor struct {
	mu         sync.Mutex
	nodes      map[uint64]merkle.Hash
	leaves     map[uint64]merkle.Hash
}

func newRecordingVisitor() *recordingVisitor {
	return &recordingVisitor{nodes: map[uint64]merkle.Hash{}, leaves: map[uint64]merkle.Hash{}}
}

func (v *recordingVisitor) VisitNode(_ context.Context, index uint64, node merkle.Tree) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nodes[index] = node.Root
	return nil
}

func (v *recordingVisitor) VisitLeaf(_ context.Context, index uint64, node merkle.Tree) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.leaves[index] = node.Root
	return nil
}

func TestTraversePrunesEmptySubtrees(t *testing.T) {
	ctx := context.Background()
	ffc := newFFC()
	const height = 6
	empty, err := merkle.EmptyTree(ctx, ffc, height, stubLeaf{})
	if err != nil {
		t.Fatalf("EmptyTree: %v", err)
	}
	updated, err := empty.Update(ctx, ffc, []merkle.Modification{{Index: 9, Leaf: stubLeaf{v: 9}}}, nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	emptyRoots := merkle.EmptyTreeRoots(height, stubLeaf{}, stubHasher{})
	visitor := newRecordingVisitor()
	root, err := updated.GetNode(ctx, ffc, 1)
	if err != nil {
		t.Fatalf("GetNode(1): %v", err)
	}
	if err := merkle.Traverse(ctx, ffc, merkle.TraverseItem{Index: 1, Node: root}, emptyRoots, visitor); err != nil {
		t.Fatalf("Traverse: %v", err)
	}

	// Exactly one non-empty leaf should have been reached.
	if len(visitor.leaves) != 1 {
		t.Fatalf("expected exactly 1 leaf visited, got %d", len(visitor.leaves))
	}
	leafIndex := uint64(1)<<uint(height) + 9
	if _, ok := visitor.leaves[leafIndex]; !ok {
		t.Fatalf("expected leaf at index %d to be visited, visited: %v", leafIndex, visitor.leaves)
	}

	// Every visited node's recorded hash must match a direct GetNode call,
	// confirming pruning didn't skip real data along the path to the leaf.
	for index, hash := range visitor.nodes {
		node, err := updated.GetNode(ctx, ffc, index)
		if err != nil {
			t.Fatalf("GetNode(%d): %v", index, err)
		}
		if node.Root != hash {
			t.Fatalf("node %d: traverse recorded %s, GetNode says %s", index, hash, node.Root)
		}
	}
}

func TestTraverseOnEmptyTreeVisitsOnlyTheRoot(t *testing.T) {
	ctx := context.Background()
	ffc := newFFC()
	const height = 8
	empty, err := merkle.EmptyTree(ctx, ffc, height, stubLeaf{})
	if err != nil {
		t.Fatalf("EmptyTree: %v", err)
	}
	emptyRoots := merkle.EmptyTreeRoots(height, stubLeaf{}, stubHasher{})
	visitor := newRecordingVisitor()
	if err := merkle.Traverse(ctx, ffc, merkle.TraverseItem{Index: 1, Node: empty}, emptyRoots, visitor); err != nil {
		t.Fatalf("Traverse: %v", err)
	}
	if len(visitor.nodes) != 1 {
		t.Fatalf("expected the empty-subtree root to prune immediately, visited %d nodes", len(visitor.nodes))
	}
	if len(visitor.leaves) != 0 {
		t.Fatalf("expected no leaves visited on a fully empty tree, got %d", len(visitor.leaves))
	}
}
