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
	"sync"

	"golang.org/x/sync/semaphore"
)

// TraverseItem pairs a node with its 1-indexed binary-tree-in-array
// position (the same indexing GetNode uses): the root of the traversal is
// whatever index its caller names it, and descending to a child always
// doubles the index (optionally +1 for the right child).
type TraverseItem struct {
	Index uint64
	Node  Tree
}

// NodeVisitor receives every node Traverse reaches. VisitNode fires for
// every node, including ones that turn out to be empty subtrees (so a
// caller dumping a full node listing still records them); VisitLeaf fires
// only for non-empty leaves, after VisitNode.
type NodeVisitor interface {
	VisitNode(ctx context.Context, index uint64, node Tree) error
	VisitLeaf(ctx context.Context, index uint64, node Tree) error
}

// Traverse walks the tree rooted at root, pruning any subtree whose root
// hash appears in emptyRoots (the sequence EmptyTreeRoots produces):
// nothing below such a node is read from the store, since its entire
// content is implied by its height. Sibling subtrees are visited
// concurrently, bounded by ffc's worker count, the same TryAcquire-or-
// inline discipline Update's evaluate phase uses.
func Traverse(ctx context.Context, ffc *FFC, root TraverseItem, emptyRoots []Hash, visitor NodeVisitor) error {
	empty := make(map[Hash]struct{}, len(emptyRoots))
	for _, h := range emptyRoots {
		empty[h] = struct{}{}
	}
	sem := semaphore.NewWeighted(int64(ffc.workers()))
	return traverseNode(ctx, ffc, root.Index, root.Node, empty, visitor, sem)
}

func traverseNode(ctx context.Context, ffc *FFC, index uint64, node Tree, empty map[Hash]struct{}, visitor NodeVisitor, sem *semaphore.Weighted) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := visitor.VisitNode(ctx, index, node); err != nil {
		return err
	}
	if _, isEmpty := empty[node.Root]; isEmpty {
		return nil
	}
	if node.Height == 0 {
		return visitor.VisitLeaf(ctx, index, node)
	}

	left, right, err := node.GetChildren(ctx, ffc, nil)
	if err != nil {
		return err
	}

	var leftErr, rightErr error
	if sem.TryAcquire(1) {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			leftErr = traverseNode(ctx, ffc, 2*index, left, empty, visitor, sem)
		}()
		rightErr = traverseNode(ctx, ffc, 2*index+1, right, empty, visitor, sem)
		wg.Wait()
	} else {
		leftErr = traverseNode(ctx, ffc, 2*index, left, empty, visitor, sem)
		rightErr = traverseNode(ctx, ffc, 2*index+1, right, empty, visitor, sem)
	}
	if leftErr != nil {
		return leftErr
	}
	return rightErr
}
