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

// Package dumpload implements the dump/load tooling used to move a
// batch's trees in and out of the fact store as CSV: one row per node
// traversed, one row per non-empty leaf. It mirrors the reference
// implementation's dump_trees/load_state scripts, replacing their
// subprocess-per-shard fan-out (a workaround for CPython's GIL) with
// plain bounded-concurrency goroutines.
package dumpload

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/merkle"
)

// LeafRow renders a single leaf's domain fields as CSV columns, the first
// being its leaf id (index - 2^height).
type LeafRow func(leafID int64, leaf merkle.LeafFact) []string

// nodeVisitor adapts a pair of csv.Writer targets into a merkle.NodeVisitor.
type nodeVisitor struct {
	ctx    context.Context
	ffc    *merkle.FFC
	prefix string
	deser  merkle.LeafDeserializer
	height int
	row    LeafRow

	nodesW  *csv.Writer
	leavesW *csv.Writer
}

func (v *nodeVisitor) VisitNode(_ context.Context, index uint64, node merkle.Tree) error {
	if v.nodesW == nil {
		return nil
	}
	return v.nodesW.Write([]string{strconv.FormatUint(index, 10), node.Root.Hex()})
}

func (v *nodeVisitor) VisitLeaf(ctx context.Context, index uint64, node merkle.Tree) error {
	if v.leavesW == nil {
		return nil
	}
	leaf, err := merkle.ReadLeaf(ctx, v.ffc, v.prefix, node.Root, v.deser)
	if err != nil {
		return err
	}
	leafID := int64(index) - (int64(1) << uint(v.height))
	return v.leavesW.Write(v.row(leafID, leaf))
}

// DumpTree walks tree from nodeIndex (1 dumps the whole tree; the same
// binary-tree-in-array indexing GetNode uses lets callers dump a single
// subtree, matching --order_node_idx), writing one CSV row per visited
// node to nodesW (may be nil to skip) and one row per non-empty leaf to
// leavesW (may be nil to skip).
func DumpTree(
	ctx context.Context,
	ffc *merkle.FFC,
	tree merkle.Tree,
	nodeIndex uint64,
	prefix string,
	emptyLeaf merkle.LeafFact,
	deserialize merkle.LeafDeserializer,
	nodesW, leavesW *csv.Writer,
	row LeafRow,
) error {
	node, err := tree.GetNode(ctx, ffc, nodeIndex)
	if err != nil {
		return fmt.Errorf("dumpload: resolving node %d: %w", nodeIndex, err)
	}
	emptyRoots := merkle.EmptyTreeRoots(tree.Height, emptyLeaf, ffc.Hasher)
	visitor := &nodeVisitor{
		ctx: ctx, ffc: ffc, prefix: prefix, deser: deserialize, height: tree.Height, row: row,
		nodesW: nodesW, leavesW: leavesW,
	}
	if err := merkle.Traverse(ctx, ffc, merkle.TraverseItem{Index: nodeIndex, Node: node}, emptyRoots, visitor); err != nil {
		return err
	}
	if nodesW != nil {
		nodesW.Flush()
		if err := nodesW.Error(); err != nil {
			return err
		}
	}
	if leavesW != nil {
		leavesW.Flush()
		return leavesW.Error()
	}
	return nil
}
