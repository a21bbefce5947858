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

package dumpload

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/merkle"
)

// LeafParser parses one CSV row (leaf_id followed by the leaf's domain
// columns) into a modification.
type LeafParser func(row []string) (leafID int64, leaf merkle.LeafFact, err error)

// batchSize bounds how many modifications LoadTree accumulates before
// flushing an Update call, keeping memory bounded for large dumps.
const batchSize = 4096

// LoadTree rebuilds a tree of the given height from a leaves CSV file
// (produced by DumpTree), starting from that height's canonical empty
// tree and applying every row as a Modification.
func LoadTree(ctx context.Context, ffc *merkle.FFC, height int, emptyLeaf merkle.LeafFact, leavesR *csv.Reader, parse LeafParser) (merkle.Tree, error) {
	tree, err := merkle.EmptyTree(ctx, ffc, height, emptyLeaf)
	if err != nil {
		return merkle.Tree{}, fmt.Errorf("dumpload: building empty tree: %w", err)
	}

	batch := make([]merkle.Modification, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		newTree, err := tree.Update(ctx, ffc, batch, nil)
		if err != nil {
			return fmt.Errorf("dumpload: applying batch: %w", err)
		}
		tree = newTree
		batch = batch[:0]
		return nil
	}

	for {
		row, err := leavesR.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return merkle.Tree{}, fmt.Errorf("dumpload: reading leaves row: %w", err)
		}
		leafID, leaf, err := parse(row)
		if err != nil {
			return merkle.Tree{}, fmt.Errorf("dumpload: parsing leaves row %v: %w", row, err)
		}
		batch = append(batch, merkle.Modification{Index: leafID, Leaf: leaf})
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return merkle.Tree{}, err
			}
		}
	}
	if err := flush(); err != nil {
		return merkle.Tree{}, err
	}
	return tree, nil
}
