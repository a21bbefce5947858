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
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/factstore"
)

// Calculation is a node in the plan built by Update's first phase: either
// a leaf of the plan (ConstantCalculation, LeafFactCalculation) or an
// inner BinaryCalculation depending on two sub-calculations. Making the
// plan a first-class value separates "which hashes must be recomputed"
// from "compute them", and lets two independently-planned updates be
// combined into one parent calculation before evaluation (see Combine).
type Calculation interface {
	// Dependencies returns the calculations that must be evaluated before
	// this one; nil for leaves of the plan.
	Dependencies() []Calculation

	// Calculate produces this calculation's hash from its already-evaluated
	// dependency results, recording any new facts that must be written into
	// ws.
	Calculate(deps []Hash, hasher Hasher, ws *writeSet) Hash
}

// ConstantCalculation represents a subtree untouched by the current
// batch: its hash is already known and needs no recomputation or write.
type ConstantCalculation struct {
	Value Hash
}

func (c ConstantCalculation) Dependencies() []Calculation { return nil }

func (c ConstantCalculation) Calculate(_ []Hash, _ Hasher, _ *writeSet) Hash { return c.Value }

// LeafFactCalculation represents a modified leaf: its new fact must be
// hashed and written.
type LeafFactCalculation struct {
	Fact LeafFact
}

func (c LeafFactCalculation) Dependencies() []Calculation { return nil }

func (c LeafFactCalculation) Calculate(_ []Hash, hasher Hasher, ws *writeSet) Hash {
	h := c.Fact.Hash(hasher)
	ws.addLeaf(leafKey(c.Fact.Prefix(), h), c.Fact.Serialize())
	return h
}

// BinaryCalculation represents an inner node whose two children have
// either been carried forward (ConstantCalculation) or recomputed.
type BinaryCalculation struct {
	Left, Right Calculation
}

func (c BinaryCalculation) Dependencies() []Calculation { return []Calculation{c.Left, c.Right} }

func (c BinaryCalculation) Calculate(deps []Hash, hasher Hasher, ws *writeSet) Hash {
	fact := MerkleNodeFact{Left: deps[0], Right: deps[1]}
	h := fact.hash(hasher)
	ws.addNode(h, fact)
	return h
}

// treeCalculation pairs a Calculation with the height of the subtree it
// represents, the way MerkleCalculationNode pairs a root_calculation with
// a height in the source implementation.
type treeCalculation struct {
	Root   Calculation
	Height int
}

// Combine builds a parent calculation from two children calculations of
// equal height. This is the sole mechanism the planner uses to construct
// inner nodes, which is what allows two independently planned updates to
// be merged into a single parent calculation before evaluation.
func Combine(left, right treeCalculation) (treeCalculation, error) {
	if left.Height != right.Height {
		return treeCalculation{}, fmt.Errorf("merkle: cannot combine calculations of height %d and %d", left.Height, right.Height)
	}
	return treeCalculation{
		Root:   BinaryCalculation{Left: left.Root, Right: right.Root},
		Height: left.Height + 1,
	}, nil
}

// writeSet accumulates every new node and leaf fact synthesized by a
// single Update call, so they can all be written in one pass after
// evaluation completes — guaranteeing that a failure partway through
// evaluation leaves no partial root visible (nothing is written before
// flush is called).
type writeSet struct {
	mu     sync.Mutex
	nodes  map[Hash]MerkleNodeFact
	leaves []leafWrite
}

type leafWrite struct {
	key, value []byte
}

func newWriteSet() *writeSet {
	return &writeSet{nodes: make(map[Hash]MerkleNodeFact)}
}

func (ws *writeSet) addNode(h Hash, f MerkleNodeFact) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.nodes[h] = f
}

func (ws *writeSet) addLeaf(key, value []byte) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.leaves = append(ws.leaves, leafWrite{key: key, value: value})
}

// flush persists every accumulated fact. It is only ever called once
// evaluation of the whole plan has succeeded.
func (ws *writeSet) flush(ctx context.Context, store factstore.Store, facts FactsDict) error {
	for h, f := range ws.nodes {
		if err := store.Set(ctx, nodeFactKey(h), f.Serialize()); err != nil {
			return fmt.Errorf("merkle: flushing node fact %s: %w", h, err)
		}
		if facts != nil {
			facts[h] = f
		}
	}
	for _, lw := range ws.leaves {
		if err := store.Set(ctx, lw.key, lw.value); err != nil {
			return fmt.Errorf("merkle: flushing leaf fact: %w", err)
		}
	}
	return nil
}

// evaluate runs the plan/evaluate phase bottom-up. Independent
// sub-calculations are evaluated concurrently, bounded by sem: when the
// pool is exhausted, evaluate falls back to evaluating the branch inline
// rather than blocking, which both bounds true parallelism to the pool's
// weight and makes deadlock impossible regardless of plan shape.
func evaluate(ctx context.Context, c Calculation, hasher Hasher, ws *writeSet, sem *semaphore.Weighted) (Hash, error) {
	deps := c.Dependencies()
	if len(deps) == 0 {
		return c.Calculate(nil, hasher, ws), nil
	}

	results := make([]Hash, len(deps))
	errs := make([]error, len(deps))
	var wg sync.WaitGroup
	for i, dep := range deps {
		i, dep := i, dep
		if sem != nil && sem.TryAcquire(1) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sem.Release(1)
				results[i], errs[i] = evaluate(ctx, dep, hasher, ws, sem)
			}()
			continue
		}
		results[i], errs[i] = evaluate(ctx, dep, hasher, ws, sem)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return Hash{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return Hash{}, err
	}
	return c.Calculate(results, hasher, ws), nil
}
