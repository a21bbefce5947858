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
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/factstore"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/gateway"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/merkle"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/metrics"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/signer"
)

// obsoleteOrderTreeRoot is the sentinel the operator sends for an order
// root that predates the current order-tree topology (the StarkEx 4.0 to
// 4.5 migration). It is accepted blindly rather than verified.
const obsoleteOrderTreeRoot = "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"

// Signer is the subset of *signer.Signer the validator depends on.
type Signer interface {
	MemberAddress() string
	SignHex(claimHash [32]byte) (string, error)
}

// Gateway is the subset of the gateway client the validator depends on.
type Gateway interface {
	GetBatchData(ctx context.Context, batchID int64, validateRollup *bool) (*gateway.StateUpdate, error)
	SendSignature(ctx context.Context, batchID int64, sig, memberKey, claimHash string) error
}

// Validator runs the batch validation loop described in spec §4.6: poll,
// recompute roots, compare, persist, sign.
type Validator struct {
	Store          factstore.Store
	Hasher         merkle.Hasher
	Gateway        Gateway
	Signer         Signer
	Objects        []ObjectInfo
	ValidateOrders bool
	ValidateRollup *bool // nil means "not configured" (pre-rollup API)
	PollingInterval time.Duration
	Workers        int
	Metrics        *metrics.Metrics // nil disables instrumentation

	stopMu  sync.Mutex
	stopped bool
}

// Stop requests the loop exit after its current iteration.
func (v *Validator) Stop() {
	v.stopMu.Lock()
	defer v.stopMu.Unlock()
	v.stopped = true
}

func (v *Validator) isStopped() bool {
	v.stopMu.Lock()
	defer v.stopMu.Unlock()
	return v.stopped
}

// ffc builds the FactFetchingContext every tree operation needs.
func (v *Validator) ffc() *merkle.FFC {
	return &merkle.FFC{Store: v.Store, Hasher: v.Hasher, NWorkers: v.Workers}
}

func (v *Validator) objectByName(name string) (ObjectInfo, bool) {
	for _, o := range v.Objects {
		if o.Name == name {
			return o, true
		}
	}
	return ObjectInfo{}, false
}

func (v *Validator) computeEmptyRoot(ctx context.Context, o ObjectInfo) (merkle.Hash, error) {
	leaf, err := o.EmptyLeaf()
	if err != nil {
		return merkle.Hash{}, err
	}
	tree, err := merkle.EmptyTree(ctx, v.ffc(), o.TreeHeight, leaf)
	if err != nil {
		return merkle.Hash{}, err
	}
	return tree.Root, nil
}

// ComputeInitialBatchInfo writes the batch-info for batch id -1: every
// configured object's empty-tree root, sequence number -1. It is
// idempotent to call repeatedly (the root of a given height and leaf
// type is always the same hash).
func (v *Validator) ComputeInitialBatchInfo(ctx context.Context) error {
	roots := make(map[string]merkle.Hash, len(v.Objects))
	var mu sync.Mutex
	var wg sync.WaitGroup
	errs := make([]error, len(v.Objects))
	for i, o := range v.Objects {
		i, o := i, o
		wg.Add(1)
		go func() {
			defer wg.Done()
			root, err := v.computeEmptyRoot(ctx, o)
			if err != nil {
				errs[i] = err
				return
			}
			mu.Lock()
			roots[o.Name] = root
			mu.Unlock()
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return PutBatchInfo(ctx, v.Store, -1, BatchInfo{MerkleRoots: roots, SequenceNumber: -1})
}

// Run executes the validator loop until Stop is called. It blocks until
// then; callers typically run it in its own goroutine.
func (v *Validator) Run(ctx context.Context) error {
	if err := v.ComputeInitialBatchInfo(ctx); err != nil {
		return fmt.Errorf("committee: computing initial batch info: %w", err)
	}

	nextBatchID, err := GetNextBatchID(ctx, v.Store)
	if err != nil {
		return fmt.Errorf("committee: reading next batch id: %w", err)
	}

	for !v.isStopped() {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		advanced, err := v.runIteration(ctx, nextBatchID)
		if v.Metrics != nil {
			v.Metrics.IterationLatency.Observe(time.Since(start).Seconds())
		}
		if err != nil {
			glog.Errorf("committee: iteration %d failed: %v", nextBatchID, err)
			if v.Metrics != nil {
				v.Metrics.BatchesFailed.Inc()
			}
			v.sleep(ctx)
			continue
		}
		if !advanced {
			v.sleep(ctx)
			continue
		}
		if v.Metrics != nil {
			v.Metrics.BatchesValidated.Inc()
			v.Metrics.CurrentBatchID.Set(float64(nextBatchID))
		}
		nextBatchID++
		if err := PutNextBatchID(ctx, v.Store, nextBatchID); err != nil {
			glog.Errorf("committee: persisting next batch id %d: %v", nextBatchID, err)
			v.sleep(ctx)
		}
	}
	return nil
}

func (v *Validator) sleep(ctx context.Context) {
	select {
	case <-time.After(v.PollingInterval):
	case <-ctx.Done():
	}
}

// runIteration processes exactly one batch id. It returns advanced=true
// once the signature has been accepted by the gateway; advanced=false
// means the batch was not yet available and the caller should back off
// without treating it as an error.
func (v *Validator) runIteration(ctx context.Context, batchID int64) (bool, error) {
	update, err := v.Gateway.GetBatchData(ctx, batchID, v.ValidateRollup)
	if err != nil {
		return false, fmt.Errorf("fetching batch data: %w", err)
	}
	if update == nil {
		glog.Infof("committee: waiting for batch %d", batchID)
		return false, nil
	}

	prevInfo, ok, err := GetBatchInfo(ctx, v.Store, update.PrevBatchID)
	if err != nil {
		return false, fmt.Errorf("reading prev batch info: %w", err)
	}
	if !ok {
		return false, fmt.Errorf("no batch info at index %d", update.PrevBatchID)
	}

	prevRoots := make(map[string]merkle.Hash, len(prevInfo.MerkleRoots))
	for k, v := range prevInfo.MerkleRoots {
		prevRoots[k] = v
	}
	if rollupInfo, ok := v.objectByName("rollup_vault"); ok {
		if _, present := prevRoots["rollup_vault"]; !present {
			root, err := v.computeEmptyRoot(ctx, rollupInfo)
			if err != nil {
				return false, fmt.Errorf("synthesizing empty rollup_vault root: %w", err)
			}
			prevRoots["rollup_vault"] = root
			glog.Warning("committee: initialized empty rollup tree")
		}
	}

	validatedNames, err := v.validatedObjectNames()
	if err != nil {
		return false, err
	}

	computed, err := v.computeRoots(ctx, validatedNames, prevRoots, update)
	if err != nil {
		return false, err
	}

	newRoots := make(map[string]merkle.Hash, len(v.Objects))
	for _, o := range v.Objects {
		declaredHex, ok := update.Roots[o.Name]
		if !ok {
			return false, fmt.Errorf("state update missing root for %q", o.Name)
		}
		if o.Name == "order" && strings.EqualFold(declaredHex, obsoleteOrderTreeRoot) {
			glog.Infof("committee: order root on batch %d is obsolete; blindly signing", batchID)
			root, err := merkle.HashFromHex(declaredHex)
			if err != nil {
				return false, fmt.Errorf("parsing obsolete order root: %w", err)
			}
			newRoots[o.Name] = root
			continue
		}
		if _, isValidated := validatedNames[o.Name]; isValidated {
			root := computed[o.Name]
			if !strings.EqualFold(root.Hex(), declaredHex) {
				if v.Metrics != nil {
					v.Metrics.RootMismatches.WithLabelValues(o.Name).Inc()
				}
				return false, fmt.Errorf("%s root mismatch: computed %s, declared %s", o.Name, root.Hex(), declaredHex)
			}
			glog.Infof("committee: verified %s root: %s", o.Name, declaredHex)
		} else {
			glog.Infof("committee: blindly signing %s root: %s", o.Name, declaredHex)
		}
		// Prefer the computed root over the declared one wherever we have
		// one; the operator's value is only ever authoritative for objects
		// we did not (or cannot) recompute.
		declared, err := merkle.HashFromHex(declaredHex)
		if err != nil {
			return false, fmt.Errorf("parsing declared root for %q: %w", o.Name, err)
		}
		if root, ok := computed[o.Name]; ok {
			newRoots[o.Name] = root
		} else {
			newRoots[o.Name] = declared
		}
	}

	newInfo := BatchInfo{MerkleRoots: newRoots, SequenceNumber: prevInfo.SequenceNumber + 1}
	if err := PutBatchInfo(ctx, v.Store, batchID, newInfo); err != nil {
		return false, fmt.Errorf("persisting batch info: %w", err)
	}

	claimHash, err := ClaimHash(v.Hasher, v.Objects, newInfo)
	if err != nil {
		return false, fmt.Errorf("computing claim hash: %w", err)
	}
	sigHex, err := v.Signer.SignHex(claimHash)
	if err != nil {
		return false, fmt.Errorf("signing claim: %w", err)
	}

	if err := v.Gateway.SendSignature(ctx, batchID, sigHex, v.Signer.MemberAddress(), hex.EncodeToString(claimHash[:])); err != nil {
		return false, fmt.Errorf("submitting signature: %w", err)
	}
	return true, nil
}

// validatedObjectNames computes the set of configured names whose root
// this committee actually recomputes, per spec §4.6 step 5.
func (v *Validator) validatedObjectNames() (map[string]struct{}, error) {
	names := make(map[string]struct{}, len(v.Objects))
	for _, o := range v.Objects {
		names[o.Name] = struct{}{}
	}
	if !v.ValidateOrders {
		delete(names, "order")
	}
	if v.ValidateRollup != nil && !*v.ValidateRollup {
		delete(names, "rollup_vault")
	}
	if v.ValidateRollup == nil {
		if _, ok := names["rollup_vault"]; ok {
			return nil, fmt.Errorf("committee: rollup_vault configured but validate_rollup is unset")
		}
	}
	return names, nil
}

// computeRoots runs update() for every validated object concurrently and
// returns the resulting map of name to new root.
func (v *Validator) computeRoots(ctx context.Context, validatedNames map[string]struct{}, prevRoots map[string]merkle.Hash, update *gateway.StateUpdate) (map[string]merkle.Hash, error) {
	type result struct {
		name string
		root merkle.Hash
		err  error
	}
	results := make(chan result, len(validatedNames))
	var wg sync.WaitGroup
	for _, o := range v.Objects {
		if _, ok := validatedNames[o.Name]; !ok {
			continue
		}
		o := o
		wg.Add(1)
		go func() {
			defer wg.Done()
			mods, err := ModificationsFor(update, o.Name, o.Leaf)
			if err != nil {
				results <- result{name: o.Name, err: err}
				return
			}
			tree := merkle.Tree{Root: prevRoots[o.Name], Height: o.TreeHeight}
			newTree, err := tree.Update(ctx, v.ffc(), mods, nil)
			if err != nil {
				results <- result{name: o.Name, err: fmt.Errorf("updating %s tree: %w", o.Name, err)}
				return
			}
			results <- result{name: o.Name, root: newTree.Root}
		}()
	}
	wg.Wait()
	close(results)

	out := make(map[string]merkle.Hash, len(validatedNames))
	for r := range results {
		if r.err != nil {
			return nil, r.err
		}
		out[r.name] = r.root
	}
	return out, nil
}
