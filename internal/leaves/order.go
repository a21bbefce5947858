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

package leaves

import (
	"encoding/binary"
	"fmt"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/merkle"
)

// OrderPrefix namespaces order leaf facts in the fact store. It is
// shared by both supported orders-tree semantics: order fulfillment and
// mintable-asset minted amount.
const OrderPrefix = "order"

// OrderLeaf is a leaf of the orders tree: either how much of an order
// has been fulfilled, or how much of a mintable asset has been minted.
type OrderLeaf struct {
	FulfilledAmount uint64
}

// EmptyOrder returns the canonical zero order/mint leaf.
func EmptyOrder() OrderLeaf { return OrderLeaf{} }

// NewOrderLeaf validates the range, matching OrderState.__post_init__.
func NewOrderLeaf(fulfilledAmount uint64) (OrderLeaf, error) {
	if fulfilledAmount >= MaxAmount {
		return OrderLeaf{}, fmt.Errorf("leaves: fulfilled amount %d out of range", fulfilledAmount)
	}
	return OrderLeaf{FulfilledAmount: fulfilledAmount}, nil
}

func (o OrderLeaf) IsEmpty() bool { return o.FulfilledAmount == 0 }

func (o OrderLeaf) Prefix() string { return OrderPrefix }

func (o OrderLeaf) Serialize() []byte {
	var out [8]byte
	binary.BigEndian.PutUint64(out[:], o.FulfilledAmount)
	return out[:]
}

func DeserializeOrderLeaf(data []byte) (merkle.LeafFact, error) {
	if len(data) != 8 {
		return nil, fmt.Errorf("leaves: order leaf must be 8 bytes, got %d", len(data))
	}
	return OrderLeaf{FulfilledAmount: binary.BigEndian.Uint64(data)}, nil
}

// Hash reproduces OrderState._hash: the raw big-endian encoding of the
// amount, *not* passed through the hasher — the reference implementation
// treats the order tree's leaf fact as the field element itself.
func (o OrderLeaf) Hash(_ merkle.Hasher) merkle.Hash {
	var h merkle.Hash
	copy(h[:], uint64ToBytes(o.FulfilledAmount))
	return h
}

// Add applies a fulfillment/mint delta, matching OrderState.add: the
// new total must not exceed the order's capacity (its full order amount,
// or the mintable asset's total supply).
func (o OrderLeaf) Add(diff int64, capacity uint64) (OrderLeaf, error) {
	if diff < 0 {
		return OrderLeaf{}, fmt.Errorf("leaves: order cannot be fulfilled by a negative amount")
	}
	newAmount := o.FulfilledAmount + uint64(diff)
	if newAmount > capacity {
		return OrderLeaf{}, fmt.Errorf("leaves: order is over fulfilled")
	}
	return OrderLeaf{FulfilledAmount: newAmount}, nil
}

var _ merkle.LeafFact = OrderLeaf{}
