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

// Package committee implements the batch validator loop: polling the
// gateway, recomputing tree roots, comparing them against the operator's
// declared roots, persisting batch info and signing the availability
// claim.
package committee

import (
	"fmt"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/leaves"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/merkle"
)

// LeafKind identifies a concrete LeafFact implementation. The reference
// implementation resolves this dynamically from a dotted Python class
// path in configuration; committee_objects here names one of these
// constants instead, resolved once at config-load time into a static
// ObjectInfo, which keeps every subsequent dispatch a plain switch
// instead of reflection.
type LeafKind string

const (
	VaultLeafKind    LeafKind = "vault"
	OrderLeafKind    LeafKind = "order"
	PositionLeafKind LeafKind = "position"
)

// TreeKind identifies the tree engine a named object uses. Both values
// share the same merkle.Tree implementation: the reference
// implementation's Patriarcha/Patricia tree is a path-compressed variant
// chosen for trees sparse enough (orders, positions) that most internal
// nodes are empty subtrees; this module's merkle.Tree already prunes
// empty subtrees during traversal (EmptyTreeRoots) and so reaches the
// same asymptotic behavior without a distinct node representation. The
// distinction is kept at the type level for configuration clarity and in
// case a path-compressed representation is added later.
type TreeKind string

const (
	MerkleTreeKind   TreeKind = "merkle"
	PatriciaTreeKind TreeKind = "patricia"
)

// ObjectInfo is one configured named object (vault/order/rollup_vault/
// position): which leaf type it stores, the tree engine, and the tree's
// fixed height. It mirrors CommitteeObjectInfo, replacing the reference
// implementation's dynamic class-path lookup with a static registry
// entry resolved once at config load.
type ObjectInfo struct {
	Name       string
	Leaf       LeafKind
	Tree       TreeKind
	TreeHeight int
}

// EmptyLeaf returns the canonical zero leaf for this object's leaf kind.
func (o ObjectInfo) EmptyLeaf() (merkle.LeafFact, error) {
	switch o.Leaf {
	case VaultLeafKind:
		return leaves.EmptyVault(), nil
	case OrderLeafKind:
		return leaves.EmptyOrder(), nil
	case PositionLeafKind:
		return leaves.EmptyPosition(), nil
	default:
		return nil, fmt.Errorf("committee: unknown leaf kind %q", o.Leaf)
	}
}

// Prefix returns the fact-store key prefix this object's leaves are
// persisted under.
func (o ObjectInfo) Prefix() string {
	switch o.Leaf {
	case VaultLeafKind:
		return leaves.VaultPrefix
	case OrderLeafKind:
		return leaves.OrderPrefix
	case PositionLeafKind:
		return leaves.PositionPrefix
	default:
		return string(o.Leaf)
	}
}

// Deserializer returns the LeafDeserializer for this object's leaf kind.
func (o ObjectInfo) Deserializer() (merkle.LeafDeserializer, error) {
	switch o.Leaf {
	case VaultLeafKind:
		return leaves.DeserializeVaultLeaf, nil
	case OrderLeafKind:
		return leaves.DeserializeOrderLeaf, nil
	case PositionLeafKind:
		return leaves.DeserializePositionLeaf, nil
	default:
		return nil, fmt.Errorf("committee: unknown leaf kind %q", o.Leaf)
	}
}

// ParseLeafKind validates a configured leaf-kind string.
func ParseLeafKind(s string) (LeafKind, error) {
	switch LeafKind(s) {
	case VaultLeafKind, OrderLeafKind, PositionLeafKind:
		return LeafKind(s), nil
	default:
		return "", fmt.Errorf("committee: unknown leaf kind %q", s)
	}
}

// ParseTreeKind validates a configured tree-kind string.
func ParseTreeKind(s string) (TreeKind, error) {
	switch TreeKind(s) {
	case MerkleTreeKind, PatriciaTreeKind:
		return TreeKind(s), nil
	default:
		return "", fmt.Errorf("committee: unknown tree kind %q", s)
	}
}
