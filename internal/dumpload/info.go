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
	"encoding/json"
	"fmt"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/committee"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/merkle"
)

// Info is the sidecar JSON written alongside a dump's CSV files: the
// batch id, its committed roots, and an optional list of order subtree
// roots. Nothing in the load path reads these subtree roots or checks a
// load against them.
type Info struct {
	BatchID           int64             `json:"batch_id"`
	SequenceNumber    int64             `json:"sequence_number"`
	MerkleRoots       map[string]string `json:"merkle_roots"`
	OrderSubtreeRoots []string          `json:"order_subtree_roots,omitempty"`
}

// NewInfo builds an Info from a loaded BatchInfo plus the given order
// subtree roots, hex-encoded in the order given (the dump command passes
// none).
func NewInfo(batchID int64, info committee.BatchInfo, orderSubtreeRoots []merkle.Hash) Info {
	roots := make(map[string]string, len(info.MerkleRoots))
	for name, h := range info.MerkleRoots {
		roots[name] = h.Hex()
	}
	subtreeRoots := make([]string, len(orderSubtreeRoots))
	for i, h := range orderSubtreeRoots {
		subtreeRoots[i] = h.Hex()
	}
	return Info{
		BatchID:           batchID,
		SequenceNumber:    info.SequenceNumber,
		MerkleRoots:       roots,
		OrderSubtreeRoots: subtreeRoots,
	}
}

// BatchInfo reconstructs a committee.BatchInfo from the dumped Info.
func (i Info) BatchInfo() (committee.BatchInfo, error) {
	roots := make(map[string]merkle.Hash, len(i.MerkleRoots))
	for name, hex := range i.MerkleRoots {
		h, err := merkle.HashFromHex(hex)
		if err != nil {
			return committee.BatchInfo{}, fmt.Errorf("dumpload: parsing root for %q: %w", name, err)
		}
		roots[name] = h
	}
	return committee.BatchInfo{MerkleRoots: roots, SequenceNumber: i.SequenceNumber}, nil
}

// Marshal renders Info as indented JSON, matching the reference
// implementation's json.dump(..., indent=4).
func (i Info) Marshal() ([]byte, error) {
	return json.MarshalIndent(i, "", "    ")
}
