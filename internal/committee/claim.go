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
	"encoding/binary"
	"fmt"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/merkle"
)

// vaultsObjectName returns whichever of "vault" or "position" this
// registry configures, the variable half of the claim's "vaults"
// position (the other, fixed half is always "order").
func vaultsObjectName(objects []ObjectInfo) (string, error) {
	var found string
	for _, o := range objects {
		if o.Name == "vault" || o.Name == "position" {
			if found != "" {
				return "", fmt.Errorf("committee: both vault and position configured")
			}
			found = o.Name
		}
	}
	if found == "" {
		return "", fmt.Errorf("committee: neither vault nor position configured")
	}
	return found, nil
}

// ClaimHash computes the deterministic availability-claim hash: the
// reference implementation's hash_availability_claim, reproduced here as
// the concatenation of big-endian 32-byte fields (vaults_root,
// vaults_height, trades_root, trades_height, sequence_number) in that
// order, hashed with the same hasher the tree is built over. rollup_vault
// (if configured) is never part of this hash: its data is public
// on-chain and needs no committee attestation.
func ClaimHash(hasher merkle.Hasher, objects []ObjectInfo, info BatchInfo) (merkle.Hash, error) {
	vaultsName, err := vaultsObjectName(objects)
	if err != nil {
		return merkle.Hash{}, err
	}

	heights := make(map[string]int, len(objects))
	for _, o := range objects {
		heights[o.Name] = o.TreeHeight
	}

	vaultsRoot, ok := info.MerkleRoots[vaultsName]
	if !ok {
		return merkle.Hash{}, fmt.Errorf("committee: missing %s root in batch info", vaultsName)
	}
	tradesRoot, ok := info.MerkleRoots["order"]
	if !ok {
		return merkle.Hash{}, fmt.Errorf("committee: missing order root in batch info")
	}

	buf := make([]byte, 0, 5*32)
	buf = append(buf, vaultsRoot[:]...)
	buf = append(buf, fieldInt(heights[vaultsName])...)
	buf = append(buf, tradesRoot[:]...)
	buf = append(buf, fieldInt(heights["order"])...)
	buf = append(buf, fieldInt64(info.SequenceNumber)...)

	// The hasher is defined as a 2-ary combinator; the claim's 5-field
	// preimage is folded into it pairwise, left to right, matching the
	// same combination discipline used for every other commitment in this
	// module (no raw multi-ary hash primitive is assumed to exist).
	h := hasher.Hash(buf[:32], buf[32:64])
	h = hasher.Hash(h[:], buf[64:96])
	h = hasher.Hash(h[:], buf[96:128])
	h = hasher.Hash(h[:], buf[128:160])
	return h, nil
}

func fieldInt(x int) []byte {
	return fieldInt64(int64(x))
}

func fieldInt64(x int64) []byte {
	out := make([]byte, 32)
	binary.BigEndian.PutUint64(out[24:], uint64(x))
	return out
}
