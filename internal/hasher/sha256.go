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

// Package hasher provides the default merkle.Hasher implementation. The
// cryptographic hash primitive is explicitly an external collaborator of
// the commitment engine: on-chain verification requires a STARK-friendly
// field hash (Pedersen over the STARK prime field), which no library in
// this module's dependency set implements. SHA256Hasher is a stand-in
// that satisfies merkle.Hasher's contract so the binary runs end to end
// out of the box; a production deployment wires in the real field hash
// through the same interface, by construction.
package hasher

import (
	"crypto/sha256"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/merkle"
)

// SHA256Hasher combines two byte strings with a single SHA-256 digest
// over their concatenation.
type SHA256Hasher struct{}

func (SHA256Hasher) Hash(left, right []byte) merkle.Hash {
	h := sha256.New()
	h.Write(left)
	h.Write(right)
	var out merkle.Hash
	copy(out[:], h.Sum(nil))
	return out
}

var _ merkle.Hasher = SHA256Hasher{}
