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

// MaxAmount bounds balances and fulfilled amounts, matching the
// reference implementation's MAX_AMOUNT = 2**63.
const MaxAmount = uint64(1) << 63

// VaultPrefix namespaces vault leaf facts in the fact store.
const VaultPrefix = "vault"

// VaultLeaf is the spot-trading vault tree's leaf: a balance of one
// token, owned by one stark key.
type VaultLeaf struct {
	StarkKey Felt
	Token    Felt
	Balance  uint64
}

// EmptyVault returns the canonical zero vault.
func EmptyVault() VaultLeaf {
	return VaultLeaf{}
}

// NewVaultLeaf validates and constructs a vault leaf, matching
// VaultState.__post_init__'s range and zero-balance-implies-zero-owner
// checks.
func NewVaultLeaf(starkKey, token Felt, balance uint64) (VaultLeaf, error) {
	if balance >= MaxAmount {
		return VaultLeaf{}, fmt.Errorf("leaves: vault balance %d out of range", balance)
	}
	if balance == 0 {
		return VaultLeaf{}, nil
	}
	if starkKey.IsZero() {
		return VaultLeaf{}, fmt.Errorf("leaves: a non-empty vault cannot have an empty stark key")
	}
	if token.IsZero() {
		return VaultLeaf{}, fmt.Errorf("leaves: a non-empty vault cannot have an empty token")
	}
	return VaultLeaf{StarkKey: starkKey, Token: token, Balance: balance}, nil
}

func (v VaultLeaf) IsEmpty() bool {
	return v.StarkKey.IsZero() && v.Token.IsZero() && v.Balance == 0
}

func (v VaultLeaf) Prefix() string { return VaultPrefix }

// Serialize is the fixed-width stark_key(32) || token(32) || balance(8)
// encoding persisted under the vault's fact-store key.
func (v VaultLeaf) Serialize() []byte {
	out := make([]byte, 0, FeltSize+FeltSize+8)
	out = append(out, v.StarkKey.Bytes()...)
	out = append(out, v.Token.Bytes()...)
	var bal [8]byte
	binary.BigEndian.PutUint64(bal[:], v.Balance)
	return append(out, bal[:]...)
}

// DeserializeVaultLeaf parses the Serialize encoding.
func DeserializeVaultLeaf(data []byte) (merkle.LeafFact, error) {
	if len(data) != FeltSize+FeltSize+8 {
		return nil, fmt.Errorf("leaves: vault leaf must be %d bytes, got %d", FeltSize+FeltSize+8, len(data))
	}
	var v VaultLeaf
	copy(v.StarkKey[:], data[:FeltSize])
	copy(v.Token[:], data[FeltSize:2*FeltSize])
	v.Balance = binary.BigEndian.Uint64(data[2*FeltSize:])
	return v, nil
}

// Hash reproduces VaultState._hash: hasher(hasher(stark_key, token), balance).
func (v VaultLeaf) Hash(h merkle.Hasher) merkle.Hash {
	hash0 := h.Hash(v.StarkKey.Bytes(), v.Token.Bytes())
	return h.Hash(hash0[:], uint64ToBytes(v.Balance))
}

// Add applies a signed balance change, matching VaultState.add: an
// empty vault adopts the incoming owner/token, a non-empty vault must
// already match them.
func (v VaultLeaf) Add(starkKey, token Felt, diff int64) (VaultLeaf, error) {
	if v.Balance > 0 {
		if v.StarkKey != starkKey {
			return VaultLeaf{}, fmt.Errorf("leaves: vault does not match stark_key")
		}
		if v.Token != token {
			return VaultLeaf{}, fmt.Errorf("leaves: vault does not match token")
		}
	}
	newBalance := int64(v.Balance) + diff
	if newBalance < 0 || uint64(newBalance) >= MaxAmount {
		return VaultLeaf{}, fmt.Errorf("leaves: vault balance change out of range (diff %d on balance %d)", diff, v.Balance)
	}
	return VaultLeaf{StarkKey: starkKey, Token: token, Balance: uint64(newBalance)}, nil
}

var _ merkle.LeafFact = VaultLeaf{}
