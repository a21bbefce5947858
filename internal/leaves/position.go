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
	"math/big"
	"sort"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/merkle"
)

// nAssetsUpperBound matches the reference implementation's
// N_ASSETS_UPPER_BOUND = 2**16, the modulus packed into a position's
// hash preimage alongside its asset count.
var nAssetsUpperBound = big.NewInt(1 << 16)

// balanceLowerBound / fundingIndexLowerBound mirror the reference
// implementation's symmetric signed ranges (-2**63..2**63), used to
// shift signed quantities into the non-negative packing the on-chain
// verifier expects.
var (
	balanceLowerBound      = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 63))
	fundingIndexLowerBound = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 63))
	rangeSize64            = new(big.Int).Lsh(big.NewInt(1), 64) // 2**64
)

// PositionPrefix namespaces position leaf facts in the fact store.
const PositionPrefix = "position"

// PositionAsset is one synthetic asset held within a position: a
// quantized balance and a snapshot of the funding index applied to it.
type PositionAsset struct {
	Balance            int64
	CachedFundingIndex int64
}

// message reproduces PositionAsset.calculate_message's packing of
// (asset_id, cached_funding_index, balance) into a single field element.
func (a PositionAsset) message(assetID Felt) []byte {
	shiftedFunding := new(big.Int).Sub(big.NewInt(a.CachedFundingIndex), fundingIndexLowerBound)

	packed := new(big.Int).Mul(assetID.Big(), rangeSize64)
	packed.Add(packed, shiftedFunding)

	shiftedBalance := new(big.Int).Sub(big.NewInt(a.Balance), balanceLowerBound)
	packed.Mul(packed, rangeSize64)
	packed.Add(packed, shiftedBalance)

	return bigToFelt32(packed)
}

// PositionLeaf is the perpetual-trading position tree's leaf.
type PositionLeaf struct {
	PublicKey         Felt
	CollateralBalance int64
	Assets            map[Felt]PositionAsset
}

// EmptyPosition returns the canonical zero position.
func EmptyPosition() PositionLeaf {
	return PositionLeaf{Assets: map[Felt]PositionAsset{}}
}

func (p PositionLeaf) IsEmpty() bool {
	return p.PublicKey.IsZero() && p.CollateralBalance == 0 && len(p.Assets) == 0
}

func (p PositionLeaf) Prefix() string { return PositionPrefix }

// Serialize is a length-prefixed encoding: public_key(32) ||
// collateral_balance(8, two's complement) || asset_count(4) || for each
// asset, sorted by id: asset_id(32) || balance(8) || cached_funding_index(8).
func (p PositionLeaf) Serialize() []byte {
	ids := sortedAssetIDs(p.Assets)
	out := make([]byte, 0, FeltSize+8+4+len(ids)*(FeltSize+16))
	out = append(out, p.PublicKey.Bytes()...)
	out = append(out, int64ToFixed8(p.CollateralBalance)...)
	var count [4]byte
	binary.BigEndian.PutUint32(count[:], uint32(len(ids)))
	out = append(out, count[:]...)
	for _, id := range ids {
		asset := p.Assets[id]
		out = append(out, id.Bytes()...)
		out = append(out, int64ToFixed8(asset.Balance)...)
		out = append(out, int64ToFixed8(asset.CachedFundingIndex)...)
	}
	return out
}

// DeserializePositionLeaf parses the Serialize encoding.
func DeserializePositionLeaf(data []byte) (merkle.LeafFact, error) {
	if len(data) < FeltSize+8+4 {
		return nil, fmt.Errorf("leaves: position leaf truncated")
	}
	var p PositionLeaf
	copy(p.PublicKey[:], data[:FeltSize])
	off := FeltSize
	p.CollateralBalance = fixed8ToInt64(data[off : off+8])
	off += 8
	count := binary.BigEndian.Uint32(data[off : off+4])
	off += 4
	p.Assets = make(map[Felt]PositionAsset, count)
	for i := uint32(0); i < count; i++ {
		if off+FeltSize+16 > len(data) {
			return nil, fmt.Errorf("leaves: position leaf truncated at asset %d", i)
		}
		var id Felt
		copy(id[:], data[off:off+FeltSize])
		off += FeltSize
		balance := fixed8ToInt64(data[off : off+8])
		off += 8
		funding := fixed8ToInt64(data[off : off+8])
		off += 8
		p.Assets[id] = PositionAsset{Balance: balance, CachedFundingIndex: funding}
	}
	return p, nil
}

// Hash reproduces PositionState._hash: a running hash over the
// asset-sorted messages, then combined with the public key and the
// packed (collateral_balance, asset_count) pair.
func (p PositionLeaf) Hash(h merkle.Hasher) merkle.Hash {
	shiftedCollateral := new(big.Int).Sub(big.NewInt(p.CollateralBalance), balanceLowerBound)
	positionPacked := new(big.Int).Mul(shiftedCollateral, nAssetsUpperBound)
	positionPacked.Add(positionPacked, big.NewInt(int64(len(p.Assets))))

	var assetsHash merkle.Hash
	for _, id := range sortedAssetIDs(p.Assets) {
		assetsHash = h.Hash(assetsHash[:], p.Assets[id].message(id))
	}

	hash0 := h.Hash(assetsHash[:], p.PublicKey.Bytes())
	return h.Hash(hash0[:], bigToFelt32(positionPacked))
}

func sortedAssetIDs(assets map[Felt]PositionAsset) []Felt {
	ids := make([]Felt, 0, len(assets))
	for id := range assets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].Big().Cmp(ids[j].Big()) < 0
	})
	return ids
}

// bigToFelt32 big-endian encodes a non-negative big.Int into a fixed
// 32-byte slice.
func bigToFelt32(x *big.Int) []byte {
	out := make([]byte, FeltSize)
	b := x.Bytes()
	if len(b) > FeltSize {
		b = b[len(b)-FeltSize:]
	}
	copy(out[FeltSize-len(b):], b)
	return out
}

// int64ToFixed8 / fixed8ToInt64 round-trip a signed int64 through its
// raw two's-complement bit pattern.
func int64ToFixed8(x int64) []byte {
	var out [8]byte
	binary.BigEndian.PutUint64(out[:], uint64(x))
	return out[:]
}

func fixed8ToInt64(data []byte) int64 {
	return int64(binary.BigEndian.Uint64(data))
}

var _ merkle.LeafFact = PositionLeaf{}
