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
	"fmt"
	"math/big"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/gateway"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/leaves"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/merkle"
)

func parseDecimalOrHex(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 0)
	if !ok {
		n, ok = new(big.Int).SetString(s, 10)
	}
	if !ok {
		return nil, fmt.Errorf("committee: invalid integer %q", s)
	}
	return n, nil
}

func parseUint64Field(s string) (uint64, error) {
	n, err := parseDecimalOrHex(s)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("committee: value %q out of uint64 range", s)
	}
	return n.Uint64(), nil
}

func parseInt64Field(s string) (int64, error) {
	n, err := parseDecimalOrHex(s)
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() {
		return 0, fmt.Errorf("committee: value %q out of int64 range", s)
	}
	return n.Int64(), nil
}

func parseFeltField(s string) (leaves.Felt, error) {
	n, err := parseDecimalOrHex(s)
	if err != nil {
		return leaves.Felt{}, err
	}
	return leaves.FeltFromBig(n)
}

// DecodeLeaf turns one gateway.LeafJSON into the concrete LeafFact kind
// names, the only place in the module that knows how a wire leaf maps to
// a leaf kind (the gateway package stays agnostic of leaf semantics to
// avoid an import cycle between it and this package).
func DecodeLeaf(kind LeafKind, lj gateway.LeafJSON) (merkle.LeafFact, error) {
	switch kind {
	case VaultLeafKind:
		starkKey, err := parseFeltField(lj.StarkKey)
		if err != nil {
			return nil, fmt.Errorf("committee: decoding vault stark_key: %w", err)
		}
		token, err := parseFeltField(lj.Token)
		if err != nil {
			return nil, fmt.Errorf("committee: decoding vault token: %w", err)
		}
		balance, err := parseUint64Field(lj.Balance)
		if err != nil {
			return nil, fmt.Errorf("committee: decoding vault balance: %w", err)
		}
		return leaves.NewVaultLeaf(starkKey, token, balance)

	case OrderLeafKind:
		amount, err := parseUint64Field(lj.FulfilledAmount)
		if err != nil {
			return nil, fmt.Errorf("committee: decoding order fulfilled_amount: %w", err)
		}
		return leaves.NewOrderLeaf(amount)

	case PositionLeafKind:
		publicKey, err := parseFeltField(lj.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("committee: decoding position public_key: %w", err)
		}
		collateral, err := parseInt64Field(lj.CollateralBalance)
		if err != nil {
			return nil, fmt.Errorf("committee: decoding position collateral_balance: %w", err)
		}
		assets := make(map[leaves.Felt]leaves.PositionAsset, len(lj.Assets))
		for assetIDStr, a := range lj.Assets {
			assetID, err := parseFeltField(assetIDStr)
			if err != nil {
				return nil, fmt.Errorf("committee: decoding position asset id %q: %w", assetIDStr, err)
			}
			balance, err := parseInt64Field(a.Balance)
			if err != nil {
				return nil, fmt.Errorf("committee: decoding position asset balance: %w", err)
			}
			fundingIndex, err := parseInt64Field(a.CachedFundingIndex)
			if err != nil {
				return nil, fmt.Errorf("committee: decoding position asset cached_funding_index: %w", err)
			}
			assets[assetID] = leaves.PositionAsset{Balance: balance, CachedFundingIndex: fundingIndex}
		}
		return leaves.PositionLeaf{PublicKey: publicKey, CollateralBalance: collateral, Assets: assets}, nil

	default:
		return nil, fmt.Errorf("committee: unknown leaf kind %q", kind)
	}
}

// ModificationsFor extracts the merkle.Modification list for the named
// object out of a gateway state update, decoding each wire leaf according
// to kind.
func ModificationsFor(update *gateway.StateUpdate, name string, kind LeafKind) ([]merkle.Modification, error) {
	byIndex, ok := update.Objects[name]
	if !ok {
		return nil, nil
	}
	mods := make([]merkle.Modification, 0, len(byIndex))
	for index, lj := range byIndex {
		leaf, err := DecodeLeaf(kind, lj)
		if err != nil {
			return nil, fmt.Errorf("committee: decoding %s[%d]: %w", name, index, err)
		}
		mods = append(mods, merkle.Modification{Index: index, Leaf: leaf})
	}
	return mods, nil
}
