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

// Package gateway implements the availability-gateway HTTP client: an
// mTLS-capable, retrying REST client, and the wire DTOs for state
// updates and committee signatures.
package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// LeafJSON is the wire shape of a single leaf: fields present depend on
// the object's leaf kind (vault/order/position), matching the reference
// implementation's per-class marshmallow schema. Decoding a LeafJSON
// into a concrete LeafFact is the committee package's job, which is the
// only place that knows which object name maps to which leaf kind.
type LeafJSON struct {
	StarkKey          string               `json:"stark_key,omitempty"`
	Token             string               `json:"token,omitempty"`
	Balance           string               `json:"balance,omitempty"`
	FulfilledAmount   string               `json:"fulfilled_amount,omitempty"`
	PublicKey         string               `json:"public_key,omitempty"`
	CollateralBalance string               `json:"collateral_balance,omitempty"`
	Assets            map[string]AssetJSON `json:"assets,omitempty"`
}

// AssetJSON is one entry of a PositionLeaf's assets map on the wire.
type AssetJSON struct {
	Balance            string `json:"balance"`
	CachedFundingIndex string `json:"cached_funding_index"`
}

// StateUpdate is the batch-data response's "update" field: the previous
// batch id, every configured object's modified leaves and declared root.
type StateUpdate struct {
	PrevBatchID int64
	// Objects maps object name (e.g. "vault", "order", "rollup_vault",
	// "position") to its index -> leaf-json modifications.
	Objects map[string]map[int64]LeafJSON
	// Roots maps object name to its declared hex root (no "0x" prefix).
	Roots map[string]string
}

// UnmarshalJSON decodes the reference implementation's flattened wire
// shape: "<name>s" object maps and "<name>_root" hex strings sit
// alongside prev_batch_id at the top level rather than nested.
func (u *StateUpdate) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var prevBatchID int64
	if v, ok := raw["prev_batch_id"]; ok {
		if err := json.Unmarshal(v, &prevBatchID); err != nil {
			return fmt.Errorf("gateway: decoding prev_batch_id: %w", err)
		}
	}

	objects := make(map[string]map[int64]LeafJSON)
	roots := make(map[string]string)
	for key, value := range raw {
		switch {
		case key == "prev_batch_id":
			continue
		case len(key) > len("_root") && key[len(key)-len("_root"):] == "_root":
			name := key[:len(key)-len("_root")]
			var root string
			if err := json.Unmarshal(value, &root); err != nil {
				return fmt.Errorf("gateway: decoding %s: %w", key, err)
			}
			roots[name] = root
		case len(key) > 1 && key[len(key)-1] == 's':
			name := key[:len(key)-1]
			var byIndex map[string]LeafJSON
			if err := json.Unmarshal(value, &byIndex); err != nil {
				return fmt.Errorf("gateway: decoding %s: %w", key, err)
			}
			byIdx := make(map[int64]LeafJSON, len(byIndex))
			for idxStr, leaf := range byIndex {
				idx, err := strconv.ParseInt(idxStr, 10, 64)
				if err != nil {
					return fmt.Errorf("gateway: invalid leaf index %q in %s: %w", idxStr, key, err)
				}
				byIdx[idx] = leaf
			}
			objects[name] = byIdx
		}
	}

	u.PrevBatchID = prevBatchID
	u.Objects = objects
	u.Roots = roots
	return nil
}

// batchDataResponse is the gateway's get_batch_data response envelope:
// update is null when the requested batch isn't ready yet.
type batchDataResponse struct {
	Update *StateUpdate `json:"update"`
}
