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
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/golang/glog"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/factstore"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/merkle"
)

// BatchInfo is a single batch's committed roots, keyed by object name,
// plus the monotonically increasing sequence number fed into the claim
// hash.
type BatchInfo struct {
	MerkleRoots    map[string]merkle.Hash
	SequenceNumber int64
}

func newBatchInfoKey(batchID int64) []byte {
	return []byte(fmt.Sprintf("new_committee_batch_info:%d", batchID))
}

func legacyBatchInfoKey(batchID int64) []byte {
	return []byte(fmt.Sprintf("committee_batch_info:%d", batchID))
}

// Serialize encodes a BatchInfo as: sequence_number(8, big-endian
// two's-complement) || object_count(4) || for each object, sorted by
// name: name_len(2) || name || root(32).
func (b BatchInfo) Serialize() []byte {
	names := make([]string, 0, len(b.MerkleRoots))
	for name := range b.MerkleRoots {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]byte, 8, 8+4+len(names)*(2+32))
	binary.BigEndian.PutUint64(out, uint64(b.SequenceNumber))
	var count [4]byte
	binary.BigEndian.PutUint32(count[:], uint32(len(names)))
	out = append(out, count[:]...)
	for _, name := range names {
		var nameLen [2]byte
		binary.BigEndian.PutUint16(nameLen[:], uint16(len(name)))
		out = append(out, nameLen[:]...)
		out = append(out, []byte(name)...)
		root := b.MerkleRoots[name]
		out = append(out, root[:]...)
	}
	return out
}

// DeserializeBatchInfo parses the Serialize encoding.
func DeserializeBatchInfo(data []byte) (BatchInfo, error) {
	if len(data) < 12 {
		return BatchInfo{}, fmt.Errorf("committee: batch info truncated")
	}
	seq := int64(binary.BigEndian.Uint64(data[:8]))
	count := binary.BigEndian.Uint32(data[8:12])
	off := 12
	roots := make(map[string]merkle.Hash, count)
	for i := uint32(0); i < count; i++ {
		if off+2 > len(data) {
			return BatchInfo{}, fmt.Errorf("committee: batch info truncated at object %d", i)
		}
		nameLen := int(binary.BigEndian.Uint16(data[off : off+2]))
		off += 2
		if off+nameLen+merkle.HashSize > len(data) {
			return BatchInfo{}, fmt.Errorf("committee: batch info truncated at object %d", i)
		}
		name := string(data[off : off+nameLen])
		off += nameLen
		root, err := merkle.HashFromBytes(data[off : off+merkle.HashSize])
		if err != nil {
			return BatchInfo{}, err
		}
		off += merkle.HashSize
		roots[name] = root
	}
	return BatchInfo{MerkleRoots: roots, SequenceNumber: seq}, nil
}

// GetBatchInfo reads a batch's info from store, falling back to the
// legacy pre-4.5 key and migrating forward on a legacy-key hit, matching
// Committee.get_committee_batch_info. A miss at both keys returns
// (BatchInfo{}, false, nil).
func GetBatchInfo(ctx context.Context, store factstore.Store, batchID int64) (BatchInfo, bool, error) {
	raw, ok, err := store.Get(ctx, newBatchInfoKey(batchID))
	if err != nil {
		return BatchInfo{}, false, err
	}
	if ok {
		info, err := DeserializeBatchInfo(raw)
		return info, err == nil, err
	}

	raw, ok, err = store.Get(ctx, legacyBatchInfoKey(batchID))
	if err != nil {
		return BatchInfo{}, false, err
	}
	if !ok {
		return BatchInfo{}, false, nil
	}
	glog.Warningf("committee: batch info %d found under legacy key, migrating", batchID)
	info, err := DeserializeBatchInfo(raw)
	if err != nil {
		return BatchInfo{}, false, err
	}
	if err := store.Set(ctx, newBatchInfoKey(batchID), raw); err != nil {
		return BatchInfo{}, false, err
	}
	return info, true, nil
}

// PutBatchInfo writes a batch's info under the current key. Batch info
// keys are write-once per batch id in steady-state operation; callers
// must not call this twice for the same batchID except during legacy
// migration.
func PutBatchInfo(ctx context.Context, store factstore.Store, batchID int64, info BatchInfo) error {
	return store.Set(ctx, newBatchInfoKey(batchID), info.Serialize())
}

const nextBatchIDKey = "committee_next_batch_id"

// GetNextBatchID reads the persisted next-batch-id counter, defaulting
// to 0 when absent.
func GetNextBatchID(ctx context.Context, store factstore.Store) (int64, error) {
	v, ok, err := factstore.GetInt(ctx, store, []byte(nextBatchIDKey))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return v, nil
}

// PutNextBatchID persists the next-batch-id counter.
func PutNextBatchID(ctx context.Context, store factstore.Store, next int64) error {
	return factstore.SetInt(ctx, store, []byte(nextBatchIDKey), next)
}
