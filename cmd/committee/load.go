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

package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/committee"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/config"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/dumpload"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/leaves"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/merkle"
)

func loadCmd() *cobra.Command {
	var configPath, object, leavesPath string
	var batchID int64
	var setNextBatchID bool

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load a configured tree's leaves from CSV and commit its batch info",
		RunE: func(cmd *cobra.Command, args []string) error {
			return loadMain(configPath, object, leavesPath, batchID, setNextBatchID)
		},
	}
	cmd.Flags().StringVar(&configPath, "config_file", "", "path to the committee's YAML config")
	cmd.Flags().StringVar(&object, "object", "", "configured object name to load (e.g. vault, order)")
	cmd.Flags().StringVar(&leavesPath, "leaves_file", "", "input leaves CSV, as produced by dump")
	cmd.Flags().Int64Var(&batchID, "batch_id", 0, "batch id the loaded root is recorded under")
	cmd.Flags().BoolVar(&setNextBatchID, "set_next_batch_id", false, "advance the next-batch-id counter past batch_id")
	cmd.MarkFlagRequired("config_file")
	cmd.MarkFlagRequired("object")
	cmd.MarkFlagRequired("leaves_file")
	return cmd
}

func loadMain(configPath, object, leavesPath string, batchID int64, setNextBatchID bool) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	store, err := buildStore(cfg)
	if err != nil {
		return err
	}
	objects, err := cfg.Objects()
	if err != nil {
		return err
	}
	var info committee.ObjectInfo
	found := false
	for _, o := range objects {
		if o.Name == object {
			info, found = o, true
		}
	}
	if !found {
		return fmt.Errorf("committee: no configured object named %q", object)
	}

	emptyLeaf, err := info.EmptyLeaf()
	if err != nil {
		return err
	}

	f, err := os.Open(leavesPath)
	if err != nil {
		return fmt.Errorf("committee: opening %s: %w", leavesPath, err)
	}
	defer f.Close()

	parse, err := leafParser(info.Leaf)
	if err != nil {
		return err
	}

	ffc := &merkle.FFC{Store: store, Hasher: buildHasher(), NWorkers: cfg.Workers}
	tree, err := dumpload.LoadTree(ctx, ffc, info.TreeHeight, emptyLeaf, csv.NewReader(f), parse)
	if err != nil {
		return err
	}

	prevInfo, ok, err := committee.GetBatchInfo(ctx, store, batchID-1)
	if err != nil {
		return err
	}
	seq := int64(0)
	if ok {
		seq = prevInfo.SequenceNumber + 1
	}
	roots := map[string]merkle.Hash{object: tree.Root}
	if err := committee.PutBatchInfo(ctx, store, batchID, committee.BatchInfo{MerkleRoots: roots, SequenceNumber: seq}); err != nil {
		return err
	}

	if setNextBatchID {
		return committee.PutNextBatchID(ctx, store, batchID+1)
	}
	return nil
}

// leafParser returns the reciprocal of leafRow for vault and order
// leaves. Position rows are not parsed: that kind returns an error.
func leafParser(kind committee.LeafKind) (dumpload.LeafParser, error) {
	switch kind {
	case committee.VaultLeafKind:
		return func(row []string) (int64, merkle.LeafFact, error) {
			if len(row) != 4 {
				return 0, nil, fmt.Errorf("expected 4 columns, got %d", len(row))
			}
			leafID, err := strconv.ParseInt(row[0], 10, 64)
			if err != nil {
				return 0, nil, err
			}
			starkKey, err := leaves.FeltFromHex(row[1])
			if err != nil {
				return 0, nil, err
			}
			token, err := leaves.FeltFromHex(row[2])
			if err != nil {
				return 0, nil, err
			}
			balance, err := strconv.ParseUint(row[3], 10, 64)
			if err != nil {
				return 0, nil, err
			}
			leaf, err := leaves.NewVaultLeaf(starkKey, token, balance)
			return leafID, leaf, err
		}, nil

	case committee.OrderLeafKind:
		return func(row []string) (int64, merkle.LeafFact, error) {
			if len(row) != 2 {
				return 0, nil, fmt.Errorf("expected 2 columns, got %d", len(row))
			}
			leafID, err := strconv.ParseInt(row[0], 10, 64)
			if err != nil {
				return 0, nil, err
			}
			amount, err := strconv.ParseUint(row[1], 10, 64)
			if err != nil {
				return 0, nil, err
			}
			leaf, err := leaves.NewOrderLeaf(amount)
			return leafID, leaf, err
		}, nil

	default:
		return nil, fmt.Errorf("committee: load is not supported for leaf kind %q", kind)
	}
}
