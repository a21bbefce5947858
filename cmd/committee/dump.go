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

func dumpCmd() *cobra.Command {
	var configPath, object, nodesPath, leavesPath, infoPath string
	var batchID int64
	var nodeIdx uint64

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump a configured tree's nodes and leaves to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return dumpMain(configPath, object, batchID, nodeIdx, nodesPath, leavesPath, infoPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config_file", "", "path to the committee's YAML config")
	cmd.Flags().StringVar(&object, "object", "", "configured object name to dump (e.g. vault, order)")
	cmd.Flags().Int64Var(&batchID, "batch_id", 0, "batch id whose committed root is dumped")
	cmd.Flags().Uint64Var(&nodeIdx, "node_idx", 1, "binary-tree-in-array index to start the dump from")
	cmd.Flags().StringVar(&nodesPath, "nodes_file", "", "output path for the nodes CSV (optional)")
	cmd.Flags().StringVar(&leavesPath, "leaves_file", "", "output path for the leaves CSV (optional)")
	cmd.Flags().StringVar(&infoPath, "info_file", "", "output path for the batch-info JSON sidecar (optional)")
	cmd.MarkFlagRequired("config_file")
	cmd.MarkFlagRequired("object")
	return cmd
}

func dumpMain(configPath, object string, batchID int64, nodeIdx uint64, nodesPath, leavesPath, infoPath string) error {
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

	batchInfo, ok, err := committee.GetBatchInfo(ctx, store, batchID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("committee: no batch info at id %d", batchID)
	}
	root, ok := batchInfo.MerkleRoots[object]
	if !ok {
		return fmt.Errorf("committee: batch %d has no root for %q", batchID, object)
	}
	tree := merkle.Tree{Root: root, Height: info.TreeHeight}

	emptyLeaf, err := info.EmptyLeaf()
	if err != nil {
		return err
	}
	deserialize, err := info.Deserializer()
	if err != nil {
		return err
	}

	nodesW, closeNodes, err := openCSVWriter(nodesPath)
	if err != nil {
		return err
	}
	defer closeNodes()
	leavesW, closeLeaves, err := openCSVWriter(leavesPath)
	if err != nil {
		return err
	}
	defer closeLeaves()

	ffc := &merkle.FFC{Store: store, Hasher: buildHasher(), NWorkers: cfg.Workers}
	if err := dumpload.DumpTree(ctx, ffc, tree, nodeIdx, info.Prefix(), emptyLeaf, deserialize, nodesW, leavesW, leafRow); err != nil {
		return err
	}

	if infoPath != "" {
		data, err := dumpload.NewInfo(batchID, batchInfo, nil).Marshal()
		if err != nil {
			return err
		}
		return os.WriteFile(infoPath, data, 0o644)
	}
	return nil
}

func openCSVWriter(path string) (*csv.Writer, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("committee: creating %s: %w", path, err)
	}
	return csv.NewWriter(f), func() { f.Close() }, nil
}

// leafRow renders a leaf's domain fields as CSV columns, matching the
// reference implementation's per-object dump_leaf_callback column order.
func leafRow(leafID int64, leaf merkle.LeafFact) []string {
	switch l := leaf.(type) {
	case leaves.VaultLeaf:
		return []string{strconv.FormatInt(leafID, 10), l.StarkKey.Hex(), l.Token.Hex(), strconv.FormatUint(l.Balance, 10)}
	case leaves.OrderLeaf:
		return []string{strconv.FormatInt(leafID, 10), strconv.FormatUint(l.FulfilledAmount, 10)}
	case leaves.PositionLeaf:
		return []string{strconv.FormatInt(leafID, 10), l.PublicKey.Hex(), strconv.FormatInt(l.CollateralBalance, 10)}
	default:
		return []string{strconv.FormatInt(leafID, 10)}
	}
}
