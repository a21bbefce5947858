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

// Command committee runs the data-availability committee member: polling
// the operator's gateway, recomputing and verifying Merkle roots, and
// signing availability claims. It also provides the dump/load subcommands
// used to move a batch's trees in and out of the fact store as CSV.
package main

import (
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

func main() {
	defer glog.Flush()

	root := &cobra.Command{
		Use:   "committee",
		Short: "StarkEx data-availability committee member",
	}
	root.AddCommand(runCmd())
	root.AddCommand(dumpCmd())
	root.AddCommand(loadCmd())

	if err := root.Execute(); err != nil {
		glog.Error(err)
		os.Exit(1)
	}
}
