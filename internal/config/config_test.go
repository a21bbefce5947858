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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/committee"
)

func validConfig() Config {
	return Config{
		AvailabilityGatewayEndpoint: "https://gateway.example",
		PollingIntervalSeconds:      1.0,
		CommitteeObjects: []ObjectSpec{
			{Name: "vault", Leaf: "vault", Tree: "merkle", Height: 31},
			{Name: "order", Leaf: "order", Tree: "merkle", Height: 64},
		},
	}
}

func TestValidateAcceptsAMinimalConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRejectsMissingEndpoint(t *testing.T) {
	c := validConfig()
	c.AvailabilityGatewayEndpoint = ""
	require.Error(t, c.Validate())
}

func TestValidateRejectsNonPositivePollingInterval(t *testing.T) {
	c := validConfig()
	c.PollingIntervalSeconds = 0
	require.Error(t, c.Validate())
}

func TestValidateRejectsEmptyCommitteeObjects(t *testing.T) {
	c := validConfig()
	c.CommitteeObjects = nil
	require.Error(t, c.Validate())
}

func TestValidateRejectsUnknownLeafKind(t *testing.T) {
	c := validConfig()
	c.CommitteeObjects[0].Leaf = "bogus"
	require.Error(t, c.Validate())
}

func TestValidateRejectsUnknownTreeKind(t *testing.T) {
	c := validConfig()
	c.CommitteeObjects[0].Tree = "bogus"
	require.Error(t, c.Validate())
}

func TestValidateRejectsNegativeHeight(t *testing.T) {
	c := validConfig()
	c.CommitteeObjects[0].Height = -1
	require.Error(t, c.Validate())
}

func TestValidateRejectsRollupVaultWithoutExplicitSetting(t *testing.T) {
	c := validConfig()
	c.CommitteeObjects = append(c.CommitteeObjects, ObjectSpec{Name: "rollup_vault", Leaf: "vault", Tree: "merkle", Height: 31})
	require.Error(t, c.Validate())
}

func TestValidateAcceptsRollupVaultWithExplicitSetting(t *testing.T) {
	c := validConfig()
	c.CommitteeObjects = append(c.CommitteeObjects, ObjectSpec{Name: "rollup_vault", Leaf: "vault", Tree: "merkle", Height: 31})
	validate := false
	c.ValidateRollup = &validate
	require.NoError(t, c.Validate())
}

func TestPollingIntervalConvertsFractionalSecondsToDuration(t *testing.T) {
	c := Config{PollingIntervalSeconds: 0.5}
	require.Equal(t, 500*time.Millisecond, c.PollingInterval())
}

func TestHTTPRequestTimeoutConvertsSecondsToDuration(t *testing.T) {
	c := Config{HTTPRequestTimeoutSeconds: 300}
	require.Equal(t, 300*time.Second, c.HTTPRequestTimeout())
}

func TestObjectsResolvesRegistryEntries(t *testing.T) {
	c := validConfig()
	objects, err := c.Objects()
	require.NoError(t, err)
	require.Len(t, objects, 2)
	require.Equal(t, committee.ObjectInfo{Name: "vault", Leaf: committee.VaultLeafKind, Tree: committee.MerkleTreeKind, TreeHeight: 31}, objects[0])
}

func TestObjectsPropagatesParseErrors(t *testing.T) {
	c := validConfig()
	c.CommitteeObjects[0].Leaf = "bogus"
	_, err := c.Objects()
	require.Error(t, err)
}

func TestLoadAppliesDefaultsAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "committee.yaml")
	yaml := `
availability_gateway_endpoint: "https://gateway.example"
committee_objects:
  - name: vault
    leaf: vault
    tree: merkle
    height: 31
  - name: order
    leaf: order
    tree: merkle
    height: 64
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, DefaultPollingInterval, cfg.PollingIntervalSeconds)
	require.Equal(t, DefaultFactStorageCacheSize, cfg.FactStorageCacheSize)
	require.Equal(t, DefaultPrivateKeyPath, cfg.PrivateKeyPath)
	require.Len(t, cfg.CommitteeObjects, 2)
}

func TestLoadRejectsConfigThatFailsValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "committee.yaml")
	require.NoError(t, os.WriteFile(path, []byte("committee_objects: []\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}
