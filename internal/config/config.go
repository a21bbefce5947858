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

// Package config loads the committee's YAML configuration (with
// environment-variable overrides) into a validated Config, mirroring the
// reference implementation's CommitteeConfig dataclass.
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/committee"
)

// Default configuration values, matching committee_config.py's DEFAULT_*
// constants.
const (
	DefaultPollingInterval      = 1.0
	DefaultValidateOrders       = false
	DefaultDumpBatch            = false
	DefaultFactStorageCacheSize = 65536
	DefaultHTTPRequestTimeout   = 300
	DefaultPrivateKeyPath       = "/private_key.txt"
)

// ObjectSpec is one configured named tree, as it appears in the
// committee_objects configuration list: a name, the leaf kind it stores,
// the tree engine, and the tree's fixed height.
type ObjectSpec struct {
	Name   string `mapstructure:"name"`
	Leaf   string `mapstructure:"leaf"`
	Tree   string `mapstructure:"tree"`
	Height int    `mapstructure:"height"`
}

// RedisConfig configures the bucketed Redis fact store.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	IndexBits uint   `mapstructure:"index_bits"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Config is the committee's full runtime configuration.
type Config struct {
	AvailabilityGatewayEndpoint string       `mapstructure:"availability_gateway_endpoint"`
	PollingIntervalSeconds      float64      `mapstructure:"polling_interval"`
	ValidateOrders              bool         `mapstructure:"validate_orders"`
	ValidateRollup              *bool        `mapstructure:"validate_rollup"`
	DumpBatch                   bool         `mapstructure:"dump_batch"`
	CommitteeObjects            []ObjectSpec `mapstructure:"committee_objects"`
	FactStorageCacheSize        int          `mapstructure:"fact_storage_cache_size"`
	PrivateKeyPath              string       `mapstructure:"private_key_path"`
	HTTPRequestTimeoutSeconds   int          `mapstructure:"http_request_timeout"`
	CertificatesPath            string       `mapstructure:"certificates_path"`
	Workers                     int          `mapstructure:"workers"`
	Redis                       RedisConfig  `mapstructure:"redis"`
}

// PollingInterval returns the configured polling interval as a Duration.
func (c Config) PollingInterval() time.Duration {
	return time.Duration(c.PollingIntervalSeconds * float64(time.Second))
}

// HTTPRequestTimeout returns the configured HTTP timeout as a Duration.
func (c Config) HTTPRequestTimeout() time.Duration {
	return time.Duration(c.HTTPRequestTimeoutSeconds) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("polling_interval", DefaultPollingInterval)
	v.SetDefault("validate_orders", DefaultValidateOrders)
	v.SetDefault("dump_batch", DefaultDumpBatch)
	v.SetDefault("fact_storage_cache_size", DefaultFactStorageCacheSize)
	v.SetDefault("private_key_path", DefaultPrivateKeyPath)
	v.SetDefault("http_request_timeout", DefaultHTTPRequestTimeout)
	v.SetDefault("workers", 0) // 0 means merkle.DefaultWorkers
	v.SetDefault("redis.index_bits", 14)
}

// Load reads configuration from path (YAML), applying environment
// variable overrides under the COMMITTEE_ prefix (e.g.
// COMMITTEE_AVAILABILITY_GATEWAY_ENDPOINT), and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix("committee")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the invariants committee_config.py's __post_init__
// checks, plus this module's resolution of the "validate_rollup unset"
// Open Question: a rollup_vault object may only be configured alongside
// an explicit validate_rollup setting, since there is no safe default for
// whether an unconfigured rollup root should be trusted blindly.
func (c Config) Validate() error {
	if c.AvailabilityGatewayEndpoint == "" {
		return fmt.Errorf("config: availability_gateway_endpoint is required")
	}
	if u, err := url.Parse(c.AvailabilityGatewayEndpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: availability_gateway_endpoint %q is not a valid URL", c.AvailabilityGatewayEndpoint)
	}
	if c.PrivateKeyPath != "" && !filepath.IsAbs(c.PrivateKeyPath) {
		return fmt.Errorf("config: private_key_path %q must be an absolute path", c.PrivateKeyPath)
	}
	if c.PollingIntervalSeconds <= 0 {
		return fmt.Errorf("config: polling_interval must be positive")
	}
	if len(c.CommitteeObjects) == 0 {
		return fmt.Errorf("config: committee_objects must not be empty")
	}
	hasRollup := false
	for _, o := range c.CommitteeObjects {
		if o.Name == "rollup_vault" {
			hasRollup = true
		}
		if _, err := committee.ParseLeafKind(o.Leaf); err != nil {
			return fmt.Errorf("config: object %q: %w", o.Name, err)
		}
		if _, err := committee.ParseTreeKind(o.Tree); err != nil {
			return fmt.Errorf("config: object %q: %w", o.Name, err)
		}
		if o.Height < 0 {
			return fmt.Errorf("config: object %q: negative height %d", o.Name, o.Height)
		}
	}
	if hasRollup && c.ValidateRollup == nil {
		return fmt.Errorf("config: rollup_vault configured but validate_rollup is unset")
	}
	return nil
}

// Objects resolves the configured committee_objects into the static
// registry entries the validator operates over.
func (c Config) Objects() ([]committee.ObjectInfo, error) {
	out := make([]committee.ObjectInfo, 0, len(c.CommitteeObjects))
	for _, o := range c.CommitteeObjects {
		leaf, err := committee.ParseLeafKind(o.Leaf)
		if err != nil {
			return nil, err
		}
		tree, err := committee.ParseTreeKind(o.Tree)
		if err != nil {
			return nil, err
		}
		out = append(out, committee.ObjectInfo{Name: o.Name, Leaf: leaf, Tree: tree, TreeHeight: o.Height})
	}
	return out, nil
}
