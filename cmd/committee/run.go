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
	"net/http"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/committee"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/config"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/gateway"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/metrics"
	"github.com/starkware-libs/starkex-data-availability-committee/internal/signer"
)

func runCmd() *cobra.Command {
	var configPath string
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the committee member's validation loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMain(configPath, metricsAddr)
		},
	}
	cmd.Flags().StringVar(&configPath, "config_file", "", "path to the committee's YAML config")
	cmd.Flags().StringVar(&metricsAddr, "metrics_addr", ":9090", "address to serve /metrics on")
	cmd.MarkFlagRequired("config_file")
	return cmd
}

func runMain(configPath, metricsAddr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := buildStore(cfg)
	if err != nil {
		return err
	}

	sign, err := signer.Load(cfg.PrivateKeyPath)
	if err != nil {
		return err
	}

	gw, err := gateway.NewClient(cfg.AvailabilityGatewayEndpoint, cfg.HTTPRequestTimeout(), cfg.CertificatesPath)
	if err != nil {
		return err
	}

	objects, err := cfg.Objects()
	if err != nil {
		return err
	}

	m := metrics.New()
	http.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(metricsAddr, nil); err != nil {
			glog.Errorf("committee: metrics server exited: %v", err)
		}
	}()

	v := &committee.Validator{
		Store:           store,
		Hasher:          buildHasher(),
		Gateway:         gw,
		Signer:          sign,
		Objects:         objects,
		ValidateOrders:  cfg.ValidateOrders,
		ValidateRollup:  cfg.ValidateRollup,
		PollingInterval: cfg.PollingInterval(),
		Workers:         cfg.Workers,
		Metrics:         m,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		v.Stop()
	}()

	return v.Run(ctx)
}
