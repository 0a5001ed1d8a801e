/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/carverauto/autopatrol/pkg/archive"
	"github.com/carverauto/autopatrol/pkg/config"
	"github.com/carverauto/autopatrol/pkg/history"
	"github.com/carverauto/autopatrol/pkg/lifecycle"
	"github.com/carverauto/autopatrol/pkg/logger"
	"github.com/carverauto/autopatrol/pkg/patrol"
	"github.com/carverauto/autopatrol/pkg/publisher"
	"github.com/carverauto/autopatrol/pkg/report"
	"github.com/carverauto/autopatrol/pkg/scan"
	"github.com/carverauto/autopatrol/pkg/share"
)

// components is the fully wired patrol stack.
type components struct {
	cfg       *config.AppConfig
	loader    *config.Config
	log       logger.Logger
	store     *report.Store
	devices   *config.DeviceFile
	schedule  *config.ScheduleSource
	service   *patrol.Service
	publisher *publisher.Publisher
	copier    *archive.Copier
}

func build(cfg *config.AppConfig, withBroker bool) (*components, error) {
	log, err := lifecycle.CreateComponentLogger("autopatrol", cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	pinger, err := newPinger(&cfg.Probe)
	if err != nil {
		return nil, err
	}

	mounter := share.NewPlatformMounter(log)
	loader := config.NewConfig(log)
	store := report.NewStore(cfg.ReportDir, log)

	orch := patrol.NewOrchestrator(
		scan.NewProber(pinger, cfg.Probe.Timeout, log),
		share.NewProber(mounter, cfg.Share.Concurrency, cfg.Share.Timeout, log),
		history.NewTracker(store, log),
		store,
		log,
	)

	c := &components{
		cfg:      cfg,
		loader:   loader,
		log:      log,
		store:    store,
		devices:  loader.DeviceFile(cfg.DevicesPath()),
		schedule: loader.ScheduleSource(cfg.SchedulePath(), cfg.CopyPath()),
	}

	c.copier = archive.NewCopier(mounter, c.schedule, 0, log)

	svcCfg := &patrol.ServiceConfig{
		Orchestrator: orch,
		Store:        store,
		Devices:      c.devices,
		Logger:       log,
	}

	if withBroker && cfg.Broker.Enabled {
		c.publisher = publisher.New(newDialer(&cfg.Broker, log), log,
			publisher.WithConfirmTimeout(cfg.Broker.ConfirmTimeout),
			publisher.WithRetryDelay(cfg.Broker.RetryDelay))
		svcCfg.Publisher = c.publisher
	}

	c.service = patrol.NewService(svcCfg)

	return c, nil
}

func newPinger(cfg *config.ProbeConfig) (scan.Pinger, error) {
	switch cfg.Mode {
	case config.ProbeModeICMP:
		return &scan.ICMPPinger{Privileged: cfg.Privileged}, nil
	case config.ProbeModeTCP:
		ports := cfg.Ports
		if len(ports) == 0 {
			ports = scan.DefaultTCPPorts
		}

		return &scan.TCPPinger{Ports: ports}, nil
	default:
		return nil, fmt.Errorf("unknown probe mode %q", cfg.Mode)
	}
}

func newDialer(cfg *config.BrokerConfig, log logger.Logger) publisher.Dialer {
	if cfg.Kind == config.BrokerJetStream {
		url := cfg.URL
		if url == "" {
			url = "nats://" + net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		}

		return publisher.NewJetStreamDialer(&publisher.JetStreamConfig{
			URL:      url,
			Username: cfg.Username,
			Password: cfg.Password,
			Stream:   cfg.Stream,
			Subject:  cfg.Subject,
		}, log)
	}

	return publisher.NewAMQPDialer(&publisher.AMQPConfig{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Username:    cfg.Username,
		Password:    cfg.Password,
		VirtualHost: cfg.VirtualHost,
		Exchange:    cfg.Exchange,
		Queue:       cfg.Queue,
		RoutingKey:  cfg.RoutingKey,
		Durable:     cfg.Durable,
		Persistent:  cfg.Persistent,
		Exclusive:   cfg.Exclusive,
		AutoDelete:  cfg.AutoDelete,
		Arguments:   cfg.Arguments,
	}, log)
}

// connectBroker establishes the broker session for one-shot commands.
func (c *components) connectBroker(ctx context.Context) error {
	if c.publisher == nil {
		return nil
	}

	return c.publisher.Start(ctx)
}

func (c *components) close() {
	if c.publisher == nil {
		return
	}

	if err := c.publisher.Close(); err != nil {
		c.log.Warn().Err(err).Msg("Failed to close publisher")
	}
}
