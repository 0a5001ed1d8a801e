package main

import (
	"testing"
	"time"

	"github.com/carverauto/autopatrol/pkg/config"
	"github.com/carverauto/autopatrol/pkg/logger"
	"github.com/carverauto/autopatrol/pkg/publisher"
	"github.com/carverauto/autopatrol/pkg/scan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPinger(t *testing.T) {
	p, err := newPinger(&config.ProbeConfig{Mode: config.ProbeModeICMP, Privileged: true})
	require.NoError(t, err)
	assert.Equal(t, &scan.ICMPPinger{Privileged: true}, p)

	p, err = newPinger(&config.ProbeConfig{Mode: config.ProbeModeTCP})
	require.NoError(t, err)
	assert.Equal(t, &scan.TCPPinger{Ports: scan.DefaultTCPPorts}, p)

	_, err = newPinger(&config.ProbeConfig{Mode: "arp"})
	require.Error(t, err)
}

func TestNewDialerSelectsBackend(t *testing.T) {
	log := logger.NewTestLogger()

	d := newDialer(&config.BrokerConfig{Kind: config.BrokerAMQP, Host: "mq", Port: 5672}, log)
	assert.IsType(t, &publisher.AMQPDialer{}, d)

	d = newDialer(&config.BrokerConfig{Kind: config.BrokerJetStream, Host: "nats", Port: 4222}, log)
	assert.IsType(t, &publisher.JetStreamDialer{}, d)
}

func TestBuildWiresBrokerOnlyWhenEnabled(t *testing.T) {
	cfg := &config.AppConfig{
		DataDir:   t.TempDir(),
		ReportDir: t.TempDir(),
		Probe:     config.ProbeConfig{Mode: config.ProbeModeTCP, Timeout: time.Second},
		Share:     config.ShareConfig{Concurrency: 2, Timeout: time.Second},
		Broker:    config.BrokerConfig{Enabled: true, Kind: config.BrokerAMQP, Host: "mq", Port: 5672},
		Logging:   &logger.Config{Level: "error"},
	}

	comps, err := build(cfg, false)
	require.NoError(t, err)
	assert.Nil(t, comps.publisher)
	assert.NotNil(t, comps.copier)

	comps, err = build(cfg, true)
	require.NoError(t, err)
	require.NotNil(t, comps.publisher)

	comps.close()
}
