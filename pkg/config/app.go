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

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/carverauto/autopatrol/pkg/logger"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. AUTOPATROL_BROKER_URL.
const EnvPrefix = "AUTOPATROL"

var (
	errMissingDataDir    = errors.New("data_dir is required")
	errMissingReportDir  = errors.New("report_dir is required")
	errInvalidProbeMode  = errors.New("probe.mode must be icmp or tcp")
	errInvalidBrokerKind = errors.New("broker.kind must be amqp or jetstream")
	errInvalidLimit      = errors.New("share.concurrency must be positive")
)

const (
	ProbeModeICMP = "icmp"
	ProbeModeTCP  = "tcp"

	BrokerAMQP      = "amqp"
	BrokerJetStream = "jetstream"
)

// AppConfig is the process configuration of the patrol service.
type AppConfig struct {
	DataDir      string         `mapstructure:"data_dir"`
	ReportDir    string         `mapstructure:"report_dir"`
	DevicesFile  string         `mapstructure:"devices_file"`
	ScheduleFile string         `mapstructure:"schedule_file"`
	CopyFile     string         `mapstructure:"copy_file"`
	Probe        ProbeConfig    `mapstructure:"probe"`
	Share        ShareConfig    `mapstructure:"share"`
	Broker       BrokerConfig   `mapstructure:"broker"`
	Archive      ArchiveConfig  `mapstructure:"archive"`
	Logging      *logger.Config `mapstructure:"logging"`
}

// ProbeConfig selects how reachability is tested.
type ProbeConfig struct {
	Mode       string        `mapstructure:"mode"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Privileged bool          `mapstructure:"privileged"`
	Ports      []int         `mapstructure:"ports"`
}

// ShareConfig bounds share probing.
type ShareConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// BrokerConfig describes the MES broker destination.
type BrokerConfig struct {
	Enabled        bool              `mapstructure:"enabled"`
	Kind           string            `mapstructure:"kind"`
	Host           string            `mapstructure:"host"`
	Port           int               `mapstructure:"port"`
	Username       string            `mapstructure:"username"`
	Password       string            `mapstructure:"password"`
	VirtualHost    string            `mapstructure:"virtual_host"`
	Exchange       string            `mapstructure:"exchange"`
	Queue          string            `mapstructure:"queue"`
	RoutingKey     string            `mapstructure:"routing_key"`
	Durable        bool              `mapstructure:"durable"`
	Persistent     bool              `mapstructure:"persistent"`
	Exclusive      bool              `mapstructure:"exclusive"`
	AutoDelete     bool              `mapstructure:"auto_delete"`
	Arguments      map[string]string `mapstructure:"arguments"`
	URL            string            `mapstructure:"url"`
	Stream         string            `mapstructure:"stream"`
	Subject        string            `mapstructure:"subject"`
	ConfirmTimeout time.Duration     `mapstructure:"confirm_timeout"`
	RetryDelay     time.Duration     `mapstructure:"retry_delay"`
}

// ArchiveConfig toggles the cyclic log copy job.
type ArchiveConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "./data")
	v.SetDefault("report_dir", "./reports")
	v.SetDefault("devices_file", "devices.json")
	v.SetDefault("schedule_file", "timer.json")
	v.SetDefault("copy_file", "copy.json")

	v.SetDefault("probe.mode", ProbeModeICMP)
	v.SetDefault("probe.timeout", "1s")
	v.SetDefault("probe.privileged", false)
	v.SetDefault("probe.ports", []int{445, 139})

	v.SetDefault("share.concurrency", 5)
	v.SetDefault("share.timeout", "10s")

	v.SetDefault("broker.enabled", false)
	v.SetDefault("broker.kind", BrokerAMQP)
	v.SetDefault("broker.port", 5672)
	v.SetDefault("broker.virtual_host", "/")
	v.SetDefault("broker.durable", true)
	v.SetDefault("broker.persistent", true)
	v.SetDefault("broker.stream", "PATROL")
	v.SetDefault("broker.subject", "patrol.results")
	v.SetDefault("broker.confirm_timeout", "5s")
	v.SetDefault("broker.retry_delay", "5s")

	v.SetDefault("archive.enabled", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.output", "stdout")
}

// NewViper returns a viper instance with defaults and environment overrides
// wired, ready for flag binding.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// LoadAppConfig reads path (optional) into an AppConfig. A missing path
// runs on defaults and environment only.
func LoadAppConfig(v *viper.Viper, path string) (*AppConfig, error) {
	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate implements Validator.
func (c *AppConfig) Validate() error {
	if c.DataDir == "" {
		return errMissingDataDir
	}

	if c.ReportDir == "" {
		return errMissingReportDir
	}

	switch c.Probe.Mode {
	case ProbeModeICMP, ProbeModeTCP:
	default:
		return fmt.Errorf("%w: %q", errInvalidProbeMode, c.Probe.Mode)
	}

	if c.Share.Concurrency <= 0 {
		return errInvalidLimit
	}

	if c.Broker.Enabled {
		switch c.Broker.Kind {
		case BrokerAMQP, BrokerJetStream:
		default:
			return fmt.Errorf("%w: %q", errInvalidBrokerKind, c.Broker.Kind)
		}
	}

	return nil
}

// DevicesPath returns the roster path, resolved against DataDir.
func (c *AppConfig) DevicesPath() string { return c.resolve(c.DevicesFile) }

// SchedulePath returns the schedule path, resolved against DataDir.
func (c *AppConfig) SchedulePath() string { return c.resolve(c.ScheduleFile) }

// CopyPath returns the copy-job path, resolved against DataDir.
func (c *AppConfig) CopyPath() string { return c.resolve(c.CopyFile) }

func (c *AppConfig) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}

	return filepath.Join(c.DataDir, name)
}
