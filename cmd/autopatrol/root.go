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
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/carverauto/autopatrol/pkg/config"
	"github.com/carverauto/autopatrol/pkg/lifecycle"
	"github.com/carverauto/autopatrol/pkg/logger"
	"github.com/carverauto/autopatrol/pkg/version"
)

// cli carries the state shared by every subcommand.
type cli struct {
	v          *viper.Viper
	configPath string
	cfg        *config.AppConfig
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.NewViper()}

	root := &cobra.Command{
		Use:           "autopatrol",
		Short:         "Factory-floor device health patrol",
		Version:       version.GetFullVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return lifecycle.ShutdownLogger()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "path to autopatrol.yaml")
	flags.String("data-dir", "", "directory holding devices.json, timer.json and copy.json")
	flags.String("report-dir", "", "directory reports are written to")
	flags.String("probe-mode", "", "reachability probe: icmp or tcp")
	flags.String("log-level", "", "log level")

	for key, flag := range map[string]string{
		"data_dir":      "data-dir",
		"report_dir":    "report-dir",
		"probe.mode":    "probe-mode",
		"logging.level": "log-level",
	} {
		cobra.CheckErr(c.v.BindPFlag(key, flags.Lookup(flag)))
	}

	root.AddCommand(
		newServeCmd(c),
		newPatrolCmd(c),
		newReportsCmd(c),
		newHistoryCmd(c),
		newCopyCmd(c),
	)

	return root
}

func (c *cli) load() error {
	cfg, err := config.LoadAppConfig(c.v, c.configPath)
	if err != nil {
		return err
	}

	if cfg.Logging == nil {
		cfg.Logging = logger.DefaultConfig()
	}

	if err := lifecycle.InitializeLogger(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	c.cfg = cfg

	return nil
}
