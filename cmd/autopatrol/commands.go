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
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/carverauto/autopatrol/pkg/lifecycle"
	"github.com/carverauto/autopatrol/pkg/models"
	"github.com/carverauto/autopatrol/pkg/report"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled patrols and the copy job until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			comps, err := build(c.cfg, true)
			if err != nil {
				return err
			}

			return lifecycle.RunService(cmd.Context(), &lifecycle.ServiceOptions{
				ServiceName: "autopatrol",
				Service:     newDaemon(comps),
				Logger:      comps.log,
			})
		},
	}
}

func newPatrolCmd(c *cli) *cobra.Command {
	var publish bool

	cmd := &cobra.Command{
		Use:   "patrol",
		Short: "Run one manual patrol over the device roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			comps, err := build(c.cfg, publish)
			if err != nil {
				return err
			}
			defer comps.close()

			devices, err := comps.devices.Devices(ctx)
			if err != nil {
				return fmt.Errorf("failed to load devices: %w", err)
			}

			records, err := comps.service.TriggerPatrol(ctx, devices, report.KindManual)
			if err != nil {
				return err
			}

			printRecords(cmd.OutOrStdout(), records)

			if !publish {
				return nil
			}

			if err := comps.connectBroker(ctx); err != nil {
				return err
			}

			return comps.service.PublishResults(ctx, records)
		},
	}

	cmd.Flags().BoolVar(&publish, "publish", false, "publish the results to the MES broker")

	return cmd
}

func newReportsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reports [date-prefix]",
		Short: "List stored reports, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comps, err := build(c.cfg, false)
			if err != nil {
				return err
			}

			var prefix string
			if len(args) == 1 {
				prefix = args[0]
			}

			names, err := comps.service.ListReports(prefix)
			if err != nil {
				return err
			}

			for _, n := range names {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), n)
			}

			return nil
		},
	}
}

func newHistoryCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "history <report>",
		Short: "Show the records of a stored report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comps, err := build(c.cfg, false)
			if err != nil {
				return err
			}

			records, err := comps.service.LoadHistory(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			printRecords(cmd.OutOrStdout(), records)

			return nil
		},
	}
}

func newCopyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "copy",
		Short: "Run the log copy job once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			comps, err := build(c.cfg, false)
			if err != nil {
				return err
			}

			res, err := comps.copier.CopyAll(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for source, detail := range res.Details {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", source, detail)
			}

			return w.Flush()
		},
	}
}

func printRecords(out io.Writer, records []models.ResultRecord) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "LINE\tCODE\tIP\tITEM\tRESULT\tDESCRIBE\tMESSAGE\tDAYS")

	for i := range records {
		r := &records[i]
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			r.Line, r.Code, r.IP, r.Item, r.Result, r.Describe,
			r.Message(), r.Duration)
	}

	_ = w.Flush()
}
