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

// Package patrol runs patrols: it probes every device, turns the outcomes
// into ordered result records and stores them as a report.
package patrol

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/autopatrol/pkg/history"
	"github.com/carverauto/autopatrol/pkg/logger"
	"github.com/carverauto/autopatrol/pkg/models"
)

const stampLayout = "20060102"

// Orchestrator composes the probers and the history tracker into a run.
type Orchestrator struct {
	reach  ReachabilityProber
	shares ShareProber
	prior  PriorLoader
	store  ReportStore
	logger logger.Logger
	now    func() time.Time
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithClock overrides the clock used for date stamps.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

func NewOrchestrator(reach ReachabilityProber, shares ShareProber, prior PriorLoader, store ReportStore,
	log logger.Logger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		reach:  reach,
		shares: shares,
		prior:  prior,
		store:  store,
		logger: log,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Patrol probes devices, writes the sorted records to the report named
// reportName and returns them. Per-device failures become records; failing
// to read the prior report or to write the new one fails the run.
func (o *Orchestrator) Patrol(ctx context.Context, devices []models.DeviceSpec, reportName string) ([]models.ResultRecord, error) {
	prior, priorStamp, err := o.prior.LoadPriorIndex(ctx)
	if err != nil {
		return nil, err
	}

	b := &recordBuilder{prior: prior, priorStamp: priorStamp, stamp: o.now().Format(stampLayout)}

	active := make([]models.DeviceSpec, 0, len(devices))
	addrs := make([]string, 0, len(devices))

	for i := range devices {
		if devices[i].Excluded() {
			continue
		}

		active = append(active, devices[i])
		addrs = append(addrs, devices[i].IP)
	}

	o.logger.Info().Int("devices", len(active)).Int("excluded", len(devices)-len(active)).Msg("Starting patrol")

	reach := o.reach.ProbeAll(ctx, addrs)

	records := make([]models.ResultRecord, 0, len(active)*2)

	var dataDevices []models.DeviceSpec

	for i := range active {
		d := &active[i]
		up := reach[d.IP]

		switch models.ClassifyDriver(d.DriverName) {
		case models.DriverCondition:
			records = append(records, b.condition(d, up))
		case models.DriverData:
			records = append(records, b.ip(d, up))
			dataDevices = append(dataDevices, *d)
		default:
			records = append(records, b.ip(d, up))
		}
	}

	if len(dataDevices) > 0 {
		outcomes := o.shares.ProbeShares(ctx, reach, dataDevices)

		for i := range dataDevices {
			d := &dataDevices[i]

			out, ok := outcomes[d.Path]
			if !ok {
				o.logger.Warn().Str("code", d.Code).Str("path", d.Path).Msg("No share outcome for device")

				out = models.UnknownErrorCause(fmt.Errorf("no outcome for %s", d.Path))
			}

			records = append(records, b.share(d, out)...)
		}
	}

	SortRecords(records)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := o.store.Write(reportName, records)
	if err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	o.logger.Info().Str("report", path).Int("records", len(records)).Msg("Patrol complete")

	return records, nil
}

type recordBuilder struct {
	prior      *history.Index
	priorStamp string
	stamp      string
}

func (b *recordBuilder) build(d *models.DeviceSpec, item models.CheckItem, result models.ResultKind, describe string, messages []string) models.ResultRecord {
	prior, _ := b.prior.Get(d.Line, d.Code, item)

	return models.ResultRecord{
		Line:       d.Line,
		Num:        d.Num,
		DeviceType: d.DeviceType,
		Code:       d.Code,
		IP:         d.IP,
		Item:       item,
		Result:     result,
		Describe:   describe,
		Messages:   messages,
		Duration:   history.ComputeDuration(result, prior, b.stamp, b.priorStamp),
	}
}

func (b *recordBuilder) condition(d *models.DeviceSpec, up bool) models.ResultRecord {
	if up {
		return b.build(d, models.ItemCondition, models.ResultSuccess, models.PromptGatewayNormal, []string{models.PromptNormal})
	}

	return b.build(d, models.ItemCondition, models.ResultFailure, models.PromptGatewayUnreachable,
		slices.Clone(models.ConditionFailureCauses))
}

func (b *recordBuilder) ip(d *models.DeviceSpec, up bool) models.ResultRecord {
	if up {
		return b.build(d, models.ItemIP, models.ResultSuccess, models.PromptDeviceIPNormal, []string{models.PromptNormal})
	}

	return b.build(d, models.ItemIP, models.ResultFailure, models.PromptDeviceIPUnreachable,
		slices.Clone(models.ReachabilityFailureCauses))
}

// share turns a share outcome into records. A missing daily log proves the
// credentials, so it yields a credentials success and a share path failure.
// Any other failure leaves the path untested and yields only a credentials
// failure.
func (b *recordBuilder) share(d *models.DeviceSpec, out models.ConnectionOutcome) []models.ResultRecord {
	credsOK := b.build(d, models.ItemCredentials, models.ResultSuccess, models.PromptCredentialsNormal,
		[]string{models.PromptCredentialsNormal})

	switch {
	case out.Succeeded():
		return []models.ResultRecord{
			credsOK,
			b.build(d, models.ItemSharePath, models.ResultSuccess, models.PromptSharePathNormal,
				[]string{models.PromptSharePathNormal}),
		}
	case out.MissingDailyLog():
		return []models.ResultRecord{
			credsOK,
			b.build(d, models.ItemSharePath, models.ResultFailure, out.Profile, []string{out.Message}),
		}
	default:
		return []models.ResultRecord{
			b.build(d, models.ItemCredentials, models.ResultFailure, out.Profile, []string{out.Message}),
		}
	}
}

var (
	linePrefix = regexp.MustCompile(`^([A-Za-z]+)`)
	lineNumber = regexp.MustCompile(`^[A-Za-z]+(\d+)`)
)

// lineOrder splits a line id into its upper-cased alphabetic prefix ("~"
// when absent) and numeric suffix (MaxInt when absent).
func lineOrder(line string) (string, int) {
	prefix := "~"
	if m := linePrefix.FindStringSubmatch(line); m != nil {
		prefix = strings.ToUpper(m[1])
	}

	num := math.MaxInt
	if m := lineNumber.FindStringSubmatch(line); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			num = n
		}
	}

	return prefix, num
}

// SortRecords orders records by line prefix, line number, then check item.
func SortRecords(records []models.ResultRecord) {
	slices.SortStableFunc(records, func(a, b models.ResultRecord) int {
		ap, an := lineOrder(a.Line)
		bp, bn := lineOrder(b.Line)

		return cmp.Or(
			strings.Compare(ap, bp),
			cmp.Compare(an, bn),
			strings.Compare(string(a.Item), string(b.Item)),
		)
	})
}
