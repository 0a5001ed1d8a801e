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

package share

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/carverauto/autopatrol/pkg/logger"
	"github.com/carverauto/autopatrol/pkg/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultConcurrency caps simultaneous mounts.
	DefaultConcurrency = 5
	// DefaultMountTimeout bounds one mount-and-check attempt.
	DefaultMountTimeout = 10 * time.Second
)

// Prober mounts the shares of data-class devices with bounded concurrency.
type Prober struct {
	mounter Mounter
	limit   int
	timeout time.Duration
	logger  logger.Logger
	now     func() time.Time

	// mounts is held by each mount goroutine until it returns, including
	// ones abandoned by the watchdog.
	mounts *semaphore.Weighted
}

// Option customizes a Prober.
type Option func(*Prober)

// WithNow overrides the clock used for the daily-log check.
func WithNow(now func() time.Time) Option {
	return func(p *Prober) { p.now = now }
}

func NewProber(m Mounter, limit int, timeout time.Duration, log logger.Logger, opts ...Option) *Prober {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	if timeout <= 0 {
		timeout = DefaultMountTimeout
	}

	p := &Prober{
		mounter: m,
		limit:   limit,
		timeout: timeout,
		logger:  log,
		now:     time.Now,
		mounts:  semaphore.NewWeighted(int64(limit)),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ProbeShares checks every device's share and returns the outcomes keyed by
// the configured share path. reachability comes from the reachability
// prober; unreachable devices are never mounted. A failing or panicking
// device only affects its own entry.
func (p *Prober) ProbeShares(ctx context.Context, reachability map[string]bool, devices []models.DeviceSpec) map[string]models.ConnectionOutcome {
	results := make(map[string]models.ConnectionOutcome, len(devices))

	var (
		mu sync.Mutex
		g  errgroup.Group
	)

	g.SetLimit(p.limit)

	for i := range devices {
		device := devices[i]

		g.Go(func() error {
			outcome := p.probeOne(ctx, &device, reachability[device.IP])

			mu.Lock()
			results[device.Path] = outcome
			mu.Unlock()

			return nil
		})
	}

	_ = g.Wait()

	p.logger.Info().Int("devices", len(devices)).Msg("Share probe complete")

	return results
}

func (p *Prober) probeOne(ctx context.Context, d *models.DeviceSpec, reachable bool) (outcome models.ConnectionOutcome) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Str("code", d.Code).Str("panic", fmt.Sprint(r)).Msg("Share probe panicked")

			outcome = models.UnknownErrorCause(fmt.Errorf("%v", r))
		}
	}()

	switch {
	case d.Path == models.NotApplicable:
		return models.ConnectionOutcome{
			Status:  models.ConnectionSuccess,
			Profile: models.PromptNormal,
			Message: models.PromptNoShareDependency,
		}
	case d.Path == models.NeedsSetup:
		return models.ConnectionOutcome{
			Status:  models.ConnectionFailure,
			Profile: models.PromptPathNotConfigured,
			Message: models.PromptPathNotConfigured,
		}
	case !reachable:
		return models.AccessFailure(models.ConnectionFailure,
			strings.Join(models.ReachabilityFailureCauses, models.MessageSeparator))
	}

	return p.mountWithWatchdog(ctx, d)
}

// mountWithWatchdog runs the attempt in its own goroutine so a mount call
// that ignores its context still cannot hold the batch past the timeout.
func (p *Prober) mountWithWatchdog(ctx context.Context, d *models.DeviceSpec) models.ConnectionOutcome {
	sharePath := d.ResolvedPath(p.now())

	if err := p.mounts.Acquire(ctx, 1); err != nil {
		return models.UnknownErrorCause(fmt.Errorf("wait for mount slot: %w", err))
	}

	wctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan models.ConnectionOutcome, 1)

	go func() {
		defer p.mounts.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- models.UnknownErrorCause(fmt.Errorf("%v", r))
			}
		}()

		done <- p.attempt(wctx, d, sharePath)
	}()

	select {
	case out := <-done:
		return out
	case <-wctx.Done():
		if err := p.mounter.Unmount(sharePath); err != nil {
			p.logger.Debug().Err(err).Str("path", sharePath).Msg("Forced unmount failed")
		}

		p.logger.Warn().Str("line", d.Line).Str("code", d.Code).Str("path", sharePath).Msg("Share probe timed out")

		return models.ConnectionOutcome{
			Status:  models.ConnectionFailure,
			Profile: models.PromptConnectionTimedOut,
			Message: models.PromptNetworkError,
		}
	}
}

func (p *Prober) attempt(ctx context.Context, d *models.DeviceSpec, sharePath string) models.ConnectionOutcome {
	user, password := d.Credentials()

	p.logger.Info().Str("line", d.Line).Str("code", d.Code).Str("path", sharePath).Msg("Mounting share")

	start := time.Now()

	fsys, err := p.mounter.Mount(ctx, sharePath, user, password)

	p.logger.Debug().Dur("elapsed", time.Since(start)).Str("path", sharePath).Msg("Mount returned")

	if err != nil {
		return p.mounter.Classify(err)
	}

	defer func() {
		if err := p.mounter.Unmount(sharePath); err != nil {
			p.logger.Warn().Err(err).Str("path", sharePath).Msg("Failed to unmount share")
		}
	}()

	found, err := CheckDailyLog(ctx, fsys, p.now())
	if err != nil {
		p.logger.Warn().Err(err).Str("path", sharePath).Msg("Failed to inspect share contents")
	}

	if found {
		return models.ConnectionOutcome{
			Status:  models.ConnectionSuccess,
			Profile: models.PromptNormal,
			Message: models.PromptNormal,
		}
	}

	return models.ConnectionOutcome{
		Status:  models.ConnectionFailure,
		Profile: models.PromptDailyLogMissing,
		Message: strings.Join(models.MissingLogCauses, models.MessageSeparator),
	}
}
