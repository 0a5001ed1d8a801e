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
	"errors"
	"path/filepath"
	"sync"

	"github.com/carverauto/autopatrol/pkg/config"
	"github.com/carverauto/autopatrol/pkg/lifecycle"
	"github.com/carverauto/autopatrol/pkg/scheduler"
	"github.com/carverauto/autopatrol/pkg/version"
)

var _ lifecycle.Service = (*daemon)(nil)

// daemon runs the scheduler and the publisher for the serve command.
type daemon struct {
	c        *components
	watchers *config.WatcherRegistry

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newDaemon(c *components) *daemon {
	return &daemon{c: c, watchers: config.NewWatcherRegistry()}
}

func (d *daemon) Start(_ context.Context) error {
	cfg := d.c.cfg

	d.c.log.Info().Str("version", version.GetFullVersion()).Msg("Starting autopatrol")

	scheduleDir := filepath.Dir(cfg.SchedulePath())
	if filepath.Dir(cfg.CopyPath()) != scheduleDir {
		d.c.log.Warn().
			Str("schedule", cfg.SchedulePath()).
			Str("copy", cfg.CopyPath()).
			Msg("Copy configuration lives outside the watched directory; edits need a restart")
	}

	watcher, err := config.NewFileWatcher(scheduleDir,
		[]string{cfg.SchedulePath(), cfg.CopyPath()},
		d.c.log,
		config.WithRegistry(d.watchers))
	if err != nil {
		return err
	}

	schedCfg := &scheduler.Config{
		Patrol:       d.c.service.RunScheduledPatrol,
		Source:       d.c.schedule,
		Watcher:      watcher,
		ScheduleFile: cfg.SchedulePath(),
		CopyFile:     cfg.CopyPath(),
		Logger:       d.c.log,
	}

	if cfg.Archive.Enabled {
		schedCfg.Copy = d.c.copier.Run
	}

	sched := scheduler.New(schedCfg)

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	if pub := d.c.publisher; pub != nil {
		d.wg.Add(1)

		go func() {
			defer d.wg.Done()

			if err := pub.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				d.c.log.Error().Err(err).Msg("Publisher failed to start")
			}
		}()
	}

	d.wg.Add(1)

	go func() {
		defer d.wg.Done()

		if err := sched.Run(ctx); err != nil {
			d.c.log.Error().Err(err).Msg("Scheduler exited")
		}
	}()

	return nil
}

func (d *daemon) Stop(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})

	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	for _, w := range d.watchers.List() {
		d.c.log.Debug().Str("path", w.Path).Str("status", string(w.Status)).Int("events", w.Events).Msg("Config watcher state")
	}

	d.c.close()

	return nil
}
