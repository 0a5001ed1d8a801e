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

// Package scheduler fires the daily patrol and the cyclic copy job from a
// single decision loop and re-plans when their configuration changes.
package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carverauto/autopatrol/pkg/config"
	"github.com/carverauto/autopatrol/pkg/logger"
)

const (
	// DefaultCooldown is the pause after the loop fails to plan.
	DefaultCooldown = time.Minute

	// anchorLead delays the first copy run just past start or reload.
	anchorLead = 100 * time.Millisecond
)

// Phase is the decision loop's state. Jobs run detached from the loop, so
// Running covers any wait during which a fired job has not returned.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseWaiting
	PhaseRunning
	PhaseInterrupted
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseRunning:
		return "running"
	case PhaseInterrupted:
		return "interrupted"
	case PhaseStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Job is a scheduled unit of work.
type Job func(ctx context.Context) error

// Source supplies the schedule. Both methods return usable defaults
// alongside any error.
type Source interface {
	PatrolTimes(ctx context.Context) ([]time.Duration, error)
	CopyCycle(ctx context.Context) (time.Duration, error)
}

// Watcher delivers the base names of changed configuration files.
type Watcher interface {
	Events() <-chan string
	Run(ctx context.Context) error
}

// Config wires a Scheduler. Copy and Watcher are optional.
type Config struct {
	Patrol       Job
	Copy         Job
	Source       Source
	Watcher      Watcher
	ScheduleFile string
	CopyFile     string
	Clock        Clock
	Cooldown     time.Duration
	Logger       logger.Logger
}

// plan holds the active schedule. patrolFrom is the instant the next patrol
// is computed from: the last patrol fire, or the last schedule load.
type plan struct {
	times      []time.Duration
	patrolFrom time.Time
	anchor     time.Time
	cycle      time.Duration
}

// Scheduler owns the patrol and copy timers.
type Scheduler struct {
	patrol       Job
	copy         Job
	source       Source
	watcher      Watcher
	scheduleFile string
	copyFile     string
	clock        Clock
	cooldown     time.Duration
	logger       logger.Logger

	mu     sync.Mutex
	plan   plan
	reload chan struct{}

	reloadMu sync.Mutex
	phase    atomic.Int32
	running  atomic.Int32
	jobs     sync.WaitGroup
}

func New(cfg *Config) *Scheduler {
	s := &Scheduler{
		patrol:       cfg.Patrol,
		copy:         cfg.Copy,
		source:       cfg.Source,
		watcher:      cfg.Watcher,
		scheduleFile: filepath.Base(cfg.ScheduleFile),
		copyFile:     filepath.Base(cfg.CopyFile),
		clock:        cfg.Clock,
		cooldown:     cfg.Cooldown,
		logger:       cfg.Logger,
		reload:       make(chan struct{}),
	}

	if s.clock == nil {
		s.clock = realClock{}
	}

	if s.cooldown <= 0 {
		s.cooldown = DefaultCooldown
	}

	return s
}

// Phase reports the decision loop's current state.
func (s *Scheduler) Phase() Phase {
	p := Phase(s.phase.Load())
	if p == PhaseWaiting && s.running.Load() > 0 {
		return PhaseRunning
	}

	return p
}

// RunningJobs reports how many fired jobs have not returned yet.
func (s *Scheduler) RunningJobs() int {
	return int(s.running.Load())
}

// PatrolTimes returns the active daily patrol times.
func (s *Scheduler) PatrolTimes() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.plan.times)
}

// Run loads the schedule and drives both timers until ctx is done. It waits
// for fired jobs and the file watcher before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	s.loadPatrolTimes(ctx)
	s.loadCopyCycle(ctx)

	var aux sync.WaitGroup

	if s.watcher != nil {
		aux.Add(2)

		go func() {
			defer aux.Done()

			if err := s.watcher.Run(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Config watcher stopped")
			}
		}()

		go func() {
			defer aux.Done()
			s.watch(ctx)
		}()
	}

	defer func() {
		aux.Wait()
		s.jobs.Wait()
		s.phase.Store(int32(PhaseStopped))
		s.logger.Info().Msg("Scheduler stopped")
	}()

	for ctx.Err() == nil {
		if err := s.step(ctx); err != nil {
			s.logger.Error().Err(err).Dur("cooldown", s.cooldown).Msg("Scheduling failed, retrying after cooldown")

			if !s.sleep(ctx, s.cooldown) {
				break
			}
		}
	}

	return nil
}

// step waits for the earlier of the pending patrol and copy fire times, a
// reload, or shutdown. Fire targets stay pending until their job is
// launched, so a job whose time passed while the other ran fires at once
// instead of being skipped.
func (s *Scheduler) step(ctx context.Context) error {
	s.mu.Lock()
	p := s.plan
	reload := s.reload
	s.mu.Unlock()

	now := s.clock.Now()

	nextPatrol, err := NextPatrol(p.times, p.patrolFrom)
	if err != nil {
		return fmt.Errorf("plan patrol: %w", err)
	}

	var copyC <-chan time.Time

	if s.copy != nil {
		if p.cycle <= 0 {
			return fmt.Errorf("plan copy: %w", errInvalidCycle)
		}

		copyTimer := s.clock.NewTimer(max(p.anchor.Sub(now), 0))
		defer copyTimer.Stop()

		copyC = copyTimer.C()

		s.logger.Info().Time("next_copy", p.anchor).Msg("Next copy run")
	}

	patrolTimer := s.clock.NewTimer(max(nextPatrol.Sub(now), 0))
	defer patrolTimer.Stop()

	s.logger.Info().Time("next_patrol", nextPatrol).Msg("Next patrol run")
	s.phase.Store(int32(PhaseWaiting))

	select {
	case <-ctx.Done():
	case <-reload:
		s.phase.Store(int32(PhaseInterrupted))
		s.logger.Info().Msg("Wait interrupted by reload, recomputing")
	case <-patrolTimer.C():
		fired := s.clock.Now()

		s.mu.Lock()
		if s.plan.patrolFrom.Equal(p.patrolFrom) {
			s.plan.patrolFrom = later(nextPatrol, fired)
		}
		s.mu.Unlock()

		s.launch(ctx, "patrol", s.patrol)
	case <-copyC:
		next, err := NextCopy(p.anchor, p.cycle, s.clock.Now())
		if err != nil {
			return fmt.Errorf("plan copy: %w", err)
		}

		s.mu.Lock()
		if s.plan.anchor.Equal(p.anchor) {
			s.plan.anchor = next
		}
		s.mu.Unlock()

		s.launch(ctx, "copy", s.copy)
	}

	return nil
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}

	return b
}

// launch runs job in its own goroutine. Failures and panics are logged.
func (s *Scheduler) launch(ctx context.Context, name string, job Job) {
	s.jobs.Add(1)
	s.running.Add(1)
	s.phase.Store(int32(PhaseRunning))

	go func() {
		defer s.jobs.Done()
		defer s.running.Add(-1)

		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().Str("job", name).Str("panic", fmt.Sprint(r)).Msg("Scheduled job panicked")
			}
		}()

		start := s.clock.Now()

		s.logger.Info().Str("job", name).Msg("Running scheduled job")

		if err := job(ctx); err != nil {
			s.logger.Error().Err(err).Str("job", name).Msg("Scheduled job failed")

			return
		}

		s.logger.Info().Str("job", name).Dur("elapsed", s.clock.Now().Sub(start)).Msg("Scheduled job finished")
	}()
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	t := s.clock.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C():
		return true
	}
}

func (s *Scheduler) watch(ctx context.Context) {
	events := s.watcher.Events()

	for {
		select {
		case <-ctx.Done():
			return
		case name, ok := <-events:
			if !ok {
				return
			}

			s.Reload(ctx, name)
		}
	}
}

// Reload re-reads the configuration file called name and, on success, makes
// the loop abandon its current wait. Overlapping reloads are dropped; the
// return value reports whether this call performed one.
func (s *Scheduler) Reload(ctx context.Context, name string) bool {
	if !s.reloadMu.TryLock() {
		s.logger.Debug().Str("file", name).Msg("Reload already in progress, skipping")

		return false
	}
	defer s.reloadMu.Unlock()

	switch filepath.Base(name) {
	case s.scheduleFile:
		s.loadPatrolTimes(ctx)
	case s.copyFile:
		s.loadCopyCycle(ctx)
	default:
		return false
	}

	s.mu.Lock()
	close(s.reload)
	s.reload = make(chan struct{})
	s.mu.Unlock()

	return true
}

func (s *Scheduler) loadPatrolTimes(ctx context.Context) {
	times, err := s.source.PatrolTimes(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Patrol schedule unusable, using defaults")
	}

	if len(times) == 0 {
		times = config.DefaultPatrolTimes()
	}

	labels := make([]string, len(times))
	for i, t := range times {
		labels[i] = config.FormatTimeOfDay(t)
	}

	s.mu.Lock()
	s.plan.times = times
	s.plan.patrolFrom = s.clock.Now()
	s.mu.Unlock()

	s.logger.Info().Strs("times", labels).Msg("Patrol schedule loaded")
}

func (s *Scheduler) loadCopyCycle(ctx context.Context) {
	cycle, err := s.source.CopyCycle(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Copy configuration unusable, using defaults")
	}

	if cycle <= 0 {
		cycle = config.DefaultCopyCycle * time.Minute
	}

	anchor := s.clock.Now().Add(anchorLead)

	s.mu.Lock()
	s.plan.cycle = cycle
	s.plan.anchor = anchor
	s.mu.Unlock()

	s.logger.Info().Dur("cycle", cycle).Time("first_run", anchor).Msg("Copy schedule loaded")
}
