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
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/carverauto/autopatrol/pkg/models"
)

var (
	ErrInvalidSchedule = errors.New("invalid schedule")
	ErrInvalidCopy     = errors.New("invalid copy configuration")
	errEmptySchedule   = errors.New("no patrol times configured")
	errDuplicateTime   = errors.New("duplicate patrol time")
	errMalformedTime   = errors.New("patrol time must be HH:MM:SS")
)

// DefaultCopyCycle is the copy-job period in minutes when none is configured.
const DefaultCopyCycle = 60

var timeOfDayPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d:[0-5]\d$`)

// DefaultPatrolTimes returns the fallback daily times, 08:00:00 and 20:00:00.
func DefaultPatrolTimes() []time.Duration {
	return []time.Duration{8 * time.Hour, 20 * time.Hour}
}

// Schedule is the on-disk list of daily patrol times.
type Schedule []models.ScheduleEntry

// Validate implements Validator.
func (s Schedule) Validate() error {
	_, err := s.Offsets()
	return err
}

// Offsets parses the entries into sorted offsets from midnight. Entries must
// match HH:MM:SS and be unique.
func (s Schedule) Offsets() ([]time.Duration, error) {
	if len(s) == 0 {
		return nil, errEmptySchedule
	}

	seen := make(map[string]struct{}, len(s))
	out := make([]time.Duration, 0, len(s))

	for _, e := range s {
		if !timeOfDayPattern.MatchString(e.Time) {
			return nil, fmt.Errorf("%w: %q", errMalformedTime, e.Time)
		}

		if _, dup := seen[e.Time]; dup {
			return nil, fmt.Errorf("%w: %s", errDuplicateTime, e.Time)
		}

		seen[e.Time] = struct{}{}

		out = append(out, parseTimeOfDay(e.Time))
	}

	slices.Sort(out)

	return out, nil
}

// parseTimeOfDay converts a pre-validated HH:MM:SS string.
func parseTimeOfDay(v string) time.Duration {
	h, _ := strconv.Atoi(v[0:2])
	m, _ := strconv.Atoi(v[3:5])
	sec, _ := strconv.Atoi(v[6:8])

	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second
}

// FormatTimeOfDay renders an offset from midnight as HH:MM:SS.
func FormatTimeOfDay(d time.Duration) string {
	total := int(d / time.Second)

	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total/60%60, total%60)
}

// LoadDevices reads the device roster.
func (c *Config) LoadDevices(ctx context.Context, path string) ([]models.DeviceSpec, error) {
	var devices []models.DeviceSpec

	if err := c.LoadAndValidate(ctx, path, &devices); err != nil {
		return nil, err
	}

	return devices, nil
}

// LoadSchedule reads the daily patrol times. It always returns a usable,
// non-empty schedule: on any error the defaults are returned together with
// the error so the caller can log it.
func (c *Config) LoadSchedule(ctx context.Context, path string) ([]time.Duration, error) {
	var s Schedule

	if err := c.LoadAndValidate(ctx, path, &s); err != nil {
		return DefaultPatrolTimes(), fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
	}

	// Validate already accepted the entries.
	offsets, _ := s.Offsets()

	return offsets, nil
}

// LoadCopyConfig reads the copy-job settings. Like LoadSchedule it degrades
// to defaults and reports the error alongside.
func (c *Config) LoadCopyConfig(ctx context.Context, path string) (models.CopyConfig, error) {
	var cc models.CopyConfig

	if err := c.LoadAndValidate(ctx, path, &cc); err != nil {
		return models.CopyConfig{Cycle: DefaultCopyCycle}, fmt.Errorf("%w: %w", ErrInvalidCopy, err)
	}

	if cc.Cycle <= 0 {
		cc.Cycle = DefaultCopyCycle
	}

	return cc, nil
}

// DeviceFile reads the roster from a fixed path on every call, so edits are
// picked up by the next patrol.
type DeviceFile struct {
	cfg  *Config
	path string
}

func (c *Config) DeviceFile(path string) *DeviceFile {
	return &DeviceFile{cfg: c, path: path}
}

func (f *DeviceFile) Devices(ctx context.Context) ([]models.DeviceSpec, error) {
	return f.cfg.LoadDevices(ctx, f.path)
}

// ScheduleSource reads the patrol times and copy cycle the scheduler runs on.
type ScheduleSource struct {
	cfg          *Config
	schedulePath string
	copyPath     string
}

func (c *Config) ScheduleSource(schedulePath, copyPath string) *ScheduleSource {
	return &ScheduleSource{cfg: c, schedulePath: schedulePath, copyPath: copyPath}
}

// PatrolTimes behaves like LoadSchedule.
func (s *ScheduleSource) PatrolTimes(ctx context.Context) ([]time.Duration, error) {
	return s.cfg.LoadSchedule(ctx, s.schedulePath)
}

// CopyCycle returns the copy period, DefaultCopyCycle minutes on error.
func (s *ScheduleSource) CopyCycle(ctx context.Context) (time.Duration, error) {
	cc, err := s.cfg.LoadCopyConfig(ctx, s.copyPath)

	return time.Duration(cc.Cycle) * time.Minute, err
}

// CopyTasks returns the configured copy tasks. Unlike CopyCycle it has no
// fallback: an unreadable file yields no tasks and the error.
func (s *ScheduleSource) CopyTasks(ctx context.Context) ([]models.CopyTask, error) {
	cc, err := s.cfg.LoadCopyConfig(ctx, s.copyPath)
	if err != nil {
		return nil, err
	}

	return cc.Tasks, nil
}
