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

package scheduler

import (
	"errors"
	"slices"
	"time"
)

var (
	errNoPatrolTimes = errors.New("no patrol times")
	errInvalidCycle  = errors.New("copy cycle must be positive")
)

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NextPatrol returns the smallest of times (offsets from midnight) strictly
// after now's time of day, or the smallest one tomorrow.
func NextPatrol(times []time.Duration, now time.Time) (time.Time, error) {
	if len(times) == 0 {
		return time.Time{}, errNoPatrolTimes
	}

	today := midnight(now)
	tod := now.Sub(today)

	var (
		next  time.Duration
		found bool
	)

	for _, t := range times {
		if t > tod && (!found || t < next) {
			next, found = t, true
		}
	}

	if found {
		return today.Add(next), nil
	}

	return today.AddDate(0, 0, 1).Add(slices.Min(times)), nil
}

// NextCopy advances anchor by whole cycles until it is after now.
func NextCopy(anchor time.Time, cycle time.Duration, now time.Time) (time.Time, error) {
	if cycle <= 0 {
		return time.Time{}, errInvalidCycle
	}

	if anchor.After(now) {
		return anchor, nil
	}

	steps := now.Sub(anchor)/cycle + 1

	return anchor.Add(steps * cycle), nil
}
