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

package report

import (
	"strings"
	"time"
)

// Kind distinguishes scheduled runs, which feed history, from manual ones.
type Kind int

const (
	KindScheduled Kind = iota
	KindManual
)

func (k Kind) String() string {
	if k == KindManual {
		return "manual"
	}

	return "scheduled"
}

const (
	// Extension is appended to every report name.
	Extension = ".xlsx"

	scheduledMarker = "-auto-patrol"
	manualMarker    = "-manual-patrol"

	dateStampLen = len("20060102")

	shiftMorning = "morning"
	shiftEvening = "evening"
)

// ShiftLabel names the shift a scheduled run belongs to.
func ShiftLabel(t time.Time) string {
	switch t.Hour() {
	case 8:
		return shiftMorning
	case 20:
		return shiftEvening
	default:
		return "unknown_" + t.Format("150405")
	}
}

// Name returns the file name for a run of the given kind started at t.
func Name(kind Kind, t time.Time) string {
	if kind == KindManual {
		return t.Format("20060102_150405") + manualMarker + Extension
	}

	return t.Format("20060102") + scheduledMarker + "-" + ShiftLabel(t) + Extension
}

// IsScheduled reports whether name follows the scheduled-report convention.
func IsScheduled(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), Extension) && strings.Contains(name, scheduledMarker)
}

// DateStamp returns the leading yyyyMMdd of a report name, or "" when the
// name is too short to carry one.
func DateStamp(name string) string {
	if len(name) < dateStampLen {
		return ""
	}

	return name[:dateStampLen]
}
