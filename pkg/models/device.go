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

// Package models holds the data types shared by the patrol pipeline.
package models

import (
	"strings"
	"time"
)

const (
	// NotApplicable marks a roster field that does not apply to the device.
	NotApplicable = "/"
	// NeedsSetup marks a roster field an operator still has to fill in.
	NeedsSetup = "待排查"
)

// DeviceSpec is one row of the device roster.
type DeviceSpec struct {
	Line       string `json:"line" yaml:"line"`
	Num        int    `json:"num" yaml:"num"`
	DeviceType string `json:"deviceType" yaml:"deviceType"`
	Code       string `json:"code" yaml:"code"`
	IP         string `json:"ip" yaml:"ip"`
	LogType    string `json:"logType" yaml:"logType"`
	Path       string `json:"path" yaml:"path"`
	Floor      string `json:"floor" yaml:"floor"`
	Postfix    string `json:"postfix" yaml:"postfix"`
	Account    string `json:"account" yaml:"account"`
	Password   string `json:"password" yaml:"password" sensitive:"true"`
	DriverName string `json:"driverName" yaml:"driverName"`
}

// IsSentinel reports whether v is one of the roster placeholder values.
func IsSentinel(v string) bool {
	return v == NotApplicable || v == NeedsSetup
}

// orEmpty maps the not-applicable sentinel to the empty string.
func orEmpty(v string) string {
	if v == NotApplicable {
		return ""
	}

	return v
}

// Excluded reports whether the device is skipped by patrols entirely.
func (d *DeviceSpec) Excluded() bool {
	return d.IP == NotApplicable
}

// Credentials returns the account and password used to mount the share.
func (d *DeviceSpec) Credentials() (user, password string) {
	return orEmpty(d.Account), orEmpty(d.Password)
}

// ResolvedPath returns the share path to mount on the given day. Drivers that
// write into date-stamped directories have their "*" placeholder replaced.
func (d *DeviceSpec) ResolvedPath(day time.Time) string {
	if !UsesDatedPath(d.DriverName) {
		return d.Path
	}

	return strings.ReplaceAll(d.Path, "*", day.Format(time.DateOnly))
}

// Redacted returns a copy safe to log.
func (d DeviceSpec) Redacted() DeviceSpec {
	if d.Password != "" && !IsSentinel(d.Password) {
		d.Password = "****"
	}

	return d
}
