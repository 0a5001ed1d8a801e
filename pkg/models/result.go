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

package models

import (
	"strings"

	"golang.org/x/text/cases"
)

// CheckItem names one evaluated health facet of a device.
type CheckItem string

const (
	ItemCondition   CheckItem = "Condition"
	ItemIP          CheckItem = "IP"
	ItemCredentials CheckItem = "Credentials"
	ItemSharePath   CheckItem = "SharePath"
)

// ResultKind is the verdict of a check.
type ResultKind string

const (
	ResultSuccess ResultKind = "Success"
	ResultFailure ResultKind = "Failure"
	ResultOther   ResultKind = "Other"
)

// ResultRecord is one row of a patrol report. Records are built once per run
// and never modified afterwards.
type ResultRecord struct {
	Line       string     `json:"line"`
	Num        int        `json:"num"`
	DeviceType string     `json:"device_type"`
	Code       string     `json:"code"`
	IP         string     `json:"ip"`
	Item       CheckItem  `json:"item"`
	Result     ResultKind `json:"result"`
	Describe   string     `json:"describe"`
	Messages   []string   `json:"messages"`
	Duration   int        `json:"duration"`
}

// Message joins the cause list the way report cells store it.
func (r *ResultRecord) Message() string {
	return strings.Join(r.Messages, MessageSeparator)
}

// Key returns the record's history identity.
func (r *ResultRecord) Key() HistoryKey {
	return NewHistoryKey(r.Line, r.Code, r.Item)
}

// HistoryKey is the case-folded (line, code, item) identity of a check.
type HistoryKey struct {
	Line string
	Code string
	Item string
}

// NewHistoryKey folds each component so lookups ignore case.
func NewHistoryKey(line, code string, item CheckItem) HistoryKey {
	// Casers keep internal state, so one is created per key.
	fold := cases.Fold()

	return HistoryKey{
		Line: fold.String(strings.TrimSpace(line)),
		Code: fold.String(strings.TrimSpace(code)),
		Item: fold.String(string(item)),
	}
}
