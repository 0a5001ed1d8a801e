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
	"errors"
	"fmt"
)

var (
	errNegativeCycle  = errors.New("copy cycle must not be negative")
	errIncompleteTask = errors.New("copy task needs sourceFile and targetFile")
)

// ScheduleEntry is one named daily patrol time, "HH:MM:SS".
type ScheduleEntry struct {
	Name string `json:"name" yaml:"name"`
	Time string `json:"time" yaml:"time"`
}

// CopyConfig drives the cyclic log copy job.
type CopyConfig struct {
	Cycle int        `json:"cycle" yaml:"cycle"`
	Tasks []CopyTask `json:"tasks" yaml:"tasks"`
}

// Validate checks the copy settings. A zero cycle selects the default.
func (c *CopyConfig) Validate() error {
	if c.Cycle < 0 {
		return fmt.Errorf("%w: %d", errNegativeCycle, c.Cycle)
	}

	for i := range c.Tasks {
		if c.Tasks[i].SourceFile == "" || c.Tasks[i].TargetFile == "" {
			return fmt.Errorf("%w: task %d (%s)", errIncompleteTask, i, c.Tasks[i].Code)
		}
	}

	return nil
}

// CopyTask copies one device file to the archive.
type CopyTask struct {
	Line       string `json:"line" yaml:"line"`
	Code       string `json:"code" yaml:"code"`
	Account    string `json:"account" yaml:"account"`
	Password   string `json:"password" yaml:"password" sensitive:"true"`
	SourceFile string `json:"sourceFile" yaml:"sourceFile"`
	TargetFile string `json:"targetFile" yaml:"targetFile"`
}

// Credentials returns the account and password used to mount the source.
func (t *CopyTask) Credentials() (user, password string) {
	return orEmpty(t.Account), orEmpty(t.Password)
}
