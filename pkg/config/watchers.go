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
	"sync"
	"time"

	"github.com/google/uuid"
)

// WatcherStatus captures the current state for a file watcher.
type WatcherStatus string

const (
	WatcherStatusRunning WatcherStatus = "running"
	WatcherStatusStopped WatcherStatus = "stopped"
	WatcherStatusError   WatcherStatus = "error"
)

// WatcherInfo exposes runtime metadata for an active watcher.
type WatcherInfo struct {
	ID        string        `json:"id"`
	Service   string        `json:"service"`
	Path      string        `json:"path"`
	StartedAt time.Time     `json:"started_at"`
	LastEvent time.Time     `json:"last_event,omitempty"`
	Events    int           `json:"events"`
	Status    WatcherStatus `json:"status"`
	LastError string        `json:"last_error,omitempty"`
}

// WatcherRegistry tracks the file watchers owned by one process. It is an
// explicit object so tests and services never share hidden state.
type WatcherRegistry struct {
	mu       sync.RWMutex
	watchers map[string]*WatcherInfo
}

func NewWatcherRegistry() *WatcherRegistry {
	return &WatcherRegistry{watchers: make(map[string]*WatcherInfo)}
}

// Register records watcher metadata and returns a watcher ID.
func (r *WatcherRegistry) Register(service, path string) string {
	id := uuid.NewString()

	r.mu.Lock()
	r.watchers[id] = &WatcherInfo{
		ID:        id,
		Service:   service,
		Path:      path,
		StartedAt: time.Now().UTC(),
		Status:    WatcherStatusRunning,
	}
	r.mu.Unlock()

	return id
}

// MarkEvent updates the last event timestamp for a watcher.
func (r *WatcherRegistry) MarkEvent(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.watchers[id]
	if !ok {
		return
	}

	info.LastEvent = time.Now().UTC()
	info.Events++

	if err != nil {
		info.Status = WatcherStatusError
		info.LastError = err.Error()
	} else {
		info.Status = WatcherStatusRunning
		info.LastError = ""
	}
}

// MarkStopped marks the watcher as stopped and records the last error if present.
func (r *WatcherRegistry) MarkStopped(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.watchers[id]
	if !ok {
		return
	}

	info.Status = WatcherStatusStopped

	if err != nil && !errors.Is(err, context.Canceled) {
		info.LastError = err.Error()
	}
}

// List returns a snapshot of registered watchers.
func (r *WatcherRegistry) List() []WatcherInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]WatcherInfo, 0, len(r.watchers))
	for _, info := range r.watchers {
		result = append(result, *info)
	}

	return result
}
