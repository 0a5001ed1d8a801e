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

package patrol

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/carverauto/autopatrol/pkg/report"
	"github.com/google/uuid"
)

var ErrPatrolInProgress = errors.New("patrol already in progress")

// Task is one in-progress run.
type Task struct {
	Name    string
	Kind    report.Kind
	RunID   string
	Started time.Time
}

// TaskRegistry tracks in-progress runs by task name. Construct one per
// process and share it between every trigger path.
type TaskRegistry struct {
	mu    sync.Mutex
	tasks map[string]Task
}

func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{tasks: make(map[string]Task)}
}

// Begin registers a run of name. It fails with ErrPatrolInProgress while
// another run of the same name is registered.
func (r *TaskRegistry) Begin(name string, kind report.Kind, now time.Time) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if running, ok := r.tasks[name]; ok {
		return Task{}, fmt.Errorf("%w: %s run %s started %s", ErrPatrolInProgress,
			running.Kind, running.RunID, running.Started.Format(time.DateTime))
	}

	t := Task{Name: name, Kind: kind, RunID: uuid.NewString(), Started: now}
	r.tasks[name] = t

	return t, nil
}

// End removes the run of name.
func (r *TaskRegistry) End(name string) {
	r.mu.Lock()
	delete(r.tasks, name)
	r.mu.Unlock()
}

func (r *TaskRegistry) Running(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.tasks[name]

	return ok
}

// List returns the registered runs, oldest first.
func (r *TaskRegistry) List() []Task {
	r.mu.Lock()
	out := make([]Task, 0, len(r.tasks))

	for _, t := range r.tasks {
		out = append(out, t)
	}
	r.mu.Unlock()

	slices.SortFunc(out, func(a, b Task) int { return a.Started.Compare(b.Started) })

	return out
}
