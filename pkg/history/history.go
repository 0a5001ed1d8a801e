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

// Package history indexes the previous scheduled report so each new result
// can carry how many dated runs it has persisted.
package history

import (
	"context"
	"fmt"

	"github.com/carverauto/autopatrol/pkg/logger"
	"github.com/carverauto/autopatrol/pkg/models"
	"github.com/carverauto/autopatrol/pkg/report"
)

// Source is the report store view the tracker needs.
type Source interface {
	LatestScheduled() (path, name string, ok bool, err error)
	ReadPath(path string) ([]models.ResultRecord, error)
}

// Index maps a folded (line, code, item) key to the prior record. It is
// built once per run and only read afterwards.
type Index struct {
	records map[models.HistoryKey]models.ResultRecord
}

// NewIndex indexes records; later duplicates of a key win.
func NewIndex(records []models.ResultRecord) *Index {
	idx := &Index{records: make(map[models.HistoryKey]models.ResultRecord, len(records))}

	for i := range records {
		idx.records[records[i].Key()] = records[i]
	}

	return idx
}

// Get looks a prior record up ignoring case.
func (idx *Index) Get(line, code string, item models.CheckItem) (*models.ResultRecord, bool) {
	if idx == nil {
		return nil, false
	}

	r, ok := idx.records[models.NewHistoryKey(line, code, item)]
	if !ok {
		return nil, false
	}

	return &r, true
}

func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}

	return len(idx.records)
}

type Tracker struct {
	source Source
	logger logger.Logger
}

func NewTracker(source Source, log logger.Logger) *Tracker {
	return &Tracker{source: source, logger: log}
}

// LoadPriorIndex indexes the most recently modified scheduled report and
// returns it with that report's date stamp. Without a prior report the index
// is empty and the stamp is "". A report that exists but cannot be read is
// an error.
func (t *Tracker) LoadPriorIndex(ctx context.Context) (*Index, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	path, name, ok, err := t.source.LatestScheduled()
	if err != nil {
		return nil, "", fmt.Errorf("failed to locate prior report: %w", err)
	}

	if !ok {
		t.logger.Info().Msg("No prior scheduled report, durations start at 1")

		return NewIndex(nil), "", nil
	}

	records, err := t.source.ReadPath(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read prior report %s: %w", name, err)
	}

	stamp := report.DateStamp(name)

	t.logger.Info().Str("report", name).Str("stamp", stamp).Int("records", len(records)).Msg("Loaded prior report")

	return NewIndex(records), stamp, nil
}

// ComputeDuration returns the persistence counter for a result given the
// prior record of the same key. The result is never below 1.
func ComputeDuration(current models.ResultKind, prior *models.ResultRecord, currentStamp, priorStamp string) int {
	if prior == nil || prior.Result != current {
		return 1
	}

	base := max(prior.Duration, 1)

	if currentStamp == priorStamp {
		return base
	}

	return base + 1
}
