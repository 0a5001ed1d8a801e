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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/autopatrol/pkg/logger"
	"github.com/carverauto/autopatrol/pkg/models"
	"github.com/carverauto/autopatrol/pkg/report"
)

// patrolTask is the registry name shared by manual and scheduled runs; both
// write to the same report directory and history.
const patrolTask = "patrol"

var (
	ErrNoDevices   = errors.New("device list is empty")
	errNoPublisher = errors.New("no publisher configured")
)

// Service is the entry point used by the CLI and the scheduler.
type Service struct {
	orch      *Orchestrator
	store     ReportStore
	publisher Publisher
	devices   DeviceSource
	registry  *TaskRegistry
	logger    logger.Logger
	now       func() time.Time
}

// ServiceConfig wires a Service. Publisher may be nil when the broker is
// disabled.
type ServiceConfig struct {
	Orchestrator *Orchestrator
	Store        ReportStore
	Publisher    Publisher
	Devices      DeviceSource
	Registry     *TaskRegistry
	Logger       logger.Logger
	Now          func() time.Time
}

func NewService(cfg *ServiceConfig) *Service {
	s := &Service{
		orch:      cfg.Orchestrator,
		store:     cfg.Store,
		publisher: cfg.Publisher,
		devices:   cfg.Devices,
		registry:  cfg.Registry,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}

	if s.registry == nil {
		s.registry = NewTaskRegistry()
	}

	if s.now == nil {
		s.now = time.Now
	}

	return s
}

// Registry exposes the in-progress run registry.
func (s *Service) Registry() *TaskRegistry {
	return s.registry
}

// TriggerPatrol runs one patrol over devices and stores its report. Only one
// patrol runs at a time; a second caller gets ErrPatrolInProgress.
func (s *Service) TriggerPatrol(ctx context.Context, devices []models.DeviceSpec, kind report.Kind) ([]models.ResultRecord, error) {
	if len(devices) == 0 {
		return nil, ErrNoDevices
	}

	started := s.now()

	task, err := s.registry.Begin(patrolTask, kind, started)
	if err != nil {
		return nil, err
	}
	defer s.registry.End(patrolTask)

	log := s.logger.With().Str("run_id", task.RunID).Str("kind", kind.String()).Logger()
	log.Info().Int("devices", len(devices)).Msg("Patrol triggered")

	records, err := s.orch.Patrol(ctx, devices, report.Name(kind, started))
	if err != nil {
		log.Error().Err(err).Msg("Patrol failed")

		return nil, err
	}

	log.Info().Dur("elapsed", s.now().Sub(started)).Int("records", len(records)).Msg("Patrol finished")

	return records, nil
}

// LoadHistory returns the records of a stored report.
func (s *Service) LoadHistory(_ context.Context, name string) ([]models.ResultRecord, error) {
	return s.store.Read(name)
}

// ListReports returns stored report names starting with datePrefix.
func (s *Service) ListReports(datePrefix string) ([]string, error) {
	return s.store.List(datePrefix)
}

// PublishResults sends one envelope per record. Every record is attempted;
// the returned error joins the individual failures.
func (s *Service) PublishResults(ctx context.Context, records []models.ResultRecord) error {
	if s.publisher == nil {
		return errNoPublisher
	}

	var errs []error

	for i := range records {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)

			break
		}

		env := models.NewEnvelope(&records[i], s.now())

		if err := s.publisher.Publish(ctx, env); err != nil {
			errs = append(errs, fmt.Errorf("record %s/%s/%s: %w", records[i].Line, records[i].Code, records[i].Item, err))
		}
	}

	if len(errs) > 0 {
		s.logger.Warn().Int("failed", len(errs)).Int("records", len(records)).Msg("Some results were not confirmed")
	}

	return errors.Join(errs...)
}

// RunScheduledPatrol loads the roster, runs a scheduled patrol and forwards
// its results. It is the scheduler's patrol job.
func (s *Service) RunScheduledPatrol(ctx context.Context) error {
	devices, err := s.devices.Devices(ctx)
	if err != nil {
		return fmt.Errorf("failed to load devices: %w", err)
	}

	records, err := s.TriggerPatrol(ctx, devices, report.KindScheduled)
	if err != nil {
		return err
	}

	if s.publisher == nil {
		s.logger.Debug().Msg("Broker disabled, results not forwarded")

		return nil
	}

	return s.PublishResults(ctx, records)
}
