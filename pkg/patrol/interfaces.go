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

//go:generate mockgen -destination=mock_patrol.go -package=patrol github.com/carverauto/autopatrol/pkg/patrol Publisher,DeviceSource

import (
	"context"

	"github.com/carverauto/autopatrol/pkg/history"
	"github.com/carverauto/autopatrol/pkg/models"
)

// ReachabilityProber checks addresses for liveness.
type ReachabilityProber interface {
	ProbeAll(ctx context.Context, addrs []string) map[string]bool
}

// ShareProber mounts and inspects device shares.
type ShareProber interface {
	ProbeShares(ctx context.Context, reachability map[string]bool, devices []models.DeviceSpec) map[string]models.ConnectionOutcome
}

// PriorLoader provides the previous run's results.
type PriorLoader interface {
	LoadPriorIndex(ctx context.Context) (*history.Index, string, error)
}

// ReportStore persists and browses patrol reports.
type ReportStore interface {
	Write(name string, records []models.ResultRecord) (string, error)
	Read(name string) ([]models.ResultRecord, error)
	List(prefix string) ([]string, error)
}

// Publisher forwards one message to the MES.
type Publisher interface {
	Publish(ctx context.Context, v any) error
}

// DeviceSource loads the current device roster.
type DeviceSource interface {
	Devices(ctx context.Context) ([]models.DeviceSpec, error)
}
