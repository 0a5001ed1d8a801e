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

//go:generate mockgen -destination=mock_share.go -package=share github.com/carverauto/autopatrol/pkg/share Mounter

// Package share mounts device log shares and checks they hold today's data.
package share

import (
	"context"
	"io/fs"

	"github.com/carverauto/autopatrol/pkg/models"
)

// Mounter is the platform capability for attaching a network share. Classify
// turns the backend's native mount errors into an outcome so callers never
// inspect OS error codes themselves.
type Mounter interface {
	Mount(ctx context.Context, sharePath, user, password string) (fs.FS, error)
	Unmount(sharePath string) error
	Classify(err error) models.ConnectionOutcome
}
