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

package share

import "github.com/carverauto/autopatrol/pkg/models"

// Win32 error codes returned by WNetAddConnection2.
const (
	win32AccessDenied        = 5
	win32BadNetPath          = 53
	win32NetworkBusy         = 55
	win32BadNetName          = 67
	win32InvalidPassword     = 86
	win32SessionCredConflict = 1219
	win32LogonFailure        = 1326
	win32AccountRestriction  = 1327
	win32PasswordExpired     = 1330
)

var win32Outcomes = map[int]models.ConnectionOutcome{
	win32AccessDenied:        models.AccessFailure(models.ConnectionPermissionDenied, models.PromptPermissionDenied),
	win32BadNetPath:          models.AccessFailure(models.ConnectionPathNotFound, models.PromptNetworkNameNotFound),
	win32NetworkBusy:         models.AccessFailure(models.ConnectionNetworkBusy, models.PromptNetworkBusy),
	win32BadNetName:          models.AccessFailure(models.ConnectionPathNotFound, models.PromptLogPathChanged),
	win32InvalidPassword:     models.AccessFailure(models.ConnectionInvalidCredentials, models.PromptInvalidCredentials),
	win32SessionCredConflict: models.AccessFailure(models.ConnectionNetworkError, models.PromptMultipleLogons),
	win32LogonFailure:        models.AccessFailure(models.ConnectionPasswordOverdue, models.PromptPasswordOverdue),
	win32AccountRestriction:  models.AccessFailure(models.ConnectionPermissionDenied, models.PromptPermissionDenied),
	win32PasswordExpired:     models.AccessFailure(models.ConnectionPasswordOverdue, models.PromptPasswordOverdue),
}

// ClassifyWin32 maps a WNet error code to an outcome.
func ClassifyWin32(code int) models.ConnectionOutcome {
	if out, ok := win32Outcomes[code]; ok {
		return out
	}

	return models.UnknownErrorCode(code)
}

// NTSTATUS values surfaced by SMB2 servers during session setup and tree
// connect.
const (
	ntStatusAccessDenied          uint32 = 0xC0000022
	ntStatusObjectNameNotFound    uint32 = 0xC0000034
	ntStatusObjectPathNotFound    uint32 = 0xC000003A
	ntStatusLogonFailure          uint32 = 0xC000006D
	ntStatusAccountRestriction    uint32 = 0xC000006E
	ntStatusPasswordExpired       uint32 = 0xC0000071
	ntStatusBadNetworkName        uint32 = 0xC00000CC
	ntStatusRequestNotAccepted    uint32 = 0xC00000D0
	ntStatusInsuffServerResources uint32 = 0xC0000205
	ntStatusPasswordMustChange    uint32 = 0xC0000224
	ntStatusNetworkSessionExpired uint32 = 0xC000035C
)

var ntStatusOutcomes = map[uint32]models.ConnectionOutcome{
	ntStatusAccessDenied:          models.AccessFailure(models.ConnectionPermissionDenied, models.PromptPermissionDenied),
	ntStatusObjectNameNotFound:    models.AccessFailure(models.ConnectionPathNotFound, models.PromptLogPathChanged),
	ntStatusObjectPathNotFound:    models.AccessFailure(models.ConnectionPathNotFound, models.PromptLogPathChanged),
	ntStatusLogonFailure:          models.AccessFailure(models.ConnectionInvalidCredentials, models.PromptInvalidCredentials),
	ntStatusAccountRestriction:    models.AccessFailure(models.ConnectionPermissionDenied, models.PromptPermissionDenied),
	ntStatusPasswordExpired:       models.AccessFailure(models.ConnectionPasswordOverdue, models.PromptPasswordOverdue),
	ntStatusBadNetworkName:        models.AccessFailure(models.ConnectionPathNotFound, models.PromptNetworkNameNotFound),
	ntStatusRequestNotAccepted:    models.AccessFailure(models.ConnectionNetworkBusy, models.PromptNetworkBusy),
	ntStatusInsuffServerResources: models.AccessFailure(models.ConnectionNetworkBusy, models.PromptNetworkBusy),
	ntStatusPasswordMustChange:    models.AccessFailure(models.ConnectionPasswordOverdue, models.PromptPasswordOverdue),
	ntStatusNetworkSessionExpired: models.AccessFailure(models.ConnectionNetworkError, models.PromptNetworkError),
}

// ClassifyNTStatus maps an SMB2 response status to an outcome.
func ClassifyNTStatus(status uint32) models.ConnectionOutcome {
	if out, ok := ntStatusOutcomes[status]; ok {
		return out
	}

	return models.UnknownErrorCode(int(status))
}
