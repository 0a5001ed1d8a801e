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

// Operator-facing descriptions and causes written to reports and the MES.
const (
	PromptNormal              = "normal"
	PromptGatewayNormal       = "gateway normal"
	PromptGatewayUnreachable  = "gateway ip unreachable, condition abnormal"
	PromptDeviceIPNormal      = "device ip normal"
	PromptDeviceIPUnreachable = "device ip unreachable"
	PromptCredentialsNormal   = "credentials normal"
	PromptSharePathNormal     = "share path accessible"

	PromptDeviceOff      = "device powered off"
	PromptCableUnplugged = "network cable unplugged"
	PromptAddressChanged = "ip address changed"
	PromptDeviceRemoved  = "device removed"

	PromptAccessPathFailure     = "share path inaccessible"
	PromptInvalidCredentials    = "wrong account or password"
	PromptPasswordOverdue       = "password expired"
	PromptPermissionDenied      = "account has no access permission"
	PromptMultipleLogons        = "multiple credentials used against the same server"
	PromptDailyLogMissing       = "daily log missing"
	PromptLogPathChanged        = "log path changed"
	PromptDeviceNotProducing    = "device not producing"
	PromptConnectionTimedOut    = "connection timed out"
	PromptNetworkBusy           = "network busy"
	PromptNetworkNameNotFound   = "network name not found"
	PromptNetworkError          = "network error"
	PromptNoShareDependency     = "no share dependency"
	PromptPathNotConfigured     = "path not configured"
	PromptUnknownErrorWithCode  = "unknown error (code %d), investigate on site"
	PromptUnknownErrorWithCause = "unknown error: %s"
)

// MessageSeparator joins cause lists in report cells.
const MessageSeparator = ", "

// Cause lists attached to failed checks.
var (
	ConditionFailureCauses    = []string{PromptDeviceRemoved, PromptDeviceOff, PromptCableUnplugged, PromptAddressChanged}
	ReachabilityFailureCauses = []string{PromptDeviceOff, PromptCableUnplugged, PromptAddressChanged}
	MissingLogCauses          = []string{PromptDeviceNotProducing, PromptLogPathChanged}
)
