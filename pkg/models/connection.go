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

import "fmt"

// ConnectionStatus classifies a share probe attempt.
type ConnectionStatus int

const (
	ConnectionSuccess ConnectionStatus = iota
	ConnectionFailure
	ConnectionInvalidCredentials
	ConnectionPathNotFound
	ConnectionPermissionDenied
	ConnectionNetworkError
	ConnectionNetworkBusy
	ConnectionPasswordOverdue
	ConnectionUnknownError
)

var connectionStatusNames = map[ConnectionStatus]string{
	ConnectionSuccess:            "success",
	ConnectionFailure:            "failure",
	ConnectionInvalidCredentials: "invalid_credentials",
	ConnectionPathNotFound:       "path_not_found",
	ConnectionPermissionDenied:   "permission_denied",
	ConnectionNetworkError:       "network_error",
	ConnectionNetworkBusy:        "network_busy",
	ConnectionPasswordOverdue:    "password_overdue",
	ConnectionUnknownError:       "unknown_error",
}

func (s ConnectionStatus) String() string {
	if name, ok := connectionStatusNames[s]; ok {
		return name
	}

	return fmt.Sprintf("status(%d)", int(s))
}

// ConnectionOutcome is the classified result of probing one share.
type ConnectionOutcome struct {
	Status  ConnectionStatus `json:"status"`
	Profile string           `json:"profile"`
	Message string           `json:"message"`
}

// Succeeded reports whether the share was mounted and held today's log.
func (o ConnectionOutcome) Succeeded() bool {
	return o.Status == ConnectionSuccess
}

// MissingDailyLog reports whether the share mounted but today's log was absent.
func (o ConnectionOutcome) MissingDailyLog() bool {
	return o.Status == ConnectionFailure && o.Profile == PromptDailyLogMissing
}

// AccessFailure builds an outcome carrying the share-access profile.
func AccessFailure(status ConnectionStatus, message string) ConnectionOutcome {
	return ConnectionOutcome{Status: status, Profile: PromptAccessPathFailure, Message: message}
}

// UnknownErrorCode reports an unmapped native error code.
func UnknownErrorCode(code int) ConnectionOutcome {
	return AccessFailure(ConnectionUnknownError, fmt.Sprintf(PromptUnknownErrorWithCode, code))
}

// UnknownErrorCause reports an unexpected failure that carries no code.
func UnknownErrorCause(err error) ConnectionOutcome {
	return AccessFailure(ConnectionUnknownError, fmt.Sprintf(PromptUnknownErrorWithCause, err))
}
