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

//go:generate mockgen -destination=mock_publisher.go -package=publisher github.com/carverauto/autopatrol/pkg/publisher Dialer,Session,Confirmation

package publisher

import "context"

// Dialer opens a broker session ready for confirmed publishing.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// Session is one live broker connection.
type Session interface {
	// Publish writes body to the wire and returns a handle for the broker's
	// confirmation.
	Publish(ctx context.Context, body []byte) (Confirmation, error)
	IsClosed() bool
	Close() error
}

// Confirmation resolves to true once the broker has accepted the message
// and false if it rejected it.
type Confirmation interface {
	Wait(ctx context.Context) (bool, error)
}
