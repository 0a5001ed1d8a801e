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

package scan

import (
	"context"
	"net"
	"strconv"
)

// DefaultTCPPorts are the SMB ports every share-hosting device listens on.
var DefaultTCPPorts = []int{445, 139}

// TCPPinger treats an address as alive when any of Ports accepts a TCP
// connection. Used where ICMP is filtered between the patrol host and the
// floor network.
type TCPPinger struct {
	Ports []int
}

var _ Pinger = (*TCPPinger)(nil)

func (p *TCPPinger) Ping(ctx context.Context, addr string) (bool, error) {
	if addr == "" {
		return false, ErrEmptyAddress
	}

	ports := p.Ports
	if len(ports) == 0 {
		return false, ErrNoPorts
	}

	var lastErr error

	for _, port := range ports {
		ok, err := checkPort(ctx, addr, port)
		if ok {
			return true, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return false, ctx.Err()
		}
	}

	return false, lastErr
}

func checkPort(ctx context.Context, host string, port int) (bool, error) {
	var dialer net.Dialer

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false, err
	}

	_ = conn.Close()

	return true, nil
}
