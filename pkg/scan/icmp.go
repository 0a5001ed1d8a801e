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
	"runtime"
	"time"

	"github.com/go-ping/ping"
)

// ICMPPinger sends one echo request per probe.
type ICMPPinger struct {
	// Privileged uses raw sockets instead of unprivileged UDP ICMP. Windows
	// only supports the privileged mode.
	Privileged bool
}

var _ Pinger = (*ICMPPinger)(nil)

func (p *ICMPPinger) Ping(ctx context.Context, addr string) (bool, error) {
	if addr == "" {
		return false, ErrEmptyAddress
	}

	pinger, err := ping.NewPinger(addr)
	if err != nil {
		return false, err
	}

	pinger.Count = 1
	pinger.SetPrivileged(p.Privileged || runtime.GOOS == "windows")

	if deadline, ok := ctx.Deadline(); ok {
		pinger.Timeout = time.Until(deadline)
	} else {
		pinger.Timeout = DefaultProbeTimeout
	}

	done := make(chan error, 1)

	go func() { done <- pinger.Run() }()

	select {
	case <-ctx.Done():
		pinger.Stop()
		<-done

		return false, ctx.Err()
	case err := <-done:
		if err != nil {
			return false, err
		}
	}

	if pinger.Statistics().PacketsRecv == 0 {
		return false, errNoReply
	}

	return true, nil
}
