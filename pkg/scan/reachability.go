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
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/autopatrol/pkg/logger"
)

// DefaultProbeTimeout bounds each liveness probe.
const DefaultProbeTimeout = time.Second

// Prober fans a Pinger out over a set of addresses.
type Prober struct {
	pinger  Pinger
	timeout time.Duration
	logger  logger.Logger
}

func NewProber(p Pinger, timeout time.Duration, log logger.Logger) *Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	return &Prober{pinger: p, timeout: timeout, logger: log}
}

// ProbeAll probes every distinct address once, concurrently, each with its
// own timeout. Any failure maps to false; the call never fails.
func (p *Prober) ProbeAll(ctx context.Context, addrs []string) map[string]bool {
	unique := dedupe(addrs)
	slots := make([]bool, len(unique))

	var wg sync.WaitGroup

	for i, addr := range unique {
		wg.Add(1)

		go func(i int, addr string) {
			defer wg.Done()

			slots[i] = p.probe(ctx, addr)
		}(i, addr)
	}

	wg.Wait()

	results := make(map[string]bool, len(unique))
	up := 0

	for i, addr := range unique {
		results[addr] = slots[i]

		if slots[i] {
			up++
		}
	}

	p.logger.Info().
		Int("addresses", len(unique)).
		Int("reachable", up).
		Msg("Reachability probe complete")

	return results
}

func (p *Prober) probe(ctx context.Context, addr string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Str("addr", addr).Str("panic", fmt.Sprint(r)).Msg("Probe panicked")

			ok = false
		}
	}()

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	alive, err := p.pinger.Ping(probeCtx, addr)
	if err != nil {
		p.logger.Debug().Err(err).Str("addr", addr).Msg("Address unreachable")

		return false
	}

	return alive
}

func dedupe(addrs []string) []string {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]string, 0, len(addrs))

	for _, a := range addrs {
		if _, ok := seen[a]; ok {
			continue
		}

		seen[a] = struct{}{}
		out = append(out, a)
	}

	return out
}
