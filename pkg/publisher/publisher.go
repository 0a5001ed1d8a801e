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

// Package publisher delivers patrol results to the MES broker at least once.
// Messages that fail on the wire are kept in memory and retried by a
// periodic sweep until they age out.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/carverauto/autopatrol/pkg/logger"
)

const (
	DefaultConfirmTimeout = 5 * time.Second
	DefaultRetryDelay     = 5 * time.Second

	// MaxRetries and MaxRetryAge bound how long a failed message is kept.
	MaxRetries  = 10
	MaxRetryAge = 24 * time.Hour

	sweepFirstDelay = 30 * time.Second
	sweepInterval   = 5 * time.Minute
)

var (
	ErrConnect        = errors.New("broker connect failed")
	ErrPublish        = errors.New("broker publish failed")
	ErrConfirmTimeout = errors.New("broker confirm not received")
	ErrNacked         = errors.New("broker rejected message")
	ErrClosed         = errors.New("publisher closed")
)

// FailedMessage is a payload waiting for a retry.
type FailedMessage struct {
	Body        []byte
	FirstFailed time.Time
	RetryCount  int
}

// SweepStats summarizes one pass over the retry queue.
type SweepStats struct {
	Sent     int
	Requeued int
	Dropped  int
}

// Publisher owns one broker session and the retry queue.
type Publisher struct {
	dialer         Dialer
	logger         logger.Logger
	confirmTimeout time.Duration
	retryDelay     time.Duration
	now            func() time.Time

	setupMu sync.Mutex
	session Session

	// writeMu serializes wire writes; it is released before the confirm wait.
	writeMu sync.Mutex

	queueMu sync.Mutex
	queue   []FailedMessage

	reconnecting atomic.Bool
	closed       atomic.Bool

	// lifeMu orders wg.Add against Close.
	lifeMu sync.Mutex

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option customizes a Publisher.
type Option func(*Publisher)

func WithConfirmTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.confirmTimeout = d
		}
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.retryDelay = d
		}
	}
}

// WithNow overrides the clock used to age queued messages.
func WithNow(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

func New(d Dialer, log logger.Logger, opts ...Option) *Publisher {
	ctx, cancel := context.WithCancel(context.Background())

	p := &Publisher{
		dialer:         d,
		logger:         log,
		confirmTimeout: DefaultConfirmTimeout,
		retryDelay:     DefaultRetryDelay,
		now:            time.Now,
		ctx:            ctx,
		cancel:         cancel,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Start blocks until a session is established or ctx is done, then starts
// the retry sweeper.
func (p *Publisher) Start(ctx context.Context) error {
	if p.closed.Load() {
		return ErrClosed
	}

	if err := p.connectLoop(ctx); err != nil {
		return err
	}

	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()

	if p.closed.Load() {
		return ErrClosed
	}

	p.wg.Add(1)

	go func() {
		defer p.wg.Done()
		p.sweepLoop(ctx)
	}()

	return nil
}

func (p *Publisher) connectLoop(ctx context.Context) error {
	op := func() (struct{}, error) {
		return struct{}{}, p.EnsureConnection(ctx)
	}

	notify := func(err error, next time.Duration) {
		p.logger.Warn().Err(err).Dur("retry_in", next).Msg("Broker connection failed")
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(p.retryDelay)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify))

	return err
}

// EnsureConnection dials once if there is no live session.
func (p *Publisher) EnsureConnection(ctx context.Context) error {
	p.setupMu.Lock()
	defer p.setupMu.Unlock()

	if p.closed.Load() {
		return backoff.Permanent(ErrClosed)
	}

	if p.session != nil && !p.session.IsClosed() {
		return nil
	}

	if p.session != nil {
		_ = p.session.Close()
		p.session = nil
	}

	sess, err := p.dialer.Dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}

	p.session = sess

	p.logger.Info().Msg("Broker session established")

	return nil
}

// Publish marshals v and sends it with a confirm. Wire failures queue the
// message for the sweeper and start a background reconnect; a missing or
// negative confirm is reported but not retried. While a reconnect is
// running, messages are queued without dialing.
func (p *Publisher) Publish(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if p.closed.Load() {
		return ErrClosed
	}

	if p.reconnecting.Load() {
		p.enqueue(FailedMessage{Body: body, FirstFailed: p.now()})

		p.logger.Debug().Int("pending", p.Pending()).Msg("Reconnect in progress, message queued")

		return fmt.Errorf("%w: reconnect in progress", ErrConnect)
	}

	err = p.EnsureConnection(ctx)
	if err == nil {
		err = p.send(ctx, body)
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrClosed):
		return ErrClosed
	case errors.Is(err, ErrConfirmTimeout), errors.Is(err, ErrNacked):
		p.logger.Warn().Err(err).Msg("Message not confirmed")

		return err
	}

	p.enqueue(FailedMessage{Body: body, FirstFailed: p.now()})
	p.reconnectAsync()

	p.logger.Error().Err(err).Int("pending", p.Pending()).Msg("Publish failed, queued for retry")

	return err
}

func (p *Publisher) send(ctx context.Context, body []byte) error {
	p.writeMu.Lock()

	p.setupMu.Lock()
	sess := p.session
	p.setupMu.Unlock()

	if sess == nil {
		p.writeMu.Unlock()
		return fmt.Errorf("%w: no session", ErrPublish)
	}

	conf, err := sess.Publish(ctx, body)

	p.writeMu.Unlock()

	if err != nil {
		p.discard(sess)
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}

	wctx, cancel := context.WithTimeout(ctx, p.confirmTimeout)
	defer cancel()

	acked, err := conf.Wait(wctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfirmTimeout, err)
	}

	if !acked {
		return ErrNacked
	}

	return nil
}

// discard drops sess if it is still the current session.
func (p *Publisher) discard(sess Session) {
	p.setupMu.Lock()
	defer p.setupMu.Unlock()

	if p.session != sess {
		return
	}

	if err := sess.Close(); err != nil {
		p.logger.Debug().Err(err).Msg("Closing failed session")
	}

	p.session = nil
}

func (p *Publisher) reconnectAsync() {
	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()

	if p.closed.Load() || !p.reconnecting.CompareAndSwap(false, true) {
		return
	}

	p.wg.Add(1)

	go func() {
		defer p.wg.Done()
		defer p.reconnecting.Store(false)

		if err := p.connectLoop(p.ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrClosed) {
			p.logger.Error().Err(err).Msg("Broker reconnect abandoned")
		}
	}()
}

func (p *Publisher) enqueue(msgs ...FailedMessage) {
	p.queueMu.Lock()
	p.queue = append(p.queue, msgs...)
	p.queueMu.Unlock()
}

func (p *Publisher) drain() []FailedMessage {
	p.queueMu.Lock()
	defer p.queueMu.Unlock()

	batch := p.queue
	p.queue = nil

	return batch
}

// Pending reports how many messages wait for a retry.
func (p *Publisher) Pending() int {
	p.queueMu.Lock()
	defer p.queueMu.Unlock()

	return len(p.queue)
}

func (p *Publisher) sweepLoop(ctx context.Context) {
	timer := time.NewTimer(sweepFirstDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.ctx.Done():
			return
		case <-timer.C:
			p.Sweep(ctx)
			timer.Reset(sweepInterval)
		}
	}
}

// Sweep retries every queued message once. Messages retried MaxRetries
// times or first failed MaxRetryAge ago are dropped.
func (p *Publisher) Sweep(ctx context.Context) SweepStats {
	var stats SweepStats

	batch := p.drain()
	if len(batch) == 0 {
		return stats
	}

	now := p.now()

	var requeue []FailedMessage

	for _, msg := range batch {
		if msg.RetryCount >= MaxRetries || now.Sub(msg.FirstFailed) >= MaxRetryAge {
			p.logger.Warn().
				Int("retries", msg.RetryCount).
				Time("first_failed", msg.FirstFailed).
				Msg("Dropping undeliverable message")

			stats.Dropped++

			continue
		}

		err := p.EnsureConnection(ctx)
		if err == nil {
			err = p.send(ctx, msg.Body)
		}

		if err != nil {
			msg.RetryCount++
			requeue = append(requeue, msg)
			stats.Requeued++

			continue
		}

		stats.Sent++
	}

	p.enqueue(requeue...)

	p.logger.Info().
		Int("sent", stats.Sent).
		Int("requeued", stats.Requeued).
		Int("dropped", stats.Dropped).
		Msg("Retry sweep complete")

	return stats
}

// Close stops the sweeper and any reconnect loop and closes the session.
// It is safe to call more than once.
func (p *Publisher) Close() error {
	var err error

	p.closeOnce.Do(func() {
		p.lifeMu.Lock()
		p.closed.Store(true)
		p.lifeMu.Unlock()

		p.cancel()
		p.wg.Wait()

		p.setupMu.Lock()
		defer p.setupMu.Unlock()

		if p.session != nil {
			err = p.session.Close()
			p.session = nil
		}

		if n := p.Pending(); n > 0 {
			p.logger.Warn().Int("pending", n).Msg("Publisher closed with undelivered messages")
		}
	})

	return err
}
