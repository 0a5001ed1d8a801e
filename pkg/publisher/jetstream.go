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

package publisher

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/autopatrol/pkg/logger"
)

// JetStreamConfig is the NATS JetStream destination. The stream is created
// on connect if it does not exist.
type JetStreamConfig struct {
	URL      string
	Username string
	Password string
	Stream   string
	Subject  string
}

// JetStreamDialer publishes to a JetStream stream with async acks.
type JetStreamDialer struct {
	cfg    JetStreamConfig
	logger logger.Logger
}

var _ Dialer = (*JetStreamDialer)(nil)

func NewJetStreamDialer(cfg *JetStreamConfig, log logger.Logger) *JetStreamDialer {
	return &JetStreamDialer{cfg: *cfg, logger: log}
}

func (d *JetStreamDialer) Dial(ctx context.Context) (Session, error) {
	opts := []nats.Option{
		nats.Name("autopatrol"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				d.logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			d.logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	if d.cfg.Username != "" {
		opts = append(opts, nats.UserInfo(d.cfg.Username, d.cfg.Password))
	}

	nc, err := nats.Connect(d.cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if _, err := js.Stream(ctx, d.cfg.Stream); err != nil {
		if !errors.Is(err, jetstream.ErrStreamNotFound) {
			nc.Close()
			return nil, fmt.Errorf("failed to look up stream %s: %w", d.cfg.Stream, err)
		}

		_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     d.cfg.Stream,
			Subjects: []string{d.cfg.Subject},
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to create stream %s: %w", d.cfg.Stream, err)
		}

		d.logger.Info().Str("stream", d.cfg.Stream).Msg("Created JetStream stream")
	}

	return &jetStreamSession{nc: nc, js: js, subject: d.cfg.Subject}, nil
}

type jetStreamSession struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	subject string
}

func (s *jetStreamSession) Publish(_ context.Context, body []byte) (Confirmation, error) {
	msg := &nats.Msg{
		Subject: s.subject,
		Data:    body,
		Header:  nats.Header{},
	}

	msg.Header.Set("Content-Type", contentTypeJSON)

	fut, err := s.js.PublishMsgAsync(msg, jetstream.WithMsgID(uuid.NewString()))
	if err != nil {
		return nil, err
	}

	return jetStreamConfirmation{fut: fut}, nil
}

func (s *jetStreamSession) IsClosed() bool {
	return s.nc.IsClosed()
}

func (s *jetStreamSession) Close() error {
	s.nc.Close()
	return nil
}

type jetStreamConfirmation struct {
	fut jetstream.PubAckFuture
}

func (c jetStreamConfirmation) Wait(ctx context.Context) (bool, error) {
	select {
	case <-c.fut.Ok():
		return true, nil
	case err := <-c.fut.Err():
		return false, err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
