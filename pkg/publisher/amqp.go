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
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/carverauto/autopatrol/pkg/logger"
)

const (
	amqpHeartbeat   = 10 * time.Second
	amqpDialTimeout = 30 * time.Second
	contentTypeJSON = "application/json"
)

// AMQPConfig is the RabbitMQ destination. An empty Exchange publishes
// through the default exchange straight to Queue.
type AMQPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	VirtualHost string
	Exchange    string
	Queue       string
	RoutingKey  string
	Durable     bool
	Persistent  bool
	Exclusive   bool
	AutoDelete  bool
	Arguments   map[string]string
}

// URL renders the connection URI without the virtual host, which is passed
// separately so it needs no escaping.
func (c *AMQPConfig) URL() string {
	u := url.URL{
		Scheme: "amqp",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/",
	}

	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}

	return u.String()
}

func (c *AMQPConfig) routingKey() string {
	if c.RoutingKey != "" {
		return c.RoutingKey
	}

	return c.Queue
}

// AMQPDialer opens confirm-mode channels on a RabbitMQ broker.
type AMQPDialer struct {
	cfg    AMQPConfig
	logger logger.Logger
}

var _ Dialer = (*AMQPDialer)(nil)

func NewAMQPDialer(cfg *AMQPConfig, log logger.Logger) *AMQPDialer {
	return &AMQPDialer{cfg: *cfg, logger: log}
}

func (d *AMQPDialer) Dial(_ context.Context) (Session, error) {
	props := amqp.NewConnectionProperties()
	props.SetClientConnectionName("autopatrol")

	conn, err := amqp.DialConfig(d.cfg.URL(), amqp.Config{
		Vhost:      d.cfg.VirtualHost,
		Heartbeat:  amqpHeartbeat,
		Locale:     "en_US",
		Properties: props,
		Dial:       amqp.DefaultDial(amqpDialTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port)), err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := d.setup(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return nil, err
	}

	d.logger.Info().
		Str("host", d.cfg.Host).
		Str("vhost", d.cfg.VirtualHost).
		Str("queue", d.cfg.Queue).
		Msg("AMQP channel ready")

	return &amqpSession{conn: conn, ch: ch, cfg: &d.cfg}, nil
}

func (d *AMQPDialer) setup(ch *amqp.Channel) error {
	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("enable confirms: %w", err)
	}

	if d.cfg.Queue == "" {
		return nil
	}

	args := make(amqp.Table, len(d.cfg.Arguments))
	for k, v := range d.cfg.Arguments {
		args[k] = v
	}

	if _, err := ch.QueueDeclare(d.cfg.Queue, d.cfg.Durable, d.cfg.AutoDelete, d.cfg.Exclusive, false, args); err != nil {
		return fmt.Errorf("declare queue %s: %w", d.cfg.Queue, err)
	}

	if d.cfg.Exchange != "" {
		if err := ch.QueueBind(d.cfg.Queue, d.cfg.routingKey(), d.cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", d.cfg.Queue, d.cfg.Exchange, err)
		}
	}

	return nil
}

type amqpSession struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	cfg  *AMQPConfig
}

func (s *amqpSession) Publish(ctx context.Context, body []byte) (Confirmation, error) {
	mode := amqp.Transient
	if s.cfg.Persistent {
		mode = amqp.Persistent
	}

	dc, err := s.ch.PublishWithDeferredConfirmWithContext(ctx, s.cfg.Exchange, s.cfg.routingKey(), false, false, amqp.Publishing{
		ContentType:  contentTypeJSON,
		DeliveryMode: mode,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return nil, err
	}

	return amqpConfirmation{dc: dc}, nil
}

func (s *amqpSession) IsClosed() bool {
	return s.conn.IsClosed() || s.ch.IsClosed()
}

func (s *amqpSession) Close() error {
	var errs []error

	if err := s.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, err)
	}

	if err := s.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

type amqpConfirmation struct {
	dc *amqp.DeferredConfirmation
}

func (c amqpConfirmation) Wait(ctx context.Context) (bool, error) {
	// No deferred confirmation means the channel is not in confirm mode.
	if c.dc == nil {
		return true, nil
	}

	return c.dc.WaitContext(ctx)
}
