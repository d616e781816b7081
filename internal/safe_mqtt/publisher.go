/*
 * Copyright (c) 2023. Anton Starikov -- All Rights Reserved
 *
 * This file is part of HEATAI project.
 *
 * HEATAI is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as the Free Software Foundation,
 * either version 3 of the License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package safe_mqtt

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Publisher sends command payloads to the broker and waits for the outcome.
type Publisher struct {
	client   MqttClient
	qos      byte
	retained bool
	timeout  time.Duration
}

func NewPublisher(client MqttClient, qos byte, retained bool, timeout time.Duration) *Publisher {
	return &Publisher{client: client, qos: qos, retained: retained, timeout: timeout}
}

// Publish returns once the broker acknowledged the message (for qos > 0),
// the timeout passed or ctx was cancelled.
func (p *Publisher) Publish(ctx context.Context, topic, payload string) error {
	token := p.client.SafePublish(topic, p.qos, p.retained, payload)

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-timer.C:
		return errors.Errorf("publish to %s timed out after %v", topic, p.timeout)
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "publish to %s", topic)
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "publish to %s", topic)
	}
	return nil
}
