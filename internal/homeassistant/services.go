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

package homeassistant

import (
	"context"
)

// Monitor mirrors computed values into input_number entities.
type Monitor struct {
	client *Client
}

func NewMonitor(client *Client) *Monitor {
	return &Monitor{client: client}
}

func (m *Monitor) Write(ctx context.Context, entity string, value float64) error {
	return m.client.CallService(ctx, "input_number", "set_value", map[string]interface{}{
		"entity_id": entity,
		"value":     value,
	})
}

// Publisher forwards payloads through Home Assistant's mqtt.publish service,
// for setups where the controller has no direct broker access.
type Publisher struct {
	client   *Client
	retained bool
}

func NewPublisher(client *Client, retained bool) *Publisher {
	return &Publisher{client: client, retained: retained}
}

func (p *Publisher) Publish(ctx context.Context, topic, payload string) error {
	return p.client.CallService(ctx, "mqtt", "publish", map[string]interface{}{
		"topic":   topic,
		"payload": payload,
		"retain":  p.retained,
	})
}
