/*
 * Copyright (c) 2023. Anton Starikov -- All Rights Reserved
 *
 * This file is part of ISM330GEN project.
 *
 * ISM330GEN is free software: you can redistribute it and/or modify
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

package config

const (
	defaultBuildTopic      = "ism330gen/builds"
	defaultConnectAttempts = 3
)

// MQTTConfig configures build notifications. An empty URL disables them.
type MQTTConfig struct {
	URL             string `yaml:"url,omitempty"`
	Topic           string `yaml:"topic"`
	ConnectAttempts *int   `yaml:"connect_attempts"`
}

func NewMQTTConfig() *MQTTConfig {
	cfg := &MQTTConfig{}
	cfg.FillDefaults()
	return cfg
}

func (c *MQTTConfig) FillDefaults() {
	if c.Topic == "" {
		c.Topic = defaultBuildTopic
	}
	if c.ConnectAttempts == nil || *c.ConnectAttempts < 1 {
		c.ConnectAttempts = GetPTR(defaultConnectAttempts)
	}
}

func (c *MQTTConfig) Enabled() bool {
	return c != nil && c.URL != ""
}
