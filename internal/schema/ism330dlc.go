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

package schema

import "time"

const (
	// Platform is the sensor platform name the component is configured under.
	Platform = "ism330dlc_level"

	KeyAddress        = "address"
	KeyUpdateInterval = "update_interval"
	KeyI2CID          = "i2c_id"
	KeyAccelX         = "accel_x"
	KeyAccelY         = "accel_y"
	KeyAccelZ         = "accel_z"

	DefaultAddress        = 0x6A
	DefaultUpdateInterval = 200 * time.Millisecond
	// DefaultI2CBus is the bus a bare component block is attached to when it names none.
	DefaultI2CBus = "i2c_bus"

	UnitG            = "G"
	IconAcceleration = "mdi:axis-arrow"
)

// Axis is one acceleration channel of the sensor.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Axes lists every axis in emission order.
var Axes = []Axis{AxisX, AxisY, AxisZ}

func (a Axis) String() string {
	return [...]string{"x", "y", "z"}[a]
}

// Key is the configuration key of the axis sensor.
func (a Axis) Key() string {
	return "accel_" + a.String()
}

// Setter is the component method attaching the axis sensor.
func (a Axis) Setter() string {
	return "set_accel_" + a.String()
}

var accelSensor = SensorDefaults{
	Unit:             UnitG,
	Icon:             IconAcceleration,
	AccuracyDecimals: 4,
}

// PollingComponentSchema declares the update interval of a polling component.
func PollingComponentSchema(defaultInterval string) *Schema {
	return New(OptionalDefault(KeyUpdateInterval, defaultInterval, UpdateInterval))
}

// I2CDeviceSchema declares the bus and address of an I2C device.
func I2CDeviceSchema(defaultAddress int) *Schema {
	return New(
		Optional(KeyI2CID, IDName),
		OptionalDefault(KeyAddress, defaultAddress, I2CAddress),
	)
}

// ConfigSchema is the schema of one ism330dlc_level component block.
var ConfigSchema = New(
	Optional(KeyID, IDName),
	OptionalDefault(KeyAddress, DefaultAddress, I2CAddress),
	Optional(KeyAccelX, Nested(SensorSchema(accelSensor))),
	Optional(KeyAccelY, Nested(SensorSchema(accelSensor))),
	Optional(KeyAccelZ, Nested(SensorSchema(accelSensor))),
).Extend(
	PollingComponentSchema("200ms"),
	I2CDeviceSchema(DefaultAddress),
)

// Record is a validated and defaulted component configuration.
type Record struct {
	ID             string
	Address        uint8
	UpdateInterval time.Duration
	I2CBusID       string
	AccelX         *SensorRecord
	AccelY         *SensorRecord
	AccelZ         *SensorRecord
}

// Sensor returns the sensor configured for a, or nil.
func (r *Record) Sensor(a Axis) *SensorRecord {
	switch a {
	case AxisX:
		return r.AccelX
	case AxisY:
		return r.AccelY
	case AxisZ:
		return r.AccelZ
	}
	return nil
}

// Map returns r in the raw form Validate accepts.
func (r *Record) Map() map[string]interface{} {
	m := map[string]interface{}{
		KeyAddress:        int(r.Address),
		KeyUpdateInterval: FormatInterval(r.UpdateInterval),
	}
	if r.ID != "" {
		m[KeyID] = r.ID
	}
	if r.I2CBusID != "" {
		m[KeyI2CID] = r.I2CBusID
	}
	for _, a := range Axes {
		if s := r.Sensor(a); s != nil {
			m[a.Key()] = s.Map()
		}
	}
	return m
}

func recordFromMap(m map[string]interface{}) *Record {
	r := &Record{
		ID:             getString(m, KeyID),
		Address:        uint8(m[KeyAddress].(int)),
		UpdateInterval: m[KeyUpdateInterval].(time.Duration),
		I2CBusID:       getString(m, KeyI2CID),
	}
	if s, ok := m[KeyAccelX].(map[string]interface{}); ok {
		r.AccelX = sensorFromMap(s)
	}
	if s, ok := m[KeyAccelY].(map[string]interface{}); ok {
		r.AccelY = sensorFromMap(s)
	}
	if s, ok := m[KeyAccelZ].(map[string]interface{}); ok {
		r.AccelZ = sensorFromMap(s)
	}
	return r
}

func validateRecord(path []string, raw map[string]interface{}) (*Record, error) {
	m, err := ConfigSchema.Validate(path, raw)
	if err != nil {
		return nil, err
	}
	return recordFromMap(m), nil
}

// Validate checks a bare component block and returns its record with every
// default applied and every missing ID generated. It has no side effects.
func Validate(raw map[string]interface{}) (*Record, error) {
	rec, err := validateRecord(nil, raw)
	if err != nil {
		return nil, err
	}

	busPath := []string{KeyI2CID}
	if rec.I2CBusID == "" {
		rec.I2CBusID = DefaultI2CBus
		busPath = []string{"(default i2c bus)"}
	}

	ids := newIDAllocator()
	if err := ids.declare(busPath, rec.I2CBusID); err != nil {
		return nil, err
	}
	if err := ids.declareRecord(nil, rec); err != nil {
		return nil, err
	}
	ids.fillRecord(rec)
	return rec, nil
}
