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

const (
	KeyID                = "id"
	KeyName              = "name"
	KeyUnitOfMeasurement = "unit_of_measurement"
	KeyIcon              = "icon"
	KeyAccuracyDecimals  = "accuracy_decimals"
	KeyDeviceClass       = "device_class"
	KeyStateClass        = "state_class"
	KeyEntityCategory    = "entity_category"
	KeyInternal          = "internal"
	KeyDisabledByDefault = "disabled_by_default"
	KeyForceUpdate       = "force_update"

	StateClassMeasurement     = "measurement"
	StateClassTotal           = "total"
	StateClassTotalIncreasing = "total_increasing"

	EntityCategoryConfig     = "config"
	EntityCategoryDiagnostic = "diagnostic"
)

// SensorRecord is the validated form of one sensor entry.
type SensorRecord struct {
	ID                string
	Name              string
	UnitOfMeasurement string
	Icon              string
	AccuracyDecimals  int
	DeviceClass       string
	StateClass        string
	EntityCategory    string
	Internal          bool
	DisabledByDefault bool
	ForceUpdate       bool
}

// SensorDefaults are the platform supplied defaults of the generic sensor schema.
type SensorDefaults struct {
	Unit             string
	Icon             string
	AccuracyDecimals int
	DeviceClass      string
	StateClass       string
}

func optionalString(key, def string, check Validator) Field {
	if def == "" {
		return Optional(key, check)
	}
	return OptionalDefault(key, def, check)
}

// SensorSchema builds the generic sensor schema with the platform's defaults.
func SensorSchema(d SensorDefaults) *Schema {
	return New(
		Optional(KeyID, IDName),
		Optional(KeyName, String),
		optionalString(KeyUnitOfMeasurement, d.Unit, String),
		optionalString(KeyIcon, d.Icon, Icon),
		OptionalDefault(KeyAccuracyDecimals, d.AccuracyDecimals, IntRange(-6, 10)),
		optionalString(KeyDeviceClass, d.DeviceClass, DeviceClass),
		optionalString(KeyStateClass, d.StateClass,
			OneOf(StateClassMeasurement, StateClassTotal, StateClassTotalIncreasing)),
		Optional(KeyEntityCategory, OneOf(EntityCategoryConfig, EntityCategoryDiagnostic)),
		OptionalDefault(KeyInternal, false, Boolean),
		OptionalDefault(KeyDisabledByDefault, false, Boolean),
		OptionalDefault(KeyForceUpdate, false, Boolean),
	)
}

func getString(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func getBool(m map[string]interface{}, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func sensorFromMap(m map[string]interface{}) *SensorRecord {
	acc, _ := m[KeyAccuracyDecimals].(int)
	return &SensorRecord{
		ID:                getString(m, KeyID),
		Name:              getString(m, KeyName),
		UnitOfMeasurement: getString(m, KeyUnitOfMeasurement),
		Icon:              getString(m, KeyIcon),
		AccuracyDecimals:  acc,
		DeviceClass:       getString(m, KeyDeviceClass),
		StateClass:        getString(m, KeyStateClass),
		EntityCategory:    getString(m, KeyEntityCategory),
		Internal:          getBool(m, KeyInternal),
		DisabledByDefault: getBool(m, KeyDisabledByDefault),
		ForceUpdate:       getBool(m, KeyForceUpdate),
	}
}

// Map returns s in raw form. Keys carrying a platform default are always
// present so that validating the result does not bring the default back.
func (s *SensorRecord) Map() map[string]interface{} {
	m := map[string]interface{}{
		KeyUnitOfMeasurement: s.UnitOfMeasurement,
		KeyIcon:              s.Icon,
		KeyAccuracyDecimals:  s.AccuracyDecimals,
		KeyDeviceClass:       s.DeviceClass,
		KeyStateClass:        s.StateClass,
		KeyInternal:          s.Internal,
		KeyDisabledByDefault: s.DisabledByDefault,
		KeyForceUpdate:       s.ForceUpdate,
	}
	if s.ID != "" {
		m[KeyID] = s.ID
	}
	if s.Name != "" {
		m[KeyName] = s.Name
	}
	if s.EntityCategory != "" {
		m[KeyEntityCategory] = s.EntityCategory
	}
	if s.StateClass == "" {
		delete(m, KeyStateClass)
	}
	return m
}
