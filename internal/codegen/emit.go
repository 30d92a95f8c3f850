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

package codegen

import (
	"github.com/antst/ism330gen/internal/schema"
)

const (
	Namespace      = "ism330dlc_level"
	ComponentClass = Namespace + "::ISM330DLCLevelComponent"
	SensorClass    = "sensor::Sensor"

	componentSource = Namespace + ".sensor"
)

var (
	stateClasses = map[string]string{
		schema.StateClassMeasurement:     "sensor::STATE_CLASS_MEASUREMENT",
		schema.StateClassTotal:           "sensor::STATE_CLASS_TOTAL",
		schema.StateClassTotalIncreasing: "sensor::STATE_CLASS_TOTAL_INCREASING",
	}
	entityCategories = map[string]string{
		schema.EntityCategoryConfig:     "ENTITY_CATEGORY_CONFIG",
		schema.EntityCategoryDiagnostic: "ENTITY_CATEGORY_DIAGNOSTIC",
	}
)

// Unit is one validated component together with the actions emitted for it.
type Unit struct {
	Record  *schema.Record
	Actions []Action
}

// Emit produces the actions for rec in order: instantiate the component,
// register it as a polling component and as an I2C device, then for every
// configured axis create its sensor and hand it to the axis setter.
func Emit(rec *schema.Record) []Action {
	id := rec.ID
	actions := []Action{
		newObject(id, ComponentClass),
		call(id, "set_update_interval", cppInt(rec.UpdateInterval.Milliseconds())),
		call(id, "set_component_source", cppString(componentSource)),
		{Kind: KindRegisterComponent, Var: id},
		call(id, "set_i2c_bus", rec.I2CBusID),
		call(id, "set_i2c_address", cppHex8(rec.Address)),
	}

	for _, axis := range schema.Axes {
		s := rec.Sensor(axis)
		if s == nil {
			continue
		}
		actions = append(actions, newSensor(s)...)
		actions = append(actions, call(id, axis.Setter(), s.ID))
	}
	return actions
}

func newSensor(s *schema.SensorRecord) []Action {
	id := s.ID
	actions := []Action{
		newObject(id, SensorClass),
		{Kind: KindRegisterSensor, Var: id},
	}
	if s.Name != "" {
		actions = append(actions, call(id, "set_name", cppString(s.Name)))
	}
	actions = append(actions, call(id, "set_disabled_by_default", cppBool(s.DisabledByDefault)))
	if s.Icon != "" {
		actions = append(actions, call(id, "set_icon", cppString(s.Icon)))
	}
	if c, ok := entityCategories[s.EntityCategory]; ok {
		actions = append(actions, call(id, "set_entity_category", c))
	}
	if s.DeviceClass != "" {
		actions = append(actions, call(id, "set_device_class", cppString(s.DeviceClass)))
	}
	if c, ok := stateClasses[s.StateClass]; ok {
		actions = append(actions, call(id, "set_state_class", c))
	}
	if s.UnitOfMeasurement != "" {
		actions = append(actions, call(id, "set_unit_of_measurement", cppString(s.UnitOfMeasurement)))
	}
	actions = append(actions,
		call(id, "set_accuracy_decimals", cppInt(int64(s.AccuracyDecimals))),
		call(id, "set_force_update", cppBool(s.ForceUpdate)),
	)
	if s.Internal {
		actions = append(actions, call(id, "set_internal", cppBool(true)))
	}
	return actions
}

// Build emits every record of a document.
func Build(recs []*schema.Record) []Unit {
	units := make([]Unit, len(recs))
	for i, r := range recs {
		units[i] = Unit{Record: r, Actions: Emit(r)}
	}
	return units
}
