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

import (
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

const (
	componentIDBase = "ism330dlc_level_ism330dlclevelcomponent_id"
	sensorIDBase    = "sensor_sensor_id"
	i2cBusIDBase    = "i2c_i2cbus_id"
)

// idAllocator tracks the IDs declared in one configuration and hands out
// generated ones that do not collide with them.
type idAllocator struct {
	declared map[string]string
}

func newIDAllocator() *idAllocator {
	return &idAllocator{declared: make(map[string]string)}
}

func (a *idAllocator) declare(path []string, id string) error {
	if prev, ok := a.declared[id]; ok {
		return newError(path, "ID '%s' redefined, it was first declared at %s", id, prev)
	}
	a.declared[id] = strings.Join(path, ".")
	return nil
}

func (a *idAllocator) generate(base string) string {
	id := base
	for n := 2; ; n++ {
		if _, ok := a.declared[id]; !ok {
			break
		}
		id = base + "_" + strconv.Itoa(n)
	}
	a.declared[id] = "(generated)"
	return id
}

func (a *idAllocator) declareRecord(path []string, r *Record) error {
	var errs error
	if r.ID != "" {
		errs = multierr.Append(errs, a.declare(sub(path, KeyID), r.ID))
	}
	for _, ax := range Axes {
		if s := r.Sensor(ax); s != nil && s.ID != "" {
			errs = multierr.Append(errs, a.declare(sub(sub(path, ax.Key()), KeyID), s.ID))
		}
	}
	return errs
}

func (a *idAllocator) fillRecord(r *Record) {
	if r.ID == "" {
		r.ID = a.generate(componentIDBase)
	}
	for _, ax := range Axes {
		if s := r.Sensor(ax); s != nil && s.ID == "" {
			s.ID = a.generate(sensorIDBase)
		}
	}
}
