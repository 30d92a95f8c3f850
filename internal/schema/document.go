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

	"go.uber.org/multierr"
)

const (
	KeyPlatform = "platform"
	KeySensor   = "sensor"
	KeyI2C      = "i2c"
)

// Document is a validated configuration file holding any number of components.
type Document struct {
	// Bare is set when the document was a single component block.
	Bare    bool
	Buses   []string
	Records []*Record
}

// Map returns d in the raw form ValidateDocument accepts.
func (d *Document) Map() map[string]interface{} {
	if d.Bare && len(d.Records) == 1 {
		return d.Records[0].Map()
	}
	buses := make([]interface{}, len(d.Buses))
	for i, b := range d.Buses {
		buses[i] = map[string]interface{}{KeyID: b}
	}
	sensors := make([]interface{}, len(d.Records))
	for i, r := range d.Records {
		m := r.Map()
		m[KeyPlatform] = Platform
		sensors[i] = m
	}
	return map[string]interface{}{KeyI2C: buses, KeySensor: sensors}
}

// ValidateDocument validates either a firmware configuration with "i2c" and
// "sensor" sections, compiling every sensor entry of the ism330dlc_level
// platform, or a bare component block when there is no "sensor" section.
func ValidateDocument(doc map[string]interface{}) (*Document, error) {
	rawSensors, full := doc[KeySensor]
	if !full {
		if doc[KeyPlatform] == Platform {
			doc = withoutPlatform(doc)
		}
		rec, err := Validate(doc)
		if err != nil {
			return nil, err
		}
		return &Document{Bare: true, Records: []*Record{rec}}, nil
	}

	entries, ok := rawSensors.([]interface{})
	if !ok {
		return nil, newError([]string{KeySensor}, "expected a list of sensor platforms")
	}

	var errs error
	var paths, otherPaths [][]string
	var recs []*Record
	var otherIDs []string
	for i, e := range entries {
		p := []string{KeySensor, strconv.Itoa(i)}
		m, ok := e.(map[string]interface{})
		if !ok {
			errs = multierr.Append(errs, newError(p, "expected a dictionary"))
			continue
		}
		if m[KeyPlatform] != Platform {
			if id, ok := m[KeyID].(string); ok && id != "" {
				otherPaths = append(otherPaths, sub(p, KeyID))
				otherIDs = append(otherIDs, id)
			}
			continue
		}
		rec, err := validateRecord(p, withoutPlatform(m))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		paths = append(paths, p)
		recs = append(recs, rec)
	}
	if errs != nil {
		return nil, errs
	}

	d := &Document{Records: recs}
	if len(recs) == 0 {
		return d, nil
	}

	ids := newIDAllocator()
	buses, err := declareBuses(doc[KeyI2C], ids)
	if err != nil {
		return nil, err
	}
	for i, id := range otherIDs {
		errs = multierr.Append(errs, ids.declare(otherPaths[i], id))
	}
	for i, rec := range recs {
		errs = multierr.Append(errs, ids.declareRecord(paths[i], rec))
	}
	if errs != nil {
		return nil, errs
	}

	for i := range buses {
		if buses[i] == "" {
			buses[i] = ids.generate(i2cBusIDBase)
		}
	}
	d.Buses = buses

	for i, rec := range recs {
		errs = multierr.Append(errs, resolveBus(paths[i], rec, buses))
	}
	if errs != nil {
		return nil, errs
	}
	for _, rec := range recs {
		ids.fillRecord(rec)
	}
	return d, nil
}

// declareBuses reads the bus IDs of the "i2c" section, which may be a single
// bus or a list. Buses without an ID come back as empty strings.
func declareBuses(raw interface{}, ids *idAllocator) ([]string, error) {
	path := []string{KeyI2C}
	missing := newError(path, "component %s.%s requires component i2c", Platform, KeySensor)

	var items []interface{}
	_, isList := raw.([]interface{})
	switch t := raw.(type) {
	case nil:
		return nil, missing
	case map[string]interface{}:
		items = []interface{}{t}
	case []interface{}:
		items = t
	default:
		return nil, newError(path, "expected a dictionary or a list of dictionaries")
	}
	if len(items) == 0 {
		return nil, missing
	}

	var errs error
	buses := make([]string, 0, len(items))
	for i, it := range items {
		p := path
		if isList {
			p = sub(path, strconv.Itoa(i))
		}
		m, ok := it.(map[string]interface{})
		if !ok && it != nil {
			errs = multierr.Append(errs, newError(p, "expected a dictionary"))
			continue
		}
		v, has := m[KeyID]
		if !has {
			buses = append(buses, "")
			continue
		}
		id, err := IDName(sub(p, KeyID), v)
		if err == nil {
			err = ids.declare(sub(p, KeyID), id.(string))
		}
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		buses = append(buses, id.(string))
	}
	if errs != nil {
		return nil, errs
	}
	return buses, nil
}

func resolveBus(path []string, rec *Record, buses []string) error {
	if rec.I2CBusID == "" {
		if len(buses) > 1 {
			return newError(sub(path, KeyI2CID), "too many I2C buses declared, please specify which one to use")
		}
		rec.I2CBusID = buses[0]
		return nil
	}
	for _, b := range buses {
		if b == rec.I2CBusID {
			return nil
		}
	}
	return newError(sub(path, KeyI2CID), "couldn't find ID '%s', please check you have defined an I2C bus with that name", rec.I2CBusID)
}

func withoutPlatform(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if k != KeyPlatform {
			out[k] = v
		}
	}
	return out
}
