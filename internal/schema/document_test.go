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
	"testing"

	qt "github.com/frankban/quicktest"
	"gopkg.in/yaml.v3"
)

func parse(c *qt.C, src string) map[string]interface{} {
	var raw map[string]interface{}
	c.Assert(yaml.Unmarshal([]byte(src), &raw), qt.IsNil)
	return raw
}

const firmwareConfig = `
esphome:
  name: level
i2c:
  sda: 21
  scl: 22
  id: bus_a
sensor:
  - platform: dht
    pin: 4
  - platform: ism330dlc_level
    address: 0x6B
    accel_x:
      name: "Accel X"
  - platform: ism330dlc_level
    id: second
    update_interval: 1s
`

func TestValidateDocumentFirmwareConfig(t *testing.T) {
	c := qt.New(t)

	doc, err := ValidateDocument(parse(c, firmwareConfig))
	c.Assert(err, qt.IsNil)
	c.Assert(doc.Bare, qt.IsFalse)
	c.Assert(doc.Buses, qt.DeepEquals, []string{"bus_a"})
	c.Assert(doc.Records, qt.HasLen, 2)

	first, second := doc.Records[0], doc.Records[1]
	c.Assert(first.ID, qt.Equals, componentIDBase)
	c.Assert(first.Address, qt.Equals, uint8(0x6B))
	c.Assert(first.I2CBusID, qt.Equals, "bus_a")
	c.Assert(first.AccelX.Name, qt.Equals, "Accel X")
	c.Assert(second.ID, qt.Equals, "second")
	c.Assert(second.I2CBusID, qt.Equals, "bus_a")
}

func TestValidateDocumentBareBlock(t *testing.T) {
	c := qt.New(t)

	doc, err := ValidateDocument(parse(c, "platform: ism330dlc_level\naccel_z: {}\n"))
	c.Assert(err, qt.IsNil)
	c.Assert(doc.Bare, qt.IsTrue)
	c.Assert(doc.Records, qt.HasLen, 1)
	c.Assert(doc.Records[0].I2CBusID, qt.Equals, DefaultI2CBus)
	c.Assert(doc.Records[0].AccelZ, qt.IsNotNil)
}

func TestValidateDocumentErrors(t *testing.T) {
	c := qt.New(t)

	for _, tc := range []struct {
		name string
		src  string
		err  string
	}{{
		name: "missing i2c",
		src:  "sensor:\n  - platform: ism330dlc_level\n",
		err:  "i2c: component ism330dlc_level.sensor requires component i2c",
	}, {
		name: "unknown bus",
		src:  "i2c:\n  id: bus_a\nsensor:\n  - platform: ism330dlc_level\n    i2c_id: bus_b\n",
		err:  "sensor.0.i2c_id: couldn't find ID 'bus_b'.*",
	}, {
		name: "ambiguous bus",
		src:  "i2c:\n  - id: bus_a\n  - id: bus_b\nsensor:\n  - platform: ism330dlc_level\n",
		err:  "sensor.0.i2c_id: too many I2C buses declared.*",
	}, {
		name: "duplicate across components",
		src:  "i2c: {}\nsensor:\n  - platform: ism330dlc_level\n    id: lvl\n  - platform: ism330dlc_level\n    accel_x:\n      id: lvl\n",
		err:  "sensor.1.accel_x.id: ID 'lvl' redefined, it was first declared at sensor.0.id",
	}, {
		name: "sensor not a list",
		src:  "sensor:\n  platform: ism330dlc_level\n",
		err:  "sensor: expected a list of sensor platforms",
	}, {
		name: "invalid entry",
		src:  "i2c: {}\nsensor:\n  - platform: ism330dlc_level\n    address: 300\n",
		err:  "sensor.0.address: I2C address must be in range .*",
	}} {
		c.Run(tc.name, func(c *qt.C) {
			_, err := ValidateDocument(parse(c, tc.src))
			c.Assert(err, qt.ErrorMatches, tc.err)
		})
	}
}

func TestValidateDocumentGeneratesBusID(t *testing.T) {
	c := qt.New(t)

	doc, err := ValidateDocument(parse(c, "i2c:\n  sda: 1\nsensor:\n  - platform: ism330dlc_level\n"))
	c.Assert(err, qt.IsNil)
	c.Assert(doc.Buses, qt.DeepEquals, []string{i2cBusIDBase})
	c.Assert(doc.Records[0].I2CBusID, qt.Equals, i2cBusIDBase)
}

func TestValidateDocumentOtherPlatformIDs(t *testing.T) {
	c := qt.New(t)

	src := "i2c: {}\nsensor:\n  - platform: dht\n    id: sensor_sensor_id\n  - platform: ism330dlc_level\n    accel_x: {}\n"
	doc, err := ValidateDocument(parse(c, src))
	c.Assert(err, qt.IsNil)
	c.Assert(doc.Records[0].AccelX.ID, qt.Equals, sensorIDBase+"_2")

	src = "i2c: {}\nsensor:\n  - platform: dht\n    id: lvl\n  - platform: ism330dlc_level\n    id: lvl\n"
	_, err = ValidateDocument(parse(c, src))
	c.Assert(err, qt.ErrorMatches, "sensor.1.id: ID 'lvl' redefined, it was first declared at sensor.0.id")
}

func TestValidateDocumentWithoutComponents(t *testing.T) {
	c := qt.New(t)

	doc, err := ValidateDocument(parse(c, "sensor:\n  - platform: dht\n"))
	c.Assert(err, qt.IsNil)
	c.Assert(doc.Records, qt.HasLen, 0)
}

func TestValidateDocumentIdempotent(t *testing.T) {
	c := qt.New(t)

	first, err := ValidateDocument(parse(c, firmwareConfig))
	c.Assert(err, qt.IsNil)

	// Round trip through YAML the way the config dump does.
	out, err := yaml.Marshal(first.Map())
	c.Assert(err, qt.IsNil)
	second, err := ValidateDocument(parse(c, string(out)))
	c.Assert(err, qt.IsNil)
	c.Assert(second, qt.DeepEquals, first)
}
