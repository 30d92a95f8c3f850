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
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// SetupFunction is the name of the generated function the firmware's setup calls.
const SetupFunction = "setup_" + Namespace

var includes = []string{
	"esphome/core/application.h",
	"esphome/components/i2c/i2c.h",
	"esphome/components/sensor/sensor.h",
	"esphome/components/" + Namespace + "/" + Namespace + ".h",
}

// Render writes a C++ source file declaring one global pointer per
// constructed object and a setup function holding every unit's statements.
func Render(w io.Writer, units []Unit) error {
	var b strings.Builder

	b.WriteString("// Auto generated code by ism330gen. Do not edit.\n")
	for _, inc := range includes {
		fmt.Fprintf(&b, "#include %q\n", inc)
	}
	b.WriteString("\nusing namespace esphome;\n\n")

	for _, u := range units {
		for _, a := range u.Actions {
			if a.Kind == KindNew {
				fmt.Fprintf(&b, "%s *%s;\n", a.Class, a.Var)
			}
		}
	}

	fmt.Fprintf(&b, "\nvoid %s() {\n", SetupFunction)
	for i, u := range units {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "  // %s: %s (address %s)\n", Namespace, u.Record.ID, cppHex8(u.Record.Address))
		for _, a := range u.Actions {
			b.WriteString("  ")
			b.WriteString(a.Statement())
			b.WriteByte('\n')
		}
	}
	b.WriteString("}\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return errors.Wrap(err, "failed to write generated code")
	}
	return nil
}
