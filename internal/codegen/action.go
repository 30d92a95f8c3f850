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
	"strings"
)

// Kind selects the statement an Action renders to.
type Kind int

const (
	// KindNew constructs Class and stores the pointer in the global Var.
	KindNew Kind = iota
	KindRegisterComponent
	KindRegisterSensor
	// KindCall invokes Method on Var with the pre-rendered Args.
	KindCall
)

func (k Kind) String() string {
	switch k {
	case KindNew:
		return "new"
	case KindRegisterComponent:
		return "register_component"
	case KindRegisterSensor:
		return "register_sensor"
	case KindCall:
		return "call"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Action is one construction or method-invocation directive.
type Action struct {
	Kind   Kind
	Var    string
	Class  string
	Method string
	Args   []string
}

// Statement renders a as a single C++ statement.
func (a Action) Statement() string {
	switch a.Kind {
	case KindNew:
		return fmt.Sprintf("%s = new %s();", a.Var, a.Class)
	case KindRegisterComponent:
		return fmt.Sprintf("App.register_component(%s);", a.Var)
	case KindRegisterSensor:
		return fmt.Sprintf("App.register_sensor(%s);", a.Var)
	case KindCall:
		return fmt.Sprintf("%s->%s(%s);", a.Var, a.Method, strings.Join(a.Args, ", "))
	}
	return fmt.Sprintf("// unknown action %v", a.Kind)
}

func newObject(v, class string) Action {
	return Action{Kind: KindNew, Var: v, Class: class}
}

func call(v, method string, args ...string) Action {
	return Action{Kind: KindCall, Var: v, Method: method, Args: args}
}
