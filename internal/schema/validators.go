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
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// Never is the update interval that keeps the scheduler from running a component's update.
	Never = time.Duration(math.MaxUint32) * time.Millisecond

	neverKeyword = "never"
)

var (
	idRegex        = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	iconRegex      = regexp.MustCompile(`^[\w\-]+:[\w\-]+$`)
	classRegex     = regexp.MustCompile(`^[a-z0-9_]+$`)
	periodRegex    = regexp.MustCompile(`^([-+]?[0-9]*\.?[0-9]+)\s*([a-zA-Zµ]*)$`)
	colonTimeRegex = regexp.MustCompile(`^([0-9]+):([0-9]{2})(?::([0-9]{2}))?$`)

	timeUnits = map[string]time.Duration{
		"us": time.Microsecond, "µs": time.Microsecond, "microseconds": time.Microsecond,
		"ms": time.Millisecond, "milliseconds": time.Millisecond,
		"s": time.Second, "sec": time.Second, "seconds": time.Second,
		"min": time.Minute, "minutes": time.Minute,
		"h": time.Hour, "hours": time.Hour,
		"d": 24 * time.Hour, "days": 24 * time.Hour,
	}

	// Identifiers the generated C++ cannot use as variable names.
	reservedIDs = map[string]bool{
		"alignas": true, "alignof": true, "and": true, "asm": true, "auto": true, "bool": true,
		"break": true, "case": true, "catch": true, "char": true, "class": true, "const": true,
		"constexpr": true, "continue": true, "default": true, "delete": true, "do": true,
		"double": true, "else": true, "enum": true, "explicit": true, "extern": true, "false": true,
		"float": true, "for": true, "friend": true, "goto": true, "if": true, "inline": true,
		"int": true, "long": true, "namespace": true, "new": true, "not": true, "nullptr": true,
		"operator": true, "or": true, "private": true, "protected": true, "public": true,
		"register": true, "return": true, "short": true, "signed": true, "sizeof": true,
		"static": true, "struct": true, "switch": true, "template": true, "this": true,
		"throw": true, "true": true, "try": true, "typedef": true, "union": true,
		"unsigned": true, "using": true, "virtual": true, "void": true, "volatile": true,
		"while": true, "App": true, "setup": true, "loop": true, "esphome": true,
	}
)

func String(path []string, v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case int, int64, uint64, float64:
		return fmt.Sprint(t), nil
	case bool:
		return nil, newError(path, "auto-converted this value to boolean, please wrap it in quotes")
	case nil:
		return nil, newError(path, "string value cannot be empty")
	}
	return nil, newError(path, "expected a string, got %T", v)
}

func Boolean(path []string, v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "on", "enable":
			return true, nil
		case "false", "no", "off", "disable":
			return false, nil
		}
	}
	return nil, newError(path, "expected boolean value, got '%v'", v)
}

func toInt(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int64:
		return t, true
	case uint64:
		if t > math.MaxInt64 {
			return 0, false
		}
		return int64(t), true
	case float64:
		if t != math.Trunc(t) || math.Abs(t) >= math.MaxInt64 {
			return 0, false
		}
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 0, 64)
		return n, err == nil
	}
	return 0, false
}

// IntRange accepts integers, including hex strings, within [min, max].
func IntRange(min, max int) Validator {
	return func(path []string, v interface{}) (interface{}, error) {
		n, ok := toInt(v)
		if !ok {
			return nil, newError(path, "expected integer, got '%v'", v)
		}
		if n < int64(min) || n > int64(max) {
			return nil, newError(path, "value must be in range %d to %d, got %d", min, max, n)
		}
		return int(n), nil
	}
}

// I2CAddress accepts a 7-bit bus address.
func I2CAddress(path []string, v interface{}) (interface{}, error) {
	n, ok := toInt(v)
	if !ok {
		return nil, newError(path, "expected I2C address, got '%v'", v)
	}
	if n < 0 || n > 0x7F {
		return nil, newError(path, "I2C address must be in range 0x00 to 0x7F, got 0x%X", n)
	}
	return int(n), nil
}

// OneOf accepts one of opts, compared in lower case with spaces as underscores.
func OneOf(opts ...string) Validator {
	return func(path []string, v interface{}) (interface{}, error) {
		s, err := String(path, v)
		if err != nil {
			return nil, err
		}
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s.(string))), " ", "_")
		for _, o := range opts {
			if key == o {
				return o, nil
			}
		}
		return nil, newError(path, "unknown value '%v', valid options are '%s'", v, strings.Join(opts, "', '"))
	}
}

// IDName accepts a name usable as a C++ variable.
func IDName(path []string, v interface{}) (interface{}, error) {
	s, ok := v.(string)
	if !ok {
		return nil, newError(path, "ID must be a string, got '%v'", v)
	}
	if !idRegex.MatchString(s) {
		return nil, newError(path, "ID '%s' must start with a letter or underscore and contain only letters, digits and underscores", s)
	}
	if reservedIDs[s] {
		return nil, newError(path, "ID '%s' is reserved, please choose another name", s)
	}
	return s, nil
}

// Icon accepts "[icon pack]:[icon]" or an empty string.
func Icon(path []string, v interface{}) (interface{}, error) {
	s, err := String(path, v)
	if err != nil {
		return nil, err
	}
	if s == "" || iconRegex.MatchString(s.(string)) {
		return s, nil
	}
	return nil, newError(path, "icons must match the format \"[icon pack]:[icon]\", e.g. \"mdi:home-assistant\"")
}

// DeviceClass accepts a lower case class name or an empty string.
func DeviceClass(path []string, v interface{}) (interface{}, error) {
	s, err := String(path, v)
	if err != nil {
		return nil, err
	}
	if s == "" || classRegex.MatchString(s.(string)) {
		return s, nil
	}
	return nil, newError(path, "invalid device class '%v'", v)
}

// TimePeriod parses "<number><unit>" or "HH:MM[:SS]" into a non-negative duration.
func TimePeriod(path []string, v interface{}) (interface{}, error) {
	var s string
	switch t := v.(type) {
	case int, int64, uint64, float64:
		if n, ok := toInt(t); ok && n == 0 {
			return time.Duration(0), nil
		}
		return nil, newError(path, "don't know what '%v' means as it has no time unit, did you mean '%vs'?", t, t)
	case string:
		s = strings.TrimSpace(t)
	default:
		return nil, newError(path, "expected time period, got '%v'", v)
	}

	if m := colonTimeRegex.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		sec := 0
		if m[3] != "" {
			sec, _ = strconv.Atoi(m[3])
		}
		return time.Duration(h)*time.Hour + time.Duration(mi)*time.Minute + time.Duration(sec)*time.Second, nil
	}

	m := periodRegex.FindStringSubmatch(s)
	if m == nil {
		return nil, newError(path, "expected time period with unit, got '%s'", s)
	}
	num, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, newError(path, "invalid number '%s'", m[1])
	}
	if num < 0 {
		return nil, newError(path, "time period must not be negative, got '%s'", s)
	}
	if m[2] == "" {
		if num == 0 {
			return time.Duration(0), nil
		}
		return nil, newError(path, "don't know what '%s' means as it has no time unit, did you mean '%ss'?", s, s)
	}
	unit, ok := timeUnits[m[2]]
	if !ok {
		return nil, newError(path, "invalid time unit '%s'", m[2])
	}
	d := num * float64(unit)
	if d > math.MaxInt64 {
		return nil, newError(path, "time period '%s' is too long", s)
	}
	return time.Duration(math.Round(d)), nil
}

// MillisecondPeriod is a TimePeriod with millisecond precision that fits the firmware's 32-bit counter.
func MillisecondPeriod(path []string, v interface{}) (interface{}, error) {
	d, err := TimePeriod(path, v)
	if err != nil {
		return nil, err
	}
	dur := d.(time.Duration)
	if dur%time.Millisecond != 0 {
		return nil, newError(path, "maximum precision is milliseconds, got '%v'", v)
	}
	if dur >= Never {
		return nil, newError(path, "time period '%v' is too long, use '%s' instead", v, neverKeyword)
	}
	return dur, nil
}

// UpdateInterval is a positive MillisecondPeriod or "never".
func UpdateInterval(path []string, v interface{}) (interface{}, error) {
	if s, ok := v.(string); ok && strings.EqualFold(strings.TrimSpace(s), neverKeyword) {
		return Never, nil
	}
	d, err := MillisecondPeriod(path, v)
	if err != nil {
		return nil, err
	}
	if d.(time.Duration) == 0 {
		return nil, newError(path, "update interval must be positive, use '%s' to disable updates", neverKeyword)
	}
	return d, nil
}

// FormatInterval renders d the way UpdateInterval reads it back.
func FormatInterval(d time.Duration) string {
	if d == Never {
		return neverKeyword
	}
	return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
}
