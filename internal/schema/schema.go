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
	"sort"

	"go.uber.org/multierr"
)

// Validator checks the raw value found at path and returns its normalised form.
type Validator func(path []string, v interface{}) (interface{}, error)

// Field describes one accepted key of a configuration mapping.
type Field struct {
	Key      string
	Required bool
	Default  interface{}
	Check    Validator
}

func Required(key string, check Validator) Field {
	return Field{Key: key, Required: true, Check: check}
}

func Optional(key string, check Validator) Field {
	return Field{Key: key, Check: check}
}

// OptionalDefault declares an optional key whose default goes through check like user input does.
func OptionalDefault(key string, def interface{}, check Validator) Field {
	return Field{Key: key, Default: def, Check: check}
}

// Schema is an ordered table of field descriptors.
type Schema struct {
	fields []Field
}

func New(fields ...Field) *Schema {
	return &Schema{fields: fields}
}

// Extend returns a new schema holding the fields of s followed by those of others.
// A later field replaces an earlier one with the same key, in place.
func (s *Schema) Extend(others ...*Schema) *Schema {
	out := &Schema{fields: append([]Field(nil), s.fields...)}
	for _, o := range others {
		for _, f := range o.fields {
			replaced := false
			for i := range out.fields {
				if out.fields[i].Key == f.Key {
					out.fields[i] = f
					replaced = true
					break
				}
			}
			if !replaced {
				out.fields = append(out.fields, f)
			}
		}
	}
	return out
}

func (s *Schema) field(key string) (Field, bool) {
	for _, f := range s.fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

func (s *Schema) Keys() []string {
	keys := make([]string, len(s.fields))
	for i, f := range s.fields {
		keys[i] = f.Key
	}
	return keys
}

// Validate checks raw against the schema and returns a new mapping holding the
// normalised value of every present or defaulted key. Every failure found is
// reported, combined with multierr.
func (s *Schema) Validate(path []string, raw map[string]interface{}) (map[string]interface{}, error) {
	var errs error
	out := make(map[string]interface{}, len(s.fields))

	extra := make([]string, 0)
	for k := range raw {
		if _, ok := s.field(k); !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		errs = multierr.Append(errs, newError(sub(path, k), "extra keys not allowed"))
	}

	for _, f := range s.fields {
		p := sub(path, f.Key)
		v, present := raw[f.Key]
		if !present {
			if f.Required {
				errs = multierr.Append(errs, newError(p, "required key not provided"))
				continue
			}
			if f.Default == nil {
				continue
			}
			v = f.Default
		}
		if f.Check == nil {
			out[f.Key] = v
			continue
		}
		nv, err := f.Check(p, v)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		out[f.Key] = nv
	}

	if errs != nil {
		return nil, errs
	}
	return out, nil
}

// Nested validates a sub-mapping with s. An empty YAML value counts as an empty mapping.
func Nested(s *Schema) Validator {
	return func(path []string, v interface{}) (interface{}, error) {
		if v == nil {
			return s.Validate(path, map[string]interface{}{})
		}
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, newError(path, "expected a dictionary")
		}
		return s.Validate(path, m)
	}
}
