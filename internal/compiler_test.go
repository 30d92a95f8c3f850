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

package internal

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	qt "github.com/frankban/quicktest"
	"gopkg.in/yaml.v3"

	"github.com/antst/ism330gen/internal/config"
	"github.com/antst/ism330gen/internal/db"
	"github.com/antst/ism330gen/internal/safe_mqtt"
	"github.com/antst/ism330gen/internal/schema"
)

const levelConfig = `
i2c:
  id: bus_a
sensor:
  - platform: ism330dlc_level
    id: level
    address: 0x6B
    accel_x:
      id: ax
      name: Accel X
    accel_z:
      id: az
      name: Accel Z
`

type memStore struct {
	builds []db.Build
}

func (m *memStore) InsertBuild(_ context.Context, b db.Build) error {
	m.builds = append(m.builds, b)
	return nil
}

func (m *memStore) LastBuild(_ context.Context, output string) (db.Build, error) {
	for i := len(m.builds) - 1; i >= 0; i-- {
		if m.builds[i].Output == output {
			return m.builds[i], nil
		}
	}
	return db.Build{}, sql.ErrNoRows
}

func (m *memStore) ListBuilds(_ context.Context, limit int) ([]db.Build, error) {
	var out []db.Build
	for i := len(m.builds) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.builds[i])
	}
	return out, nil
}

type doneToken struct {
	err error
}

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Error() error                   { return t.err }
func (t *doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeMQTT struct {
	messages []published
}

func (f *fakeMQTT) SafePublish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	f.messages = append(f.messages, published{topic: topic, retained: retained, payload: payload.([]byte)})
	return &doneToken{}
}

func (f *fakeMQTT) Close() {}

func newTestCompiler(c *qt.C, cfg *config.Config, store BuildStore, client *fakeMQTT) *Compiler {
	cfg.FillDefaults()
	var mc safe_mqtt.MqttClient
	if client != nil {
		mc = client
	}
	comp := NewCompiler(cfg, store, mc)
	comp.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	n := 0
	comp.newID = func() string {
		n++
		return "build-" + string(rune('0'+n))
	}
	return comp
}

func writeInput(c *qt.C, dir, body string) string {
	path := filepath.Join(dir, "level.yaml")
	c.Assert(os.WriteFile(path, []byte(body), 0o644), qt.IsNil)
	return path
}

func TestCompileToFile(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()

	store := &memStore{}
	client := &fakeMQTT{}
	cfg := &config.Config{
		Input:  writeInput(c, dir, levelConfig),
		Output: filepath.Join(dir, "gen", "level.cpp"),
		Mode:   config.ModeCompile,
	}
	comp := newTestCompiler(c, cfg, store, client)

	res, err := comp.Run(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(res.Skipped, qt.IsFalse)
	c.Assert(res.BuildID, qt.Equals, "build-1")
	c.Assert(res.Units, qt.HasLen, 1)

	src, err := os.ReadFile(cfg.Output)
	c.Assert(err, qt.IsNil)
	c.Assert(strings.Contains(string(src), "  level->set_accel_x(ax);\n"), qt.IsTrue)
	c.Assert(strings.Contains(string(src), "  level->set_accel_z(az);\n"), qt.IsTrue)
	c.Assert(strings.Contains(string(src), "set_accel_y"), qt.IsFalse)
	c.Assert(strings.Contains(string(src), "  level->set_i2c_bus(bus_a);\n"), qt.IsTrue)
	c.Assert(hashSource(src), qt.Equals, res.SourceHash)

	c.Assert(store.builds, qt.HasLen, 1)
	c.Assert(store.builds[0].Components, qt.Equals, "level")
	c.Assert(store.builds[0].SourceHash, qt.Equals, res.SourceHash)
	c.Assert(store.builds[0].Actions, qt.Equals, len(res.Units[0].Actions))

	c.Assert(client.messages, qt.HasLen, 1)
	c.Assert(client.messages[0].topic, qt.Equals, "ism330gen/builds/level")
	c.Assert(client.messages[0].retained, qt.IsTrue)
	var report map[string]interface{}
	c.Assert(json.Unmarshal(client.messages[0].payload, &report), qt.IsNil)
	c.Assert(report["address"], qt.Equals, "0x6B")
	c.Assert(report["axes"], qt.DeepEquals, []interface{}{"x", "z"})
	c.Assert(report["build_id"], qt.Equals, "build-1")

	// Same input again: the output is left alone.
	res, err = comp.Run(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(res.Skipped, qt.IsTrue)
	c.Assert(store.builds, qt.HasLen, 1)
	c.Assert(client.messages, qt.HasLen, 1)

	// Forced builds always write.
	cfg.Force = true
	res, err = comp.Run(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(res.Skipped, qt.IsFalse)
	c.Assert(store.builds, qt.HasLen, 2)
}

func TestCompileRewritesEditedOutput(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()

	cfg := &config.Config{
		Input:  writeInput(c, dir, levelConfig),
		Output: filepath.Join(dir, "level.cpp"),
	}
	comp := newTestCompiler(c, cfg, nil, nil)

	_, err := comp.Run(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(os.WriteFile(cfg.Output, []byte("// edited\n"), 0o644), qt.IsNil)

	res, err := comp.Run(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(res.Skipped, qt.IsFalse)
	src, err := os.ReadFile(cfg.Output)
	c.Assert(err, qt.IsNil)
	c.Assert(hashSource(src), qt.Equals, res.SourceHash)

	res, err = comp.Run(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(res.Skipped, qt.IsTrue)
}

func TestCompileStdStreams(t *testing.T) {
	c := qt.New(t)

	cfg := &config.Config{Input: config.StdStream, Output: config.StdStream}
	comp := newTestCompiler(c, cfg, &memStore{}, nil)
	var out bytes.Buffer
	comp.stdin = strings.NewReader("accel_y:\n  name: Y\n")
	comp.stdout = &out

	res, err := comp.Run(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(res.Document.Bare, qt.IsTrue)
	c.Assert(strings.Contains(out.String(), "set_accel_y(sensor_sensor_id);"), qt.IsTrue)
	c.Assert(strings.Contains(out.String(), "set_i2c_bus(i2c_bus);"), qt.IsTrue)
}

func TestValidateMode(t *testing.T) {
	c := qt.New(t)

	cfg := &config.Config{Input: config.StdStream, Output: config.StdStream, Mode: config.ModeValidate}
	comp := newTestCompiler(c, cfg, nil, nil)
	var out bytes.Buffer
	comp.stdin = strings.NewReader("address: 0x6B\n")
	comp.stdout = &out

	res, err := comp.Run(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(res.Document.Records[0].Address, qt.Equals, uint8(0x6B))
	c.Assert(out.Len(), qt.Equals, 0)
}

func TestConfigMode(t *testing.T) {
	c := qt.New(t)

	cfg := &config.Config{Input: config.StdStream, Output: config.StdStream, Mode: config.ModeConfig}
	comp := newTestCompiler(c, cfg, nil, nil)
	var out bytes.Buffer
	comp.stdin = strings.NewReader(levelConfig)
	comp.stdout = &out

	first, err := comp.Run(context.Background())
	c.Assert(err, qt.IsNil)

	var raw map[string]interface{}
	c.Assert(yaml.Unmarshal(out.Bytes(), &raw), qt.IsNil)
	again, err := schema.ValidateDocument(raw)
	c.Assert(err, qt.IsNil)
	c.Assert(again, qt.DeepEquals, first.Document)
}

func TestCompileInvalidConfig(t *testing.T) {
	c := qt.New(t)

	for _, tc := range []struct {
		name  string
		input string
		paths []string
	}{
		{"bad address", "address: 0x90\nupdate_interval: 10\n", []string{"address", "update_interval"}},
		{"not a mapping", "- 1\n- 2\n", []string{""}},
	} {
		c.Run(tc.name, func(c *qt.C) {
			cfg := &config.Config{Input: config.StdStream, Output: config.StdStream}
			store := &memStore{}
			comp := newTestCompiler(c, cfg, store, nil)
			var out bytes.Buffer
			comp.stdin = strings.NewReader(tc.input)
			comp.stdout = &out

			_, err := comp.Run(context.Background())
			verrs := schema.ValidationErrors(err)
			c.Assert(verrs, qt.HasLen, len(tc.paths))
			for i, ve := range verrs {
				c.Assert(strings.Join(ve.Path, "."), qt.Equals, tc.paths[i])
			}
			c.Assert(out.Len(), qt.Equals, 0)
			c.Assert(store.builds, qt.HasLen, 0)
		})
	}
}

func TestCompileMissingInput(t *testing.T) {
	c := qt.New(t)

	cfg := &config.Config{Input: filepath.Join(c.TempDir(), "nope.yaml")}
	_, err := newTestCompiler(c, cfg, nil, nil).Run(context.Background())
	c.Assert(err, qt.ErrorMatches, "failed to read configuration: .*")
	c.Assert(schema.ValidationErrors(err), qt.HasLen, 0)
}

func TestHistoryMode(t *testing.T) {
	c := qt.New(t)

	store := &memStore{builds: []db.Build{
		{BuildID: "old", Output: "a.cpp", Components: "level_a", Actions: 7, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{BuildID: "new", Output: "b.cpp", Components: "level_b", Actions: 19, CreatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
	}}
	comp := newTestCompiler(c, &config.Config{Mode: config.ModeHistory}, store, nil)
	var out bytes.Buffer
	comp.stdout = &out

	res, err := comp.Run(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(res.History, qt.HasLen, 2)
	c.Assert(res.History[0].BuildID, qt.Equals, "new")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	c.Assert(lines, qt.HasLen, 3)
	c.Assert(lines[0], qt.Matches, `BUILD\s+TIME\s+OUTPUT\s+COMPONENTS\s+ACTIONS`)
	c.Assert(lines[1], qt.Matches, `new\s+.*\s+b\.cpp\s+level_b\s+19`)

	_, err = newTestCompiler(c, &config.Config{Mode: config.ModeHistory}, nil, nil).Run(context.Background())
	c.Assert(err, qt.ErrorMatches, "build history is disabled")
}
