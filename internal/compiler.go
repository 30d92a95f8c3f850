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
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/antst/ism330gen/internal/codegen"
	"github.com/antst/ism330gen/internal/config"
	"github.com/antst/ism330gen/internal/db"
	"github.com/antst/ism330gen/internal/logger"
	"github.com/antst/ism330gen/internal/safe_mqtt"
	"github.com/antst/ism330gen/internal/schema"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	mqttQoS        = 1
	publishTimeout = 5 * time.Second
	historyLimit   = 20
)

// BuildStore keeps the history of written builds.
type BuildStore interface {
	InsertBuild(ctx context.Context, b db.Build) error
	LastBuild(ctx context.Context, output string) (db.Build, error)
	ListBuilds(ctx context.Context, limit int) ([]db.Build, error)
}

type Compiler struct {
	cfg     *config.Config
	queries BuildStore
	mqtt    safe_mqtt.MqttClient
	stdin   io.Reader
	stdout  io.Writer
	now     func() time.Time
	newID   func() string
}

// Result describes one compiler run.
type Result struct {
	BuildID    string
	Document   *schema.Document
	Units      []codegen.Unit
	SourceHash string
	// Skipped is set when the output already held the generated code.
	Skipped bool
	History []db.Build
}

// NewCompiler builds a compiler. The store and the MQTT client are optional.
func NewCompiler(_cfg *config.Config, _store BuildStore, _mqtt safe_mqtt.MqttClient) *Compiler {
	return &Compiler{
		cfg:     _cfg,
		queries: _store,
		mqtt:    _mqtt,
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (c *Compiler) Run(ctx context.Context) (*Result, error) {
	if c.cfg.Mode == config.ModeHistory {
		return c.history(ctx)
	}

	doc, err := c.load()
	if err != nil {
		return nil, err
	}

	switch c.cfg.Mode {
	case config.ModeValidate:
		logger.L().Infof("Configuration `%v` is valid, %d component(s)", c.cfg.Input, len(doc.Records))
		return &Result{Document: doc}, nil
	case config.ModeConfig:
		return &Result{Document: doc}, c.dumpConfig(doc)
	}
	return c.compile(ctx, doc)
}

func (c *Compiler) readInput() ([]byte, error) {
	if c.cfg.Input == config.StdStream {
		data, err := io.ReadAll(c.stdin)
		return data, errors.Wrap(err, "failed to read configuration from stdin")
	}
	data, err := os.ReadFile(c.cfg.Input)
	return data, errors.Wrap(err, "failed to read configuration")
}

func (c *Compiler) load() (*schema.Document, error) {
	data, err := c.readInput()
	if err != nil {
		return nil, err
	}
	raw, err := parseYAML(data)
	if err != nil {
		return nil, err
	}
	doc, err := schema.ValidateDocument(raw)
	if err != nil {
		return nil, err
	}
	if len(doc.Records) == 0 {
		logger.L().Warnf("No %s components found in `%v`", schema.Platform, c.cfg.Input)
	}
	for _, r := range doc.Records {
		logger.L().Debugf(
			"Component %s: address 0x%02X, update interval %s, bus %s",
			r.ID, r.Address, schema.FormatInterval(r.UpdateInterval), r.I2CBusID,
		)
	}
	return doc, nil
}

func (c *Compiler) writeOutput(data []byte) error {
	if c.cfg.Output == config.StdStream {
		_, err := c.stdout.Write(data)
		return errors.Wrap(err, "failed to write to stdout")
	}
	return writeFile(c.cfg.Output, data)
}

func (c *Compiler) dumpConfig(doc *schema.Document) error {
	data, err := yaml.Marshal(doc.Map())
	if err != nil {
		return errors.Wrap(err, "failed to marshal validated configuration")
	}
	return c.writeOutput(data)
}

func (c *Compiler) history(ctx context.Context) (*Result, error) {
	if c.queries == nil {
		return nil, errors.New("build history is disabled")
	}
	builds, err := c.queries.ListBuilds(ctx, historyLimit)
	if err != nil {
		return nil, err
	}
	logger.Named("history").Debugf("%d build(s) found", len(builds))

	w := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BUILD\tTIME\tOUTPUT\tCOMPONENTS\tACTIONS")
	for _, b := range builds {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			b.BuildID, b.CreatedAt.Local().Format(time.DateTime), b.Output, b.Components, b.Actions)
	}
	if err := w.Flush(); err != nil {
		return nil, errors.Wrap(err, "failed to write build history")
	}
	return &Result{History: builds}, nil
}

func (c *Compiler) compile(ctx context.Context, doc *schema.Document) (*Result, error) {
	units := codegen.Build(doc.Records)

	var buf bytes.Buffer
	if err := codegen.Render(&buf, units); err != nil {
		return nil, err
	}

	res := &Result{
		BuildID:    c.newID(),
		Document:   doc,
		Units:      units,
		SourceHash: hashSource(buf.Bytes()),
	}

	if c.cfg.Output != config.StdStream && !c.cfg.Force && c.unchanged(ctx, res.SourceHash) {
		logger.L().Infof("Output `%v` is up to date, nothing to do", c.cfg.Output)
		res.Skipped = true
		return res, nil
	}

	if err := c.writeOutput(buf.Bytes()); err != nil {
		return nil, err
	}
	logger.L().Infof(
		"Build %s: %d action(s) for %d component(s) written to `%v`",
		res.BuildID, countActions(units), len(units), c.cfg.Output,
	)

	c.recordBuild(ctx, res)
	c.publishBuild(res)
	return res, nil
}

// unchanged reports whether the output file holds exactly the code of our last build.
func (c *Compiler) unchanged(ctx context.Context, hash string) bool {
	if fileHash(c.cfg.Output) != hash {
		return false
	}
	if c.queries == nil {
		return true
	}
	last, err := c.queries.LastBuild(ctx, c.cfg.Output)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.L().Warnf("Cannot read build history: %v", err)
		}
		return false
	}
	return last.SourceHash == hash
}

func (c *Compiler) recordBuild(ctx context.Context, res *Result) {
	if c.queries == nil {
		return
	}
	err := c.queries.InsertBuild(ctx, db.Build{
		BuildID:    res.BuildID,
		Output:     c.cfg.Output,
		SourceHash: res.SourceHash,
		Components: componentIDs(res.Units),
		Actions:    countActions(res.Units),
		CreatedAt:  c.now(),
	})
	if err != nil {
		logger.L().Warn(errors.WithMessage(err, "build history not updated"))
	}
}

func (c *Compiler) publishBuild(res *Result) {
	if c.mqtt == nil {
		return
	}
	ts := c.now()
	for _, u := range res.Units {
		topic := c.cfg.MQTTConfig.Topic + "/" + u.Record.ID
		token := c.mqtt.SafePublish(topic, mqttQoS, true, BuildMarshalHelper(res, u, c.cfg.Output, ts))
		if !token.WaitTimeout(publishTimeout) {
			logger.L().Warnf("Timeout publishing build report to `%v`", topic)
			continue
		}
		if err := token.Error(); err != nil {
			logger.L().Warnf("Cannot publish build report to `%v`: %v", topic, err)
		}
	}
}

func BuildMarshalHelper(res *Result, u codegen.Unit, output string, ts time.Time) []byte {
	axes := make([]string, 0, len(schema.Axes))
	for _, a := range schema.Axes {
		if u.Record.Sensor(a) != nil {
			axes = append(axes, a.String())
		}
	}

	report := struct {
		BuildID          string    `json:"build_id"`
		Component        string    `json:"component"`
		Address          string    `json:"address"`
		UpdateIntervalMs int64     `json:"update_interval_ms"`
		Axes             []string  `json:"axes"`
		Actions          int       `json:"actions"`
		Output           string    `json:"output"`
		SourceHash       string    `json:"source_hash"`
		Time             time.Time `json:"time"`
	}{
		BuildID:          res.BuildID,
		Component:        u.Record.ID,
		Address:          fmt.Sprintf("0x%02X", u.Record.Address),
		UpdateIntervalMs: u.Record.UpdateInterval.Milliseconds(),
		Axes:             axes,
		Actions:          len(u.Actions),
		Output:           output,
		SourceHash:       res.SourceHash,
		Time:             ts.UTC(),
	}

	ret, err := json.Marshal(report)
	if err != nil {
		logger.L().Error(err)
	}
	return ret
}
