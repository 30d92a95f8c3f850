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

package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/antst/ism330gen/internal"
	"github.com/antst/ism330gen/internal/config"
	"github.com/antst/ism330gen/internal/db"
	"github.com/antst/ism330gen/internal/logger"
	"github.com/antst/ism330gen/internal/safe_mqtt"
	"github.com/antst/ism330gen/internal/schema"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Build version, overridden with flag during build.
var version = "devel"

func main() {
	os.Exit(run())
}

func run() int {
	defer logger.Close()

	cfg, err := config.Get(os.Args)
	if errors.Is(err, config.ErrHelp) {
		return 0
	}
	if err != nil {
		logger.L().Error(err)
		return 2
	}
	logger.L().Debugf("ISM330DLC config compiler, version: %+v", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var store internal.BuildStore
	if (cfg.Mode == config.ModeCompile || cfg.Mode == config.ModeHistory) && cfg.DBFile != "" {
		q, err := db.OpenDatabase(ctx, cfg.DBFile)
		if err != nil {
			logger.L().Warn(errors.WithMessage(err, "build history disabled"))
		} else {
			defer q.Close()
			store = q
		}
	}

	var client safe_mqtt.MqttClient
	if cfg.Mode == config.ModeCompile && cfg.MQTTConfig.Enabled() {
		client, err = safe_mqtt.InitMQTTClient(
			ctx, cfg.MQTTConfig.URL, "ism330gen-"+uuid.New().String(), *cfg.MQTTConfig.ConnectAttempts,
		)
		if err != nil {
			logger.L().Warn(errors.WithMessage(err, "build notifications disabled"))
			client = nil
		} else {
			defer client.Close()
		}
	}

	if _, err := internal.NewCompiler(cfg, store, client).Run(ctx); err != nil {
		if verrs := schema.ValidationErrors(err); len(verrs) > 0 {
			for _, ve := range verrs {
				logger.L().Errorf("Invalid config: %v", ve)
			}
		} else {
			logger.L().Error(err)
		}
		return 1
	}
	return 0
}
