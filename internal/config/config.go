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

package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/antst/ism330gen/internal/logger"

	"github.com/pborman/getopt/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	defaultDBFile     = "~/.ism330gen.db"
	defaultConfigFile = "ism330gen.yaml"
	defaultOutput     = "-"
	// StdStream selects stdin for the input and stdout for the output.
	StdStream = "-"

	ModeCompile  = "compile"
	ModeValidate = "validate"
	ModeConfig   = "config"
	ModeHistory  = "history"
)

// ErrHelp is returned by Get when usage was requested and printed.
var ErrHelp = errors.New("help requested")

type Config struct {
	LogLevel   zapcore.Level `yaml:"log_level"`
	Input      string        `yaml:"input"`
	Output     string        `yaml:"output"`
	Mode       string        `yaml:"mode"`
	Force      bool          `yaml:"force"`
	DBFile     string        `yaml:"db_file"`
	MQTTConfig *MQTTConfig   `yaml:"mqtt"`
}

func defConfig() *Config {
	return &Config{
		LogLevel:   zapcore.InfoLevel,
		Output:     defaultOutput,
		Mode:       ModeCompile,
		DBFile:     defaultDBFile,
		MQTTConfig: NewMQTTConfig(),
	}
}

func GetPTR[T any](v T) *T {
	return &v
}

func prettyPrint(cfg *Config) {
	if logger.Level() > zapcore.DebugLevel {
		return
	}
	d, err := yaml.Marshal(cfg)
	if err != nil {
		logger.L().Error("Failed to marshal config for pretty print", err)
		return
	}
	logger.L().Debugf("--- Config ---\n%s\n\n", string(d))
}

func (cfg *Config) FillDefaults() {
	if cfg.MQTTConfig == nil {
		cfg.MQTTConfig = NewMQTTConfig()
	}
	cfg.MQTTConfig.FillDefaults()

	if cfg.Output == "" {
		cfg.Output = defaultOutput
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeCompile
	}
	cfg.Mode = strings.ToLower(cfg.Mode)
}

func (cfg *Config) Validate() error {
	switch cfg.Mode {
	case ModeCompile, ModeValidate, ModeConfig:
	case ModeHistory:
		if cfg.DBFile == "" {
			return errors.New("history mode needs a build history DB")
		}
		return nil
	default:
		return fmt.Errorf("unknown mode `%v`, expected one of: %v, %v, %v, %v",
			cfg.Mode, ModeCompile, ModeValidate, ModeConfig, ModeHistory)
	}
	if cfg.Input == "" {
		return errors.New("no input configuration given")
	}
	return nil
}

// Get builds the effective configuration from the config file and the command
// line in args, where args[0] is the program name. Flags win over the file.
func Get(args []string) (*Config, error) {
	cfg := defConfig()

	set := getopt.New()
	set.SetParameters("[input.yaml]")
	logLevel := set.StringLong("log-level", 'l', "", "log levels: debug, info, warn, error, dpanic, panic, fatal")
	configFile := set.StringLong("config", 'c', "", "tool config file pathname (default "+defaultConfigFile+")")
	input := set.StringLong("input", 'i', "", "component configuration, - for stdin")
	output := set.StringLong("output", 'o', "", "generated C++ file, - for stdout")
	mode := set.StringLong("mode", 'm', "", "mode: compile, validate, config, history")
	dbFile := set.StringLong("db", 'd', "", "build history DB file pathname, `none` to disable")
	force := set.BoolLong("force", 'f', "rewrite the output even if it did not change")
	help := set.BoolLong("help", 'h', "display help")

	if err := set.Getopt(args, nil); err != nil {
		set.PrintUsage(os.Stderr)
		return nil, errors.Wrap(err, "failed to parse command line")
	}
	if *help {
		set.PrintUsage(os.Stderr)
		return nil, ErrHelp
	}

	cfgPath, explicit := *configFile, *configFile != ""
	if !explicit {
		cfgPath = defaultConfigFile
	}
	if err := readFile(cfg, cfgPath, explicit); err != nil {
		return nil, err
	}
	logger.L().Debugf("Using config file `%v`", cfgPath)

	if *input != "" {
		cfg.Input = *input
	} else if rest := set.Args(); len(rest) > 0 {
		cfg.Input = rest[0]
	}
	if *output != "" {
		cfg.Output = *output
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *dbFile != "" {
		cfg.DBFile = *dbFile
	}
	if strings.EqualFold(cfg.DBFile, "none") {
		cfg.DBFile = ""
	}
	if *force {
		cfg.Force = true
	}

	cfg.FillDefaults()

	if *logLevel != "" {
		if err := cfg.LogLevel.Set(*logLevel); err != nil {
			return nil, errors.Wrapf(err, "wrong log level `%v`", *logLevel)
		}
	}
	logger.SetLogLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prettyPrint(cfg)

	return cfg, nil
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	return err == nil && !info.IsDir()
}

// readFile merges the YAML file into cfg. A missing file is only an error when
// it was asked for explicitly.
func readFile(cfg *Config, configFileName string, required bool) error {
	if !fileExists(configFileName) {
		if required {
			return fmt.Errorf("config file `%v` not found", configFileName)
		}
		return nil
	}

	f, err := os.Open(configFileName)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	return nil
}
