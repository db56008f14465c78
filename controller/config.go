// Copyright 2025 The swotrace Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package controller

import (
	"bytes"
	"text/template"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/swotrace/swotrace/confengine"
	"github.com/swotrace/swotrace/dispatcher"
	"github.com/swotrace/swotrace/operator"
	"github.com/swotrace/swotrace/protocol/tcl"
	"github.com/swotrace/swotrace/stream"
)

const defaultClockHz = 80000000

type Config struct {
	OpenOCD    tcl.Options       `config:"openocd"`
	Target     TargetConfig      `config:"target"`
	Streams    stream.Configs    `config:"streams"`
	Operator   operator.Config   `config:"operator"`
	Dispatcher dispatcher.Config `config:"dispatcher"`
}

// TargetConfig 目标芯片配置
//
// 初始化和退出命令均为模板 可引用 {{ .ClockHz }} 以及 {{ .SwoHz }}
type TargetConfig struct {
	ClockHz          int64    `config:"clockHz"`
	SwoHz            int64    `config:"swoHz"`
	InitCommands     []string `config:"initCommands"`
	ShutdownCommands []string `config:"shutdownCommands"`
}

func DefaultInitCommands() []string {
	return []string{
		"init",
		"tpiu config internal - uart off {{ .ClockHz }}{{ if .SwoHz }} {{ .SwoHz }}{{ end }}",
		"itm ports on",
		"tcl_trace on",
	}
}

func DefaultShutdownCommands() []string {
	return []string{"tcl_trace off"}
}

// DefaultStreams 0 号通道为普通输出 1 号为告警 2 号为错误 0 和 2 号通道回显到调试器终端
func DefaultStreams() []stream.Config {
	return []stream.Config{
		{Channel: 0, Prefix: "", Echo: true},
		{Channel: 1, Prefix: "WARNING: "},
		{Channel: 2, Prefix: "ERROR: ", Echo: true},
	}
}

// Check 补全默认值并校验
func (c *TargetConfig) Check() error {
	if c.ClockHz <= 0 {
		return errors.Errorf("target.clockHz must be positive, got %d", c.ClockHz)
	}
	if c.SwoHz < 0 {
		return errors.Errorf("target.swoHz must not be negative, got %d", c.SwoHz)
	}
	if len(c.InitCommands) == 0 {
		c.InitCommands = DefaultInitCommands()
	}
	if len(c.ShutdownCommands) == 0 {
		c.ShutdownCommands = DefaultShutdownCommands()
	}
	return nil
}

// Render 渲染命令模板
func (c TargetConfig) Render(cmds []string) ([]string, error) {
	rendered := make([]string, 0, len(cmds))
	for _, text := range cmds {
		tpl, err := template.New("command").Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, errors.Wrapf(err, "parse command %q", text)
		}

		var buf bytes.Buffer
		if err := tpl.Execute(&buf, c); err != nil {
			return nil, errors.Wrapf(err, "render command %q", text)
		}
		rendered = append(rendered, buf.String())
	}
	return rendered, nil
}

// loadConfig 读取并校验配置 所有校验错误会被合并返回
func loadConfig(conf *confengine.Config) (Config, error) {
	cfg := Config{
		Target: TargetConfig{ClockHz: defaultClockHz},
	}

	sections := []struct {
		name string
		to   any
	}{
		{"openocd", &cfg.OpenOCD},
		{"target", &cfg.Target},
		{"streams", &cfg.Streams},
		{"operator", &cfg.Operator},
		{"dispatcher", &cfg.Dispatcher},
	}
	for _, s := range sections {
		if err := conf.UnpackChildOptional(s.name, s.to); err != nil {
			return cfg, errors.Wrapf(err, "unpack %s", s.name)
		}
	}

	var errs error
	if err := cfg.Target.Check(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if _, err := cfg.Target.Render(cfg.Target.InitCommands); err != nil {
		errs = multierror.Append(errs, err)
	}
	if _, err := cfg.Target.Render(cfg.Target.ShutdownCommands); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := cfg.Dispatcher.Check(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if _, err := cfg.Operator.ParseBindings(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.Streams.MaxLineLength < 0 {
		errs = multierror.Append(errs, errors.Errorf("streams.maxLineLength must not be negative"))
	}

	if len(cfg.Streams.Channels) == 0 {
		cfg.Streams.Channels = DefaultStreams()
	}
	cfg.OpenOCD.Validate()
	cfg.Operator.Validate()
	return cfg, errs
}
