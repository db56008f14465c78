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

package exporter

import (
	"github.com/pkg/errors"

	"github.com/swotrace/swotrace/common"
	"github.com/swotrace/swotrace/confengine"
	"github.com/swotrace/swotrace/internal/pubsub"
	"github.com/swotrace/swotrace/stream"
)

// Exporter 管理所有 Sinker 并为每个通道组装 Sinker 列表
//
// console/file/watch 为所有通道共享 echo 只挂载在开启了 echo 的通道上
type Exporter struct {
	conf    Config
	lines   *pubsub.PubSub[common.Line]
	shared  []Sinker
	echo    Sinker
	created []Sinker
}

// New 从配置中读取 exporter 段 缺失时使用 DefaultConfig
func New(conf *confengine.Config, sender Sender) (*Exporter, error) {
	cfg := DefaultConfig()
	if conf != nil {
		if err := conf.UnpackChildOptional("exporter", &cfg); err != nil {
			return nil, err
		}
	}
	return NewWithConfig(cfg, sender)
}

func NewWithConfig(cfg Config, sender Sender) (*Exporter, error) {
	exp := &Exporter{
		conf:  cfg,
		lines: pubsub.New[common.Line](),
	}
	deps := Deps{
		Sender: sender,
		Lines:  exp.lines,
	}

	enabled := []struct {
		name string
		on   bool
	}{
		{SinkerConsole, cfg.Console.Enabled},
		{SinkerFile, cfg.File.Enabled},
		{SinkerWatch, cfg.Watch.Enabled},
	}

	for _, e := range enabled {
		if !e.on {
			continue
		}
		sinker, err := exp.create(e.name, cfg, deps)
		if err != nil {
			exp.Close()
			return nil, err
		}
		exp.shared = append(exp.shared, sinker)
	}

	if sender != nil {
		sinker, err := exp.create(SinkerEcho, cfg, deps)
		if err != nil {
			exp.Close()
			return nil, err
		}
		exp.echo = sinker
	}
	return exp, nil
}

func (e *Exporter) create(name string, cfg Config, deps Deps) (Sinker, error) {
	f := Get(name)
	if f == nil {
		return nil, errors.Errorf("sinker %s not registered", name)
	}

	sinker, err := f(cfg, deps)
	if err != nil {
		return nil, errors.Wrapf(err, "create sinker %s", name)
	}
	e.created = append(e.created, sinker)
	return sinker, nil
}

// Lines 返回行广播总线 watch 开启时所有通道的行都会被发布
func (e *Exporter) Lines() *pubsub.PubSub[common.Line] {
	return e.lines
}

// WatchEnabled 是否开启了 watch Sinker
func (e *Exporter) WatchEnabled() bool {
	return e.conf.Watch.Enabled
}

// SinkersFor 返回通道需要挂载的 Sinker 可直接作为 stream.SinkerFactory 使用
func (e *Exporter) SinkersFor(cfg stream.Config) []stream.Sinker {
	sinkers := make([]stream.Sinker, 0, len(e.shared)+1)
	for _, s := range e.shared {
		sinkers = append(sinkers, s)
	}
	if cfg.Echo && e.echo != nil {
		sinkers = append(sinkers, e.echo)
	}
	return sinkers
}

// Close 关闭所有 Sinker
func (e *Exporter) Close() {
	for _, s := range e.created {
		s.Close()
	}
	e.created = nil
}
