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

package stream

import (
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/swotrace/swotrace/common"
	"github.com/swotrace/swotrace/protocol/itm"
)

var (
	ErrSealed           = errors.New("stream/manager: already sealed")
	ErrDuplicateChannel = errors.New("stream/manager: duplicate channel")
	ErrInvalidChannel   = errors.New("stream/manager: invalid channel")
)

// SinkerFactory 根据通道配置生成该通道需要的 Sinker
type SinkerFactory func(cfg Config) []Sinker

// Manager 维护通道到 Stream 的映射
//
// 注册阶段允许并发调用 Seal 之后映射不可变 Dispatch 只在解码 goroutine 中调用
type Manager struct {
	mut           sync.Mutex
	sealed        bool
	maxLineLength int
	streams       [common.MaxChannels]*Stream

	dispatched uint64
	dropped    uint64
}

func NewManager(maxLineLength int) *Manager {
	return &Manager{maxLineLength: maxLineLength}
}

// Build 按照配置注册所有通道并 Seal 所有注册错误会被合并返回
func Build(cfg Configs, factory SinkerFactory) (*Manager, error) {
	m := NewManager(cfg.MaxLineLength)

	var errs error
	for _, ch := range cfg.Channels {
		var sinkers []Sinker
		if factory != nil {
			sinkers = factory(ch)
		}
		if err := m.Register(ch, sinkers...); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	m.Seal()
	return m, errs
}

// Register 注册通道
func (m *Manager) Register(cfg Config, sinkers ...Sinker) error {
	m.mut.Lock()
	defer m.mut.Unlock()

	if m.sealed {
		return errors.Wrapf(ErrSealed, "channel %d", cfg.Channel)
	}
	if cfg.Channel < 0 || cfg.Channel >= common.MaxChannels {
		return errors.Wrapf(ErrInvalidChannel, "channel %d", cfg.Channel)
	}
	if m.streams[cfg.Channel] != nil {
		return errors.Wrapf(ErrDuplicateChannel, "channel %d", cfg.Channel)
	}

	m.streams[cfg.Channel] = New(cfg, m.maxLineLength, sinkers...)
	return nil
}

// Seal 冻结注册表
func (m *Manager) Seal() {
	m.mut.Lock()
	defer m.mut.Unlock()
	m.sealed = true
}

func (m *Manager) Sealed() bool {
	m.mut.Lock()
	defer m.mut.Unlock()
	return m.sealed
}

// Get 返回通道对应的 Stream
func (m *Manager) Get(channel int) (*Stream, bool) {
	if channel < 0 || channel >= common.MaxChannels {
		return nil, false
	}

	m.mut.Lock()
	defer m.mut.Unlock()
	s := m.streams[channel]
	return s, s != nil
}

// Channels 返回已注册的通道 升序
func (m *Manager) Channels() []int {
	m.mut.Lock()
	defer m.mut.Unlock()

	var channels []int
	for i, s := range m.streams {
		if s != nil {
			channels = append(channels, i)
		}
	}
	sort.Ints(channels)
	return channels
}

// Dispatch 将 packet 路由到对应通道 未注册的通道直接丢弃
//
// 返回 packet 是否被投递
func (m *Manager) Dispatch(pkt itm.Packet) bool {
	var s *Stream
	if int(pkt.Channel) < common.MaxChannels {
		s = m.streams[pkt.Channel]
	}
	if s == nil {
		m.dropped++
		droppedPackets.Inc()
		return false
	}

	m.dispatched++
	s.Accept(pkt.Payload())
	return true
}

// Stats 返回已投递和已丢弃的 packet 数量 只应在解码 goroutine 中调用
func (m *Manager) Stats() (dispatched, dropped uint64) {
	return m.dispatched, m.dropped
}
