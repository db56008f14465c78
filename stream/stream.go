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
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/swotrace/swotrace/common"
	"github.com/swotrace/swotrace/internal/bufbytes"
	"github.com/swotrace/swotrace/logger"
)

// Sinker 接收 Stream 输出的完整行
type Sinker interface {
	// Name Sinker 名称
	Name() string

	// Sink 写入一行 返回的错误只会被记录 不会中断其他 Sinker 的写入
	Sink(line common.Line) error
}

// Config 单个通道的配置
type Config struct {
	Channel int    `config:"channel"`
	Prefix  string `config:"prefix"`
	Echo    bool   `config:"echo"`
}

// Configs streams 配置段
type Configs struct {
	// MaxLineLength 单行最大长度 0 代表不限制
	//
	// 不限制时缓冲区只会在收到换行符时清空 否则达到上限时会输出告警并强制输出当前行
	MaxLineLength int      `config:"maxLineLength"`
	Channels      []Config `config:"channels"`
}

// Stream 单个 ITM 通道的行缓冲
//
// 负载字节被累积在缓冲区中 直到收到换行符才会拼接前缀并写入所有 Sinker
// 未结束的行会一直保留 没有任何基于时间的刷新 保证每一行都是完整且有序地交付
//
// Stream 只会在解码 goroutine 中被调用 非并发安全
type Stream struct {
	channel       int
	prefix        string
	sinkers       []Sinker
	buf           *bufbytes.Bytes
	maxLineLength int

	emitted  prometheus.Counter
	received prometheus.Counter
	overlong prometheus.Counter

	now func() time.Time
}

// New 创建 Stream maxLineLength <= 0 代表不限制行长度
func New(cfg Config, maxLineLength int, sinkers ...Sinker) *Stream {
	if maxLineLength < 0 {
		maxLineLength = 0
	}

	label := strconv.Itoa(cfg.Channel)
	return &Stream{
		channel:       cfg.Channel,
		prefix:        cfg.Prefix,
		sinkers:       sinkers,
		buf:           bufbytes.New(maxLineLength),
		maxLineLength: maxLineLength,
		emitted:       emittedLines.WithLabelValues(label),
		received:      receivedBytes.WithLabelValues(label),
		overlong:      overlongLines.WithLabelValues(label),
		now:           time.Now,
	}
}

func (s *Stream) Channel() int {
	return s.channel
}

func (s *Stream) Prefix() string {
	return s.prefix
}

// Pending 返回缓冲区中尚未结束的字节数
func (s *Stream) Pending() int {
	return s.buf.Len()
}

// Accept 写入一段负载
func (s *Stream) Accept(p []byte) {
	s.received.Add(float64(len(p)))

	for _, c := range p {
		if c == '\n' {
			s.emit(s.prefix + s.buf.Text())
			s.buf.Reset()
			continue
		}

		if s.buf.Full() {
			s.overlong.Inc()
			s.emit(fmt.Sprintf("%s WARNING: stream %d received %d bytes without receiving a newline. Did you forget one?",
				common.App, s.channel, s.maxLineLength))
			s.emit(s.prefix + s.buf.Text() + string(c))
			s.buf.Reset()
			continue
		}
		s.buf.WriteByte(c)
	}
}

func (s *Stream) emit(text string) {
	s.emitted.Inc()

	line := common.Line{
		Channel: s.channel,
		Text:    text,
		Time:    s.now(),
	}
	for _, sinker := range s.sinkers {
		if err := sinker.Sink(line); err != nil {
			sinkFailures.WithLabelValues(sinker.Name()).Inc()
			logger.Warnf("stream %d: sinker %s failed: %v", s.channel, sinker.Name(), err)
		}
	}
}
