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

package pipeline

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/swotrace/swotrace/common"
	"github.com/swotrace/swotrace/protocol/itm"
	"github.com/swotrace/swotrace/stream"
)

// Pipeline 串联 ITM 解码器和通道管理器
//
// 字节按到达顺序同步地流经 decoder -> manager -> stream -> sinker
// 整条链路只允许在单个 goroutine 中驱动
type Pipeline struct {
	decoder *itm.Decoder
	streams *stream.Manager
	last    itm.Stats
}

func New(streams *stream.Manager) *Pipeline {
	return &Pipeline{
		decoder: itm.NewDecoder(),
		streams: streams,
	}
}

// Feed 写入一段原始 trace 数据
func (p *Pipeline) Feed(b []byte) {
	p.decoder.Decode(b, p.dispatch)
	p.observe()
}

func (p *Pipeline) dispatch(pkt itm.Packet) {
	p.streams.Dispatch(pkt)
}

func (p *Pipeline) observe() {
	stats := p.decoder.Stats()
	if n := stats.Bytes - p.last.Bytes; n > 0 {
		traceBytes.Add(float64(n))
	}
	for _, k := range itm.Kinds() {
		if n := stats.Count(k) - p.last.Count(k); n > 0 {
			itmPackets.WithLabelValues(k.String()).Add(float64(n))
		}
	}
	p.last = stats
}

// Stats 返回解码统计
func (p *Pipeline) Stats() itm.Stats {
	return p.decoder.Stats()
}

// Run 持续消费 src 直到 src 被关闭或者 ctx 结束
//
// src 被关闭时返回 nil
func (p *Pipeline) Run(ctx context.Context, src <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case b, ok := <-src:
			if !ok {
				return nil
			}
			p.Feed(b)
		}
	}
}

// ReadFrom 从 r 中读取原始 trace 数据直到 EOF
func (p *Pipeline) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	buf := make([]byte, common.ReadBlockSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			total += int64(n)
			p.Feed(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return total, nil
			}
			return total, errors.Wrap(err, "read trace")
		}
	}
}
