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

package itm

type state uint8

const (
	stateHeader        state = iota // 等待头部
	statePayload                    // 读取软件激励包负载
	stateSkip                       // 丢弃固定长度的负载
	stateSkipContinued              // 丢弃续位编码的负载
	stateSync                       // 丢弃同步包中的连续 0x00
)

// Stats 解码统计
type Stats struct {
	Bytes   uint64
	Packets [numKinds]uint64
}

// Count 返回指定类型的数据包数量
func (s Stats) Count(k Kind) uint64 {
	if k >= numKinds {
		return 0
	}
	return s.Packets[k]
}

// Decoder ITM 数据流解码器
//
// Decoder 逐字节推进状态机 每个字节都会在有限步内被消费 不存在阻塞或者等待的状态
// 只有软件激励包会被提交给上层 其他类型的数据包按照各自的长度编码规则被识别并跳过
//
//	        +-------------------------------------------------+
//	        |                                                 |
//	        v           SWIT                                  |
//	  stateHeader ------------> statePayload --(n bytes)------+
//	        |  DWT                                            |
//	        +-----------------> stateSkip ----(n bytes)-------+
//	        |  TS/GTS/EXT (C=1)                               |
//	        +-----------------> stateSkipContinued --(C=0)----+
//	        |  0x00                                           |
//	        +-----------------> stateSync -----(0x80)---------+
//
// 无法确定长度的保留头部只消费头部字节本身 下一个字节重新作为头部解析
//
// Decoder 只持有一个正在组装的数据包 与通道语义无关 非并发安全
type Decoder struct {
	state     state
	header    Header
	payload   [MaxPayloadSize]byte
	got       int
	remaining int
	stats     Stats
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// reset 回到等待头部的初始状态
func (d *Decoder) reset() {
	d.state = stateHeader
	d.header = Header{}
	d.got = 0
	d.remaining = 0
}

// Reset 丢弃正在组装的数据包 统计数据保持不变
func (d *Decoder) Reset() {
	d.reset()
}

// Idle 返回解码器是否处于等待头部的状态
func (d *Decoder) Idle() bool {
	return d.state == stateHeader
}

// Stats 返回解码统计快照
func (d *Decoder) Stats() Stats {
	return d.stats
}

// Decode 解码一段任意长度的字节序列 每个完整的软件激励包都会回调 fn
//
// 不完整的数据包会保留在解码器中 由下一次 Decode 补齐
func (d *Decoder) Decode(p []byte, fn func(pkt Packet)) {
	for _, b := range p {
		if pkt, ok := d.Feed(b); ok {
			fn(pkt)
		}
	}
}

// Feed 写入一个字节 当且仅当一个软件激励包的负载读取完毕时返回 true
func (d *Decoder) Feed(b byte) (Packet, bool) {
	d.stats.Bytes++

	switch d.state {
	case statePayload:
		d.payload[d.got] = b
		d.got++
		if d.got < int(d.header.Size) {
			return Packet{}, false
		}

		pkt := Packet{
			Channel: d.header.Channel,
			Size:    d.header.Size,
			Data:    d.payload,
		}
		d.reset()
		return pkt, true

	case stateSkip:
		d.remaining--
		if d.remaining <= 0 {
			d.reset()
		}
		return Packet{}, false

	case stateSkipContinued:
		// bit7 为 0 代表最后一个负载字节 同时负载长度不会超过上限
		d.remaining--
		if b&0x80 == 0 || d.remaining <= 0 {
			d.reset()
		}
		return Packet{}, false

	case stateSync:
		switch b {
		case 0x00:
			return Packet{}, false
		case 0x80:
			d.reset()
			return Packet{}, false
		}

		// 不完整的同步序列 将当前字节重新作为头部解析
		d.reset()
	}

	d.onHeader(b)
	return Packet{}, false
}

func (d *Decoder) onHeader(b byte) {
	h := ParseHeader(b)
	d.stats.Packets[h.Kind]++

	switch h.Kind {
	case KindInstrumentation:
		d.header = h
		d.got = 0
		d.state = statePayload

	case KindHardware:
		d.remaining = int(h.Size)
		d.state = stateSkip

	case KindSync:
		d.state = stateSync

	case KindOverflow, KindReserved:
		// 单字节数据包 保持在等待头部的状态

	default:
		if h.Continued {
			d.remaining = int(h.Size)
			d.state = stateSkipContinued
		}
	}
}
