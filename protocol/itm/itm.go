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

import (
	"fmt"
)

const (
	PROTO = "ITM"

	// MaxPayloadSize 源数据包 (Source Packet) 的最大负载长度
	MaxPayloadSize = 4
)

// Kind ITM 数据包类型
type Kind uint8

const (
	KindInstrumentation Kind = iota // 软件激励包 (SWIT) 携带应用程序输出
	KindHardware                    // 硬件源数据包 (DWT) 事件计数/异常跟踪/PC 采样/数据跟踪
	KindSync                        // 同步包 至少 47 个 0 bit 之后跟 1 bit
	KindOverflow                    // 溢出包
	KindLocalTimestamp              // 本地时间戳
	KindGlobalTimestamp1            // 全局时间戳 [25:0]
	KindGlobalTimestamp2            // 全局时间戳 [63:26] / [47:26]
	KindExtension                   // 扩展包
	KindReserved                    // 保留的头部编码

	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindInstrumentation:
		return "instrumentation"
	case KindHardware:
		return "hardware"
	case KindSync:
		return "sync"
	case KindOverflow:
		return "overflow"
	case KindLocalTimestamp:
		return "local_timestamp"
	case KindGlobalTimestamp1:
		return "global_timestamp1"
	case KindGlobalTimestamp2:
		return "global_timestamp2"
	case KindExtension:
		return "extension"
	case KindReserved:
		return "reserved"
	}
	return "unknown"
}

// Kinds 返回全部的数据包类型
func Kinds() []Kind {
	kinds := make([]Kind, 0, numKinds)
	for k := Kind(0); k < numKinds; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Header 单字节的数据包头部
//
// 对于源数据包 (Instrumentation/Hardware) Size 为 1/2/4 字节的固定负载长度
// 对于使用续位 (bit7) 编码长度的数据包 Continued 为 true 此时 Size 为负载长度上限
type Header struct {
	Kind      Kind
	Channel   uint8
	Size      uint8
	Continued bool
}

// ParseHeader 解析头部字节
//
// 头部的低位决定数据包的类型和负载长度
//
//	+----------+--------------------------------------------+
//	| bit 7..3 | bit 2 | bit 1..0                           |
//	+----------+-------+------------------------------------+
//	| A[4:0]   |  0/1  | SS (01: 1 byte 10: 2 bytes 11: 4)  |   源数据包 (SS != 0)
//	+----------+-------+------------------------------------+
//
// bit2 为 0 时为软件激励包 A[4:0] 为通道号 (激励端口) bit2 为 1 时为硬件源数据包 A[4:0] 为鉴别码
//
// SS == 0 时为协议包 (Protocol Packet) 具体编码如下
//
//   - 0b00000000: 同步包 由连续的 0x00 以及最后的 0x80 组成
//   - 0b01110000: 溢出包 没有负载
//   - 0bCxxx0000: 本地时间戳 C 为 1 时后续跟随最多 4 字节续位编码负载 否则 xxx 即为时间戳
//   - 0bCxxxS100: 扩展包 C 为 1 时后续跟随最多 4 字节续位编码负载
//   - 0b10T10100: 全局时间戳 T 为 0 时为 GTS1 (最多 4 字节) 否则为 GTS2 (最多 6 字节)
//   - 其他: 保留编码
func ParseHeader(b byte) Header {
	if b&0x03 != 0 {
		size := b & 0x03
		if size == 3 {
			size = 4
		}
		kind := KindInstrumentation
		if b&0x04 != 0 {
			kind = KindHardware
		}
		return Header{Kind: kind, Channel: b >> 3, Size: size}
	}

	switch {
	case b == 0x00:
		return Header{Kind: KindSync}

	case b == 0x70:
		return Header{Kind: KindOverflow}

	case b&0x0F == 0x00:
		if b&0x80 != 0 {
			return Header{Kind: KindLocalTimestamp, Size: 4, Continued: true}
		}
		return Header{Kind: KindLocalTimestamp}

	case b&0x0B == 0x08:
		if b&0x80 != 0 {
			return Header{Kind: KindExtension, Size: 4, Continued: true}
		}
		return Header{Kind: KindExtension}

	case b&0xDF == 0x94:
		if b&0x20 == 0 {
			return Header{Kind: KindGlobalTimestamp1, Size: 4, Continued: true}
		}
		return Header{Kind: KindGlobalTimestamp2, Size: 6, Continued: true}
	}
	return Header{Kind: KindReserved}
}

// Packet 一个完整的软件激励包
//
// 负载按照接收顺序保存 不做任何数值解释 交由通道的消费方处理
type Packet struct {
	Channel uint8
	Size    uint8
	Data    [MaxPayloadSize]byte
}

// NewPacket 根据通道号和负载构建 Packet 负载超出 MaxPayloadSize 的部分会被丢弃
func NewPacket(channel uint8, payload []byte) Packet {
	pkt := Packet{Channel: channel}
	pkt.Size = uint8(copy(pkt.Data[:], payload))
	return pkt
}

// Payload 返回负载字节
func (p Packet) Payload() []byte {
	return p.Data[:p.Size]
}

func (p Packet) String() string {
	return fmt.Sprintf("%s:SWIT; Port 0x%02X; %d bytes; Data %q", PROTO, p.Channel, p.Size, p.Payload())
}
