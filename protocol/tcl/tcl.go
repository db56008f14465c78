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

package tcl

import (
	"bytes"
	"encoding/hex"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"
)

const (
	PROTO = "OpenOCD-Tcl"

	// Terminator Tcl Server 的消息分隔符 请求和响应均以 0x1a 结尾
	Terminator = '\x1a'
)

func newError(format string, args ...any) error {
	format = "tcl/protocol: " + format
	return errors.Errorf(format, args...)
}

var (
	errNotTrace   = newError("not a target_trace notification")
	errInvalidHex = newError("invalid target_trace hex payload")
)

var (
	notificationPrefix = []byte("type ")
	tracePrefix        = []byte("type target_trace data ")
)

// IsNotification 判断帧是否为异步通知
//
// 开启 tcl_notifications / tcl_trace 后 Tcl Server 会在同一条链接上推送 `type <name> ...` 形式的通知
// 通知与命令响应交错出现 但不占用命令响应的顺序
func IsNotification(frame []byte) bool {
	return bytes.HasPrefix(frame, notificationPrefix)
}

// DecodeTrace 解析 target_trace 通知 返回原始的 trace 字节
//
// OpenOCD 以十六进制文本传输 SWO 捕获到的字节 形如
//
//	type target_trace data 01480165016c016c016f0120015401720161016301650121010a\r\n
func DecodeTrace(frame []byte) ([]byte, error) {
	if !bytes.HasPrefix(frame, tracePrefix) {
		return nil, errNotTrace
	}

	text := bytes.TrimRight(frame[len(tracePrefix):], "\r\n ")
	data := make([]byte, hex.DecodedLen(len(text)))
	n, err := hex.Decode(data, text)
	if err != nil {
		return nil, errors.Wrap(errInvalidHex, err.Error())
	}
	return data[:n], nil
}

// EncodeTrace 将原始字节编码为 target_trace 通知 (不含分隔符)
func EncodeTrace(data []byte) []byte {
	buf := make([]byte, 0, len(tracePrefix)+hex.EncodedLen(len(data))+2)
	buf = append(buf, tracePrefix...)
	buf = hex.AppendEncode(buf, data)
	return append(buf, '\r', '\n')
}

// Quote 将任意文本转义为 Tcl 双引号字符串
//
// 双引号内 `\` `"` `[` `]` `$` 均具有特殊含义 需要转义 分隔符 0x1a 会破坏帧边界 直接丢弃
func Quote(s string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\', '"', '[', ']', '$':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case Terminator:
		case '\r':
			buf.WriteString(`\r`)
		case '\n':
			buf.WriteString(`\n`)
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte('"')
	return buf.String()
}
