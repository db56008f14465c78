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

package splitio

// Splitter 流式切分器
//
// 数据以任意长度的块到达 Splitter 会缓存尚未遇到分隔符的残余部分
// 直到后续的块补齐之后再整体提交 提交的帧不包含分隔符
type Splitter struct {
	delim   byte
	maxSize int
	pending []byte
}

// NewSplitter 创建 Splitter maxSize 为残余数据的最大长度 超出时丢弃残余数据
//
// maxSize <= 0 表示不限制
func NewSplitter(delim byte, maxSize int) *Splitter {
	return &Splitter{
		delim:   delim,
		maxSize: maxSize,
	}
}

// Feed 写入一块数据 并对每个完整的帧调用 fn
//
// fn 收到的字节切片仅在回调期间有效 如需持有请先 copy 一份
func (s *Splitter) Feed(p []byte, fn func(frame []byte)) {
	scanner := NewScanner(p, s.delim)
	for scanner.Scan() {
		b := scanner.Bytes()
		if !scanner.Terminated() {
			s.pending = append(s.pending, b...)
			if s.maxSize > 0 && len(s.pending) > s.maxSize {
				s.pending = s.pending[:0]
			}
			return
		}

		b = b[:len(b)-1]
		if len(s.pending) == 0 {
			fn(b)
			continue
		}

		s.pending = append(s.pending, b...)
		fn(s.pending)
		s.pending = s.pending[:0]
	}
}

// Pending 返回当前缓存的残余字节数
func (s *Splitter) Pending() int {
	return len(s.pending)
}

// Reset 丢弃残余数据
func (s *Splitter) Reset() {
	s.pending = s.pending[:0]
}
