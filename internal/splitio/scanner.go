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

import (
	"bytes"
)

const (
	CharLF  = '\n'
	CharSUB = '\x1a'
)

// Scanner 在一段完整的字节序列上按照分隔符零拷贝切分
//
// 返回的每一段都包含分隔符本身 最后一段可能不包含分隔符
type Scanner struct {
	l, r  int
	delim byte
	buf   []byte
}

func NewScanner(b []byte, delim byte) *Scanner {
	return &Scanner{
		buf:   b,
		delim: delim,
	}
}

func (s *Scanner) Scan() bool {
	s.l = s.r
	if len(s.buf) == s.l {
		return false
	}

	idx := bytes.IndexByte(s.buf[s.l:], s.delim)
	if idx == -1 {
		s.r = len(s.buf)
	} else {
		s.r = s.l + idx + 1
	}
	return true
}

func (s *Scanner) Bytes() []byte {
	return s.buf[s.l:s.r]
}

// Terminated 返回当前段是否以分隔符结尾
func (s *Scanner) Terminated() bool {
	return s.r > s.l && s.buf[s.r-1] == s.delim
}
