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

package bufbytes

// Bytes 可选容量上限的字节缓冲
//
// size <= 0 时不限制长度 否则超出 size 的部分会被截断 调用方可通过 Full 判断是否已满
type Bytes struct {
	size int
	buf  []byte
}

func New(size int) *Bytes {
	return &Bytes{
		size: size,
	}
}

func (b *Bytes) Write(p []byte) {
	if b.size <= 0 {
		b.buf = append(b.buf, p...)
		return
	}

	n := (b.size - len(b.buf)) - len(p)
	if n >= 0 {
		b.buf = append(b.buf, p...)
		return
	}

	l := b.size - len(b.buf)
	if l > 0 {
		b.buf = append(b.buf, p[:l]...)
	}
}

func (b *Bytes) WriteByte(c byte) error {
	if b.Full() {
		return nil
	}
	b.buf = append(b.buf, c)
	return nil
}

// Full 返回缓冲是否已经达到容量上限 无上限时永远为 false
func (b *Bytes) Full() bool {
	return b.size > 0 && len(b.buf) >= b.size
}

func (b *Bytes) Len() int {
	return len(b.buf)
}

func (b *Bytes) Bytes() []byte {
	return b.buf
}

func (b *Bytes) Text() string {
	return string(b.buf)
}

func (b *Bytes) Clone() []byte {
	if b.buf == nil {
		return nil
	}
	return append([]byte{}, b.buf...)
}

func (b *Bytes) Reset() {
	b.buf = b.buf[:0]
}
