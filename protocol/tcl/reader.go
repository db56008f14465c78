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
	"io"

	"github.com/swotrace/swotrace/common"
	"github.com/swotrace/swotrace/internal/splitio"
)

// TraceReader 从 Tcl Server 的原始字节流中提取 trace 数据
//
// 用于离线解析录制的会话 非 trace 通知的帧以及格式错误的通知会被忽略
type TraceReader struct {
	r        io.Reader
	splitter *splitio.Splitter
	buf      []byte
	pending  []byte
	err      error
}

func NewTraceReader(r io.Reader) *TraceReader {
	return &TraceReader{
		r:        r,
		splitter: splitio.NewSplitter(Terminator, maxFrameSize),
		buf:      make([]byte, common.ReadBlockSize),
	}
}

func (t *TraceReader) Read(p []byte) (int, error) {
	for len(t.pending) == 0 && t.err == nil {
		n, err := t.r.Read(t.buf)
		if n > 0 {
			t.splitter.Feed(t.buf[:n], t.onFrame)
		}
		t.err = err
	}

	if len(t.pending) == 0 {
		return 0, t.err
	}
	n := copy(p, t.pending)
	t.pending = t.pending[n:]
	return n, nil
}

func (t *TraceReader) onFrame(frame []byte) {
	if !IsNotification(frame) {
		return
	}
	data, err := DecodeTrace(frame)
	if err != nil {
		return
	}
	t.pending = append(t.pending, data...)
}
